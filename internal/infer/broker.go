package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verinews/relayer/internal/model"
	"github.com/verinews/relayer/internal/worker"
)

// BrokerProvider implements the Provider interface against the platform's
// inference broker. The broker fronts a decentralized compute provider
// addressed on-chain; the relayer pays a fallback fee when the provider's
// metered quota is exhausted.
type BrokerProvider struct {
	brokerURL       string
	providerAddress string
	fallbackFee     string
	chainRPCURL     string
	httpClient      *http.Client
	limiter         *worker.Limiter
}

type brokerRequest struct {
	ProviderAddress string `json:"providerAddress"`
	Query           string `json:"query"`
	FallbackFee     string `json:"fallbackFee"`
	ChainRPCURL     string `json:"chainRpcUrl,omitempty"`
}

// brokerResponse tolerates both response shapes the broker has shipped:
// the current {response: {content}} and the legacy flat {result}.
type brokerResponse struct {
	Response *struct {
		Content string `json:"content"`
	} `json:"response,omitempty"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewBrokerProvider creates a new broker provider
func NewBrokerProvider(brokerURL, providerAddress, fallbackFee, chainRPCURL string, timeout time.Duration, limiter *worker.Limiter) *BrokerProvider {
	return &BrokerProvider{
		brokerURL:       strings.TrimSuffix(brokerURL, "/"),
		providerAddress: providerAddress,
		fallbackFee:     fallbackFee,
		chainRPCURL:     chainRPCURL,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         limiter,
	}
}

// Name returns the provider name
func (p *BrokerProvider) Name() string {
	return "broker"
}

// IsAvailable checks if the broker endpoint is reachable
func (p *BrokerProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.brokerURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < 500
}

// Generate sends a prompt to the broker and returns the model's text output
func (p *BrokerProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, p.brokerURL); err != nil {
			return "", &model.BrokerError{Err: err}
		}
	}

	body, err := json.Marshal(brokerRequest{
		ProviderAddress: p.providerAddress,
		Query:           prompt,
		FallbackFee:     p.fallbackFee,
		ChainRPCURL:     p.chainRPCURL,
	})
	if err != nil {
		return "", &model.BrokerError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.brokerURL, bytes.NewReader(body))
	if err != nil {
		return "", &model.BrokerError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &model.BrokerError{Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", &model.BrokerError{Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", &model.BrokerError{Err: fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, respBody)}
	}

	var resp brokerResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &model.BrokerError{Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if resp.Error != "" {
		return "", &model.BrokerError{Err: fmt.Errorf("api error: %s", resp.Error)}
	}

	if resp.Response != nil && resp.Response.Content != "" {
		return resp.Response.Content, nil
	}
	if resp.Result != "" {
		return resp.Result, nil
	}

	return "", &model.BrokerError{Err: fmt.Errorf("response has neither response.content nor result")}
}
