package infer

import (
	"fmt"
	"strings"

	"github.com/verinews/relayer/internal/config"
	"github.com/verinews/relayer/internal/worker"
)

// NewProvider creates an inference provider from configuration
func NewProvider(cfg *config.Config, limiter *worker.Limiter) (Provider, error) {
	switch strings.ToLower(cfg.Infer.Provider) {
	case "broker":
		return NewBrokerProvider(
			cfg.Infer.BrokerURL,
			cfg.Infer.ProviderAddress,
			cfg.Infer.FallbackFee,
			cfg.Chain.RPCURL,
			cfg.Infer.Timeout,
			limiter,
		), nil

	case "openai":
		return NewOpenAIProvider(cfg.Infer.APIKey, "", cfg.Infer.Model, cfg.Infer.Timeout)

	default:
		return nil, fmt.Errorf("unknown inference provider: %s (supported: broker, openai)", cfg.Infer.Provider)
	}
}
