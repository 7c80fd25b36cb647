// Package extract turns raw article text into factual claims via a prompted
// model call.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verinews/relayer/internal/infer"
	"github.com/verinews/relayer/internal/model"
	"github.com/verinews/relayer/internal/score"
)

// MaxClaims caps how many extracted claims are retained per article.
// TODO: revisit once fulfillment cost per claim is measured on mainnet;
// the pipeline and aggregation are written over the full array.
const MaxClaims = 1

// ClaimExtractor extracts factual claims from article text
type ClaimExtractor struct {
	provider infer.Provider
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(provider infer.Provider) *ClaimExtractor {
	return &ClaimExtractor{provider: provider}
}

func extractionPrompt(article string) string {
	return fmt.Sprintf(`You are a claim-extraction assistant. Read the article below and identify its most significant verifiable factual claim. Discard opinions, speculation, and content irrelevant to the article's subject.

Article:
%s

Respond with ONLY a JSON object of the form {"claims": ["<claim text>"]} containing at most one claim. If the article contains no verifiable factual claim, respond with {"claims": []}. No other text.`, article)
}

// claimsEnvelope is the shape required of the model's reply
type claimsEnvelope struct {
	Claims json.RawMessage `json:"claims"`
}

// Extract prompts the model and parses its reply into claims. Any failure
// to locate or parse the claims array is fatal for the request; there is no
// partial-claim fallback.
func (e *ClaimExtractor) Extract(ctx context.Context, article string) ([]model.Claim, error) {
	output, err := e.provider.Generate(ctx, extractionPrompt(article))
	if err != nil {
		return nil, err
	}

	return ParseClaims(output)
}

// ParseClaims locates the first JSON object in model output and requires a
// "claims" field holding an array of strings.
func ParseClaims(output string) ([]model.Claim, error) {
	obj, ok := score.FirstJSONObject(output)
	if !ok {
		return nil, &model.ParseError{Stage: "claims", Raw: output, Err: fmt.Errorf("no JSON object found")}
	}

	var envelope claimsEnvelope
	if err := json.Unmarshal([]byte(obj), &envelope); err != nil {
		return nil, &model.ParseError{Stage: "claims", Raw: output, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if envelope.Claims == nil {
		return nil, &model.ParseError{Stage: "claims", Raw: output, Err: fmt.Errorf("missing claims field")}
	}

	var texts []string
	if err := json.Unmarshal(envelope.Claims, &texts); err != nil {
		return nil, &model.ParseError{Stage: "claims", Raw: output, Err: fmt.Errorf("claims is not an array of strings: %w", err)}
	}

	var claims []model.Claim
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		claims = append(claims, model.Claim{Text: text})
		if len(claims) >= MaxClaims {
			break
		}
	}

	return claims, nil
}
