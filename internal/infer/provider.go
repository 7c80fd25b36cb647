// Package infer abstracts the inference backends the relayer can prompt:
// the platform's on-chain-metered broker, or a direct OpenAI-compatible
// endpoint.
package infer

import "context"

// Provider defines the interface for inference backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends a prompt and returns the model's text output
	Generate(ctx context.Context, prompt string) (string, error)

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool
}
