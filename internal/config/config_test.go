package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvRPCURL, "https://eth-sepolia.example/v2/key")
	t.Setenv(EnvGatewayURL, "https://gateway.example")
	t.Setenv(EnvPrivateKey, "0xabc123")
	t.Setenv(EnvContract, "0x1111111111111111111111111111111111111111")
	t.Setenv(EnvBrokerURL, "http://localhost:4000")
}

func TestLoad(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Chain.RPCURL != "https://eth-sepolia.example/v2/key" {
		t.Errorf("RPCURL = %q", cfg.Chain.RPCURL)
	}
	if cfg.Chain.PrivateKey != "abc123" {
		t.Errorf("PrivateKey = %q, want 0x prefix stripped", cfg.Chain.PrivateKey)
	}
	if cfg.Infer.Provider != "broker" {
		t.Errorf("Provider = %q, want broker default", cfg.Infer.Provider)
	}
	if cfg.Search.NumResults != 5 {
		t.Errorf("NumResults = %d, want default 5", cfg.Search.NumResults)
	}
}

func TestLoad_TrailingGatewaySlashTrimmed(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvGatewayURL, "https://gateway.example/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Blob.GatewayURL != "https://gateway.example" {
		t.Errorf("GatewayURL = %q", cfg.Blob.GatewayURL)
	}
}

func TestLoad_ListsAllMissingVariables(t *testing.T) {
	// Deliberately unset: the error should name every missing variable,
	// not stop at the first.
	for _, name := range []string{EnvRPCURL, EnvGatewayURL, EnvPrivateKey, EnvContract} {
		t.Setenv(name, "")
	}

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with no environment")
	}
	for _, name := range []string{EnvRPCURL, EnvGatewayURL, EnvPrivateKey, EnvContract} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}
}

func TestLoad_NumResultsOverride(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvNumResults, "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search.NumResults != 10 {
		t.Errorf("NumResults = %d, want 10", cfg.Search.NumResults)
	}
}

func TestLoad_OpenAIProviderRequiresKey(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvInferProvider, "openai")
	t.Setenv(EnvOpenAIKey, "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without an OpenAI key")
	}

	t.Setenv(EnvOpenAIKey, "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Infer.Provider != "openai" {
		t.Errorf("Provider = %q", cfg.Infer.Provider)
	}
}

func TestLoad_UnknownProviderRejected(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvInferProvider, "llama-at-home")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "unknown inference provider") {
		t.Fatalf("Load() error = %v, want unknown provider", err)
	}
}

func TestValidate_BrokerProviderRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.Chain.RPCURL = "x"
	cfg.Blob.GatewayURL = "x"
	cfg.Chain.PrivateKey = "x"
	cfg.Chain.ContractAddress = "x"
	cfg.Infer.BrokerURL = ""

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), EnvBrokerURL) {
		t.Fatalf("Validate() error = %v, want missing %s", err, EnvBrokerURL)
	}
}
