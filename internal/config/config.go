package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full relayer configuration, constructed once at startup and
// passed by reference into every component. Nothing reads the environment
// after Load returns.
type Config struct {
	Chain  ChainConfig  `yaml:"chain"`
	Blob   BlobConfig   `yaml:"blob"`
	Search SearchConfig `yaml:"search"`
	Infer  InferConfig  `yaml:"infer"`
	Store  StoreConfig  `yaml:"store"`
	Relay  RelayConfig  `yaml:"relay"`
}

// ChainConfig configures the blockchain RPC connection and signer
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	ContractAddress string        `yaml:"contract_address"`
	PrivateKey      string        `yaml:"-"` // Never serialized
	PollInterval    time.Duration `yaml:"poll_interval"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`
}

// BlobConfig configures the blob-store read gateway
type BlobConfig struct {
	GatewayURL   string        `yaml:"gateway_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// SearchConfig configures the web-search results API
type SearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"-"`
	NumResults int    `yaml:"num_results"`
}

// InferConfig configures the inference backend. Provider selects between the
// platform broker ("broker") and a direct OpenAI-compatible endpoint
// ("openai").
type InferConfig struct {
	Provider        string        `yaml:"provider"`
	BrokerURL       string        `yaml:"broker_url"`
	ProviderAddress string        `yaml:"provider_address"` // On-chain provider passed through to the broker
	FallbackFee     string        `yaml:"fallback_fee"`
	APIKey          string        `yaml:"-"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	Burst           int           `yaml:"burst"`
}

// StoreConfig configures the durable request store
type StoreConfig struct {
	Path          string        `yaml:"path"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// RelayConfig configures the event loop itself
type RelayConfig struct {
	MaxInFlight int `yaml:"max_in_flight"`
}

// Default returns the built-in defaults. Required values (RPC URL, gateway,
// key, contract) have no defaults and must come from the environment.
func Default() *Config {
	return &Config{
		Chain: ChainConfig{
			PollInterval:   12 * time.Second,
			ConfirmTimeout: 2 * time.Minute,
		},
		Blob: BlobConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 2_000_000,
			CacheTTL:     10 * time.Minute,
		},
		Search: SearchConfig{
			Endpoint:   "https://serpapi.com/search",
			NumResults: 5,
		},
		Infer: InferConfig{
			Provider:      "broker",
			FallbackFee:   "0.01",
			Timeout:       60 * time.Second,
			RatePerSecond: 2,
			Burst:         5,
		},
		Store: StoreConfig{
			Path:          "relayer.db",
			MaxAttempts:   3,
			RetryInterval: time.Minute,
		},
		Relay: RelayConfig{
			MaxInFlight: 8,
		},
	}
}

// Environment variable names. These are the platform's deployment contract
// and are bound verbatim rather than through a viper prefix.
const (
	EnvRPCURL          = "ALCHEMY_URL"
	EnvGatewayURL      = "WALRUS_GATEWAY_URL"
	EnvPrivateKey      = "RELAYER_PRIVATE_KEY"
	EnvContract        = "FACTCHECK_CONTRACT"
	EnvBrokerURL       = "BROKER_URL"
	EnvProviderAddress = "DEEPSEEK_PROVIDER"
	EnvSerpAPIKey      = "SERPAPI_KEY"
	EnvNumResults      = "NUM_RESULTS"
	EnvInferProvider   = "INFER_PROVIDER"
	EnvOpenAIKey       = "OPENAI_API_KEY"
)

// Load builds the configuration from defaults, an optional .env file, and
// the process environment. It fails listing every missing required variable
// rather than the first one.
func Load() (*Config, error) {
	// Best effort: a missing .env file is not an error
	_ = godotenv.Load()

	v := viper.New()
	for _, name := range []string{
		EnvRPCURL, EnvGatewayURL, EnvPrivateKey, EnvContract,
		EnvBrokerURL, EnvProviderAddress, EnvSerpAPIKey, EnvNumResults,
		EnvInferProvider, EnvOpenAIKey,
	} {
		_ = v.BindEnv(name)
	}
	v.SetDefault(EnvNumResults, 5)

	cfg := Default()
	cfg.Chain.RPCURL = v.GetString(EnvRPCURL)
	cfg.Chain.PrivateKey = strings.TrimPrefix(v.GetString(EnvPrivateKey), "0x")
	cfg.Chain.ContractAddress = v.GetString(EnvContract)
	cfg.Blob.GatewayURL = strings.TrimSuffix(v.GetString(EnvGatewayURL), "/")
	cfg.Search.APIKey = v.GetString(EnvSerpAPIKey)
	cfg.Search.NumResults = v.GetInt(EnvNumResults)
	cfg.Infer.BrokerURL = v.GetString(EnvBrokerURL)
	cfg.Infer.ProviderAddress = v.GetString(EnvProviderAddress)
	cfg.Infer.APIKey = v.GetString(EnvOpenAIKey)
	if p := v.GetString(EnvInferProvider); p != "" {
		cfg.Infer.Provider = strings.ToLower(p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required variable is present
func (c *Config) Validate() error {
	var missing []string
	if c.Chain.RPCURL == "" {
		missing = append(missing, EnvRPCURL)
	}
	if c.Blob.GatewayURL == "" {
		missing = append(missing, EnvGatewayURL)
	}
	if c.Chain.PrivateKey == "" {
		missing = append(missing, EnvPrivateKey)
	}
	if c.Chain.ContractAddress == "" {
		missing = append(missing, EnvContract)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch c.Infer.Provider {
	case "broker":
		if c.Infer.BrokerURL == "" {
			return fmt.Errorf("missing required environment variable %s for broker provider", EnvBrokerURL)
		}
	case "openai":
		if c.Infer.APIKey == "" {
			return fmt.Errorf("missing required environment variable %s for openai provider", EnvOpenAIKey)
		}
	default:
		return fmt.Errorf("unknown inference provider: %s (supported: broker, openai)", c.Infer.Provider)
	}

	if c.Search.NumResults <= 0 {
		c.Search.NumResults = 5
	}
	return nil
}
