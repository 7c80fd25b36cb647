package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verinews/relayer/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect relayer configuration",
	Long: `Configuration is environment-driven. Required variables:

  ALCHEMY_URL          blockchain RPC endpoint
  WALRUS_GATEWAY_URL   blob-store read gateway
  RELAYER_PRIVATE_KEY  signer key for fulfillment transactions
  FACTCHECK_CONTRACT   registry contract address

Optional: BROKER_URL, DEEPSEEK_PROVIDER, SERPAPI_KEY, NUM_RESULTS,
INFER_PROVIDER (broker|openai), OPENAI_API_KEY. A .env file in the working
directory is loaded automatically.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Key material and API keys are tagged out of the YAML view
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a template .env file",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = ".env"
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf(".env already exists; delete it first to recreate")
		}

		template := `# Relayer configuration
# Required
ALCHEMY_URL=
WALRUS_GATEWAY_URL=
RELAYER_PRIVATE_KEY=
FACTCHECK_CONTRACT=

# Inference (INFER_PROVIDER=broker needs BROKER_URL and DEEPSEEK_PROVIDER;
# INFER_PROVIDER=openai needs OPENAI_API_KEY)
INFER_PROVIDER=broker
BROKER_URL=
DEEPSEEK_PROVIDER=
OPENAI_API_KEY=

# Search
SERPAPI_KEY=
NUM_RESULTS=5
`
		if err := os.WriteFile(path, []byte(template), 0o600); err != nil {
			return fmt.Errorf("write .env: %w", err)
		}

		fmt.Printf("✓ Created %s — fill in the required values\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
