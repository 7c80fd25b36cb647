// Package cli wires the relayer's cobra commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "relayer",
	Short: "Off-chain fact-check relayer for the decentralized journalism platform",
	Long: `The relayer watches the fact-check registry contract for
FactCheckRequested events, runs an AI-assisted enrichment pipeline over the
referenced article (claim extraction, claim scoring against web search
counts, bias scoring), and submits the aggregated verdict back on-chain.

Configuration is environment-driven; see 'relayer config show' for the
effective settings and 'relayer config init' for a template .env file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("relayer v0.2.1")
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger. Verbose runs get the human-oriented
// development encoder; daemons get production JSON.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
