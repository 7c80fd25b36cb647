package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verinews/relayer/internal/config"
	"github.com/verinews/relayer/internal/model"
	"github.com/verinews/relayer/internal/worker"
)

var (
	checkTimeout     time.Duration
	checkConcurrency int
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <uri> [uri...]",
	Short: "Run the fact-check pipeline for content URIs without touching the chain",
	Long: `Check runs the full enrichment pipeline (fetch, claim extraction,
claim scoring, bias scoring, aggregation) for one or more blob-store URIs
and prints each result as JSON. No transaction is submitted; this is the
operational dry-run surface.

Example:
  relayer check blob123
  relayer check blob123 blob456 --concurrency 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Minute, "overall timeout for all checks")
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", 2, "concurrent pipeline runs")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	batch := worker.NewBatchChecker(p, checkConcurrency)
	results := batch.Run(ctx, args)

	if ctx.Err() != nil && len(results) < len(args) {
		return fmt.Errorf("timed out after %v: %d of %d checks completed", checkTimeout, len(results), len(args))
	}

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.URI, res.Error)
			continue
		}
		out, err := json.MarshalIndent(struct {
			URI string `json:"uri"`
			*model.FactCheckResult
		}{res.URI, res.Result}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Println(string(out))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}
