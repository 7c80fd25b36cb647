package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verinews/relayer/internal/chain"
	"github.com/verinews/relayer/internal/config"
	"github.com/verinews/relayer/internal/model"
	"github.com/verinews/relayer/internal/relayer"
	"github.com/verinews/relayer/internal/store"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the relayer daemon",
	Long: `Run subscribes to FactCheckRequested events and fulfills each one:
fetch the article from the blob-store gateway, extract its key factual
claim, score it against web-search corroboration, score the article's bias,
and submit the aggregated verdict on-chain.

Failed requests are retried with a bounded budget from a durable store;
requests that exhaust the budget are dead-lettered and logged.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	client, err := chain.Dial(ctx, cfg.Chain, logger)
	if err != nil {
		return fmt.Errorf("connect to chain: %w", err)
	}
	defer client.Close()

	requests, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open request store: %w", err)
	}
	defer func() { _ = requests.Close() }()

	r := relayer.New(
		p,
		client.NewSubmitter(cfg.Chain.ConfirmTimeout),
		requests,
		relayer.Options{
			MaxAttempts:   cfg.Store.MaxAttempts,
			RetryInterval: cfg.Store.RetryInterval,
			MaxInFlight:   cfg.Relay.MaxInFlight,
		},
		logger,
	)

	go r.Run(ctx)

	logger.Info("relayer started",
		zap.String("gateway", cfg.Blob.GatewayURL),
		zap.String("infer_provider", cfg.Infer.Provider),
		zap.String("store", cfg.Store.Path))

	err = client.Listen(ctx, cfg.Chain.PollInterval, func(req model.FactCheckRequest) {
		r.OnRequest(ctx, req)
	})
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}
