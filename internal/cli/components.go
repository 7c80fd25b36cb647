package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/verinews/relayer/internal/blobstore"
	"github.com/verinews/relayer/internal/cache"
	"github.com/verinews/relayer/internal/config"
	"github.com/verinews/relayer/internal/extract"
	"github.com/verinews/relayer/internal/infer"
	"github.com/verinews/relayer/internal/pipeline"
	"github.com/verinews/relayer/internal/score"
	"github.com/verinews/relayer/internal/search"
	"github.com/verinews/relayer/internal/worker"
)

// buildPipeline assembles the enrichment pipeline from configuration. The
// run and check commands share this wiring; only the chain side differs.
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	limiter := worker.NewLimiter(cfg.Infer.RatePerSecond, cfg.Infer.Burst)

	articles := cache.NewMemoryCache(cfg.Blob.CacheTTL, cfg.Blob.CacheTTL)
	fetcher := blobstore.NewFetcher(
		cfg.Blob.GatewayURL, cfg.Blob.Timeout, cfg.Blob.MaxBodyBytes,
		articles, cfg.Blob.CacheTTL,
	)

	provider, err := infer.NewProvider(cfg, limiter)
	if err != nil {
		return nil, fmt.Errorf("build inference provider: %w", err)
	}

	searcher := search.NewClient(
		cfg.Search.Endpoint, cfg.Search.APIKey, cfg.Search.NumResults,
		cfg.Infer.Timeout, limiter,
	)

	extractor := extract.NewClaimExtractor(provider)
	scorer := score.NewScorer(searcher, provider, logger)

	return pipeline.New(fetcher, extractor, scorer, logger), nil
}
