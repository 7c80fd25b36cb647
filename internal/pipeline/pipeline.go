// Package pipeline runs the five-stage fact-check enrichment: article fetch,
// claim extraction, claim scoring, bias scoring, aggregation.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/verinews/relayer/internal/model"
	"github.com/verinews/relayer/internal/score"
)

// ArticleFetcher retrieves article text by content URI
type ArticleFetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// ClaimScorer rates claims and article bias
type ClaimScorer interface {
	ScoreClaim(ctx context.Context, claim model.Claim) (model.ScoredClaim, error)
	ScoreBias(ctx context.Context, article string) (string, error)
}

// Extractor extracts claims from article text
type Extractor interface {
	Extract(ctx context.Context, article string) ([]model.Claim, error)
}

// Pipeline executes the stages strictly in sequence for one request. Any
// stage error aborts the run; later stages are never reached.
type Pipeline struct {
	fetcher   ArticleFetcher
	extractor Extractor
	scorer    ClaimScorer
	logger    *zap.Logger
}

// New creates a new pipeline
func New(fetcher ArticleFetcher, extractor Extractor, scorer ClaimScorer, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		scorer:    scorer,
		logger:    logger,
	}
}

// Check runs the full pipeline for one content URI
func (p *Pipeline) Check(ctx context.Context, uri string) (*model.FactCheckResult, error) {
	// 1. Fetch article text
	article, err := p.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("article fetched", zap.String("uri", uri), zap.Int("bytes", len(article)))

	// 2. Extract claims
	claims, err := p.extractor.Extract(ctx, article)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("claims extracted", zap.String("uri", uri), zap.Int("count", len(claims)))

	// 3. Score each claim
	scored := make([]model.ScoredClaim, 0, len(claims))
	for _, claim := range claims {
		sc, err := p.scorer.ScoreClaim(ctx, claim)
		if err != nil {
			return nil, err
		}
		scored = append(scored, sc)
	}

	// 4. Score bias on the full article
	biasScore, err := p.scorer.ScoreBias(ctx, article)
	if err != nil {
		return nil, err
	}

	// 5. Aggregate
	overall, err := score.Aggregate(scored)
	if err != nil {
		return nil, err
	}

	return &model.FactCheckResult{
		Claims:       scored,
		OverallScore: overall,
		BiasScore:    biasScore,
	}, nil
}
