package score

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verinews/relayer/internal/infer"
	"github.com/verinews/relayer/internal/model"
)

// Searcher returns an approximate web result count for a query
type Searcher interface {
	TotalResults(ctx context.Context, query string) (int64, error)
}

// Scorer rates claim truthfulness and article bias through the inference
// provider, using web result counts as a corroboration signal.
type Scorer struct {
	searcher Searcher
	provider infer.Provider
	logger   *zap.Logger
}

// NewScorer creates a new scorer
func NewScorer(searcher Searcher, provider infer.Provider, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		searcher: searcher,
		provider: provider,
		logger:   logger,
	}
}

func claimPrompt(claim string, totalResults int64) string {
	return fmt.Sprintf(`You are a fact-checking assistant. Assess the truthfulness of the following claim.

Claim: %q

A web search for this claim returned approximately %d results. Treat a large result count as weak corroboration and a very small count as weak evidence against, but weigh the claim's plausibility on its own merits first.

Respond with ONLY a JSON object of the form {'Fact_score': <number>%%} where <number> is the truthfulness percentage from 0 to 100. No other text.`, claim, totalResults)
}

func biasPrompt(article string) string {
	return fmt.Sprintf(`You are a media-bias assessor. Rate the following article text from 0%% (fully objective) to 100%% (fully biased).

Article:
%s

Respond with ONLY a JSON object of the form {'bias_score': <number>%%}. No other text.`, article)
}

// ScoreClaim rates one claim, returning a canonical percentage like "87%"
func (s *Scorer) ScoreClaim(ctx context.Context, claim model.Claim) (model.ScoredClaim, error) {
	totalResults, err := s.searcher.TotalResults(ctx, claim.Text)
	if err != nil {
		return model.ScoredClaim{}, err
	}

	s.logger.Debug("search results fetched",
		zap.String("claim", claim.Text),
		zap.Int64("total_results", totalResults))

	output, err := s.provider.Generate(ctx, claimPrompt(claim.Text, totalResults))
	if err != nil {
		return model.ScoredClaim{}, err
	}

	scoreStr, err := PercentField("fact_score", output, "Fact_score")
	if err != nil {
		return model.ScoredClaim{}, err
	}

	return model.ScoredClaim{Claim: claim.Text, Score: scoreStr}, nil
}

// ScoreBias rates the full article text for objectivity-to-bias
func (s *Scorer) ScoreBias(ctx context.Context, article string) (string, error) {
	output, err := s.provider.Generate(ctx, biasPrompt(article))
	if err != nil {
		return "", err
	}
	return PercentField("bias_score", output, "bias_score")
}

// Aggregate computes the unweighted mean of per-claim scores, formatted as
// "X.XX%". An empty claim list yields "0.00%". Score strings that fail to
// parse are an error: partial aggregates would misreport the verdict.
func Aggregate(claims []model.ScoredClaim) (string, error) {
	if len(claims) == 0 {
		return "0.00%", nil
	}

	var sum float64
	for _, c := range claims {
		v, err := ParsePercent(c.Score)
		if err != nil {
			return "", &model.ParseError{Stage: "aggregate", Raw: c.Score, Err: fmt.Errorf("unparseable score %q: %w", c.Score, err)}
		}
		sum += v
	}

	return fmt.Sprintf("%.2f%%", sum/float64(len(claims))), nil
}
