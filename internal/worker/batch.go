package worker

import (
	"context"

	"github.com/verinews/relayer/internal/model"
)

// Checker defines the interface for running one fact-check pipeline pass
type Checker interface {
	Check(ctx context.Context, uri string) (*model.FactCheckResult, error)
}

// CheckJob runs the pipeline for one content URI
type CheckJob struct {
	URI     string
	Checker Checker
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	result, err := j.Checker.Check(ctx, j.URI)
	return &CheckResult{
		URI:    j.URI,
		Result: result,
		Error:  err,
	}
}

// CheckResult represents the result of a check job
type CheckResult struct {
	URI    string
	Result *model.FactCheckResult
	Error  error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchChecker runs the pipeline over multiple URIs concurrently
type BatchChecker struct {
	checker     Checker
	concurrency int
}

// NewBatchChecker creates a new batch checker
func NewBatchChecker(checker Checker, concurrency int) *BatchChecker {
	return &BatchChecker{
		checker:     checker,
		concurrency: concurrency,
	}
}

// Run checks the given URIs concurrently. It returns one result per
// completed URI; URIs still queued when ctx ends produce no result.
func (b *BatchChecker) Run(ctx context.Context, uris []string) []*CheckResult {
	if len(uris) == 0 {
		return []*CheckResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, uri := range uris {
		pool.Submit(&CheckJob{URI: uri, Checker: b.checker})
	}

	results := pool.Wait()

	checkResults := make([]*CheckResult, len(results))
	for i, result := range results {
		checkResults[i] = result.(*CheckResult)
	}

	return checkResults
}
