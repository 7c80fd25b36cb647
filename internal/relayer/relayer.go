// Package relayer runs the event loop: admit on-chain fact-check requests,
// drive the pipeline, submit fulfillments, and retry failures with a
// bounded budget.
package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verinews/relayer/internal/model"
)

// Checker runs one fact-check pipeline pass
type Checker interface {
	Check(ctx context.Context, uri string) (*model.FactCheckResult, error)
}

// Fulfiller writes one fulfillment transaction and waits for confirmation
type Fulfiller interface {
	Fulfill(ctx context.Context, requestID *big.Int, verdict, explanation string) error
}

// RequestStore persists request records across process restarts
type RequestStore interface {
	Record(req model.FactCheckRequest) error
	Get(requestID string) (*model.RequestRecord, error)
	RecordAttempt(requestID, lastError string) error
	MarkFulfilled(requestID string) error
	MarkFailed(requestID, lastError string) error
	Pending(maxAttempts int) ([]model.RequestRecord, error)
	Exhausted(maxAttempts int) ([]model.RequestRecord, error)
}

// Options bound the relayer's retry and admission behavior
type Options struct {
	MaxAttempts   int
	RetryInterval time.Duration
	MaxInFlight   int
}

// Relayer coordinates request handling. Each request is handled in its own
// goroutine; a semaphore bounds how many run at once so event bursts do not
// fan out into unbounded outbound calls.
type Relayer struct {
	checker   Checker
	fulfiller Fulfiller
	store     RequestStore
	opts      Options
	logger    *zap.Logger

	sem chan struct{}
	wg  sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a new relayer
func New(checker Checker, fulfiller Fulfiller, store RequestStore, opts Options, logger *zap.Logger) *Relayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Minute
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 8
	}
	return &Relayer{
		checker:   checker,
		fulfiller: fulfiller,
		store:     store,
		opts:      opts,
		logger:    logger,
		sem:       make(chan struct{}, opts.MaxInFlight),
		inFlight:  make(map[string]struct{}),
	}
}

// OnRequest admits one decoded event. It returns immediately; the pipeline
// runs in a spawned handler. Safe to call concurrently.
func (r *Relayer) OnRequest(ctx context.Context, req model.FactCheckRequest) {
	id := req.RequestID.String()

	if err := r.store.Record(req); err != nil {
		r.logger.Error("failed to record request", zap.String("request_id", id), zap.Error(err))
		return
	}

	rec, err := r.store.Get(id)
	if err != nil {
		r.logger.Error("failed to read request record", zap.String("request_id", id), zap.Error(err))
		return
	}
	if rec.Status != model.StatusPending {
		r.logger.Debug("skipping request in terminal state",
			zap.String("request_id", id), zap.String("status", string(rec.Status)))
		return
	}

	if !r.claim(id) {
		return // A handler for this id is already running
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release(id)

		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			return
		}

		r.handle(ctx, req)
	}()
}

// handle runs the pipeline and fulfillment for one request
func (r *Relayer) handle(ctx context.Context, req model.FactCheckRequest) {
	id := req.RequestID.String()
	logger := r.logger.With(zap.String("request_id", id), zap.String("uri", req.ContentURI))

	result, err := r.checker.Check(ctx, req.ContentURI)
	if err != nil {
		logger.Warn("pipeline failed", zap.Error(err))
		r.recordAttempt(ctx, id, err, logger)
		return
	}

	explanation, err := json.Marshal(result)
	if err != nil {
		logger.Error("failed to marshal explanation", zap.Error(err))
		r.recordAttempt(ctx, id, err, logger)
		return
	}

	if err := r.fulfiller.Fulfill(ctx, req.RequestID, result.OverallScore, string(explanation)); err != nil {
		logger.Warn("fulfillment failed", zap.Error(err))
		r.recordAttempt(ctx, id, err, logger)
		return
	}

	if err := r.store.MarkFulfilled(id); err != nil {
		logger.Error("failed to mark fulfilled", zap.Error(err))
		return
	}

	logger.Info("request fulfilled", zap.String("verdict", result.OverallScore))
}

// recordAttempt charges the retry budget for a failed run. A failure caused
// by shutdown is not charged; the request stays pending at its current
// attempt count and is readmitted by the sweeper on the next start.
func (r *Relayer) recordAttempt(ctx context.Context, id string, cause error, logger *zap.Logger) {
	if ctx.Err() != nil {
		logger.Debug("attempt not counted, shutting down")
		return
	}
	if err := r.store.RecordAttempt(id, cause.Error()); err != nil {
		logger.Error("failed to record attempt", zap.Error(err))
	}
}

// Run drives the retry sweeper until ctx ends, then waits for in-flight
// handlers to drain. The first sweep runs immediately so requests left
// pending by a previous process are picked up without waiting an interval.
func (r *Relayer) Run(ctx context.Context) {
	r.sweep(ctx)

	ticker := time.NewTicker(r.opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep retries pending requests and dead-letters exhausted ones
func (r *Relayer) sweep(ctx context.Context) {
	exhausted, err := r.store.Exhausted(r.opts.MaxAttempts)
	if err != nil {
		r.logger.Error("failed to query exhausted requests", zap.Error(err))
	}
	for _, rec := range exhausted {
		reason := fmt.Sprintf("retry budget exhausted after %d attempts: %s", rec.Attempts, rec.LastError)
		if err := r.store.MarkFailed(rec.RequestID, reason); err != nil {
			r.logger.Error("failed to dead-letter request",
				zap.String("request_id", rec.RequestID), zap.Error(err))
			continue
		}
		// The requester's stake stays locked on-chain; the dead-letter log
		// is the operator's cue to intervene.
		r.logger.Error("request dead-lettered",
			zap.String("request_id", rec.RequestID),
			zap.String("requester", rec.Requester),
			zap.Int("attempts", rec.Attempts),
			zap.String("last_error", rec.LastError))
	}

	pending, err := r.store.Pending(r.opts.MaxAttempts)
	if err != nil {
		r.logger.Error("failed to query pending requests", zap.Error(err))
		return
	}
	// Attempts=0 rows are usually in flight from the event path, in which
	// case claim() below skips them; after a restart nothing holds the
	// claim and they are admitted here.
	for _, rec := range pending {
		requestID, ok := new(big.Int).SetString(rec.RequestID, 10)
		if !ok {
			r.logger.Error("corrupt request id in store", zap.String("request_id", rec.RequestID))
			continue
		}
		req := model.FactCheckRequest{
			RequestID:  requestID,
			Requester:  rec.Requester,
			ContentURI: rec.ContentURI,
		}

		if !r.claim(rec.RequestID) {
			continue
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.release(req.RequestID.String())

			select {
			case r.sem <- struct{}{}:
				defer func() { <-r.sem }()
			case <-ctx.Done():
				return
			}

			r.logger.Info("requeueing request",
				zap.String("request_id", req.RequestID.String()),
				zap.Int("attempts", rec.Attempts))
			r.handle(ctx, req)
		}()
	}
}

func (r *Relayer) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[id]; busy {
		return false
	}
	r.inFlight[id] = struct{}{}
	return true
}

func (r *Relayer) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, id)
}
