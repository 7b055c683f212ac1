package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"claimlens/internal/analytics"
	"claimlens/internal/core"
	"claimlens/internal/log"
)

// DefaultQueryTimeout bounds a query when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

// QueryService is the entry point the transports share: it applies the
// request deadline, logs each query, and hands the selection to the engine.
type QueryService struct {
	engine  *analytics.Engine
	logger  *log.Logger
	timeout time.Duration

	answered int64
	empty    int64
	rejected int64
	failed   int64
}

// QueryMetrics counts queries by outcome. Empty is the subset of Answered
// whose four views were all empty.
type QueryMetrics struct {
	Answered int64
	Empty    int64
	Rejected int64
	Failed   int64
}

// Metrics returns the query counters.
func (s *QueryService) Metrics() QueryMetrics {
	return QueryMetrics{
		Answered: atomic.LoadInt64(&s.answered),
		Empty:    atomic.LoadInt64(&s.empty),
		Rejected: atomic.LoadInt64(&s.rejected),
		Failed:   atomic.LoadInt64(&s.failed),
	}
}

// NewQueryService wraps engine. A zero timeout uses DefaultQueryTimeout.
func NewQueryService(engine *analytics.Engine, logger *log.Logger, timeout time.Duration) *QueryService {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &QueryService{
		engine:  engine,
		logger:  logger.WithComponent(log.ComponentQuery),
		timeout: timeout,
	}
}

// Timeout returns the per-query budget.
func (s *QueryService) Timeout() time.Duration { return s.timeout }

// Selection returns the range marks and payer options.
func (s *QueryService) Selection() analytics.Selection {
	return s.engine.Selection()
}

// RangeLabel renders the caption for a range.
func (s *QueryService) RangeLabel(lo, hi int) (string, error) {
	return s.engine.RangeLabel(lo, hi)
}

// Query answers sel. Selection errors come back unchanged so transports can
// map them with core.IsSelectionError.
func (s *QueryService) Query(ctx context.Context, sel core.FilterSelection) (analytics.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		atomic.AddInt64(&s.failed, 1)
		return analytics.Result{}, err
	}

	start := time.Now()
	res, err := s.engine.Query(sel)
	elapsed := time.Since(start)

	fields := log.NewFields().
		WithOperation(log.OpQuery).
		WithSelection(sel.MinOrdinal, sel.MaxOrdinal, sel.Payers)
	fields[log.FieldDuration] = elapsed.Milliseconds()

	if err != nil {
		var selErr *core.SelectionError
		if errors.As(err, &selErr) {
			atomic.AddInt64(&s.rejected, 1)
			s.logger.WarnContext(ctx, "Query rejected", fields.WithError(err).ToSlice()...)
		} else {
			atomic.AddInt64(&s.failed, 1)
			s.logger.ErrorContext(ctx, "Query failed", fields.WithError(err).ToSlice()...)
		}
		return analytics.Result{}, err
	}

	// Report a deadline that passed while the engine ran.
	if err := ctx.Err(); err != nil {
		atomic.AddInt64(&s.failed, 1)
		return analytics.Result{}, err
	}

	atomic.AddInt64(&s.answered, 1)
	if res.Empty() {
		atomic.AddInt64(&s.empty, 1)
	}
	fields[log.FieldEmpty] = res.Empty()
	s.logger.DebugContext(ctx, "Query answered", fields.ToSlice()...)
	return res, nil
}
