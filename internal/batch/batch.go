// Package batch runs independent per-file work on a bounded worker pool.
//
// A failure of one item never stops the others: each item's error is
// recorded in its Result. Only cancellation of the context ends a run
// early, and it is checked between items, never inside one.
package batch

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Processor schedules items across workers.
type Processor struct {
	workers int   // 0 = auto, <0 = serial, >0 = fixed count
	budget  int64 // total weight in flight (0 = unlimited)
	logger  *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithWorkers sets the number of concurrent workers.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithBudget bounds the total weight of items being processed at once,
// such as the bytes of the files being decoded. Items heavier than the
// budget run alone. Values <= 0 disable the bound.
func WithBudget(n int64) Option {
	return func(p *Processor) {
		p.budget = n
	}
}

// WithLogger sets the logger for per-item failures.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// New creates a Processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Workers returns the effective number of workers.
func (p *Processor) Workers() int {
	switch {
	case p.workers < 0:
		return 1
	case p.workers == 0:
		return max(runtime.GOMAXPROCS(0), 1)
	default:
		return p.workers
	}
}

// Result is the outcome of one item.
type Result[R any] struct {
	Value R
	Err   error
}

// Map calls fn for every item and returns the results in item order.
//
// weight reports an item's cost against the budget; it may be nil when
// no budget is set. Items not started before ctx was cancelled get
// ctx.Err() as their error, and Map returns ctx.Err().
func Map[T, R any](ctx context.Context, p *Processor, items []T, weight func(T) int64,
	fn func(context.Context, T) (R, error),
) ([]Result[R], error) {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results, nil
	}

	var budget *semaphore.Weighted
	if p.budget > 0 && weight != nil {
		budget = semaphore.NewWeighted(p.budget)
	}

	var eg errgroup.Group
	eg.SetLimit(p.Workers())

	next := 0
	for ; next < len(items); next++ {
		if ctx.Err() != nil {
			break
		}
		item := items[next]
		cost := int64(0)
		if budget != nil {
			cost = min(max(weight(item), 1), p.budget)
			if err := budget.Acquire(ctx, cost); err != nil {
				break
			}
		}

		i := next
		eg.Go(func() error {
			if budget != nil {
				defer budget.Release(cost)
			}
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := fn(ctx, item)
			if err != nil {
				p.log().Debug("batch item failed", "index", i, "error", err)
			}
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = eg.Wait() //nolint:errcheck // workers record errors per item

	if err := ctx.Err(); err != nil {
		for i := next; i < len(items); i++ {
			results[i].Err = err
		}
		return results, err
	}
	return results, nil
}
