package workerpool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Config configures the worker pool.
type Config struct {
	MaxConcurrent int // Maximum concurrent tasks (default: 4)
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 4,
	}
}

// Pool runs tasks with bounded parallelism. A semaphore limits outstanding
// tasks and new tasks start as soon as a slot frees up.
type Pool struct {
	config Config
	logger *zap.Logger
}

// New creates a worker pool.
func New(config Config, logger *zap.Logger) *Pool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	return &Pool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// MaxConcurrent returns the configured parallelism.
func (p *Pool) MaxConcurrent() int {
	return p.config.MaxConcurrent
}

// WorkItem is a unit of work.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult is the outcome of one work item. Index is the submission position.
type WorkResult[T any] struct {
	ID     string
	Index  int
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism.
// Returns results in completion order (not submission order).
// Continues processing all items even if some fail. A panicking task is
// reported as an error on its own result. Items still waiting for a slot
// when ctx is cancelled report ctx.Err() without running.
func Process[T any](
	ctx context.Context,
	pool *Pool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], 0, len(items))
	resultsChan := make(chan WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(index int, item WorkItem[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				resultsChan <- WorkResult[T]{ID: item.ID, Index: index, Result: zero, Err: ctx.Err()}
				return
			}

			// A slot may free up after cancellation; do not start new work then.
			if err := ctx.Err(); err != nil {
				var zero T
				resultsChan <- WorkResult[T]{ID: item.ID, Index: index, Result: zero, Err: err}
				return
			}

			result, err := run(ctx, pool.logger, item)
			resultsChan <- WorkResult[T]{
				ID:     item.ID,
				Index:  index,
				Result: result,
				Err:    err,
			}
		}(i, item)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	completed := 0
	for result := range resultsChan {
		results = append(results, result)
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}

	return results
}

// ProcessOrdered is Process with results sorted back into submission order.
func ProcessOrdered[T any](
	ctx context.Context,
	pool *Pool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	results := Process(ctx, pool, items, onProgress)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

func run[T any](ctx context.Context, logger *zap.Logger, item WorkItem[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Work item panicked",
				zap.String("id", item.ID),
				zap.Any("panic", r))
			err = fmt.Errorf("work item %s panicked: %v", item.ID, r)
		}
	}()
	return item.Execute(ctx)
}
