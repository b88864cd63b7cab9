package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the model call worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum concurrent model calls (default: 4)
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{MaxConcurrent: 4}
}

// WorkerPool bounds how many model calls run at once, so bulk work such as
// indexing a whole database does not trip provider rate limits.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultWorkerPoolConfig().MaxConcurrent
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("llm-worker-pool"),
	}
}

// WorkItem is a unit of work identified by ID.
type WorkItem[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// WorkResult is the outcome of one WorkItem.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process runs every item with bounded parallelism and returns results in
// submission order. A failed item does not stop the others; items that never
// started because ctx ended carry ctx.Err().
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()

			results[i] = runItem(ctx, sem, item)

			if results[i].Err != nil {
				pool.logger.Debug("work item failed", zap.String("id", item.ID), zap.Error(results[i].Err))
			}

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			if onProgress != nil {
				onProgress(done, len(items))
			}
		}()
	}

	wg.Wait()
	return results
}

func runItem[T any](ctx context.Context, sem chan struct{}, item WorkItem[T]) WorkResult[T] {
	if err := ctx.Err(); err != nil {
		return WorkResult[T]{ID: item.ID, Err: err}
	}
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
		result, err := item.Execute(ctx)
		return WorkResult[T]{ID: item.ID, Result: result, Err: err}
	case <-ctx.Done():
		return WorkResult[T]{ID: item.ID, Err: ctx.Err()}
	}
}
