// Package workpool bounds fan-out work such as per-task evidence matching.
package workpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent operations using a weighted semaphore.
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a Pool that allows at most limit concurrent operations.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot.
// Returns ctx.Err() if the context is cancelled while waiting.
// A nil pool runs fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Map applies fn to every element of in on the pool and returns the results
// in input order. Each goroutine writes only its own slot. Elements whose
// slot could not be acquired before ctx ended keep the zero value.
func Map[T, R any](ctx context.Context, p *Pool, in []T, fn func(ctx context.Context, v T) R) []R {
	out := make([]R, len(in))
	done := make(chan struct{}, len(in))
	for i := range in {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = p.Run(ctx, func() error {
				out[i] = fn(ctx, in[i])
				return nil
			})
		}()
	}
	for range in {
		<-done
	}
	return out
}
