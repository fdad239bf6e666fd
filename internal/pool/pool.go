// Package pool bounds the number of blocking storage calls running at once.
package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Do after Close was called
var ErrClosed = errors.New("pool is closed")

// Pool runs blocking calls with at most size of them in flight.
// Callers wait for a free slot, the wait is cancelled with the caller's context.
type Pool struct {
	sem     *semaphore.Weighted
	size    int64
	timeout time.Duration
	closed  atomic.Bool
}

// New returns Pool allowing size concurrent calls, each limited by timeout (zero means no limit)
func New(size int, timeout time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    int64(size),
		timeout: timeout,
	}
}

// Do runs fn once a slot is acquired.
// Only the wait for a slot observes ctx cancellation: fn receives a context
// detached from ctx so that a started write completes even if the caller goes away.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.closed.Load() {
		return zero, ErrClosed
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer p.sem.Release(1)

	callCtx := context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, p.timeout)
		defer cancel()
	}

	return fn(callCtx)
}

// Exec is Do for calls returning only an error
func Exec(ctx context.Context, p *Pool, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Close rejects new calls and waits until calls in flight return or ctx is done
func (p *Pool) Close(ctx context.Context) error {
	p.closed.Store(true)
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		return err
	}
	p.sem.Release(p.size)
	return nil
}
