package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoBoundsConcurrency(t *testing.T) {
	t.Parallel()

	p := New(2, time.Second)

	var (
		inFlight, peak int32
		wg             sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return 0, nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestDoReturnsResult(t *testing.T) {
	t.Parallel()

	p := New(1, 0)
	v, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", v)

	boom := errors.New("boom")
	err = Exec(context.Background(), p, func(ctx context.Context) error { return boom })
	require.Equal(t, boom, err)
}

func TestDoWaitCancelled(t *testing.T) {
	t.Parallel()

	p := New(1, 0)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = Exec(context.Background(), p, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := Exec(ctx, p, func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestDoDetachedFromCallerCancellation(t *testing.T) {
	t.Parallel()

	p := New(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	err := Exec(ctx, p, func(callCtx context.Context) error {
		cancel()
		require.NoError(t, callCtx.Err())
		_, ok := callCtx.Deadline()
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestClose(t *testing.T) {
	t.Parallel()

	p := New(3, 0)
	require.NoError(t, p.Close(context.Background()))

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) { return 1, nil })
	require.Equal(t, ErrClosed, err)
}
