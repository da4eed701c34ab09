package enginepool

import (
	"context"
	"testing"
	"time"

	"github.com/notnil/chess/uci"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	closed bool
}

func (f *fakeEngine) Run(cmds ...uci.Cmd) error        { return nil }
func (f *fakeEngine) SearchResults() uci.SearchResults { return uci.SearchResults{} }
func (f *fakeEngine) Close() error                     { f.closed = true; return nil }

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	pool := New(Options{
		Size:    size,
		Spawner: func(ctx context.Context) (Engine, error) { return &fakeEngine{}, nil },
	}, nil, nil)
	require.NoError(t, pool.Start(context.Background()))
	return pool
}

func TestSubmitRunsTaskAndResolvesFuture(t *testing.T) {
	pool := newTestPool(t, 1)
	defer pool.Shutdown()

	future, err := pool.Submit(func(ctx context.Context, eng Engine) (any, error) {
		return "done", nil
	})
	require.NoError(t, err)

	v, err := future.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestSubmitAfterShutdownReturnsErrShuttingDown(t *testing.T) {
	pool := newTestPool(t, 1)
	pool.Shutdown()

	_, err := pool.Submit(func(ctx context.Context, eng Engine) (any, error) {
		return nil, nil
	})
	require.ErrorIs(t, err, ErrShuttingDown)
}

func TestTaskExceedingTimeoutResolvesWithErrTaskTimeout(t *testing.T) {
	pool := New(Options{
		Size:        1,
		TaskTimeout: 10 * time.Millisecond,
		Spawner:     func(ctx context.Context) (Engine, error) { return &fakeEngine{}, nil },
	}, nil, nil)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Shutdown()

	future, err := pool.Submit(func(ctx context.Context, eng Engine) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)

	_, err = future.Wait(context.Background())
	require.ErrorIs(t, err, ErrTaskTimeout)
}

func TestQueuedTaskUnderCancelledContextResolvesWithErrCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := New(Options{
		Size:    1,
		Spawner: func(ctx context.Context) (Engine, error) { return &fakeEngine{}, nil },
	}, nil, nil)
	require.NoError(t, pool.Start(ctx))
	defer pool.Shutdown()

	cancel()

	future, err := pool.Submit(func(taskCtx context.Context, eng Engine) (any, error) {
		return "should not run", nil
	})
	require.NoError(t, err)

	v, err := future.Wait(context.Background())
	require.ErrorIs(t, err, ErrCancelled)
	require.Nil(t, v)
}
