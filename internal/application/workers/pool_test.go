package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPool(t *testing.T, size, queue int) *Pool {
	t.Helper()
	p := NewPool(size, queue, zap.NewNop())
	require.NoError(t, p.Start())
	return p
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	p := newTestPool(t, 3, 10)
	defer p.Shutdown(context.Background())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(20), ran.Load())
}

func TestPool_ReportsBusyWorkers(t *testing.T) {
	p := newTestPool(t, 2, 0)
	defer p.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	snap := p.Snapshot()
	assert.Equal(t, 2, snap.Workers)
	assert.Equal(t, 1, snap.Busy)
	assert.False(t, snap.Saturated())

	close(release)
	require.Eventually(t, func() bool {
		return p.Snapshot().Idle == 2
	}, time.Second, 5*time.Millisecond)
}

func TestPool_SnapshotReportsSaturation(t *testing.T) {
	p := newTestPool(t, 1, 2)
	defer p.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {}))

	snap := p.Snapshot()
	assert.Equal(t, 1, snap.Queued)
	assert.Equal(t, 2, snap.QueueCapacity)
	assert.True(t, snap.Saturated())

	close(release)
	require.Eventually(t, func() bool {
		return p.Snapshot().Queued == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPool_SurvivesPanickingJob(t *testing.T) {
	p := newTestPool(t, 1, 1)
	defer p.Shutdown(context.Background())

	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		panic("boom")
	}))

	done := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not recover from panic")
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := newTestPool(t, 1, 1)
	require.NoError(t, p.Shutdown(context.Background()))

	err := p.Submit(context.Background(), func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolStopped)

	snap := p.Snapshot()
	assert.Equal(t, 1, snap.Stopped)
	assert.Equal(t, 0, snap.Idle)
}

func TestPool_ShutdownCancelsRunningJobs(t *testing.T) {
	p := newTestPool(t, 1, 0)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	select {
	case <-cancelled:
	default:
		t.Fatal("running job was not cancelled")
	}
}

func TestPool_SubmitHonoursCallerContext(t *testing.T) {
	p := newTestPool(t, 1, 0)
	defer p.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func(ctx context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
