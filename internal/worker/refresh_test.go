package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/config"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func newWorker(r Refresher, interval time.Duration) *RefreshWorker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRefreshWorker(r, &config.RefreshConfig{Interval: interval, Enabled: true}, logger)
}

func TestRefreshWorkerRunsAtStartAndOnTick(t *testing.T) {
	r := &countingRefresher{}
	w := newWorker(r, 10*time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")
	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	n := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, r.calls.Load(), "no refresh after stop")
	assert.Equal(t, int(n), w.Runs())
	require.NoError(t, w.Stop())
}

func TestRefreshWorkerSurvivesErrors(t *testing.T) {
	r := &countingRefresher{err: errors.New("store down")}
	w := newWorker(r, 5*time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool { return w.Runs() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())
}

func TestRefreshWorkerStopsWithContext(t *testing.T) {
	r := &countingRefresher{}
	w := newWorker(r, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	require.Eventually(t, func() bool { return w.Runs() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-w.doneCh:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit on context cancel")
	}
}
