package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	schedulerservice "github.com/magabrotheeeer/subscription-notifier/internal/services/scheduler"
)

type runnerFunc func(ctx context.Context) (*models.TickReport, error)

func (f runnerFunc) RunOnce(ctx context.Context) (*models.TickReport, error) { return f(ctx) }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_InitialTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	app := &App{
		runner: runnerFunc(func(context.Context) (*models.TickReport, error) {
			calls.Add(1)
			cancel()
			return &models.TickReport{}, nil
		}),
		schedule: "@every 1h",
		logger:   newNoopLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_SkipInitialRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	app := &App{
		runner: runnerFunc(func(context.Context) (*models.TickReport, error) {
			calls.Add(1)
			return &models.TickReport{}, nil
		}),
		schedule:       "@every 1h",
		skipInitialRun: true,
		logger:         newNoopLogger(),
	}

	require.NoError(t, app.Run(ctx))
	assert.Equal(t, int32(0), calls.Load())
}

func TestRun_InvalidSchedule(t *testing.T) {
	app := &App{
		runner:         runnerFunc(func(context.Context) (*models.TickReport, error) { return nil, nil }),
		schedule:       "every now and then",
		skipInitialRun: true,
		logger:         newNoopLogger(),
	}

	err := app.Run(context.Background())
	assert.ErrorContains(t, err, "failed to schedule expiry scan")
}

func TestTick_SwallowsErrors(t *testing.T) {
	for _, err := range []error{schedulerservice.ErrTickInProgress, schedulerservice.ErrTickLocked, assert.AnError} {
		app := &App{
			runner: runnerFunc(func(context.Context) (*models.TickReport, error) { return nil, err }),
			logger: newNoopLogger(),
		}
		assert.NotPanics(t, func() { app.tick(context.Background()) })
	}
}

func TestTick_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	app := &App{
		runner: runnerFunc(func(context.Context) (*models.TickReport, error) {
			called = true
			return nil, nil
		}),
		logger: newNoopLogger(),
	}
	app.tick(ctx)
	assert.False(t, called)
}
