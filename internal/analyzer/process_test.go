package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lewin671/oneline-editor/internal/logging"
)

func newTestProcess(t *testing.T) *Process {
	t.Helper()
	cfg := Config{
		LanguageID:    "go",
		Command:       "gopls",
		RestartBudget: 3,
		RestartWindow: time.Minute,
	}.Defaults()
	return NewProcess(cfg, logging.New(logging.LevelError))
}

func TestNewProcessStartsStopped(t *testing.T) {
	p := newTestProcess(t)
	assert.Equal(t, StateStopped, p.State())
}

func TestStopOnAlreadyStoppedProcessIsNoop(t *testing.T) {
	p := newTestProcess(t)
	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, StateStopped, p.State())
}

func TestRestartAllowedLockedHonorsBudget(t *testing.T) {
	p := newTestProcess(t)

	for i := 0; i < p.cfg.RestartBudget; i++ {
		p.mu.Lock()
		allowed := p.restartAllowedLocked()
		p.mu.Unlock()
		assert.True(t, allowed, "restart %d should be within budget", i)
	}

	p.mu.Lock()
	allowed := p.restartAllowedLocked()
	p.mu.Unlock()
	assert.False(t, allowed, "restart beyond budget should be refused")
}

func TestRestartAllowedLockedPrunesOldAttempts(t *testing.T) {
	p := newTestProcess(t)
	p.cfg.RestartWindow = 10 * time.Millisecond
	p.cfg.RestartBudget = 1

	p.mu.Lock()
	first := p.restartAllowedLocked()
	p.mu.Unlock()
	require.True(t, first)

	time.Sleep(20 * time.Millisecond)

	p.mu.Lock()
	second := p.restartAllowedLocked()
	p.mu.Unlock()
	assert.True(t, second, "attempt outside the sliding window should free up budget")
}

func TestSetSinkRebinds(t *testing.T) {
	p := newTestProcess(t)
	calls := 0
	sink := sinkFunc(func(context.Context, string, interface{}) { calls++ })
	p.SetSink(sink)

	p.mu.Lock()
	bound := p.sink
	p.mu.Unlock()
	bound.Notify(context.Background(), "window/showMessage", nil)
	assert.Equal(t, 1, calls)
}

func TestEnsureFailsFastForMissingBinary(t *testing.T) {
	cfg := Config{
		LanguageID: "go",
		Command:    "definitely-not-a-real-binary-xyz",
	}.Defaults()
	p := NewProcess(cfg, logging.New(logging.LevelError))

	err := p.Ensure(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateStopped, p.State())
}

type sinkFunc func(context.Context, string, interface{})

func (f sinkFunc) Notify(ctx context.Context, method string, params interface{}) {
	f(ctx, method, params)
}
