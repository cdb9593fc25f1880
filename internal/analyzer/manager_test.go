package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/rpcerr"
)

func TestManagerGetOrCreateUnsupportedLanguage(t *testing.T) {
	m := NewManager(Registry{}, logging.New(logging.LevelError))
	_, err := m.GetOrCreate(context.Background(), "cobol", NopSink{})
	require.Error(t, err)
	assert.True(t, rpcerr.Is(err, rpcerr.KindAnalyzerUnavailable))
}

func TestManagerGetOrCreatePropagatesSpawnFailure(t *testing.T) {
	reg := Registry{
		"go": Config{LanguageID: "go", Command: "definitely-not-a-real-binary-xyz"}.Defaults(),
	}
	m := NewManager(reg, logging.New(logging.LevelError))

	_, err := m.GetOrCreate(context.Background(), "go", NopSink{})
	require.Error(t, err)
	assert.True(t, rpcerr.Is(err, rpcerr.KindAnalyzerUnavailable))

	p, ok := m.Lookup("go")
	require.True(t, ok)
	assert.Equal(t, StateStopped, p.State())
}

func TestManagerStopAllIsSafeWithNoAnalyzers(t *testing.T) {
	m := NewManager(Registry{}, logging.New(logging.LevelError))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.StopAll(ctx)
}
