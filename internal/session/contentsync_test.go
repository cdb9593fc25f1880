package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lewin671/oneline-editor/internal/lsptypes"
)

func TestApplyContentChangesFullReplace(t *testing.T) {
	changes := []lsptypes.TextDocumentContentChangeEvent{{Text: "new full text"}}
	got := applyContentChanges("old text", changes)
	assert.Equal(t, "new full text", got)
}

func TestApplyContentChangesIncrementalInsert(t *testing.T) {
	current := "hello world"
	changes := []lsptypes.TextDocumentContentChangeEvent{{
		Range: &lsptypes.Range{
			Start: lsptypes.Position{Line: 0, Character: 5},
			End:   lsptypes.Position{Line: 0, Character: 5},
		},
		Text: ",",
	}}
	got := applyContentChanges(current, changes)
	assert.Equal(t, "hello, world", got)
}

func TestApplyContentChangesIncrementalReplaceAcrossLines(t *testing.T) {
	current := "line one\nline two\nline three"
	changes := []lsptypes.TextDocumentContentChangeEvent{{
		Range: &lsptypes.Range{
			Start: lsptypes.Position{Line: 1, Character: 5},
			End:   lsptypes.Position{Line: 2, Character: 4},
		},
		Text: "TWO",
	}}
	got := applyContentChanges(current, changes)
	assert.Equal(t, "line one\nline TWO three", got)
}

func TestApplyContentChangesSequentialEvents(t *testing.T) {
	current := "abc"
	changes := []lsptypes.TextDocumentContentChangeEvent{
		{Range: &lsptypes.Range{Start: lsptypes.Position{Line: 0, Character: 3}, End: lsptypes.Position{Line: 0, Character: 3}}, Text: "d"},
		{Range: &lsptypes.Range{Start: lsptypes.Position{Line: 0, Character: 0}, End: lsptypes.Position{Line: 0, Character: 0}}, Text: "0"},
	}
	got := applyContentChanges(current, changes)
	assert.Equal(t, "0abcd", got)
}
