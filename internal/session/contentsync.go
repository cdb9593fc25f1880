package session

import (
	"strings"

	"github.com/Lewin671/oneline-editor/internal/lsptypes"
)

// applyContentChanges folds a sequence of TextDocumentContentChangeEvents
// onto current, producing the full new document text. An event with no
// Range is a full-document replace (the common case: the editor always
// speaks full sync to the proxy); an event with a Range is applied as
// an incremental splice, so a client that happens to send incremental
// deltas is still handled correctly before the proxy re-syncs the
// result to the analyzer as a single full-content change.
func applyContentChanges(current string, changes []lsptypes.TextDocumentContentChangeEvent) string {
	text := current
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		text = spliceRange(text, *change.Range, change.Text)
	}
	return text
}

// spliceRange replaces the text between Start and End (line/character,
// 0-based, character counted in UTF-16 code units per LSP — approximated
// here as runes, which is exact for the BMP text editors overwhelmingly
// produce) with replacement.
func spliceRange(text string, r lsptypes.Range, replacement string) string {
	lines := strings.Split(text, "\n")

	startOffset := offsetFor(lines, r.Start)
	endOffset := offsetFor(lines, r.End)
	if startOffset < 0 || endOffset < 0 || endOffset < startOffset {
		return text
	}

	runes := []rune(text)
	if startOffset > len(runes) {
		startOffset = len(runes)
	}
	if endOffset > len(runes) {
		endOffset = len(runes)
	}

	var b strings.Builder
	b.WriteString(string(runes[:startOffset]))
	b.WriteString(replacement)
	b.WriteString(string(runes[endOffset:]))
	return b.String()
}

// offsetFor converts a line/character position into a rune offset into
// the full text whose lines are already split out.
func offsetFor(lines []string, pos lsptypes.Position) int {
	if pos.Line < 0 || pos.Line >= len(lines) {
		if pos.Line == len(lines) {
			// position at the very end of the document
		} else {
			return -1
		}
	}
	offset := 0
	for i := 0; i < pos.Line && i < len(lines); i++ {
		offset += len([]rune(lines[i])) + 1 // +1 for the newline consumed
	}
	line := ""
	if pos.Line < len(lines) {
		line = lines[pos.Line]
	}
	chars := []rune(line)
	character := pos.Character
	if character > len(chars) {
		character = len(chars)
	}
	offset += character
	return offset
}
