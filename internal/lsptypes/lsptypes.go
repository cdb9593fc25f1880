// Package lsptypes holds the slice of LSP 3.17 JSON shapes the proxy
// needs to branch on. The core only ever inspects a handful of fields
// (a document's uri, version, text, languageId) before forwarding the
// rest of a message verbatim, so these types are intentionally
// shallow: unknown fields round-trip through json.RawMessage instead
// of being dropped.
package lsptypes

import "encoding/json"

// DocumentURI plays the same role as go-langserver/pkg/lsp.DocumentURI
// but is declared locally: that package's struct vintage predates
// LSP 3.17 fields this proxy needs (ServerInfo, incremental
// TextDocumentContentChangeEvent, documentFormattingProvider), so the
// shapes below are redrawn rather than embedding the older ones. Kept
// as a distinct string type so workspace and session code can't
// accidentally mix it up with an on-disk path.
type DocumentURI string

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

type VersionedTextDocumentIdentifier struct {
	URI     DocumentURI `json:"uri"`
	Version int         `json:"version"`
}

type TextDocumentItem struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int         `json:"version"`
	Text       string      `json:"text"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// TextDocumentContentChangeEvent supports both full-document sync
// (Range/RangeLength absent) and incremental sync; the session only
// ever forwards the full-content form to analyzers, but incoming
// client edits may be either.
type TextDocumentContentChangeEvent struct {
	Range       *Range `json:"range,omitempty"`
	RangeLength *int   `json:"rangeLength,omitempty"`
	Text        string `json:"text"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type DidSaveTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Text         *string                `json:"text,omitempty"`
}

type DocumentFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// ServerInfo is the name/version pair advertised in InitializeResult
// (LSP 3.15+; not present in go-langserver/pkg/lsp's older fork, so
// it is defined locally rather than embedded from it).
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
	ResolveProvider   bool     `json:"resolveProvider"`
}

type ServerCapabilities struct {
	TextDocumentSync           int               `json:"textDocumentSync"`
	CompletionProvider         CompletionOptions `json:"completionProvider"`
	HoverProvider              bool              `json:"hoverProvider"`
	DefinitionProvider         bool              `json:"definitionProvider"`
	ReferencesProvider         bool              `json:"referencesProvider"`
	DocumentFormattingProvider bool              `json:"documentFormattingProvider"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

// TextDocumentSyncFull is the "full" sync kind (1) from the LSP spec.
const TextDocumentSyncFull = 1

// textDocumentURIHolder is the shape shared by every notification and
// request that carries a single textDocument.uri — used to peek at
// the URI without committing to the rest of a message's shape.
type textDocumentURIHolder struct {
	TextDocument struct {
		URI DocumentURI `json:"uri"`
	} `json:"textDocument"`
}

// PeekDocumentURI extracts params.textDocument.uri from a raw LSP
// params payload, returning "" if the shape doesn't match. This is
// the one field the proxy session inspects before routing a message;
// everything else in params stays an opaque structured payload.
func PeekDocumentURI(params *json.RawMessage) DocumentURI {
	if params == nil {
		return ""
	}
	var holder textDocumentURIHolder
	if err := json.Unmarshal(*params, &holder); err != nil {
		return ""
	}
	return holder.TextDocument.URI
}
