package analyzer

import "context"

// Sink is the destination for analyzer-originated notifications
// (window/showMessage, window/logMessage, textDocument/publishDiagnostics)
// — the currently bound session's outbound channel. Implementations
// must rewrite any uri field before writing to the client socket;
// that rewriting is the session's job, not the analyzer's, so Sink
// only carries the raw analyzer payload.
type Sink interface {
	Notify(ctx context.Context, method string, params interface{})
}

// NopSink discards every notification; used as the initial sink for an
// analyzer entry created before any session has bound to it, and what
// Process.SetSink binds when handed a nil sink.
type NopSink struct{}

func (NopSink) Notify(context.Context, string, interface{}) {}
