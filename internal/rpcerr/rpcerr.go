// Package rpcerr names the proxy's error taxonomy as typed Go values
// and translates them to jsonrpc2 error envelopes at the handler
// boundary, the way dao42-lsp-adapter/proxy.go's roundTripper.roundTrip
// turns a Go error into a *jsonrpc2.Error before replying to src.
package rpcerr

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"
)

// Kind names one of the proxy's error kinds. The kind determines the
// JSON-RPC code used when the error becomes a reply.
type Kind string

const (
	KindProtocolError       Kind = "ProtocolError"  // malformed framing; -32700
	KindInvalidRequest      Kind = "InvalidRequest" // well-formed JSON, missing method; -32600
	KindMethodNotFound      Kind = "MethodNotFound"
	KindDocumentNotFound    Kind = "DocumentNotFound"
	KindSecurityError       Kind = "SecurityError"
	KindAnalyzerUnavailable Kind = "AnalyzerUnavailable"
	KindAnalyzerCrashed     Kind = "AnalyzerCrashed"
	KindTransportError      Kind = "TransportError"
)

// code returns the JSON-RPC 2.0 error code for a kind.
func (k Kind) code() int64 {
	switch k {
	case KindProtocolError:
		return jsonrpc2.CodeParseError
	case KindInvalidRequest:
		return jsonrpc2.CodeInvalidRequest
	case KindMethodNotFound:
		return jsonrpc2.CodeMethodNotFound
	default:
		return jsonrpc2.CodeInternalError
	}
}

// Error is a kind-tagged error. It wraps an underlying cause so the
// original message survives the translation to a JSON-RPC reply.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func Protocol(msg string, cause error) *Error {
	return newError(KindProtocolError, msg, cause)
}

// InvalidRequest reports a well-formed JSON object missing the
// "method" field required of a request or notification.
func InvalidRequest(msg string) *Error {
	return newError(KindInvalidRequest, msg, nil)
}

func MethodNotFound(method string) *Error {
	return newError(KindMethodNotFound, fmt.Sprintf("method not found: %s", method), nil)
}

// DocumentNotFound reports an operation against an untracked URI; the
// message includes the URI.
func DocumentNotFound(uri string) *Error {
	return newError(KindDocumentNotFound, fmt.Sprintf("document not found: %s", uri), nil)
}

func Security(msg string) *Error {
	return newError(KindSecurityError, msg, nil)
}

func AnalyzerUnavailable(languageID string, cause error) *Error {
	return newError(KindAnalyzerUnavailable, fmt.Sprintf("no analyzer available for %q", languageID), cause)
}

func AnalyzerCrashed(languageID string) *Error {
	return newError(KindAnalyzerCrashed, fmt.Sprintf("analyzer for %q crashed", languageID), nil)
}

func Transport(msg string, cause error) *Error {
	return newError(KindTransportError, msg, cause)
}

// ToJSONRPC2 translates an error into a reply envelope. Any error not
// already an *Error is folded into an internal error: an internal
// exception never propagates to the client verbatim.
func ToJSONRPC2(err error) *jsonrpc2.Error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
	return &jsonrpc2.Error{Code: e.code(), Message: e.Error()}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
