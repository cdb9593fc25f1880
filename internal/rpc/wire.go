// Package rpc implements the framed JSON-RPC codec. Two transports
// carry LSP traffic: the analyzer subprocess speaks
// Content-Length-framed stdio, correlated with
// github.com/sourcegraph/jsonrpc2 (jsonrpc2.NewConn over
// jsonrpc2.NewBufferedStream with jsonrpc2.VSCodeObjectCodec); the
// browser speaks one JSON object per WebSocket frame, which this
// package decodes/encodes directly since a message-oriented
// transport has no Content-Length framing to delegate to a codec.
package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Lewin671/oneline-editor/internal/rpcerr"
)

// ID is an opaque JSON-RPC request id. Payload bytes are preserved
// verbatim rather than canonicalized; treating the id the same way
// (compare/echo by bytes, never interpret as a number or string)
// means a numeric client id is never silently rewritten into a
// string one, or vice versa.
type ID struct {
	raw json.RawMessage
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.raw == nil {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	id.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (id ID) IsZero() bool { return len(id.raw) == 0 }

func (id ID) Equal(other ID) bool { return bytes.Equal(id.raw, other.raw) }

func (id ID) String() string { return string(id.raw) }

// Message is the wire envelope for JSON-RPC 2.0 over WebSocket: a
// request has ID and Method; a response has ID and Result or Error;
// a notification has Method but no ID.
type Message struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *ID              `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  *json.RawMessage `json:"params,omitempty"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *WireError       `json:"error,omitempty"`
}

type WireError struct {
	Code    int64            `json:"code"`
	Message string           `json:"message"`
	Data    *json.RawMessage `json:"data,omitempty"`
}

func (m *Message) IsRequest() bool      { return m.Method != "" && m.ID != nil }
func (m *Message) IsNotification() bool { return m.Method != "" && m.ID == nil }
func (m *Message) IsResponse() bool     { return m.Method == "" && m.ID != nil }

// DecodeMessage parses one WebSocket frame. A framing error (invalid
// JSON) becomes a ProtocolError; a well-formed object lacking a
// method, result and error becomes an InvalidRequest. Either way only
// that frame is lost: the caller replies with an error and keeps the
// connection open rather than tearing down the session.
func DecodeMessage(frame []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, rpcerr.Protocol("invalid JSON-RPC message", err)
	}
	if m.Method == "" && m.Result == nil && m.Error == nil {
		return nil, rpcerr.InvalidRequest("message has neither method, result, nor error")
	}
	return &m, nil
}

// EncodeMessage serializes a Message back to wire bytes.
func EncodeMessage(m *Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling JSON-RPC message")
	}
	return b, nil
}

func NewNotification(method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: "2.0", Method: method, Params: raw}, nil
}

func NewRequest(id ID, method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: "2.0", ID: &id, Method: method, Params: raw}, nil
}

func NewResultResponse(id ID, result interface{}) (*Message, error) {
	raw, err := marshalParams(result)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: "2.0", ID: &id, Result: raw}, nil
}

func NewErrorResponse(id ID, code int64, message string) *Message {
	return &Message{JSONRPC: "2.0", ID: &id, Error: &WireError{Code: code, Message: message}}
}

func marshalParams(v interface{}) (*json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(*json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling params")
	}
	raw := json.RawMessage(b)
	return &raw, nil
}

// ErrorEnvelope builds the Message reply for a failed request
// handler: requests get a reply with the same id; notifications
// produce no reply at all (the caller must check IsRequest first).
func ErrorEnvelope(id ID, err error) *Message {
	jerr := rpcerr.ToJSONRPC2(err)
	return NewErrorResponse(id, jerr.Code, jerr.Message)
}

func (e *WireError) String() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}
