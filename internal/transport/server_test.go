package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lewin671/oneline-editor/internal/analyzer"
	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/workspace"
)

func newTestServer(t *testing.T, allowedOrigin string, maxFrameBytes int64) *Server {
	t.Helper()
	store, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	mgr := analyzer.NewManager(analyzer.Registry{}, logging.New(logging.LevelError))
	return New(store, mgr, logging.New(logging.LevelError), allowedOrigin, maxFrameBytes)
}

func TestCheckOriginWildcardAllowsAnything(t *testing.T) {
	s := newTestServer(t, "*", 0)
	req := httptest.NewRequest(http.MethodGet, "/lsp", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.True(t, s.checkOrigin(req))
}

func TestCheckOriginMatchesConfiguredHost(t *testing.T) {
	s := newTestServer(t, "editor.example.com", 0)

	allowed := httptest.NewRequest(http.MethodGet, "/lsp", nil)
	allowed.Header.Set("Origin", "https://editor.example.com")
	assert.True(t, s.checkOrigin(allowed))

	denied := httptest.NewRequest(http.MethodGet, "/lsp", nil)
	denied.Header.Set("Origin", "https://other.example.com")
	assert.False(t, s.checkOrigin(denied))
}

func TestCheckOriginAllowsMissingOriginHeader(t *testing.T) {
	s := newTestServer(t, "editor.example.com", 0)
	req := httptest.NewRequest(http.MethodGet, "/lsp", nil)
	assert.True(t, s.checkOrigin(req))
}

func TestOversizedFrameGetsErrorReplyWithoutClosingConnection(t *testing.T) {
	s := newTestServer(t, "*", 64)

	httpSrv := httptest.NewServer(s)
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/lsp"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	oversized := []byte(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"this-is-longer-than-64-bytes":true}}`)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, oversized))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err, "connection should stay open and send an error reply")
	assert.Contains(t, string(reply), "-32600")

	// The connection must still be usable for a well-formed message.
	small := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, small))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply2, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(reply2), "\"result\"")
}
