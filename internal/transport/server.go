// Package transport implements the WebSocket LSP endpoint: upgrading
// an HTTP request to a WebSocket, wrapping it in a
// write-mutex-guarded connection (grounded on bennypowers-cem's
// serve/websocket.go connWrapper), and handing it to a new
// internal/session.Session. Origin checking and the read loop follow
// the kdlbs-kandev gateway's lspUpgrader/ReadMessage pattern; the
// oversized-frame handling is new, since gorilla's SetReadLimit tears
// the connection down on overflow and this proxy needs the
// connection to survive one oversized frame.
package transport

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Lewin671/oneline-editor/internal/analyzer"
	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/rpc"
	"github.com/Lewin671/oneline-editor/internal/rpcerr"
	"github.com/Lewin671/oneline-editor/internal/session"
	"github.com/Lewin671/oneline-editor/internal/workspace"
)

// Server owns the /lsp WebSocket endpoint.
type Server struct {
	store         *workspace.Store
	manager       *analyzer.Manager
	log           *logging.Logger
	allowedOrigin string
	maxFrameBytes int64

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session.Session]struct{}
}

func New(store *workspace.Store, manager *analyzer.Manager, log *logging.Logger, allowedOrigin string, maxFrameBytes int64) *Server {
	s := &Server{
		store:         store,
		manager:       manager,
		log:           log.With("transport"),
		allowedOrigin: allowedOrigin,
		maxFrameBytes: maxFrameBytes,
		sessions:      make(map[*session.Session]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin allows any origin when allowedOrigin is "*", otherwise
// requires the Origin header to equal allowedOrigin exactly (a full
// origin such as "http://localhost:3000") or its hostname to equal it,
// the way bennypowers-cem's isLocalOrigin compares Origin against Host.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.allowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.EqualFold(origin, s.allowedOrigin) {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(originURL.Hostname(), s.allowedOrigin)
}

// ServeHTTP upgrades the request and runs a session until the
// connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warning("WebSocket upgrade failed: %v", err)
		return
	}

	conn := &wrappedConn{conn: wsConn, maxFrameBytes: s.maxFrameBytes}
	sess := session.New(conn, s.store, s.manager, s.log)

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
	}()

	if err := sess.Run(r.Context()); err != nil {
		s.log.Debug("session %s ended: %v", sess.ID, err)
	}
	_ = sess.Close()
}

// CloseAll closes every live session, the transport half of graceful
// shutdown.
func (s *Server) CloseAll() {
	s.mu.Lock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.Close()
	}
}

// wrappedConn adapts *websocket.Conn to session.Conn: a write mutex
// (bennypowers-cem's connWrapper) plus an oversized-frame policy — a
// frame over maxFrameBytes gets an InvalidRequest (-32600) reply
// instead of tearing the socket down.
type wrappedConn struct {
	conn          *websocket.Conn
	writeMu       sync.Mutex
	maxFrameBytes int64
}

func (c *wrappedConn) ReadMessage() ([]byte, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if c.maxFrameBytes > 0 && int64(len(data)) > c.maxFrameBytes {
			reply := rpc.ErrorEnvelope(rpc.ID{}, rpcerr.InvalidRequest("frame exceeds the maximum accepted size"))
			frame, encErr := rpc.EncodeMessage(reply)
			if encErr == nil {
				_ = c.WriteMessage(frame)
			}
			continue
		}
		return data, nil
	}
}

func (c *wrappedConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wrappedConn) Close() error {
	return c.conn.Close()
}
