// Package session implements the proxy session state machine: one
// Session per browser WebSocket connection, dispatching inbound LSP
// messages to the workspace store and the analyzer manager behind a
// per-URI FIFO lock, and fanning analyzer-originated notifications
// back out to the client. The request/response correlation and
// URI-rewriting shape is grounded on dao42-lsp-adapter/proxy.go's
// roundTripper: decode params, rewrite URIs, forward, rewrite the
// result, reply under the original id. This session replaces that
// one-to-one client<->single-server wiring with a dispatch table
// that fans out to whichever analyzer a message's languageId
// resolves to.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Lewin671/oneline-editor/internal/analyzer"
	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/lsptypes"
	"github.com/Lewin671/oneline-editor/internal/rpc"
	"github.com/Lewin671/oneline-editor/internal/rpcerr"
	"github.com/Lewin671/oneline-editor/internal/workspace"
)

// Conn is the transport seam a Session talks through: one decoded
// frame in, one encoded frame out. Implementations (internal/transport)
// must be safe for concurrent WriteMessage calls, since analyzer
// notifications and request replies can be written from different
// goroutines at once.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type docState struct {
	languageID string
	version    int
	text       string
}

// Session is one browser client's LSP proxy connection.
type Session struct {
	ID       uuid.UUID
	conn     Conn
	store    *workspace.Store
	manager  *analyzer.Manager
	rewriter rpc.URIRewriter
	log      *logging.Logger

	locks *uriLocks

	mu     sync.Mutex
	docs   map[string]*docState
	closed bool
}

func New(conn Conn, store *workspace.Store, manager *analyzer.Manager, log *logging.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:       id,
		conn:     conn,
		store:    store,
		manager:  manager,
		rewriter: rpc.IdentityURIRewriter{},
		log:      log.With(fmt.Sprintf("session:%s", id)),
		locks:    newURILocks(),
		docs:     make(map[string]*docState),
	}
}

// Run reads frames until the connection closes or ctx is cancelled,
// dispatching each one. Notifications and requests for distinct URIs
// run concurrently; same-URI traffic serializes behind the per-URI
// lock to preserve per-document ordering.
func (s *Session) Run(ctx context.Context) error {
	defer s.closeAllDocuments(context.Background())

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		frame, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}

		// The ticket for this frame's URI is registered here, on the
		// read loop, before the goroutine is spawned: goroutine start
		// order isn't guaranteed to match creation order, so acquiring
		// inside the goroutine could let two frames for the same URI
		// race into the queue out of arrival order.
		wait, release := s.ticketFor(frame)

		wg.Add(1)
		go func(frame []byte, wait <-chan struct{}, release func()) {
			defer wg.Done()
			if wait != nil {
				<-wait
				defer release()
			}
			s.handleFrame(ctx, frame)
		}(frame, wait, release)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// ticketFor decodes just enough of frame to find its target URI (if
// any) and registers a FIFO queue ticket for it, returning the wait
// channel and release func to hand to the goroutine that will later
// process the frame. Returns (nil, nil) for a frame with no URI, which
// needs no serialization.
func (s *Session) ticketFor(frame []byte) (<-chan struct{}, func()) {
	var peek struct {
		Params *json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(frame, &peek); err != nil || peek.Params == nil {
		return nil, nil
	}
	uri := string(lsptypes.PeekDocumentURI(peek.Params))
	if uri == "" {
		return nil, nil
	}
	return s.locks.enqueue(uri)
}

func (s *Session) handleFrame(ctx context.Context, frame []byte) {
	msg, err := rpc.DecodeMessage(frame)
	if err != nil {
		s.writeError(rpc.ID{}, err)
		return
	}
	s.dispatch(ctx, msg)
}

func (s *Session) dispatch(ctx context.Context, msg *rpc.Message) {
	switch {
	case msg.IsRequest():
		s.dispatchRequest(ctx, msg)
	case msg.IsNotification():
		s.dispatchNotification(ctx, msg)
	default:
		// Responses addressed to the proxy (e.g. workspace/configuration
		// replies) aren't part of the supported surface; drop them.
	}
}

func (s *Session) dispatchRequest(ctx context.Context, msg *rpc.Message) {
	id := *msg.ID
	result, err := s.handleRequest(ctx, msg.Method, msg.Params)
	if err != nil {
		s.writeError(id, err)
		return
	}
	reply, err := rpc.NewResultResponse(id, result)
	if err != nil {
		s.writeError(id, rpcerr.Protocol("marshaling result failed", err))
		return
	}
	s.write(reply)
}

func (s *Session) dispatchNotification(ctx context.Context, msg *rpc.Message) {
	if err := s.handleNotification(ctx, msg.Method, msg.Params); err != nil {
		s.log.Warning("notification %s failed: %v", msg.Method, err)
	}
}

func (s *Session) handleRequest(ctx context.Context, method string, params *json.RawMessage) (interface{}, error) {
	switch method {
	case "initialize":
		return s.handleInitialize(), nil
	case "shutdown":
		return nil, nil
	case "textDocument/completion":
		return s.forwardDocumentRequest(ctx, method, params)
	case "textDocument/hover":
		return s.forwardDocumentRequest(ctx, method, params)
	case "textDocument/definition":
		return s.forwardDocumentRequest(ctx, method, params)
	case "textDocument/references":
		return s.forwardDocumentRequest(ctx, method, params)
	case "textDocument/formatting":
		return s.forwardDocumentRequest(ctx, method, params)
	default:
		return nil, rpcerr.MethodNotFound(method)
	}
}

func (s *Session) handleNotification(ctx context.Context, method string, params *json.RawMessage) error {
	switch method {
	case "initialized", "exit":
		return nil
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, params)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, params)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, params)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, params)
	default:
		s.log.Debug("ignoring unsupported notification %s", method)
		return nil
	}
}

// handleInitialize answers locally: the proxy itself advertises one
// fixed capability set regardless of which analyzers end up backing
// individual documents.
func (s *Session) handleInitialize() lsptypes.InitializeResult {
	return lsptypes.InitializeResult{
		ServerInfo: lsptypes.ServerInfo{Name: "lsp-proxy", Version: "1.0.0"},
		Capabilities: lsptypes.ServerCapabilities{
			TextDocumentSync: lsptypes.TextDocumentSyncFull,
			CompletionProvider: lsptypes.CompletionOptions{
				TriggerCharacters: []string{".", "\"", ":", "<", "/", "@"},
				ResolveProvider:   false,
			},
			HoverProvider:              true,
			DefinitionProvider:         true,
			ReferencesProvider:         true,
			DocumentFormattingProvider: true,
		},
	}
}

func (s *Session) handleDidOpen(ctx context.Context, raw *json.RawMessage) error {
	var params lsptypes.DidOpenTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		return err
	}
	uri := string(params.TextDocument.URI)
	languageID := params.TextDocument.LanguageID
	if languageID == "" {
		if inferred, ok := workspace.LanguageIDForURI(uri); ok {
			languageID = inferred
		}
	}

	if !s.store.HasFile(uri) {
		if err := s.store.CreateFile(uri, []byte(params.TextDocument.Text), languageID); err != nil {
			s.log.Warning("persisting new document %s failed: %v", uri, err)
		}
	} else if _, err := s.store.UpdateFile(uri, []byte(params.TextDocument.Text)); err != nil {
		s.log.Warning("persisting document %s failed: %v", uri, err)
	}

	s.mu.Lock()
	s.docs[uri] = &docState{languageID: languageID, version: params.TextDocument.Version, text: params.TextDocument.Text}
	s.mu.Unlock()

	proc, err := s.manager.GetOrCreate(ctx, languageID, s)
	if err != nil {
		return err
	}

	analyzerURI := s.rewriter.ToAnalyzer(params.TextDocument.URI)
	return proc.Notify(ctx, "textDocument/didOpen", lsptypes.DidOpenTextDocumentParams{
		TextDocument: lsptypes.TextDocumentItem{
			URI:        analyzerURI,
			LanguageID: languageID,
			Version:    params.TextDocument.Version,
			Text:       params.TextDocument.Text,
		},
	})
}

// handleDidChange reconstructs the full document text from the
// client's content changes (which may be incremental) and forwards a
// single full-content change to the analyzer.
func (s *Session) handleDidChange(ctx context.Context, raw *json.RawMessage) error {
	var params lsptypes.DidChangeTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		return err
	}
	uri := string(params.TextDocument.URI)

	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return rpcerr.DocumentNotFound(uri)
	}
	if params.TextDocument.Version <= doc.version {
		s.mu.Unlock()
		return nil // stale/duplicate change; document version must only move forward
	}
	fullText := applyContentChanges(doc.text, params.ContentChanges)
	doc.text = fullText
	doc.version = params.TextDocument.Version
	languageID := doc.languageID
	s.mu.Unlock()

	if _, err := s.store.UpdateFile(uri, []byte(fullText)); err != nil {
		s.log.Warning("persisting change to %s failed: %v", uri, err)
	}

	proc, err := s.manager.GetOrCreate(ctx, languageID, s)
	if err != nil {
		return err
	}

	analyzerURI := s.rewriter.ToAnalyzer(params.TextDocument.URI)
	return proc.Notify(ctx, "textDocument/didChange", lsptypes.DidChangeTextDocumentParams{
		TextDocument:   lsptypes.VersionedTextDocumentIdentifier{URI: analyzerURI, Version: params.TextDocument.Version},
		ContentChanges: []lsptypes.TextDocumentContentChangeEvent{{Text: fullText}},
	})
}

func (s *Session) handleDidClose(ctx context.Context, raw *json.RawMessage) error {
	var params lsptypes.DidCloseTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		return err
	}
	uri := string(params.TextDocument.URI)

	s.mu.Lock()
	doc, ok := s.docs[uri]
	if ok {
		delete(s.docs, uri)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	proc, err := s.manager.GetOrCreate(ctx, doc.languageID, s)
	if err != nil {
		return err
	}
	analyzerURI := s.rewriter.ToAnalyzer(params.TextDocument.URI)
	return proc.Notify(ctx, "textDocument/didClose", lsptypes.DidCloseTextDocumentParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: analyzerURI},
	})
}

func (s *Session) handleDidSave(ctx context.Context, raw *json.RawMessage) error {
	var params lsptypes.DidSaveTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		return err
	}
	uri := string(params.TextDocument.URI)

	s.mu.Lock()
	doc, ok := s.docs[uri]
	s.mu.Unlock()
	if !ok {
		return rpcerr.DocumentNotFound(uri)
	}

	if _, err := s.store.UpdateFile(uri, []byte(doc.text)); err != nil {
		s.log.Warning("persisting save of %s failed: %v", uri, err)
	}

	proc, err := s.manager.GetOrCreate(ctx, doc.languageID, s)
	if err != nil {
		return err
	}
	analyzerURI := s.rewriter.ToAnalyzer(params.TextDocument.URI)
	return proc.Notify(ctx, "textDocument/didSave", lsptypes.DidSaveTextDocumentParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: analyzerURI},
		Text:         params.Text,
	})
}

// forwardDocumentRequest routes a textDocument/* request to the
// analyzer backing the URI it names, rewriting the URI both ways.
func (s *Session) forwardDocumentRequest(ctx context.Context, method string, raw *json.RawMessage) (interface{}, error) {
	uri := string(lsptypes.PeekDocumentURI(raw))
	if uri == "" {
		return nil, rpcerr.InvalidRequest(fmt.Sprintf("%s requires params.textDocument.uri", method))
	}

	s.mu.Lock()
	doc, ok := s.docs[uri]
	s.mu.Unlock()
	if !ok {
		return nil, rpcerr.DocumentNotFound(uri)
	}

	proc, err := s.manager.GetOrCreate(ctx, doc.languageID, s)
	if err != nil {
		return nil, err
	}

	var params interface{}
	if raw != nil {
		if err := json.Unmarshal(*raw, &params); err != nil {
			return nil, rpcerr.Protocol("unmarshaling request params failed", err)
		}
	}
	rpc.WalkURIFields(params, func(u lsptypes.DocumentURI) lsptypes.DocumentURI { return s.rewriter.ToAnalyzer(u) })

	var rawResult json.RawMessage
	if err := proc.Call(ctx, method, params, &rawResult); err != nil {
		return nil, err
	}

	var result interface{}
	if len(rawResult) > 0 {
		if err := json.Unmarshal(rawResult, &result); err != nil {
			return nil, rpcerr.Protocol("unmarshaling analyzer result failed", err)
		}
	}
	rpc.WalkURIFields(result, func(u lsptypes.DocumentURI) lsptypes.DocumentURI { return s.rewriter.ToClient(u) })
	return result, nil
}

// Notify implements analyzer.Sink: an analyzer-originated notification
// is rewritten back into client URI space and written to the socket.
func (s *Session) Notify(ctx context.Context, method string, params interface{}) {
	rpc.WalkURIFields(params, func(u lsptypes.DocumentURI) lsptypes.DocumentURI { return s.rewriter.ToClient(u) })
	msg, err := rpc.NewNotification(method, params)
	if err != nil {
		s.log.Warning("building notification %s failed: %v", method, err)
		return
	}
	s.write(msg)
}

func (s *Session) write(msg *rpc.Message) {
	frame, err := rpc.EncodeMessage(msg)
	if err != nil {
		s.log.Warning("encoding message failed: %v", err)
		return
	}
	if err := s.conn.WriteMessage(frame); err != nil {
		s.log.Debug("writing message failed: %v", err)
	}
}

func (s *Session) writeError(id rpc.ID, err error) {
	s.write(rpc.ErrorEnvelope(id, err))
}

// Close tears down the session's connection. Closing it ends Run's
// read loop, whose deferred closeAllDocuments then sends didClose for
// every open document; Close itself does not wait for that.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

func (s *Session) closeAllDocuments(ctx context.Context) {
	s.mu.Lock()
	uris := make([]string, 0, len(s.docs))
	langs := make(map[string]string, len(s.docs))
	for uri, doc := range s.docs {
		uris = append(uris, uri)
		langs[uri] = doc.languageID
	}
	s.docs = make(map[string]*docState)
	s.mu.Unlock()

	for _, uri := range uris {
		languageID := langs[uri]
		proc, ok := s.manager.Lookup(languageID)
		if !ok {
			continue
		}
		analyzerURI := s.rewriter.ToAnalyzer(lsptypes.DocumentURI(uri))
		_ = proc.Notify(ctx, "textDocument/didClose", lsptypes.DidCloseTextDocumentParams{
			TextDocument: lsptypes.TextDocumentIdentifier{URI: analyzerURI},
		})
	}
}

func unmarshalParams(raw *json.RawMessage, v interface{}) error {
	if raw == nil {
		return rpcerr.InvalidRequest("missing params")
	}
	if err := json.Unmarshal(*raw, v); err != nil {
		return rpcerr.Protocol("unmarshaling params failed", err)
	}
	return nil
}
