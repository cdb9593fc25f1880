// Package httpapi answers the editor's HTTP file-browser contract:
// GET /health, GET /api/files, and the path-addressed
// file/folder/rename endpoints, all backed by internal/workspace so
// every path argument goes through the same escape check the
// WebSocket session uses. Handler and response shapes follow
// vvvigya-latex-editor's api-service/main.go: writeJSON sets
// Content-Type/Cache-Control and encodes a value, ErrorBody is a
// {error, code} pair, and a wrapping middleware logs every request
// instead of per-handler log calls.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/rpcerr"
	"github.com/Lewin671/oneline-editor/internal/workspace"
)

// ErrorBody is the JSON shape returned for a failed API call.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// API implements http.Handler for the /health and /api/* routes
// backing the editor's file browser.
type API struct {
	store   *workspace.Store
	log     *logging.Logger
	wrapped http.Handler
}

func New(store *workspace.Store, allowedOrigin string, log *logging.Logger) *API {
	a := &API{store: store, log: log.With("httpapi")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/files", a.handleTree)
	mux.HandleFunc("GET /api/file/{path...}", a.handleReadFile)
	mux.HandleFunc("POST /api/file/{path...}", a.handleCreateFile)
	mux.HandleFunc("DELETE /api/path/{path...}", a.handleDeletePath)
	mux.HandleFunc("POST /api/folder/{path...}", a.handleCreateFolder)
	mux.HandleFunc("PUT /api/rename", a.handleRename)

	a.wrapped = corsMiddleware(allowedOrigin)(loggingMiddleware(log)(mux))
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.wrapped.ServeHTTP(w, r)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": nowRFC3339(),
		"workspace": a.store.Root(),
	})
}

func (a *API) handleTree(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.ListTree()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorBody{err.Error(), "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (a *API) handleReadFile(w http.ResponseWriter, r *http.Request) {
	uri, ok := a.uriFromRequest(w, r)
	if !ok {
		return
	}
	file, err := a.store.ReadFile(uri)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(file.Text))
}

func (a *API) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	uri, ok := a.uriFromRequest(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{"failed to read request body", "invalid_request"})
		return
	}
	languageID, _ := workspace.LanguageIDForURI(uri)
	if err := a.store.CreateFile(uri, body, languageID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": r.PathValue("path")})
}

func (a *API) handleDeletePath(w http.ResponseWriter, r *http.Request) {
	uri, ok := a.uriFromRequest(w, r)
	if !ok {
		return
	}
	if err := a.store.DeletePath(uri); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": r.PathValue("path")})
}

func (a *API) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	uri, ok := a.uriFromRequest(w, r)
	if !ok {
		return
	}
	if err := a.store.CreateDirectory(uri); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": r.PathValue("path")})
}

type renameRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

func (a *API) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{"invalid JSON body", "invalid_request"})
		return
	}
	fromURI, err := a.store.PathToURI(a.absPath(req.OldPath))
	if err != nil {
		writeError(w, err)
		return
	}
	toURI, err := a.store.PathToURI(a.absPath(req.NewPath))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.RenamePath(fromURI, toURI); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"oldPath": req.OldPath, "newPath": req.NewPath})
}

// uriFromRequest resolves the {path...} wildcard segment to a
// workspace URI, letting the store's own path-escape check (not a
// second ad hoc one here) reject anything that climbs out of the
// root.
func (a *API) uriFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	relPath := r.PathValue("path")
	uri, err := a.store.PathToURI(a.absPath(relPath))
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return uri, true
}

func (a *API) absPath(relPath string) string {
	relPath = strings.TrimPrefix(relPath, "/")
	return a.store.Root() + "/" + relPath
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusForError(err)
	writeJSON(w, status, ErrorBody{err.Error(), code})
}

func statusForError(err error) (int, string) {
	switch {
	case rpcerr.Is(err, rpcerr.KindSecurityError):
		return http.StatusBadRequest, "security_error"
	case rpcerr.Is(err, rpcerr.KindDocumentNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// nowRFC3339 is its own function (rather than an inline time.Now()
// call in handleHealth) purely so tests can see where a real clock
// reading happens; the health payload is the only place one is used.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// loggingMiddleware mirrors vvvigya-latex-editor's loggingMiddleware,
// logging method/path/duration for every request through the logger
// instead of the standard log package.
func loggingMiddleware(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("%s %s %s", r.Method, r.URL.Path, time.Since(start))
		})
	}
}
