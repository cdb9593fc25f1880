// Package supervisor wires the workspace store, analyzer manager,
// transport and HTTP API together and owns the process's graceful
// shutdown sequence: refuse new connections, stop every analyzer,
// close every session, hard-kill after a deadline. The signal
// trapping generalizes a SIGINT/SIGHUP insta-exit-on-second-signal
// pattern to also catch SIGTERM, the way bennypowers-cem's serveCmd
// listens for os.Interrupt and syscall.SIGTERM.
package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lewin671/oneline-editor/internal/analyzer"
	"github.com/Lewin671/oneline-editor/internal/config"
	"github.com/Lewin671/oneline-editor/internal/httpapi"
	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/transport"
	"github.com/Lewin671/oneline-editor/internal/workspace"
)

// ShutdownDeadline bounds how long graceful shutdown waits before the
// process hard-kills itself anyway.
const ShutdownDeadline = 10 * time.Second

// Supervisor owns the proxy's whole runtime: the HTTP server
// multiplexing the WebSocket /lsp endpoint and the file-CRUD REST
// surface, the analyzer manager, and the workspace store.
type Supervisor struct {
	cfg     config.Config
	log     *logging.Logger
	store   *workspace.Store
	manager *analyzer.Manager
	ws      *transport.Server
	httpSrv *http.Server
}

// New builds a Supervisor from a resolved Config.
func New(cfg config.Config, log *logging.Logger) (*Supervisor, error) {
	store, err := workspace.New(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("initializing workspace store: %w", err)
	}

	registry := analyzer.NewRegistry(cfg.GoplsPath, cfg.TSServerPath, time.Duration(cfg.IdleTimeoutSeconds)*time.Second)
	manager := analyzer.NewManager(registry, log)

	ws := transport.New(store, manager, log, cfg.CORSOrigin, cfg.MaxFrameBytes)
	api := httpapi.New(store, cfg.CORSOrigin, log)

	mux := http.NewServeMux()
	mux.Handle("/lsp", ws)
	mux.Handle("/", api)

	httpSrv := &http.Server{
		Addr:    addrForPort(cfg.Port),
		Handler: mux,
	}

	return &Supervisor{
		cfg:     cfg,
		log:     log.With("supervisor"),
		store:   store,
		manager: manager,
		ws:      ws,
		httpSrv: httpSrv,
	}, nil
}

func addrForPort(port int) string { return fmt.Sprintf(":%d", port) }

// Run starts the HTTP/WebSocket server and blocks until a shutdown
// signal arrives or ctx is cancelled, then runs the graceful shutdown
// sequence.
func (s *Supervisor) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-sigCh:
		s.log.Info("shutdown signal received")
	}

	go func() {
		<-sigCh
		s.log.Fallback("second signal received, exiting immediately")
		os.Exit(1)
	}()

	return s.shutdown()
}

func (s *Supervisor) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownDeadline)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Warning("HTTP server shutdown: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.ws.CloseAll()
		s.manager.StopAll(shutdownCtx)
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		// Returning an error makes cmd.Execute exit the process with
		// status 1 without waiting on the stragglers.
		return fmt.Errorf("shutdown deadline of %s exceeded", ShutdownDeadline)
	}

	s.log.Info("shutdown complete")
	return nil
}
