// Package analyzer supervises the external per-language LSP analyzer
// subprocesses: gopls, typescript-language-server. The subprocess
// boundary — spawn, Content-Length-framed stdio, initialize
// handshake, request/response correlation — is grounded directly on
// dao42-lsp-adapter/proxy.go's jsonrpc2.NewConn(ctx,
// jsonrpc2.NewBufferedStream(lsConn, jsonrpc2.VSCodeObjectCodec{}),
// jsonrpc2.AsyncHandler(...)) wiring; the state machine, idle timer
// and restart budget are new, since that wiring manages exactly one
// subprocess for the life of one TCP connection and never restarts
// it.
package analyzer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/lsptypes"
	"github.com/Lewin671/oneline-editor/internal/rpc"
	"github.com/Lewin671/oneline-editor/internal/rpcerr"
)

type jsonrpc2HandlerFunc func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request)

func (h jsonrpc2HandlerFunc) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h(ctx, conn, req)
}

// Process owns one analyzer subprocess for one languageId across its
// whole Spawning/Initializing/Running/Stopping/Stopped/Crashed
// lifecycle, including crash-restart and idle-shutdown.
type Process struct {
	cfg Config
	log *logging.Logger

	mu        sync.Mutex
	state     State
	conn      *jsonrpc2.Conn
	cmd       *exec.Cmd
	sink      Sink
	lastUsed  time.Time
	idleTimer *time.Timer
	restarts  []time.Time
	spawning  chan struct{}
	spawnErr  error
}

func NewProcess(cfg Config, log *logging.Logger) *Process {
	return &Process{
		cfg:   cfg.Defaults(),
		log:   log.With(fmt.Sprintf("analyzer:%s", cfg.LanguageID)),
		state: StateStopped,
		sink:  NopSink{},
	}
}

func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetSink rebinds the notification destination, atomically, for when
// a new session takes over a live analyzer.
func (p *Process) SetSink(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sink == nil {
		sink = NopSink{}
	}
	p.sink = sink
}

// Ensure guarantees the analyzer is Running, spawning or respawning it
// as needed, coalescing concurrent callers onto one in-flight spawn
// attempt.
func (p *Process) Ensure(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.state == StateRunning && p.conn != nil {
			p.mu.Unlock()
			return nil
		}
		if p.spawning != nil {
			wait := p.spawning
			p.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if p.state != StateStopped && p.state != StateCrashed {
			// A spawn for a previous generation is winding down;
			// wait for it to settle into Stopped/Crashed.
			p.mu.Unlock()
			select {
			case <-time.After(10 * time.Millisecond):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if p.state == StateCrashed && !p.restartAllowedLocked() {
			err := rpcerr.AnalyzerUnavailable(p.cfg.LanguageID, fmt.Errorf("restart budget exhausted"))
			p.state = StateStopped
			p.mu.Unlock()
			return err
		}
		done := make(chan struct{})
		p.spawning = done
		delay := time.Duration(0)
		if p.state == StateCrashed {
			delay = p.cfg.RestartDelay
		}
		p.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				p.mu.Lock()
				p.spawning = nil
				close(done)
				p.mu.Unlock()
				return ctx.Err()
			}
		}

		err := p.spawnAndInitialize(ctx)

		p.mu.Lock()
		p.spawnErr = err
		p.spawning = nil
		close(done)
		p.mu.Unlock()

		return err
	}
}

// restartAllowedLocked prunes restart timestamps outside the sliding
// window and reports whether one more restart is allowed, recording
// the attempt if so. Must be called with p.mu held.
func (p *Process) restartAllowedLocked() bool {
	now := time.Now()
	fresh := p.restarts[:0]
	for _, t := range p.restarts {
		if now.Sub(t) < p.cfg.RestartWindow {
			fresh = append(fresh, t)
		}
	}
	p.restarts = fresh
	if len(p.restarts) >= p.cfg.RestartBudget {
		return false
	}
	p.restarts = append(p.restarts, now)
	return true
}

func (p *Process) spawnAndInitialize(ctx context.Context) error {
	p.mu.Lock()
	p.state = StateSpawning
	p.mu.Unlock()

	cmd := exec.Command(p.cfg.Command, p.cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return p.failSpawn(fmt.Errorf("opening stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return p.failSpawn(fmt.Errorf("opening stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return p.failSpawn(fmt.Errorf("opening stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return p.failSpawn(fmt.Errorf("starting %s: %w", p.cfg.Command, err))
	}
	go p.drainStderr(stderr)

	stream := rpc.NewProcessStream(stdout, stdin)
	conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.AsyncHandler(jsonrpc2HandlerFunc(p.handleAnalyzerMessage)))

	p.mu.Lock()
	p.state = StateInitializing
	p.cmd = cmd
	p.conn = conn
	p.mu.Unlock()

	initCtx, cancel := context.WithTimeout(ctx, p.cfg.InitTimeout)
	defer cancel()

	var result lsptypes.InitializeResult
	if err := conn.Call(initCtx, "initialize", initializeParams(), &result); err != nil {
		conn.Close()
		_ = cmd.Process.Kill()
		return p.failSpawn(fmt.Errorf("initialize handshake with %s failed: %w", p.cfg.Command, err))
	}
	if err := conn.Notify(context.Background(), "initialized", struct{}{}); err != nil {
		conn.Close()
		_ = cmd.Process.Kill()
		return p.failSpawn(fmt.Errorf("sending initialized to %s failed: %w", p.cfg.Command, err))
	}

	p.mu.Lock()
	p.state = StateRunning
	p.lastUsed = time.Now()
	p.resetIdleTimerLocked()
	p.mu.Unlock()

	go p.watchDisconnect(conn)

	return nil
}

func (p *Process) failSpawn(err error) error {
	p.mu.Lock()
	p.state = StateStopped
	p.conn = nil
	p.cmd = nil
	p.mu.Unlock()
	return rpcerr.AnalyzerUnavailable(p.cfg.LanguageID, err)
}

// drainStderr logs each line the analyzer writes to stderr at debug
// level instead of letting it vanish silently.
func (p *Process) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.log.Debug("%s", scanner.Text())
	}
}

func (p *Process) watchDisconnect(conn *jsonrpc2.Conn) {
	<-conn.DisconnectNotify()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != conn {
		// Already superseded by a later generation; nothing to do.
		return
	}
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	if p.state == StateStopping {
		p.state = StateStopped
		p.conn = nil
		p.cmd = nil
		return
	}
	p.state = StateCrashed
	p.conn = nil
	p.cmd = nil
	sink := p.sink
	lang := p.cfg.LanguageID
	go sink.Notify(context.Background(), "window/showMessage", map[string]interface{}{
		"type":    1, // Error
		"message": fmt.Sprintf("analyzer for %s crashed", lang),
	})
}

// handleAnalyzerMessage receives server-initiated traffic from the
// analyzer (diagnostics, log/show message, workspace/configuration)
// and fans it out to the currently bound sink. Requests that expect a
// reply get a minimal best-effort response so a compliant analyzer
// doesn't stall waiting on one; the proxy's supported surface never
// depends on the proxy answering these correctly.
func (p *Process) handleAnalyzerMessage(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params interface{}
	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}

	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()

	sink.Notify(ctx, req.Method, params)

	if !req.Notif {
		_ = conn.Reply(ctx, req.ID, nil)
	}
}

func (p *Process) resetIdleTimerLocked() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = time.AfterFunc(p.cfg.IdleTimeout, p.onIdleExpire)
}

func (p *Process) onIdleExpire() {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return
	}
	p.state = StateStopping
	p.mu.Unlock()

	_ = p.Stop(context.Background())
}

// Call sends a request to the analyzer, spawning it first if needed,
// and resets the idle timer on success — the timer resets on every
// outbound message.
func (p *Process) Call(ctx context.Context, method string, params, result interface{}) error {
	if err := p.Ensure(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	conn := p.conn
	if conn != nil {
		p.resetIdleTimerLocked()
	}
	p.mu.Unlock()
	if conn == nil {
		return rpcerr.AnalyzerCrashed(p.cfg.LanguageID)
	}
	if err := conn.Call(ctx, method, params, result); err != nil {
		return rpcerr.Transport(fmt.Sprintf("analyzer call %s failed", method), err)
	}
	return nil
}

// Notify sends a notification to the analyzer, spawning it first if
// needed.
func (p *Process) Notify(ctx context.Context, method string, params interface{}) error {
	if err := p.Ensure(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	conn := p.conn
	if conn != nil {
		p.resetIdleTimerLocked()
	}
	p.mu.Unlock()
	if conn == nil {
		return rpcerr.AnalyzerCrashed(p.cfg.LanguageID)
	}
	if err := conn.Notify(ctx, method, params); err != nil {
		return rpcerr.Transport(fmt.Sprintf("analyzer notify %s failed", method), err)
	}
	return nil
}

// Stop transitions the analyzer to Stopped, killing the subprocess if
// it is still alive. Safe to call from idle-expiry or shutdown. Before
// tearing the transport down it runs the LSP shutdown/exit handshake
// (a shutdown request, answered, followed by an exit notification),
// the graceful half of the same initialize/initialized pairing
// spawnAndInitialize performs on the way up; a shutdown that doesn't
// answer within ShutdownGrace is abandoned and the process killed.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return nil
	}
	p.state = StateStopping
	conn := p.conn
	cmd := p.cmd
	grace := p.cfg.ShutdownGrace
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.mu.Unlock()

	if conn != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		var result interface{}
		if err := conn.Call(shutdownCtx, "shutdown", struct{}{}, &result); err == nil {
			_ = conn.Notify(shutdownCtx, "exit", struct{}{})
		}
		cancel()
		conn.Close()
	}
	if cmd != nil && cmd.Process != nil {
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(grace):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	p.mu.Lock()
	p.state = StateStopped
	p.conn = nil
	p.cmd = nil
	p.mu.Unlock()
	return nil
}

// initializeParams builds the capability set the proxy declares on
// every analyzer's initialize request.
func initializeParams() map[string]interface{} {
	return map[string]interface{}{
		"processId": nil,
		"capabilities": map[string]interface{}{
			"textDocument": map[string]interface{}{
				"hover": map[string]interface{}{
					"contentFormat": []string{"markdown", "plaintext"},
				},
				"completion": map[string]interface{}{
					"completionItem": map[string]interface{}{
						"snippetSupport": true,
					},
				},
				"definition": map[string]interface{}{
					"linkSupport": true,
				},
				"references": map[string]interface{}{},
				"documentSymbol": map[string]interface{}{
					"hierarchicalDocumentSymbolSupport": true,
				},
				"publishDiagnostics": map[string]interface{}{
					"relatedInformation": true,
				},
			},
			"workspace": map[string]interface{}{
				"workspaceFolders": true,
			},
		},
	}
}
