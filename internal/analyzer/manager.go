package analyzer

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/rpcerr"
)

// Manager is the languageId -> Process dictionary: at most one live
// analyzer per language, concurrent-start coalescing delegated to
// each Process's own Ensure, sink rebinding on reuse.
type Manager struct {
	registry Registry
	log      *logging.Logger

	mu        sync.Mutex
	processes map[string]*Process
}

func NewManager(registry Registry, log *logging.Logger) *Manager {
	return &Manager{
		registry:  registry,
		log:       log,
		processes: make(map[string]*Process),
	}
}

// GetOrCreate returns the Process for languageID, creating it lazily
// if this is the first request for that language, rebinding sink so
// notifications from here on reach the caller instead of whoever used
// this analyzer last.
func (m *Manager) GetOrCreate(ctx context.Context, languageID string, sink Sink) (*Process, error) {
	cfg, ok := m.registry[languageID]
	if !ok {
		return nil, rpcerr.AnalyzerUnavailable(languageID, nil)
	}

	m.mu.Lock()
	proc, exists := m.processes[languageID]
	if !exists {
		proc = NewProcess(cfg, m.log)
		m.processes[languageID] = proc
	}
	m.mu.Unlock()

	proc.SetSink(sink)

	if err := proc.Ensure(ctx); err != nil {
		return nil, err
	}
	return proc, nil
}

// Lookup returns the Process for languageID without spawning it, for
// callers that only want to inspect state (e.g. a health endpoint).
func (m *Manager) Lookup(languageID string) (*Process, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.processes[languageID]
	return p, ok
}

// StopAll stops every analyzer currently tracked, used during
// graceful shutdown, running every Stop concurrently and returning
// once each has reached Stopped.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	procs := make([]*Process, 0, len(m.processes))
	for _, p := range m.processes {
		procs = append(procs, p)
	}
	m.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)
	for _, p := range procs {
		wg.Add(1)
		go func(p *Process) {
			defer wg.Done()
			if err := p.Stop(ctx); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	if errs.ErrorOrNil() != nil {
		m.log.Warning("stopping analyzers: %v", errs)
	}
}
