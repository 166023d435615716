package entries

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/angelmondragon/countsheet-backend/pkg/metrics"
	"github.com/google/uuid"
)

const (
	sweepJobName         = "workspace_sweep"
	defaultWorkspaceTTL  = 12 * time.Hour
	defaultSweepInterval = 5 * time.Minute
)

type workspaceKey struct {
	username string
	reportID uuid.UUID
}

// WorkspaceParams configures the registry.
type WorkspaceParams struct {
	Store          rowStore
	PageSize       int
	PersistTimeout time.Duration
	TTL            time.Duration
	Metrics        *metrics.CountMetrics
	Jobs           *metrics.JobMetrics
	Logger         *logger.Logger
}

// Workspaces holds one State per (username, report).
type Workspaces struct {
	params WorkspaceParams

	mu     sync.Mutex
	states map[workspaceKey]*State
}

func NewWorkspaces(params WorkspaceParams) *Workspaces {
	if params.TTL <= 0 {
		params.TTL = defaultWorkspaceTTL
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Workspaces{params: params, states: map[workspaceKey]*State{}}
}

// Lookup returns the viewer's state for reportID only if one already exists.
func (w *Workspaces) Lookup(viewer Viewer, reportID uuid.UUID) (*State, bool) {
	key := workspaceKey{username: viewer.Username, reportID: reportID}

	w.mu.Lock()
	state, ok := w.states[key]
	w.mu.Unlock()
	if !ok || state.viewer.Role != viewer.Role {
		return nil, false
	}
	state.touch()
	return state, true
}

// Get returns the viewer's state for reportID, creating an empty one if needed.
func (w *Workspaces) Get(viewer Viewer, reportID uuid.UUID) *State {
	key := workspaceKey{username: viewer.Username, reportID: reportID}

	w.mu.Lock()
	state, ok := w.states[key]
	if !ok || state.viewer.Role != viewer.Role {
		state = NewState(reportID, viewer, w.params.Store, StateOptions{
			PageSize:       w.params.PageSize,
			PersistTimeout: w.params.PersistTimeout,
			Metrics:        w.params.Metrics,
			Logger:         w.params.Logger,
		})
		w.states[key] = state
	}
	n := len(w.states)
	w.mu.Unlock()

	w.params.Metrics.SetWorkspaces(n)
	state.touch()
	return state
}

// Len is the number of states held.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.states)
}

// Sweep drops states idle for longer than the TTL. States with a persist
// still running are kept.
func (w *Workspaces) Sweep(now time.Time) int {
	w.mu.Lock()
	removed := 0
	for key, state := range w.states {
		if now.Sub(state.idleSince()) < w.params.TTL {
			continue
		}
		if state.PendingCount() > 0 {
			continue
		}
		delete(w.states, key)
		removed++
	}
	n := len(w.states)
	w.mu.Unlock()

	w.params.Metrics.SetWorkspaces(n)
	return removed
}

// Run sweeps on every tick until ctx ends.
func (w *Workspaces) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			started := time.Now()
			removed := w.Sweep(now)
			w.params.Jobs.Observe(sweepJobName, time.Since(started), nil)
			if removed > 0 {
				w.params.Logger.Info(w.params.Logger.WithField(ctx, "removed", removed), "swept idle workspaces")
			}
		}
	}
}
