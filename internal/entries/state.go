// Package entries holds the in-memory working set a viewer counts against.
package entries

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/countsheet-backend/internal/reports"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/angelmondragon/countsheet-backend/pkg/metrics"
	"github.com/angelmondragon/countsheet-backend/pkg/pagination"
	"github.com/google/uuid"
)

var (
	ErrStoreRead     = errors.New("store read failed")
	ErrStoreUpdate   = errors.New("store update failed")
	ErrEntryNotFound = errors.New("entry not found")
	ErrNotEditable   = errors.New("entry is not assigned to this user")
)

const (
	defaultPageSize       = 1000
	defaultPersistTimeout = 10 * time.Second
)

type rowStore interface {
	QueryRows(ctx context.Context, filter reports.EntryFilter, window pagination.Window) ([]models.Entry, error)
	UpdateCount(ctx context.Context, id uuid.UUID, count *int, enteredBy string) error
}

type row struct {
	entry    models.Entry
	dirty    bool
	syncErr  string
	version  uint64
	inflight int

	// serializes persists of this row
	persistMu sync.Mutex
}

// StateOptions tunes a State.
type StateOptions struct {
	PageSize       int
	PersistTimeout time.Duration
	Metrics        *metrics.CountMetrics
	Logger         *logger.Logger
}

// State is one viewer's working copy of a report. The visible list only
// changes by a full replace on load or by single-row edits.
type State struct {
	reportID uuid.UUID
	viewer   Viewer
	store    rowStore
	opts     StateOptions

	mu       sync.RWMutex
	rows     []*row
	byID     map[uuid.UUID]*row
	loaded   bool
	complete bool
	lastUsed time.Time

	loadMu sync.Mutex
}

func NewState(reportID uuid.UUID, viewer Viewer, store rowStore, opts StateOptions) *State {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &State{
		reportID: reportID,
		viewer:   viewer,
		store:    store,
		opts:     opts,
		byID:     map[uuid.UUID]*row{},
		lastUsed: time.Now(),
	}
}

func (s *State) ReportID() uuid.UUID { return s.reportID }

func (s *State) Viewer() Viewer { return s.viewer }

// Loaded reports whether at least one load has replaced the list.
func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Complete reports whether the last load paged through to the end.
func (s *State) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.complete
}

// Load pages through the store and replaces the visible list once at the
// end. Pages are fetched one after another; a short page ends the loop. If a
// page fails, the rows gathered so far still replace the list and the error
// wraps ErrStoreRead.
func (s *State) Load(ctx context.Context) ([]View, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	filter := reports.EntryFilter{ReportID: s.reportID}
	if !s.viewer.IsAdmin() {
		name := s.viewer.Username
		filter.AssignedTo = &name
	}

	var (
		fetched []models.Entry
		readErr error
	)
	window := pagination.FirstWindow(s.opts.PageSize)
	for {
		page, err := s.store.QueryRows(ctx, filter, window)
		if err != nil {
			readErr = fmt.Errorf("%w: offset %d: %v", ErrStoreRead, window.Offset, err)
			break
		}
		s.opts.Metrics.IncLoadPage()
		fetched = append(fetched, page...)
		if window.IsLast(len(page)) {
			break
		}
		window = window.Next()
	}

	s.replace(fetched, readErr == nil)
	if readErr != nil {
		s.opts.Logger.Warn(ctx, fmt.Sprintf("entry load stopped after %d rows: %v", len(fetched), readErr))
	}
	return s.Snapshot(), readErr
}

// replace swaps in the store's rows. Row objects are reused by id so an
// in-flight persist still updates the visible row, and such rows keep
// their optimistic value until that persist settles.
func (s *State) replace(entries []models.Entry, complete bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*row, 0, len(entries))
	byID := make(map[uuid.UUID]*row, len(entries))
	for _, e := range entries {
		r, ok := s.byID[e.ID]
		if !ok {
			r = &row{}
		}
		if r.inflight == 0 {
			r.entry = e
			r.dirty = false
			r.syncErr = ""
		}
		rows = append(rows, r)
		byID[e.ID] = r
	}
	s.rows = rows
	s.byID = byID
	s.loaded = true
	s.complete = complete
	s.lastUsed = time.Now()
}

// Snapshot returns the visible list without touching the store.
func (s *State) Snapshot() []View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]View, len(s.rows))
	for i, r := range s.rows {
		out[i] = s.viewOf(r)
	}
	return out
}

// Entries copies the visible rows as stored models, in upload order.
func (s *State) Entries() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.entry
	}
	return out
}

// View returns the current view of one entry.
func (s *State) View(id uuid.UUID) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return View{}, false
	}
	return s.viewOf(r), true
}

// PendingCount is the number of rows with a persist still running.
func (s *State) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rows {
		if r.inflight > 0 {
			n++
		}
	}
	return n
}

// Edit applies raw to the entry in memory right away and persists it in the
// background. editor becomes entered_by.
func (s *State) Edit(ctx context.Context, id uuid.UUID, raw string, editor Viewer) (*Pending, error) {
	count := NormalizeCount(raw)

	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrEntryNotFound
	}
	if !editor.CanEdit(r.entry) {
		s.mu.Unlock()
		return nil, ErrNotEditable
	}
	by := editor.Username
	r.entry.Count = count
	r.entry.EnteredBy = &by
	r.dirty = true
	r.syncErr = ""
	r.version++
	r.inflight++
	version := r.version
	s.lastUsed = time.Now()
	s.mu.Unlock()

	p := newPending(id)
	go s.persist(context.WithoutCancel(ctx), r, version, by, p)
	return p, nil
}

func (s *State) persist(ctx context.Context, r *row, version uint64, editor string, p *Pending) {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	s.mu.RLock()
	latest := r.version
	count := copyInt(r.entry.Count)
	id := r.entry.ID
	s.mu.RUnlock()

	if version < latest {
		s.mu.Lock()
		r.inflight--
		s.mu.Unlock()
		s.opts.Metrics.ObservePersist(metrics.OutcomeSuperseded, 0)
		p.finish(nil, true)
		return
	}

	started := time.Now()
	writeCtx, cancel := context.WithTimeout(ctx, s.opts.PersistTimeout)
	err := s.store.UpdateCount(writeCtx, id, count, editor)
	cancel()
	took := time.Since(started)

	s.mu.Lock()
	r.inflight--
	if r.version == version {
		if err != nil {
			r.syncErr = err.Error()
		} else {
			r.dirty = false
			r.syncErr = ""
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.opts.Metrics.ObservePersist(metrics.OutcomeFailure, took)
		s.opts.Logger.Error(s.opts.Logger.WithField(ctx, "entry_id", id.String()), "persist count failed", err)
		p.finish(fmt.Errorf("%w: %v", ErrStoreUpdate, err), false)
		return
	}
	s.opts.Metrics.ObservePersist(metrics.OutcomeSuccess, took)
	p.finish(nil, false)
}

// NextEditable is the first row after afterIndex that editor may edit.
func (s *State) NextEditable(afterIndex int, editor Viewer) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rows {
		if r.entry.UploadIndex <= afterIndex {
			continue
		}
		if editor.CanEdit(r.entry) {
			return s.viewOf(r), true
		}
	}
	return View{}, false
}

func (s *State) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

func (s *State) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *State) viewOf(r *row) View {
	e := r.entry
	status := Classify(e.Count, e.OnHand)
	return View{
		ID:          e.ID,
		UploadIndex: e.UploadIndex,
		SKU:         e.SKU,
		OnHand:      copyInt(e.OnHand),
		Description: e.Description,
		AssignedTo:  e.AssignedTo,
		Count:       copyInt(e.Count),
		EnteredBy:   copyString(e.EnteredBy),
		Difference:  Difference(e.Count, e.OnHand),
		Status:      status,
		Color:       status.Color(),
		Dirty:       r.dirty,
		SyncError:   r.syncErr,
		Editable:    s.viewer.CanEdit(e),
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
