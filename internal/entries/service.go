package entries

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the count-entry workflow to the controllers.
type Service interface {
	Load(ctx context.Context, viewer Viewer, reportID uuid.UUID) (*LoadResult, error)
	Snapshot(ctx context.Context, viewer Viewer, reportID uuid.UUID) (*LoadResult, error)
	Edit(ctx context.Context, viewer Viewer, reportID, entryID uuid.UUID, raw string) (*EditResult, error)
	Rows(ctx context.Context, viewer Viewer, reportID uuid.UUID) ([]models.Entry, error)
}

type reportFinder interface {
	FindReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
}

type service struct {
	reports    reportFinder
	workspaces *Workspaces
}

func NewService(reports reportFinder, workspaces *Workspaces) (Service, error) {
	if reports == nil {
		return nil, fmt.Errorf("report finder required")
	}
	if workspaces == nil {
		return nil, fmt.Errorf("workspaces required")
	}
	return &service{reports: reports, workspaces: workspaces}, nil
}

// Load always refetches from the store.
func (s *service) Load(ctx context.Context, viewer Viewer, reportID uuid.UUID) (*LoadResult, error) {
	if err := s.ensureReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.load(ctx, s.workspaces.Get(viewer, reportID))
}

// Snapshot returns what is in memory, loading only if nothing is yet.
func (s *service) Snapshot(ctx context.Context, viewer Viewer, reportID uuid.UUID) (*LoadResult, error) {
	state, err := s.workspace(ctx, viewer, reportID)
	if err != nil {
		return nil, err
	}
	if !state.Loaded() {
		return s.load(ctx, state)
	}
	return resultOf(state, state.Snapshot()), nil
}

// Edit applies the count and waits for it to reach the store.
func (s *service) Edit(ctx context.Context, viewer Viewer, reportID, entryID uuid.UUID, raw string) (*EditResult, error) {
	state, err := s.workspace(ctx, viewer, reportID)
	if err != nil {
		return nil, err
	}
	if !state.Loaded() {
		// a partial load still leaves rows that can be counted
		if _, err := s.load(ctx, state); err != nil && !state.Loaded() {
			return nil, err
		}
	}

	pending, err := state.Edit(ctx, entryID, raw, viewer)
	switch {
	case errors.Is(err, ErrEntryNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entry not found")
	case errors.Is(err, ErrNotEditable):
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "entry is assigned to another user")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "edit entry")
	}

	waitErr := pending.Wait(ctx)
	view, _ := state.View(entryID)
	if waitErr != nil {
		if errors.Is(waitErr, ErrStoreUpdate) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, waitErr, "count saved locally but not stored").
				WithDetails(map[string]any{"entry": view})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, waitErr, "count still saving").
			WithDetails(map[string]any{"entry": view})
	}

	out := &EditResult{Entry: view}
	if next, ok := state.NextEditable(view.UploadIndex, viewer); ok {
		out.Next = &next
	}
	return out, nil
}

// Rows is the in-memory entry list used by the exporters. It reloads until
// a load has covered every page, so exports never see a partial list.
func (s *service) Rows(ctx context.Context, viewer Viewer, reportID uuid.UUID) ([]models.Entry, error) {
	state, err := s.workspace(ctx, viewer, reportID)
	if err != nil {
		return nil, err
	}
	if !state.Complete() {
		if _, err := s.load(ctx, state); err != nil {
			return nil, err
		}
	}
	return state.Entries(), nil
}

// workspace returns the existing state, or checks the report exists before
// registering a new one.
func (s *service) workspace(ctx context.Context, viewer Viewer, reportID uuid.UUID) (*State, error) {
	if state, ok := s.workspaces.Lookup(viewer, reportID); ok {
		return state, nil
	}
	if err := s.ensureReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.workspaces.Get(viewer, reportID), nil
}

func (s *service) load(ctx context.Context, state *State) (*LoadResult, error) {
	views, err := state.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "entries could only be partly loaded").
			WithDetails(map[string]any{"loaded": len(views), "entries": views})
	}
	return resultOf(state, views), nil
}

func (s *service) ensureReport(ctx context.Context, reportID uuid.UUID) error {
	if _, err := s.reports.FindReport(ctx, reportID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", ErrStoreRead, err), "load report")
	}
	return nil
}

func resultOf(state *State, views []View) *LoadResult {
	return &LoadResult{
		ReportID: state.ReportID(),
		Entries:  views,
		Total:    len(views),
		Pending:  state.PendingCount(),
		Complete: state.Complete(),
	}
}
