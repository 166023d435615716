package entries

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/countsheet-backend/internal/reports"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queryCall struct {
	assignedTo string
	window     pagination.Window
}

type updateCall struct {
	id        uuid.UUID
	count     *int
	enteredBy string
}

// memStore is an in-memory rowStore. failQueryAt makes the n-th query
// (0-based) fail; gate, when set, blocks every update until a value is sent.
type memStore struct {
	mu          sync.Mutex
	rows        []models.Entry
	queries     []queryCall
	updates     []updateCall
	failQueryAt int
	updateErr   error
	gate        chan struct{}
	started     chan uuid.UUID
}

func newMemStore(reportID uuid.UUID, owners ...string) *memStore {
	s := &memStore{failQueryAt: -1}
	for i, owner := range owners {
		onHand := i
		s.rows = append(s.rows, models.Entry{
			ID:          uuid.New(),
			ReportID:    reportID,
			UploadIndex: i,
			SKU:         fmt.Sprintf("SKU-%04d", i),
			OnHand:      &onHand,
			AssignedTo:  owner,
		})
	}
	return s
}

func (s *memStore) QueryRows(ctx context.Context, filter reports.EntryFilter, window pagination.Window) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := queryCall{window: window}
	if filter.AssignedTo != nil {
		call.assignedTo = *filter.AssignedTo
	}
	s.queries = append(s.queries, call)
	if s.failQueryAt == len(s.queries)-1 {
		return nil, fmt.Errorf("connection reset")
	}

	var matched []models.Entry
	for _, r := range s.rows {
		if r.ReportID != filter.ReportID {
			continue
		}
		if filter.AssignedTo != nil && r.AssignedTo != *filter.AssignedTo {
			continue
		}
		matched = append(matched, r)
	}
	if window.Offset >= len(matched) {
		return []models.Entry{}, nil
	}
	end := window.Offset + window.Limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]models.Entry, end-window.Offset)
	copy(out, matched[window.Offset:end])
	return out, nil
}

func (s *memStore) UpdateCount(ctx context.Context, id uuid.UUID, count *int, enteredBy string) error {
	if s.started != nil {
		s.started <- id
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, updateCall{id: id, count: copyInt(count), enteredBy: enteredBy})
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Count = copyInt(count)
			by := enteredBy
			s.rows[i].EnteredBy = &by
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memStore) FindReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ReportID == id {
			return &models.Report{ID: id}, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) snapshotUpdates() []updateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]updateCall, len(s.updates))
	copy(out, s.updates)
	return out
}

func (s *memStore) storedCount(id uuid.UUID) *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return copyInt(r.Count)
		}
	}
	return nil
}

func owners(n int, names ...string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = names[i%len(names)]
	}
	return out
}
