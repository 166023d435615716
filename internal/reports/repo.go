package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultInsertBatch = 500

// Repository reads and writes reports and their entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository that runs on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateReport(ctx context.Context, report *models.Report) (*models.Report, error) {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Repository) FindReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns reports newest first. The extra row fetched past
// limit only signals that another page exists.
func (r *Repository) ListReports(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Report, string, error) {
	limit = pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).Model(&models.Report{})
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Report
	if err := query.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		last := rows[limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	return rows, next, nil
}

// InsertRows writes entries in batches of batchSize.
func (r *Repository) InsertRows(ctx context.Context, entries []models.Entry, batchSize int) error {
	if len(entries) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultInsertBatch
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, batchSize).Error
}

// QueryRows returns one window of entries ordered by upload_index.
func (r *Repository) QueryRows(ctx context.Context, filter EntryFilter, window pagination.Window) ([]models.Entry, error) {
	query := r.db.WithContext(ctx).Where("report_id = ?", filter.ReportID)
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}

	var rows []models.Entry
	err := query.
		Order("upload_index ASC").
		Offset(window.Offset).
		Limit(window.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateCount sets count and entered_by on one entry. A missing entry
// yields gorm.ErrRecordNotFound.
func (r *Repository) UpdateCount(ctx context.Context, id uuid.UUID, count *int, enteredBy string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"count":      count,
			"entered_by": enteredBy,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
