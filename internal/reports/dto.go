package reports

import (
	"io"
	"time"

	"github.com/angelmondragon/countsheet-backend/internal/ingest"
	"github.com/angelmondragon/countsheet-backend/internal/partition"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ReportDTO is the listing shape of a report.
type ReportDTO struct {
	ID             uuid.UUID `json:"id"`
	UploadedBy     string    `json:"uploaded_by"`
	SourceFilename string    `json:"source_filename"`
	RowCount       int       `json:"row_count"`
	AssignedUsers  []string  `json:"assigned_users"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReportList is one cursor page of reports.
type ReportList struct {
	Reports    []ReportDTO `json:"reports"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// UploadInput is a spreadsheet plus the users its rows are split across.
type UploadInput struct {
	Filename   string
	Content    io.Reader
	Users      []string
	UploadedBy string
}

// UploadResult describes the created report and how its rows were split.
type UploadResult struct {
	Report     ReportDTO             `json:"report"`
	Inserted   int                   `json:"inserted"`
	Rejected   int                   `json:"rejected"`
	Rejections []ingest.RowError     `json:"rejections,omitempty"`
	Shares     []partition.UserShare `json:"shares"`
}

// EntryFilter narrows QueryRows to a report and optionally one assignee.
type EntryFilter struct {
	ReportID   uuid.UUID
	AssignedTo *string
}

func FromModel(r *models.Report) ReportDTO {
	assigned := []string(r.AssignedUsers)
	if assigned == nil {
		assigned = []string{}
	}
	return ReportDTO{
		ID:             r.ID,
		UploadedBy:     r.UploadedBy,
		SourceFilename: r.SourceFilename,
		RowCount:       r.RowCount,
		AssignedUsers:  assigned,
		CreatedAt:      r.CreatedAt,
	}
}

func entriesFromAssignments(reportID uuid.UUID, assignments []partition.Assignment) []models.Entry {
	out := make([]models.Entry, len(assignments))
	for i, a := range assignments {
		onHand := a.Row.OnHand
		out[i] = models.Entry{
			ReportID:    reportID,
			UploadIndex: a.UploadIndex,
			SKU:         a.Row.SKU,
			OnHand:      &onHand,
			Description: a.Row.Description,
			AssignedTo:  a.AssignedTo,
			Count:       a.Row.Count,
		}
	}
	return out
}
