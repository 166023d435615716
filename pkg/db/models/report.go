package models

import (
	"time"

	dbtypes "github.com/angelmondragon/countsheet-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report groups the entries produced by one upload. It never changes after creation.
type Report struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey"`
	UploadedBy     string             `gorm:"column:uploaded_by;not null"`
	SourceFilename string             `gorm:"column:source_filename;not null"`
	RowCount       int                `gorm:"column:row_count;not null"`
	AssignedUsers  dbtypes.StringList `gorm:"column:assigned_users;type:text;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (r *Report) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
