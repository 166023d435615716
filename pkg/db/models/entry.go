package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry is one counted SKU row of a report.
type Entry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReportID    uuid.UUID `gorm:"type:uuid;not null;index:idx_entries_report_index,unique,priority:1"`
	UploadIndex int       `gorm:"column:upload_index;not null;index:idx_entries_report_index,unique,priority:2"`
	SKU         string    `gorm:"column:sku;not null"`
	OnHand      *int      `gorm:"column:on_hand"`
	Description string    `gorm:"column:description;not null"`
	AssignedTo  string    `gorm:"column:assigned_to;not null;index"`
	Count       *int      `gorm:"column:count"`
	EnteredBy   *string   `gorm:"column:entered_by"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Entry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
