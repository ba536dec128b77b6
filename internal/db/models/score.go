package models

import (
	"time"

	"github.com/google/uuid"
)

// Score holds a job-readiness score for a resume.
// No scoring algorithm exists yet; the table is scaffolding for the
// roadmap and rows are only read back out today.
type Score struct {
	// ID is the unique identifier for the score.
	ID uint `gorm:"primaryKey"`
	// AccountID is the scored account.
	AccountID uuid.UUID `gorm:"type:varchar(36);not null;index"`
	// ResumeID is the scored resume.
	ResumeID uint `gorm:"not null;index"`
	// Resume is the associated resume.
	Resume Resume `gorm:"foreignKey:ResumeID;references:ID;constraint:OnDelete:CASCADE"`
	// Overall is the aggregate readiness score in [0, 100].
	Overall float64
	// Details is a JSON document with per-dimension breakdowns.
	Details string `gorm:"type:text"`
	// CreatedAt is the timestamp when the score was produced (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the score was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Score model.
func (Score) TableName() string {
	return "scores"
}
