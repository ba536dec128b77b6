package models

import (
	"time"

	"github.com/google/uuid"
)

// ResumeStatus tracks how far a resume has moved through the pipeline.
type ResumeStatus string

const (
	// ResumeStatusUploaded is the initial state after submission.
	ResumeStatusUploaded ResumeStatus = "uploaded"
	// ResumeStatusParsed is reserved for the future parsing pipeline.
	ResumeStatusParsed ResumeStatus = "parsed"
)

// Resume stores a submitted resume for an account.
// Parsing and analysis are future work; today only the raw text and
// metadata are persisted.
type Resume struct {
	// ID is the unique identifier for the resume.
	ID uint `gorm:"primaryKey"`
	// AccountID is the owning account.
	AccountID uuid.UUID `gorm:"type:varchar(36);not null;index"`
	// Account is the associated account.
	Account Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
	// Title is a short label chosen by the account holder.
	Title string `gorm:"size:255;not null"`
	// Content is the raw resume text. File upload mechanics are out of scope.
	Content string `gorm:"type:text"`
	// Status is the pipeline state of this resume.
	Status ResumeStatus `gorm:"type:varchar(20);not null;default:'uploaded'"`
	// CreatedAt is the timestamp when the resume was submitted (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the resume was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Resume model.
func (Resume) TableName() string {
	return "resumes"
}
