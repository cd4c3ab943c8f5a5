package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus tracks the analysis lifecycle of a disclosure.
// Transitions only move forward: Pending -> Processing -> Completed.
// Failed is part of the schema but no current path reaches it; gateway
// failures are absorbed by a fallback report and the submission still
// completes.
type SubmissionStatus string

const (
	SubmissionStatusPending    SubmissionStatus = "Pending"
	SubmissionStatusProcessing SubmissionStatus = "Processing"
	SubmissionStatusCompleted  SubmissionStatus = "Completed"
	SubmissionStatusFailed     SubmissionStatus = "Failed"
)

// Submission represents a technology disclosure undergoing prior-art analysis
type Submission struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	// SerialNumber is generated once at creation and never changes.
	SerialNumber string `gorm:"size:50;not null;uniqueIndex:uk_submissions_serial_number" json:"serial_number"`

	UserID uint `gorm:"not null;index:idx_submissions_user_id" json:"user_id"`

	Title       string  `gorm:"size:200;not null" json:"title"`
	Description string  `gorm:"type:text;not null" json:"description"`
	Claims      *string `gorm:"type:text" json:"claims,omitempty"`
	Inventors   *string `gorm:"size:500" json:"inventors,omitempty"`
	Institution *string `gorm:"size:200" json:"institution,omitempty"`

	UploadedFileName *string `gorm:"size:200" json:"uploaded_file_name,omitempty"`
	FileText         *string `gorm:"type:text" json:"-"` // Extracted text from the uploaded document

	Status SubmissionStatus `gorm:"type:varchar(20);not null;default:'Pending';index:idx_submissions_status" json:"status"`

	// AnalysisResults is set exactly once, when the submission completes.
	AnalysisResults json.RawMessage `gorm:"type:jsonb" json:"analysis_results,omitempty"`

	SubmittedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_submissions_submitted_at" json:"submitted_at"`
	AnalyzedAt  *time.Time `json:"analyzed_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	User      User              `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Downloads []DownloadHistory `gorm:"foreignKey:SubmissionID" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

// BeforeCreate ensures UUID is set
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	return nil
}

// IsCompleted reports whether analysis results are available.
func (s *Submission) IsCompleted() bool {
	return s.Status == SubmissionStatusCompleted
}

// Report decodes the stored analysis payload. Returns nil when analysis has
// not completed yet.
func (s *Submission) Report() (*AnalysisReport, error) {
	if len(s.AnalysisResults) == 0 {
		return nil, nil
	}
	var report AnalysisReport
	if err := json.Unmarshal(s.AnalysisResults, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SubmissionFilter represents filter criteria for submission queries
type SubmissionFilter struct {
	ID              *uint             `json:"id,omitempty"`
	UUID            *uuid.UUID        `json:"uuid,omitempty"`
	UserID          *uint             `json:"user_id,omitempty"`
	SerialNumber    *string           `json:"serial_number,omitempty"`
	Status          *SubmissionStatus `json:"status,omitempty"`
	SubmittedAfter  *time.Time        `json:"submitted_after,omitempty"`
	SubmittedBefore *time.Time        `json:"submitted_before,omitempty"`
}
