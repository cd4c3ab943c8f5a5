// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "encoding/json"

// CreateSubmissionRequest represents the request payload for a new disclosure
type CreateSubmissionRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200" example:"Self-healing polymer coating"`
	Description string  `json:"description" validate:"required,min=10" example:"A coating that repairs microcracks..."`
	Claims      *string `json:"claims,omitempty" validate:"omitempty" example:"1. A coating composition comprising..."`
	Inventors   *string `json:"inventors,omitempty" validate:"omitempty,max=500" example:"M. Ivanova, P. Petrov"`
	Institution *string `json:"institution,omitempty" validate:"omitempty,max=200" example:"Faculty of Chemistry"`

	// Populated by the handler from the multipart upload, not by the client
	UploadedFileName *string `json:"-"`
	FileText         *string `json:"-"`
}

// CreateSubmissionResponse represents the response after creating a disclosure
type CreateSubmissionResponse struct {
	Message          string `json:"message" example:"Submission created and analysis completed"`
	SubmissionID     uint   `json:"submission_id" example:"42"`
	UUID             string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	SerialNumber     string `json:"serial_number" example:"PA-20260828-9F3A1C2B"`
	Status           string `json:"status" example:"Completed"`
	CreditsRemaining int    `json:"credits_remaining" example:"49"`
}

// SubmissionDTO represents a disclosure returned in API responses
type SubmissionDTO struct {
	ID               uint            `json:"id" example:"42"`
	UUID             string          `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	SerialNumber     string          `json:"serial_number" example:"PA-20260828-9F3A1C2B"`
	Title            string          `json:"title" example:"Self-healing polymer coating"`
	Description      string          `json:"description"`
	Claims           *string         `json:"claims,omitempty"`
	Inventors        *string         `json:"inventors,omitempty"`
	Institution      *string         `json:"institution,omitempty"`
	UploadedFileName *string         `json:"uploaded_file_name,omitempty"`
	Status           string          `json:"status" example:"Completed"`
	AnalysisResults  json.RawMessage `json:"analysis_results,omitempty"`
	SubmittedAt      string          `json:"submitted_at" example:"2024-01-15T10:30:00Z"`
	AnalyzedAt       *string         `json:"analyzed_at,omitempty" example:"2024-01-15T10:31:12Z"`
}

// ListSubmissionsRequest represents pagination parameters for submission listing
type ListSubmissionsRequest struct {
	Page     int `query:"page" validate:"omitempty,min=1" example:"1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100" example:"20"`
}

// ListSubmissionsResponse represents a page of the user's disclosures
type ListSubmissionsResponse struct {
	Items      []SubmissionDTO `json:"items"`
	Page       int             `json:"page" example:"1"`
	PageSize   int             `json:"page_size" example:"20"`
	TotalItems int64           `json:"total_items" example:"3"`
}

// DownloadReportResult carries the rendered PDF back to the handler
type DownloadReportResult struct {
	FileName         string `json:"file_name" example:"PA-20260828-9F3A1C2B.pdf"`
	Content          []byte `json:"-"`
	CreditsRemaining int    `json:"credits_remaining" example:"48"`
}

// CreditTransactionDTO represents a ledger entry in API responses
type CreditTransactionDTO struct {
	ID           uint   `json:"id" example:"7"`
	UUID         string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	SubmissionID *uint  `json:"submission_id,omitempty" example:"42"`
	Kind         string `json:"kind" example:"analysis"`
	Amount       int    `json:"amount" example:"-1"`
	BalanceAfter int    `json:"balance_after" example:"49"`
	Description  string `json:"description" example:"Prior-art analysis for PA-20260828-9F3A1C2B"`
	CreatedAt    string `json:"created_at" example:"2024-01-15T10:31:12Z"`
}

// CreditHistoryResponse represents a page of the user's ledger entries
type CreditHistoryResponse struct {
	Items      []CreditTransactionDTO `json:"items"`
	Balance    int                    `json:"balance" example:"48"`
	Page       int                    `json:"page" example:"1"`
	PageSize   int                    `json:"page_size" example:"20"`
	TotalItems int64                  `json:"total_items" example:"12"`
}

// Common error codes for submission operations
const (
	ErrorInsufficientCredits   = "INSUFFICIENT_CREDITS"
	ErrorDisclaimerNotAccepted = "DISCLAIMER_NOT_ACCEPTED"
	ErrorSubmissionNotFound    = "SUBMISSION_NOT_FOUND"
	ErrorSubmissionAccess      = "SUBMISSION_ACCESS_DENIED"
	ErrorInvalidState          = "INVALID_SUBMISSION_STATE"
)
