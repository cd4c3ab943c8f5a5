package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Credit metering constants
const (
	// DefaultCredits is the balance granted to every newly registered account
	DefaultCredits = 50

	// AnalysisCost is the charge for running one prior-art analysis
	AnalysisCost = 1

	// PDFDownloadCost is the charge for downloading one report PDF
	PDFDownloadCost = 1
)

// Submission serial number constants
const (
	// SerialPrefix prefixes every disclosure serial number
	SerialPrefix = "PA"

	// SerialDateLayout formats the date segment of a serial number
	SerialDateLayout = "20060102"
)

// Pagination constants
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
