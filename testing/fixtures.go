// Package testing provides test utilities and database setup for testing the disclosure portal
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	mrand "math/rand"
	"strings"

	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user with the given role and credit balance
func (tf *TestFixtures) CreateTestUser(role models.UserRole, credits int) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", mrand.Intn(900000000)+100000000)
	acceptedAt := utils.UTCNow()

	user := &models.User{
		Email:                fmt.Sprintf("researcher.%s@example.edu", randomDigits),
		Name:                 "Maria Ivanova",
		PasswordHash:         string(hashedPassword),
		Institution:          utils.ToPtr("Faculty of Engineering"),
		Role:                 role,
		Credits:              credits,
		Status:               models.UserStatusActive,
		DisclaimerAccepted:   true,
		DisclaimerAcceptedAt: &acceptedAt,
		CreatedAt:            utils.UTCNow(),
		UpdatedAt:            utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreatePendingUser creates a user awaiting admin approval
func (tf *TestFixtures) CreatePendingUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", mrand.Intn(900000000)+100000000)

	user := &models.User{
		Email:        fmt.Sprintf("pending.%s@example.edu", randomDigits),
		Name:         "Pyotr Petrov",
		PasswordHash: string(hashedPassword),
		Role:         models.RoleRegular,
		Credits:      utils.DefaultCredits,
		Status:       models.UserStatusPending,
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create pending user: %w", err)
	}

	return user, nil
}

// CreateTestSubmission creates a completed submission with a stored report
func (tf *TestFixtures) CreateTestSubmission(userID uint) (*models.Submission, error) {
	report := models.AnalysisReport{
		PriorArtReport: []models.PriorArtReference{
			{
				Title:        "US1234567 Self-healing coating",
				Summary:      "A polymer coating with embedded microcapsules",
				Similarities: "Both use microcapsule rupture for repair",
				Differences:  "The disclosure adds UV-triggered crosslinking",
			},
		},
		PatentabilityAnalysis: models.PatentabilityAnalysis{
			Novelty:                 "Appears novel over located references",
			InventiveStep:           "Non-obvious combination",
			IndustrialApplicability: "Applicable to protective coatings",
		},
		Recommendations: models.Recommendations{
			ImprovementSuggestions: "Quantify healing efficiency",
			PatentFilingAdvice:     "Consider a provisional filing",
		},
	}
	payload, err := json.Marshal(&report)
	if err != nil {
		return nil, err
	}

	analyzedAt := utils.UTCNow()
	submission := &models.Submission{
		SerialNumber:    generateTestSerial(),
		UserID:          userID,
		Title:           "Self-healing polymer coating",
		Description:     "A coating that repairs microcracks using embedded microcapsules.",
		Status:          models.SubmissionStatusCompleted,
		AnalysisResults: payload,
		SubmittedAt:     utils.UTCNow(),
		AnalyzedAt:      &analyzedAt,
		UpdatedAt:       utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(submission).Error; err != nil {
		return nil, fmt.Errorf("failed to create test submission: %w", err)
	}

	return submission, nil
}

// CreatePendingSubmission creates a submission whose analysis has not run yet
func (tf *TestFixtures) CreatePendingSubmission(userID uint) (*models.Submission, error) {
	submission := &models.Submission{
		SerialNumber: generateTestSerial(),
		UserID:       userID,
		Title:        "Acoustic levitation mixer",
		Description:  "A contactless mixing device using standing acoustic waves.",
		Status:       models.SubmissionStatusPending,
		SubmittedAt:  utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(submission).Error; err != nil {
		return nil, fmt.Errorf("failed to create pending submission: %w", err)
	}

	return submission, nil
}

// CreateTestAuditLog creates an audit log entry for testing
func (tf *TestFixtures) CreateTestAuditLog(userID *uint, action string, success bool) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Success:   utils.ToPtr(success),
		CreatedAt: utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return entry, nil
}

// GenerateSecureToken generates a random base64 token for testing
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func generateTestSerial() string {
	random := make([]byte, 4)
	_, _ = rand.Read(random)
	return fmt.Sprintf("%s-%s-%s", utils.SerialPrefix,
		utils.UTCNow().Format(utils.SerialDateLayout),
		strings.ToUpper(hex.EncodeToString(random)))
}
