package businessflow

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	testingutil "github.com/mmsu/prior-art-portal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAnalyzer returns a canned report or error instead of calling the gateway
type stubAnalyzer struct {
	report *models.AnalysisReport
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, submission *models.Submission) (*models.AnalysisReport, error) {
	return s.report, s.err
}

func testAnalysisReport() *models.AnalysisReport {
	return &models.AnalysisReport{
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
}

func newTestSubmissionFlow(testDB *testingutil.TestDB, analyzer services.PriorArtAnalyzer) SubmissionFlow {
	return NewSubmissionFlow(
		repository.NewSubmissionRepository(testDB.DB),
		repository.NewUserRepository(testDB.DB),
		repository.NewCreditTransactionRepository(testDB.DB),
		repository.NewDownloadHistoryRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		analyzer,
		services.NewPDFReportRenderer("Test University"),
		testDB.DB,
	)
}

func validCreateRequest() *dto.CreateSubmissionRequest {
	return &dto.CreateSubmissionRequest{
		Title:       "Self-healing polymer coating",
		Description: "A coating that repairs microcracks using embedded microcapsules.",
	}
}

func TestCreateSubmission(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		ledgerRepo := repository.NewCreditTransactionRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		submissionRepo := repository.NewSubmissionRepository(testDB.DB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		t.Run("charges one credit and completes the analysis", func(t *testing.T) {
			flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})
			user, err := fixtures.CreateTestUser(models.RoleRegular, 1)
			require.NoError(t, err)

			resp, err := flow.CreateSubmission(ctx, user.ID, validCreateRequest(), metadata)
			require.NoError(t, err)
			assert.Equal(t, 0, resp.CreditsRemaining)
			assert.Equal(t, string(models.SubmissionStatusCompleted), resp.Status)
			assert.Regexp(t, regexp.MustCompile(`^PA-\d{8}-[0-9A-F]{8}$`), resp.SerialNumber)

			submission, err := submissionRepo.ByID(ctx, resp.SubmissionID)
			require.NoError(t, err)
			require.NotNil(t, submission)
			assert.True(t, submission.IsCompleted())
			assert.NotNil(t, submission.AnalyzedAt)

			report, err := submission.Report()
			require.NoError(t, err)
			require.NotNil(t, report)
			assert.Equal(t, "Appears novel over located references", report.PatentabilityAnalysis.Novelty)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, models.CreditKindAnalysis, entry.Kind)
			assert.Equal(t, -1, entry.Amount)
			assert.Equal(t, 0, entry.BalanceAfter)
			require.NotNil(t, entry.SubmissionID)
			assert.Equal(t, resp.SubmissionID, *entry.SubmissionID)
		})

		t.Run("rejects creation with an empty balance", func(t *testing.T) {
			flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})
			user, err := fixtures.CreateTestUser(models.RoleRegular, 0)
			require.NoError(t, err)

			_, err = flow.CreateSubmission(ctx, user.ID, validCreateRequest(), metadata)
			require.Error(t, err)
			assert.True(t, IsInsufficientCredits(err))

			count, err := submissionRepo.Count(ctx, models.SubmissionFilter{UserID: &user.ID})
			require.NoError(t, err)
			assert.Zero(t, count, "nothing is persisted when the charge fails")
		})

		t.Run("requires the disclaimer", func(t *testing.T) {
			flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})
			user, err := fixtures.CreateTestUser(models.RoleRegular, 5)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.User{}).Where("id = ?", user.ID).
				Update("disclaimer_accepted", false).Error)

			_, err = flow.CreateSubmission(ctx, user.ID, validCreateRequest(), metadata)
			require.Error(t, err)
			assert.True(t, IsDisclaimerNotAccepted(err))
		})

		t.Run("requires a title and description", func(t *testing.T) {
			flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})
			user, err := fixtures.CreateTestUser(models.RoleRegular, 5)
			require.NoError(t, err)

			_, err = flow.CreateSubmission(ctx, user.ID, &dto.CreateSubmissionRequest{Title: "   ", Description: "x"}, metadata)
			require.Error(t, err)
			assert.True(t, IsTitleRequired(err))

			_, err = flow.CreateSubmission(ctx, user.ID, &dto.CreateSubmissionRequest{Title: "Valid title", Description: ""}, metadata)
			require.Error(t, err)
			assert.True(t, IsDescriptionRequired(err))
		})

		t.Run("privileged account keeps its balance", func(t *testing.T) {
			flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})
			user, err := fixtures.CreateTestUser(models.RoleVIP, 0)
			require.NoError(t, err)

			resp, err := flow.CreateSubmission(ctx, user.ID, validCreateRequest(), metadata)
			require.NoError(t, err)
			assert.Equal(t, 0, resp.CreditsRemaining)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, 0, entry.Amount)
		})

		t.Run("masks gateway failures with the fallback report", func(t *testing.T) {
			flow := newTestSubmissionFlow(testDB, &stubAnalyzer{err: errors.New("gateway timeout")})
			user, err := fixtures.CreateTestUser(models.RoleRegular, 5)
			require.NoError(t, err)

			resp, err := flow.CreateSubmission(ctx, user.ID, validCreateRequest(), metadata)
			require.NoError(t, err, "gateway errors never surface to the caller")
			assert.Equal(t, string(models.SubmissionStatusCompleted), resp.Status)
			assert.Equal(t, 4, resp.CreditsRemaining, "the charge stands even when analysis falls back")

			submission, err := submissionRepo.ByID(ctx, resp.SubmissionID)
			require.NoError(t, err)
			report, err := submission.Report()
			require.NoError(t, err)
			require.NotNil(t, report)
			require.Len(t, report.PriorArtReport, 1)
			assert.Equal(t, "Automated prior-art search unavailable", report.PriorArtReport[0].Title)

			audits, err := auditRepo.ListByAction(ctx, models.AuditActionAnalysisFallback, 10, 0)
			require.NoError(t, err)
			assert.NotEmpty(t, audits)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGetSubmission(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})

		owner, err := fixtures.CreateTestUser(models.RoleRegular, 10)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.RoleRegular, 10)
		require.NoError(t, err)
		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)

		submission, err := fixtures.CreateTestSubmission(owner.ID)
		require.NoError(t, err)

		t.Run("owner can read it", func(t *testing.T) {
			got, err := flow.GetSubmission(ctx, owner.ID, submission.ID)
			require.NoError(t, err)
			assert.Equal(t, submission.SerialNumber, got.SerialNumber)
		})

		t.Run("other users are denied", func(t *testing.T) {
			_, err := flow.GetSubmission(ctx, stranger.ID, submission.ID)
			require.Error(t, err)
			assert.True(t, IsSubmissionAccessDenied(err))
		})

		t.Run("admins can read everything", func(t *testing.T) {
			got, err := flow.GetSubmission(ctx, admin.ID, submission.ID)
			require.NoError(t, err)
			assert.Equal(t, submission.SerialNumber, got.SerialNumber)
		})

		t.Run("unknown submission", func(t *testing.T) {
			_, err := flow.GetSubmission(ctx, owner.ID, 999999)
			require.Error(t, err)
			assert.True(t, IsSubmissionNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDownloadReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})
		ledgerRepo := repository.NewCreditTransactionRepository(testDB.DB)
		downloadRepo := repository.NewDownloadHistoryRepository(testDB.DB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		t.Run("charges one credit and streams a PDF", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 1)
			require.NoError(t, err)
			submission, err := fixtures.CreateTestSubmission(user.ID)
			require.NoError(t, err)

			result, err := flow.DownloadReport(ctx, user.ID, submission.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, submission.SerialNumber+".pdf", result.FileName)
			assert.Equal(t, 0, result.CreditsRemaining)
			require.True(t, len(result.Content) > 4)
			assert.Equal(t, "%PDF", string(result.Content[:4]))

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, models.CreditKindDownload, entry.Kind)
			assert.Equal(t, -1, entry.Amount)

			records, err := downloadRepo.ListBySubmission(ctx, submission.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})

		t.Run("rejects a download with an empty balance", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 0)
			require.NoError(t, err)
			submission, err := fixtures.CreateTestSubmission(user.ID)
			require.NoError(t, err)

			_, err = flow.DownloadReport(ctx, user.ID, submission.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsInsufficientCredits(err))

			records, err := downloadRepo.ListBySubmission(ctx, submission.ID, 10, 0)
			require.NoError(t, err)
			assert.Empty(t, records, "no download is recorded when the charge fails")
		})

		t.Run("rejects submissions that have not completed", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 10)
			require.NoError(t, err)
			submission, err := fixtures.CreatePendingSubmission(user.ID)
			require.NoError(t, err)

			_, err = flow.DownloadReport(ctx, user.ID, submission.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsInvalidSubmissionState(err))
		})

		t.Run("denies access to other users' reports", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.RoleRegular, 10)
			require.NoError(t, err)
			stranger, err := fixtures.CreateTestUser(models.RoleRegular, 10)
			require.NoError(t, err)
			submission, err := fixtures.CreateTestSubmission(owner.ID)
			require.NoError(t, err)

			_, err = flow.DownloadReport(ctx, stranger.ID, submission.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsSubmissionAccessDenied(err))
		})

		t.Run("privileged users download for free without a ledger entry", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleVIP, 0)
			require.NoError(t, err)
			submission, err := fixtures.CreateTestSubmission(user.ID)
			require.NoError(t, err)

			result, err := flow.DownloadReport(ctx, user.ID, submission.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, "%PDF", string(result.Content[:4]))

			entries, err := ledgerRepo.ListByUser(ctx, user.ID, 10, 0)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListSubmissionsAndCreditHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestSubmissionFlow(testDB, &stubAnalyzer{report: testAnalysisReport()})
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		user, err := fixtures.CreateTestUser(models.RoleRegular, 10)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err := flow.CreateSubmission(ctx, user.ID, validCreateRequest(), metadata)
			require.NoError(t, err)
		}

		t.Run("lists only the caller's submissions", func(t *testing.T) {
			other, err := fixtures.CreateTestUser(models.RoleRegular, 10)
			require.NoError(t, err)
			_, err = fixtures.CreateTestSubmission(other.ID)
			require.NoError(t, err)

			resp, err := flow.ListSubmissions(ctx, user.ID, 1, 20)
			require.NoError(t, err)
			assert.Len(t, resp.Items, 3)
			assert.EqualValues(t, 3, resp.TotalItems)
		})

		t.Run("paginates", func(t *testing.T) {
			resp, err := flow.ListSubmissions(ctx, user.ID, 1, 2)
			require.NoError(t, err)
			assert.Len(t, resp.Items, 2)
			assert.EqualValues(t, 3, resp.TotalItems)

			resp, err = flow.ListSubmissions(ctx, user.ID, 2, 2)
			require.NoError(t, err)
			assert.Len(t, resp.Items, 1)
		})

		t.Run("rejects invalid pagination", func(t *testing.T) {
			_, err := flow.ListSubmissions(ctx, user.ID, -1, 20)
			require.Error(t, err)
			assert.True(t, IsInvalidPage(err))

			_, err = flow.ListSubmissions(ctx, user.ID, 1, 500)
			require.Error(t, err)
			assert.True(t, IsInvalidPageSize(err))
		})

		t.Run("credit history reflects the charges", func(t *testing.T) {
			resp, err := flow.CreditHistory(ctx, user.ID, 1, 20)
			require.NoError(t, err)
			assert.Equal(t, 7, resp.Balance)
			assert.Len(t, resp.Items, 3)
			for _, item := range resp.Items {
				assert.Equal(t, string(models.CreditKindAnalysis), item.Kind)
				assert.Equal(t, -1, item.Amount)
			}
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSerialNumberAllocation(t *testing.T) {
	const total = 10000
	format := regexp.MustCompile(`^PA-\d{8}-[0-9A-F]{8}$`)
	seen := make(map[string]struct{}, total)

	// Mirrors createWithSerial: a collision is retried, never surfaced.
	for i := 0; i < total; i++ {
		var serial string
		for attempt := 0; attempt < serialAttempts; attempt++ {
			candidate, err := generateSerialNumber()
			require.NoError(t, err)
			require.Regexp(t, format, candidate)
			if _, dup := seen[candidate]; !dup {
				serial = candidate
				break
			}
		}
		require.NotEmpty(t, serial, "serial allocation exhausted %d attempts", serialAttempts)
		seen[serial] = struct{}{}
	}

	assert.Len(t, seen, total)
}
