package businessflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	"github.com/mmsu/prior-art-portal/utils"
	"gorm.io/gorm"
)

// serialAttempts bounds the retry loop on serial number collisions. The
// random segment has 2^32 values per day, so a second attempt is already
// vanishingly rare.
const serialAttempts = 3

// SubmissionFlow handles the disclosure lifecycle: creation with credit
// metering, prior-art analysis, report download and history.
type SubmissionFlow interface {
	CreateSubmission(ctx context.Context, userID uint, req *dto.CreateSubmissionRequest, metadata *ClientMetadata) (*dto.CreateSubmissionResponse, error)
	GetSubmission(ctx context.Context, userID, submissionID uint) (*dto.SubmissionDTO, error)
	ListSubmissions(ctx context.Context, userID uint, page, pageSize int) (*dto.ListSubmissionsResponse, error)
	DownloadReport(ctx context.Context, userID, submissionID uint, metadata *ClientMetadata) (*dto.DownloadReportResult, error)
	CreditHistory(ctx context.Context, userID uint, page, pageSize int) (*dto.CreditHistoryResponse, error)
}

// SubmissionFlowImpl implements the submission business flow
type SubmissionFlowImpl struct {
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
	ledgerRepo     repository.CreditTransactionRepository
	downloadRepo   repository.DownloadHistoryRepository
	auditRepo      repository.AuditLogRepository
	analyzer       services.PriorArtAnalyzer
	renderer       services.ReportRenderer
	db             *gorm.DB
}

// NewSubmissionFlow creates a new submission flow instance
func NewSubmissionFlow(
	submissionRepo repository.SubmissionRepository,
	userRepo repository.UserRepository,
	ledgerRepo repository.CreditTransactionRepository,
	downloadRepo repository.DownloadHistoryRepository,
	auditRepo repository.AuditLogRepository,
	analyzer services.PriorArtAnalyzer,
	renderer services.ReportRenderer,
	db *gorm.DB,
) SubmissionFlow {
	return &SubmissionFlowImpl{
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		downloadRepo:   downloadRepo,
		auditRepo:      auditRepo,
		analyzer:       analyzer,
		renderer:       renderer,
		db:             db,
	}
}

// CreateSubmission validates the caller, charges the analysis cost, persists
// the disclosure and runs prior-art analysis. The submission is created and
// charged in one transaction; analysis runs afterwards and always completes,
// substituting a fallback report when the gateway fails.
func (f *SubmissionFlowImpl) CreateSubmission(ctx context.Context, userID uint, req *dto.CreateSubmissionRequest, metadata *ClientMetadata) (*dto.CreateSubmissionResponse, error) {
	if err := f.validateCreateRequest(req); err != nil {
		return nil, NewBusinessError("SUBMISSION_VALIDATION_FAILED", "Submission validation failed", err)
	}

	var user *models.User
	var submission *models.Submission

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = f.userRepo.ByIDForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if !user.IsActive() {
			return ErrAccountNotActive
		}
		if !user.DisclaimerAccepted {
			return ErrDisclaimerNotAccepted
		}
		if !hasSufficientCredits(user, utils.AnalysisCost) {
			return ErrInsufficientCredits
		}

		submission, err = f.createWithSerial(txCtx, user, req)
		if err != nil {
			return err
		}

		_, err = debitCredits(txCtx, f.userRepo, f.ledgerRepo, user, utils.AnalysisCost, models.CreditKindAnalysis, &submission.ID, fmt.Sprintf("Prior-art analysis for %s", submission.SerialNumber))
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Submission creation failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionSubmissionFailed, "submission", nil, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SUBMISSION_FAILED", "Submission creation failed", err)
	} else {
		msg := fmt.Sprintf("Submission created: %s", submission.SerialNumber)
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionSubmissionCreated, "submission", &submission.ID, msg, true, nil, metadata)
	}

	// Analysis runs after the creation transaction committed. The debit
	// stands whether or not the gateway cooperates; a failed gateway call is
	// masked with a fallback report and the submission still completes.
	if err := f.runAnalysis(ctx, submission, metadata, user); err != nil {
		return nil, NewBusinessError("ANALYSIS_FAILED", "Analysis failed", err)
	}

	return &dto.CreateSubmissionResponse{
		Message:          "Submission created and analysis completed",
		SubmissionID:     submission.ID,
		UUID:             submission.UUID.String(),
		SerialNumber:     submission.SerialNumber,
		Status:           string(submission.Status),
		CreditsRemaining: user.Credits,
	}, nil
}

// GetSubmission returns one disclosure. Owners see their own submissions;
// admins see everything.
func (f *SubmissionFlowImpl) GetSubmission(ctx context.Context, userID, submissionID uint) (*dto.SubmissionDTO, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("SUBMISSION_LOOKUP_FAILED", "Failed to load submission", err)
	}
	if user == nil {
		return nil, NewBusinessError("SUBMISSION_LOOKUP_FAILED", "Failed to load submission", ErrUserNotFound)
	}

	submission, err := f.submissionRepo.ByID(ctx, submissionID)
	if err != nil {
		return nil, NewBusinessError("SUBMISSION_LOOKUP_FAILED", "Failed to load submission", err)
	}
	if submission == nil {
		return nil, NewBusinessError("SUBMISSION_LOOKUP_FAILED", "Failed to load submission", ErrSubmissionNotFound)
	}
	if submission.UserID != user.ID && !user.IsAdmin() {
		return nil, NewBusinessError("SUBMISSION_LOOKUP_FAILED", "Failed to load submission", ErrSubmissionAccessDenied)
	}

	d := ToSubmissionDTO(*submission)
	return &d, nil
}

// ListSubmissions returns a page of the caller's disclosures, newest first
func (f *SubmissionFlowImpl) ListSubmissions(ctx context.Context, userID uint, page, pageSize int) (*dto.ListSubmissionsResponse, error) {
	page, pageSize, err := normalizePagination(page, pageSize)
	if err != nil {
		return nil, NewBusinessError("SUBMISSION_LIST_FAILED", "Failed to list submissions", err)
	}

	submissions, err := f.submissionRepo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("SUBMISSION_LIST_FAILED", "Failed to list submissions", err)
	}

	total, err := f.submissionRepo.Count(ctx, models.SubmissionFilter{UserID: &userID})
	if err != nil {
		return nil, NewBusinessError("SUBMISSION_LIST_FAILED", "Failed to list submissions", err)
	}

	items := make([]dto.SubmissionDTO, 0, len(submissions))
	for _, s := range submissions {
		items = append(items, ToSubmissionDTO(*s))
	}

	return &dto.ListSubmissionsResponse{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}, nil
}

// DownloadReport charges the download cost, renders the PDF and records the
// download. The charge and the download record commit atomically before the
// bytes leave the server; a rendering failure rolls the charge back.
func (f *SubmissionFlowImpl) DownloadReport(ctx context.Context, userID, submissionID uint, metadata *ClientMetadata) (*dto.DownloadReportResult, error) {
	var user *models.User
	var submission *models.Submission
	var content []byte

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = f.userRepo.ByIDForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if !user.IsActive() {
			return ErrAccountNotActive
		}

		submission, err = f.submissionRepo.ByID(txCtx, submissionID)
		if err != nil {
			return err
		}
		if submission == nil {
			return ErrSubmissionNotFound
		}
		if submission.UserID != user.ID && !user.IsAdmin() {
			return ErrSubmissionAccessDenied
		}
		if !submission.IsCompleted() {
			return ErrInvalidSubmissionState
		}
		if !hasSufficientCredits(user, utils.PDFDownloadCost) {
			return ErrInsufficientCredits
		}

		report, err := submission.Report()
		if err != nil || report == nil {
			return ErrReportRendering
		}

		content, err = f.renderer.Render(submission, report, user.Name)
		if err != nil {
			return ErrReportRendering
		}

		// Privileged users download for free and leave no ledger entry.
		if !user.IsPrivileged() {
			if _, err := debitCredits(txCtx, f.userRepo, f.ledgerRepo, user, utils.PDFDownloadCost, models.CreditKindDownload, &submission.ID, fmt.Sprintf("Report download for %s", submission.SerialNumber)); err != nil {
				return err
			}
		}

		record := &models.DownloadHistory{
			UserID:       user.ID,
			SubmissionID: submission.ID,
			DownloadedAt: utils.UTCNow(),
		}
		if metadata != nil {
			record.IPAddress = &metadata.IPAddress
			record.UserAgent = &metadata.UserAgent
		}
		return f.downloadRepo.Save(txCtx, record)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Report download failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionDownloadFailed, "submission", &submissionID, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("DOWNLOAD_FAILED", "Report download failed", err)
	} else {
		msg := fmt.Sprintf("Report downloaded: %s", submission.SerialNumber)
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionPDFDownloaded, "submission", &submission.ID, msg, true, nil, metadata)
	}

	return &dto.DownloadReportResult{
		FileName:         fmt.Sprintf("%s.pdf", submission.SerialNumber),
		Content:          content,
		CreditsRemaining: user.Credits,
	}, nil
}

// CreditHistory returns a page of the caller's ledger entries
func (f *SubmissionFlowImpl) CreditHistory(ctx context.Context, userID uint, page, pageSize int) (*dto.CreditHistoryResponse, error) {
	page, pageSize, err := normalizePagination(page, pageSize)
	if err != nil {
		return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", err)
	}

	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", err)
	}
	if user == nil {
		return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", ErrUserNotFound)
	}

	entries, err := f.ledgerRepo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", err)
	}

	total, err := f.ledgerRepo.Count(ctx, models.CreditTransactionFilter{UserID: &userID})
	if err != nil {
		return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", err)
	}

	items := make([]dto.CreditTransactionDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, ToCreditTransactionDTO(*e))
	}

	return &dto.CreditHistoryResponse{
		Items:      items,
		Balance:    user.Credits,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}, nil
}

// Private helper methods

func (f *SubmissionFlowImpl) validateCreateRequest(req *dto.CreateSubmissionRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(req.Description) == "" {
		return ErrDescriptionRequired
	}
	return nil
}

// createWithSerial persists the submission, retrying on the serial number
// unique constraint. Serial format: PA-YYYYMMDD-XXXXXXXX with an uppercase
// hex random segment.
func (f *SubmissionFlowImpl) createWithSerial(ctx context.Context, user *models.User, req *dto.CreateSubmissionRequest) (*models.Submission, error) {
	var lastErr error
	for attempt := 0; attempt < serialAttempts; attempt++ {
		serial, err := generateSerialNumber()
		if err != nil {
			return nil, err
		}

		submission := &models.Submission{
			SerialNumber:     serial,
			UserID:           user.ID,
			Title:            strings.TrimSpace(req.Title),
			Description:      req.Description,
			Claims:           req.Claims,
			Inventors:        req.Inventors,
			Institution:      req.Institution,
			UploadedFileName: req.UploadedFileName,
			FileText:         req.FileText,
			Status:           models.SubmissionStatusPending,
			SubmittedAt:      utils.UTCNow(),
			UpdatedAt:        utils.UTCNow(),
		}

		if err := f.submissionRepo.Save(ctx, submission); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return submission, nil
	}
	return nil, fmt.Errorf("failed to allocate a unique serial number after %d attempts: %w", serialAttempts, lastErr)
}

// runAnalysis moves the submission through Processing to Completed. Gateway
// errors never surface: the fallback report is stored instead and the
// submission completes anyway.
func (f *SubmissionFlowImpl) runAnalysis(ctx context.Context, submission *models.Submission, metadata *ClientMetadata, user *models.User) error {
	if err := f.submissionRepo.UpdateStatus(ctx, submission.ID, models.SubmissionStatusProcessing); err != nil {
		return err
	}
	submission.Status = models.SubmissionStatusProcessing

	report, err := f.analyzer.Analyze(ctx, submission)
	if err != nil || report == nil {
		report = services.FallbackReport(submission)

		msg := "Analyzer gateway unavailable, fallback report substituted"
		if err != nil {
			msg = fmt.Sprintf("%s: %s", msg, err.Error())
		}
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionAnalysisFallback, "submission", &submission.ID, msg, true, nil, metadata)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	analyzedAt := utils.UTCNow()
	if err := f.submissionRepo.CompleteAnalysis(ctx, submission.ID, payload, analyzedAt); err != nil {
		return err
	}

	submission.Status = models.SubmissionStatusCompleted
	submission.AnalysisResults = payload
	submission.AnalyzedAt = &analyzedAt

	msg := fmt.Sprintf("Analysis completed: %s", submission.SerialNumber)
	_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionAnalysisCompleted, "submission", &submission.ID, msg, true, nil, metadata)

	return nil
}

// generateSerialNumber builds a serial like PA-20260828-9F3A1C2B
func generateSerialNumber() (string, error) {
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s",
		utils.SerialPrefix,
		utils.UTCNow().Format(utils.SerialDateLayout),
		strings.ToUpper(hex.EncodeToString(random)),
	), nil
}

// isUniqueViolation detects a Postgres unique constraint error
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}
