package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	"github.com/mmsu/prior-art-portal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	statsCacheKey = "portal:dashboard_stats"
	statsCacheTTL = 60 * time.Second
)

// AdminFlow handles administrative operations: account approval, credit
// adjustments, broadcast announcements, the audit trail, portal statistics
// and XLSX exports.
type AdminFlow interface {
	ListUsers(ctx context.Context, adminID uint, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error)
	ApproveUser(ctx context.Context, adminID, userID uint, metadata *ClientMetadata) (*dto.ApproveUserResponse, error)
	DeactivateUser(ctx context.Context, adminID, userID uint, metadata *ClientMetadata) (*dto.DeactivateUserResponse, error)
	AdjustCredits(ctx context.Context, adminID, userID uint, req *dto.AdjustCreditsRequest, metadata *ClientMetadata) (*dto.AdjustCreditsResponse, error)
	BroadcastEmail(ctx context.Context, adminID uint, req *dto.BroadcastEmailRequest, metadata *ClientMetadata) (*dto.BroadcastEmailResponse, error)
	DashboardStats(ctx context.Context, adminID uint) (*dto.DashboardStatsResponse, error)
	ListAuditLogs(ctx context.Context, adminID uint, req *dto.ListAuditLogsRequest) (*dto.ListAuditLogsResponse, error)
	ExportUsers(ctx context.Context, adminID uint) (*dto.ExportResult, error)
	ExportSubmissions(ctx context.Context, adminID uint) (*dto.ExportResult, error)
	ExportLedger(ctx context.Context, adminID uint) (*dto.ExportResult, error)
}

// AdminFlowImpl implements the admin business flow
type AdminFlowImpl struct {
	userRepo        repository.UserRepository
	submissionRepo  repository.SubmissionRepository
	ledgerRepo      repository.CreditTransactionRepository
	downloadRepo    repository.DownloadHistoryRepository
	auditRepo       repository.AuditLogRepository
	emailLogRepo    repository.EmailLogRepository
	notificationSvc services.NotificationService
	db              *gorm.DB
	cache           *redis.Client
}

// NewAdminFlow creates a new admin flow instance
func NewAdminFlow(
	userRepo repository.UserRepository,
	submissionRepo repository.SubmissionRepository,
	ledgerRepo repository.CreditTransactionRepository,
	downloadRepo repository.DownloadHistoryRepository,
	auditRepo repository.AuditLogRepository,
	emailLogRepo repository.EmailLogRepository,
	notificationSvc services.NotificationService,
	db *gorm.DB,
	cache *redis.Client,
) AdminFlow {
	return &AdminFlowImpl{
		userRepo:        userRepo,
		submissionRepo:  submissionRepo,
		ledgerRepo:      ledgerRepo,
		downloadRepo:    downloadRepo,
		auditRepo:       auditRepo,
		emailLogRepo:    emailLogRepo,
		notificationSvc: notificationSvc,
		db:              db,
		cache:           cache,
	}
}

// ListUsers returns a page of portal users, optionally filtered by status
func (f *AdminFlowImpl) ListUsers(ctx context.Context, adminID uint, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error) {
	if _, err := f.requireAdmin(ctx, adminID); err != nil {
		return nil, NewBusinessError("ADMIN_LIST_USERS_FAILED", "Failed to list users", err)
	}

	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_USERS_FAILED", "Failed to list users", err)
	}

	filter := models.UserFilter{}
	if req.Status != "" {
		filter.Status = utils.ToPtr(models.UserStatus(req.Status))
	}

	users, err := f.userRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_USERS_FAILED", "Failed to list users", err)
	}

	total, err := f.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_USERS_FAILED", "Failed to list users", err)
	}

	items := make([]dto.UserDTO, 0, len(users))
	for _, u := range users {
		items = append(items, ToUserDTO(*u))
	}

	return &dto.ListUsersResponse{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}, nil
}

// ApproveUser activates a pending account and notifies the owner by email
func (f *AdminFlowImpl) ApproveUser(ctx context.Context, adminID, userID uint, metadata *ClientMetadata) (*dto.ApproveUserResponse, error) {
	admin, err := f.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_APPROVE_FAILED", "Failed to approve user", err)
	}

	var user *models.User

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = f.userRepo.ByID(txCtx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.Status != models.UserStatusPending {
			return ErrUserNotPending
		}

		if err := f.userRepo.UpdateStatus(txCtx, userID, models.UserStatusActive); err != nil {
			return err
		}
		user.Status = models.UserStatusActive
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("User approval failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, admin, models.AuditActionUserApproved, "user", &userID, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_APPROVE_FAILED", "Failed to approve user", err)
	} else {
		msg := fmt.Sprintf("User approved: %d", userID)
		_ = createAuditLog(ctx, f.auditRepo, admin, models.AuditActionUserApproved, "user", &userID, msg, true, nil, metadata)
	}

	f.sendAndLogEmail(ctx, user, "Account approved",
		fmt.Sprintf("Hello %s,\n\nYour disclosure portal account has been approved. You can now log in and submit technology disclosures.\n", user.Name))

	return &dto.ApproveUserResponse{
		Message: "User approved",
		User:    ToUserDTO(*user),
	}, nil
}

// DeactivateUser disables an account. Deactivated accounts keep their data
// and balance but cannot authenticate.
func (f *AdminFlowImpl) DeactivateUser(ctx context.Context, adminID, userID uint, metadata *ClientMetadata) (*dto.DeactivateUserResponse, error) {
	admin, err := f.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_DEACTIVATE_FAILED", "Failed to deactivate user", err)
	}

	var user *models.User

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = f.userRepo.ByID(txCtx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.IsAdmin() {
			return ErrForbidden
		}

		if err := f.userRepo.UpdateStatus(txCtx, userID, models.UserStatusInactive); err != nil {
			return err
		}
		user.Status = models.UserStatusInactive
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("User deactivation failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, admin, models.AuditActionUserDeactivated, "user", &userID, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_DEACTIVATE_FAILED", "Failed to deactivate user", err)
	} else {
		msg := fmt.Sprintf("User deactivated: %d", userID)
		_ = createAuditLog(ctx, f.auditRepo, admin, models.AuditActionUserDeactivated, "user", &userID, msg, true, nil, metadata)
	}

	return &dto.DeactivateUserResponse{
		Message: "User deactivated",
		User:    ToUserDTO(*user),
	}, nil
}

// AdjustCredits applies a manual balance change with a ledger entry. The
// amount may be negative; the balance clamps at zero either way.
func (f *AdminFlowImpl) AdjustCredits(ctx context.Context, adminID, userID uint, req *dto.AdjustCreditsRequest, metadata *ClientMetadata) (*dto.AdjustCreditsResponse, error) {
	admin, err := f.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_ADJUST_FAILED", "Failed to adjust credits", err)
	}

	if req.Amount == 0 {
		return nil, NewBusinessError("ADMIN_ADJUST_FAILED", "Failed to adjust credits", ErrInvalidAdjustmentAmount)
	}

	var user *models.User
	var newBalance int

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = f.userRepo.ByIDForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		newBalance, err = creditCredits(txCtx, f.userRepo, f.ledgerRepo, user, req.Amount, models.CreditKindAdjustment, req.Reason)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Credit adjustment failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, admin, models.AuditActionCreditsAdjusted, "user", &userID, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_ADJUST_FAILED", "Failed to adjust credits", err)
	} else {
		msg := fmt.Sprintf("Credits adjusted for user %d by %d (%s)", userID, req.Amount, req.Reason)
		_ = createAuditLog(ctx, f.auditRepo, admin, models.AuditActionCreditsAdjusted, "user", &userID, msg, true, nil, metadata)
	}

	return &dto.AdjustCreditsResponse{
		Message:    "Credits adjusted",
		UserID:     userID,
		Amount:     req.Amount,
		NewBalance: newBalance,
	}, nil
}

// BroadcastEmail sends an announcement to every active user. Deliveries run
// in the background; each attempt is recorded in the email log.
func (f *AdminFlowImpl) BroadcastEmail(ctx context.Context, adminID uint, req *dto.BroadcastEmailRequest, metadata *ClientMetadata) (*dto.BroadcastEmailResponse, error) {
	admin, err := f.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_BROADCAST_FAILED", "Failed to broadcast email", err)
	}

	emails, err := f.userRepo.ListActiveEmails(ctx)
	if err != nil {
		return nil, NewBusinessError("ADMIN_BROADCAST_FAILED", "Failed to broadcast email", err)
	}

	msg := fmt.Sprintf("Broadcast queued to %d recipients: %s", len(emails), req.Subject)
	_ = createAuditLog(ctx, f.auditRepo, admin, models.AuditActionBroadcastEmail, "email", nil, msg, true, nil, metadata)

	// Deliveries happen outside the request. Each recipient gets an email
	// log row created Pending and updated with the outcome.
	go func(subject, body string, recipients []string) {
		bgCtx := context.Background()
		for _, recipient := range recipients {
			f.deliverBroadcast(bgCtx, recipient, subject, body)
		}
	}(req.Subject, req.Body, emails)

	return &dto.BroadcastEmailResponse{
		Message:        "Broadcast queued",
		RecipientCount: len(emails),
	}, nil
}

// DashboardStats returns aggregate portal statistics, cached for a minute
func (f *AdminFlowImpl) DashboardStats(ctx context.Context, adminID uint) (*dto.DashboardStatsResponse, error) {
	if _, err := f.requireAdmin(ctx, adminID); err != nil {
		return nil, NewBusinessError("ADMIN_STATS_FAILED", "Failed to load stats", err)
	}

	if f.cache != nil {
		if cached, err := f.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var stats dto.DashboardStatsResponse
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := f.computeStats(ctx)
	if err != nil {
		return nil, NewBusinessError("ADMIN_STATS_FAILED", "Failed to load stats", err)
	}

	if f.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			_ = f.cache.Set(ctx, statsCacheKey, payload, statsCacheTTL).Err()
		}
	}

	return stats, nil
}

// ListAuditLogs returns a page of the audit trail, optionally narrowed to one
// action, one user, or failed actions only
func (f *AdminFlowImpl) ListAuditLogs(ctx context.Context, adminID uint, req *dto.ListAuditLogsRequest) (*dto.ListAuditLogsResponse, error) {
	if _, err := f.requireAdmin(ctx, adminID); err != nil {
		return nil, NewBusinessError("ADMIN_LIST_AUDIT_FAILED", "Failed to list audit logs", err)
	}

	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_AUDIT_FAILED", "Failed to list audit logs", err)
	}
	offset := (page - 1) * pageSize

	filter := models.AuditLogFilter{}
	var entries []*models.AuditLog
	switch {
	case req.Action != "":
		filter.Action = &req.Action
		entries, err = f.auditRepo.ListByAction(ctx, req.Action, pageSize, offset)
	case req.UserID != 0:
		filter.UserID = &req.UserID
		entries, err = f.auditRepo.ListByUser(ctx, req.UserID, pageSize, offset)
	case req.FailedOnly:
		filter.Success = utils.ToPtr(false)
		entries, err = f.auditRepo.ListFailedActions(ctx, pageSize, offset)
	default:
		entries, err = f.auditRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, offset)
	}
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_AUDIT_FAILED", "Failed to list audit logs", err)
	}

	total, err := f.auditRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_AUDIT_FAILED", "Failed to list audit logs", err)
	}

	items := make([]dto.AuditLogDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, ToAuditLogDTO(*e))
	}

	return &dto.ListAuditLogsResponse{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}, nil
}

// ExportUsers renders all portal users into an XLSX workbook
func (f *AdminFlowImpl) ExportUsers(ctx context.Context, adminID uint) (*dto.ExportResult, error) {
	if _, err := f.requireAdmin(ctx, adminID); err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export users", err)
	}

	users, err := f.userRepo.ByFilter(ctx, models.UserFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export users", err)
	}

	headers := []string{"ID", "Email", "Name", "Institution", "Role", "Credits", "Status", "Disclaimer Accepted", "Created At"}
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{
			u.ID,
			u.Email,
			u.Name,
			derefOrEmpty(u.Institution),
			string(u.Role),
			u.Credits,
			string(u.Status),
			u.DisclaimerAccepted,
			u.CreatedAt.Format(time.RFC3339),
		})
	}

	content, err := renderWorkbook(headers, rows)
	if err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export users", err)
	}

	return &dto.ExportResult{
		FileName: fmt.Sprintf("users-%s.xlsx", utils.UTCNow().Format(utils.SerialDateLayout)),
		Content:  content,
	}, nil
}

// ExportSubmissions renders all disclosures into an XLSX workbook
func (f *AdminFlowImpl) ExportSubmissions(ctx context.Context, adminID uint) (*dto.ExportResult, error) {
	if _, err := f.requireAdmin(ctx, adminID); err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export submissions", err)
	}

	submissions, err := f.submissionRepo.ByFilter(ctx, models.SubmissionFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export submissions", err)
	}

	headers := []string{"ID", "Serial Number", "User ID", "Title", "Status", "Submitted At", "Analyzed At"}
	rows := make([][]any, 0, len(submissions))
	for _, s := range submissions {
		analyzedAt := ""
		if s.AnalyzedAt != nil {
			analyzedAt = s.AnalyzedAt.Format(time.RFC3339)
		}
		rows = append(rows, []any{
			s.ID,
			s.SerialNumber,
			s.UserID,
			s.Title,
			string(s.Status),
			s.SubmittedAt.Format(time.RFC3339),
			analyzedAt,
		})
	}

	content, err := renderWorkbook(headers, rows)
	if err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export submissions", err)
	}

	return &dto.ExportResult{
		FileName: fmt.Sprintf("submissions-%s.xlsx", utils.UTCNow().Format(utils.SerialDateLayout)),
		Content:  content,
	}, nil
}

// ExportLedger renders every credit ledger entry into an XLSX workbook
func (f *AdminFlowImpl) ExportLedger(ctx context.Context, adminID uint) (*dto.ExportResult, error) {
	if _, err := f.requireAdmin(ctx, adminID); err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export ledger", err)
	}

	entries, err := f.ledgerRepo.ByFilter(ctx, models.CreditTransactionFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export ledger", err)
	}

	headers := []string{"ID", "User ID", "Submission ID", "Kind", "Amount", "Balance After", "Description", "Created At"}
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		submissionID := any("")
		if e.SubmissionID != nil {
			submissionID = *e.SubmissionID
		}
		rows = append(rows, []any{
			e.ID,
			e.UserID,
			submissionID,
			string(e.Kind),
			e.Amount,
			e.BalanceAfter,
			e.Description,
			e.CreatedAt.Format(time.RFC3339),
		})
	}

	content, err := renderWorkbook(headers, rows)
	if err != nil {
		return nil, NewBusinessError("ADMIN_EXPORT_FAILED", "Failed to export ledger", err)
	}

	return &dto.ExportResult{
		FileName: fmt.Sprintf("ledger-%s.xlsx", utils.UTCNow().Format(utils.SerialDateLayout)),
		Content:  content,
	}, nil
}

// Private helper methods

func (f *AdminFlowImpl) requireAdmin(ctx context.Context, adminID uint) (*models.User, error) {
	admin, err := getActiveUser(ctx, f.userRepo, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	return admin, nil
}

func (f *AdminFlowImpl) computeStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	now := utils.UTCNow()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	totalUsers, err := f.userRepo.Count(ctx, models.UserFilter{})
	if err != nil {
		return nil, err
	}
	activeUsers, err := f.userRepo.Count(ctx, models.UserFilter{Status: utils.ToPtr(models.UserStatusActive)})
	if err != nil {
		return nil, err
	}
	pendingUsers, err := f.userRepo.Count(ctx, models.UserFilter{Status: utils.ToPtr(models.UserStatusPending)})
	if err != nil {
		return nil, err
	}
	newUsersThisWeek, err := f.userRepo.Count(ctx, models.UserFilter{CreatedAfter: &weekStart})
	if err != nil {
		return nil, err
	}
	totalSubmissions, err := f.submissionRepo.Count(ctx, models.SubmissionFilter{})
	if err != nil {
		return nil, err
	}
	completedSubmissions, err := f.submissionRepo.CountByStatus(ctx, models.SubmissionStatusCompleted)
	if err != nil {
		return nil, err
	}
	submissionsToday, err := f.submissionRepo.Count(ctx, models.SubmissionFilter{SubmittedAfter: &dayStart})
	if err != nil {
		return nil, err
	}
	submissionsThisWeek, err := f.submissionRepo.Count(ctx, models.SubmissionFilter{SubmittedAfter: &weekStart})
	if err != nil {
		return nil, err
	}
	totalDownloads, err := f.downloadRepo.Count(ctx, models.DownloadHistoryFilter{})
	if err != nil {
		return nil, err
	}
	analysisSpent, err := f.ledgerRepo.SumDebitsByKind(ctx, models.CreditKindAnalysis)
	if err != nil {
		return nil, err
	}
	downloadSpent, err := f.ledgerRepo.SumDebitsByKind(ctx, models.CreditKindDownload)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardStatsResponse{
		TotalUsers:           totalUsers,
		ActiveUsers:          activeUsers,
		PendingUsers:         pendingUsers,
		NewUsersThisWeek:     newUsersThisWeek,
		TotalSubmissions:     totalSubmissions,
		CompletedSubmissions: completedSubmissions,
		SubmissionsToday:     submissionsToday,
		SubmissionsThisWeek:  submissionsThisWeek,
		TotalDownloads:       totalDownloads,
		AnalysisCreditsSpent: analysisSpent,
		DownloadCreditsSpent: downloadSpent,
	}, nil
}

// renderWorkbook writes a header row and data rows into a single-sheet XLSX
// workbook
func renderWorkbook(headers []string, rows [][]any) ([]byte, error) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(sheet, cell, h)
	}
	for rowIdx, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			_ = wb.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deliverBroadcast records and attempts one delivery
func (f *AdminFlowImpl) deliverBroadcast(ctx context.Context, recipient, subject, body string) {
	entry := &models.EmailLog{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Status:    models.EmailStatusPending,
		CreatedAt: utils.UTCNow(),
	}
	if err := f.emailLogRepo.Save(ctx, entry); err != nil {
		return
	}

	if err := f.notificationSvc.SendEmail(ctx, recipient, subject, body); err != nil {
		_ = f.emailLogRepo.MarkFailed(ctx, entry.ID, err.Error())
		return
	}
	_ = f.emailLogRepo.MarkSent(ctx, entry.ID, utils.UTCNow())
}

// sendAndLogEmail is the single-recipient variant used for approval notices
func (f *AdminFlowImpl) sendAndLogEmail(ctx context.Context, user *models.User, subject, body string) {
	go func() {
		bgCtx := context.Background()
		entry := &models.EmailLog{
			UserID:    &user.ID,
			Recipient: user.Email,
			Subject:   subject,
			Body:      body,
			Status:    models.EmailStatusPending,
			CreatedAt: utils.UTCNow(),
		}
		if err := f.emailLogRepo.Save(bgCtx, entry); err != nil {
			return
		}
		if err := f.notificationSvc.SendEmail(bgCtx, user.Email, subject, body); err != nil {
			_ = f.emailLogRepo.MarkFailed(bgCtx, entry.ID, err.Error())
			return
		}
		_ = f.emailLogRepo.MarkSent(bgCtx, entry.ID, utils.UTCNow())
	}()
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
