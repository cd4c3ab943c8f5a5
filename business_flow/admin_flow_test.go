package businessflow

import (
	"testing"

	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	testingutil "github.com/mmsu/prior-art-portal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdminFlow(testDB *testingutil.TestDB) AdminFlow {
	return NewAdminFlow(
		repository.NewUserRepository(testDB.DB),
		repository.NewSubmissionRepository(testDB.DB),
		repository.NewCreditTransactionRepository(testDB.DB),
		repository.NewDownloadHistoryRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		repository.NewEmailLogRepository(testDB.DB),
		services.NewNotificationService(services.NewMockEmailProvider()),
		testDB.DB,
		nil, // stats caching is optional
	)
}

func TestApproveUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)
		userRepo := repository.NewUserRepository(testDB.DB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)

		t.Run("activates a pending account", func(t *testing.T) {
			pending, err := fixtures.CreatePendingUser()
			require.NoError(t, err)

			resp, err := flow.ApproveUser(ctx, admin.ID, pending.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.UserStatusActive), resp.User.Status)

			stored, err := userRepo.ByID(ctx, pending.ID)
			require.NoError(t, err)
			assert.Equal(t, models.UserStatusActive, stored.Status)
		})

		t.Run("rejects a second approval", func(t *testing.T) {
			pending, err := fixtures.CreatePendingUser()
			require.NoError(t, err)

			_, err = flow.ApproveUser(ctx, admin.ID, pending.ID, metadata)
			require.NoError(t, err)

			_, err = flow.ApproveUser(ctx, admin.ID, pending.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsUserNotPending(err))
		})

		t.Run("rejects non-admin callers", func(t *testing.T) {
			regular, err := fixtures.CreateTestUser(models.RoleRegular, 50)
			require.NoError(t, err)
			pending, err := fixtures.CreatePendingUser()
			require.NoError(t, err)

			_, err = flow.ApproveUser(ctx, regular.ID, pending.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsForbidden(err))
		})

		t.Run("unknown user", func(t *testing.T) {
			_, err := flow.ApproveUser(ctx, admin.ID, 999999, metadata)
			require.Error(t, err)
			assert.True(t, IsUserNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeactivateUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)
		userRepo := repository.NewUserRepository(testDB.DB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)

		t.Run("deactivates a regular account keeping its balance", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 42)
			require.NoError(t, err)

			resp, err := flow.DeactivateUser(ctx, admin.ID, user.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.UserStatusInactive), resp.User.Status)

			stored, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, models.UserStatusInactive, stored.Status)
			assert.Equal(t, 42, stored.Credits)
		})

		t.Run("refuses to deactivate an admin", func(t *testing.T) {
			otherAdmin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
			require.NoError(t, err)

			_, err = flow.DeactivateUser(ctx, admin.ID, otherAdmin.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsForbidden(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdjustCredits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)
		ledgerRepo := repository.NewCreditTransactionRepository(testDB.DB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)

		t.Run("grants credits with a ledger entry", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
			require.NoError(t, err)

			resp, err := flow.AdjustCredits(ctx, admin.ID, user.ID, &dto.AdjustCreditsRequest{
				Amount: 25,
				Reason: "Grant for department pilot program",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 75, resp.NewBalance)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, models.CreditKindAdjustment, entry.Kind)
			assert.Equal(t, 25, entry.Amount)
			assert.Equal(t, 75, entry.BalanceAfter)
		})

		t.Run("negative adjustment clamps at zero", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 5)
			require.NoError(t, err)

			resp, err := flow.AdjustCredits(ctx, admin.ID, user.ID, &dto.AdjustCreditsRequest{
				Amount: -100,
				Reason: "Revoke unused pilot grant",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 0, resp.NewBalance)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, -5, entry.Amount)
			assert.Equal(t, 0, entry.BalanceAfter)
		})

		t.Run("rejects a zero amount", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 5)
			require.NoError(t, err)

			_, err = flow.AdjustCredits(ctx, admin.ID, user.ID, &dto.AdjustCreditsRequest{
				Amount: 0,
				Reason: "No-op",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsInvalidAdjustmentAmount(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListUsersAndStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)
		active, err := fixtures.CreateTestUser(models.RoleRegular, 10)
		require.NoError(t, err)
		_, err = fixtures.CreatePendingUser()
		require.NoError(t, err)
		_, err = fixtures.CreateTestSubmission(active.ID)
		require.NoError(t, err)

		t.Run("filters users by status", func(t *testing.T) {
			resp, err := flow.ListUsers(ctx, admin.ID, &dto.ListUsersRequest{Status: string(models.UserStatusPending)})
			require.NoError(t, err)
			require.Len(t, resp.Items, 1)
			assert.Equal(t, string(models.UserStatusPending), resp.Items[0].Status)
		})

		t.Run("lists all users without a filter", func(t *testing.T) {
			resp, err := flow.ListUsers(ctx, admin.ID, &dto.ListUsersRequest{})
			require.NoError(t, err)
			assert.EqualValues(t, 3, resp.TotalItems)
		})

		t.Run("computes dashboard stats", func(t *testing.T) {
			stats, err := flow.DashboardStats(ctx, admin.ID)
			require.NoError(t, err)
			assert.EqualValues(t, 3, stats.TotalUsers)
			assert.EqualValues(t, 2, stats.ActiveUsers)
			assert.EqualValues(t, 1, stats.PendingUsers)
			assert.EqualValues(t, 3, stats.NewUsersThisWeek)
			assert.EqualValues(t, 1, stats.TotalSubmissions)
			assert.EqualValues(t, 1, stats.CompletedSubmissions)
			assert.EqualValues(t, 1, stats.SubmissionsToday)
			assert.EqualValues(t, 1, stats.SubmissionsThisWeek)
		})

		t.Run("rejects non-admin callers", func(t *testing.T) {
			_, err := flow.DashboardStats(ctx, active.ID)
			require.Error(t, err)
			assert.True(t, IsForbidden(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestExportUsers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)
		_, err = fixtures.CreateTestUser(models.RoleRegular, 50)
		require.NoError(t, err)

		result, err := flow.ExportUsers(ctx, admin.ID)
		require.NoError(t, err)
		assert.Regexp(t, `^users-\d{8}\.xlsx$`, result.FileName)
		require.True(t, len(result.Content) > 4)
		assert.Equal(t, "PK", string(result.Content[:2]), "XLSX is a ZIP container")

		return nil
	})
	require.NoError(t, err)
}

func TestBroadcastEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)
		_, err = fixtures.CreateTestUser(models.RoleRegular, 50)
		require.NoError(t, err)
		_, err = fixtures.CreatePendingUser()
		require.NoError(t, err)

		resp, err := flow.BroadcastEmail(ctx, admin.ID, &dto.BroadcastEmailRequest{
			Subject: "Scheduled maintenance",
			Body:    "The portal will be unavailable on Saturday morning.",
		}, metadata)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.RecipientCount, "pending accounts are not addressed")

		return nil
	})
	require.NoError(t, err)
}

func TestListAuditLogs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)
		user, err := fixtures.CreateTestUser(models.RoleRegular, 10)
		require.NoError(t, err)

		_, err = fixtures.CreateTestAuditLog(&user.ID, models.AuditActionSubmissionCreated, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&user.ID, models.AuditActionPDFDownloaded, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(nil, models.AuditActionLoginFailed, false)
		require.NoError(t, err)

		t.Run("lists the full trail", func(t *testing.T) {
			resp, err := flow.ListAuditLogs(ctx, admin.ID, &dto.ListAuditLogsRequest{})
			require.NoError(t, err)
			assert.EqualValues(t, 3, resp.TotalItems)
			assert.Len(t, resp.Items, 3)
		})

		t.Run("filters by action", func(t *testing.T) {
			resp, err := flow.ListAuditLogs(ctx, admin.ID, &dto.ListAuditLogsRequest{Action: models.AuditActionPDFDownloaded})
			require.NoError(t, err)
			require.Len(t, resp.Items, 1)
			assert.Equal(t, models.AuditActionPDFDownloaded, resp.Items[0].Action)
			assert.EqualValues(t, 1, resp.TotalItems)
		})

		t.Run("filters by user", func(t *testing.T) {
			resp, err := flow.ListAuditLogs(ctx, admin.ID, &dto.ListAuditLogsRequest{UserID: user.ID})
			require.NoError(t, err)
			assert.Len(t, resp.Items, 2)
			for _, item := range resp.Items {
				require.NotNil(t, item.UserID)
				assert.Equal(t, user.ID, *item.UserID)
			}
		})

		t.Run("failed actions only", func(t *testing.T) {
			resp, err := flow.ListAuditLogs(ctx, admin.ID, &dto.ListAuditLogsRequest{FailedOnly: true})
			require.NoError(t, err)
			require.Len(t, resp.Items, 1)
			assert.Equal(t, models.AuditActionLoginFailed, resp.Items[0].Action)
			assert.False(t, resp.Items[0].Success)
		})

		t.Run("rejects non-admin callers", func(t *testing.T) {
			_, err := flow.ListAuditLogs(ctx, user.ID, &dto.ListAuditLogsRequest{})
			require.Error(t, err)
			assert.True(t, IsForbidden(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestExportSubmissionsAndLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAdminFlow(testDB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		admin, err := fixtures.CreateTestUser(models.RoleAdmin, 0)
		require.NoError(t, err)
		user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
		require.NoError(t, err)
		_, err = fixtures.CreateTestSubmission(user.ID)
		require.NoError(t, err)
		_, err = flow.AdjustCredits(ctx, admin.ID, user.ID, &dto.AdjustCreditsRequest{
			Amount: 10,
			Reason: "Grant for department pilot program",
		}, metadata)
		require.NoError(t, err)

		t.Run("exports submissions", func(t *testing.T) {
			result, err := flow.ExportSubmissions(ctx, admin.ID)
			require.NoError(t, err)
			assert.Regexp(t, `^submissions-\d{8}\.xlsx$`, result.FileName)
			require.True(t, len(result.Content) > 4)
			assert.Equal(t, "PK", string(result.Content[:2]), "XLSX is a ZIP container")
		})

		t.Run("exports the ledger", func(t *testing.T) {
			result, err := flow.ExportLedger(ctx, admin.ID)
			require.NoError(t, err)
			assert.Regexp(t, `^ledger-\d{8}\.xlsx$`, result.FileName)
			require.True(t, len(result.Content) > 4)
			assert.Equal(t, "PK", string(result.Content[:2]), "XLSX is a ZIP container")
		})

		t.Run("rejects non-admin callers", func(t *testing.T) {
			_, err := flow.ExportSubmissions(ctx, user.ID)
			require.Error(t, err)
			assert.True(t, IsForbidden(err))
		})

		return nil
	})
	require.NoError(t, err)
}
