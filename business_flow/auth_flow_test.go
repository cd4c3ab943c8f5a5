package businessflow

import (
	"testing"
	"time"

	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	testingutil "github.com/mmsu/prior-art-portal/testing"
	"github.com/mmsu/prior-art-portal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()
	tokenService, err := services.NewTokenService(
		15*time.Minute, 24*time.Hour,
		"prior-art-portal", "portal-clients",
		false, "", "", "test-secret-key-for-auth-flow-tests",
	)
	require.NoError(t, err)
	return tokenService
}

func newTestAuthFlow(t *testing.T, testDB *testingutil.TestDB) AuthFlow {
	t.Helper()
	return NewAuthFlow(
		repository.NewUserRepository(testDB.DB),
		repository.NewCreditTransactionRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		newTestTokenService(t),
		nil, // captcha verification is exercised at the service level
		testDB.DB,
	)
}

func TestRegister(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		flow := newTestAuthFlow(t, testDB)
		userRepo := repository.NewUserRepository(testDB.DB)
		ledgerRepo := repository.NewCreditTransactionRepository(testDB.DB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		t.Run("creates a pending account with the initial grant", func(t *testing.T) {
			req := &dto.RegisterRequest{
				Email:    "new.researcher@example.edu",
				Password: "SecurePass123!",
				Name:     "Anna Sokolova",
			}

			resp, err := flow.Register(ctx, req, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.UserStatusPending), resp.Status)
			assert.Equal(t, utils.DefaultCredits, resp.Credits)

			user, err := userRepo.ByID(ctx, resp.UserID)
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, models.UserStatusPending, user.Status)
			assert.Equal(t, models.RoleRegular, user.Role)
			assert.Equal(t, utils.DefaultCredits, user.Credits)
			assert.False(t, user.DisclaimerAccepted)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, models.CreditKindGrant, entry.Kind)
			assert.Equal(t, utils.DefaultCredits, entry.Amount)
			assert.Equal(t, utils.DefaultCredits, entry.BalanceAfter)
		})

		t.Run("rejects a duplicate email", func(t *testing.T) {
			req := &dto.RegisterRequest{
				Email:    "new.researcher@example.edu",
				Password: "AnotherPass123!",
				Name:     "Anna Sokolova",
			}

			_, err := flow.Register(ctx, req, metadata)
			require.Error(t, err)
			assert.True(t, IsEmailAlreadyExists(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAuthFlow(t, testDB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		t.Run("issues tokens for an active account", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
			require.NoError(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.NoError(t, err)
			assert.NotEmpty(t, resp.AccessToken)
			assert.NotEmpty(t, resp.RefreshToken)
			assert.Equal(t, "Bearer", resp.TokenType)
			assert.Equal(t, user.ID, resp.User.ID)
		})

		t.Run("rejects a wrong password", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
			require.NoError(t, err)

			_, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsInvalidCredentials(err))
		})

		t.Run("rejects an unknown email", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    "nobody@example.edu",
				Password: "TestPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsInvalidCredentials(err))
		})

		t.Run("blocks accounts awaiting approval", func(t *testing.T) {
			user, err := fixtures.CreatePendingUser()
			require.NoError(t, err)

			_, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsAccountNotActive(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRefreshToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAuthFlow(t, testDB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
		require.NoError(t, err)

		login, err := flow.Login(ctx, &dto.LoginRequest{
			Email:    user.Email,
			Password: "TestPass123!",
		}, metadata)
		require.NoError(t, err)

		t.Run("exchanges a refresh token for a new pair", func(t *testing.T) {
			resp, err := flow.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
			require.NoError(t, err)
			assert.NotEmpty(t, resp.AccessToken)
			assert.Equal(t, user.ID, resp.User.ID)
		})

		t.Run("rejects an access token", func(t *testing.T) {
			_, err := flow.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.AccessToken})
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAcceptDisclaimer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAuthFlow(t, testDB)
		userRepo := repository.NewUserRepository(testDB.DB)
		metadata := NewClientMetadata("127.0.0.1", "go-test")

		user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.User{}).Where("id = ?", user.ID).
			Updates(map[string]any{"disclaimer_accepted": false, "disclaimer_accepted_at": nil}).Error)

		t.Run("records the acceptance once", func(t *testing.T) {
			resp, err := flow.AcceptDisclaimer(ctx, user.ID, metadata)
			require.NoError(t, err)
			assert.NotEmpty(t, resp.AcceptedAt)

			stored, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.True(t, stored.DisclaimerAccepted)
			assert.NotNil(t, stored.DisclaimerAcceptedAt)
		})

		t.Run("rejects a second acceptance", func(t *testing.T) {
			_, err := flow.AcceptDisclaimer(ctx, user.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsDisclaimerAlreadyAccepted(err))
		})

		return nil
	})
	require.NoError(t, err)
}
