package businessflow

import (
	"testing"

	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	testingutil "github.com/mmsu/prior-art-portal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebitCredits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		userRepo := repository.NewUserRepository(testDB.DB)
		ledgerRepo := repository.NewCreditTransactionRepository(testDB.DB)

		t.Run("standard user pays the full amount", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
			require.NoError(t, err)

			balance, err := debitCredits(ctx, userRepo, ledgerRepo, user, 1, models.CreditKindAnalysis, nil, "analysis charge")
			require.NoError(t, err)
			assert.Equal(t, 49, balance)
			assert.Equal(t, 49, user.Credits)

			stored, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, 49, stored.Credits)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, -1, entry.Amount)
			assert.Equal(t, 49, entry.BalanceAfter)
			assert.Equal(t, models.CreditKindAnalysis, entry.Kind)
			assert.True(t, entry.IsDebit())
		})

		t.Run("balance clamps at zero", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 3)
			require.NoError(t, err)

			balance, err := debitCredits(ctx, userRepo, ledgerRepo, user, 5, models.CreditKindDownload, nil, "oversized charge")
			require.NoError(t, err)
			assert.Equal(t, 0, balance)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, -3, entry.Amount, "entry records what was actually deducted")
			assert.Equal(t, 0, entry.BalanceAfter)
		})

		t.Run("privileged user is charged nothing", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleVIP, 10)
			require.NoError(t, err)

			balance, err := debitCredits(ctx, userRepo, ledgerRepo, user, 1, models.CreditKindAnalysis, nil, "privileged analysis")
			require.NoError(t, err)
			assert.Equal(t, 10, balance)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, 0, entry.Amount, "privileged debits still leave a zero-amount entry")
			assert.Equal(t, 10, entry.BalanceAfter)
			assert.False(t, entry.IsDebit())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCreditCredits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		userRepo := repository.NewUserRepository(testDB.DB)
		ledgerRepo := repository.NewCreditTransactionRepository(testDB.DB)

		t.Run("positive amount increases the balance", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
			require.NoError(t, err)

			balance, err := creditCredits(ctx, userRepo, ledgerRepo, user, 25, models.CreditKindAdjustment, "department grant")
			require.NoError(t, err)
			assert.Equal(t, 75, balance)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, 25, entry.Amount)
			assert.Equal(t, 75, entry.BalanceAfter)
		})

		t.Run("negative adjustment clamps at zero", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 3)
			require.NoError(t, err)

			balance, err := creditCredits(ctx, userRepo, ledgerRepo, user, -10, models.CreditKindAdjustment, "revoke unused grant")
			require.NoError(t, err)
			assert.Equal(t, 0, balance)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, -3, entry.Amount, "only the applied delta is recorded")
			assert.Equal(t, 0, entry.BalanceAfter)
		})

		t.Run("privileged balance never moves", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleAdmin, 7)
			require.NoError(t, err)

			balance, err := creditCredits(ctx, userRepo, ledgerRepo, user, 25, models.CreditKindAdjustment, "grant to admin")
			require.NoError(t, err)
			assert.Equal(t, 7, balance)

			entry, err := ledgerRepo.LatestByUser(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, 0, entry.Amount)
			assert.Equal(t, 7, entry.BalanceAfter)
		})

		t.Run("ledger sums to the stored balance", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.RoleRegular, 0)
			require.NoError(t, err)

			_, err = creditCredits(ctx, userRepo, ledgerRepo, user, 50, models.CreditKindGrant, "initial grant")
			require.NoError(t, err)
			_, err = debitCredits(ctx, userRepo, ledgerRepo, user, 1, models.CreditKindAnalysis, nil, "analysis")
			require.NoError(t, err)
			_, err = debitCredits(ctx, userRepo, ledgerRepo, user, 1, models.CreditKindDownload, nil, "download")
			require.NoError(t, err)

			entries, err := ledgerRepo.ListByUser(ctx, user.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, entries, 3)

			sum := 0
			for _, e := range entries {
				sum += e.Amount
			}
			stored, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, stored.Credits, sum)
		})

		return nil
	})
	require.NoError(t, err)
}
