package repository

import (
	"testing"

	"github.com/mmsu/prior-art-portal/models"
	testingutil "github.com/mmsu/prior-art-portal/testing"
	"github.com/mmsu/prior-art-portal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteAnalysisSetOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := NewSubmissionRepository(testDB.DB)

		user, err := fixtures.CreateTestUser(models.RoleRegular, 50)
		require.NoError(t, err)
		submission, err := fixtures.CreatePendingSubmission(user.ID)
		require.NoError(t, err)

		payload := []byte(`{"prior_art_report":[],"patentability_analysis":{"novelty":"Appears novel"}}`)

		t.Run("rejects a submission that is not processing", func(t *testing.T) {
			err := repo.CompleteAnalysis(ctx, submission.ID, payload, utils.UTCNow())
			require.ErrorIs(t, err, ErrSubmissionNotProcessing)
		})

		t.Run("completes a processing submission", func(t *testing.T) {
			require.NoError(t, repo.UpdateStatus(ctx, submission.ID, models.SubmissionStatusProcessing))
			require.NoError(t, repo.CompleteAnalysis(ctx, submission.ID, payload, utils.UTCNow()))

			stored, err := repo.ByID(ctx, submission.ID)
			require.NoError(t, err)
			assert.Equal(t, models.SubmissionStatusCompleted, stored.Status)
			assert.JSONEq(t, string(payload), string(stored.AnalysisResults))
			assert.NotNil(t, stored.AnalyzedAt)
		})

		t.Run("never overwrites stored results", func(t *testing.T) {
			err := repo.CompleteAnalysis(ctx, submission.ID, []byte(`{"overwritten":true}`), utils.UTCNow())
			require.ErrorIs(t, err, ErrSubmissionNotProcessing)

			stored, err := repo.ByID(ctx, submission.ID)
			require.NoError(t, err)
			assert.JSONEq(t, string(payload), string(stored.AnalysisResults))
		})

		return nil
	})
	require.NoError(t, err)
}
