package businessflow

import (
	"context"

	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	"github.com/mmsu/prior-art-portal/utils"
)

// Credit ledger helpers. All three functions must run inside a transaction
// with the user row already locked via ByIDForUpdate; the lock serializes
// concurrent balance changes for the same user.

// hasSufficientCredits reports whether the user can afford a charge.
// Privileged roles (Admin, VIP) always pass.
func hasSufficientCredits(user *models.User, amount int) bool {
	return user.HasCredits(amount)
}

// debitCredits charges the user and appends a matching ledger entry. The
// debit never fails for business reasons: the balance clamps at zero, and
// privileged users are charged nothing. The entry's Amount records what was
// actually deducted so the ledger always sums to the stored balance.
func debitCredits(ctx context.Context, userRepo repository.UserRepository, ledgerRepo repository.CreditTransactionRepository, user *models.User, amount int, kind models.CreditTransactionKind, submissionID *uint, description string) (int, error) {
	newBalance := user.Credits
	if !user.IsPrivileged() {
		newBalance = user.Credits - amount
		if newBalance < 0 {
			newBalance = 0
		}
	}
	deducted := user.Credits - newBalance

	if deducted != 0 {
		if err := userRepo.UpdateCredits(ctx, user.ID, newBalance); err != nil {
			return 0, err
		}
	}

	entry := &models.CreditTransaction{
		UserID:       user.ID,
		SubmissionID: submissionID,
		Kind:         kind,
		Amount:       -deducted,
		BalanceAfter: newBalance,
		Description:  description,
		CreatedAt:    utils.UTCNow(),
	}
	if err := ledgerRepo.Save(ctx, entry); err != nil {
		return 0, err
	}

	user.Credits = newBalance
	return newBalance, nil
}

// creditCredits adds credits to the user and appends a matching ledger entry.
// A negative amount is allowed for admin adjustments; the balance still
// clamps at zero. Privileged balances never move, mirroring debitCredits.
func creditCredits(ctx context.Context, userRepo repository.UserRepository, ledgerRepo repository.CreditTransactionRepository, user *models.User, amount int, kind models.CreditTransactionKind, description string) (int, error) {
	newBalance := user.Credits
	if !user.IsPrivileged() {
		newBalance = user.Credits + amount
		if newBalance < 0 {
			newBalance = 0
		}
	}
	applied := newBalance - user.Credits

	if applied != 0 {
		if err := userRepo.UpdateCredits(ctx, user.ID, newBalance); err != nil {
			return 0, err
		}
	}

	entry := &models.CreditTransaction{
		UserID:       user.ID,
		Kind:         kind,
		Amount:       applied,
		BalanceAfter: newBalance,
		Description:  description,
		CreatedAt:    utils.UTCNow(),
	}
	if err := ledgerRepo.Save(ctx, entry); err != nil {
		return 0, err
	}

	user.Credits = newBalance
	return newBalance, nil
}
