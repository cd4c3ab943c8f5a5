package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserHasCredits(t *testing.T) {
	tests := []struct {
		name    string
		role    UserRole
		credits int
		amount  int
		want    bool
	}{
		{"regular with enough balance", RoleRegular, 5, 1, true},
		{"regular at exact balance", RoleRegular, 1, 1, true},
		{"regular with empty balance", RoleRegular, 0, 1, false},
		{"VIP with empty balance", RoleVIP, 0, 1, true},
		{"admin with empty balance", RoleAdmin, 0, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Role: tt.role, Credits: tt.credits}
			assert.Equal(t, tt.want, u.HasCredits(tt.amount))
		})
	}
}

func TestUserRoleChecks(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleVIP}).IsAdmin())

	assert.True(t, (&User{Role: RoleAdmin}).IsPrivileged())
	assert.True(t, (&User{Role: RoleVIP}).IsPrivileged())
	assert.False(t, (&User{Role: RoleRegular}).IsPrivileged())
}

func TestUserIsActive(t *testing.T) {
	assert.True(t, (&User{Status: UserStatusActive}).IsActive())
	assert.False(t, (&User{Status: UserStatusPending}).IsActive())
	assert.False(t, (&User{Status: UserStatusInactive}).IsActive())
}
