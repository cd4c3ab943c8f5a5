package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-token-service-tests"

func newHMACTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(accessTTL, refreshTTL, "prior-art-portal", "portal-clients", false, "", "", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name      string
		useRSA    bool
		secret    string
		expectErr bool
	}{
		{
			name:   "HMAC with secret",
			useRSA: false,
			secret: testSecret,
		},
		{
			name:      "HMAC without secret",
			useRSA:    false,
			secret:    "",
			expectErr: true,
		},
		{
			name:      "RSA without keys",
			useRSA:    true,
			secret:    "",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(15*time.Minute, 24*time.Hour, "iss", "aud", tt.useRSA, "", "", tt.secret)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	svc := newHMACTokenService(t, 15*time.Minute, 24*time.Hour)

	accessToken, refreshToken, err := svc.GenerateTokens(42, "Regular")
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	t.Run("access token claims", func(t *testing.T) {
		claims, err := svc.ValidateToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "Regular", claims.Role)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)
		assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
	})

	t.Run("refresh token claims", func(t *testing.T) {
		claims, err := svc.ValidateToken(refreshToken)
		require.NoError(t, err)
		assert.Equal(t, "refresh", claims.TokenType)
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken(accessToken + "x")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestExpiredToken(t *testing.T) {
	svc := newHMACTokenService(t, -time.Minute, -time.Minute)

	accessToken, _, err := svc.GenerateTokens(7, "Regular")
	require.NoError(t, err)

	_, err = svc.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokenRotation(t *testing.T) {
	svc := newHMACTokenService(t, 15*time.Minute, 24*time.Hour)

	accessToken, refreshToken, err := svc.GenerateTokens(42, "VIP")
	require.NoError(t, err)

	t.Run("refresh token yields a new pair", func(t *testing.T) {
		newAccess, newRefresh, err := svc.RefreshToken(refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEmpty(t, newRefresh)

		claims, err := svc.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "VIP", claims.Role)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("access token cannot be used for refresh", func(t *testing.T) {
		_, _, err := svc.RefreshToken(accessToken)
		assert.Error(t, err)
	})

	t.Run("different secret rejects the token", func(t *testing.T) {
		other, err := NewTokenService(15*time.Minute, 24*time.Hour, "iss", "aud", false, "", "", "completely-different-secret")
		require.NoError(t, err)

		_, err = other.ValidateToken(refreshToken)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
