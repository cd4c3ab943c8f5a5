package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaServiceRotate(t *testing.T) {
	ctx := context.Background()
	svc, err := NewCaptchaServiceRotate(time.Minute, 15, 120)
	require.NoError(t, err)

	t.Run("generates a challenge with images", func(t *testing.T) {
		challenge, err := svc.GenerateRotate(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, challenge.ID)
		assert.NotEmpty(t, challenge.MasterImageBase64)
		assert.NotEmpty(t, challenge.ThumbImageBase64)
	})

	t.Run("rejects an unknown challenge ID", func(t *testing.T) {
		assert.False(t, svc.VerifyRotate(ctx, "no-such-challenge", 90))
	})

	t.Run("challenges are consumed on verification", func(t *testing.T) {
		challenge, err := svc.GenerateRotate(ctx)
		require.NoError(t, err)

		svc.VerifyRotate(ctx, challenge.ID, -400)
		assert.False(t, svc.VerifyRotate(ctx, challenge.ID, -400), "second attempt must fail regardless of angle")
	})

	t.Run("expired challenges fail verification", func(t *testing.T) {
		short, err := NewCaptchaServiceRotate(time.Millisecond, 15, 120)
		require.NoError(t, err)

		challenge, err := short.GenerateRotate(ctx)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		assert.False(t, short.VerifyRotate(ctx, challenge.ID, 90))
	})
}
