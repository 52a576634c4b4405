package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSigning(t *testing.T) {
	const secret = "test-secret"

	t.Run("round trip", func(t *testing.T) {
		value := SignSession(secret, 42)
		userID, ok := VerifySession(secret, value)
		require.True(t, ok)
		assert.Equal(t, int32(42), userID)
	})

	t.Run("tampered user id is rejected", func(t *testing.T) {
		value := SignSession(secret, 42)
		_, ok := VerifySession(secret, "43"+value[2:])
		assert.False(t, ok)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		value := SignSession(secret, 42)
		_, ok := VerifySession("other-secret", value)
		assert.False(t, ok)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, ok := VerifySession(secret, "not-a-session")
		assert.False(t, ok)
	})
}
