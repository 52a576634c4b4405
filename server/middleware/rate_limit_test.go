package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(10)

	t.Run("allows up to the burst", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			assert.True(t, rl.Allow(1), "request %d within the burst should pass", i+1)
		}
		assert.False(t, rl.Allow(1), "request past the burst should be rejected")
	})

	t.Run("users do not share buckets", func(t *testing.T) {
		assert.True(t, rl.Allow(2), "a fresh user has a full bucket")
	})
}
