package referralcode_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral_service/internal/lib/referralcode"
)

func TestNew(t *testing.T) {
	t.Run("uses the local part of the email", func(t *testing.T) {
		code, err := referralcode.New("alice@example.com")
		require.NoError(t, err)

		require.True(t, strings.HasPrefix(code, "ref-alice-"), "got %q", code)
		assert.Len(t, strings.TrimPrefix(code, "ref-alice-"), 6, "3 random bytes hex-encoded")
	})

	t.Run("email without an at sign is used whole", func(t *testing.T) {
		code, err := referralcode.New("alice")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(code, "ref-alice-"), "got %q", code)
	})

	t.Run("codes for the same email do not collide", func(t *testing.T) {
		seen := make(map[string]bool)

		for i := 0; i < 100; i++ {
			code, err := referralcode.New("alice@example.com")
			require.NoError(t, err)

			assert.False(t, seen[code], "duplicate code %q", code)
			seen[code] = true
		}
	})
}
