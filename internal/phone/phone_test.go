package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("valid mobile number", func(t *testing.T) {
		number, region, err := Normalize("+254712345678")
		require.NoError(t, err)
		assert.Equal(t, "+254712345678", number)
		assert.Equal(t, "KE", region)
	})

	t.Run("missing plus is tolerated", func(t *testing.T) {
		number, region, err := Normalize("254712345678")
		require.NoError(t, err)
		assert.Equal(t, "+254712345678", number)
		assert.Equal(t, "KE", region)
	})

	t.Run("formatting noise is normalized away", func(t *testing.T) {
		number, _, err := Normalize("+1 415 555 2671")
		require.NoError(t, err)
		assert.Equal(t, "+14155552671", number)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, _, err := Normalize("not a number")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		_, _, err := Normalize("   ")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("too short to be valid", func(t *testing.T) {
		_, _, err := Normalize("+25471")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}
