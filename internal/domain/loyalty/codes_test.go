package loyalty

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cardIDPattern = regexp.MustCompile(`^[A-Z]{4}-\d{4}-\d{6}[A-Z0-9]{4}$`)

func TestCardPrefix(t *testing.T) {
	tests := []struct {
		name     string
		business string
		want     string
	}{
		{"plain name", "Bella Beauty", "BELL"},
		{"accents folded", "Élégance Spa", "ELEG"},
		{"digits and spaces skipped", "Spa 1", "SPAX"},
		{"short name padded", "Ô", "OXXX"},
		{"empty name", "", "XXXX"},
		{"lowercase", "nails & co", "NAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CardPrefix(tt.business))
		})
	}
}

func TestGenerateCardID(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

	id, err := GenerateCardID("Bella Beauty", now)
	require.NoError(t, err)

	assert.Regexp(t, cardIDPattern, id)
	expectedPrefix := fmt.Sprintf("BELL-2026-%06d", now.UnixMilli()%1_000_000)
	assert.Equal(t, expectedPrefix, id[:len(expectedPrefix)])
}

func TestGenerateRedemptionCode(t *testing.T) {
	t.Run("matches RWD format", func(t *testing.T) {
		code, err := GenerateRedemptionCode()
		require.NoError(t, err)
		assert.True(t, IsRedemptionCode(code), "unexpected code %s", code)
	})

	t.Run("codes are spread out", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 1000; i++ {
			code, err := GenerateRedemptionCode()
			require.NoError(t, err)
			seen[code] = struct{}{}
		}
		assert.Greater(t, len(seen), 990)
	})
}

func TestRandomAlnum(t *testing.T) {
	t.Run("rejects biased bytes", func(t *testing.T) {
		// 255 is above the rejection limit; 0 and 1 map to A and B.
		s, err := randomAlnum(bytes.NewReader([]byte{255, 255, 0, 1}), 2)
		require.NoError(t, err)
		assert.Equal(t, "AB", s)
	})

	t.Run("propagates reader errors", func(t *testing.T) {
		_, err := randomAlnum(iotest.ErrReader(errors.New("entropy exhausted")), 4)
		assert.Error(t, err)
	})
}

func TestNormalizeRedemptionCode(t *testing.T) {
	assert.Equal(t, "RWD-AB12CD", NormalizeRedemptionCode("  rwd-ab12cd "))
	assert.True(t, IsRedemptionCode("RWD-AB12CD"))
	assert.False(t, IsRedemptionCode("RWD-AB12C"))
	assert.False(t, IsRedemptionCode("RWX-AB12CD"))
}

func TestNewQRToken(t *testing.T) {
	token := NewQRToken()
	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}
