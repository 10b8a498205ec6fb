package loyalty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContact_Normalize(t *testing.T) {
	t.Run("lowercases email and canonicalises fields", func(t *testing.T) {
		c, err := Contact{
			Name:     "  Jane ",
			Phone:    "+1 (555) 000-1",
			Email:    " Jane@Example.COM ",
			Language: "FR-fr",
		}.Normalize()
		require.NoError(t, err)

		assert.Equal(t, "Jane", c.Name)
		assert.Equal(t, "+15550001", c.Phone)
		assert.Equal(t, "jane@example.com", c.Email)
		assert.Equal(t, "fr-FR", c.Language)
		assert.True(t, c.HasChannel())
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		_, err := Contact{Email: "not-an-email"}.Normalize()
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("rejects malformed language", func(t *testing.T) {
		_, err := Contact{Phone: "+15550001", Language: "!!"}.Normalize()
		assert.ErrorIs(t, err, ErrInvalidLanguage)
	})

	t.Run("no channel", func(t *testing.T) {
		c, err := Contact{Name: "Anonymous"}.Normalize()
		require.NoError(t, err)
		assert.False(t, c.HasChannel())
	})
}

func TestNewAccount(t *testing.T) {
	merchant, err := NewMerchant("Bella Beauty")
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("seeds welcome points", func(t *testing.T) {
		a, err := NewAccount(merchant, Contact{Phone: "+15550001"}, 50, now)
		require.NoError(t, err)

		assert.Equal(t, merchant.ID, a.MerchantID)
		assert.Equal(t, int64(50), a.Points)
		assert.Equal(t, AccountStatusActive, a.Status)
		assert.Equal(t, now, a.LastVisit)
		assert.Regexp(t, cardIDPattern, a.CardID)
		assert.Equal(t, "BELL-2026-", a.CardID[:10])
		assert.NotEmpty(t, a.QRToken)
		assert.True(t, a.TotalSpent.IsZero())
	})

	t.Run("requires a contact channel", func(t *testing.T) {
		_, err := NewAccount(merchant, Contact{Name: "Jane"}, 50, now)
		assert.ErrorIs(t, err, ErrMissingContact)
	})
}

func TestAccount_Apply(t *testing.T) {
	merchant, err := NewMerchant("Bella Beauty")
	require.NoError(t, err)
	now := time.Now()

	newAccount := func(t *testing.T) *Account {
		a, err := NewAccount(merchant, Contact{Phone: "+15550001"}, 0, now)
		require.NoError(t, err)
		return a
	}

	t.Run("lowercases email", func(t *testing.T) {
		a := newAccount(t)
		email := "NEW@Example.com"
		require.NoError(t, a.Apply(AccountPatch{Email: &email}, now))
		assert.Equal(t, "new@example.com", a.Email)
	})

	t.Run("rejects unknown status without mutating", func(t *testing.T) {
		a := newAccount(t)
		name := "Changed"
		status := "deleted"
		err := a.Apply(AccountPatch{Name: &name, Status: &status}, now)
		assert.ErrorIs(t, err, ErrInvalidStatus)
		assert.Empty(t, a.Name)
	})

	t.Run("soft disables", func(t *testing.T) {
		a := newAccount(t)
		status := "Suspended"
		require.NoError(t, a.Apply(AccountPatch{Status: &status}, now))
		assert.Equal(t, AccountStatusSuspended, a.Status)
		assert.False(t, a.IsActive())
	})

	t.Run("birthday must be a date", func(t *testing.T) {
		a := newAccount(t)
		bad := "14/03/1990"
		assert.ErrorIs(t, a.Apply(AccountPatch{Birthday: &bad}, now), ErrInvalidBirthday)

		good := "1990-03-14"
		require.NoError(t, a.Apply(AccountPatch{Birthday: &good}, now))
		assert.Equal(t, good, a.Birthday)
	})

	t.Run("cannot remove the last contact channel", func(t *testing.T) {
		a := newAccount(t)
		empty := ""
		assert.ErrorIs(t, a.Apply(AccountPatch{Phone: &empty}, now), ErrMissingContact)
	})

	t.Run("empty patch", func(t *testing.T) {
		assert.True(t, AccountPatch{}.IsEmpty())
	})
}

func TestAccount_RecordVisit(t *testing.T) {
	a := &Account{}
	now := time.Now()

	a.RecordVisit("user-token-1", now)
	assert.Equal(t, "user-token-1", a.ExternalRef)
	assert.Equal(t, now, a.LastVisit)

	a.RecordVisit("user-token-2", now)
	assert.Equal(t, "user-token-1", a.ExternalRef)
}
