package loyalty

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// AccountStatus is the soft-disable state of an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusInactive  AccountStatus = "inactive"
)

// IsValid checks if the status is known
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusInactive:
		return true
	}
	return false
}

// Contact is the identifying information supplied for a client.
type Contact struct {
	Name        string
	Phone       string
	Email       string
	ExternalRef string
	Language    string
}

// Normalize trims fields, lowercases the email and canonicalises the phone
// and language.
func (c Contact) Normalize() (Contact, error) {
	out := Contact{
		Name:        strings.TrimSpace(c.Name),
		Phone:       NormalizePhone(c.Phone),
		Email:       NormalizeEmail(c.Email),
		ExternalRef: strings.TrimSpace(c.ExternalRef),
	}
	if out.Email != "" {
		if _, err := mail.ParseAddress(out.Email); err != nil {
			return Contact{}, ErrInvalidEmail
		}
	}
	lang, err := NormalizeLanguage(c.Language)
	if err != nil {
		return Contact{}, err
	}
	out.Language = lang
	return out, nil
}

// HasChannel reports whether a phone or email is present.
func (c Contact) HasChannel() bool {
	return c.Phone != "" || c.Email != ""
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone drops whitespace and common separators, keeping a leading +.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeLanguage canonicalises a BCP 47 tag ("FR-fr" -> "fr-FR").
// An empty input stays empty.
func NormalizeLanguage(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", ErrInvalidLanguage
	}
	return t.String(), nil
}

// Account is a merchant-scoped loyalty identity tied to a phone or email.
// Points are only ever changed through the ledger.
type Account struct {
	shared.BaseEntity
	MerchantID        uuid.UUID
	CardID            string
	QRToken           string
	Name              string
	Phone             string
	Email             string
	ExternalRef       string
	Birthday          string
	Points            int64
	TotalPurchases    int64
	TotalSpent        decimal.Decimal
	Status            AccountStatus
	PreferredLanguage string
	LastVisit         time.Time
}

// NewAccount creates an active account seeded with welcome points.
func NewAccount(merchant *Merchant, contact Contact, welcomePoints int64, now time.Time) (*Account, error) {
	if !contact.HasChannel() {
		return nil, ErrMissingContact
	}
	if welcomePoints < 0 {
		return nil, ErrInvalidPoints
	}
	cardID, err := GenerateCardID(merchant.BusinessName, now)
	if err != nil {
		return nil, err
	}
	return &Account{
		BaseEntity:        shared.NewBaseEntityAt(now),
		MerchantID:        merchant.ID,
		CardID:            cardID,
		QRToken:           NewQRToken(),
		Name:              contact.Name,
		Phone:             contact.Phone,
		Email:             contact.Email,
		ExternalRef:       contact.ExternalRef,
		Points:            welcomePoints,
		TotalSpent:        decimal.Zero,
		Status:            AccountStatusActive,
		PreferredLanguage: contact.Language,
		LastVisit:         now,
	}, nil
}

// RegenerateCardID draws a fresh card identifier after a collision.
func (a *Account) RegenerateCardID(businessName string, now time.Time) error {
	cardID, err := GenerateCardID(businessName, now)
	if err != nil {
		return err
	}
	a.CardID = cardID
	return nil
}

// RecordVisit bumps LastVisit and attaches an external reference if one is
// supplied and none is set yet.
func (a *Account) RecordVisit(externalRef string, now time.Time) {
	a.LastVisit = now
	if externalRef != "" && a.ExternalRef == "" {
		a.ExternalRef = externalRef
	}
	a.Touch(now)
}

// IsActive reports whether the account can earn and redeem.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// AccountPatch lists the fields a profile update may change.
type AccountPatch struct {
	Name              *string
	Phone             *string
	Email             *string
	Birthday          *string
	Status            *string
	PreferredLanguage *string
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil &&
		p.Birthday == nil && p.Status == nil && p.PreferredLanguage == nil
}

// Apply validates and applies a profile patch.
func (a *Account) Apply(p AccountPatch, now time.Time) error {
	next := *a
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		next.Phone = NormalizePhone(*p.Phone)
	}
	if p.Email != nil {
		next.Email = NormalizeEmail(*p.Email)
		if next.Email != "" {
			if _, err := mail.ParseAddress(next.Email); err != nil {
				return ErrInvalidEmail
			}
		}
	}
	if p.Birthday != nil {
		b := strings.TrimSpace(*p.Birthday)
		if b != "" {
			if _, err := time.Parse(time.DateOnly, b); err != nil {
				return ErrInvalidBirthday
			}
		}
		next.Birthday = b
	}
	if p.Status != nil {
		s := AccountStatus(strings.ToLower(strings.TrimSpace(*p.Status)))
		if !s.IsValid() {
			return ErrInvalidStatus
		}
		next.Status = s
	}
	if p.PreferredLanguage != nil {
		lang, err := NormalizeLanguage(*p.PreferredLanguage)
		if err != nil {
			return err
		}
		next.PreferredLanguage = lang
	}
	if next.Phone == "" && next.Email == "" {
		return ErrMissingContact
	}
	next.Touch(now)
	*a = next
	return nil
}
