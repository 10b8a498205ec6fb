package loyalty

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// RedemptionCodePrefix starts every redemption code.
	RedemptionCodePrefix = "RWD-"
	redemptionCodeLength = 6
	cardPrefixLength     = 4
	cardSuffixLength     = 4
	alnumAlphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var redemptionCodePattern = regexp.MustCompile(`^RWD-[A-Z0-9]{6}$`)

// accentStripper folds accented letters to their base form ("É" -> "E").
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CodeGenerator produces candidate redemption codes.
type CodeGenerator func() (string, error)

// GenerateRedemptionCode returns RWD- followed by six characters from crypto/rand.
func GenerateRedemptionCode() (string, error) {
	s, err := randomAlnum(rand.Reader, redemptionCodeLength)
	if err != nil {
		return "", fmt.Errorf("generate redemption code: %w", err)
	}
	return RedemptionCodePrefix + s, nil
}

// NormalizeRedemptionCode upper-cases and trims user input.
func NormalizeRedemptionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsRedemptionCode reports whether code has the RWD-XXXXXX shape.
func IsRedemptionCode(code string) bool {
	return redemptionCodePattern.MatchString(code)
}

// CardPrefix derives the four-letter card prefix from a business name,
// padding with X when the name has fewer letters.
func CardPrefix(businessName string) string {
	folded, _, err := transform.String(accentStripper, businessName)
	if err != nil {
		folded = businessName
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == cardPrefixLength {
				break
			}
		}
	}
	prefix := b.String()
	return prefix + strings.Repeat("X", cardPrefixLength-len(prefix))
}

// GenerateCardID builds PREFIX-YEAR-<last 6 digits of epoch millis><4 random>.
func GenerateCardID(businessName string, now time.Time) (string, error) {
	suffix, err := randomAlnum(rand.Reader, cardSuffixLength)
	if err != nil {
		return "", fmt.Errorf("generate card id: %w", err)
	}
	return fmt.Sprintf("%s-%d-%06d%s",
		CardPrefix(businessName),
		now.Year(),
		now.UnixMilli()%1_000_000,
		suffix,
	), nil
}

// NewQRToken returns a random UUID v4 used for public card lookups.
func NewQRToken() string {
	return uuid.NewString()
}

// randomAlnum draws n characters uniformly from [A-Z0-9] using rejection
// sampling over single bytes.
func randomAlnum(r io.Reader, n int) (string, error) {
	const limit = 256 - 256%len(alnumAlphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if int(c) >= limit {
				continue
			}
			out = append(out, alnumAlphabet[int(c)%len(alnumAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
