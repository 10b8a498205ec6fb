package loyalty

import (
	"strings"
	"time"

	"github.com/qualee/backend/internal/domain/loyalty"
)

// Config holds the tunables shared by the loyalty services.
type Config struct {
	Defaults        loyalty.LoyaltySettings
	RedemptionTTL   time.Duration
	CodeAttempts    int
	HistoryLimit    int
	MaxPageSize     int
	PublicURL       string
	DefaultLanguage string
}

// DefaultConfig returns the program defaults.
func DefaultConfig() Config {
	return Config{
		Defaults:        loyalty.DefaultLoyaltySettings(),
		RedemptionTTL:   loyalty.DefaultRedemptionTTL,
		CodeAttempts:    5,
		HistoryLimit:    50,
		MaxPageSize:     200,
		DefaultLanguage: "en",
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Defaults.PointsPerPurchase <= 0 {
		c.Defaults.PointsPerPurchase = d.Defaults.PointsPerPurchase
	}
	if !c.Defaults.PurchaseThreshold.IsPositive() {
		c.Defaults.PurchaseThreshold = d.Defaults.PurchaseThreshold
	}
	if c.Defaults.WelcomePoints < 0 {
		c.Defaults.WelcomePoints = d.Defaults.WelcomePoints
	}
	if c.RedemptionTTL <= 0 {
		c.RedemptionTTL = d.RedemptionTTL
	}
	if c.CodeAttempts <= 0 {
		c.CodeAttempts = d.CodeAttempts
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = d.MaxPageSize
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = d.DefaultLanguage
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	return c
}

// CardURL is the public card page for a QR token.
func (c Config) CardURL(qrToken string) string {
	return c.PublicURL + "/card/" + qrToken
}

// Option customises a service.
type Option func(*options)

type options struct {
	now     func() time.Time
	codeGen loyalty.CodeGenerator
}

func buildOptions(opts []Option) options {
	o := options{
		now:     time.Now,
		codeGen: loyalty.GenerateRedemptionCode,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCodeGenerator overrides redemption code generation.
func WithCodeGenerator(gen loyalty.CodeGenerator) Option {
	return func(o *options) { o.codeGen = gen }
}
