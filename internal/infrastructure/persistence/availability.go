package persistence

import (
	"context"
	"time"

	apployalty "github.com/qualee/backend/internal/application/loyalty"
)

const probeTimeout = 2 * time.Second

// AvailabilityProbe reports whether the data store can serve requests.
// A probe built without a database always reports misconfigured.
type AvailabilityProbe struct {
	db     *Database
	reason string
}

// NewAvailabilityProbe creates a probe over db. reason explains a nil db.
func NewAvailabilityProbe(db *Database, reason string) *AvailabilityProbe {
	if reason == "" {
		reason = "database is not configured"
	}
	return &AvailabilityProbe{db: db, reason: reason}
}

// Availability implements apployalty.AvailabilityChecker
func (p *AvailabilityProbe) Availability(ctx context.Context) apployalty.ServiceAvailability {
	if p == nil || p.db == nil {
		reason := "database is not configured"
		if p != nil {
			reason = p.reason
		}
		return apployalty.Misconfigured(reason)
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := p.db.Ping(ctx); err != nil {
		return apployalty.Unavailable("database is unreachable")
	}
	return apployalty.Ready()
}

var _ apployalty.AvailabilityChecker = (*AvailabilityProbe)(nil)
