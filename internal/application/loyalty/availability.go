package loyalty

import "context"

// AvailabilityStatus describes whether the data store can serve requests.
type AvailabilityStatus string

const (
	AvailabilityReady         AvailabilityStatus = "ready"
	AvailabilityMisconfigured AvailabilityStatus = "misconfigured"
	AvailabilityUnavailable   AvailabilityStatus = "unavailable"
)

// ServiceAvailability is reported to callers so that read endpoints can
// degrade to an empty 200 while writes fail loudly.
type ServiceAvailability struct {
	Status AvailabilityStatus `json:"status"`
	Reason string             `json:"reason,omitempty"`
}

// IsReady reports whether requests can be served.
func (a ServiceAvailability) IsReady() bool {
	return a.Status == AvailabilityReady
}

// Ready is the healthy availability value.
func Ready() ServiceAvailability {
	return ServiceAvailability{Status: AvailabilityReady}
}

// Misconfigured reports missing data store configuration.
func Misconfigured(reason string) ServiceAvailability {
	return ServiceAvailability{Status: AvailabilityMisconfigured, Reason: reason}
}

// Unavailable reports a configured but unreachable data store.
func Unavailable(reason string) ServiceAvailability {
	return ServiceAvailability{Status: AvailabilityUnavailable, Reason: reason}
}

// AvailabilityChecker reports the current availability.
type AvailabilityChecker interface {
	Availability(ctx context.Context) ServiceAvailability
}

// AvailabilityFunc adapts a function to AvailabilityChecker.
type AvailabilityFunc func(ctx context.Context) ServiceAvailability

// Availability implements AvailabilityChecker.
func (f AvailabilityFunc) Availability(ctx context.Context) ServiceAvailability {
	return f(ctx)
}
