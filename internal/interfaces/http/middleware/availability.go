package middleware

import (
	"github.com/gin-gonic/gin"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/qualee/backend/internal/interfaces/http/dto"
)

// RequireAvailable rejects mutating requests while the data store cannot
// serve them: 500 SERVICE_MISCONFIGURED when it was never configured, 503
// SERVICE_UNAVAILABLE when it is unreachable.
func RequireAvailable(checker apployalty.AvailabilityChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := checker.Availability(c.Request.Context())
		if a.IsReady() {
			c.Next()
			return
		}
		code, message := UnavailableError(a)
		abortWithError(c, code, message)
	}
}

// UnavailableError maps a non-ready availability to its error code and
// client-facing message.
func UnavailableError(a apployalty.ServiceAvailability) (string, string) {
	if a.Status == apployalty.AvailabilityMisconfigured {
		return dto.ErrCodeServiceMisconfigured, "Loyalty service is not configured"
	}
	return dto.ErrCodeServiceUnavailable, "Loyalty service is temporarily unavailable"
}
