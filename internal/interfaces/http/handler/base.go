package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/logger"
	"github.com/qualee/backend/internal/interfaces/http/dto"
	"github.com/qualee/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 INVALID_REQUEST response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeInvalidRequest, message)
}

// HandleError converts an error into the error envelope. Domain errors keep
// their code, message and details; anything else is logged and reported as
// a bare INTERNAL_ERROR.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.JSON(dto.GetHTTPStatus(domainErr.Code), dto.NewErrorResponseWithDetails(
			domainErr.Code, domainErr.Message, domainErr.Details, requestID,
		))
		return
	}

	logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}

// BindJSON binds the body into obj and writes the error response itself
// when binding fails. Enum tags report the domain error code
// (INVALID_ACTION, INVALID_TYPE); other tag failures report VALIDATION_ERROR.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
	case middleware.DomainErrorForBinding(err) != nil:
		h.HandleError(c, middleware.DomainErrorForBinding(err))
	case middleware.IsValidationError(err):
		middleware.HandleValidationError(c, err)
	default:
		h.BadRequest(c, "Request body must be valid JSON")
	}
	return false
}

// Degraded answers a read while the data store cannot serve it: 200 with the
// endpoint's empty payload plus the availability, so list screens still
// render.
func (h *BaseHandler) Degraded(c *gin.Context, empty gin.H, a apployalty.ServiceAvailability) {
	empty["availability"] = a
	h.Success(c, empty)
}

// queryUUID parses an optional UUID query parameter. ok is false after an
// error response was written.
func (h *BaseHandler) queryUUID(c *gin.Context, name string) (id *uuid.UUID, ok bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, name+" must be a valid UUID")
		return nil, false
	}
	return &parsed, true
}

// requiredUUID parses a mandatory UUID query parameter.
func (h *BaseHandler) requiredUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, ok := h.queryUUID(c, name)
	if !ok {
		return uuid.Nil, false
	}
	if id == nil {
		h.BadRequest(c, name+" is required")
		return uuid.Nil, false
	}
	return *id, true
}

// queryInt parses an optional non-negative integer query parameter.
func (h *BaseHandler) queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.BadRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// queryBool parses an optional boolean query parameter.
func (h *BaseHandler) queryBool(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		h.BadRequest(c, name+" must be true or false")
		return false, false
	}
	return b, true
}

// paging reads limit/offset. The services clamp them to the configured page
// sizes.
func (h *BaseHandler) paging(c *gin.Context) (limit, offset int, ok bool) {
	if limit, ok = h.queryInt(c, "limit"); !ok {
		return 0, 0, false
	}
	if offset, ok = h.queryInt(c, "offset"); !ok {
		return 0, 0, false
	}
	return limit, offset, true
}
