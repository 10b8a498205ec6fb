package dto

// Response represents a standard API response
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationDetail describes one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithRequestID creates an error response tagged with the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	resp := NewErrorResponse(code, message)
	resp.RequestID = requestID
	return resp
}

// NewErrorResponseWithDetails creates an error response carrying structured
// context for the client (required/available, currentBalance, usedAt, ...)
func NewErrorResponseWithDetails(code, message string, details map[string]any, requestID string) Response {
	resp := NewErrorResponseWithRequestID(code, message, requestID)
	if len(details) > 0 {
		resp.Error.Details = details
	}
	return resp
}

// NewValidationErrorResponse creates a VALIDATION_ERROR response listing the
// rejected fields
func NewValidationErrorResponse(message, requestID string, fields []ValidationDetail) Response {
	var details map[string]any
	if len(fields) > 0 {
		details = map[string]any{"fields": fields}
	}
	return NewErrorResponseWithDetails(ErrCodeValidation, message, details, requestID)
}

// PageRequest carries limit/offset paging parameters
type PageRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
