package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/interfaces/http/dto"
)

var setupValidatorOnce sync.Once

// Custom binding tags for loyalty enums. Each accepts the same spellings as
// the matching domain parser.
const (
	TagPointsAction  = "points_action"
	TagResolveAction = "resolve_action"
	TagRewardType    = "reward_type"
)

// SetupValidator configures gin's validator: JSON field names in errors and
// the loyalty enum tags. Safe to call more than once.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation(TagPointsAction, func(fl validator.FieldLevel) bool {
			_, err := loyalty.ParsePointsAction(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation(TagResolveAction, func(fl validator.FieldLevel) bool {
			_, err := loyalty.ParseResolveAction(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation(TagRewardType, func(fl validator.FieldLevel) bool {
			return loyalty.RewardType(strings.ToLower(strings.TrimSpace(fl.Field().String()))).IsValid()
		})
	})
}

// enumErrors turns a failed enum tag into the domain error the service
// layer would have returned for the same input
var enumErrors = map[string]error{
	TagPointsAction:  loyalty.ErrInvalidAction,
	TagResolveAction: loyalty.ErrInvalidResolveAction,
	TagRewardType:    loyalty.ErrInvalidRewardType,
}

// DomainErrorForBinding returns the domain error matching a failed enum tag,
// or nil when err is not one
func DomainErrorForBinding(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	for _, fe := range ves {
		if de, ok := enumErrors[fe.Tag()]; ok {
			return de
		}
	}
	return nil
}

// IsValidationError reports whether err came from binding tags rather than
// from decoding the payload
func IsValidationError(err error) bool {
	var ves validator.ValidationErrors
	return errors.As(err, &ves)
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		for _, e := range ves {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(dto.GetHTTPStatus(dto.ErrCodeValidation), FormatValidationErrors(err, GetRequestID(c)))
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case TagPointsAction:
		return "Must be one of: earn, bonus, adjustment, redeem"
	case TagResolveAction:
		return "Must be one of: use, cancel"
	case TagRewardType:
		return "Must be one of: discount, product, service, cashback"
	default:
		return "Invalid value"
	}
}
