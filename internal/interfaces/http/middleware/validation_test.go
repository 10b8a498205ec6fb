package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enumPayload struct {
	Action string  `json:"action" binding:"required,points_action"`
	Type   *string `json:"type" binding:"omitempty,reward_type"`
	Use    string  `json:"use" binding:"omitempty,resolve_action"`
}

func enumRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var p enumPayload
		if err := c.ShouldBindJSON(&p); err != nil {
			if de := DomainErrorForBinding(err); de != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": de.Error()})
				return
			}
			HandleValidationError(c, err)
			return
		}
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestSetupValidator_EnumTags(t *testing.T) {
	router := enumRouter()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid action", `{"action":"earn"}`, http.StatusOK},
		{"action is case-insensitive", `{"action":" Bonus "}`, http.StatusOK},
		{"unknown action", `{"action":"steal"}`, http.StatusBadRequest},
		{"valid reward type", `{"action":"earn","type":"cashback"}`, http.StatusOK},
		{"unknown reward type", `{"action":"earn","type":"voucher"}`, http.StatusBadRequest},
		{"valid resolve action", `{"action":"earn","use":"cancel"}`, http.StatusOK},
		{"unknown resolve action", `{"action":"earn","use":"refund"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, "/test", tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDomainErrorForBinding(t *testing.T) {
	SetupValidator()
	router := gin.New()
	var captured error
	router.POST("/test", func(c *gin.Context) {
		var p enumPayload
		captured = c.ShouldBindJSON(&p)
	})

	serve(router, http.MethodPost, "/test", `{"action":"steal"}`, nil)
	require.Error(t, captured)
	assert.ErrorIs(t, DomainErrorForBinding(captured), loyalty.ErrInvalidAction)
	assert.True(t, IsValidationError(captured))

	serve(router, http.MethodPost, "/test", `{}`, nil)
	require.Error(t, captured)
	assert.Nil(t, DomainErrorForBinding(captured), "required is not an enum failure")

	serve(router, http.MethodPost, "/test", `{"action":`, nil)
	require.Error(t, captured)
	assert.False(t, IsValidationError(captured))
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()
	type input struct {
		MerchantID string `json:"merchantId" binding:"required"`
		Name       string `json:"name" binding:"max=3"`
	}

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var in input
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
		}
	})

	w := serve(router, http.MethodPost, "/test", `{"name":"toolong"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.RequestID)
	fields, ok := resp.Error.Details["fields"].([]any)
	require.True(t, ok)
	require.Len(t, fields, 2)
	first := fields[0].(map[string]any)
	assert.Equal(t, "merchantId", first["field"])
	assert.Equal(t, "This field is required", first["message"])
	second := fields[1].(map[string]any)
	assert.Equal(t, "name", second["field"])
	assert.Equal(t, "Must be at most 3 characters", second["message"])
}
