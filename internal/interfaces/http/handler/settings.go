package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
)

// SettingsStore reads and patches merchant program settings
type SettingsStore interface {
	GetSettings(ctx context.Context, merchantID uuid.UUID) (*apployalty.SettingsResponse, error)
	UpdateSettings(ctx context.Context, req apployalty.UpdateSettingsRequest) (*apployalty.SettingsResponse, error)
}

// SettingsHandler handles merchant program settings
type SettingsHandler struct {
	BaseHandler
	merchants SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(merchants SettingsStore) *SettingsHandler {
	return &SettingsHandler{merchants: merchants}
}

// Get godoc
// @Summary      Get loyalty program settings
// @Tags         loyalty-settings
// @Produce      json
// @Param        merchantId query string true "Merchant ID"
// @Router       /loyalty/settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	merchantID, ok := h.requiredUUID(c, "merchantId")
	if !ok {
		return
	}

	settings, err := h.merchants.GetSettings(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"settings": settings})
}

// Update godoc
// @Summary      Update loyalty program settings
// @Tags         loyalty-settings
// @Accept       json
// @Produce      json
// @Param        request body apployalty.UpdateSettingsRequest true "Settings patch"
// @Router       /loyalty/settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req apployalty.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	settings, err := h.merchants.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"settings": settings})
}
