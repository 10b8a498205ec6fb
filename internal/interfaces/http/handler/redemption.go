package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
)

// RedemptionWorkflow issues, validates and resolves reward codes
type RedemptionWorkflow interface {
	Redeem(ctx context.Context, req apployalty.RedeemRequest) (*apployalty.RedeemResult, error)
	ValidateCode(ctx context.Context, code string, merchantID *uuid.UUID) (*apployalty.ValidateCodeResult, error)
	Resolve(ctx context.Context, req apployalty.ResolveRedemptionRequest) (*apployalty.ResolveResult, error)
	List(ctx context.Context, q apployalty.ListRedemptionsQuery) (*apployalty.ListRedemptionsResult, error)
}

// RedemptionHandler handles the /loyalty/redeem endpoints
type RedemptionHandler struct {
	BaseHandler
	redemptions  RedemptionWorkflow
	availability apployalty.AvailabilityChecker
}

// NewRedemptionHandler creates a new RedemptionHandler
func NewRedemptionHandler(redemptions RedemptionWorkflow, availability apployalty.AvailabilityChecker) *RedemptionHandler {
	return &RedemptionHandler{
		redemptions:  redemptions,
		availability: availability,
	}
}

// Get godoc
// @Summary      Validate a code or list redemptions
// @Description  With code, looks the code up without changing it (404 with found=false when unknown).
// @Description  Otherwise lists the merchant's redemptions newest first.
// @Tags         loyalty-redeem
// @Produce      json
// @Param        code       query string false "Redemption code"
// @Param        merchantId query string false "Merchant ID"
// @Param        clientId   query string false "Client ID"
// @Param        status     query string false "pending, used, expired or cancelled"
// @Router       /loyalty/redeem [get]
func (h *RedemptionHandler) Get(c *gin.Context) {
	code := c.Query("code")
	merchantID, ok := h.queryUUID(c, "merchantId")
	if !ok {
		return
	}

	if code != "" {
		if a := h.availability.Availability(c.Request.Context()); !a.IsReady() {
			h.Degraded(c, gin.H{"redeemedReward": nil, "found": false}, a)
			return
		}
		result, err := h.redemptions.ValidateCode(c.Request.Context(), code, merchantID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
		return
	}

	if merchantID == nil {
		h.BadRequest(c, "merchantId or code is required")
		return
	}
	clientID, ok := h.queryUUID(c, "clientId")
	if !ok {
		return
	}
	limit, offset, ok := h.paging(c)
	if !ok {
		return
	}

	if a := h.availability.Availability(c.Request.Context()); !a.IsReady() {
		h.Degraded(c, gin.H{"redeemedRewards": []apployalty.RedemptionResponse{}, "total": 0}, a)
		return
	}

	result, err := h.redemptions.List(c.Request.Context(), apployalty.ListRedemptionsQuery{
		MerchantID: *merchantID,
		ClientID:   clientID,
		Status:     c.Query("status"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Redeem godoc
// @Summary      Redeem a catalog reward
// @Description  Debits the reward cost and issues a single-use RWD- code.
// @Tags         loyalty-redeem
// @Accept       json
// @Produce      json
// @Param        request body apployalty.RedeemRequest true "Client, merchant and reward"
// @Success      201 {object} dto.Response
// @Router       /loyalty/redeem [post]
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	var req apployalty.RedeemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.redemptions.Redeem(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Resolve godoc
// @Summary      Use or cancel a redemption code
// @Description  cancel refunds the points to the client.
// @Tags         loyalty-redeem
// @Accept       json
// @Produce      json
// @Param        request body apployalty.ResolveRedemptionRequest true "Code, merchant and action"
// @Router       /loyalty/redeem [patch]
func (h *RedemptionHandler) Resolve(c *gin.Context) {
	var req apployalty.ResolveRedemptionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.redemptions.Resolve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
