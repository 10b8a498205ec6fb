package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
)

// PointsLedger is the points engine behind /loyalty/points
type PointsLedger interface {
	Apply(ctx context.Context, req apployalty.ApplyPointsRequest) (*apployalty.ApplyPointsResult, error)
	History(ctx context.Context, q apployalty.HistoryQuery) (*apployalty.HistoryResult, error)
}

// PointsHandler handles points balance and history endpoints
type PointsHandler struct {
	BaseHandler
	points       PointsLedger
	availability apployalty.AvailabilityChecker
}

// NewPointsHandler creates a new PointsHandler
func NewPointsHandler(points PointsLedger, availability apployalty.AvailabilityChecker) *PointsHandler {
	return &PointsHandler{
		points:       points,
		availability: availability,
	}
}

// History godoc
// @Summary      Points history
// @Description  Ledger entries newest first with the current balance. Answers an empty
// @Description  history with an availability field when the data store is down.
// @Tags         loyalty-points
// @Produce      json
// @Param        clientId   query string true  "Client ID"
// @Param        merchantId query string false "Merchant ID"
// @Param        limit      query int    false "Page size"
// @Param        offset     query int    false "Offset"
// @Router       /loyalty/points [get]
func (h *PointsHandler) History(c *gin.Context) {
	clientID, ok := h.requiredUUID(c, "clientId")
	if !ok {
		return
	}
	merchantID, ok := h.queryUUID(c, "merchantId")
	if !ok {
		return
	}
	limit, offset, ok := h.paging(c)
	if !ok {
		return
	}

	if a := h.availability.Availability(c.Request.Context()); !a.IsReady() {
		h.Degraded(c, gin.H{
			"transactions":   []apployalty.LedgerEntryResponse{},
			"total":          0,
			"currentBalance": 0,
		}, a)
		return
	}

	result, err := h.points.History(c.Request.Context(), apployalty.HistoryQuery{
		ClientID:   clientID,
		MerchantID: merchantID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Apply godoc
// @Summary      Change a client's points
// @Description  action is earn (from purchaseAmount), bonus, adjustment (signed) or redeem.
// @Tags         loyalty-points
// @Accept       json
// @Produce      json
// @Param        request body apployalty.ApplyPointsRequest true "Points change"
// @Router       /loyalty/points [post]
func (h *PointsHandler) Apply(c *gin.Context) {
	var req apployalty.ApplyPointsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.points.Apply(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
