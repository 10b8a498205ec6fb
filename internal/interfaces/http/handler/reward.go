package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
)

// RewardCatalog manages a merchant's rewards
type RewardCatalog interface {
	List(ctx context.Context, merchantID uuid.UUID, q apployalty.ListRewardsQuery) ([]apployalty.RewardResponse, error)
	Get(ctx context.Context, merchantID, rewardID uuid.UUID) (*apployalty.RewardResponse, error)
	Create(ctx context.Context, req apployalty.CreateRewardRequest) (*apployalty.RewardResponse, error)
	Update(ctx context.Context, req apployalty.UpdateRewardRequest) (*apployalty.RewardResponse, error)
	Delete(ctx context.Context, merchantID, rewardID uuid.UUID) error
}

// RewardHandler handles the reward catalog endpoints
type RewardHandler struct {
	BaseHandler
	rewards      RewardCatalog
	availability apployalty.AvailabilityChecker
}

// NewRewardHandler creates a new RewardHandler
func NewRewardHandler(rewards RewardCatalog, availability apployalty.AvailabilityChecker) *RewardHandler {
	return &RewardHandler{
		rewards:      rewards,
		availability: availability,
	}
}

// List godoc
// @Summary      List or get catalog rewards
// @Tags         loyalty-rewards
// @Produce      json
// @Param        merchantId   query string true  "Merchant ID"
// @Param        rewardId     query string false "Reward ID"
// @Param        activeOnly   query bool   false "Only active rewards"
// @Param        includeStats query bool   false "Include redemption counts"
// @Router       /loyalty/rewards [get]
func (h *RewardHandler) List(c *gin.Context) {
	merchantID, ok := h.requiredUUID(c, "merchantId")
	if !ok {
		return
	}
	rewardID, ok := h.queryUUID(c, "rewardId")
	if !ok {
		return
	}
	activeOnly, ok := h.queryBool(c, "activeOnly")
	if !ok {
		return
	}
	includeStats, ok := h.queryBool(c, "includeStats")
	if !ok {
		return
	}

	if a := h.availability.Availability(c.Request.Context()); !a.IsReady() {
		if rewardID != nil {
			h.Degraded(c, gin.H{"reward": nil}, a)
		} else {
			h.Degraded(c, gin.H{"rewards": []apployalty.RewardResponse{}}, a)
		}
		return
	}

	if rewardID != nil {
		reward, err := h.rewards.Get(c.Request.Context(), merchantID, *rewardID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, gin.H{"reward": reward})
		return
	}

	rewards, err := h.rewards.List(c.Request.Context(), merchantID, apployalty.ListRewardsQuery{
		ActiveOnly:   activeOnly,
		IncludeStats: includeStats,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"rewards": rewards})
}

// Create godoc
// @Summary      Add a reward to the catalog
// @Tags         loyalty-rewards
// @Accept       json
// @Produce      json
// @Param        request body apployalty.CreateRewardRequest true "Reward"
// @Success      201 {object} dto.Response
// @Router       /loyalty/rewards [post]
func (h *RewardHandler) Create(c *gin.Context) {
	var req apployalty.CreateRewardRequest
	if !h.BindJSON(c, &req) {
		return
	}

	reward, err := h.rewards.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, gin.H{"reward": reward})
}

// Update godoc
// @Summary      Patch a catalog reward
// @Tags         loyalty-rewards
// @Accept       json
// @Produce      json
// @Param        request body apployalty.UpdateRewardRequest true "Reward changes"
// @Router       /loyalty/rewards [patch]
func (h *RewardHandler) Update(c *gin.Context) {
	var req apployalty.UpdateRewardRequest
	if !h.BindJSON(c, &req) {
		return
	}

	reward, err := h.rewards.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"reward": reward})
}

// Delete godoc
// @Summary      Remove a catalog reward
// @Tags         loyalty-rewards
// @Produce      json
// @Param        merchantId query string true "Merchant ID"
// @Param        rewardId   query string true "Reward ID"
// @Router       /loyalty/rewards [delete]
func (h *RewardHandler) Delete(c *gin.Context) {
	merchantID, ok := h.requiredUUID(c, "merchantId")
	if !ok {
		return
	}
	rewardID, ok := h.requiredUUID(c, "rewardId")
	if !ok {
		return
	}

	if err := h.rewards.Delete(c.Request.Context(), merchantID, rewardID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"deleted": true})
}
