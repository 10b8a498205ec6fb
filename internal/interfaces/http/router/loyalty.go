package router

import (
	"github.com/gin-gonic/gin"
	"github.com/qualee/backend/internal/interfaces/http/handler"
)

// LoyaltyHandlers groups the handlers served under /loyalty
type LoyaltyHandlers struct {
	Client     *handler.ClientHandler
	Points     *handler.PointsHandler
	Redemption *handler.RedemptionHandler
	Reward     *handler.RewardHandler
	Settings   *handler.SettingsHandler
}

// NewLoyaltyRoutes builds the /loyalty domain group. guards run in front of
// every write and of the settings read; the other reads check availability
// themselves so they can degrade instead of failing.
func NewLoyaltyRoutes(h LoyaltyHandlers, guards ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("loyalty", "/loyalty")
	g.GET("/client", h.Client.Get).
		GET("/points", h.Points.History).
		GET("/redeem", h.Redemption.Get).
		GET("/rewards", h.Reward.List)

	g.Guarded(guards...).
		POST("/client", h.Client.Create).
		PATCH("/client", h.Client.Update).
		POST("/points", h.Points.Apply).
		POST("/redeem", h.Redemption.Redeem).
		PATCH("/redeem", h.Redemption.Resolve).
		POST("/rewards", h.Reward.Create).
		PATCH("/rewards", h.Reward.Update).
		DELETE("/rewards", h.Reward.Delete).
		GET("/settings", h.Settings.Get).
		PUT("/settings", h.Settings.Update)

	return g
}

// NewSystemRoutes builds the /system domain group
func NewSystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	g.GET("/ping", h.Ping)
	return g
}
