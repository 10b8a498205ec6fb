package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
)

// ClientDirectory is the account directory the client endpoints serve
type ClientDirectory interface {
	GetOrCreate(ctx context.Context, req apployalty.GetOrCreateClientRequest) (*apployalty.GetOrCreateClientResult, error)
	Lookup(ctx context.Context, q apployalty.LookupClientQuery) (*apployalty.LookupClientResult, error)
	List(ctx context.Context, q apployalty.ListClientsQuery) (*apployalty.ListClientsResult, error)
	Update(ctx context.Context, req apployalty.UpdateClientRequest) (*apployalty.ClientResponse, error)
}

// ClientHandler handles loyalty client endpoints
type ClientHandler struct {
	BaseHandler
	accounts     ClientDirectory
	availability apployalty.AvailabilityChecker
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(accounts ClientDirectory, availability apployalty.AvailabilityChecker) *ClientHandler {
	return &ClientHandler{
		accounts:     accounts,
		availability: availability,
	}
}

// Get godoc
// @Summary      Look up or list loyalty clients
// @Description  With qrCode, or merchantId plus one of clientId/phone/email, returns one client.
// @Description  With merchantId alone, lists the merchant's clients.
// @Tags         loyalty-client
// @Produce      json
// @Param        merchantId query string false "Merchant ID"
// @Param        clientId   query string false "Client ID"
// @Param        qrCode     query string false "QR token"
// @Param        phone      query string false "Phone"
// @Param        email      query string false "Email"
// @Param        limit      query int    false "Page size"
// @Param        offset     query int    false "Offset"
// @Param        sortBy     query string false "lastVisit, createdAt, points, name, totalSpent or totalPurchases"
// @Param        sortOrder  query string false "asc or desc"
// @Router       /loyalty/client [get]
func (h *ClientHandler) Get(c *gin.Context) {
	merchantID, ok := h.queryUUID(c, "merchantId")
	if !ok {
		return
	}
	clientID, ok := h.queryUUID(c, "clientId")
	if !ok {
		return
	}
	q := apployalty.LookupClientQuery{
		MerchantID: merchantID,
		ClientID:   clientID,
		QRCode:     c.Query("qrCode"),
		Phone:      c.Query("phone"),
		Email:      c.Query("email"),
	}
	single := q.ClientID != nil || q.QRCode != "" || q.Phone != "" || q.Email != ""
	if !single && merchantID == nil {
		h.BadRequest(c, "merchantId or qrCode is required")
		return
	}
	if single && q.QRCode == "" && merchantID == nil {
		h.BadRequest(c, "merchantId is required")
		return
	}

	var limit, offset int
	if !single {
		if limit, offset, ok = h.paging(c); !ok {
			return
		}
	}

	if a := h.availability.Availability(c.Request.Context()); !a.IsReady() {
		if single {
			h.Degraded(c, gin.H{"client": nil}, a)
		} else {
			h.Degraded(c, gin.H{"clients": []apployalty.ClientResponse{}, "total": 0}, a)
		}
		return
	}

	if single {
		result, err := h.accounts.Lookup(c.Request.Context(), q)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
		return
	}

	result, err := h.accounts.List(c.Request.Context(), apployalty.ListClientsQuery{
		MerchantID: *merchantID,
		Limit:      limit,
		Offset:     offset,
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Create godoc
// @Summary      Get or create a loyalty client
// @Description  Finds the merchant's client by phone or email, creating it with welcome points when absent.
// @Tags         loyalty-client
// @Accept       json
// @Produce      json
// @Param        request body apployalty.GetOrCreateClientRequest true "Client contact"
// @Success      201 {object} dto.Response
// @Success      200 {object} dto.Response
// @Router       /loyalty/client [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req apployalty.GetOrCreateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.accounts.GetOrCreate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.IsNew {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}

// Update godoc
// @Summary      Update a loyalty client profile
// @Tags         loyalty-client
// @Accept       json
// @Produce      json
// @Param        request body apployalty.UpdateClientRequest true "Client key and updates"
// @Router       /loyalty/client [patch]
func (h *ClientHandler) Update(c *gin.Context) {
	var req apployalty.UpdateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.QRCode == "" && (req.ClientID == nil || req.MerchantID == nil) {
		h.BadRequest(c, "clientId and merchantId, or qrCode, are required")
		return
	}

	client, err := h.accounts.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"client": client})
}
