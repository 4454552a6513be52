package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"giveaways-backend/internal/common/middleware"
	"giveaways-backend/internal/features/giveaway/models"
	giveawayservice "giveaways-backend/internal/features/giveaway/service"
)

type GiveawayHandler struct {
	service giveawayservice.GiveawayService
}

func NewGiveawayHandler(service giveawayservice.GiveawayService) *GiveawayHandler {
	return &GiveawayHandler{service: service}
}

// RegisterRoutes wires the user-facing endpoints behind user auth and the
// scheduler callbacks behind the shared callback token.
func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup, userAuth, callbackAuth gin.HandlerFunc) {
	giveaways := router.Group("/giveaways")
	{
		authed := giveaways.Group("", userAuth)
		authed.POST("/deposit", h.createDeposit)
		authed.POST("", h.create)
		authed.GET("", h.list)
		authed.GET("/:id", h.getByID)
		authed.POST("/:id/enter", h.enter)

		callbacks := giveaways.Group("", callbackAuth)
		callbacks.POST("/:id/start", h.startCallback)
		callbacks.POST("/:id/end", h.endCallback)
	}
}

// createDeposit issues the deposit charge and returns the checkout session
// the creator completes before the giveaway itself is created.
func (h *GiveawayHandler) createDeposit(c *gin.Context) {
	var input models.DepositRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.CreateDeposit(c.Request.Context(), middleware.UserID(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// create persists a giveaway after a confirmed deposit.
func (h *GiveawayHandler) create(c *gin.Context) {
	var input models.GiveawayCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.CreatorName == "" {
		input.CreatorName = middleware.UserName(c)
	}

	giveaway, err := h.service.Create(c.Request.Context(), middleware.UserID(c), middleware.CompanyID(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaway": giveaway})
}

func (h *GiveawayHandler) list(c *gin.Context) {
	giveaways, err := h.service.List(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": giveaways})
}

func (h *GiveawayHandler) getByID(c *gin.Context) {
	giveaway, err := h.service.GetByID(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaway": giveaway})
}

func (h *GiveawayHandler) enter(c *gin.Context) {
	// Body is optional; it may supply a display name.
	var input models.EntryCreate
	_ = c.ShouldBindJSON(&input)
	if input.UserName == "" {
		input.UserName = middleware.UserName(c)
	}

	entry, err := h.service.Enter(c.Request.Context(), c.Param("id"), middleware.UserID(c), input.UserName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// startCallback is invoked by the durable scheduler at the window start.
func (h *GiveawayHandler) startCallback(c *gin.Context) {
	if err := h.service.HandleStart(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// endCallback is invoked by the durable scheduler at the window end. A
// non-2xx response makes the scheduler redeliver, which is how payout
// failures get retried.
func (h *GiveawayHandler) endCallback(c *gin.Context) {
	if err := h.service.HandleEnd(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func respondError(c *gin.Context, err error) {
	var validationErr *giveawayservice.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
	case errors.Is(err, giveawayservice.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "giveaway not found"})
	case errors.Is(err, giveawayservice.ErrGiveawayNotActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "giveaway is not currently active"})
	case errors.Is(err, giveawayservice.ErrCreatorCannotEnter):
		c.JSON(http.StatusForbidden, gin.H{"error": "creators cannot enter their own giveaways"})
	case errors.Is(err, giveawayservice.ErrDuplicateEntry):
		c.JSON(http.StatusConflict, gin.H{"error": "user has already entered this giveaway"})
	case errors.Is(err, giveawayservice.ErrPaymentGateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
