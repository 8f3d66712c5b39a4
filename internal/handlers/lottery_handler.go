package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cryptolotto/lottery-backend/internal/fairness"
	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/services"
)

// LotteryHandler handles the public lottery HTTP surface: current draw,
// purchases, past winners and proof verification
type LotteryHandler struct {
	drawService     services.DrawService
	checkoutService services.CheckoutService
}

// NewLotteryHandler creates a new LotteryHandler
func NewLotteryHandler(drawService services.DrawService, checkoutService services.CheckoutService) *LotteryHandler {
	return &LotteryHandler{drawService: drawService, checkoutService: checkoutService}
}

// GetCurrentDraw handles GET /lottery/current
func (h *LotteryHandler) GetCurrentDraw(c *gin.Context) {
	draw, err := h.drawService.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// GetDraw handles GET /lottery/draws/:id
func (h *LotteryHandler) GetDraw(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	draw, err := h.drawService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// GetWinners handles GET /lottery/winners
func (h *LotteryHandler) GetWinners(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	winners, err := h.drawService.RecentWinners(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

// PurchaseRequest is the payload for POST /lottery/purchase
type PurchaseRequest struct {
	DrawID        string `json:"drawId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	Provider      string `json:"provider" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	WalletNetwork string `json:"walletNetwork" binding:"required"`
	Email         string `json:"email" binding:"omitempty,email"`
}

// Purchase handles POST /lottery/purchase
func (h *LotteryHandler) Purchase(c *gin.Context) {
	var request PurchaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	drawID, err := primitive.ObjectIDFromHex(request.DrawID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid draw ID format"})
		return
	}

	result, err := h.checkoutService.Purchase(c.Request.Context(), services.PurchaseInput{
		DrawID:        drawID,
		Quantity:      request.Quantity,
		Provider:      request.Provider,
		WalletAddress: request.WalletAddress,
		WalletNetwork: request.WalletNetwork,
		Email:         request.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// VerifyProof handles POST /lottery/verify. The endpoint is stateless: any
// client can submit a completed draw's published proof and have it recomputed.
func (h *LotteryHandler) VerifyProof(c *gin.Context) {
	var proof models.FairnessProof
	if err := c.ShouldBindJSON(&proof); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": fairness.Verify(&proof)})
}
