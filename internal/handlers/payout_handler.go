package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/services"
)

// PayoutHandler handles admin payout HTTP requests
type PayoutHandler struct {
	payoutService services.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payoutService services.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// GetPayouts handles GET /admin/payouts
func (h *PayoutHandler) GetPayouts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	status := models.PayoutStatus(c.DefaultQuery("status", string(models.PayoutStatusPending)))

	payouts, err := h.payoutService.ListByStatus(c.Request.Context(), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts, "page": page, "limit": limit})
}

// GetPayoutByID handles GET /admin/payouts/:id
func (h *PayoutHandler) GetPayoutByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	payout, err := h.payoutService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

// RecordPayoutRequest is the payload for POST /admin/payouts/:id/record
type RecordPayoutRequest struct {
	TransactionHash string `json:"transactionHash"`
	Succeeded       bool   `json:"succeeded"`
}

// RecordPayout handles POST /admin/payouts/:id/record
func (h *PayoutHandler) RecordPayout(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request RecordPayoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payout, err := h.payoutService.RecordTransaction(c.Request.Context(), id, request.TransactionHash, request.Succeeded)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}
