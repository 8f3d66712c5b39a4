package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"github.com/cryptolotto/lottery-backend/internal/payment"
	"github.com/cryptolotto/lottery-backend/internal/services"
)

// PaymentHandler handles provider webhook deliveries
type PaymentHandler struct {
	registry   *payment.Registry
	reconciler services.ReconcilerService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(registry *payment.Registry, reconciler services.ReconcilerService) *PaymentHandler {
	return &PaymentHandler{registry: registry, reconciler: reconciler}
}

// Webhook handles POST /webhooks/payments. The provider is discriminated by
// which signature header is present; the raw body must be passed through
// untouched because the signature covers the exact bytes.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	adapter, signature, ok := h.registry.ByHeader(c.Request.Header)
	if !ok {
		slog.Warn("Webhook without a recognized signature header", "remote", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unrecognized webhook source"})
		return
	}

	if err := h.reconciler.Ingest(c.Request.Context(), adapter, payload, signature); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
