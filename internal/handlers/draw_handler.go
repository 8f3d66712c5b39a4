package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cryptolotto/lottery-backend/internal/services"
)

// DrawHandler handles admin draw-lifecycle HTTP requests
type DrawHandler struct {
	drawService services.DrawService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(drawService services.DrawService) *DrawHandler {
	return &DrawHandler{drawService: drawService}
}

// CreateDrawRequest is the payload for POST /admin/draws
type CreateDrawRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	TicketPrice float64   `json:"ticketPrice" binding:"required,gt=0"`
	Currency    string    `json:"currency" binding:"required"`
	MaxTickets  int       `json:"maxTickets" binding:"required,min=1"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}

// CreateDraw handles POST /admin/draws
func (h *DrawHandler) CreateDraw(c *gin.Context) {
	var request CreateDrawRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draw, err := h.drawService.Create(c.Request.Context(), services.CreateDrawInput{
		Title:       request.Title,
		Description: request.Description,
		TicketPrice: request.TicketPrice,
		Currency:    request.Currency,
		MaxTickets:  request.MaxTickets,
		ScheduledAt: request.ScheduledAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, draw)
}

// GetDraws handles GET /admin/draws
func (h *DrawHandler) GetDraws(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	draws, err := h.drawService.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draws": draws, "page": page, "limit": limit})
}

// GetDrawByID handles GET /admin/draws/:id
func (h *DrawHandler) GetDrawByID(c *gin.Context) {
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

// GetDrawTickets handles GET /admin/draws/:id/tickets
func (h *DrawHandler) GetDrawTickets(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	tickets, err := h.drawService.Tickets(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "page": page, "limit": limit})
}

// StartDraw handles POST /admin/draws/:id/start
func (h *DrawHandler) StartDraw(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	draw, err := h.drawService.Start(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// RunDrawRequest is the payload for POST /admin/draws/:id/run
type RunDrawRequest struct {
	// Anchor optionally overrides the chain-fetched anchor. Only honored when
	// manual anchors are enabled in configuration.
	Anchor string `json:"anchor"`
}

// RunDraw handles POST /admin/draws/:id/run
func (h *DrawHandler) RunDraw(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request RunDrawRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.drawService.Run(c.Request.Context(), id, request.Anchor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelDrawRequest is the payload for POST /admin/draws/:id/cancel
type CancelDrawRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelDraw handles POST /admin/draws/:id/cancel
func (h *DrawHandler) CancelDraw(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request CancelDrawRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draw, err := h.drawService.Cancel(c.Request.Context(), id, request.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}
