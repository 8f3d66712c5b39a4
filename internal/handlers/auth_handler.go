package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/services"
)

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	authService  services.AuthService
	auditService services.AuditService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthService, auditService services.AuditService) *AuthHandler {
	return &AuthHandler{authService: authService, auditService: auditService}
}

// Register handles POST /admin/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var request models.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.authService.Register(c.Request.Context(), request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

// Login handles POST /admin/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, admin, err := h.authService.Login(c.Request.Context(), request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "admin": admin})
}

// GetAuditLog handles GET /admin/audit
func (h *AuthHandler) GetAuditLog(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, total, err := h.auditService.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total, "page": page, "limit": limit})
}
