package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
	"github.com/cryptolotto/lottery-backend/internal/utils"
)

// AuthService defines the interface for admin authentication operations
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AdminUser, error)
	Login(ctx context.Context, req models.LoginRequest) (string, *models.AdminUser, error)
}

// Compile-time check to ensure AuthServiceImpl implements AuthService
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl implements the AuthService interface
type AuthServiceImpl struct {
	adminRepo repositories.AdminUserRepository
	audit     AuditSink
	cfg       *config.Config
}

// NewAuthService creates a new AuthServiceImpl
func NewAuthService(adminRepo repositories.AdminUserRepository, audit AuditSink, cfg *config.Config) *AuthServiceImpl {
	return &AuthServiceImpl{adminRepo: adminRepo, audit: audit, cfg: cfg}
}

// Register creates a new admin account with a bcrypt-hashed password
func (s *AuthServiceImpl) Register(ctx context.Context, req models.RegisterRequest) (*models.AdminUser, error) {
	_, err := s.adminRepo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, fmt.Errorf("%w: email already registered", apperrors.ErrValidation)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check existing admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{
		Email:    req.Email,
		Password: string(hashed),
		Role:     "admin",
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "ADMIN_REGISTERED",
		EntityType: "AdminUser",
		EntityID:   admin.ID.Hex(),
		Metadata:   map[string]interface{}{"email": admin.Email},
	})

	slog.Info("Admin registered", "email", admin.Email)
	return admin, nil
}

// Login verifies credentials and returns a signed JWT
func (s *AuthServiceImpl) Login(ctx context.Context, req models.LoginRequest) (string, *models.AdminUser, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		return "", nil, fmt.Errorf("failed to load admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	token, err := utils.GenerateJWT(admin.ID.Hex(), admin.Email, admin.Role, s.cfg.JWT.Secret, s.cfg.JWT.ExpiresIn)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	slog.Info("Admin logged in", "email", admin.Email)
	return token, admin, nil
}
