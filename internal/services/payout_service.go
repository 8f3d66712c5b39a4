package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
)

// PayoutService defines operator-facing payout operations. Disbursement
// itself happens off-system; operators record the on-chain transaction here.
type PayoutService interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error)
	ListByStatus(ctx context.Context, status models.PayoutStatus, page, limit int) ([]*models.Payout, error)
	RecordTransaction(ctx context.Context, id primitive.ObjectID, txHash string, succeeded bool) (*models.Payout, error)
}

// Compile-time check to ensure PayoutServiceImpl implements PayoutService
var _ PayoutService = (*PayoutServiceImpl)(nil)

// PayoutServiceImpl implements the PayoutService interface
type PayoutServiceImpl struct {
	payoutRepo repositories.PayoutRepository
	audit      AuditSink
}

// NewPayoutService creates a new PayoutServiceImpl
func NewPayoutService(payoutRepo repositories.PayoutRepository, audit AuditSink) *PayoutServiceImpl {
	return &PayoutServiceImpl{payoutRepo: payoutRepo, audit: audit}
}

// GetByID returns a payout by id
func (s *PayoutServiceImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	payout, err := s.payoutRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: payout %s", apperrors.ErrNotFound, id.Hex())
		}
		return nil, err
	}
	return payout, nil
}

// ListByStatus returns payouts filtered by status
func (s *PayoutServiceImpl) ListByStatus(ctx context.Context, status models.PayoutStatus, page, limit int) ([]*models.Payout, error) {
	return s.payoutRepo.FindByStatus(ctx, status, page, limit)
}

// RecordTransaction marks a PENDING payout COMPLETED or FAILED with the
// disbursement transaction hash. Recording is one-shot: a payout that already
// left PENDING rejects further recordings.
func (s *PayoutServiceImpl) RecordTransaction(ctx context.Context, id primitive.ObjectID, txHash string, succeeded bool) (*models.Payout, error) {
	if succeeded && txHash == "" {
		return nil, fmt.Errorf("%w: transactionHash is required for a completed payout", apperrors.ErrValidation)
	}

	status := models.PayoutStatusCompleted
	if !succeeded {
		status = models.PayoutStatusFailed
	}

	recorded, err := s.payoutRepo.RecordTransaction(ctx, id, txHash, status)
	if err != nil {
		return nil, fmt.Errorf("failed to record payout transaction: %w", err)
	}
	if !recorded {
		payout, findErr := s.GetByID(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("%w: payout is already %s", apperrors.ErrInvalidState, payout.Status)
	}

	payout, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "PAYOUT_RECORDED",
		EntityType: "Payout",
		EntityID:   payout.ID.Hex(),
		Metadata: map[string]interface{}{
			"status":          payout.Status,
			"transactionHash": payout.TransactionHash,
			"amount":          payout.Amount,
		},
	})

	slog.Info("Payout recorded", "payoutId", payout.ID, "status", payout.Status, "txHash", txHash)
	return payout, nil
}
