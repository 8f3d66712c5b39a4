package services

import (
	"context"

	"golang.org/x/exp/slog"

	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
)

// AuditSink records state transitions to the append-only audit trail. Writes
// are fire-and-forget: a failed append is logged but never fails the
// operation that produced it.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// AuditService defines the read side used by the admin surface in addition to
// the sink
type AuditService interface {
	AuditSink
	List(ctx context.Context, page, limit int) ([]*models.AuditLog, int64, error)
}

// Compile-time check to ensure AuditServiceImpl implements AuditService
var _ AuditService = (*AuditServiceImpl)(nil)

// AuditServiceImpl writes audit records to the repository
type AuditServiceImpl struct {
	auditRepo repositories.AuditLogRepository
}

// NewAuditService creates a new AuditServiceImpl
func NewAuditService(auditRepo repositories.AuditLogRepository) *AuditServiceImpl {
	return &AuditServiceImpl{auditRepo: auditRepo}
}

// Record appends one audit entry, logging on failure
func (s *AuditServiceImpl) Record(ctx context.Context, entry models.AuditLog) {
	if err := s.auditRepo.Create(ctx, &entry); err != nil {
		slog.Error("Failed to append audit record", "error", err, "action", entry.Action)
	}
}

// List returns audit records for the admin surface
func (s *AuditServiceImpl) List(ctx context.Context, page, limit int) ([]*models.AuditLog, int64, error) {
	entries, err := s.auditRepo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.auditRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
