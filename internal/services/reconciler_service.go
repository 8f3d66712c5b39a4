package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/payment"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
)

// ReconcilerService ingests provider webhook deliveries and converges payment
// and ticket state. Ingest is idempotent: redeliveries, out-of-order events
// and concurrent deliveries all converge to the same final state.
type ReconcilerService interface {
	Ingest(ctx context.Context, adapter payment.Adapter, payload []byte, signature string) error
}

// Compile-time check to ensure ReconcilerServiceImpl implements ReconcilerService
var _ ReconcilerService = (*ReconcilerServiceImpl)(nil)

// ReconcilerServiceImpl applies normalized webhook events to payment rows
type ReconcilerServiceImpl struct {
	paymentRepo repositories.PaymentRepository
	ticketRepo  repositories.TicketRepository
	drawRepo    repositories.DrawRepository
	txnRunner   repositories.TxnRunner
	audit       AuditSink
}

// NewReconcilerService creates a new ReconcilerServiceImpl
func NewReconcilerService(
	paymentRepo repositories.PaymentRepository,
	ticketRepo repositories.TicketRepository,
	drawRepo repositories.DrawRepository,
	txnRunner repositories.TxnRunner,
	audit AuditSink,
) *ReconcilerServiceImpl {
	return &ReconcilerServiceImpl{
		paymentRepo: paymentRepo,
		ticketRepo:  ticketRepo,
		drawRepo:    drawRepo,
		txnRunner:   txnRunner,
		audit:       audit,
	}
}

// Ingest verifies, parses and applies one webhook delivery. A nil return
// means the delivery is acknowledged; the provider must not redeliver it.
func (s *ReconcilerServiceImpl) Ingest(ctx context.Context, adapter payment.Adapter, payload []byte, signature string) error {
	if !adapter.VerifySignature(payload, signature) {
		s.audit.Record(ctx, models.AuditLog{
			Action:     "WEBHOOK_REJECTED",
			EntityType: "Payment",
			Metadata: map[string]interface{}{
				"provider": adapter.Name(),
				"reason":   "invalid signature",
			},
		})
		slog.Warn("Webhook signature verification failed", "provider", adapter.Name())
		return fmt.Errorf("%w: invalid webhook signature", apperrors.ErrUnauthorized)
	}

	event, err := adapter.ParseEvent(payload)
	if err != nil {
		return fmt.Errorf("%w: malformed webhook payload: %v", apperrors.ErrValidation, err)
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "WEBHOOK_RECEIVED",
		EntityType: "Payment",
		EntityID:   event.PaymentID,
		Metadata: map[string]interface{}{
			"provider": adapter.Name(),
			"type":     event.Type,
			"status":   event.Status,
		},
	})

	if event.Status == "" {
		// Informational event type with no status mapping; acknowledge.
		return nil
	}

	payments, err := s.paymentRepo.FindByProviderPaymentID(ctx, event.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to load payments for charge %s: %w", event.PaymentID, err)
	}
	if len(payments) == 0 {
		// Unknown charge id. Acknowledge so the provider stops redelivering;
		// nothing on our side references it.
		slog.Warn("Webhook for unknown payment", "provider", adapter.Name(), "providerPaymentId", event.PaymentID)
		return nil
	}

	for _, p := range payments {
		if err := s.applyEvent(ctx, p, event); err != nil {
			return err
		}
	}
	return nil
}

// applyEvent converges one payment row toward the event's status
func (s *ReconcilerServiceImpl) applyEvent(ctx context.Context, p *models.Payment, event *payment.WebhookEvent) error {
	if !p.Status.CanTransitionTo(event.Status) {
		// Stale or duplicate delivery; the row already moved past this event.
		slog.Info("Skipping non-advancing payment event",
			"paymentId", p.ID, "from", p.Status, "to", event.Status)
		return nil
	}

	now := time.Now()
	update := repositories.PaymentUpdate{
		TransactionHash: event.TransactionHash,
		Confirmations:   event.Confirmations,
		CryptoAmount:    event.Amount,
		CryptoCurrency:  event.Currency,
	}
	switch event.Status {
	case models.PaymentStatusConfirmed:
		update.ConfirmedAt = &now
	case models.PaymentStatusFailed, models.PaymentStatusExpired:
		update.FailedAt = &now
	}

	return s.txnRunner.WithTransaction(ctx, func(txCtx context.Context) error {
		moved, err := s.paymentRepo.TransitionStatus(txCtx, p.ID, p.Status, event.Status, update)
		if err != nil {
			return fmt.Errorf("failed to transition payment %s: %w", p.ID.Hex(), err)
		}
		if !moved {
			// Lost the race to a concurrent delivery; that delivery owns the
			// side effects.
			return nil
		}

		switch event.Status {
		case models.PaymentStatusConfirmed:
			return s.activateTicket(txCtx, p)
		case models.PaymentStatusFailed, models.PaymentStatusExpired:
			return s.releaseTicket(txCtx, p, event.Status)
		case models.PaymentStatusRefunded:
			s.audit.Record(txCtx, models.AuditLog{
				Action:     "PAYMENT_REFUNDED",
				EntityType: "Payment",
				EntityID:   p.ID.Hex(),
				Metadata:   map[string]interface{}{"providerPaymentId": p.ProviderPaymentID},
			})
			return nil
		default:
			return nil
		}
	})
}

// activateTicket promotes the paid ticket and credits its price to the draw
// prize pool. The ticket CAS makes the pool increment happen at most once per
// ticket no matter how many times the confirmation is delivered.
func (s *ReconcilerServiceImpl) activateTicket(ctx context.Context, p *models.Payment) error {
	promoted, err := s.ticketRepo.CompareAndSwapStatus(ctx, p.TicketID, models.TicketStatusPendingPayment, models.TicketStatusActive)
	if err != nil {
		return fmt.Errorf("failed to activate ticket %s: %w", p.TicketID.Hex(), err)
	}
	if !promoted {
		slog.Info("Ticket already left PENDING_PAYMENT", "ticketId", p.TicketID, "paymentId", p.ID)
		return nil
	}

	ticket, err := s.ticketRepo.FindByID(ctx, p.TicketID)
	if err != nil {
		return fmt.Errorf("failed to load activated ticket: %w", err)
	}
	if err := s.drawRepo.IncrementPrizePool(ctx, ticket.DrawID, p.Amount); err != nil {
		return fmt.Errorf("failed to credit prize pool: %w", err)
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "PAYMENT_CONFIRMED",
		EntityType: "Payment",
		EntityID:   p.ID.Hex(),
		Metadata: map[string]interface{}{
			"ticketId":          p.TicketID.Hex(),
			"drawId":            ticket.DrawID.Hex(),
			"amount":            p.Amount,
			"providerPaymentId": p.ProviderPaymentID,
		},
	})
	slog.Info("Payment confirmed, ticket activated", "paymentId", p.ID, "ticketId", p.TicketID, "amount", p.Amount)
	return nil
}

// releaseTicket cancels a ticket whose payment failed or expired
func (s *ReconcilerServiceImpl) releaseTicket(ctx context.Context, p *models.Payment, status models.PaymentStatus) error {
	cancelled, err := s.ticketRepo.CompareAndSwapStatus(ctx, p.TicketID, models.TicketStatusPendingPayment, models.TicketStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel ticket %s: %w", p.TicketID.Hex(), err)
	}
	if cancelled {
		s.audit.Record(ctx, models.AuditLog{
			Action:     "PAYMENT_" + string(status),
			EntityType: "Payment",
			EntityID:   p.ID.Hex(),
			Metadata: map[string]interface{}{
				"ticketId":          p.TicketID.Hex(),
				"providerPaymentId": p.ProviderPaymentID,
			},
		})
		slog.Info("Payment did not complete, ticket released", "paymentId", p.ID, "ticketId", p.TicketID, "status", status)
	}
	return nil
}
