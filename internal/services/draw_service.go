package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/cryptolotto/lottery-backend/internal/anchor"
	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/fairness"
	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
)

// CreateDrawInput is the operator input for creating a draw
type CreateDrawInput struct {
	Title       string
	Description string
	TicketPrice float64
	Currency    string
	MaxTickets  int
	ScheduledAt time.Time
}

// RunResult bundles the outcome of a completed draw run
type RunResult struct {
	Draw   *models.Draw          `json:"draw"`
	Winner *models.Ticket        `json:"winner"`
	Proof  *models.FairnessProof `json:"proof"`
	Payout *models.Payout        `json:"payout"`
}

// WinnerSummary is one past winner for the public results listing
type WinnerSummary struct {
	DrawID       primitive.ObjectID `json:"drawId"`
	DrawTitle    string             `json:"drawTitle"`
	TicketNumber string             `json:"ticketNumber"`
	PrizeAmount  float64            `json:"prizeAmount"`
	Currency     string             `json:"currency"`
	CompletedAt  *time.Time         `json:"completedAt"`
}

// DrawService defines the draw lifecycle operations
type DrawService interface {
	Create(ctx context.Context, input CreateDrawInput) (*models.Draw, error)
	Start(ctx context.Context, id primitive.ObjectID) (*models.Draw, error)
	Run(ctx context.Context, id primitive.ObjectID, manualAnchor string) (*RunResult, error)
	Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Draw, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Draw, error)
	List(ctx context.Context, page, limit int) ([]*models.Draw, error)
	Current(ctx context.Context) (*models.Draw, error)
	Tickets(ctx context.Context, drawID primitive.ObjectID, page, limit int) ([]*models.Ticket, error)
	RecentWinners(ctx context.Context, limit int) ([]WinnerSummary, error)
}

// Compile-time check to ensure DrawServiceImpl implements DrawService
var _ DrawService = (*DrawServiceImpl)(nil)

// DrawServiceImpl orchestrates draw state transitions and winner selection
type DrawServiceImpl struct {
	drawRepo   repositories.DrawRepository
	ticketRepo repositories.TicketRepository
	payoutRepo repositories.PayoutRepository
	txnRunner  repositories.TxnRunner
	anchors    anchor.Provider
	audit      AuditSink
	cfg        *config.Config
}

// NewDrawService creates a new DrawServiceImpl
func NewDrawService(
	drawRepo repositories.DrawRepository,
	ticketRepo repositories.TicketRepository,
	payoutRepo repositories.PayoutRepository,
	txnRunner repositories.TxnRunner,
	anchors anchor.Provider,
	audit AuditSink,
	cfg *config.Config,
) *DrawServiceImpl {
	return &DrawServiceImpl{
		drawRepo:   drawRepo,
		ticketRepo: ticketRepo,
		payoutRepo: payoutRepo,
		txnRunner:  txnRunner,
		anchors:    anchors,
		audit:      audit,
		cfg:        cfg,
	}
}

// Create creates a draw in UPCOMING with a fresh secret and its published
// commitment hash
func (s *DrawServiceImpl) Create(ctx context.Context, input CreateDrawInput) (*models.Draw, error) {
	if !input.ScheduledAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: scheduledAt must be in the future", apperrors.ErrValidation)
	}
	if input.MaxTickets < 1 {
		return nil, fmt.Errorf("%w: maxTickets must be at least 1", apperrors.ErrValidation)
	}
	if input.TicketPrice <= 0 {
		return nil, fmt.Errorf("%w: ticketPrice must be positive", apperrors.ErrValidation)
	}

	secret, err := fairness.GenerateSecret()
	if err != nil {
		return nil, err
	}

	draw := &models.Draw{
		Title:          input.Title,
		Description:    input.Description,
		TicketPrice:    input.TicketPrice,
		Currency:       input.Currency,
		MaxTickets:     input.MaxTickets,
		Status:         models.DrawStatusUpcoming,
		ScheduledAt:    input.ScheduledAt,
		Secret:         secret,
		CommitmentHash: fairness.Commit(secret),
	}
	if err := s.drawRepo.Create(ctx, draw); err != nil {
		slog.Error("Failed to create draw", "error", err)
		return nil, fmt.Errorf("failed to save draw: %w", err)
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "DRAW_CREATED",
		EntityType: "Draw",
		EntityID:   draw.ID.Hex(),
		Metadata: map[string]interface{}{
			"title":          draw.Title,
			"scheduledAt":    draw.ScheduledAt,
			"commitmentHash": draw.CommitmentHash,
		},
	})

	slog.Info("Draw created", "drawId", draw.ID, "scheduledAt", draw.ScheduledAt, "commitmentHash", draw.CommitmentHash)
	return draw, nil
}

// Start transitions a draw from UPCOMING to ACTIVE
func (s *DrawServiceImpl) Start(ctx context.Context, id primitive.ObjectID) (*models.Draw, error) {
	draw, err := s.findDraw(ctx, id)
	if err != nil {
		return nil, err
	}
	if draw.Status != models.DrawStatusUpcoming {
		return nil, fmt.Errorf("%w: cannot start draw in status %s", apperrors.ErrInvalidState, draw.Status)
	}

	swapped, err := s.drawRepo.CompareAndSwapStatus(ctx, id, models.DrawStatusUpcoming, models.DrawStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to start draw: %w", err)
	}
	if !swapped {
		return nil, fmt.Errorf("%w: draw is no longer UPCOMING", apperrors.ErrInvalidState)
	}

	now := time.Now()
	draw.Status = models.DrawStatusActive
	draw.StartedAt = &now
	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to stamp draw start: %w", err)
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "DRAW_STARTED",
		EntityType: "Draw",
		EntityID:   draw.ID.Hex(),
		Metadata:   map[string]interface{}{"title": draw.Title},
	})

	slog.Info("Draw started", "drawId", draw.ID)
	return draw, nil
}

// Run executes the draw: it resolves the randomness anchor, computes the
// winner from the committed secret, and atomically records the outcome with
// the payout obligation. At most one run is in flight per draw; the DRAWING
// status is the mutual-exclusion flag.
func (s *DrawServiceImpl) Run(ctx context.Context, id primitive.ObjectID, manualAnchor string) (*RunResult, error) {
	if manualAnchor != "" && !s.cfg.Lottery.AllowManualAnchor {
		return nil, fmt.Errorf("%w: manual anchors are disabled", apperrors.ErrValidation)
	}

	draw, err := s.findDraw(ctx, id)
	if err != nil {
		return nil, err
	}
	switch draw.Status {
	case models.DrawStatusCompleted:
		return nil, apperrors.ErrAlreadyCompleted
	case models.DrawStatusDrawing:
		return nil, apperrors.ErrAlreadyRunning
	case models.DrawStatusActive:
		// proceed
	default:
		return nil, fmt.Errorf("%w: cannot run draw in status %s", apperrors.ErrInvalidState, draw.Status)
	}

	// ACTIVE -> DRAWING is the exclusivity gate: a concurrent run that loses
	// this compare-and-set fails fast instead of proceeding.
	swapped, err := s.drawRepo.CompareAndSwapStatus(ctx, id, models.DrawStatusActive, models.DrawStatusDrawing)
	if err != nil {
		return nil, fmt.Errorf("failed to mark draw as drawing: %w", err)
	}
	if !swapped {
		current, findErr := s.findDraw(ctx, id)
		if findErr == nil && current.Status == models.DrawStatusCompleted {
			return nil, apperrors.ErrAlreadyCompleted
		}
		return nil, apperrors.ErrAlreadyRunning
	}

	result, err := s.completeDraw(ctx, draw, manualAnchor)
	if err != nil {
		// Roll back to ACTIVE so the caller can retry the run.
		if _, rbErr := s.drawRepo.CompareAndSwapStatus(ctx, id, models.DrawStatusDrawing, models.DrawStatusActive); rbErr != nil {
			slog.Error("CRITICAL: failed to roll back draw to ACTIVE", "error", rbErr, "drawId", id)
		}
		slog.Error("Draw run failed", "error", err, "drawId", id)
		return nil, err
	}
	return result, nil
}

func (s *DrawServiceImpl) completeDraw(ctx context.Context, draw *models.Draw, manualAnchor string) (*RunResult, error) {
	// Reload now that the draw is DRAWING: a payment confirmed between the
	// initial load and the status swap may have grown the prize pool.
	draw, err := s.findDraw(ctx, draw.ID)
	if err != nil {
		return nil, err
	}

	// Eligibility is read under the DRAWING lock so the set is final; no
	// ticket can become ACTIVE for a draw that stopped selling.
	tickets, err := s.ticketRepo.FindEligibleByDrawID(ctx, draw.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible tickets: %w", err)
	}
	if len(tickets) == 0 {
		return nil, apperrors.ErrEmptyDraw
	}

	anchorHash := manualAnchor
	var anchorHeight int64
	if anchorHash == "" {
		a, err := s.anchors.GetLatestAnchor(ctx)
		if err != nil {
			return nil, err
		}
		anchorHash = a.BlockHash
		anchorHeight = a.BlockHeight
	}

	proof, err := fairness.ComputeWinner(draw.Secret, anchorHash, len(tickets))
	if err != nil {
		return nil, err
	}
	winner := tickets[proof.WinnerIndex]

	// Payout is prize pool minus the platform fee, computed exactly once.
	feeRate := decimal.NewFromFloat(s.cfg.Lottery.FeeRate)
	pool := decimal.NewFromFloat(draw.TotalPrizePool)
	payoutAmount, _ := pool.Mul(decimal.NewFromInt(1).Sub(feeRate)).Float64()

	now := time.Now()
	draw.Status = models.DrawStatusCompleted
	draw.CompletedAt = &now
	draw.AnchorHash = anchorHash
	draw.AnchorHeight = anchorHeight
	draw.WinnerProof = proof

	payout := &models.Payout{
		DrawID:   draw.ID,
		TicketID: winner.ID,
		WalletID: winner.WalletID,
		Amount:   payoutAmount,
		Currency: draw.Currency,
		Status:   models.PayoutStatusPending,
		Proof:    proof,
	}

	err = s.txnRunner.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.drawRepo.Update(txCtx, draw); err != nil {
			return fmt.Errorf("failed to complete draw: %w", err)
		}
		if err := s.ticketRepo.MarkWinner(txCtx, winner.ID); err != nil {
			return fmt.Errorf("failed to mark winning ticket: %w", err)
		}
		if err := s.ticketRepo.MarkLosers(txCtx, draw.ID, winner.ID); err != nil {
			return fmt.Errorf("failed to mark losing tickets: %w", err)
		}
		if err := s.payoutRepo.Create(txCtx, payout); err != nil {
			return fmt.Errorf("failed to create payout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	winner.Status = models.TicketStatusWon
	winner.IsWinner = true

	s.audit.Record(ctx, models.AuditLog{
		Action:     "DRAW_COMPLETED",
		EntityType: "Draw",
		EntityID:   draw.ID.Hex(),
		Metadata: map[string]interface{}{
			"winnerTicketId":     winner.ID.Hex(),
			"winnerTicketNumber": winner.TicketNumber,
			"commitmentHash":     proof.CommitmentHash,
			"anchor":             proof.Anchor,
			"combinedHash":       proof.CombinedHash,
			"winnerIndex":        proof.WinnerIndex,
			"payoutId":           payout.ID.Hex(),
			"payoutAmount":       payout.Amount,
		},
	})

	slog.Info("Draw completed", "drawId", draw.ID, "winnerTicket", winner.TicketNumber, "winnerIndex", proof.WinnerIndex, "payout", payout.Amount)
	return &RunResult{Draw: draw, Winner: winner, Proof: proof, Payout: payout}, nil
}

// Cancel terminally cancels a draw and cascades CANCELLED to its tickets
func (s *DrawServiceImpl) Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Draw, error) {
	draw, err := s.findDraw(ctx, id)
	if err != nil {
		return nil, err
	}
	if draw.Status != models.DrawStatusUpcoming && draw.Status != models.DrawStatusActive {
		return nil, fmt.Errorf("%w: cannot cancel draw in status %s", apperrors.ErrInvalidState, draw.Status)
	}

	draw.Status = models.DrawStatusCancelled
	draw.CancelReason = reason

	err = s.txnRunner.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.drawRepo.Update(txCtx, draw); err != nil {
			return fmt.Errorf("failed to cancel draw: %w", err)
		}
		if err := s.ticketRepo.CancelByDrawID(txCtx, draw.ID); err != nil {
			return fmt.Errorf("failed to cancel draw tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "DRAW_CANCELLED",
		EntityType: "Draw",
		EntityID:   draw.ID.Hex(),
		Metadata:   map[string]interface{}{"reason": reason},
	})

	slog.Info("Draw cancelled", "drawId", draw.ID, "reason", reason)
	return draw, nil
}

// GetByID returns a draw by id
func (s *DrawServiceImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Draw, error) {
	return s.findDraw(ctx, id)
}

// List returns draws, newest first
func (s *DrawServiceImpl) List(ctx context.Context, page, limit int) ([]*models.Draw, error) {
	return s.drawRepo.FindAll(ctx, page, limit)
}

// Current returns the draw currently selling tickets
func (s *DrawServiceImpl) Current(ctx context.Context) (*models.Draw, error) {
	draw, err := s.drawRepo.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: no open draw", apperrors.ErrNotFound)
		}
		return nil, err
	}
	return draw, nil
}

// Tickets returns a draw's tickets for the admin surface
func (s *DrawServiceImpl) Tickets(ctx context.Context, drawID primitive.ObjectID, page, limit int) ([]*models.Ticket, error) {
	if _, err := s.findDraw(ctx, drawID); err != nil {
		return nil, err
	}
	return s.ticketRepo.FindByDrawID(ctx, drawID, page, limit)
}

// RecentWinners returns summaries of the latest completed draws for the
// public results listing
func (s *DrawServiceImpl) RecentWinners(ctx context.Context, limit int) ([]WinnerSummary, error) {
	completed, err := s.drawRepo.FindByStatus(ctx, models.DrawStatusCompleted)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(completed) > limit {
		completed = completed[:limit]
	}

	summaries := make([]WinnerSummary, 0, len(completed))
	for _, draw := range completed {
		payout, err := s.payoutRepo.FindByDrawID(ctx, draw.ID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return nil, err
		}
		ticket, err := s.ticketRepo.FindByID(ctx, payout.TicketID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, WinnerSummary{
			DrawID:       draw.ID,
			DrawTitle:    draw.Title,
			TicketNumber: ticket.TicketNumber,
			PrizeAmount:  payout.Amount,
			Currency:     payout.Currency,
			CompletedAt:  draw.CompletedAt,
		})
	}
	return summaries, nil
}

func (s *DrawServiceImpl) findDraw(ctx context.Context, id primitive.ObjectID) (*models.Draw, error) {
	draw, err := s.drawRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: draw %s", apperrors.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("failed to load draw: %w", err)
	}
	return draw, nil
}
