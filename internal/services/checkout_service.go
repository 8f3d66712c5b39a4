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

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/payment"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
	"github.com/cryptolotto/lottery-backend/internal/utils"
)

const maxTicketsPerPurchase = 100

// PurchaseInput is a buyer's ticket purchase request
type PurchaseInput struct {
	DrawID        primitive.ObjectID
	Quantity      int
	Provider      string
	WalletAddress string
	WalletNetwork string
	Email         string
}

// PurchaseResult is the created checkout session with its pending tickets
type PurchaseResult struct {
	CheckoutURL string               `json:"checkoutUrl"`
	CheckoutID  string               `json:"checkoutId"`
	Amount      float64              `json:"amount"`
	Currency    string               `json:"currency"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	Tickets     []*models.Ticket     `json:"tickets"`
	PaymentIDs  []primitive.ObjectID `json:"paymentIds"`
}

// CheckoutService creates provider checkout sessions and their pending
// tickets and payment rows
type CheckoutService interface {
	Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error)
}

// Compile-time check to ensure CheckoutServiceImpl implements CheckoutService
var _ CheckoutService = (*CheckoutServiceImpl)(nil)

// CheckoutServiceImpl wires the purchase flow: wallet resolution, ticket
// reservation, provider checkout, payment rows
type CheckoutServiceImpl struct {
	drawRepo    repositories.DrawRepository
	ticketRepo  repositories.TicketRepository
	paymentRepo repositories.PaymentRepository
	userRepo    repositories.UserRepository
	walletRepo  repositories.WalletRepository
	txnRunner   repositories.TxnRunner
	registry    *payment.Registry
	audit       AuditSink
	cfg         *config.Config
}

// NewCheckoutService creates a new CheckoutServiceImpl
func NewCheckoutService(
	drawRepo repositories.DrawRepository,
	ticketRepo repositories.TicketRepository,
	paymentRepo repositories.PaymentRepository,
	userRepo repositories.UserRepository,
	walletRepo repositories.WalletRepository,
	txnRunner repositories.TxnRunner,
	registry *payment.Registry,
	audit AuditSink,
	cfg *config.Config,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		drawRepo:    drawRepo,
		ticketRepo:  ticketRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		txnRunner:   txnRunner,
		registry:    registry,
		audit:       audit,
		cfg:         cfg,
	}
}

// Purchase reserves quantity tickets on an open draw and creates one provider
// checkout covering all of them. Tickets stay PENDING_PAYMENT until the
// provider confirms the charge; the reconciler promotes or releases them.
func (s *CheckoutServiceImpl) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	if input.Quantity < 1 || input.Quantity > maxTicketsPerPurchase {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", apperrors.ErrValidation, maxTicketsPerPurchase)
	}
	if input.WalletAddress == "" || input.WalletNetwork == "" {
		return nil, fmt.Errorf("%w: wallet address and network are required", apperrors.ErrValidation)
	}

	adapter, err := s.registry.ByName(input.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown payment provider %q", apperrors.ErrValidation, input.Provider)
	}

	draw, err := s.drawRepo.FindByID(ctx, input.DrawID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: draw %s", apperrors.ErrNotFound, input.DrawID.Hex())
		}
		return nil, fmt.Errorf("failed to load draw: %w", err)
	}
	if !draw.AcceptsTickets() {
		return nil, fmt.Errorf("%w: draw is not selling tickets", apperrors.ErrInvalidState)
	}

	sold, err := s.ticketRepo.CountByDrawID(ctx, input.DrawID)
	if err != nil {
		return nil, fmt.Errorf("failed to count draw tickets: %w", err)
	}
	if int(sold)+input.Quantity > draw.MaxTickets {
		return nil, fmt.Errorf("%w: only %d tickets remain", apperrors.ErrValidation, draw.MaxTickets-int(sold))
	}

	wallet, err := s.resolveWallet(ctx, input)
	if err != nil {
		return nil, err
	}

	total, _ := decimal.NewFromFloat(draw.TicketPrice).
		Mul(decimal.NewFromInt(int64(input.Quantity))).Float64()

	tickets := make([]*models.Ticket, 0, input.Quantity)
	now := time.Now()
	err = s.txnRunner.WithTransaction(ctx, func(txCtx context.Context) error {
		for i := 0; i < input.Quantity; i++ {
			number, err := utils.GenerateTicketNumber()
			if err != nil {
				return err
			}
			ticket := &models.Ticket{
				TicketNumber: number,
				DrawID:       draw.ID,
				UserID:       wallet.UserID,
				WalletID:     wallet.ID,
				Status:       models.TicketStatusPendingPayment,
				PurchasedAt:  now,
			}
			if err := s.ticketRepo.Create(txCtx, ticket); err != nil {
				return fmt.Errorf("failed to reserve ticket: %w", err)
			}
			tickets = append(tickets, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	checkout, err := adapter.CreateCheckout(ctx, payment.CheckoutOptions{
		Amount:        total,
		Currency:      draw.Currency,
		Description:   fmt.Sprintf("%d ticket(s) for %s", input.Quantity, draw.Title),
		CustomerEmail: input.Email,
		Metadata: map[string]interface{}{
			"drawId":   draw.ID.Hex(),
			"quantity": input.Quantity,
		},
		RedirectURL: s.cfg.Server.AppURL + "/checkout/success",
		CancelURL:   s.cfg.Server.AppURL + "/checkout/cancel",
	})
	if err != nil {
		// The checkout never existed, so release the reservations now instead
		// of waiting for expiry.
		s.releaseTickets(ctx, tickets)
		return nil, err
	}

	perTicket, _ := decimal.NewFromFloat(draw.TicketPrice).Float64()
	paymentIDs := make([]primitive.ObjectID, 0, len(tickets))
	err = s.txnRunner.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, ticket := range tickets {
			expiresAt := checkout.ExpiresAt
			row := &models.Payment{
				Provider:          adapter.Name(),
				ProviderPaymentID: checkout.ID,
				TicketID:          ticket.ID,
				Amount:            perTicket,
				Currency:          draw.Currency,
				Status:            models.PaymentStatusPending,
				CheckoutURL:       checkout.URL,
				ExpiresAt:         &expiresAt,
			}
			if err := s.paymentRepo.Create(txCtx, row); err != nil {
				return fmt.Errorf("failed to create payment row: %w", err)
			}
			paymentIDs = append(paymentIDs, row.ID)
		}
		return nil
	})
	if err != nil {
		s.releaseTickets(ctx, tickets)
		return nil, err
	}

	s.audit.Record(ctx, models.AuditLog{
		Action:     "CHECKOUT_CREATED",
		EntityType: "Payment",
		EntityID:   checkout.ID,
		Metadata: map[string]interface{}{
			"provider": adapter.Name(),
			"drawId":   draw.ID.Hex(),
			"quantity": input.Quantity,
			"amount":   total,
		},
	})

	slog.Info("Checkout created", "provider", adapter.Name(), "checkoutId", checkout.ID, "drawId", draw.ID, "quantity", input.Quantity, "amount", total)
	return &PurchaseResult{
		CheckoutURL: checkout.URL,
		CheckoutID:  checkout.ID,
		Amount:      total,
		Currency:    draw.Currency,
		ExpiresAt:   checkout.ExpiresAt,
		Tickets:     tickets,
		PaymentIDs:  paymentIDs,
	}, nil
}

// resolveWallet finds or creates the buyer's wallet (and owning user)
func (s *CheckoutServiceImpl) resolveWallet(ctx context.Context, input PurchaseInput) (*models.Wallet, error) {
	wallet, err := s.walletRepo.FindByAddress(ctx, input.WalletAddress, input.WalletNetwork)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to look up wallet: %w", err)
	}

	user, err := s.resolveUser(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	wallet = &models.Wallet{
		UserID:    user.ID,
		Address:   input.WalletAddress,
		Network:   input.WalletNetwork,
		IsPrimary: true,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func (s *CheckoutServiceImpl) resolveUser(ctx context.Context, email string) (*models.User, error) {
	if email != "" {
		user, err := s.userRepo.FindByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
	}

	user := &models.User{Email: email}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *CheckoutServiceImpl) releaseTickets(ctx context.Context, tickets []*models.Ticket) {
	for _, ticket := range tickets {
		if _, err := s.ticketRepo.CompareAndSwapStatus(ctx, ticket.ID, models.TicketStatusPendingPayment, models.TicketStatusCancelled); err != nil {
			slog.Error("Failed to release reserved ticket", "error", err, "ticketId", ticket.ID)
		}
	}
}
