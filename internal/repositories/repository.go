package repositories

import (
	"context"
	"time"

	"github.com/cryptolotto/lottery-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TxnRunner executes a function inside one atomic transaction. The callback's
// repository calls commit together or not at all.
type TxnRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentUpdate carries the provider-reported fields applied alongside a
// payment status transition. Timestamps are set exactly once, on first entry
// to the terminal sub-state.
type PaymentUpdate struct {
	TransactionHash string
	Confirmations   int
	CryptoAmount    float64
	CryptoCurrency  string
	ConfirmedAt     *time.Time
	FailedAt        *time.Time
}

// DrawRepository defines the interface for draw data operations
type DrawRepository interface {
	Create(ctx context.Context, draw *models.Draw) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Draw, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Draw, error)
	FindByStatus(ctx context.Context, status models.DrawStatus) ([]*models.Draw, error)
	FindCurrent(ctx context.Context) (*models.Draw, error)
	Update(ctx context.Context, draw *models.Draw) error
	// CompareAndSwapStatus atomically moves the draw from one status to
	// another. Returns false when the draw was not in the expected status;
	// this is the mutual-exclusion primitive for draw runs.
	CompareAndSwapStatus(ctx context.Context, id primitive.ObjectID, from, to models.DrawStatus) (bool, error)
	IncrementPrizePool(ctx context.Context, id primitive.ObjectID, amount float64) error
}

// TicketRepository defines the interface for ticket data operations
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	FindByDrawID(ctx context.Context, drawID primitive.ObjectID, page, limit int) ([]*models.Ticket, error)
	// FindEligibleByDrawID returns the draw's ACTIVE tickets ordered by
	// purchase time ascending. The order is authoritative for winner-index
	// resolution.
	FindEligibleByDrawID(ctx context.Context, drawID primitive.ObjectID) ([]*models.Ticket, error)
	CountByDrawID(ctx context.Context, drawID primitive.ObjectID) (int64, error)
	CompareAndSwapStatus(ctx context.Context, id primitive.ObjectID, from, to models.TicketStatus) (bool, error)
	MarkWinner(ctx context.Context, id primitive.ObjectID) error
	MarkLosers(ctx context.Context, drawID, winnerID primitive.ObjectID) error
	CancelByDrawID(ctx context.Context, drawID primitive.ObjectID) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	// FindByProviderPaymentID returns every payment row sharing the provider
	// charge id (a multi-ticket purchase creates one row per ticket).
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) ([]*models.Payment, error)
	// TransitionStatus atomically applies a status transition guarded by the
	// current status. Returns false when the stored status no longer matches,
	// which de-duplicates concurrent webhook deliveries.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, update PaymentUpdate) (bool, error)
}

// PayoutRepository defines the interface for payout data operations
type PayoutRepository interface {
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error)
	FindByDrawID(ctx context.Context, drawID primitive.ObjectID) (*models.Payout, error)
	FindByStatus(ctx context.Context, status models.PayoutStatus, page, limit int) ([]*models.Payout, error)
	// RecordTransaction advances a PENDING payout to its terminal status with
	// the disbursement transaction hash. Returns false if the payout was not
	// PENDING.
	RecordTransaction(ctx context.Context, id primitive.ObjectID, txHash string, status models.PayoutStatus) (bool, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// WalletRepository defines the interface for wallet data operations
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Wallet, error)
	FindByAddress(ctx context.Context, address, network string) (*models.Wallet, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.Wallet, error)
}

// AdminUserRepository defines the interface for admin user data operations
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AdminUser, error)
}

// AuditLogRepository defines the interface for the append-only audit trail
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	FindAll(ctx context.Context, page, limit int) ([]*models.AuditLog, error)
	Count(ctx context.Context) (int64, error)
}
