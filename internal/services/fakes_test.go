package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
)

// directTxnRunner executes the callback without a transaction. Good enough
// for in-memory fakes where there is nothing to roll back.
type directTxnRunner struct{}

func (directTxnRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeDrawRepo struct {
	mu    sync.Mutex
	draws map[primitive.ObjectID]*models.Draw
}

func newFakeDrawRepo() *fakeDrawRepo {
	return &fakeDrawRepo{draws: make(map[primitive.ObjectID]*models.Draw)}
}

func (r *fakeDrawRepo) Create(ctx context.Context, draw *models.Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if draw.ID.IsZero() {
		draw.ID = primitive.NewObjectID()
	}
	draw.CreatedAt = time.Now()
	cp := *draw
	r.draws[draw.ID] = &cp
	return nil
}

func (r *fakeDrawRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Draw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draw, ok := r.draws[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *draw
	return &cp, nil
}

func (r *fakeDrawRepo) FindAll(ctx context.Context, page, limit int) ([]*models.Draw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Draw, 0, len(r.draws))
	for _, d := range r.draws {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeDrawRepo) FindByStatus(ctx context.Context, status models.DrawStatus) ([]*models.Draw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Draw
	for _, d := range r.draws {
		if d.Status == status {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeDrawRepo) FindCurrent(ctx context.Context) (*models.Draw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.draws {
		if d.Status == models.DrawStatusActive {
			cp := *d
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// Update mirrors the mongodb implementation's field set: only lifecycle
// fields are written. The prize pool accumulator is owned by
// IncrementPrizePool and must survive a concurrent Update.
func (r *fakeDrawRepo) Update(ctx context.Context, draw *models.Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.draws[draw.ID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	stored.Status = draw.Status
	stored.StartedAt = draw.StartedAt
	stored.CompletedAt = draw.CompletedAt
	stored.AnchorHash = draw.AnchorHash
	stored.AnchorHeight = draw.AnchorHeight
	stored.WinnerProof = draw.WinnerProof
	stored.CancelReason = draw.CancelReason
	return nil
}

func (r *fakeDrawRepo) CompareAndSwapStatus(ctx context.Context, id primitive.ObjectID, from, to models.DrawStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draw, ok := r.draws[id]
	if !ok || draw.Status != from {
		return false, nil
	}
	draw.Status = to
	return true, nil
}

func (r *fakeDrawRepo) IncrementPrizePool(ctx context.Context, id primitive.ObjectID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	draw, ok := r.draws[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	draw.TotalPrizePool += amount
	return nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[primitive.ObjectID]*models.Ticket
	order   []primitive.ObjectID
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[primitive.ObjectID]*models.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *fakeTicketRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTicketRepo) FindByDrawID(ctx context.Context, drawID primitive.ObjectID, page, limit int) ([]*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ticket
	for _, id := range r.order {
		t := r.tickets[id]
		if t.DrawID == drawID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) FindEligibleByDrawID(ctx context.Context, drawID primitive.ObjectID) ([]*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ticket
	for _, id := range r.order {
		t := r.tickets[id]
		if t.DrawID == drawID && t.Status == models.TicketStatusActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByDrawID(ctx context.Context, drawID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tickets {
		if t.DrawID == drawID && t.Status != models.TicketStatusCancelled {
			n++
		}
	}
	return n, nil
}

func (r *fakeTicketRepo) CompareAndSwapStatus(ctx context.Context, id primitive.ObjectID, from, to models.TicketStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (r *fakeTicketRepo) MarkWinner(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	t.Status = models.TicketStatusWon
	t.IsWinner = true
	return nil
}

func (r *fakeTicketRepo) MarkLosers(ctx context.Context, drawID, winnerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.DrawID == drawID && t.ID != winnerID && t.Status == models.TicketStatusActive {
			t.Status = models.TicketStatusLost
		}
	}
	return nil
}

func (r *fakeTicketRepo) CancelByDrawID(ctx context.Context, drawID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.DrawID == drawID && (t.Status == models.TicketStatusPendingPayment || t.Status == models.TicketStatusActive) {
			t.Status = models.TicketStatusCancelled
		}
	}
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[primitive.ObjectID]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[primitive.ObjectID]*models.Payment)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	cp := *payment
	r.payments[payment.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if p.ProviderPaymentID == providerPaymentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, update repositories.PaymentUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if update.TransactionHash != "" {
		p.TransactionHash = update.TransactionHash
	}
	if update.Confirmations > 0 {
		p.Confirmations = update.Confirmations
	}
	if update.CryptoAmount > 0 {
		p.CryptoAmount = update.CryptoAmount
		p.CryptoCurrency = update.CryptoCurrency
	}
	if update.ConfirmedAt != nil {
		p.ConfirmedAt = update.ConfirmedAt
	}
	if update.FailedAt != nil {
		p.FailedAt = update.FailedAt
	}
	return true, nil
}

type fakePayoutRepo struct {
	mu      sync.Mutex
	payouts map[primitive.ObjectID]*models.Payout
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{payouts: make(map[primitive.ObjectID]*models.Payout)}
}

func (r *fakePayoutRepo) Create(ctx context.Context, payout *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payout.ID.IsZero() {
		payout.ID = primitive.NewObjectID()
	}
	cp := *payout
	r.payouts[payout.ID] = &cp
	return nil
}

func (r *fakePayoutRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

func (r *fakePayoutRepo) FindByDrawID(ctx context.Context, drawID primitive.ObjectID) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payouts {
		if p.DrawID == drawID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakePayoutRepo) FindByStatus(ctx context.Context, status models.PayoutStatus, page, limit int) ([]*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payout
	for _, p := range r.payouts {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePayoutRepo) RecordTransaction(ctx context.Context, id primitive.ObjectID, txHash string, status models.PayoutStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok || p.Status != models.PayoutStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = status
	p.TransactionHash = txHash
	p.RecordedAt = &now
	return true, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[primitive.ObjectID]*models.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[primitive.ObjectID]*models.Wallet)}
}

func (r *fakeWalletRepo) Create(ctx context.Context, wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wallet.ID.IsZero() {
		wallet.ID = primitive.NewObjectID()
	}
	cp := *wallet
	r.wallets[wallet.ID] = &cp
	return nil
}

func (r *fakeWalletRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) FindByAddress(ctx context.Context, address, network string) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.Address == address && w.Network == network {
			cp := *w
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeWalletRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Wallet
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAdminUserRepo struct {
	mu     sync.Mutex
	admins map[primitive.ObjectID]*models.AdminUser
}

func newFakeAdminUserRepo() *fakeAdminUserRepo {
	return &fakeAdminUserRepo{admins: make(map[primitive.ObjectID]*models.AdminUser)}
}

func (r *fakeAdminUserRepo) Create(ctx context.Context, adminUser *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if adminUser.ID.IsZero() {
		adminUser.ID = primitive.NewObjectID()
	}
	cp := *adminUser
	r.admins[adminUser.ID] = &cp
	return nil
}

func (r *fakeAdminUserRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeAdminUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *a
	return &cp, nil
}

// recordingAuditSink captures audit actions for assertions
type recordingAuditSink struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (s *recordingAuditSink) Record(ctx context.Context, entry models.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingAuditSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

var _ repositories.DrawRepository = (*fakeDrawRepo)(nil)
var _ repositories.TicketRepository = (*fakeTicketRepo)(nil)
var _ repositories.PaymentRepository = (*fakePaymentRepo)(nil)
var _ repositories.PayoutRepository = (*fakePayoutRepo)(nil)
var _ repositories.UserRepository = (*fakeUserRepo)(nil)
var _ repositories.WalletRepository = (*fakeWalletRepo)(nil)
var _ repositories.AdminUserRepository = (*fakeAdminUserRepo)(nil)
var _ repositories.TxnRunner = (directTxnRunner{})
var _ AuditSink = (*recordingAuditSink)(nil)
