package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cryptolotto/lottery-backend/internal/anchor"
	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/fairness"
	"github.com/cryptolotto/lottery-backend/internal/models"
)

// Known protocol vector: with this secret and anchor, index = hash % 3 = 1.
const (
	fixedSecret = "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
	fixedAnchor = "00001234"
)

type drawServiceFixture struct {
	service *DrawServiceImpl
	draws   *fakeDrawRepo
	tickets *fakeTicketRepo
	payouts *fakePayoutRepo
	audit   *recordingAuditSink
	cfg     *config.Config
}

func newDrawServiceFixture(t *testing.T) *drawServiceFixture {
	t.Helper()
	draws := newFakeDrawRepo()
	tickets := newFakeTicketRepo()
	payouts := newFakePayoutRepo()
	audit := &recordingAuditSink{}
	cfg := &config.Config{
		Lottery: config.LotteryConfig{FeeRate: 0.05, AllowManualAnchor: true},
	}
	provider := anchor.NewStaticProvider("bitcoin", fixedAnchor, 800000)
	service := NewDrawService(draws, tickets, payouts, directTxnRunner{}, provider, audit, cfg)
	return &drawServiceFixture{service: service, draws: draws, tickets: tickets, payouts: payouts, audit: audit, cfg: cfg}
}

func (f *drawServiceFixture) seedDraw(t *testing.T, status models.DrawStatus, secret string, pool float64) *models.Draw {
	t.Helper()
	draw := &models.Draw{
		Title:          "Weekly Draw",
		TicketPrice:    10,
		Currency:       "USD",
		MaxTickets:     1000,
		Status:         status,
		ScheduledAt:    time.Now().Add(time.Hour),
		Secret:         secret,
		CommitmentHash: fairness.Commit(secret),
		TotalPrizePool: pool,
	}
	require.NoError(t, f.draws.Create(context.Background(), draw))
	return draw
}

func (f *drawServiceFixture) seedTickets(t *testing.T, drawID primitive.ObjectID, n int, status models.TicketStatus) []*models.Ticket {
	t.Helper()
	out := make([]*models.Ticket, 0, n)
	for i := 0; i < n; i++ {
		ticket := &models.Ticket{
			TicketNumber: "TKT-TEST-" + primitive.NewObjectID().Hex()[:6],
			DrawID:       drawID,
			WalletID:     primitive.NewObjectID(),
			Status:       status,
			PurchasedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, f.tickets.Create(context.Background(), ticket))
		out = append(out, ticket)
	}
	return out
}

func TestCreateDraw(t *testing.T) {
	f := newDrawServiceFixture(t)

	draw, err := f.service.Create(context.Background(), CreateDrawInput{
		Title:       "Weekly Draw",
		TicketPrice: 10,
		Currency:    "USD",
		MaxTickets:  100,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, models.DrawStatusUpcoming, draw.Status)
	assert.Len(t, draw.Secret, 2*fairness.SecretLength)
	assert.Equal(t, fairness.Commit(draw.Secret), draw.CommitmentHash)
	assert.Contains(t, f.audit.actions(), "DRAW_CREATED")
}

func TestCreateDrawValidation(t *testing.T) {
	f := newDrawServiceFixture(t)

	cases := []struct {
		name  string
		input CreateDrawInput
	}{
		{"past schedule", CreateDrawInput{Title: "d", TicketPrice: 10, MaxTickets: 10, ScheduledAt: time.Now().Add(-time.Hour)}},
		{"zero max tickets", CreateDrawInput{Title: "d", TicketPrice: 10, MaxTickets: 0, ScheduledAt: time.Now().Add(time.Hour)}},
		{"free ticket", CreateDrawInput{Title: "d", TicketPrice: 0, MaxTickets: 10, ScheduledAt: time.Now().Add(time.Hour)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Create(context.Background(), tc.input)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestStartDraw(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusUpcoming, fixedSecret, 0)

	started, err := f.service.Start(context.Background(), draw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DrawStatusActive, started.Status)
	assert.NotNil(t, started.StartedAt)

	// Starting again is an invalid transition.
	_, err = f.service.Start(context.Background(), draw.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRunDrawSelectsProvenWinner(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 30)
	tickets := f.seedTickets(t, draw.ID, 3, models.TicketStatusActive)

	result, err := f.service.Run(context.Background(), draw.ID, fixedAnchor)
	require.NoError(t, err)

	// The fixed secret and anchor deterministically pick index 1.
	assert.Equal(t, 1, result.Proof.WinnerIndex)
	assert.Equal(t, tickets[1].ID, result.Winner.ID)
	assert.True(t, fairness.Verify(result.Proof))

	assert.Equal(t, models.DrawStatusCompleted, result.Draw.Status)
	assert.Equal(t, fixedAnchor, result.Draw.AnchorHash)
	assert.NotNil(t, result.Draw.CompletedAt)

	// Payout is pool minus 5% fee.
	assert.InDelta(t, 28.5, result.Payout.Amount, 1e-9)
	assert.Equal(t, models.PayoutStatusPending, result.Payout.Status)
	assert.Equal(t, tickets[1].WalletID, result.Payout.WalletID)

	winner, err := f.tickets.FindByID(context.Background(), tickets[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusWon, winner.Status)
	assert.True(t, winner.IsWinner)

	for _, idx := range []int{0, 2} {
		loser, err := f.tickets.FindByID(context.Background(), tickets[idx].ID)
		require.NoError(t, err)
		assert.Equal(t, models.TicketStatusLost, loser.Status)
	}

	assert.Contains(t, f.audit.actions(), "DRAW_COMPLETED")
}

func TestRunDrawUsesAnchorProvider(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 100)
	f.seedTickets(t, draw.ID, 3, models.TicketStatusActive)

	result, err := f.service.Run(context.Background(), draw.ID, "")
	require.NoError(t, err)

	assert.Equal(t, fixedAnchor, result.Draw.AnchorHash)
	assert.Equal(t, int64(800000), result.Draw.AnchorHeight)
}

func TestRunDrawManualAnchorDisabled(t *testing.T) {
	f := newDrawServiceFixture(t)
	f.cfg.Lottery.AllowManualAnchor = false
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 0)
	f.seedTickets(t, draw.ID, 3, models.TicketStatusActive)

	_, err := f.service.Run(context.Background(), draw.ID, fixedAnchor)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Draw must be untouched.
	stored, findErr := f.draws.FindByID(context.Background(), draw.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.DrawStatusActive, stored.Status)
}

func TestRunDrawEmpty(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 0)
	// Pending tickets are not eligible.
	f.seedTickets(t, draw.ID, 2, models.TicketStatusPendingPayment)

	_, err := f.service.Run(context.Background(), draw.ID, fixedAnchor)
	assert.ErrorIs(t, err, apperrors.ErrEmptyDraw)

	stored, findErr := f.draws.FindByID(context.Background(), draw.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.DrawStatusActive, stored.Status)
}

func TestRunDrawStateGuards(t *testing.T) {
	f := newDrawServiceFixture(t)

	completed := f.seedDraw(t, models.DrawStatusCompleted, fixedSecret, 0)
	_, err := f.service.Run(context.Background(), completed.ID, fixedAnchor)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCompleted)

	drawing := f.seedDraw(t, models.DrawStatusDrawing, fixedSecret, 0)
	_, err = f.service.Run(context.Background(), drawing.ID, fixedAnchor)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRunning)

	upcoming := f.seedDraw(t, models.DrawStatusUpcoming, fixedSecret, 0)
	_, err = f.service.Run(context.Background(), upcoming.ID, fixedAnchor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = f.service.Run(context.Background(), primitive.NewObjectID(), fixedAnchor)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunDrawRollsBackOnAnchorFailure(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 0)
	f.seedTickets(t, draw.ID, 3, models.TicketStatusActive)

	// A provider that always fails forces the post-CAS error path.
	f.service.anchors = failingAnchorProvider{}

	_, err := f.service.Run(context.Background(), draw.ID, "")
	require.Error(t, err)

	// The draw must be rolled back to ACTIVE so the run can be retried.
	stored, findErr := f.draws.FindByID(context.Background(), draw.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.DrawStatusActive, stored.Status)

	// And a retry with a working provider succeeds.
	f.service.anchors = anchor.NewStaticProvider("bitcoin", fixedAnchor, 800000)
	_, err = f.service.Run(context.Background(), draw.ID, "")
	assert.NoError(t, err)
}

func TestCancelDraw(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 0)
	tickets := f.seedTickets(t, draw.ID, 2, models.TicketStatusActive)
	pending := f.seedTickets(t, draw.ID, 1, models.TicketStatusPendingPayment)

	cancelled, err := f.service.Cancel(context.Background(), draw.ID, "provider outage")
	require.NoError(t, err)
	assert.Equal(t, models.DrawStatusCancelled, cancelled.Status)
	assert.Equal(t, "provider outage", cancelled.CancelReason)

	for _, ticket := range append(tickets, pending...) {
		stored, findErr := f.tickets.FindByID(context.Background(), ticket.ID)
		require.NoError(t, findErr)
		assert.Equal(t, models.TicketStatusCancelled, stored.Status)
	}

	// Cancellation is terminal.
	_, err = f.service.Cancel(context.Background(), draw.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = f.service.Run(context.Background(), draw.ID, fixedAnchor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRecentWinners(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 30)
	f.seedTickets(t, draw.ID, 3, models.TicketStatusActive)

	result, err := f.service.Run(context.Background(), draw.ID, fixedAnchor)
	require.NoError(t, err)

	winners, err := f.service.RecentWinners(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, draw.ID, winners[0].DrawID)
	assert.Equal(t, result.Winner.TicketNumber, winners[0].TicketNumber)
	assert.InDelta(t, 28.5, winners[0].PrizeAmount, 1e-9)
}

func TestRunDrawKeepsLatePoolCredit(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 30)
	f.seedTickets(t, draw.ID, 3, models.TicketStatusActive)

	// A webhook confirmation credits the pool while the run is already in
	// DRAWING. The completion write must not clobber that credit.
	f.service.anchors = hookedAnchorProvider{
		inner: anchor.NewStaticProvider("bitcoin", fixedAnchor, 800000),
		hook: func() {
			require.NoError(t, f.draws.IncrementPrizePool(context.Background(), draw.ID, 10))
		},
	}

	result, err := f.service.Run(context.Background(), draw.ID, "")
	require.NoError(t, err)

	// The payout snapshots the pool as reloaded at DRAWING entry.
	assert.InDelta(t, 28.5, result.Payout.Amount, 1e-9)

	stored, err := f.draws.FindByID(context.Background(), draw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DrawStatusCompleted, stored.Status)
	assert.InDelta(t, 40, stored.TotalPrizePool, 1e-9)
}

func TestRunDrawConcurrent(t *testing.T) {
	f := newDrawServiceFixture(t)
	draw := f.seedDraw(t, models.DrawStatusActive, fixedSecret, 30)
	f.seedTickets(t, draw.ID, 3, models.TicketStatusActive)

	type runOutcome struct {
		result *RunResult
		err    error
	}
	outcomes := make(chan runOutcome, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.service.Run(context.Background(), draw.ID, fixedAnchor)
			outcomes <- runOutcome{result: result, err: err}
		}()
	}
	wg.Wait()
	close(outcomes)

	var successes, failures int
	for o := range outcomes {
		if o.err == nil {
			successes++
			assert.Equal(t, 1, o.result.Proof.WinnerIndex)
		} else {
			failures++
			lost := errors.Is(o.err, apperrors.ErrAlreadyRunning) || errors.Is(o.err, apperrors.ErrAlreadyCompleted)
			assert.True(t, lost, "unexpected error: %v", o.err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	// Exactly one payout and one winning ticket exist.
	payouts, err := f.payouts.FindByStatus(context.Background(), models.PayoutStatusPending, 1, 10)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)

	tickets, err := f.tickets.FindByDrawID(context.Background(), draw.ID, 1, 10)
	require.NoError(t, err)
	var winners int
	for _, ticket := range tickets {
		if ticket.Status == models.TicketStatusWon {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

// hookedAnchorProvider runs a callback before delegating the anchor fetch
type hookedAnchorProvider struct {
	inner anchor.Provider
	hook  func()
}

func (p hookedAnchorProvider) GetLatestAnchor(ctx context.Context) (*anchor.Anchor, error) {
	if p.hook != nil {
		p.hook()
	}
	return p.inner.GetLatestAnchor(ctx)
}

func (p hookedAnchorProvider) GetAnchorAtHeight(ctx context.Context, height int64) (*anchor.Anchor, error) {
	return p.inner.GetAnchorAtHeight(ctx, height)
}

type failingAnchorProvider struct{}

func (failingAnchorProvider) GetLatestAnchor(ctx context.Context) (*anchor.Anchor, error) {
	return nil, apperrors.ErrExternalDependency
}

func (failingAnchorProvider) GetAnchorAtHeight(ctx context.Context, height int64) (*anchor.Anchor, error) {
	return nil, apperrors.ErrExternalDependency
}
