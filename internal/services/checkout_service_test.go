package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/payment"
)

type checkoutFixture struct {
	service *CheckoutServiceImpl
	draws   *fakeDrawRepo
	tickets *fakeTicketRepo
	pays    *fakePaymentRepo
	wallets *fakeWalletRepo
	users   *fakeUserRepo
	audit   *recordingAuditSink
	draw    *models.Draw
}

func newCheckoutFixture(t *testing.T, adapters ...payment.Adapter) *checkoutFixture {
	t.Helper()
	draws := newFakeDrawRepo()
	tickets := newFakeTicketRepo()
	pays := newFakePaymentRepo()
	users := newFakeUserRepo()
	wallets := newFakeWalletRepo()
	audit := &recordingAuditSink{}
	cfg := &config.Config{
		Server: config.ServerConfig{AppURL: "https://lotto.example"},
	}
	registry := payment.NewRegistry(adapters...)
	service := NewCheckoutService(draws, tickets, pays, users, wallets, directTxnRunner{}, registry, audit, cfg)

	draw := &models.Draw{
		Title:       "Weekly Draw",
		TicketPrice: 10,
		Currency:    "USD",
		MaxTickets:  5,
		Status:      models.DrawStatusActive,
		ScheduledAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, draws.Create(context.Background(), draw))

	return &checkoutFixture{
		service: service,
		draws:   draws,
		tickets: tickets,
		pays:    pays,
		wallets: wallets,
		users:   users,
		audit:   audit,
		draw:    draw,
	}
}

func TestPurchaseCreatesCheckout(t *testing.T) {
	adapter := &stubAdapter{name: "COINBASE_COMMERCE", verifyOK: true}
	f := newCheckoutFixture(t, adapter)

	result, err := f.service.Purchase(context.Background(), PurchaseInput{
		DrawID:        f.draw.ID,
		Quantity:      3,
		Provider:      "COINBASE_COMMERCE",
		WalletAddress: "bc1qexample",
		WalletNetwork: "bitcoin",
		Email:         "buyer@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "stub_checkout", result.CheckoutID)
	assert.Equal(t, "https://pay.example/stub", result.CheckoutURL)
	assert.InDelta(t, 30, result.Amount, 1e-9)
	assert.Len(t, result.Tickets, 3)
	assert.Len(t, result.PaymentIDs, 3)

	// All tickets await payment under the shared charge id.
	for _, ticket := range result.Tickets {
		assert.Equal(t, models.TicketStatusPendingPayment, ticket.Status)
	}
	rows, err := f.pays.FindByProviderPaymentID(context.Background(), "stub_checkout")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, models.PaymentStatusPending, row.Status)
		assert.InDelta(t, 10, row.Amount, 1e-9)
	}

	// Wallet and user were created for the new buyer.
	wallet, err := f.wallets.FindByAddress(context.Background(), "bc1qexample", "bitcoin")
	require.NoError(t, err)
	user, err := f.users.FindByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, wallet.UserID)

	assert.Contains(t, f.audit.actions(), "CHECKOUT_CREATED")
}

func TestPurchaseReusesExistingWallet(t *testing.T) {
	adapter := &stubAdapter{name: "COINBASE_COMMERCE", verifyOK: true}
	f := newCheckoutFixture(t, adapter)

	first, err := f.service.Purchase(context.Background(), PurchaseInput{
		DrawID: f.draw.ID, Quantity: 1, Provider: "COINBASE_COMMERCE",
		WalletAddress: "bc1qexample", WalletNetwork: "bitcoin",
	})
	require.NoError(t, err)

	second, err := f.service.Purchase(context.Background(), PurchaseInput{
		DrawID: f.draw.ID, Quantity: 1, Provider: "COINBASE_COMMERCE",
		WalletAddress: "bc1qexample", WalletNetwork: "bitcoin",
	})
	require.NoError(t, err)

	assert.Equal(t, first.Tickets[0].WalletID, second.Tickets[0].WalletID)
}

func TestPurchaseValidation(t *testing.T) {
	adapter := &stubAdapter{name: "COINBASE_COMMERCE", verifyOK: true}
	f := newCheckoutFixture(t, adapter)

	base := PurchaseInput{
		DrawID: f.draw.ID, Quantity: 1, Provider: "COINBASE_COMMERCE",
		WalletAddress: "bc1qexample", WalletNetwork: "bitcoin",
	}

	zeroQty := base
	zeroQty.Quantity = 0
	_, err := f.service.Purchase(context.Background(), zeroQty)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	noWallet := base
	noWallet.WalletAddress = ""
	_, err = f.service.Purchase(context.Background(), noWallet)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	badProvider := base
	badProvider.Provider = "STRIPE"
	_, err = f.service.Purchase(context.Background(), badProvider)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPurchaseRespectsCapacity(t *testing.T) {
	adapter := &stubAdapter{name: "COINBASE_COMMERCE", verifyOK: true}
	f := newCheckoutFixture(t, adapter)

	_, err := f.service.Purchase(context.Background(), PurchaseInput{
		DrawID: f.draw.ID, Quantity: 4, Provider: "COINBASE_COMMERCE",
		WalletAddress: "bc1qexample", WalletNetwork: "bitcoin",
	})
	require.NoError(t, err)

	// Only one slot remains out of five.
	_, err = f.service.Purchase(context.Background(), PurchaseInput{
		DrawID: f.draw.ID, Quantity: 2, Provider: "COINBASE_COMMERCE",
		WalletAddress: "bc1qexample", WalletNetwork: "bitcoin",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPurchaseClosedDraw(t *testing.T) {
	adapter := &stubAdapter{name: "COINBASE_COMMERCE", verifyOK: true}
	f := newCheckoutFixture(t, adapter)

	for _, status := range []models.DrawStatus{models.DrawStatusDrawing, models.DrawStatusCompleted, models.DrawStatusCancelled} {
		f.draw.Status = status
		require.NoError(t, f.draws.Update(context.Background(), f.draw))

		_, err := f.service.Purchase(context.Background(), PurchaseInput{
			DrawID: f.draw.ID, Quantity: 1, Provider: "COINBASE_COMMERCE",
			WalletAddress: "bc1qexample", WalletNetwork: "bitcoin",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidState, "status %s", status)
	}
}
