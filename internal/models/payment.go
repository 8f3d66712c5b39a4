package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus represents the status of a payment-provider charge
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusConfirmed  PaymentStatus = "CONFIRMED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusExpired    PaymentStatus = "EXPIRED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// paymentStatusRank orders statuses along the forward-only transition chain.
// Terminal states share a rank so a stale redelivery can never regress one
// terminal state into another.
var paymentStatusRank = map[PaymentStatus]int{
	PaymentStatusPending:    0,
	PaymentStatusProcessing: 1,
	PaymentStatusConfirmed:  2,
	PaymentStatusFailed:     2,
	PaymentStatusExpired:    2,
	PaymentStatusRefunded:   3,
}

// CanTransitionTo reports whether a payment in status s may move to target.
// REFUNDED is only reachable from CONFIRMED.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if target == PaymentStatusRefunded {
		return s == PaymentStatusConfirmed
	}
	return paymentStatusRank[target] > paymentStatusRank[s]
}

// Payment represents one payment-provider charge, one row per ticket. A
// multi-ticket purchase creates one row per ticket sharing the provider
// charge id, which is the idempotency key for webhook reconciliation.
type Payment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Provider          string             `bson:"provider" json:"provider"`
	ProviderPaymentID string             `bson:"providerPaymentId" json:"providerPaymentId"`
	TicketID          primitive.ObjectID `bson:"ticketId" json:"ticketId"`
	Amount            float64            `bson:"amount" json:"amount"`
	Currency          string             `bson:"currency" json:"currency"`
	CryptoAmount      float64            `bson:"cryptoAmount,omitempty" json:"cryptoAmount,omitempty"`
	CryptoCurrency    string             `bson:"cryptoCurrency,omitempty" json:"cryptoCurrency,omitempty"`
	Status            PaymentStatus      `bson:"status" json:"status"`
	CheckoutURL       string             `bson:"checkoutUrl,omitempty" json:"checkoutUrl,omitempty"`
	TransactionHash   string             `bson:"transactionHash,omitempty" json:"transactionHash,omitempty"`
	Confirmations     int                `bson:"confirmations" json:"confirmations"`
	ExpiresAt         *time.Time         `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	ConfirmedAt       *time.Time         `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	FailedAt          *time.Time         `bson:"failedAt,omitempty" json:"failedAt,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
