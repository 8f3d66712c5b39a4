package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PayoutStatus represents the status of a prize disbursement
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "PENDING"
	PayoutStatusCompleted PayoutStatus = "COMPLETED"
	PayoutStatusFailed    PayoutStatus = "FAILED"
)

// Payout represents the single prize disbursement obligation created when a
// draw completes. Amount is prize pool minus the platform fee, computed once
// at draw completion and never recomputed.
type Payout struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DrawID          primitive.ObjectID `bson:"drawId" json:"drawId"`
	TicketID        primitive.ObjectID `bson:"ticketId" json:"ticketId"`
	WalletID        primitive.ObjectID `bson:"walletId" json:"walletId"`
	Amount          float64            `bson:"amount" json:"amount"`
	Currency        string             `bson:"currency" json:"currency"`
	Status          PayoutStatus       `bson:"status" json:"status"`
	TransactionHash string             `bson:"transactionHash,omitempty" json:"transactionHash,omitempty"`
	Proof           *FairnessProof     `bson:"proof,omitempty" json:"proof,omitempty"`
	RecordedAt      *time.Time         `bson:"recordedAt,omitempty" json:"recordedAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
