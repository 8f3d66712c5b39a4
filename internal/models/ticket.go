package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketStatus represents the status of a ticket
type TicketStatus string

const (
	TicketStatusPendingPayment TicketStatus = "PENDING_PAYMENT"
	TicketStatusActive         TicketStatus = "ACTIVE"
	TicketStatusWon            TicketStatus = "WON"
	TicketStatusLost           TicketStatus = "LOST"
	TicketStatusCancelled      TicketStatus = "CANCELLED"
)

// Ticket represents one purchased entry in a draw. A ticket becomes ACTIVE
// (eligible for the draw) only once its payment is confirmed.
type Ticket struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TicketNumber string             `bson:"ticketNumber" json:"ticketNumber"`
	DrawID       primitive.ObjectID `bson:"drawId" json:"drawId"`
	UserID       primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	WalletID     primitive.ObjectID `bson:"walletId" json:"walletId"`
	Status       TicketStatus       `bson:"status" json:"status"`
	IsWinner     bool               `bson:"isWinner" json:"isWinner"`
	PurchasedAt  time.Time          `bson:"purchasedAt" json:"purchasedAt"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
