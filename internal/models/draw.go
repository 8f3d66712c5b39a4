package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DrawStatus represents the status of a draw
type DrawStatus string

const (
	DrawStatusUpcoming  DrawStatus = "UPCOMING"
	DrawStatusActive    DrawStatus = "ACTIVE"
	DrawStatusDrawing   DrawStatus = "DRAWING"
	DrawStatusCompleted DrawStatus = "COMPLETED"
	DrawStatusCancelled DrawStatus = "CANCELLED"
)

// FairnessProof is the immutable record of one winner computation. It is
// stored verbatim on the completed draw and snapshotted into the payout so
// anyone holding the revealed secret and the anchor can re-derive the winner.
type FairnessProof struct {
	Secret            string    `bson:"secret" json:"secret"`
	CommitmentHash    string    `bson:"commitmentHash" json:"commitmentHash"`
	Anchor            string    `bson:"anchor" json:"anchor"`
	CombinedHash      string    `bson:"combinedHash" json:"combinedHash"`
	WinnerIndex       int       `bson:"winnerIndex" json:"winnerIndex"`
	TotalTickets      int       `bson:"totalTickets" json:"totalTickets"`
	Timestamp         time.Time `bson:"timestamp" json:"timestamp"`
	VerificationSteps []string  `bson:"verificationSteps" json:"verificationSteps"`
}

// Draw represents one lottery round
type Draw struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title          string             `bson:"title" json:"title"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	TicketPrice    float64            `bson:"ticketPrice" json:"ticketPrice"`
	Currency       string             `bson:"currency" json:"currency"`
	MaxTickets     int                `bson:"maxTickets" json:"maxTickets"`
	Status         DrawStatus         `bson:"status" json:"status"`
	ScheduledAt    time.Time          `bson:"scheduledAt" json:"scheduledAt"`
	StartedAt      *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt    *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Secret         string             `bson:"secret" json:"-"`
	CommitmentHash string             `bson:"commitmentHash" json:"commitmentHash"`
	AnchorHash     string             `bson:"anchorHash,omitempty" json:"anchorHash,omitempty"`
	AnchorHeight   int64              `bson:"anchorHeight,omitempty" json:"anchorHeight,omitempty"`
	TotalPrizePool float64            `bson:"totalPrizePool" json:"totalPrizePool"`
	WinnerProof    *FairnessProof     `bson:"winnerProof,omitempty" json:"winnerProof,omitempty"`
	CancelReason   string             `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AcceptsTickets reports whether new tickets may be sold for the draw.
func (d *Draw) AcceptsTickets() bool {
	return d.Status == DrawStatusUpcoming || d.Status == DrawStatusActive
}
