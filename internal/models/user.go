package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a ticket buyer. Purchases may be anonymous, in which case
// only the wallet is recorded and Email is empty.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Wallet represents a crypto wallet owned by a user. Winning payouts are sent
// to the wallet the winning ticket was purchased with.
type Wallet struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Address   string             `bson:"address" json:"address"`
	Network   string             `bson:"network" json:"network"`
	IsPrimary bool               `bson:"isPrimary" json:"isPrimary"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
