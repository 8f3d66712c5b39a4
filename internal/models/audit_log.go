package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog is one append-only record of a state transition or notable event.
// The core engines only ever write these; they are read back exclusively by
// the admin surface.
type AuditLog struct {
	ID         primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	Action     string                 `bson:"action" json:"action"`
	EntityType string                 `bson:"entityType,omitempty" json:"entityType,omitempty"`
	EntityID   string                 `bson:"entityId,omitempty" json:"entityId,omitempty"`
	UserID     string                 `bson:"userId,omitempty" json:"userId,omitempty"`
	Metadata   map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt  time.Time              `bson:"createdAt" json:"createdAt"`
}
