// Package anchor fetches public blockchain block headers used as the
// unpredictable randomness source for draw runs. The core treats the block
// hash as an opaque, tamper-evident string; any network satisfying the
// Provider interface is interchangeable.
package anchor

import (
	"context"
	"time"
)

// Anchor is a public, tamper-evident randomness source value.
type Anchor struct {
	Network     string    `json:"network"`
	BlockHeight int64     `json:"blockHeight"`
	BlockHash   string    `json:"blockHash"`
	Timestamp   time.Time `json:"timestamp"`
}

// Provider fetches block headers from a public blockchain. Implementations
// must bound their network I/O with the caller's context; a failed fetch
// surfaces as an error, never a hang.
type Provider interface {
	GetLatestAnchor(ctx context.Context) (*Anchor, error)
	GetAnchorAtHeight(ctx context.Context, height int64) (*Anchor, error)
}

// defaultTimeout bounds a single anchor fetch when the caller's context
// carries no deadline of its own.
const defaultTimeout = 10 * time.Second
