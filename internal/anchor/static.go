package anchor

import (
	"context"
	"time"
)

// StaticProvider serves a fixed anchor. Used in development deployments and
// tests where a real chain fetch is undesirable.
type StaticProvider struct {
	Anchor Anchor
}

// NewStaticProvider creates a provider that always returns the given anchor
func NewStaticProvider(network, blockHash string, height int64) *StaticProvider {
	return &StaticProvider{
		Anchor: Anchor{
			Network:     network,
			BlockHeight: height,
			BlockHash:   blockHash,
			Timestamp:   time.Now().UTC(),
		},
	}
}

// GetLatestAnchor returns the fixed anchor
func (p *StaticProvider) GetLatestAnchor(ctx context.Context) (*Anchor, error) {
	a := p.Anchor
	return &a, nil
}

// GetAnchorAtHeight returns the fixed anchor with the requested height
func (p *StaticProvider) GetAnchorAtHeight(ctx context.Context, height int64) (*Anchor, error) {
	a := p.Anchor
	a.BlockHeight = height
	return &a, nil
}
