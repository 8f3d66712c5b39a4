package anchor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
)

// BitcoinProvider fetches anchors from the blockchain.info public API
type BitcoinProvider struct {
	BaseURL string
	client  *http.Client
}

// NewBitcoinProvider creates a new BitcoinProvider. baseURL defaults to the
// public blockchain.info endpoint when empty.
func NewBitcoinProvider(baseURL string) *BitcoinProvider {
	if baseURL == "" {
		baseURL = "https://blockchain.info"
	}
	return &BitcoinProvider{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type latestBlockResponse struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
	Time   int64  `json:"time"`
}

type blockHeightResponse struct {
	Blocks []latestBlockResponse `json:"blocks"`
}

// GetLatestAnchor returns the most recent Bitcoin block header
func (p *BitcoinProvider) GetLatestAnchor(ctx context.Context) (*Anchor, error) {
	var block latestBlockResponse
	if err := p.get(ctx, "/latestblock", &block); err != nil {
		return nil, err
	}
	return &Anchor{
		Network:     "bitcoin",
		BlockHeight: block.Height,
		BlockHash:   block.Hash,
		Timestamp:   time.Unix(block.Time, 0).UTC(),
	}, nil
}

// GetAnchorAtHeight returns the Bitcoin block header at the given height
func (p *BitcoinProvider) GetAnchorAtHeight(ctx context.Context, height int64) (*Anchor, error) {
	var resp blockHeightResponse
	if err := p.get(ctx, fmt.Sprintf("/block-height/%d?format=json", height), &resp); err != nil {
		return nil, err
	}
	if len(resp.Blocks) == 0 {
		return nil, fmt.Errorf("%w: no bitcoin block at height %d", apperrors.ErrExternalDependency, height)
	}
	block := resp.Blocks[0]
	return &Anchor{
		Network:     "bitcoin",
		BlockHeight: block.Height,
		BlockHash:   block.Hash,
		Timestamp:   time.Unix(block.Time, 0).UTC(),
	}, nil
}

func (p *BitcoinProvider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrExternalDependency, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: bitcoin anchor fetch: %v", apperrors.ErrExternalDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: bitcoin anchor API returned %d", apperrors.ErrExternalDependency, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding bitcoin anchor response: %v", apperrors.ErrExternalDependency, err)
	}
	return nil
}
