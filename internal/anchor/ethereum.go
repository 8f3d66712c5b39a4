package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
)

// EthereumProvider fetches anchors from an Ethereum JSON-RPC endpoint
type EthereumProvider struct {
	RPCURL string
	client *http.Client
}

// NewEthereumProvider creates a new EthereumProvider. rpcURL defaults to a
// public RPC endpoint when empty.
func NewEthereumProvider(rpcURL string) *EthereumProvider {
	if rpcURL == "" {
		rpcURL = "https://eth.public-rpc.com"
	}
	return &EthereumProvider{
		RPCURL: rpcURL,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcBlock struct {
	Number    string `json:"number"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

type rpcResponse struct {
	Result *rpcBlock `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetLatestAnchor returns the most recent Ethereum block header
func (p *EthereumProvider) GetLatestAnchor(ctx context.Context) (*Anchor, error) {
	return p.getBlock(ctx, "latest")
}

// GetAnchorAtHeight returns the Ethereum block header at the given height
func (p *EthereumProvider) GetAnchorAtHeight(ctx context.Context, height int64) (*Anchor, error) {
	return p.getBlock(ctx, fmt.Sprintf("0x%x", height))
}

func (p *EthereumProvider) getBlock(ctx context.Context, tag string) (*Anchor, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_getBlockByNumber",
		Params:  []interface{}{tag, false},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalDependency, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.RPCURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalDependency, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ethereum anchor fetch: %v", apperrors.ErrExternalDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ethereum RPC returned %d", apperrors.ErrExternalDependency, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("%w: decoding ethereum RPC response: %v", apperrors.ErrExternalDependency, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w: ethereum RPC error %d: %s", apperrors.ErrExternalDependency, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("%w: ethereum RPC returned no block", apperrors.ErrExternalDependency)
	}

	height, err := strconv.ParseInt(rpcResp.Result.Number, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing ethereum block number %q: %v", apperrors.ErrExternalDependency, rpcResp.Result.Number, err)
	}
	ts, err := strconv.ParseInt(rpcResp.Result.Timestamp, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing ethereum block timestamp %q: %v", apperrors.ErrExternalDependency, rpcResp.Result.Timestamp, err)
	}

	return &Anchor{
		Network:     "ethereum",
		BlockHeight: height,
		BlockHash:   rpcResp.Result.Hash,
		Timestamp:   time.Unix(ts, 0).UTC(),
	}, nil
}
