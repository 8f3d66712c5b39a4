package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/models"
)

// ProviderCoinbaseCommerce is the registry key for the Coinbase Commerce adapter
const ProviderCoinbaseCommerce = "COINBASE_COMMERCE"

// CoinbaseAdapter implements the Adapter contract for Coinbase Commerce
type CoinbaseAdapter struct {
	BaseURL       string
	apiKey        string
	webhookSecret string
	client        *http.Client
}

// NewCoinbaseAdapter creates a Coinbase Commerce adapter
func NewCoinbaseAdapter(apiKey, webhookSecret string) *CoinbaseAdapter {
	return &CoinbaseAdapter{
		BaseURL:       "https://api.commerce.coinbase.com",
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the provider key
func (a *CoinbaseAdapter) Name() string { return ProviderCoinbaseCommerce }

// SignatureHeader returns the Coinbase Commerce webhook signature header
func (a *CoinbaseAdapter) SignatureHeader() string { return "X-CC-Webhook-Signature" }

// coinbaseStatusMap maps Coinbase charge timeline statuses onto the internal
// payment status vocabulary.
var coinbaseStatusMap = map[string]models.PaymentStatus{
	"NEW":        models.PaymentStatusPending,
	"PENDING":    models.PaymentStatusProcessing,
	"COMPLETED":  models.PaymentStatusConfirmed,
	"EXPIRED":    models.PaymentStatusExpired,
	"UNRESOLVED": models.PaymentStatusFailed,
	"RESOLVED":   models.PaymentStatusConfirmed,
	"CANCELED":   models.PaymentStatusFailed,
}

type coinbaseCharge struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	HostedURL string `json:"hosted_url"`
	ExpiresAt string `json:"expires_at"`
	Pricing   struct {
		Local struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"local"`
	} `json:"pricing"`
	Payments []struct {
		TransactionID string `json:"transaction_id"`
		Block         struct {
			Confirmations int `json:"confirmations"`
		} `json:"block"`
	} `json:"payments"`
	Timeline []struct {
		Time   string `json:"time"`
		Status string `json:"status"`
	} `json:"timeline"`
	Metadata map[string]interface{} `json:"metadata"`
}

type coinbaseWebhook struct {
	Event struct {
		ID        string         `json:"id"`
		Type      string         `json:"type"`
		CreatedAt string         `json:"created_at"`
		Data      coinbaseCharge `json:"data"`
	} `json:"event"`
}

// CreateCheckout creates a fixed-price Coinbase Commerce charge
func (a *CoinbaseAdapter) CreateCheckout(ctx context.Context, opts CheckoutOptions) (*Checkout, error) {
	metadata := map[string]interface{}{}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	if opts.CustomerEmail != "" {
		metadata["customer_email"] = opts.CustomerEmail
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"name":         "Lottery Ticket Purchase",
		"description":  opts.Description,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   decimal.NewFromFloat(opts.Amount).String(),
			"currency": opts.Currency,
		},
		"metadata":     metadata,
		"redirect_url": opts.RedirectURL,
		"cancel_url":   opts.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalDependency, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/charges", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalDependency, err)
	}
	req.Header.Set("X-CC-Api-Key", a.apiKey)
	req.Header.Set("X-CC-Version", "2018-03-22")
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: coinbase charge creation: %v", apperrors.ErrExternalDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: coinbase API returned %d", apperrors.ErrExternalDependency, resp.StatusCode)
	}

	var chargeResp struct {
		Data coinbaseCharge `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chargeResp); err != nil {
		return nil, fmt.Errorf("%w: decoding coinbase charge: %v", apperrors.ErrExternalDependency, err)
	}

	expiresAt, _ := time.Parse(time.RFC3339, chargeResp.Data.ExpiresAt)
	return &Checkout{
		ID:        chargeResp.Data.Code,
		URL:       chargeResp.Data.HostedURL,
		Amount:    opts.Amount,
		Currency:  opts.Currency,
		ExpiresAt: expiresAt,
		Metadata:  chargeResp.Data.Metadata,
	}, nil
}

// VerifySignature checks the HMAC-SHA256 webhook signature in constant time
func (a *CoinbaseAdapter) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseEvent translates a Coinbase Commerce webhook into a normalized event.
// The latest timeline entry determines the charge status.
func (a *CoinbaseAdapter) ParseEvent(payload []byte) (*WebhookEvent, error) {
	var hook coinbaseWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: invalid coinbase webhook payload: %v", apperrors.ErrValidation, err)
	}
	charge := hook.Event.Data

	latest := "NEW"
	if n := len(charge.Timeline); n > 0 {
		latest = charge.Timeline[n-1].Status
	}
	status, ok := coinbaseStatusMap[latest]
	if !ok {
		status = models.PaymentStatusPending
	}

	amount := 0.0
	if charge.Pricing.Local.Amount != "" {
		d, err := decimal.NewFromString(charge.Pricing.Local.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid coinbase amount %q: %v", apperrors.ErrValidation, charge.Pricing.Local.Amount, err)
		}
		amount, _ = d.Float64()
	}

	var txHash string
	var confirmations int
	if len(charge.Payments) > 0 {
		txHash = charge.Payments[0].TransactionID
		confirmations = charge.Payments[0].Block.Confirmations
	}

	ts := time.Now().UTC()
	if hook.Event.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, hook.Event.CreatedAt); err == nil {
			ts = parsed
		}
	}

	return &WebhookEvent{
		ID:              hook.Event.ID,
		Type:            hook.Event.Type,
		PaymentID:       charge.Code,
		Status:          status,
		Amount:          amount,
		Currency:        charge.Pricing.Local.Currency,
		TransactionHash: txHash,
		Confirmations:   confirmations,
		Timestamp:       ts,
		Raw:             json.RawMessage(payload),
	}, nil
}
