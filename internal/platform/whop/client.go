package whop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Whop platform API: deposit charges, ledger lookups,
// fund transfers and push notifications. It does not retry; callers own the
// retry policy and must reuse idempotency keys across retries so the
// platform can deduplicate.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// APIError is returned for any non-2xx platform response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whop api: status %d: %s", e.Status, e.Body)
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// ChargeRequest creates a pending deposit charge against a user. The funds
// move only once the user completes the checkout session; confirmation
// arrives out of band.
type ChargeRequest struct {
	UserID         string            `json:"user_id"`
	Amount         int64             `json:"amount"` // smallest currency unit
	Currency       string            `json:"currency"`
	IdempotenceKey string            `json:"idempotence_key"`
	Description    string            `json:"description"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type ChargeResult struct {
	ChargeID    string `json:"charge_id"`
	CheckoutURL string `json:"checkout_url"`
}

// LedgerAccount is the company holding account payouts are drawn from.
type LedgerAccount struct {
	ID          string `json:"id"`
	TransferFee int64  `json:"transfer_fee"`
}

// TransferRequest moves funds from a ledger account to a user. The same
// IdempotenceKey must be presented on every retry of the same payout.
type TransferRequest struct {
	LedgerAccountID string `json:"ledger_account_id"`
	DestinationID   string `json:"destination_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	TransferFee     int64  `json:"transfer_fee"`
	IdempotenceKey  string `json:"idempotence_key"`
	Notes           string `json:"notes"`
}

type TransferResult struct {
	Transferred bool `json:"transferred"`
}

// PushNotification is delivered to every member of an experience.
type PushNotification struct {
	ExperienceID string `json:"experience_id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Link         string `json:"link,omitempty"`
}

func (c *Client) ChargeUser(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Currency == "" {
		req.Currency = "usd"
	}
	var out struct {
		CheckoutSession struct {
			ID          string `json:"id"`
			PurchaseURL string `json:"purchase_url"`
		} `json:"checkout_session"`
	}
	if err := c.do(ctx, http.MethodPost, "/v5/app/payments/charge-user", req, &out); err != nil {
		return nil, err
	}
	return &ChargeResult{
		ChargeID:    out.CheckoutSession.ID,
		CheckoutURL: out.CheckoutSession.PurchaseURL,
	}, nil
}

func (c *Client) GetLedgerAccount(ctx context.Context, companyID string) (*LedgerAccount, error) {
	var out LedgerAccount
	path := fmt.Sprintf("/v5/app/companies/%s/ledger-account", companyID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("whop api: company %s has no ledger account", companyID)
	}
	return &out, nil
}

func (c *Client) TransferFunds(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Currency == "" {
		req.Currency = "usd"
	}
	var out TransferResult
	if err := c.do(ctx, http.MethodPost, "/v5/app/payments/transfer-funds", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance returns the current balance of a ledger account.
func (c *Client) GetBalance(ctx context.Context, ledgerAccountID string) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	path := fmt.Sprintf("/v5/app/ledger-accounts/%s/balance", ledgerAccountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) SendPush(ctx context.Context, n PushNotification) error {
	return c.do(ctx, http.MethodPost, "/v5/app/notifications", n, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whop api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("whop api: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("whop api: decode response: %w", err)
		}
	}
	return nil
}
