package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client registers giveaway windows with the durable scheduler. The
// scheduler invokes the start and end callback URLs at-or-after the
// respective timestamps, at least once each; the callback handlers are
// written to tolerate duplicate and late invocations.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		token:   token,
	}
}

// Registration arms two future callbacks for one giveaway.
type Registration struct {
	GiveawayID  string    `json:"giveaway_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	StartURL    string    `json:"start_url"`
	EndURL      string    `json:"end_url"`
	AuthToken   string    `json:"auth_token"`
	Description string    `json:"description,omitempty"`
}

// Schedule registers the callbacks. Registration is keyed by giveaway id on
// the scheduler side, so re-registering the same giveaway is harmless.
func (c *Client) Schedule(ctx context.Context, reg Registration) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/schedules", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("scheduler: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
