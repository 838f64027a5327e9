// Package payments creates checkout sessions against an external payment
// provider. The engine only needs the redirect URL back; fulfillment and
// webhooks live outside this process.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/healthrocket-labs/ignition/internal/domain"
)

const requestTimeout = 10 * time.Second

// Client implements domain.PaymentSessionCreator over a JSON HTTP API.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a payment client for the given endpoint. The API key is
// sent as a bearer token on every request.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

type sessionRequest struct {
	PlayerID    string `json:"player_id"`
	ContestID   string `json:"contest_id"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type sessionResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// CreateSession opens a checkout session for a paid contest registration
// and returns the provider's redirect URL.
func (c *Client) CreateSession(ctx context.Context, playerID, contestID string, entryFeeUSD int) (string, error) {
	body, err := json.Marshal(sessionRequest{
		PlayerID:    playerID,
		ContestID:   contestID,
		AmountCents: entryFeeUSD * 100,
		Currency:    "usd",
	})
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: payment provider unreachable: %v", domain.ErrTransientExternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: payment provider returned %d", domain.ErrTransientExternal, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("create session: %d: %s", resp.StatusCode, msg)
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	if out.RedirectURL == "" {
		return "", fmt.Errorf("create session: provider returned empty redirect URL")
	}
	return out.RedirectURL, nil
}
