package payrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client is an HTTP-backed payment.Transfer talking to the value
// transfer rail. Each Send carries an idempotency key so a timed-out
// request can be retried safely by the rail.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a transfer rail client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("client", "payrail").Logger(),
	}
}

type transferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

func (c *Client) Send(ctx context.Context, to string, amount uint64, token string) error {
	payload, err := json.Marshal(transferRequest{To: to, Amount: amount, Token: token})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("transfer request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("transfer rail returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	c.logger.Debug().Str("to", to).Uint64("amount", amount).Str("token", token).Msg("transfer sent")
	return nil
}
