package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is an HTTP-backed identity.Resolver talking to the platform's
// unit registry.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a registry client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("client", "registry").Logger(),
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode registry response: %w", err)
	}
	return nil
}

func (c *Client) OwnerOf(ctx context.Context, unitID uint64) (string, error) {
	var body struct {
		Owner string `json:"owner"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/units/%d/owner", unitID), &body); err != nil {
		return "", err
	}
	return body.Owner, nil
}

func (c *Client) IsEligibleUnit(ctx context.Context, unitID uint64) (bool, error) {
	var body struct {
		Eligible bool `json:"eligible"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/units/%d/eligibility", unitID), &body); err != nil {
		return false, err
	}
	return body.Eligible, nil
}

func (c *Client) PenaltyCount(ctx context.Context, unitID uint64) (uint64, error) {
	var body struct {
		Penalties uint64 `json:"penalties"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/units/%d/penalties", unitID), &body); err != nil {
		return 0, err
	}
	return body.Penalties, nil
}

func (c *Client) SupportedTokens(ctx context.Context) ([]string, error) {
	var body struct {
		Tokens []string `json:"tokens"`
	}
	if err := c.get(ctx, "/v1/tokens", &body); err != nil {
		return nil, err
	}
	return body.Tokens, nil
}
