// Package identity is a best-effort client for the national INUS user
// directory. The hub validates patient identities through it when it
// can, but directory downtime must never block registrations or
// decisions.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Record is the canonical identity entry for one CI.
type Record struct {
	CI        string `json:"ci"`
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
	Active    bool   `json:"active"`
}

// Resolver resolves a CI to its canonical identity record.
type Resolver interface {
	Resolve(ctx context.Context, ci string) (*Record, error)
}

// Client talks to the INUS directory over HTTP, behind a circuit
// breaker so a flapping directory fails fast instead of stalling
// callers.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zerolog.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "inus-identity",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     20 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Client) Resolve(ctx context.Context, ci string) (*Record, error) {
	v, err := c.cb.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/v1/identities/%s", c.baseURL, url.PathEscape(ci))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("identity %s not found", ci)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("identity lookup returned %d", resp.StatusCode)
		}

		var record Record
		if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
			return nil, fmt.Errorf("decode identity record: %w", err)
		}
		return &record, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}
