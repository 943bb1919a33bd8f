package goveeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const headerAPIKey = "Govee-API-Key"

var (
	// ErrUnauthorized means the API key was rejected. Fatal during setup,
	// a single failed cycle during steady-state polling.
	ErrUnauthorized = errors.New("govee api: unauthorized")

	// ErrRateLimited means the vendor's daily quota was hit. Soft failure;
	// resolves itself on the next scheduled attempt.
	ErrRateLimited = errors.New("govee api: rate limited")
)

// Client talks to the vendor's cloud REST API. It injects the auth header
// and per-call timeout, correlates requests with generated request IDs, and
// counts requests per calendar day for diagnostics.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string

	mu       sync.Mutex
	countDay string
	count    int

	// onRequest, if set, observes every outgoing request (metrics, journal).
	onRequest func(day string, total int)
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// OnRequest registers a hook called after each request with the current
// day and running request count. Must be set before first use.
func (c *Client) OnRequest(fn func(day string, total int)) {
	c.onRequest = fn
}

// RequestsToday returns the number of API requests issued today.
func (c *Client) RequestsToday() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countDay != time.Now().Format("2006-01-02") {
		return 0
	}
	return c.count
}

func (c *Client) countRequest() {
	c.mu.Lock()
	today := time.Now().Format("2006-01-02")
	if c.countDay == today {
		c.count++
	} else {
		c.countDay = today
		c.count = 1
	}
	day, total := c.countDay, c.count
	c.mu.Unlock()

	log.Debug().Str("date", day).Int("count", total).Msg("API request counted")
	if c.onRequest != nil {
		c.onRequest(day, total)
	}
}

// Get performs a GET request and returns the response's "data" field.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	url := c.baseURL + "/" + strings.Trim(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, c.apiKey)

	c.countRequest()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("API GET request failed")
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := c.classify(resp, path); err != nil {
		return nil, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		log.Error().Err(err).Str("path", path).Msg("API GET response malformed")
		return nil, fmt.Errorf("decode GET %s: %w", path, err)
	}
	return envelope.Data, nil
}

// Post performs a POST request and returns the raw response body. A
// requestId is generated when the payload does not carry one.
func (c *Client) Post(ctx context.Context, path string, payload map[string]any) (json.RawMessage, error) {
	url := c.baseURL + "/" + strings.Trim(path, "/")

	if _, ok := payload["requestId"]; !ok {
		payload["requestId"] = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal POST %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build POST %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, c.apiKey)

	c.countRequest()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("API POST request failed")
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := c.classify(resp, path); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read POST %s: %w", path, err)
	}
	return raw, nil
}

func (c *Client) classify(resp *http.Response, path string) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Error().Str("path", path).Msg("Too many API requests - limit is 10000/account/day")
		return fmt.Errorf("%s: %w", path, ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized:
		log.Error().Str("path", path).Msg("Unauthorized - check your API key")
		return fmt.Errorf("%s: %w", path, ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Error().Str("path", path).Int("status", resp.StatusCode).Str("body", string(body)).Msg("API request failed")
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
