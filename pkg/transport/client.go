package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
)

var (
	// ErrStatus is returned when the service answers with a non-2xx status
	ErrStatus = errors.New("unexpected response status")
	// ErrNotFound is returned when a session lookup finds nothing
	ErrNotFound = errors.New("session not found")
)

// Config holds the endpoints and credentials of the search service
type Config struct {
	BaseURL      string
	SearchPath   string
	SessionsPath string
	FeedbackPath string
	Token        string
	Timeout      time.Duration
}

// Client talks to the search service: it opens event streams, looks up
// sessions and records feedback.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new client. Request/response calls use cfg.Timeout;
// event streams are bounded only by their context.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{},
	}
}

// Open starts a search for prompt and returns its event sequence
func (c *Client) Open(ctx context.Context, prompt string) (stream.Sequence, error) {
	q := url.Values{}
	q.Set("prompt", prompt)
	if c.cfg.Token != "" {
		q.Set("token", c.cfg.Token)
	}
	u := c.cfg.BaseURL + c.cfg.SearchPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: stream request returned %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logger.Debug("opened event stream (%s)", resp.Header.Get("Content-Type"))
	return NewSSESequence(resp.Body, prompt), nil
}

// Lookup fetches a full session by id
func (c *Client) Lookup(ctx context.Context, id string) (*session.Session, error) {
	u := fmt.Sprintf("%s%s/%s", c.cfg.BaseURL, c.cfg.SessionsPath, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: session request returned %d", ErrStatus, resp.StatusCode)
	}

	var s session.Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	return &s, nil
}

// Feedback records the user's rating of a chunk
func (c *Client) Feedback(ctx context.Context, chunkID string, value session.Feedback) error {
	body, err := json.Marshal(map[string]any{
		"chunkId": chunkID,
		"value":   int(value),
	})
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.FeedbackPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build feedback request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: feedback request returned %d", ErrStatus, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}
