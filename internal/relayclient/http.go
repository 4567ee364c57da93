package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-relay/internal/lobby"
	"github.com/park285/chess-relay/internal/relay"
	"github.com/valyala/fasthttp"
)

// HTTPClient probes the relay's plain HTTP endpoints.
type HTTPClient struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*HTTPClient)

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.defaultTimeout = d }
}

func WithRetry(n int) Option {
	return func(c *HTTPClient) { c.retryMax = n }
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrLobbyDisabled is returned when the server runs without Redis.
var ErrLobbyDisabled = errors.New("lobby endpoint not enabled")

// Health returns nil when /health_check answers 200.
func (c *HTTPClient) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/health_check")
	return err
}

// Lobby lists rooms awaiting an opponent.
func (c *HTTPClient) Lobby(ctx context.Context) ([]relay.RoomInfo, error) {
	body, err := c.get(ctx, "/lobby")
	if err != nil {
		return nil, err
	}
	var out []relay.RoomInfo
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode lobby: %w", err)
	}
	return out, nil
}

// Stats is the decoded GET /stats body.
type Stats struct {
	Live   relay.Stats     `json:"live"`
	Totals *lobby.Counters `json:"totals,omitempty"`
}

// Stats reads live coordinator counts and, when the server has Redis,
// lifetime room totals.
func (c *HTTPClient) Stats(ctx context.Context) (Stats, error) {
	body, err := c.get(ctx, "/stats")
	if err != nil {
		return Stats{}, err
	}
	var out Stats
	if err := json.Unmarshal(body, &out); err != nil {
		return Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		switch {
		case err != nil:
			lastErr = fmt.Errorf("request %s: %w", path, err)
		case resp.StatusCode() == fasthttp.StatusNotFound && path == "/lobby":
			return nil, ErrLobbyDisabled
		case resp.StatusCode() >= 200 && resp.StatusCode() < 300:
			return append([]byte(nil), resp.Body()...), nil
		default:
			lastErr = fmt.Errorf("relay error: status=%d body=%s", resp.StatusCode(), truncate(string(resp.Body()), 256))
			if !shouldRetryStatus(resp.StatusCode()) {
				return nil, lastErr
			}
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (c *HTTPClient) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
