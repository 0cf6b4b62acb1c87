// Package reddit fetches submissions and comments from Reddit and from a Pushshift-compatible archive.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/opportunity-miner/internal/logging"
	"github.com/jonathan/opportunity-miner/internal/ratelimit"
	"go.uber.org/zap"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

const limiterKey = "reddit"

// Options configures the client.
type Options struct {
	BaseURL       string
	AuthURL       string
	HistoricalURL string
	ClientID      string
	ClientSecret  string
	UserAgent     string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Limiter       *ratelimit.Limiter
	Logger        *zap.Logger
}

// Client talks to the Reddit OAuth API with app-only credentials.
type Client struct {
	opts   Options
	http   *http.Client
	logger *zap.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// New creates a client. Credentials are exchanged for a token on first use.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" || opts.AuthURL == "" {
		return nil, fmt.Errorf("reddit base and auth URLs are required")
	}
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("reddit client credentials are required")
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("reddit user agent is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := logging.OrNop(opts.Logger)

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		opts:   opts,
		http:   httpClient,
		logger: logger.Named("reddit"),
		now:    time.Now,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached token, refreshing it a minute before expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Op: "auth", URL: c.opts.AuthURL, Kind: KindInvalidRequest, Message: "failed to create request", Cause: err}
	}
	req.SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	var tok tokenResponse
	if err := c.do(req, "auth", &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &Error{Op: "auth", URL: c.opts.AuthURL, Kind: KindDecode, Message: "empty access token"}
	}

	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime > 2*time.Minute {
		lifetime -= time.Minute
	}
	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(lifetime)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

// getAPI performs an authenticated GET against the OAuth API, refreshing the token once on 401.
func (c *Client) getAPI(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.opts.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		req, err := c.newGet(ctx, op, endpoint)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		err = c.do(req, op, out)
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.Debug("reddit: token rejected, refreshing", zap.String("op", op))
			c.invalidateToken()
			continue
		}
		return err
	}
	return nil
}

// getPublic performs an unauthenticated GET, used for the archive API.
func (c *Client) getPublic(ctx context.Context, op, endpoint string, query url.Values, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := c.newGet(ctx, op, endpoint)
	if err != nil {
		return err
	}
	return c.do(req, op, out)
}

func (c *Client) newGet(ctx context.Context, op, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Op: op, URL: endpoint, Kind: KindInvalidRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do waits for the rate limiter, executes req and decodes a JSON body into out.
func (c *Client) do(req *http.Request, op string, out any) error {
	endpoint := req.URL.String()
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(req.Context(), limiterKey); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{Op: op, URL: endpoint, Kind: KindTransport, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("reddit: request",
		zap.String("op", op),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, URL: endpoint, Kind: KindTransport, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Op:         op,
			URL:        endpoint,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, URL: endpoint, Kind: KindDecode, Message: "failed to decode response", Cause: err}
	}
	return nil
}
