// Package zapclient is a typed client for the OWASP ZAP JSON API.
//
// Every call is a GET carrying the apikey query parameter. A non-2xx answer
// becomes an *APIError; a body that does not carry the expected field
// wraps ErrMalformedResponse. Calls are stateless and never retried here.
package zapclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where a locally started ZAP daemon listens.
const DefaultBaseURL = "http://localhost:8080"

// DefaultContextName is the context targets are registered under.
const DefaultContextName = "Default Context"

// ErrMalformedResponse is wrapped by errors for bodies that are not the
// expected JSON envelope.
var ErrMalformedResponse = errors.New("malformed scanner response")

// APIError is returned when the scanner answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return fmt.Sprintf("scanner returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("scanner returned status %d: %s", e.StatusCode, body)
}

// ScanIDError is returned when a scan id or progress value is neither an
// integer number nor a string holding one.
type ScanIDError struct {
	Field string
	Raw   string
}

func (e *ScanIDError) Error() string {
	return fmt.Sprintf("%s %s is not a valid number", e.Field, e.Raw)
}

// Client talks to one ZAP instance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the ZAP instance at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Version returns the scanner version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out struct {
		Version *string `json:"version"`
	}
	if err := c.call(ctx, "core/view/version", nil, &out); err != nil {
		return "", err
	}
	if out.Version == nil {
		return "", fmt.Errorf("%w: missing version", ErrMalformedResponse)
	}
	return *out.Version, nil
}

// IncludeInContext registers every URL under targetURL in the named
// context and returns the raw response body.
func (c *Client) IncludeInContext(ctx context.Context, contextName, targetURL string) (string, error) {
	q := url.Values{}
	q.Set("contextName", contextName)
	q.Set("regex", targetURL+".*")
	return c.raw(ctx, "context/action/includeInContext", q)
}

// SpiderScan starts a spider scan and returns its id.
func (c *Client) SpiderScan(ctx context.Context, targetURL string) (int, error) {
	return c.startScan(ctx, "spider/action/scan", targetURL)
}

// SpiderStatus returns spider progress as a percentage.
func (c *Client) SpiderStatus(ctx context.Context, scanID int) (int, error) {
	return c.status(ctx, "spider/view/status", scanID)
}

// ActiveScan starts an active scan and returns its id.
func (c *Client) ActiveScan(ctx context.Context, targetURL string) (int, error) {
	return c.startScan(ctx, "ascan/action/scan", targetURL)
}

// ActiveScanStatus returns active scan progress as a percentage.
func (c *Client) ActiveScanStatus(ctx context.Context, scanID int) (int, error) {
	return c.status(ctx, "ascan/view/status", scanID)
}

// Alerts returns the raw alerts report for targetURL. The body is checked
// to carry an alerts field but returned unchanged.
func (c *Client) Alerts(ctx context.Context, targetURL string) (string, error) {
	q := url.Values{}
	q.Set("baseurl", targetURL)
	body, err := c.raw(ctx, "core/view/alerts", q)
	if err != nil {
		return "", err
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, ok := envelope["alerts"]; !ok {
		return "", fmt.Errorf("%w: missing alerts", ErrMalformedResponse)
	}
	return body, nil
}

func (c *Client) startScan(ctx context.Context, path, targetURL string) (int, error) {
	q := url.Values{}
	q.Set("url", targetURL)
	var out struct {
		Scan json.RawMessage `json:"scan"`
	}
	if err := c.call(ctx, path, q, &out); err != nil {
		return 0, err
	}
	return ParseInt("scan id", out.Scan)
}

func (c *Client) status(ctx context.Context, path string, scanID int) (int, error) {
	q := url.Values{}
	q.Set("scanId", fmt.Sprint(scanID))
	var out struct {
		Status json.RawMessage `json:"status"`
	}
	if err := c.call(ctx, path, q, &out); err != nil {
		return 0, err
	}
	return ParseInt("status", out.Status)
}

func (c *Client) call(ctx context.Context, path string, q url.Values, out any) error {
	body, err := c.raw(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, path string, q url.Values) (string, error) {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read scanner response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "/JSON/" + path + "/?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}
