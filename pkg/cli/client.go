package cli

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

	"github.com/gorilla/websocket"

	"github.com/rocketboy/rocketboy/pkg/api/types"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/scan"
	"github.com/rocketboy/rocketboy/pkg/tabs"
)

// APIError represents an error response from the rocketboy API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to a running rocketboy API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout. Websocket streams are not
// affected.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks if the server is running.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var out types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenTab opens a tab holding spec.
func (c *Client) OpenTab(ctx context.Context, spec *request.Spec) (*tabs.Tab, error) {
	var out tabs.Tab
	err := c.do(ctx, http.MethodPost, "/tabs", types.OpenTabRequest{Request: spec}, http.StatusCreated, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseTab closes a tab and discards its scan.
func (c *Client) CloseTab(ctx context.Context, tabID string) error {
	return c.do(ctx, http.MethodDelete, "/tabs/"+url.PathEscape(tabID), nil, http.StatusNoContent, nil)
}

// StartScan starts a scan for a tab. An empty targetURL scans the tab's URL.
func (c *Client) StartScan(ctx context.Context, tabID, targetURL string) (*scan.Snapshot, error) {
	var body any
	if targetURL != "" {
		body = types.StartScanRequest{TargetURL: targetURL}
	}
	var out scan.Snapshot
	if err := c.do(ctx, http.MethodPost, scanPath(tabID), body, http.StatusAccepted, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetScan returns the state of a tab's scan.
func (c *Client) GetScan(ctx context.Context, tabID string) (*scan.Snapshot, error) {
	var out scan.Snapshot
	if err := c.do(ctx, http.MethodGet, scanPath(tabID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelScan cancels a tab's running scan.
func (c *Client) CancelScan(ctx context.Context, tabID string) error {
	return c.do(ctx, http.MethodDelete, scanPath(tabID), nil, http.StatusNoContent, nil)
}

// StreamScan follows a tab's scan over the websocket stream, calling fn
// for every event including the replayed backlog. It returns the final
// phase sent by the server when the stream closes.
func (c *Client) StreamScan(ctx context.Context, tabID string, fn func(scan.Event)) (scan.Phase, error) {
	wsURL, err := c.websocketURL(scanPath(tabID) + "/stream")
	if err != nil {
		return "", err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return "", parseError(resp)
		}
		return "", c.connectionError(err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev scan.Event
		if err := conn.ReadJSON(&ev); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return scan.Phase(ce.Text), nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("scan stream: %w", err)
		}
		fn(ev)
	}
}

func scanPath(tabID string) string {
	return "/tabs/" + url.PathEscape(tabID) + "/scan"
}

func (c *Client) websocketURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// do sends a JSON request and decodes a JSON response into out when the
// status matches want.
func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.connectionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) connectionError(err error) error {
	return &APIError{
		ErrorCode: "connection_error",
		Message:   fmt.Sprintf("cannot connect to rocketboy API at %s: %v", c.baseURL, err),
	}
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  errResp.Error,
			Message:    errResp.Message,
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		ErrorCode:  "unknown_error",
		Message:    fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
	}
}

// FormatConnectionError returns a friendlier message for connection errors.
func FormatConnectionError(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == "connection_error" {
		return ErrServerNotRunning.Error() + "\n  " + apiErr.Message
	}
	return err.Error()
}
