// Package types holds the request and response bodies of the rocketboy API,
// shared by the server and the CLI client.
package types

import (
	"time"

	"github.com/rocketboy/rocketboy/pkg/httputil"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/requestlog"
	"github.com/rocketboy/rocketboy/pkg/tabs"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse = httputil.ErrorResponse

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    int       `json:"uptime"`
	Tabs      int       `json:"tabs"`
	Timestamp time.Time `json:"timestamp"`
}

// PaginatedResponse is a generic paginated response wrapper.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Total  int `json:"total,omitempty"`
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// TabListResponse lists the open tabs in display order.
type TabListResponse struct {
	Tabs  []tabs.Tab `json:"tabs"`
	Count int        `json:"count"`
}

// OpenTabRequest opens a tab. A nil Request opens a blank one.
type OpenTabRequest struct {
	Request *request.Spec `json:"request,omitempty"`
}

// SaveTabResponse reports where a tab's request was written.
type SaveTabResponse struct {
	Path string   `json:"path"`
	Tab  tabs.Tab `json:"tab"`
}

// StartScanRequest starts a scan. An empty TargetURL scans the tab's URL.
type StartScanRequest struct {
	TargetURL string `json:"targetUrl,omitempty"`
}

// HistoryListResponse is a page of send history.
type HistoryListResponse = PaginatedResponse[*requestlog.Entry]

// CollectionListResponse lists saved collections.
type CollectionListResponse struct {
	Collections []*request.Collection `json:"collections"`
	Count       int                   `json:"count"`
}

// ImportResponse reports an import.
type ImportResponse struct {
	Format       string              `json:"format"`
	Collection   *request.Collection `json:"collection"`
	RequestCount int                 `json:"requestCount"`
	FolderCount  int                 `json:"folderCount"`
	Tabs         []tabs.Tab          `json:"tabs,omitempty"`
}

// KeyListResponse lists stored key names. Values are never returned.
type KeyListResponse struct {
	Keys []string `json:"keys"`
}

// SetKeyRequest stores a key value.
type SetKeyRequest struct {
	Value string `json:"value"`
}

// MessageResponse is a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// CountResponse is a response with a count field.
type CountResponse struct {
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
	Cleared int    `json:"cleared,omitempty"`
}
