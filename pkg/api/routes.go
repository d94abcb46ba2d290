package api

import (
	"net/http"
)

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Tabs
	mux.HandleFunc("GET /tabs", s.requireTabs(s.handleListTabs))
	mux.HandleFunc("POST /tabs", s.requireTabs(s.handleOpenTab))
	mux.HandleFunc("GET /tabs/{id}", s.requireTabs(s.handleGetTab))
	mux.HandleFunc("PUT /tabs/{id}", s.requireTabs(s.handleUpdateTab))
	mux.HandleFunc("DELETE /tabs/{id}", s.requireTabs(s.handleCloseTab))
	mux.HandleFunc("POST /tabs/{id}/send", s.requireTabs(s.handleSendTab))
	mux.HandleFunc("POST /tabs/{id}/save", s.requireTabs(s.handleSaveTab))

	// Scans
	mux.HandleFunc("POST /tabs/{id}/scan", s.requireScans(s.handleStartScan))
	mux.HandleFunc("GET /tabs/{id}/scan", s.requireScans(s.handleGetScan))
	mux.HandleFunc("DELETE /tabs/{id}/scan", s.requireScans(s.handleCancelScan))
	mux.HandleFunc("GET /tabs/{id}/scan/stream", s.requireScans(s.handleScanStream))

	// History
	mux.HandleFunc("GET /history", s.handleListHistory)
	mux.HandleFunc("GET /history/{id}", s.handleGetHistory)
	mux.HandleFunc("DELETE /history", s.handleClearHistory)

	// Settings and collections
	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("PUT /settings", s.handlePutSettings)
	mux.HandleFunc("GET /collections", s.handleListCollections)
	mux.HandleFunc("POST /collections", s.handleSaveCollection)
	mux.HandleFunc("GET /collections/{name}/export", s.handleExportCollection)
	mux.HandleFunc("POST /import", s.handleImport)

	// Keys
	mux.HandleFunc("GET /keys", s.handleListKeys)
	mux.HandleFunc("PUT /keys/{name}", s.handleSetKey)
	mux.HandleFunc("DELETE /keys/{name}", s.handleRemoveKey)
}
