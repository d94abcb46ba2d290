package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rocketboy/rocketboy/pkg/httputil"
	"github.com/rocketboy/rocketboy/pkg/keystore"
	"github.com/rocketboy/rocketboy/pkg/portability"
	"github.com/rocketboy/rocketboy/pkg/scan"
	"github.com/rocketboy/rocketboy/pkg/store"
	"github.com/rocketboy/rocketboy/pkg/tabs"
)

// Client-facing messages for failures whose details stay in the log.
const (
	ErrMsgInternalError = "An internal error occurred"
	ErrMsgInvalidJSON   = "Invalid JSON in request body"
	ErrMsgUnavailable   = "This feature is not configured on the server"
)

// writeError maps err to a status and error code. Unknown errors are
// logged and reported as 500 without their text.
func (s *Server) writeError(w http.ResponseWriter, err error, operation string, attrs ...any) {
	var (
		importErr *portability.ImportError
		exportErr *portability.ExportError
	)
	switch {
	case errors.Is(err, tabs.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, scan.ErrNoScan):
		httputil.WriteError(w, http.StatusNotFound, "no_scan", err.Error())
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, tabs.ErrSendInProgress):
		httputil.WriteError(w, http.StatusConflict, "send_in_progress", err.Error())
	case errors.Is(err, scan.ErrScanInProgress):
		httputil.WriteError(w, http.StatusConflict, "scan_in_progress", err.Error())
	case errors.Is(err, scan.ErrNoTarget),
		errors.Is(err, keystore.ErrEmptyName),
		errors.Is(err, store.ErrInvalidName):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &importErr):
		httputil.WriteErrorWithDetails(w, http.StatusBadRequest, "import_failed", importErr.Error(), map[string]any{
			"format": importErr.Format.String(),
			"line":   importErr.Line,
			"column": importErr.Column,
		})
	case errors.As(err, &exportErr):
		httputil.WriteError(w, http.StatusBadRequest, "export_failed", exportErr.Error())
	default:
		args := append([]any{"operation", operation, "error", err}, attrs...)
		s.log.Error("operation failed", args...)
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", ErrMsgInternalError)
	}
}

func writeUnavailable(w http.ResponseWriter) {
	httputil.WriteError(w, http.StatusServiceUnavailable, "unavailable", ErrMsgUnavailable)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
