package api

import (
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/rocketboy/rocketboy/pkg/api/types"
	"github.com/rocketboy/rocketboy/pkg/httputil"
	"github.com/rocketboy/rocketboy/pkg/scan"
)

func (s *Server) requireScans(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.scans == nil {
			writeUnavailable(w)
			return
		}
		next(w, r)
	}
}

// handleStartScan starts a scan for a tab. Without a body the tab's URL is
// scanned; the tab need not exist when a target is given.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.StartScanRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON+": "+err.Error())
			return
		}
	}

	target := strings.TrimSpace(req.TargetURL)
	if target == "" && s.workbench != nil {
		tab, err := s.workbench.Get(id)
		if err != nil {
			s.writeError(w, err, "start scan")
			return
		}
		target = tab.Spec.URL
	}

	sess, err := s.scans.Start(id, target)
	if err != nil {
		s.writeError(w, err, "start scan", "tab", id)
		return
	}
	s.log.Info("scan started", "tab", id, "session", sess.ID(), "target", sess.TargetURL())
	httputil.WriteJSON(w, http.StatusAccepted, sess.Snapshot())
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.scans.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, scan.ErrNoScan, "get scan")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	if err := s.scans.Cancel(r.PathValue("id")); err != nil {
		s.writeError(w, err, "cancel scan")
		return
	}
	httputil.WriteNoContent(w)
}

// handleScanStream upgrades to a websocket and writes the scan's events as
// JSON, starting with the backlog. The socket is closed with a normal
// closure once the scan reaches a terminal phase; the close reason is the
// final phase.
func (s *Server) handleScanStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.scans.Get(id)
	if !ok {
		s.writeError(w, scan.ErrNoScan, "stream scan")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cors.AllowedOrigins,
	})
	if err != nil {
		s.log.Debug("scan stream upgrade failed", "tab", id, "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their control frames and
	// cancels ctx when they go away.
	ctx := conn.CloseRead(r.Context())

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, string(sess.Phase()))
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				s.log.Debug("scan stream write failed", "tab", id, "error", err)
				return
			}
		}
	}
}
