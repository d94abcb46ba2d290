package api

import (
	"net/http"
	"time"

	"github.com/rocketboy/rocketboy/pkg/api/types"
	"github.com/rocketboy/rocketboy/pkg/httputil"
	"github.com/rocketboy/rocketboy/pkg/request"
)

func (s *Server) requireTabs(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.workbench == nil {
			writeUnavailable(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := types.HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Timestamp: time.Now().UTC(),
	}
	if s.workbench != nil {
		resp.Tabs = len(s.workbench.List())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTabs(w http.ResponseWriter, _ *http.Request) {
	list := s.workbench.List()
	httputil.WriteJSON(w, http.StatusOK, types.TabListResponse{Tabs: list, Count: len(list)})
}

// handleOpenTab opens a tab. An empty body opens a blank request seeded
// with the load-test defaults from settings.
func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var req types.OpenTabRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON+": "+err.Error())
			return
		}
	}

	spec := req.Request
	if spec == nil {
		spec = request.New()
		if s.files != nil {
			if settings, err := s.files.LoadSettings(r.Context()); err == nil {
				lt := settings.LoadTestDefaults()
				spec.LoadTest = &lt
			} else {
				s.log.Warn("failed to load settings for new tab", "error", err)
			}
		}
	}

	tab := s.workbench.Open(spec)
	httputil.WriteJSON(w, http.StatusCreated, tab)
}

func (s *Server) handleGetTab(w http.ResponseWriter, r *http.Request) {
	tab, err := s.workbench.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "get tab")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tab)
}

func (s *Server) handleUpdateTab(w http.ResponseWriter, r *http.Request) {
	var spec request.Spec
	if err := httputil.DecodeJSON(w, r, &spec); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON+": "+err.Error())
		return
	}
	tab, err := s.workbench.Update(r.PathValue("id"), &spec)
	if err != nil {
		s.writeError(w, err, "update tab")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tab)
}

// handleCloseTab closes a tab and drops its scan.
func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.workbench.Close(id); err != nil {
		s.writeError(w, err, "close tab")
		return
	}
	if s.scans != nil {
		s.scans.Remove(id)
	}
	httputil.WriteNoContent(w)
}

// handleSendTab sends the tab's request and replies once the send is done.
// Transport failures are part of the tab's results, not HTTP errors.
func (s *Server) handleSendTab(w http.ResponseWriter, r *http.Request) {
	tab, err := s.workbench.Send(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "send tab")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tab)
}

func (s *Server) handleSaveTab(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeUnavailable(w)
		return
	}
	id := r.PathValue("id")
	tab, err := s.workbench.Get(id)
	if err != nil {
		s.writeError(w, err, "save tab")
		return
	}
	path, err := s.files.SaveRequest(r.Context(), tab.Spec)
	if err != nil {
		s.writeError(w, err, "save tab", "tab", id)
		return
	}
	if err := s.workbench.MarkSaved(id); err != nil {
		s.writeError(w, err, "save tab")
		return
	}
	tab, err = s.workbench.Get(id)
	if err != nil {
		s.writeError(w, err, "save tab")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, types.SaveTabResponse{Path: path, Tab: tab})
}
