package api

import (
	"net/http"
	"strconv"

	"github.com/rocketboy/rocketboy/pkg/api/types"
	"github.com/rocketboy/rocketboy/pkg/httputil"
	"github.com/rocketboy/rocketboy/pkg/requestlog"
)

// defaultHistoryLimit applies when GET /history has no limit.
const defaultHistoryLimit = 100

// parseHistoryFilter reads the history query parameters. Invalid numbers
// are reported rather than ignored.
func parseHistoryFilter(r *http.Request) (*requestlog.Filter, error) {
	q := r.URL.Query()
	f := &requestlog.Filter{
		Method: q.Get("method"),
		URL:    q.Get("url"),
		TabID:  q.Get("tabId"),
		Limit:  defaultHistoryLimit,
	}

	var err error
	if v := q.Get("status"); v != "" {
		if f.StatusCode, err = strconv.Atoi(v); err != nil {
			return nil, err
		}
	}
	if v := q.Get("hasError"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		f.HasError = &b
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return nil, err
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w)
		return
	}
	filter, err := parseHistoryFilter(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	all := *filter
	all.Limit, all.Offset = 0, 0
	total := len(s.history.List(&all))

	items := s.history.List(filter)
	if items == nil {
		items = []*requestlog.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, types.HistoryListResponse{
		Items:  items,
		Count:  len(items),
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w)
		return
	}
	entry := s.history.Get(r.PathValue("id"))
	if entry == nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "history entry not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	if s.history == nil {
		writeUnavailable(w)
		return
	}
	n := s.history.Count()
	s.history.Clear()
	httputil.WriteJSON(w, http.StatusOK, types.CountResponse{Message: "history cleared", Cleared: n})
}
