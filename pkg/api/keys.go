package api

import (
	"net/http"
	"sort"

	"github.com/rocketboy/rocketboy/pkg/api/types"
	"github.com/rocketboy/rocketboy/pkg/httputil"
)

// handleListKeys lists key names. Values are write-only over the API.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	if s.keys == nil {
		writeUnavailable(w)
		return
	}
	names, err := s.keys.Keys(r.Context())
	if err != nil {
		s.writeError(w, err, "list keys")
		return
	}
	if names == nil {
		names = []string{}
	}
	sort.Strings(names)
	httputil.WriteJSON(w, http.StatusOK, types.KeyListResponse{Keys: names})
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	if s.keys == nil {
		writeUnavailable(w)
		return
	}
	var req types.SetKeyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON+": "+err.Error())
		return
	}
	name := r.PathValue("name")
	if err := s.keys.SetKey(r.Context(), name, req.Value); err != nil {
		s.writeError(w, err, "set key", "key", name)
		return
	}
	s.log.Info("key stored", "key", name)
	httputil.WriteNoContent(w)
}

func (s *Server) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	if s.keys == nil {
		writeUnavailable(w)
		return
	}
	name := r.PathValue("name")
	if err := s.keys.RemoveKey(r.Context(), name); err != nil {
		s.writeError(w, err, "remove key", "key", name)
		return
	}
	httputil.WriteNoContent(w)
}
