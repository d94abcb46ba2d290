package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rocketboy/rocketboy/pkg/api/types"
	"github.com/rocketboy/rocketboy/pkg/httputil"
	"github.com/rocketboy/rocketboy/pkg/portability"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/store"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeUnavailable(w)
		return
	}
	settings, err := s.files.LoadSettings(r.Context())
	if err != nil {
		s.writeError(w, err, "load settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeUnavailable(w)
		return
	}
	var settings store.Settings
	if err := httputil.DecodeJSON(w, r, &settings); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON+": "+err.Error())
		return
	}
	if err := s.files.SaveSettings(r.Context(), settings); err != nil {
		s.writeError(w, err, "save settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeUnavailable(w)
		return
	}
	collections, err := s.files.LoadCollections(r.Context())
	if err != nil {
		s.writeError(w, err, "load collections")
		return
	}
	if collections == nil {
		collections = []*request.Collection{}
	}
	httputil.WriteJSON(w, http.StatusOK, types.CollectionListResponse{Collections: collections, Count: len(collections)})
}

func (s *Server) handleSaveCollection(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeUnavailable(w)
		return
	}
	var c request.Collection
	if err := httputil.DecodeJSON(w, r, &c); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON+": "+err.Error())
		return
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = request.DefaultCollectionName
	}
	if err := s.files.SaveCollection(r.Context(), &c); err != nil {
		s.writeError(w, err, "save collection", "collection", c.Name)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &c)
}

// handleExportCollection writes a saved collection in the format named by
// the format query parameter (native by default).
func (s *Server) handleExportCollection(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeUnavailable(w)
		return
	}
	q := r.URL.Query()
	format := portability.FormatNative
	if v := q.Get("format"); v != "" {
		format = portability.ParseFormat(v)
		if !format.CanExport() {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_format", "cannot export format "+strconv.Quote(v))
			return
		}
	}

	name := r.PathValue("name")
	collections, err := s.files.LoadCollections(r.Context())
	if err != nil {
		s.writeError(w, err, "export collection")
		return
	}
	var found *request.Collection
	for _, c := range collections {
		if c.Name == name {
			found = c
			break
		}
	}
	if found == nil {
		s.writeError(w, store.ErrNotFound, "export collection")
		return
	}

	res, err := portability.Export(found, &portability.ExportOptions{
		Format:   format,
		Encoding: portability.ParseEncoding(q.Get("encoding")),
	})
	if err != nil {
		s.writeError(w, err, "export collection", "collection", name)
		return
	}
	w.Header().Set("Content-Type", exportContentType(res.Data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func exportContentType(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return "application/json"
	case strings.HasPrefix(trimmed, "curl "):
		return "text/plain; charset=utf-8"
	default:
		return "application/yaml"
	}
}

// handleImport imports the raw request body. Query parameters: format
// (detected when empty), filename (a detection hint), name, baseUrl,
// open (open every request as a tab) and save (store the collection).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data, err := httputil.ReadBody(w, r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_body", "request body is empty")
		return
	}

	opts := &portability.ImportOptions{
		Name:    q.Get("name"),
		BaseURL: q.Get("baseUrl"),
	}
	if v := q.Get("format"); v != "" {
		opts.Format = portability.ParseFormat(v)
		if !opts.Format.CanImport() {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_format", "cannot import format "+strconv.Quote(v))
			return
		}
	}

	res, err := portability.Import(data, q.Get("filename"), opts)
	if err != nil {
		s.writeError(w, err, "import")
		return
	}

	resp := types.ImportResponse{
		Format:       res.Format.String(),
		Collection:   res.Collection,
		RequestCount: res.RequestCount,
		FolderCount:  res.FolderCount,
	}

	if flag(q.Get("save")) {
		if s.files == nil {
			writeUnavailable(w)
			return
		}
		if err := s.files.SaveCollection(r.Context(), res.Collection); err != nil {
			s.writeError(w, err, "import", "collection", res.Collection.Name)
			return
		}
	}
	if flag(q.Get("open")) {
		if s.workbench == nil {
			writeUnavailable(w)
			return
		}
		resp.Tabs = s.workbench.ImportRequests(res.Collection.Flatten())
	}

	s.log.Info("collection imported",
		"format", resp.Format,
		"name", res.Collection.Name,
		"requests", res.RequestCount,
	)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func flag(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
