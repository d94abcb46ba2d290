package api

import (
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rocketboy/rocketboy/pkg/httputil"
)

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	// AllowedOrigins are host patterns matched against the Origin host,
	// e.g. "localhost:*". "*" allows every origin.
	AllowedOrigins []string

	// MaxAge is how long, in seconds, preflight results may be cached.
	MaxAge int
}

// DefaultCORSConfig allows the local UI dev servers.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"localhost:*", "127.0.0.1:*"},
		MaxAge:         86400,
	}
}

func (c CORSConfig) allowed(origin string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	for _, pattern := range c.AllowedOrigins {
		if pattern == "*" {
			return true
		}
		if ok, _ := path.Match(strings.ToLower(pattern), strings.ToLower(u.Host)); ok {
			return true
		}
		// "localhost:*" also covers an origin without a port.
		if strings.HasSuffix(pattern, ":*") && strings.EqualFold(strings.TrimSuffix(pattern, ":*"), u.Host) {
			return true
		}
	}
	return false
}

// withMiddleware wraps the handler with recovery, metrics, logging and CORS.
// Order (outermost to innermost): CORS -> logging/metrics -> recover -> handler
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	recovered := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", rec)
				httputil.WriteError(w, http.StatusInternalServerError, "internal_error", ErrMsgInternalError)
			}
		}()
		handler.ServeHTTP(w, r)
	})

	observed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := httputil.NewStatusRecorder(w)
		recovered.ServeHTTP(rec, r)

		s.metrics.ObserveAPI(r.Method, rec.Status)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status,
			"duration", time.Since(start),
		)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		w.Header().Add("Vary", "Origin")

		if !s.cors.allowed(origin) {
			// Preflights from unknown origins are refused outright; other
			// requests proceed and the browser drops the response.
			if r.Method == http.MethodOptions && origin != "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			observed.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			if s.cors.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", itoa(s.cors.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		observed.ServeHTTP(w, r)
	})
}
