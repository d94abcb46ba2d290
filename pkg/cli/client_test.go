package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rocketboy/rocketboy/pkg/httputil"
)

func TestClient_ParsesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "tab not found")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL+"/").GetScan(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.ErrorCode != "not_found" || apiErr.Message != "tab not found" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode != "unknown_error" || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_WebsocketURL(t *testing.T) {
	tests := map[string]string{
		"http://127.0.0.1:4300":   "ws://127.0.0.1:4300/tabs/a%2Fb/scan/stream",
		"https://rocketboy.test/": "wss://rocketboy.test/tabs/a%2Fb/scan/stream",
	}
	for base, want := range tests {
		got, err := NewClient(base).websocketURL(scanPath("a/b") + "/stream")
		if err != nil {
			t.Fatalf("%s: %v", base, err)
		}
		if got != want {
			t.Errorf("websocketURL(%s) = %q, want %q", base, got, want)
		}
	}
}

func TestFormatConnectionError(t *testing.T) {
	err := NewClient("http://127.0.0.1:1").CancelScan(context.Background(), "x")
	if got := FormatConnectionError(err); got == err.Error() {
		t.Errorf("connection error not reformatted: %q", got)
	}
	plain := errors.New("plain")
	if FormatConnectionError(plain) != "plain" {
		t.Error("non-API errors should pass through")
	}
}
