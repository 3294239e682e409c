package gateway

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func newTestRouter(t *testing.T, downstream http.HandlerFunc, logs io.Writer) http.Handler {
	t.Helper()

	server := httptest.NewServer(downstream)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(logs, nil))
	proxy := NewServiceProxy(server.URL, server.Client())
	return NewRouter(NewHandler(proxy, proxy, logger), logger, []string{"https://shop.example.com"})
}

func TestRouter(t *testing.T) {
	t.Run("forwards request id downstream", func(t *testing.T) {
		var gotID string
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			gotID = r.Header.Get(chimiddleware.RequestIDHeader)
			w.WriteHeader(http.StatusOK)
		}, io.Discard)

		req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
		req.Header.Set(chimiddleware.RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if gotID != "req-42" {
			t.Errorf("expected request id req-42, got %q", gotID)
		}
	})

	t.Run("routes in-stock query to inventory", func(t *testing.T) {
		var gotPath, gotQuery string
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
			w.WriteHeader(http.StatusOK)
		}, io.Discard)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory/stock/in-stock?sku_code=iphone_13", nil))

		if gotPath != "/stock/in-stock" || gotQuery != "sku_code=iphone_13" {
			t.Errorf("unexpected downstream request: %s?%s", gotPath, gotQuery)
		}
	})

	t.Run("rejects unknown methods", func(t *testing.T) {
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("downstream must not be called")
		}, io.Discard)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/orders/abc", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
	})

	t.Run("answers cors preflight for allowed origin", func(t *testing.T) {
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("downstream must not be called for preflight")
		}, io.Discard)

		req := httptest.NewRequest(http.MethodOptions, "/orders", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
			t.Errorf("expected allowed origin header, got %q", got)
		}
	})

	t.Run("logs each request", func(t *testing.T) {
		var logs bytes.Buffer
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}, &logs)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`)))

		if !strings.Contains(logs.String(), "status=201") || !strings.Contains(logs.String(), "path=/orders") {
			t.Errorf("unexpected access log: %s", logs.String())
		}
	})

	t.Run("serves health", func(t *testing.T) {
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, io.Discard)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}
