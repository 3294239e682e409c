package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeUpstream records what the gateway forwarded and answers with a canned reply.
type fakeUpstream struct {
	status   int
	body     string
	location string

	gotMethod string
	gotPath   string
	gotQuery  string
	gotBody   string
}

func (u *fakeUpstream) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		u.gotMethod = r.Method
		u.gotPath = r.URL.Path
		u.gotQuery = r.URL.RawQuery
		u.gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		if u.location != "" {
			w.Header().Set("Location", u.location)
		}
		w.Header().Set("Set-Cookie", "upstream=1")
		w.WriteHeader(u.status)
		_, _ = io.WriteString(w, u.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_Proxying(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		body      string
		inventory bool
		upstream  fakeUpstream
		wantPath  string
		wantQuery string
	}{
		{
			name:     "lists orders",
			method:   http.MethodGet,
			target:   "/orders",
			upstream: fakeUpstream{status: http.StatusOK, body: `[{"id":"1"}]`},
			wantPath: "/orders",
		},
		{
			name:     "creates order with request body",
			method:   http.MethodPost,
			target:   "/orders",
			body:     `{"customer_name":"Alice","customer_email":"alice@example.com","order_line_items":[]}`,
			upstream: fakeUpstream{status: http.StatusCreated, body: `{"id":"new-id"}`, location: "/orders/new-id"},
			wantPath: "/orders",
		},
		{
			name:     "passes validation failures through",
			method:   http.MethodPost,
			target:   "/orders",
			body:     `{}`,
			upstream: fakeUpstream{status: http.StatusUnprocessableEntity, body: `{"error":"validation failed","fields":[]}`},
			wantPath: "/orders",
		},
		{
			name:      "rewrites inventory stock lookup",
			method:    http.MethodGet,
			target:    "/inventory/stock/iphone_13",
			inventory: true,
			upstream:  fakeUpstream{status: http.StatusOK, body: `{"sku_code":"iphone_13","available":10,"reserved":0}`},
			wantPath:  "/stock/iphone_13",
		},
		{
			name:      "forwards in-stock query",
			method:    http.MethodGet,
			target:    "/inventory/stock/in-stock?sku_code=iphone_13&sku_code=pixel_8",
			inventory: true,
			upstream:  fakeUpstream{status: http.StatusOK, body: `[]`},
			wantPath:  "/stock/in-stock",
			wantQuery: "sku_code=iphone_13&sku_code=pixel_8",
		},
		{
			name:      "preserves downstream not found",
			method:    http.MethodGet,
			target:    "/inventory/stock/unknown",
			inventory: true,
			upstream:  fakeUpstream{status: http.StatusNotFound, body: `{"error":"sku not found"}`},
			wantPath:  "/stock/unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := tt.upstream
			srv := up.start(t)

			ordersProxy := NewServiceProxy("http://unused", http.DefaultClient)
			inventoryProxy := NewServiceProxy("http://unused", http.DefaultClient)
			if tt.inventory {
				inventoryProxy = NewServiceProxy(srv.URL, srv.Client())
			} else {
				ordersProxy = NewServiceProxy(srv.URL, srv.Client())
			}
			handler := NewHandler(ordersProxy, inventoryProxy, discardLogger())

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			if tt.inventory {
				handler.HandleInventory(rec, req)
			} else {
				handler.HandleOrders(rec, req)
			}

			if rec.Code != up.status {
				t.Errorf("expected status %d, got %d", up.status, rec.Code)
			}
			if rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
			}
			if rec.Body.String() != up.body {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
			if up.gotMethod != tt.method {
				t.Errorf("expected upstream method %s, got %s", tt.method, up.gotMethod)
			}
			if up.gotPath != tt.wantPath {
				t.Errorf("expected upstream path %s, got %s", tt.wantPath, up.gotPath)
			}
			if up.gotQuery != tt.wantQuery {
				t.Errorf("expected upstream query %q, got %q", tt.wantQuery, up.gotQuery)
			}
			if rec.Header().Get("Location") != up.location {
				t.Errorf("expected Location %q, got %q", up.location, rec.Header().Get("Location"))
			}
			if rec.Header().Get("Set-Cookie") != "" {
				t.Errorf("expected upstream cookies to be dropped, got %q", rec.Header().Get("Set-Cookie"))
			}
			if up.gotBody != tt.body {
				t.Errorf("expected upstream body %q, got %q", tt.body, up.gotBody)
			}
		})
	}
}

func TestHandler_UpstreamUnavailable(t *testing.T) {
	dead := NewServiceProxy("http://localhost:99999", &http.Client{})
	unused := NewServiceProxy("http://unused", http.DefaultClient)

	cases := map[string]func(*Handler) http.HandlerFunc{
		"orders":    func(h *Handler) http.HandlerFunc { return h.HandleOrders },
		"inventory": func(h *Handler) http.HandlerFunc { return h.HandleInventory },
	}

	for name, pick := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewHandler(dead, unused, discardLogger())
			if name == "inventory" {
				handler = NewHandler(unused, dead, discardLogger())
			}

			rec := httptest.NewRecorder()
			pick(handler)(rec, httptest.NewRequest(http.MethodGet, "/"+name, nil))

			if rec.Code != http.StatusBadGateway {
				t.Errorf("expected status 502, got %d", rec.Code)
			}

			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != "service unavailable" {
				t.Errorf("expected 'service unavailable', got %s", resp["error"])
			}
		})
	}
}

func TestHandler_UpstreamTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	handler := NewHandler(
		NewServiceProxy(slow.URL, &http.Client{Timeout: 50 * time.Millisecond}),
		NewServiceProxy("http://unused", http.DefaultClient),
		discardLogger(),
	)

	rec := httptest.NewRecorder()
	handler.HandleOrders(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected status 504, got %d", rec.Code)
	}
}

func TestInventoryPath(t *testing.T) {
	tests := map[string]string{
		"/inventory/stock":                   "/stock",
		"/inventory/stock/iphone_13":         "/stock/iphone_13",
		"/inventory/stock/iphone_13/reserve": "/stock/iphone_13/reserve",
		"/inventory":                         "/",
	}
	for in, want := range tests {
		if got := inventoryPath(in); got != want {
			t.Errorf("inventoryPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandler_HandleHealth(t *testing.T) {
	handler := NewHandler(nil, nil, discardLogger())

	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
