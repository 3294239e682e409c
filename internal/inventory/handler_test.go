package inventory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ecommers/orderflow/internal/domain"
)

type memoryStock struct {
	mu     sync.Mutex
	levels map[string]*domain.StockLevel
}

func newMemoryStock(levels ...domain.StockLevel) *memoryStock {
	s := &memoryStock{levels: make(map[string]*domain.StockLevel)}
	for _, l := range levels {
		level := l
		s.levels[l.SkuCode] = &level
	}
	return s
}

func (s *memoryStock) ListAll(context.Context) ([]domain.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.StockLevel{}
	for _, l := range s.levels {
		out = append(out, *l)
	}
	return out, nil
}

func (s *memoryStock) GetStock(_ context.Context, skuCode string) (*domain.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.levels[skuCode]
	if !ok {
		return nil, nil
	}
	level := *l
	return &level, nil
}

func (s *memoryStock) InStock(_ context.Context, skuCodes []string) ([]domain.StockAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StockAvailability, len(skuCodes))
	for i, sku := range skuCodes {
		l, ok := s.levels[sku]
		out[i] = domain.StockAvailability{SkuCode: sku, InStock: ok && l.Available > 0}
	}
	return out, nil
}

func (s *memoryStock) Reserve(_ context.Context, skuCode string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.levels[skuCode]
	if !ok || l.Available < quantity {
		return ErrInsufficientStock
	}
	l.Available -= quantity
	l.Reserved += quantity
	return nil
}

func (s *memoryStock) Release(_ context.Context, skuCode string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.levels[skuCode]
	if !ok || l.Reserved < quantity {
		return ErrInsufficientReserved
	}
	l.Available += quantity
	l.Reserved -= quantity
	return nil
}

func newTestMux(store StockStore) *http.ServeMux {
	handler := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	handler.Register(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })
	return mux
}

func TestHandler_Reserve(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		body          string
		wantStatus    int
		wantAvailable int
	}{
		{name: "reserves available stock", path: "/stock/iphone_13/reserve", body: `{"quantity":4}`, wantStatus: http.StatusOK, wantAvailable: 6},
		{name: "conflict on insufficient stock", path: "/stock/iphone_13/reserve", body: `{"quantity":11}`, wantStatus: http.StatusConflict, wantAvailable: 10},
		{name: "unknown sku", path: "/stock/nokia/reserve", body: `{"quantity":1}`, wantStatus: http.StatusNotFound, wantAvailable: 10},
		{name: "non-positive quantity", path: "/stock/iphone_13/reserve", body: `{"quantity":0}`, wantStatus: http.StatusBadRequest, wantAvailable: 10},
		{name: "malformed body", path: "/stock/iphone_13/reserve", body: `{`, wantStatus: http.StatusBadRequest, wantAvailable: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStock(domain.StockLevel{SkuCode: "iphone_13", Available: 10})
			mux := newTestMux(store)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			level, _ := store.GetStock(context.Background(), "iphone_13")
			if level.Available != tt.wantAvailable {
				t.Errorf("expected available %d, got %d", tt.wantAvailable, level.Available)
			}
		})
	}
}

func TestHandler_Release(t *testing.T) {
	store := newMemoryStock(domain.StockLevel{SkuCode: "iphone_13", Available: 5, Reserved: 3})
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stock/iphone_13/release", strings.NewReader(`{"quantity":3}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var level domain.StockLevel
	if err := json.NewDecoder(rec.Body).Decode(&level); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if level.Available != 8 || level.Reserved != 0 {
		t.Errorf("unexpected level: %+v", level)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stock/iphone_13/release", strings.NewReader(`{"quantity":1}`)))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409 when nothing is reserved, got %d", rec.Code)
	}
}

func TestHandler_InStock(t *testing.T) {
	store := newMemoryStock(
		domain.StockLevel{SkuCode: "iphone_13", Available: 10},
		domain.StockLevel{SkuCode: "galaxy_s22", Available: 0, Reserved: 2},
	)
	mux := newTestMux(store)

	t.Run("reports availability in request order", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock/in-stock?sku_code=galaxy_s22&sku_code=iphone_13&sku_code=nokia", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var got []domain.StockAvailability
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		want := []domain.StockAvailability{
			{SkuCode: "galaxy_s22", InStock: false},
			{SkuCode: "iphone_13", InStock: true},
			{SkuCode: "nokia", InStock: false},
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d results, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("result %d: expected %+v, got %+v", i, want[i], got[i])
			}
		}
	})

	t.Run("requires a sku code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock/in-stock", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_GetStock(t *testing.T) {
	mux := newTestMux(newMemoryStock(domain.StockLevel{SkuCode: "iphone_13", Available: 10}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock/iphone_13", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock/nokia", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}
