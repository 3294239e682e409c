package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ecommers/orderflow/internal/domain"
)

type StockStore interface {
	ListAll(ctx context.Context) ([]domain.StockLevel, error)
	GetStock(ctx context.Context, skuCode string) (*domain.StockLevel, error)
	InStock(ctx context.Context, skuCodes []string) ([]domain.StockAvailability, error)
	Reserve(ctx context.Context, skuCode string, quantity int) error
	Release(ctx context.Context, skuCode string, quantity int) error
}

type Handler struct {
	repo   StockStore
	logger *slog.Logger
}

func NewHandler(repo StockStore, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Register mounts the inventory routes on mux.
func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /stock", wrap(h.HandleListStock))
	mux.HandleFunc("GET /stock/in-stock", wrap(h.HandleInStock))
	mux.HandleFunc("GET /stock/{skuCode}", wrap(h.HandleGetStock))
	mux.HandleFunc("POST /stock/{skuCode}/reserve", wrap(h.HandleReserve))
	mux.HandleFunc("POST /stock/{skuCode}/release", wrap(h.HandleRelease))
}

func (h *Handler) HandleListStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list stock", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	skuCode := r.PathValue("skuCode")
	if skuCode == "" {
		h.writeError(w, http.StatusBadRequest, "missing sku code")
		return
	}

	stock, err := h.repo.GetStock(r.Context(), skuCode)
	if err != nil {
		h.logger.Error("failed to get stock", "error", err, "sku_code", skuCode)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if stock == nil {
		h.writeError(w, http.StatusNotFound, "sku not found")
		return
	}

	h.logger.Info("stock retrieved", "sku_code", skuCode)
	h.writeJSON(w, http.StatusOK, stock)
}

func (h *Handler) HandleInStock(w http.ResponseWriter, r *http.Request) {
	skuCodes := r.URL.Query()["sku_code"]
	if len(skuCodes) == 0 {
		h.writeError(w, http.StatusBadRequest, "at least one sku_code is required")
		return
	}

	availability, err := h.repo.InStock(r.Context(), skuCodes)
	if err != nil {
		h.logger.Error("failed to check stock", "error", err, "sku_codes", skuCodes)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, availability)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	skuCode, quantity, ok := h.decodeQuantity(w, r)
	if !ok {
		return
	}

	stock, err := h.repo.GetStock(r.Context(), skuCode)
	if err != nil {
		h.logger.Error("failed to get stock", "error", err, "sku_code", skuCode)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if stock == nil {
		h.writeError(w, http.StatusNotFound, "sku not found")
		return
	}

	if err := h.repo.Reserve(r.Context(), skuCode, quantity); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			h.writeError(w, http.StatusConflict, "insufficient stock")
			return
		}
		h.logger.Error("failed to reserve stock", "error", err, "sku_code", skuCode, "quantity", quantity)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock reserved", "sku_code", skuCode, "quantity", quantity)
	h.writeStock(w, r, skuCode)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	skuCode, quantity, ok := h.decodeQuantity(w, r)
	if !ok {
		return
	}

	if err := h.repo.Release(r.Context(), skuCode, quantity); err != nil {
		if errors.Is(err, ErrInsufficientReserved) {
			h.writeError(w, http.StatusConflict, "insufficient reserved stock")
			return
		}
		h.logger.Error("failed to release stock", "error", err, "sku_code", skuCode, "quantity", quantity)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock released", "sku_code", skuCode, "quantity", quantity)
	h.writeStock(w, r, skuCode)
}

func (h *Handler) decodeQuantity(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	skuCode := r.PathValue("skuCode")
	if skuCode == "" {
		h.writeError(w, http.StatusBadRequest, "missing sku code")
		return "", 0, false
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return "", 0, false
	}

	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return "", 0, false
	}

	return skuCode, req.Quantity, true
}

func (h *Handler) writeStock(w http.ResponseWriter, r *http.Request, skuCode string) {
	stock, err := h.repo.GetStock(r.Context(), skuCode)
	if err != nil {
		h.logger.Error("failed to get updated stock", "error", err, "sku_code", skuCode)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, stock)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
