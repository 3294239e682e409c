package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ecommers/orderflow/internal/domain"
)

type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
}

type Handler struct {
	repo      OrderStore
	publisher EventPublisher
	validator *Validator
	metrics   *orderMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler wires the HTTP surface. publisher may be nil, in which case no
// order.placed events are emitted.
func NewHandler(repo OrderStore, publisher EventPublisher, logger *slog.Logger) (*Handler, error) {
	metrics, err := newOrderMetrics()
	if err != nil {
		return nil, err
	}

	return &Handler{
		repo:      repo,
		publisher: publisher,
		validator: NewValidator(),
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

type validationErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req := NewOrderRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.recordRejected(r.Context(), "malformed")
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.validator.Validate(req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			h.metrics.recordRejected(r.Context(), "invalid")
			h.logger.Info("order request rejected", "fields", len(verr.Fields))
			h.writeJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{
				Error:  "validation failed",
				Fields: verr.Fields,
			})
			return
		}
		h.logger.Error("failed to validate order request", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	order.CreatedAt = h.now()

	if err := h.repo.Create(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishOrderPlaced(r.Context(), domain.NewOrderPlacedEvent(order)); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	h.metrics.recordCreated(r.Context(), len(order.Items))
	h.logger.Info("order created", "order_id", order.ID, "line_items", len(order.Items), "total", order.Total.String())
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
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
