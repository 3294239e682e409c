package email

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// Handler simulates an outbound mail provider.
type Handler struct {
	validate *validator.Validate
	minDelay time.Duration
	maxDelay time.Duration
	logger   *slog.Logger
}

// NewHandler delays each send by a random duration in [minDelay, maxDelay].
func NewHandler(minDelay, maxDelay time.Duration, logger *slog.Logger) *Handler {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Handler{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		minDelay: minDelay,
		maxDelay: maxDelay,
		logger:   logger,
	}
}

type sendRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.logger.Info("email rejected", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid recipient or subject")
		return
	}

	select {
	case <-time.After(h.delay()):
	case <-r.Context().Done():
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject)
	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

func (h *Handler) delay() time.Duration {
	spread := h.maxDelay - h.minDelay
	if spread <= 0 {
		return h.minDelay
	}
	return h.minDelay + rand.N(spread+1)
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
