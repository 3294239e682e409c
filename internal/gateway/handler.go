package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// upstream is one downstream service plus the path rewrite applied before
// the request is forwarded to it.
type upstream struct {
	name    string
	proxy   *ServiceProxy
	rewrite func(path string) string
}

type Handler struct {
	orders    upstream
	inventory upstream
	logger    *slog.Logger
}

func NewHandler(ordersProxy, inventoryProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		orders:    upstream{name: "orders", proxy: ordersProxy, rewrite: func(path string) string { return path }},
		inventory: upstream{name: "inventory", proxy: inventoryProxy, rewrite: inventoryPath},
		logger:    logger,
	}
}

// inventoryPath maps the public /inventory/stock/... onto the inventory
// service's /stock/...
func inventoryPath(path string) string {
	if rest := strings.TrimPrefix(path, "/inventory"); rest != "" {
		return rest
	}
	return "/"
}

// Headers copied from upstream responses besides the body.
var forwardedResponseHeaders = []string{"Content-Type", "Location", "Retry-After"}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.orders)
}

func (h *Handler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.inventory)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, up upstream) {
	path := up.rewrite(r.URL.Path)

	resp, err := up.proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("upstream request failed", "error", err, "upstream", up.name, "path", path)
		if isTimeout(err) {
			h.writeError(w, http.StatusGatewayTimeout, "service timed out")
			return
		}
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, name := range forwardedResponseHeaders {
		if value := resp.Header.Get(name); value != "" {
			w.Header().Set(name, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	h.logger.Debug("request proxied", "upstream", up.name, "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err, "upstream", up.name)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
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
