package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ecommers/orderflow/internal/domain"
	"github.com/ecommers/orderflow/internal/messaging"
)

// FulfillmentHandler reacts to order.placed events: it reserves stock for
// every line item, then confirms or cancels the order and mails the customer.
type FulfillmentHandler struct {
	emailServiceURL     string
	ordersServiceURL    string
	inventoryServiceURL string
	httpClient          *http.Client
	logger              *slog.Logger
}

func NewFulfillmentHandler(emailServiceURL, ordersServiceURL, inventoryServiceURL string, client *http.Client, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		emailServiceURL:     emailServiceURL,
		ordersServiceURL:    ordersServiceURL,
		inventoryServiceURL: inventoryServiceURL,
		httpClient:          client,
		logger:              logger,
	}
}

type reservedItem struct {
	SkuCode  string
	Quantity int
}

var (
	errInsufficientStock = errors.New("insufficient stock")
	errOrderNotFound     = errors.New("order not found")
)

// Handle is safe to run again on a redelivered event. The order status is
// written last, and only pending orders are processed, so a retry after any
// failure starts from released stock and an unchanged order.
func (h *FulfillmentHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping undecodable order placed event", "error", err)
		return messaging.Permanent(fmt.Errorf("unmarshal order placed event: %w", err))
	}

	status, err := h.orderStatus(ctx, event.OrderID)
	if errors.Is(err, errOrderNotFound) {
		h.logger.Error("dropping event for unknown order", "order_id", event.OrderID)
		return messaging.Permanent(err)
	}
	if err != nil {
		return fmt.Errorf("look up order %s: %w", event.OrderID, err)
	}
	if status != domain.OrderStatusPending {
		h.logger.Info("skipping order already processed", "order_id", event.OrderID, "status", status)
		return nil
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "line_items", len(event.Items))

	reserved, err := h.reserveStock(ctx, event)
	switch {
	case errors.Is(err, errInsufficientStock):
		h.logger.Info("insufficient stock, cancelling order", "order_id", event.OrderID, "reason", err)
		h.releaseStock(ctx, reserved)
		return h.cancel(ctx, event)
	case err != nil:
		h.logger.Error("failed to reserve stock", "error", err, "order_id", event.OrderID)
		h.releaseStock(ctx, reserved)
		return fmt.Errorf("reserve stock: %w", err)
	}

	if err := h.sendConfirmationEmail(ctx, event); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		h.releaseStock(ctx, reserved)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	if err := h.updateOrderStatus(ctx, event.OrderID, domain.OrderStatusConfirmed); err != nil {
		h.logger.Error("failed to confirm order", "error", err, "order_id", event.OrderID)
		h.releaseStock(ctx, reserved)
		return fmt.Errorf("confirm order: %w", err)
	}

	h.logger.Info("order fulfilled", "order_id", event.OrderID)
	return nil
}

func (h *FulfillmentHandler) cancel(ctx context.Context, event domain.OrderPlacedEvent) error {
	if err := h.sendCancellationEmail(ctx, event); err != nil {
		h.logger.Error("failed to send cancellation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send cancellation email: %w", err)
	}

	if err := h.updateOrderStatus(ctx, event.OrderID, domain.OrderStatusCancelled); err != nil {
		h.logger.Error("failed to cancel order", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("cancel order after stock failure: %w", err)
	}

	h.logger.Info("order cancelled due to insufficient stock", "order_id", event.OrderID)
	return nil
}

// reserveStock stops at the first line that cannot be reserved and returns
// what was reserved before it, so the caller can roll back. Only 409 and 404
// from inventory count as a shortage; anything else is retryable.
func (h *FulfillmentHandler) reserveStock(ctx context.Context, event domain.OrderPlacedEvent) ([]reservedItem, error) {
	var reserved []reservedItem

	for _, item := range event.Items {
		status, err := h.postQuantity(ctx, "reserve", item.SkuCode, item.Quantity)
		if err != nil {
			return reserved, fmt.Errorf("reserve stock for sku %s: %w", item.SkuCode, err)
		}

		switch status {
		case http.StatusOK:
		case http.StatusConflict, http.StatusNotFound:
			return reserved, fmt.Errorf("%w for sku %s", errInsufficientStock, item.SkuCode)
		default:
			return reserved, fmt.Errorf("inventory service returned status %d for sku %s", status, item.SkuCode)
		}

		reserved = append(reserved, reservedItem{SkuCode: item.SkuCode, Quantity: item.Quantity})
	}

	return reserved, nil
}

func (h *FulfillmentHandler) releaseStock(ctx context.Context, reserved []reservedItem) {
	for _, item := range reserved {
		status, err := h.postQuantity(ctx, "release", item.SkuCode, item.Quantity)
		if err != nil {
			h.logger.Error("failed to release stock", "error", err, "sku_code", item.SkuCode)
			continue
		}
		if status != http.StatusOK {
			h.logger.Error("failed to release stock", "status", status, "sku_code", item.SkuCode)
		}
	}
}

func (h *FulfillmentHandler) postQuantity(ctx context.Context, action, skuCode string, quantity int) (int, error) {
	data, err := json.Marshal(map[string]int{"quantity": quantity})
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/stock/%s/%s", h.inventoryServiceURL, url.PathEscape(skuCode), action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()

	return resp.StatusCode, nil
}

func (h *FulfillmentHandler) sendConfirmationEmail(ctx context.Context, event domain.OrderPlacedEvent) error {
	return h.sendEmail(ctx, map[string]string{
		"to":      event.CustomerEmail,
		"subject": "Order Confirmation: " + event.OrderID,
		"body":    fmt.Sprintf("Hi %s, your order %s has been confirmed with %d items.", event.CustomerName, event.OrderID, len(event.Items)),
	})
}

func (h *FulfillmentHandler) sendCancellationEmail(ctx context.Context, event domain.OrderPlacedEvent) error {
	return h.sendEmail(ctx, map[string]string{
		"to":      event.CustomerEmail,
		"subject": "Order Cancelled: " + event.OrderID,
		"body":    fmt.Sprintf("Hi %s, your order %s has been cancelled due to insufficient stock. You will be reimbursed.", event.CustomerName, event.OrderID),
	})
}

func (h *FulfillmentHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

func (h *FulfillmentHandler) orderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	endpoint := fmt.Sprintf("%s/orders/%s", h.ordersServiceURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", errOrderNotFound
	default:
		return "", fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}

	var order struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("decode order: %w", err)
	}
	return order.Status, nil
}

func (h *FulfillmentHandler) updateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	data, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/orders/%s/status", h.ordersServiceURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}

	return nil
}
