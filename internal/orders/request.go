package orders

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderLineItemRequest is one requested line of an order as received on the wire.
type OrderLineItemRequest struct {
	SkuCode  string          `json:"sku_code"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Equal compares prices by numeric value, so 10.5 equals 10.50.
func (i OrderLineItemRequest) Equal(other OrderLineItemRequest) bool {
	return i.SkuCode == other.SkuCode &&
		i.Price.Equal(other.Price) &&
		i.Quantity == other.Quantity
}

// String is for diagnostics only.
func (i OrderLineItemRequest) String() string {
	return fmt.Sprintf("{SkuCode: %q, Price: %s, Quantity: %d}", i.SkuCode, i.Price.String(), i.Quantity)
}

// OrderRequest carries an order-creation request from the HTTP boundary to
// the Validator. It holds whatever the client sent: nothing here checks the
// name, the email or the number of line items.
//
// A value belongs to a single request flow. Fields may be reassigned freely,
// but concurrent writes to the same value are not synchronized and must be
// guarded by the caller.
type OrderRequest struct {
	CustomerName   string                 `json:"customer_name"`
	CustomerEmail  string                 `json:"customer_email"`
	OrderLineItems []OrderLineItemRequest `json:"order_line_items"`
}

// NewOrderRequest returns a request with empty scalars and no line items.
func NewOrderRequest() OrderRequest {
	return OrderRequest{OrderLineItems: []OrderLineItemRequest{}}
}

// NewOrderRequestWith sets every field. The items are copied; omitting them
// yields an empty list.
func NewOrderRequestWith(customerName, customerEmail string, items ...OrderLineItemRequest) OrderRequest {
	return OrderRequest{
		CustomerName:   customerName,
		CustomerEmail:  customerEmail,
		OrderLineItems: cloneLineItems(items),
	}
}

// Equal reports whether both requests hold the same values. Line items are
// compared in order; a nil list equals an empty one.
func (r OrderRequest) Equal(other OrderRequest) bool {
	if r.CustomerName != other.CustomerName || r.CustomerEmail != other.CustomerEmail {
		return false
	}
	if len(r.OrderLineItems) != len(other.OrderLineItems) {
		return false
	}
	for i := range r.OrderLineItems {
		if !r.OrderLineItems[i].Equal(other.OrderLineItems[i]) {
			return false
		}
	}
	return true
}

// String renders every field for logs and test failures. The format is
// not stable.
func (r OrderRequest) String() string {
	items := make([]string, len(r.OrderLineItems))
	for i, item := range r.OrderLineItems {
		items[i] = item.String()
	}
	return fmt.Sprintf("OrderRequest{CustomerName: %q, CustomerEmail: %q, OrderLineItems: [%s]}",
		r.CustomerName, r.CustomerEmail, strings.Join(items, ", "))
}

// MarshalJSON always writes order_line_items as a list, never null.
func (r OrderRequest) MarshalJSON() ([]byte, error) {
	type wire OrderRequest
	w := wire(r)
	if w.OrderLineItems == nil {
		w.OrderLineItems = []OrderLineItemRequest{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON replaces every field of r. A missing or null
// order_line_items decodes to an empty list, even when r is reused.
func (r *OrderRequest) UnmarshalJSON(data []byte) error {
	type wire OrderRequest
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = OrderRequest(w)
	if r.OrderLineItems == nil {
		r.OrderLineItems = []OrderLineItemRequest{}
	}
	return nil
}

// OrderRequestBuilder sets a subset of fields in any order. Fields left
// unset keep the defaults of NewOrderRequest.
type OrderRequestBuilder struct {
	req OrderRequest
}

// NewOrderRequestBuilder starts from the same defaults as NewOrderRequest.
func NewOrderRequestBuilder() *OrderRequestBuilder {
	return &OrderRequestBuilder{req: NewOrderRequest()}
}

// CustomerName sets the name verbatim.
func (b *OrderRequestBuilder) CustomerName(name string) *OrderRequestBuilder {
	b.req.CustomerName = name
	return b
}

// CustomerEmail sets the email verbatim; it is not checked here.
func (b *OrderRequestBuilder) CustomerEmail(email string) *OrderRequestBuilder {
	b.req.CustomerEmail = email
	return b
}

// OrderLineItems replaces any items added so far.
func (b *OrderRequestBuilder) OrderLineItems(items ...OrderLineItemRequest) *OrderRequestBuilder {
	b.req.OrderLineItems = cloneLineItems(items)
	return b
}

// AddOrderLineItem appends one item after those already set.
func (b *OrderRequestBuilder) AddOrderLineItem(item OrderLineItemRequest) *OrderRequestBuilder {
	b.req.OrderLineItems = append(b.req.OrderLineItems, item)
	return b
}

// Build returns a snapshot; the builder can keep being used afterwards.
func (b *OrderRequestBuilder) Build() OrderRequest {
	return NewOrderRequestWith(b.req.CustomerName, b.req.CustomerEmail, b.req.OrderLineItems...)
}

func cloneLineItems(items []OrderLineItemRequest) []OrderLineItemRequest {
	out := make([]OrderLineItemRequest, len(items))
	copy(out, items)
	return out
}
