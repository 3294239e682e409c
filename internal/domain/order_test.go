package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderStatus
		wantErr bool
	}{
		{in: "pending", want: OrderStatusPending},
		{in: "confirmed", want: OrderStatusConfirmed},
		{in: "shipped", want: OrderStatusShipped},
		{in: "cancelled", want: OrderStatusCancelled},
		{in: "CONFIRMED", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderStatus(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOrderLineItem_Subtotal(t *testing.T) {
	item := OrderLineItem{SkuCode: "iphone_13", Price: decimal.RequireFromString("19.99"), Quantity: 3}

	if !item.Subtotal().Equal(decimal.RequireFromString("59.97")) {
		t.Errorf("expected 59.97, got %s", item.Subtotal())
	}
}
