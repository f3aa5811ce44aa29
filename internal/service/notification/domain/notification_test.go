package domain

import (
	"strings"
	"testing"
	"time"

	"orderflow/internal/pkg/event"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewNotificationFull(t *testing.T) {
	result := &event.InventoryCheckResultEvent{OrderID: "o-1", Approved: true, UnavailableItems: []string{}}
	order := &OrderSnapshot{
		OrderID:      "o-1",
		CustomerName: "Alice",
		Items:        []event.OrderItem{{ProductID: "P1"}, {ProductID: "P2"}},
		RequestID:    "req-1",
		CreatedAt:    now.Add(-time.Minute),
	}
	n := NewNotification(result, order, now)
	if n.Kind != KindFull || n.Status != "APPROVED" || n.ItemsCount != 2 || n.RequestID != "req-1" {
		t.Fatalf("notification = %+v", n)
	}
	// 结果事件里没有客户名时取订单中的客户名
	if n.CustomerName != "Alice" {
		t.Fatalf("customer = %q", n.CustomerName)
	}
	out := n.Render()
	for _, want := range []string{"ORDER NOTIFICATION", "Order ID: o-1", "Items Count: 2", "Request ID: req-1", "has been approved"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestNewNotificationLimited(t *testing.T) {
	result := &event.InventoryCheckResultEvent{
		OrderID:          "o-2",
		CustomerName:     "Bob",
		UnavailableItems: []string{"P1002"},
		ErrorMessage:     "Order has no items",
	}
	n := NewNotification(result, nil, now)
	if n.Kind != KindLimited || n.Status != "REJECTED" || n.CustomerName != "Bob" {
		t.Fatalf("notification = %+v", n)
	}
	out := n.Render()
	for _, want := range []string{"LIMITED INFO", "could not be retrieved", "REJECTION DETAILS:", "Error: Order has no items", "  - P1002"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Items Count") {
		t.Fatalf("limited notification must not render order details")
	}
}

func TestNewNotificationUnknownCustomer(t *testing.T) {
	n := NewNotification(&event.InventoryCheckResultEvent{OrderID: "o-3"}, nil, now)
	if n.CustomerName != "Unknown" {
		t.Fatalf("customer = %q, want Unknown", n.CustomerName)
	}
	if n.UnavailableItems == nil {
		t.Fatalf("unavailable items must not be nil")
	}
}
