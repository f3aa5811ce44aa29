// Package domain 定义了订单通知的模型与渲染规则。
package domain

import (
	"fmt"
	"strings"
	"time"

	"orderflow/internal/pkg/event"
)

// Kind 通知类型：能查到订单时为完整通知，否则只根据结果事件生成受限通知。
type Kind string

const (
	KindFull    Kind = "full"
	KindLimited Kind = "limited"
)

const unknownCustomer = "Unknown"

// OrderSnapshot 是通知服务从 KV 存储中读取的订单视图，只包含渲染需要的字段。
type OrderSnapshot struct {
	OrderID      string            `json:"orderId"`
	CustomerName string            `json:"customerName"`
	Items        []event.OrderItem `json:"items"`
	RequestID    string            `json:"requestId,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Notification 是发送给所有通知渠道的消息。
type Notification struct {
	Kind             Kind       `json:"kind"`
	OrderID          string     `json:"orderId"`
	CustomerName     string     `json:"customerName"`
	Status           string     `json:"status"`
	Approved         bool       `json:"approved"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	UnavailableItems []string   `json:"unavailableItems"`
	ItemsCount       int        `json:"itemsCount,omitempty"`
	RequestID        string     `json:"requestId,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// NewNotification order 为空时生成受限通知，结果事件本身足以渲染。
func NewNotification(result *event.InventoryCheckResultEvent, order *OrderSnapshot, now time.Time) Notification {
	n := Notification{
		Kind:             KindLimited,
		OrderID:          result.OrderID,
		CustomerName:     result.CustomerName,
		Status:           "REJECTED",
		Approved:         result.Approved,
		ErrorMessage:     result.ErrorMessage,
		UnavailableItems: append([]string{}, result.UnavailableItems...),
		Timestamp:        now,
	}
	if result.Approved {
		n.Status = "APPROVED"
	}
	if order != nil {
		n.Kind = KindFull
		n.ItemsCount = len(order.Items)
		n.RequestID = order.RequestID
		created := order.CreatedAt
		n.CreatedAt = &created
		if strings.TrimSpace(n.CustomerName) == "" {
			n.CustomerName = order.CustomerName
		}
	}
	if strings.TrimSpace(n.CustomerName) == "" {
		n.CustomerName = unknownCustomer
	}
	return n
}

// Render 渲染控制台输出的文本。
func (n Notification) Render() string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	if n.Kind == KindLimited {
		fmt.Fprintln(&b, "ORDER NOTIFICATION (LIMITED INFO)")
	} else {
		fmt.Fprintln(&b, "ORDER NOTIFICATION")
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Order ID: %s\n", n.OrderID)
	fmt.Fprintf(&b, "Customer: %s\n", n.CustomerName)
	fmt.Fprintf(&b, "Status: %s\n", n.Status)
	fmt.Fprintf(&b, "Timestamp: %s\n", n.Timestamp.Format(time.RFC3339))
	if n.Kind == KindFull {
		fmt.Fprintf(&b, "Items Count: %d\n", n.ItemsCount)
		fmt.Fprintf(&b, "Request ID: %s\n", n.RequestID)
		if n.CreatedAt != nil {
			fmt.Fprintf(&b, "Created At: %s\n", n.CreatedAt.Format(time.RFC3339))
		}
	} else {
		fmt.Fprintln(&b, "Note: Order details could not be retrieved")
	}
	if n.Approved {
		fmt.Fprintln(&b, "All items are available and the order has been approved!")
	} else {
		fmt.Fprintln(&b, "REJECTION DETAILS:")
		if n.ErrorMessage != "" {
			fmt.Fprintf(&b, "Error: %s\n", n.ErrorMessage)
		}
		if len(n.UnavailableItems) > 0 {
			fmt.Fprintln(&b, "Unavailable Items:")
			for _, item := range n.UnavailableItems {
				fmt.Fprintf(&b, "  - %s\n", item)
			}
		}
	}
	fmt.Fprintln(&b, rule)
	return b.String()
}
