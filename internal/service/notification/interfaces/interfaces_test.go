package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace/noop"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/service/notification/application"
	"orderflow/internal/service/notification/domain"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readNotification(t *testing.T, conn *websocket.Conn) domain.Notification {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return n
}

func TestHubBroadcast(t *testing.T) {
	hub, srv := startHub(t)
	all := dial(t, srv, "")
	alice := dial(t, srv, "?customerName=Alice")
	bob := dial(t, srv, "?customerName=Bob")
	waitForClients(t, hub, 3)

	n := domain.NewNotification(&event.InventoryCheckResultEvent{OrderID: "o-1", CustomerName: "Alice", Approved: true}, nil, time.Now())
	if err := hub.Deliver(context.Background(), n); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"all": all, "alice": alice} {
		if got := readNotification(t, conn); got.OrderID != "o-1" || got.Status != "APPROVED" {
			t.Fatalf("%s received %+v", name, got)
		}
	}

	// Bob 只订阅了自己的通知
	_ = bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Fatalf("bob must not receive Alice's notification")
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestResultHandler(t *testing.T) {
	hub := NewHub()
	svc := application.NewNotificationService(missingOrders{}, noop.NewTracerProvider().Tracer("test"), hub)
	h := NewResultHandler(svc)

	payload, _ := json.Marshal(event.InventoryCheckResultEvent{OrderID: "o-1", CustomerName: "Alice"})
	if err := h.Handle(context.Background(), kafka.Message{Value: payload}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := h.Handle(context.Background(), kafka.Message{Value: []byte("{")}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type missingOrders struct{}

func (missingOrders) GetOrder(context.Context, string) (*domain.OrderSnapshot, error) {
	return nil, errs.ErrNotFound
}
