// Package e2e 用内存消息总线和 miniredis 串起三个服务，验证完整的订单流程。
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace/noop"

	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/mq/mqtest"
	"orderflow/internal/pkg/redis"
	invapp "orderflow/internal/service/inventory/application"
	invdomain "orderflow/internal/service/inventory/domain"
	invadapter "orderflow/internal/service/inventory/infrastructure/adapter"
	invif "orderflow/internal/service/inventory/interfaces"
	ntfapp "orderflow/internal/service/notification/application"
	ntfdomain "orderflow/internal/service/notification/domain"
	ntfadapter "orderflow/internal/service/notification/infrastructure/adapter"
	ntfif "orderflow/internal/service/notification/interfaces"
	ordapp "orderflow/internal/service/order/application"
	ordadapter "orderflow/internal/service/order/infrastructure/adapter"
	"orderflow/internal/service/order/infrastructure/store"
	ordif "orderflow/internal/service/order/interfaces"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []ntfdomain.Notification
}

func (s *recordingSink) Deliver(_ context.Context, n ntfdomain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSink) all() []ntfdomain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ntfdomain.Notification(nil), s.sent...)
}

type system struct {
	broker      *mqtest.Broker
	router      *mux.Router
	stock       *invdomain.StockLedger
	inventory   mq.Handler
	orderResult mq.Handler
	notifier    mq.Handler
	sink        *recordingSink
	delivered   map[string]int
}

func newSystem(t *testing.T) *system {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(mr.Addr())
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	tracer := noop.NewTracerProvider().Tracer("e2e")
	broker := mqtest.NewBroker()

	// 订单服务
	orderStore := store.NewResilientOrderStore(client, store.Options{KeyPrefix: constants.OrderKeyPrefix})
	orderSvc := ordapp.NewOrderApplicationService(orderStore, ordadapter.NewOrderEventKafkaAdapter(mq.NewDeadLetterPublisher(broker)), tracer)
	router := mux.NewRouter()
	ordif.NewOrderHandler(orderSvc, tracer).RegisterRoutes(router)

	// 库存服务
	now := time.Now()
	stock := invdomain.NewStockLedger(invdomain.SeedStock())
	registry := invdomain.NewDefaultRegistry(stock, invdomain.NewPerishableStrategy(invdomain.SeedExpirations(now), nil))
	invSvc := invapp.NewInventoryCheckService(registry, invadapter.NewResultKafkaAdapter(broker), invadapter.NewRedisResultLedger(client, time.Hour, time.Minute), tracer)

	// 通知服务
	sink := &recordingSink{}
	ntfSvc := ntfapp.NewNotificationService(ntfadapter.NewRedisOrderReader(client), tracer, sink)

	return &system{
		broker:      broker,
		router:      router,
		stock:       stock,
		inventory:   invif.NewOrderCreatedHandler(invSvc).Handle,
		orderResult: ordif.NewInventoryResultHandler(orderSvc).Handle,
		notifier:    ntfif.NewResultHandler(ntfSvc).Handle,
		sink:        sink,
		delivered:   make(map[string]int),
	}
}

// pump 把 topic 上尚未投递的消息交给 handler。
func (s *system) pump(t *testing.T, topic string, handlers ...mq.Handler) {
	t.Helper()
	msgs := s.broker.Messages(topic)
	for _, msg := range msgs[s.delivered[topic]:] {
		for _, h := range handlers {
			if err := h(context.Background(), msg); err != nil {
				t.Fatalf("handle %s message %s: %v", topic, msg.Key, err)
			}
		}
	}
	s.delivered[topic] = len(msgs)
}

func (s *system) settle(t *testing.T) {
	t.Helper()
	s.pump(t, constants.TopicOrderCreated, s.inventory)
	s.pump(t, constants.TopicInventoryCheckResult, s.orderResult, s.notifier)
}

func (s *system) createOrder(t *testing.T, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Status != "PENDING" {
		t.Fatalf("new order status = %s, want PENDING", created.Status)
	}
	return created.OrderID
}

func (s *system) status(t *testing.T, orderID string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID+"/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if resp.Source != "Redis" {
		t.Fatalf("source = %s, want Redis", resp.Source)
	}
	return resp.Status
}

func TestOrderLifecycle(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantStatus  string
		unavailable []string
	}{
		{
			name:        "out of stock standard item is rejected",
			body:        `{"customerName":"Alice","items":[{"productId":"P1002","quantity":1,"category":"STANDARD"}]}`,
			wantStatus:  "REJECTED",
			unavailable: []string{"P1002"},
		},
		{
			name:       "digital item is approved",
			body:       `{"customerName":"Bob","items":[{"productId":"EBOOK-42","quantity":2,"category":"DIGITAL"}]}`,
			wantStatus: "APPROVED",
		},
		{
			name:        "expired perishable item rejects the whole order",
			body:        `{"customerName":"Carol","items":[{"productId":"P1001","quantity":1,"category":"STANDARD"},{"productId":"P1005","quantity":1,"category":"PERISHABLE"}]}`,
			wantStatus:  "REJECTED",
			unavailable: []string{"P1005"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sys := newSystem(t)
			orderID := sys.createOrder(t, tc.body)
			sys.settle(t)

			if got := sys.status(t, orderID); got != tc.wantStatus {
				t.Fatalf("final status = %s, want %s", got, tc.wantStatus)
			}

			sent := sys.sink.all()
			if len(sent) != 1 {
				t.Fatalf("notifications = %d, want 1", len(sent))
			}
			n := sent[0]
			if n.Kind != ntfdomain.KindFull || n.OrderID != orderID || n.Status != tc.wantStatus {
				t.Fatalf("unexpected notification: %+v", n)
			}
			if len(n.UnavailableItems) != len(tc.unavailable) {
				t.Fatalf("unavailable = %v, want %v", n.UnavailableItems, tc.unavailable)
			}
			for i := range tc.unavailable {
				if n.UnavailableItems[i] != tc.unavailable[i] {
					t.Fatalf("unavailable = %v, want %v", n.UnavailableItems, tc.unavailable)
				}
			}
		})
	}
}

func TestRedeliveredSubmissionIsIdempotent(t *testing.T) {
	sys := newSystem(t)
	orderID := sys.createOrder(t, `{"customerName":"Dave","items":[{"productId":"P1005","quantity":3,"category":"STANDARD"}]}`)
	sys.settle(t)

	// 同一个提交事件再投递一次
	submitted := sys.broker.Messages(constants.TopicOrderCreated)
	if len(submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(submitted))
	}
	if err := sys.inventory(context.Background(), submitted[0]); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	sys.pump(t, constants.TopicInventoryCheckResult, sys.orderResult, sys.notifier)

	if got, _ := sys.stock.Stock("P1005"); got != 2 {
		t.Fatalf("stock = %d, want 2 after a single reservation", got)
	}
	if got := sys.status(t, orderID); got != "APPROVED" {
		t.Fatalf("status = %s, want APPROVED", got)
	}
	if n := len(sys.broker.Messages(constants.TopicInventoryCheckResult)); n != 2 {
		t.Fatalf("result events = %d, want 2 (original plus replay)", n)
	}
}
