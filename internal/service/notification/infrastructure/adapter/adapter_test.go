package adapter

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace/noop"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/notification/domain"
)

func TestRedisOrderReader(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(mr.Addr())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	// 订单服务写入的快照包含更多字段，读取端只解析需要的部分
	raw := `{"orderId":"o-1","customerName":"Alice","items":[{"productId":"P1","quantity":1,"category":"DIGITAL"}],"requestId":"req-1","status":"PENDING","createdAt":"2026-03-01T12:00:00Z","updatedAt":"2026-03-01T12:00:00Z"}`
	if err := mr.Set("order:o-1", raw); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := NewRedisOrderReader(client)
	order, err := r.GetOrder(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.CustomerName != "Alice" || len(order.Items) != 1 || order.RequestID != "req-1" {
		t.Fatalf("order = %+v", order)
	}
	if !order.CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("createdAt = %v", order.CreatedAt)
	}

	if _, err := r.GetOrder(context.Background(), "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)
	n := domain.NewNotification(&event.InventoryCheckResultEvent{OrderID: "o-1", Approved: true}, nil, time.Now())
	if err := sink.Deliver(context.Background(), n); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !strings.Contains(buf.String(), "Order ID: o-1") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestOrderServiceReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/orders/o-2" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"orderId":"o-2","customerName":"Bob","items":[],"status":"APPROVED"}`))
	}))
	defer srv.Close()

	r := NewOrderServiceReader(httpclient.NewClient(noop.NewTracerProvider().Tracer("test")), srv.URL+"/", time.Second)
	order, err := r.GetOrder(context.Background(), "o-2")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.CustomerName != "Bob" {
		t.Fatalf("order = %+v", order)
	}
	if _, err := r.GetOrder(context.Background(), "o-3"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type stubReader struct {
	order *domain.OrderSnapshot
	err   error
	calls int
}

func (s *stubReader) GetOrder(context.Context, string) (*domain.OrderSnapshot, error) {
	s.calls++
	return s.order, s.err
}

func TestFallbackOrderReader(t *testing.T) {
	down := &stubReader{err: errors.Wrap(errs.ErrTransientStore, "redis down")}
	backup := &stubReader{order: &domain.OrderSnapshot{OrderID: "o-1", CustomerName: "Alice"}}
	unused := &stubReader{err: errors.New("should not be called")}

	order, err := NewFallbackOrderReader(down, backup, unused).GetOrder(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.CustomerName != "Alice" || down.calls != 1 || unused.calls != 0 {
		t.Fatalf("order = %+v, calls = %d/%d", order, down.calls, unused.calls)
	}

	missing := &stubReader{err: errors.Wrap(errs.ErrNotFound, "o-1")}
	if _, err := NewFallbackOrderReader(down, missing).GetOrder(context.Background(), "o-1"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected last error, got %v", err)
	}
	if _, err := NewFallbackOrderReader().GetOrder(context.Background(), "o-1"); err == nil {
		t.Fatalf("expected error with no readers")
	}
}
