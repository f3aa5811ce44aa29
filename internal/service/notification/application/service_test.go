package application

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace/noop"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/service/notification/domain"
	"orderflow/internal/service/notification/domain/port"
)

type fakeReader struct {
	orders map[string]*domain.OrderSnapshot
	err    error
}

func (r *fakeReader) GetOrder(_ context.Context, id string) (*domain.OrderSnapshot, error) {
	if r.err != nil {
		return nil, r.err
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "key order:%s", id)
	}
	return o, nil
}

type recordingSink struct {
	mu  sync.Mutex
	got []domain.Notification
	err error
}

func (s *recordingSink) Deliver(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func newTestService(reader *fakeReader, sinks ...*recordingSink) *NotificationService {
	out := make([]port.Sink, 0, len(sinks))
	for _, s := range sinks {
		out = append(out, s)
	}
	return NewNotificationService(reader, noop.NewTracerProvider().Tracer("test"), out...)
}

func TestHandleResultFullNotification(t *testing.T) {
	reader := &fakeReader{orders: map[string]*domain.OrderSnapshot{
		"o-1": {OrderID: "o-1", CustomerName: "Alice", Items: []event.OrderItem{{ProductID: "P1"}}},
	}}
	sink := &recordingSink{}
	svc := newTestService(reader, sink)

	n, err := svc.HandleResult(context.Background(), &event.InventoryCheckResultEvent{OrderID: "o-1", Approved: true})
	if err != nil {
		t.Fatalf("HandleResult: %v", err)
	}
	if n.Kind != domain.KindFull || len(sink.got) != 1 {
		t.Fatalf("kind = %s, delivered = %d", n.Kind, len(sink.got))
	}
}

func TestHandleResultLimitedOnLookupFailure(t *testing.T) {
	cases := map[string]*fakeReader{
		"order missing": {orders: map[string]*domain.OrderSnapshot{}},
		"redis down":    {err: errors.Wrap(errs.ErrTransientStore, "dial tcp: connection refused")},
	}
	for name, reader := range cases {
		t.Run(name, func(t *testing.T) {
			sink := &recordingSink{}
			svc := newTestService(reader, sink)
			n, err := svc.HandleResult(context.Background(), &event.InventoryCheckResultEvent{OrderID: "o-9", CustomerName: "Bob"})
			if err != nil {
				t.Fatalf("lookup failure must not fail the message: %v", err)
			}
			if n.Kind != domain.KindLimited || n.CustomerName != "Bob" {
				t.Fatalf("notification = %+v", n)
			}
			if len(sink.got) != 1 {
				t.Fatalf("delivered = %d, want 1", len(sink.got))
			}
		})
	}
}

func TestHandleResultDeliversToAllSinks(t *testing.T) {
	failing := &recordingSink{err: errors.New("socket closed")}
	ok := &recordingSink{}
	svc := newTestService(&fakeReader{orders: map[string]*domain.OrderSnapshot{}}, failing, ok)

	if _, err := svc.HandleResult(context.Background(), &event.InventoryCheckResultEvent{OrderID: "o-1"}); err != nil {
		t.Fatalf("sink failure must not fail the message: %v", err)
	}
	if len(failing.got) != 1 || len(ok.got) != 1 {
		t.Fatalf("every sink must be attempted: failing=%d ok=%d", len(failing.got), len(ok.got))
	}
}

func TestHandleResultRejectsMissingOrderID(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(&fakeReader{}, sink)
	for _, r := range []*event.InventoryCheckResultEvent{nil, {OrderID: " "}} {
		if _, err := svc.HandleResult(context.Background(), r); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
	if len(sink.got) != 0 {
		t.Fatalf("invalid results must not notify")
	}
}
