package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry(NewStockLedger(SeedStock()), NewPerishableStrategy(SeedExpirations(fixedNow), clock))
	for _, c := range event.Categories() {
		if _, err := r.Resolve(c); err != nil {
			t.Fatalf("Resolve(%s): %v", c, err)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	_, err := r.Resolve(event.Category("GADGET"))
	if !errors.Is(err, errs.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestDigitalStrategy(t *testing.T) {
	s := DigitalStrategy()
	cases := []struct {
		name string
		item event.OrderItem
		want bool
	}{
		{"positive quantity", event.OrderItem{ProductID: "E-BOOK-1", Quantity: 2}, true},
		{"large quantity", event.OrderItem{ProductID: "E-BOOK-1", Quantity: 1_000_000}, true},
		{"zero quantity", event.OrderItem{ProductID: "E-BOOK-1", Quantity: 0}, false},
		{"negative quantity", event.OrderItem{ProductID: "E-BOOK-1", Quantity: -1}, false},
		{"blank product", event.OrderItem{ProductID: " ", Quantity: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.IsAvailable(tc.item); got != tc.want {
				t.Fatalf("IsAvailable(%+v) = %v, want %v", tc.item, got, tc.want)
			}
		})
	}
}

func TestPerishableStrategy(t *testing.T) {
	s := NewPerishableStrategy(SeedExpirations(fixedNow), clock)
	cases := []struct {
		productID string
		want      bool
	}{
		{"P1001", true},  // +30 天
		{"P1002", false}, // 已过期
		{"P1003", true},
		{"P1005", false},
		{"P9999", false}, // 未知商品
	}
	for _, tc := range cases {
		t.Run(tc.productID, func(t *testing.T) {
			if got := s.IsAvailable(event.OrderItem{ProductID: tc.productID, Quantity: 1}); got != tc.want {
				t.Fatalf("IsAvailable(%s) = %v, want %v", tc.productID, got, tc.want)
			}
		})
	}

	// 恰好等于当前时间视为过期
	s.SetExpiration("P2000", fixedNow)
	if s.IsAvailable(event.OrderItem{ProductID: "P2000", Quantity: 1}) {
		t.Fatalf("expiration equal to now must be unavailable")
	}
}

func TestStandardStrategyDecrements(t *testing.T) {
	ledger := NewStockLedger(SeedStock())
	s := NewStandardStrategy(ledger)

	if !s.IsAvailable(event.OrderItem{ProductID: "P1005", Quantity: 3}) {
		t.Fatalf("expected P1005 x3 to be available")
	}
	if got, _ := ledger.Stock("P1005"); got != 2 {
		t.Fatalf("stock after reserve = %d, want 2", got)
	}

	if s.IsAvailable(event.OrderItem{ProductID: "P1005", Quantity: 3}) {
		t.Fatalf("expected P1005 x3 to be unavailable with 2 left")
	}
	if got, _ := ledger.Stock("P1005"); got != 2 {
		t.Fatalf("insufficient stock must leave stock unchanged, got %d", got)
	}

	if s.IsAvailable(event.OrderItem{ProductID: "P1002", Quantity: 1}) {
		t.Fatalf("P1002 has zero stock")
	}
	if s.IsAvailable(event.OrderItem{ProductID: "P4040", Quantity: 1}) {
		t.Fatalf("unknown product must be unavailable")
	}
	if s.IsAvailable(event.OrderItem{ProductID: "P1001", Quantity: 0}) {
		t.Fatalf("zero quantity must be unavailable")
	}
	if got, _ := ledger.Stock("P1001"); got != 100 {
		t.Fatalf("invalid item must not touch stock, got %d", got)
	}
}

func TestStockLedgerConcurrentReservations(t *testing.T) {
	ledger := NewStockLedger(map[string]int{"P1": 50})
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ledger.TryReserve("P1", 1) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if granted != 50 {
		t.Fatalf("granted = %d, want 50", granted)
	}
	if got, _ := ledger.Stock("P1"); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}
