package tracker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
)

func newOrder(clientID string, amount decimal.Decimal) *adapter.InFlightOrder {
	return &adapter.InFlightOrder{
		ClientID: clientID,
		Symbol:   "BTCUSDT",
		Side:     adapter.SideBuy,
		Type:     adapter.OrderTypeLimit,
		Amount:   amount,
	}
}

func TestStartTrackingThenOpenThenFill(t *testing.T) {
	var completed *adapter.InFlightOrder
	tr := New(false, EventHandlers{
		OnOrderCompleted: func(o *adapter.InFlightOrder) { completed = o },
	})

	order := newOrder("c1", decimal.NewFromInt(10))
	tr.StartTracking(order)

	got, ok := tr.GetOrder("c1")
	if !ok || got.State != adapter.StatePendingCreate {
		t.Fatalf("expected pending_create, got %+v ok=%v", got, ok)
	}

	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c1", ExchangeID: "EX1", Status: adapter.StatusNew})
	got, _ = tr.GetOrder("c1")
	if got.State != adapter.StateOpen || got.ExchangeID != "EX1" {
		t.Fatalf("expected open with exchange id, got %+v", got)
	}

	tr.ProcessTradeUpdate(adapter.FillEvent{ClientID: "c1", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(10)})
	got, ok = tr.GetOrder("c1")
	if !ok || got.State != adapter.StateFilled {
		t.Fatalf("expected filled order retained without autoCleanup, got %+v ok=%v", got, ok)
	}
	if completed == nil || completed.State != adapter.StateFilled {
		t.Fatalf("expected OnOrderCompleted with filled state, got %+v", completed)
	}
	if !completed.AvgFillPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected avg fill price 100, got %s", completed.AvgFillPrice)
	}
}

func TestPartialFillThenFullFillVWAP(t *testing.T) {
	tr := New(false, EventHandlers{})
	order := newOrder("c2", decimal.NewFromInt(10))
	tr.StartTracking(order)
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c2", Status: adapter.StatusNew})

	tr.ProcessTradeUpdate(adapter.FillEvent{ClientID: "c2", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(4)})
	got, _ := tr.GetOrder("c2")
	if got.State != adapter.StatePartiallyFilled {
		t.Fatalf("expected partially_filled, got %s", got.State)
	}

	tr.ProcessTradeUpdate(adapter.FillEvent{ClientID: "c2", Price: decimal.NewFromInt(110), Quantity: decimal.NewFromInt(6)})
	got, _ = tr.GetOrder("c2")
	if got.State != adapter.StateFilled {
		t.Fatalf("expected filled, got %s", got.State)
	}
	// VWAP = (100*4 + 110*6) / 10 = 106
	if !got.AvgFillPrice.Equal(decimal.NewFromInt(106)) {
		t.Fatalf("expected VWAP 106, got %s", got.AvgFillPrice)
	}
}

func TestTerminalStateIsSink(t *testing.T) {
	tr := New(false, EventHandlers{})
	order := newOrder("c3", decimal.NewFromInt(5))
	tr.StartTracking(order)
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c3", Status: adapter.StatusNew})
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c3", Status: adapter.StatusCanceled})

	before, _ := tr.GetOrder("c3")
	// A further update must not change anything.
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c3", Status: adapter.StatusNew})
	after, _ := tr.GetOrder("c3")
	if before.State != after.State || after.State != adapter.StateCanceled {
		t.Fatalf("expected terminal state to be a sink, before=%s after=%s", before.State, after.State)
	}
}

func TestProcessOrderNotFoundForceCancelsAfterThreeMisses(t *testing.T) {
	tr := New(false, EventHandlers{})
	order := newOrder("c4", decimal.NewFromInt(5))
	tr.StartTracking(order)
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c4", Status: adapter.StatusNew})

	tr.ProcessOrderNotFound("c4")
	tr.ProcessOrderNotFound("c4")
	got, _ := tr.GetOrder("c4")
	if got.State != adapter.StateOpen {
		t.Fatalf("expected still open after 2 misses, got %s", got.State)
	}

	tr.ProcessOrderNotFound("c4")
	got, _ = tr.GetOrder("c4")
	if got.State != adapter.StateCanceled {
		t.Fatalf("expected canceled after 3 misses, got %s", got.State)
	}
}

func TestStartTrackingTwiceWithSameClientIDPanics(t *testing.T) {
	tr := New(false, EventHandlers{})
	order := newOrder("c5", decimal.NewFromInt(1))
	tr.StartTracking(order)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate start_tracking")
		}
	}()
	tr.StartTracking(newOrder("c5", decimal.NewFromInt(1)))
}

func TestAllFillableOrders(t *testing.T) {
	tr := New(false, EventHandlers{})
	o1 := newOrder("f1", decimal.NewFromInt(1))
	tr.StartTracking(o1)
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "f1", Status: adapter.StatusNew})

	o2 := newOrder("f2", decimal.NewFromInt(1))
	tr.StartTracking(o2)

	fillable := tr.AllFillableOrders()
	if len(fillable) != 1 || fillable[0].ClientID != "f1" {
		t.Fatalf("expected only f1 fillable, got %+v", fillable)
	}
}

func TestAutoCleanupRemovesTerminalOrders(t *testing.T) {
	tr := New(true, EventHandlers{})
	order := newOrder("c6", decimal.NewFromInt(1))
	tr.StartTracking(order)
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c6", Status: adapter.StatusNew})
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c6", Status: adapter.StatusCanceled})

	if _, ok := tr.GetOrder("c6"); ok {
		t.Fatal("expected order removed after terminal state with autoCleanup enabled")
	}
	if tr.Count() != 0 {
		t.Fatalf("expected count 0, got %d", tr.Count())
	}
}

func TestLastUpdatedAtAdvances(t *testing.T) {
	tr := New(false, EventHandlers{})
	order := newOrder("c7", decimal.NewFromInt(1))
	tr.StartTracking(order)
	first, _ := tr.GetOrder("c7")
	time.Sleep(time.Millisecond)
	tr.ProcessOrderUpdate(adapter.OrderUpdateEvent{ClientID: "c7", Status: adapter.StatusNew})
	second, _ := tr.GetOrder("c7")
	if !second.LastUpdatedAt.After(first.LastUpdatedAt) {
		t.Fatal("expected last_updated_at to advance")
	}
}
