package gateway

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
)

func TestNewOrderUpdateWireStampsVersion(t *testing.T) {
	w := newOrderUpdateWire(adapter.OrderUpdateEvent{
		ClientID:    "cid-1",
		ExchangeID:  "exch-1",
		Status:      adapter.StatusNew,
		TimestampMs: 1000,
	})
	if w.Version != protocolVersion {
		t.Fatalf("expected version %d, got %d", protocolVersion, w.Version)
	}
	if w.ClientID != "cid-1" || w.ExchangeID != "exch-1" {
		t.Fatalf("unexpected wire fields: %+v", w)
	}
}

func TestRejectionWireShapesReasonAndStatus(t *testing.T) {
	w := rejectionWire("cid-2", "invalid_params: missing symbol", 42)
	if w.Status != string(adapter.StatusRejected) {
		t.Fatalf("expected rejected status, got %q", w.Status)
	}
	if w.Reason == "" {
		t.Fatal("expected a reason on a rejection report")
	}
	if w.TimestampMs != 42 {
		t.Fatalf("expected timestamp 42, got %d", w.TimestampMs)
	}
}

func TestAcceptanceWireDefaultsStatusWhenAdapterOmitsIt(t *testing.T) {
	w := acceptanceWire(adapter.OrderResponse{Success: true, ClientID: "cid-3"}, 7)
	if w.Status != string(adapter.StatusAccepted) {
		t.Fatalf("expected accepted status default, got %q", w.Status)
	}
}

func TestNewFillWireRendersDecimalsAsStrings(t *testing.T) {
	w := newFillWire(adapter.FillEvent{
		ClientID:    "cid-4",
		ExecutionID: "exec-1",
		Symbol:      "BTC",
		Side:        adapter.SideBuy,
		Price:       decimal.NewFromFloat(60000.5),
		Quantity:    decimal.NewFromFloat(1.25),
		Fee:         decimal.NewFromFloat(0.01),
		Liquidity:   adapter.LiquidityTaker,
		TimestampMs: 99,
	})
	raw, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["price"] != "60000.5" {
		t.Fatalf("expected price encoded as decimal string, got %v", decoded["price"])
	}
	if decoded["version"] != float64(protocolVersion) {
		t.Fatalf("expected version field, got %v", decoded["version"])
	}
}
