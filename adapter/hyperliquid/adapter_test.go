package hyperliquid

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/internal/assets"
)

func tif(v adapter.TimeInForce) *adapter.TimeInForce { return &v }
func str(v string) *string                           { return &v }

func TestIsDeterministicClassification(t *testing.T) {
	cases := []struct {
		name string
		req  adapter.OrderRequest
		want bool
	}{
		{"market order", adapter.OrderRequest{Type: adapter.OrderTypeMarket}, true},
		{"stop order", adapter.OrderRequest{Type: adapter.OrderTypeStop}, true},
		{"stop-limit order", adapter.OrderRequest{Type: adapter.OrderTypeStopLimit}, true},
		{"IOC limit", adapter.OrderRequest{Type: adapter.OrderTypeLimit, TIF: tif(adapter.TIFIOC)}, true},
		{"FOK limit", adapter.OrderRequest{Type: adapter.OrderTypeLimit, TIF: tif(adapter.TIFFOK)}, true},
		{"GTC limit", adapter.OrderRequest{Type: adapter.OrderTypeLimit, TIF: tif(adapter.TIFGTC)}, false},
		{"post-only limit", adapter.OrderRequest{Type: adapter.OrderTypeLimit, TIF: tif(adapter.TIFPostOnly)}, false},
		{"no tif limit", adapter.OrderRequest{Type: adapter.OrderTypeLimit}, false},
	}
	for _, c := range cases {
		if got := isDeterministic(c.req); got != c.want {
			t.Errorf("%s: isDeterministic = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsPostOnly(t *testing.T) {
	if isPostOnly(adapter.OrderRequest{TIF: tif(adapter.TIFPostOnly)}) != true {
		t.Fatal("expected POST_ONLY tif to be post-only")
	}
	if isPostOnly(adapter.OrderRequest{TIF: tif(adapter.TIFGTC)}) != false {
		t.Fatal("expected GTC tif not to be post-only")
	}
	if isPostOnly(adapter.OrderRequest{}) != false {
		t.Fatal("expected nil tif not to be post-only")
	}
}

func TestTifWireHL(t *testing.T) {
	if got := tifWireHL(nil, true); got != "Alo" {
		t.Fatalf("expected post-only to always map to Alo regardless of tif, got %q", got)
	}
	if got := tifWireHL(nil, false); got != "Gtc" {
		t.Fatalf("expected nil tif to default to Gtc, got %q", got)
	}
	if got := tifWireHL(tif(adapter.TIFIOC), false); got != "Ioc" {
		t.Fatalf("expected IOC to map to Ioc, got %q", got)
	}
	if got := tifWireHL(tif(adapter.TIFFOK), false); got != "Ioc" {
		t.Fatalf("expected FOK to map to Ioc, got %q", got)
	}
	if got := tifWireHL(tif(adapter.TIFPostOnly), false); got != "Alo" {
		t.Fatalf("expected POST_ONLY to map to Alo, got %q", got)
	}
	if got := tifWireHL(tif(adapter.TIFGTC), false); got != "Gtc" {
		t.Fatalf("expected GTC to map to Gtc, got %q", got)
	}
}

func TestTpslFromExtra(t *testing.T) {
	cases := []struct {
		filter string
		want   string
	}{
		{"takeProfit", "tp"},
		{"tpLimit", "tp"},
		{"stopLoss", "sl"},
		{"", "sl"},
	}
	for _, c := range cases {
		req := adapter.OrderRequest{Extra: map[string]string{"orderFilter": c.filter}}
		if got := tpslFromExtra(req); got != c.want {
			t.Errorf("tpslFromExtra(%q) = %q, want %q", c.filter, got, c.want)
		}
	}
}

func TestOrderRoleFromExtra(t *testing.T) {
	if got := orderRoleFromExtra(adapter.OrderRequest{Type: adapter.OrderTypeLimit}); got != orderRolePrimary {
		t.Fatalf("expected limit order to be primary role, got %q", got)
	}
	tp := adapter.OrderRequest{Type: adapter.OrderTypeStop, Extra: map[string]string{"orderFilter": "takeProfit"}}
	if got := orderRoleFromExtra(tp); got != orderRoleTakeProfit {
		t.Fatalf("expected take-profit role, got %q", got)
	}
	sl := adapter.OrderRequest{Type: adapter.OrderTypeStopLimit, Extra: map[string]string{"orderFilter": "stopLoss"}}
	if got := orderRoleFromExtra(sl); got != orderRoleStopLoss {
		t.Fatalf("expected stop-loss role, got %q", got)
	}
}

func TestNumericSideOf(t *testing.T) {
	if numericSideOf(adapter.SideBuy) != 0 {
		t.Fatal("expected SideBuy to map to numeric.SideBuy")
	}
	if numericSideOf(adapter.SideSell) == numericSideOf(adapter.SideBuy) {
		t.Fatal("expected buy and sell to map to distinct numeric sides")
	}
}

func TestApplySlippageWidensAgainstTheTaker(t *testing.T) {
	price := decimal.NewFromInt(100)
	buy := applySlippage(price, adapter.SideBuy, 10) // 10 bps = 0.1%
	sell := applySlippage(price, adapter.SideSell, 10)

	if !buy.GreaterThan(price) {
		t.Fatalf("expected buy slippage to raise price above %s, got %s", price, buy)
	}
	if !sell.LessThan(price) {
		t.Fatalf("expected sell slippage to lower price below %s, got %s", price, sell)
	}
}

func TestChainID(t *testing.T) {
	if chainID(false) == chainID(true) {
		t.Fatal("expected distinct chain ids for mainnet vs testnet")
	}
}

func TestBatchCadenceDefaultsWhenEnvUnset(t *testing.T) {
	os.Unsetenv("LATENTSPEED_HL_BATCH_CADENCE_MS")
	if got := batchCadence(); got.Milliseconds() != defaultBatchCadenceMs {
		t.Fatalf("expected default batch cadence %dms, got %s", defaultBatchCadenceMs, got)
	}
}

func TestBatchCadenceHonorsEnvOverride(t *testing.T) {
	os.Setenv("LATENTSPEED_HL_BATCH_CADENCE_MS", "250")
	defer os.Unsetenv("LATENTSPEED_HL_BATCH_CADENCE_MS")
	if got := batchCadence(); got.Milliseconds() != 250 {
		t.Fatalf("expected env-overridden batch cadence 250ms, got %s", got)
	}
}

func TestBuildOrderWireLimitOrder(t *testing.T) {
	a := New()
	asset := assets.Asset{ID: 1, Name: "ETH", SzDecimals: 4}
	req := adapter.OrderRequest{
		ClientID: "order-1",
		Symbol:   "ETH",
		Side:     adapter.SideBuy,
		Type:     adapter.OrderTypeLimit,
		Quantity: "1.23456",
		Price:    str("2500.1234"),
		TIF:      tif(adapter.TIFGTC),
	}

	wire, err := a.buildOrderWire(req, asset, "0xabcdef0123456789abcdef0123456789")
	if err != nil {
		t.Fatalf("buildOrderWire: %v", err)
	}
	if wire.Asset != 1 || !wire.IsBuy {
		t.Fatalf("unexpected wire asset/side: %+v", wire)
	}
	if wire.Type.Limit == nil || wire.Type.Limit.Tif != "Gtc" {
		t.Fatalf("expected Gtc limit tif, got %+v", wire.Type)
	}
	if wire.Cloid != "0xabcdef0123456789abcdef0123456789" {
		t.Fatalf("expected cloid carried through, got %q", wire.Cloid)
	}
}

func TestBuildOrderWireLimitOrderRequiresPrice(t *testing.T) {
	a := New()
	asset := assets.Asset{ID: 1, Name: "ETH", SzDecimals: 4}
	req := adapter.OrderRequest{ClientID: "order-1", Symbol: "ETH", Side: adapter.SideBuy, Type: adapter.OrderTypeLimit, Quantity: "1"}

	if _, err := a.buildOrderWire(req, asset, "cloid"); err == nil {
		t.Fatal("expected error for limit order missing a price")
	}
}

func TestBuildOrderWireMarketOrderRequiresReferencePrice(t *testing.T) {
	a := New()
	asset := assets.Asset{ID: 1, Name: "ETH", SzDecimals: 4}
	req := adapter.OrderRequest{ClientID: "order-1", Symbol: "ETH", Side: adapter.SideBuy, Type: adapter.OrderTypeMarket, Quantity: "1"}

	if _, err := a.buildOrderWire(req, asset, "cloid"); err == nil {
		t.Fatal("expected market order to be rejected with no observed fill price")
	}
}

func TestBuildOrderWireMarketOrderUsesLastFillPrice(t *testing.T) {
	a := New()
	a.recordLastFillPrice("ETH", decimal.NewFromInt(2500))
	asset := assets.Asset{ID: 1, Name: "ETH", SzDecimals: 4}
	req := adapter.OrderRequest{ClientID: "order-1", Symbol: "ETH", Side: adapter.SideBuy, Type: adapter.OrderTypeMarket, Quantity: "1"}

	wire, err := a.buildOrderWire(req, asset, "cloid")
	if err != nil {
		t.Fatalf("buildOrderWire: %v", err)
	}
	if wire.Type.Limit == nil || wire.Type.Limit.Tif != "Ioc" {
		t.Fatalf("expected synthesized market order to carry Ioc tif, got %+v", wire.Type)
	}
	if wire.Price == "" {
		t.Fatal("expected a synthesized limit price for the market order")
	}
}

func TestBuildOrderWireStopOrderRequiresTriggerPrice(t *testing.T) {
	a := New()
	asset := assets.Asset{ID: 1, Name: "ETH", SzDecimals: 4}
	req := adapter.OrderRequest{ClientID: "order-1", Symbol: "ETH", Side: adapter.SideSell, Type: adapter.OrderTypeStop, Quantity: "1"}

	if _, err := a.buildOrderWire(req, asset, "cloid"); err == nil {
		t.Fatal("expected error for stop order missing extras.triggerPrice")
	}
}

func TestBuildOrderWireStopLimitOrderUsesCallerPrice(t *testing.T) {
	a := New()
	asset := assets.Asset{ID: 1, Name: "ETH", SzDecimals: 4}
	req := adapter.OrderRequest{
		ClientID: "order-1",
		Symbol:   "ETH",
		Side:     adapter.SideSell,
		Type:     adapter.OrderTypeStopLimit,
		Quantity: "1",
		Price:    str("2400"),
		Extra:    map[string]string{"triggerPrice": "2450", "orderFilter": "stopLoss"},
	}

	wire, err := a.buildOrderWire(req, asset, "cloid")
	if err != nil {
		t.Fatalf("buildOrderWire: %v", err)
	}
	if wire.Type.Trigger == nil {
		t.Fatal("expected trigger wire populated for stop-limit order")
	}
	if wire.Type.Trigger.IsMarket {
		t.Fatal("expected stop-limit order to have isMarket=false")
	}
	if wire.Type.Trigger.Tpsl != "sl" {
		t.Fatalf("expected sl tpsl for stopLoss filter, got %q", wire.Type.Trigger.Tpsl)
	}
	if wire.Price != "2400" {
		t.Fatalf("expected caller-supplied limit price carried through, got %q", wire.Price)
	}
}

func TestBuildOrderWireStopMarketFallsBackToTriggerPriceWithNoFillObserved(t *testing.T) {
	a := New()
	asset := assets.Asset{ID: 1, Name: "ETH", SzDecimals: 4}
	req := adapter.OrderRequest{
		ClientID: "order-1",
		Symbol:   "ETH",
		Side:     adapter.SideSell,
		Type:     adapter.OrderTypeStop,
		Quantity: "1",
		Extra:    map[string]string{"triggerPrice": "2450", "orderFilter": "takeProfit"},
	}

	wire, err := a.buildOrderWire(req, asset, "cloid")
	if err != nil {
		t.Fatalf("buildOrderWire: %v", err)
	}
	if !wire.Type.Trigger.IsMarket {
		t.Fatal("expected stop order to have isMarket=true")
	}
	if wire.Type.Trigger.Tpsl != "tp" {
		t.Fatalf("expected tp tpsl for takeProfit filter, got %q", wire.Type.Trigger.Tpsl)
	}
	if wire.Price != wire.Type.Trigger.TriggerPx {
		t.Fatalf("expected best-effort limit price to fall back to trigger price, got price=%q triggerPx=%q", wire.Price, wire.Type.Trigger.TriggerPx)
	}
}
