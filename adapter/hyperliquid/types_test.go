package hyperliquid

import (
	"testing"

	"github.com/latentspeed/gateway/adapter"
)

func TestNormalizeOrderStatus(t *testing.T) {
	cases := []struct {
		raw        string
		wantStatus adapter.OrderStatus
	}{
		{"open", adapter.StatusNew},
		{"filled", adapter.StatusFilled},
		{"canceled", adapter.StatusCanceled},
		{"cancelled", adapter.StatusCanceled},
		{"marginCanceled", adapter.StatusCanceled},
		{"scheduledCancel", adapter.StatusCanceled},
		{"triggered", adapter.StatusAccepted},
		{"rejected", adapter.StatusRejected},
		{"marginRejected", adapter.StatusRejected},
	}
	for _, c := range cases {
		status, _ := normalizeOrderStatus(c.raw)
		if status != c.wantStatus {
			t.Errorf("normalizeOrderStatus(%q) = %q, want %q", c.raw, status, c.wantStatus)
		}
	}
}

func TestNormalizeOrderStatusUnknownPassesThroughLowercased(t *testing.T) {
	status, reason := normalizeOrderStatus("someNewStatus")
	if status != adapter.OrderStatus("somenewstatus") {
		t.Fatalf("expected lowercased passthrough, got %q", status)
	}
	if reason != "" {
		t.Fatalf("expected no reason for a non-rejection status, got %q", reason)
	}
}

func TestSideFromWire(t *testing.T) {
	if sideFromWire("B") != adapter.SideBuy {
		t.Fatal("expected B to map to buy")
	}
	if sideFromWire("A") != adapter.SideSell {
		t.Fatal("expected anything else to map to sell")
	}
}

func TestLiquidityFromCrossed(t *testing.T) {
	if liquidityFromCrossed(true) != adapter.LiquidityTaker {
		t.Fatal("expected crossed=true to be taker")
	}
	if liquidityFromCrossed(false) != adapter.LiquidityMaker {
		t.Fatal("expected crossed=false to be maker")
	}
}

func TestResolveCoinSymbolPlainPerp(t *testing.T) {
	got := resolveCoinSymbol("ETH", func(int) (string, bool) { return "", false })
	if got != "ETH" {
		t.Fatalf("expected plain coin name passthrough, got %q", got)
	}
}

func TestResolveCoinSymbolSpotIndex(t *testing.T) {
	got := resolveCoinSymbol("@3", func(idx int) (string, bool) {
		if idx == 3 {
			return "PURR/USDC", true
		}
		return "", false
	})
	if got != "PURR/USDC" {
		t.Fatalf("expected resolved spot symbol, got %q", got)
	}
}

func TestResolveCoinSymbolUnresolvedSpotIndexFallsBackToRawCoin(t *testing.T) {
	got := resolveCoinSymbol("@99", func(int) (string, bool) { return "", false })
	if got != "@99" {
		t.Fatalf("expected raw coin fallback, got %q", got)
	}
}

func TestParseIntOr(t *testing.T) {
	if v := parseIntOr("123", -1); v != 123 {
		t.Fatalf("expected 123, got %d", v)
	}
	if v := parseIntOr("-7", 0); v != -7 {
		t.Fatalf("expected -7, got %d", v)
	}
	if v := parseIntOr("not-a-number", 42); v != 42 {
		t.Fatalf("expected fallback 42, got %d", v)
	}
	if v := parseIntOr("", 9); v != 9 {
		t.Fatalf("expected fallback 9 for empty string, got %d", v)
	}
}
