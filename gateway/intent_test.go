package gateway

import (
	"testing"

	"github.com/latentspeed/gateway/adapter"
)

func validPlaceIntent() adapter.OrderIntent {
	return adapter.OrderIntent{
		ProtocolVersion: protocolVersion,
		ClientID:        "cid-1",
		Action:          adapter.IntentActionPlace,
		VenueCategory:   adapter.VenueCategoryDEX,
		Venue:           "hyperliquid",
		Product:         adapter.ProductPerpetual,
		Details: map[string]string{
			"symbol":     "BTC",
			"side":       "buy",
			"order_type": "limit",
			"quantity":   "1.5",
			"price":      "60000",
		},
	}
}

func TestValidateIntentAcceptsWellFormedPlace(t *testing.T) {
	if err := validateIntent(validPlaceIntent()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateIntentRejectsWrongVersion(t *testing.T) {
	intent := validPlaceIntent()
	intent.ProtocolVersion = 2
	if err := validateIntent(intent); err == nil {
		t.Fatal("expected an error for unsupported protocol version")
	}
}

func TestValidateIntentRejectsMissingClientID(t *testing.T) {
	intent := validPlaceIntent()
	intent.ClientID = ""
	if err := validateIntent(intent); err == nil {
		t.Fatal("expected an error for missing client_id")
	}
}

func TestValidateIntentRejectsMissingVenue(t *testing.T) {
	intent := validPlaceIntent()
	intent.Venue = ""
	if err := validateIntent(intent); err == nil {
		t.Fatal("expected an error for missing venue")
	}
}

func TestValidateIntentRejectsUnknownAction(t *testing.T) {
	intent := validPlaceIntent()
	intent.Action = "frobnicate"
	if err := validateIntent(intent); err == nil {
		t.Fatal("expected an error for unknown action")
	}
}

func TestBuildOrderRequestPopulatesKnownFieldsAndPassesThroughExtras(t *testing.T) {
	intent := validPlaceIntent()
	intent.Details["reduce_only"] = "true"
	intent.Details["tif"] = "IOC"
	intent.Details["triggerPrice"] = "59000"

	req, err := buildOrderRequest(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Symbol != "BTC" || req.Side != adapter.SideBuy || req.Type != adapter.OrderTypeLimit {
		t.Fatalf("unexpected normalized fields: %+v", req)
	}
	if req.Price == nil || *req.Price != "60000" {
		t.Fatalf("expected price to be populated, got %+v", req.Price)
	}
	if req.TIF == nil || *req.TIF != adapter.TIFIOC {
		t.Fatalf("expected TIF IOC, got %+v", req.TIF)
	}
	if !req.ReduceOnly {
		t.Fatal("expected reduce_only=true to be parsed")
	}
	if req.Extra["triggerPrice"] != "59000" {
		t.Fatalf("expected unknown detail key to pass through as Extra, got %+v", req.Extra)
	}
	if _, stillPresent := req.Extra["symbol"]; stillPresent {
		t.Fatal("expected known detail keys to be consumed, not duplicated into Extra")
	}
}

func TestBuildOrderRequestRejectsMissingRequiredFields(t *testing.T) {
	intent := validPlaceIntent()
	delete(intent.Details, "quantity")
	if _, err := buildOrderRequest(intent); err == nil {
		t.Fatal("expected an error for missing quantity")
	}
}

func TestNewInFlightOrderMarksReduceOnlyAsClose(t *testing.T) {
	intent := validPlaceIntent()
	intent.Details["reduce_only"] = "true"
	req, err := buildOrderRequest(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := newInFlightOrder(intent, req)
	if order.PositionAction != adapter.PositionActionClose {
		t.Fatalf("expected close position action for reduce_only order, got %v", order.PositionAction)
	}
	if !order.Amount.Equal(order.Amount) || order.Amount.IsZero() {
		t.Fatalf("expected amount parsed from quantity, got %v", order.Amount)
	}
}

func TestStrPtrOrNil(t *testing.T) {
	d := map[string]string{"exchange_id": "abc", "empty": ""}
	if got := strPtrOrNil(d, "exchange_id"); got == nil || *got != "abc" {
		t.Fatalf("expected pointer to abc, got %v", got)
	}
	if got := strPtrOrNil(d, "empty"); got != nil {
		t.Fatalf("expected nil for empty value, got %v", *got)
	}
	if got := strPtrOrNil(d, "missing"); got != nil {
		t.Fatalf("expected nil for missing key, got %v", *got)
	}
}
