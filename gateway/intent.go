package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
)

// knownDetailKeys are the OrderIntent.Details keys consumed directly into
// OrderRequest fields; everything else passes through as Extra (e.g.
// triggerPrice, triggerDirection, orderFilter for TP/SL variants, and
// replace overrides).
var knownDetailKeys = map[string]bool{
	"symbol":      true,
	"side":        true,
	"order_type":  true,
	"quantity":    true,
	"price":       true,
	"tif":         true,
	"category":    true,
	"reduce_only": true,
}

// validateIntent checks the protocol version and the fields required of
// every intent regardless of action.
func validateIntent(intent adapter.OrderIntent) error {
	if intent.ProtocolVersion != protocolVersion {
		return adapter.NewError(adapter.ReasonInvalidParams, fmt.Sprintf("unsupported protocol version %d", intent.ProtocolVersion))
	}
	if intent.ClientID == "" {
		return adapter.NewError(adapter.ReasonInvalidParams, "missing client_id")
	}
	if intent.Venue == "" {
		return adapter.NewError(adapter.ReasonInvalidParams, "missing venue")
	}
	switch intent.Action {
	case adapter.IntentActionPlace, adapter.IntentActionCancel, adapter.IntentActionReplace:
	default:
		return adapter.NewError(adapter.ReasonInvalidParams, fmt.Sprintf("unknown action %q", intent.Action))
	}
	return nil
}

// buildOrderRequest converts a place-action intent into the normalized
// adapter input.
func buildOrderRequest(intent adapter.OrderIntent) (adapter.OrderRequest, error) {
	d := intent.Details
	req := adapter.OrderRequest{
		ClientID: intent.ClientID,
		Symbol:   d["symbol"],
		Side:     adapter.Side(d["side"]),
		Type:     adapter.OrderType(d["order_type"]),
		Quantity: d["quantity"],
		Category: d["category"],
		Tags:     intent.Tags,
		Extra:    map[string]string{},
	}
	if req.Symbol == "" || req.Side == "" || req.Type == "" || req.Quantity == "" {
		return adapter.OrderRequest{}, adapter.NewError(adapter.ReasonInvalidParams, "place requires symbol, side, order_type, and quantity")
	}
	if price, ok := d["price"]; ok && price != "" {
		req.Price = &price
	}
	if tif, ok := d["tif"]; ok && tif != "" {
		t := adapter.TimeInForce(tif)
		req.TIF = &t
	}
	if ro, ok := d["reduce_only"]; ok {
		req.ReduceOnly = ro == "true" || ro == "1" || ro == "yes"
	}
	for k, v := range d {
		if !knownDetailKeys[k] {
			req.Extra[k] = v
		}
	}
	return req, nil
}

// newInFlightOrder builds the tracker record for a place-action intent,
// inserted via start_tracking *before* the adapter call.
func newInFlightOrder(intent adapter.OrderIntent, req adapter.OrderRequest) *adapter.InFlightOrder {
	price := decimal.Zero
	if req.Price != nil {
		if p, err := decimal.NewFromString(*req.Price); err == nil {
			price = p
		}
	}
	amount, _ := decimal.NewFromString(req.Quantity)

	order := &adapter.InFlightOrder{
		ClientID: intent.ClientID,
		Symbol:   req.Symbol,
		Type:     req.Type,
		Side:     req.Side,
		Price:    price,
		Amount:   amount,
		Tags:     intent.Tags,
	}
	if req.ReduceOnly {
		order.PositionAction = adapter.PositionActionClose
	} else {
		order.PositionAction = adapter.PositionActionOpen
	}
	return order
}

// strPtrOrNil returns a non-nil pointer to d[key] when present and
// non-empty, else nil — used for the optional cancel/replace fields
// adapter.Adapter's CancelOrder/ModifyOrder take by *string.
func strPtrOrNil(d map[string]string, key string) *string {
	if v, ok := d[key]; ok && v != "" {
		return &v
	}
	return nil
}
