// Package gateway implements the ingress/egress bus plane: two bus
// sockets (PULL for order intents, PUB for reports/fills), a
// single-threaded ingress worker that parses, validates, and dispatches
// intents to the venue router, and a publisher worker that drains an
// SPSC ring of pre-marshaled reports onto the egress socket.
package gateway

import "github.com/latentspeed/gateway/adapter"

// protocolVersion is the wire "version" field added to every egress
// report and fill.
const protocolVersion = 1

// orderUpdateWire is the egress JSON shape for an order update or a
// synchronous accept/reject report. Field names are independent of
// adapter.OrderUpdateEvent's Go field names since that struct has no
// wire contract of its own; this is the one place that contract lives.
type orderUpdateWire struct {
	Version     int               `json:"version"`
	ClientID    string            `json:"client_id"`
	ExchangeID  string            `json:"exchange_id,omitempty"`
	Status      string            `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	TimestampMs int64             `json:"timestamp_ms"`
	Tags        map[string]string `json:"tags,omitempty"`
}

func newOrderUpdateWire(u adapter.OrderUpdateEvent) orderUpdateWire {
	return orderUpdateWire{
		Version:     protocolVersion,
		ClientID:    u.ClientID,
		ExchangeID:  u.ExchangeID,
		Status:      string(u.Status),
		Reason:      u.Reason,
		TimestampMs: u.TimestampMs,
		Tags:        u.Tags,
	}
}

// rejectionWire builds the synchronous rejection report emitted on parse
// failure, validation failure, or router miss.
func rejectionWire(clientID, reason string, nowMs int64) orderUpdateWire {
	return orderUpdateWire{
		Version:     protocolVersion,
		ClientID:    clientID,
		Status:      string(adapter.StatusRejected),
		Reason:      reason,
		TimestampMs: nowMs,
	}
}

// acceptanceWire builds the synchronous acceptance report emitted as
// soon as the adapter returns an accepted response.
func acceptanceWire(resp adapter.OrderResponse, nowMs int64) orderUpdateWire {
	status := resp.Status
	if status == "" {
		status = adapter.StatusAccepted
	}
	return orderUpdateWire{
		Version:     protocolVersion,
		ClientID:    resp.ClientID,
		ExchangeID:  resp.ExchangeID,
		Status:      string(status),
		Reason:      resp.Message,
		TimestampMs: nowMs,
	}
}

// fillWire is the egress JSON shape for a fill event.
type fillWire struct {
	Version     int               `json:"version"`
	ClientID    string            `json:"client_id"`
	ExchangeID  string            `json:"exchange_id"`
	ExecutionID string            `json:"execution_id"`
	Symbol      string            `json:"symbol"`
	Side        string            `json:"side"`
	Price       string            `json:"price"`
	Quantity    string            `json:"quantity"`
	Fee         string            `json:"fee"`
	FeeCurrency string            `json:"fee_currency"`
	Liquidity   string            `json:"liquidity"`
	TimestampMs int64             `json:"timestamp_ms"`
	Tags        map[string]string `json:"tags,omitempty"`
}

func newFillWire(f adapter.FillEvent) fillWire {
	return fillWire{
		Version:     protocolVersion,
		ClientID:    f.ClientID,
		ExchangeID:  f.ExchangeID,
		ExecutionID: f.ExecutionID,
		Symbol:      f.Symbol,
		Side:        string(f.Side),
		Price:       f.Price.String(),
		Quantity:    f.Quantity.String(),
		Fee:         f.Fee.String(),
		FeeCurrency: f.FeeCurrency,
		Liquidity:   string(f.Liquidity),
		TimestampMs: f.TimestampMs,
		Tags:        f.Tags,
	}
}
