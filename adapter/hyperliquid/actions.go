// Package hyperliquid implements the Hyperliquid-shape DEX adapter: a
// signed action batcher over two transports (WS post, HTTP POST
// fallback), IOC/ALO queues, trigger-order and market-order synthesis, a
// cloid<->client-id map, cross-stream fill dedup, and private-WS liveness
// management, built on internal/signing.DEXSigner for the EIP-712
// phantom-agent signature every action requires.
package hyperliquid

// limitWire selects a plain limit order's time-in-force ("t":{"limit":
// {"tif"}}). Both msgpack and json tags are needed:
// msgpack is what gets hashed and signed, json is what actually goes out
// over the wire to /exchange and the WS post channel — they must name the
// same fields identically or the venue would reject a signature computed
// over one shape while receiving another.
type limitWire struct {
	Tif string `msgpack:"tif" json:"tif"`
}

// triggerWire selects a trigger (stop/take-profit) order ("t":
// {"trigger":{...}}).
type triggerWire struct {
	IsMarket  bool   `msgpack:"isMarket" json:"isMarket"`
	TriggerPx string `msgpack:"triggerPx" json:"triggerPx"`
	Tpsl      string `msgpack:"tpsl" json:"tpsl"`
}

// orderTypeWire is the "t" field of one order entry: exactly one of Limit
// or Trigger is populated.
type orderTypeWire struct {
	Limit   *limitWire   `msgpack:"limit,omitempty" json:"limit,omitempty"`
	Trigger *triggerWire `msgpack:"trigger,omitempty" json:"trigger,omitempty"`
}

// orderWire is one entry of an "order" action's orders array. Field order
// matches the venue's wire table (a,b,p,s,r,t,c) exactly: msgpack encodes
// struct fields in declaration order, and the signature is computed over
// that exact byte sequence, so reordering these fields would change every
// signature the venue verifies.
type orderWire struct {
	Asset      int           `msgpack:"a" json:"a"`
	IsBuy      bool          `msgpack:"b" json:"b"`
	Price      string        `msgpack:"p,omitempty" json:"p,omitempty"`
	Size       string        `msgpack:"s" json:"s"`
	ReduceOnly bool          `msgpack:"r" json:"r"`
	Type       orderTypeWire `msgpack:"t" json:"t"`
	Cloid      string        `msgpack:"c,omitempty" json:"c,omitempty"`
}

// orderAction is the signed "order" action body (type="order",
// grouping="na").
type orderAction struct {
	Type     string      `msgpack:"type" json:"type"`
	Grouping string      `msgpack:"grouping" json:"grouping"`
	Orders   []orderWire `msgpack:"orders" json:"orders"`
}

type cancelWire struct {
	Asset int   `msgpack:"a" json:"a"`
	Oid   int64 `msgpack:"o" json:"o"`
}

// cancelAction cancels by asset id + numeric exchange oid.
type cancelAction struct {
	Type    string       `msgpack:"type" json:"type"`
	Cancels []cancelWire `msgpack:"cancels" json:"cancels"`
}

type cancelByCloidWire struct {
	Asset int    `msgpack:"asset" json:"asset"`
	Cloid string `msgpack:"cloid" json:"cloid"`
}

// cancelByCloidAction cancels by asset id + client order id, used whenever
// a cloid is known for the order.
type cancelByCloidAction struct {
	Type    string              `msgpack:"type" json:"type"`
	Cancels []cancelByCloidWire `msgpack:"cancels" json:"cancels"`
}

// reserveRequestWeightAction spends a small pre-approved rate-limit budget
// while the adapter is in 429 back-off.
type reserveRequestWeightAction struct {
	Type   string `msgpack:"type" json:"type"`
	Weight int    `msgpack:"weight" json:"weight"`
}
