// Package adapter defines the venue-neutral contract every exchange
// adapter implements and the data model shared across the
// ingress→adapter→tracker→egress pipeline.
package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the normalized order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the normalized order type.
type OrderType string

const (
	OrderTypeLimit      OrderType = "limit"
	OrderTypeMarket     OrderType = "market"
	OrderTypeStop       OrderType = "stop"
	OrderTypeStopLimit  OrderType = "stop_limit"
)

// TimeInForce is the normalized time-in-force.
type TimeInForce string

const (
	TIFGTC      TimeInForce = "GTC"
	TIFIOC      TimeInForce = "IOC"
	TIFFOK      TimeInForce = "FOK"
	TIFPostOnly TimeInForce = "POST_ONLY"
)

// VenueCategory classifies the venue an order intent targets.
type VenueCategory string

const (
	VenueCategoryCEX   VenueCategory = "cex"
	VenueCategoryDEX   VenueCategory = "dex"
	VenueCategoryChain VenueCategory = "chain"
)

// ProductType is the normalized product type an order intent targets.
type ProductType string

const (
	ProductSpot      ProductType = "spot"
	ProductPerpetual ProductType = "perpetual"
	ProductAMMSwap   ProductType = "amm_swap"
	ProductCLMMSwap  ProductType = "clmm_swap"
	ProductTransfer  ProductType = "transfer"
)

// IntentAction is the action an order intent requests.
type IntentAction string

const (
	IntentActionPlace   IntentAction = "place"
	IntentActionCancel  IntentAction = "cancel"
	IntentActionReplace IntentAction = "replace"
)

// OrderIntent is the ingress-side message as it arrives from the bus.
// Tags is threaded unmodified from intent through to the egress
// fill/update events — see SPEC_FULL.md's SUPPLEMENTED FEATURES entry.
type OrderIntent struct {
	ProtocolVersion int               `json:"version"`
	ClientID        string            `json:"client_id"`
	Action          IntentAction      `json:"action"`
	VenueCategory   VenueCategory     `json:"venue_category"`
	Venue           string            `json:"venue"`
	Product         ProductType       `json:"product_type"`
	Details         map[string]string `json:"details"`
	TimestampNs     int64             `json:"ts_ns"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// OrderRequest is the normalized adapter input built from an OrderIntent.
type OrderRequest struct {
	ClientID    string
	Symbol      string
	Side        Side
	Type        OrderType
	Quantity    string
	Price       *string
	TIF         *TimeInForce
	Category    string
	ReduceOnly  bool
	Extra       map[string]string
	Tags        map[string]string
}

// OrderStatus is the normalized, lower-cased status shared by adapter
// responses and order-update events.
type OrderStatus string

const (
	StatusAccepted OrderStatus = "accepted"
	StatusNew      OrderStatus = "new"
	StatusFilled   OrderStatus = "filled"
	StatusCanceled OrderStatus = "canceled"
	StatusRejected OrderStatus = "rejected"
	StatusReplaced OrderStatus = "replaced"
	StatusExpired  OrderStatus = "expired"
)

// OrderResponse is an adapter's synchronous reply to place/cancel/modify/
// query.
type OrderResponse struct {
	Success    bool
	Message    string
	ExchangeID string
	ClientID   string
	Status     OrderStatus
	Extra      map[string]string
}

// OrderUpdateEvent is an asynchronous, normalized status change.
type OrderUpdateEvent struct {
	ClientID    string
	ExchangeID  string
	Status      OrderStatus
	Reason      string
	TimestampMs int64
	Fill        *FillEvent
	Tags        map[string]string
}

// Liquidity is maker/taker classification for a fill.
type Liquidity string

const (
	LiquidityMaker Liquidity = "maker"
	LiquidityTaker Liquidity = "taker"
)

// FillEvent is a single execution.
type FillEvent struct {
	ClientID     string
	ExchangeID   string
	ExecutionID  string
	Symbol       string
	Side         Side
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	Fee          decimal.Decimal
	FeeCurrency  string
	Liquidity    Liquidity
	TimestampMs  int64
	Extra        map[string]string
	Tags         map[string]string
}

// PositionAction classifies whether a fill opens, closes, or is neutral
// with respect to the resulting position.
type PositionAction string

const (
	PositionActionNone  PositionAction = "none"
	PositionActionOpen  PositionAction = "open"
	PositionActionClose PositionAction = "close"
)

// InFlightState is the tracker's order-lifecycle state machine.
type InFlightState string

const (
	StatePendingCreate  InFlightState = "pending_create"
	StatePendingSubmit  InFlightState = "pending_submit"
	StateOpen           InFlightState = "open"
	StatePartiallyFilled InFlightState = "partially_filled"
	StateFilled         InFlightState = "filled"
	StatePendingCancel  InFlightState = "pending_cancel"
	StateCanceled       InFlightState = "canceled"
	StateFailed         InFlightState = "failed"
	StateExpired        InFlightState = "expired"
)

// TerminalStates are the tracker's sink states: no further transitions are
// accepted out of them.
var TerminalStates = map[InFlightState]bool{
	StateFilled:   true,
	StateCanceled: true,
	StateFailed:   true,
	StateExpired:  true,
}

// InFlightOrder is the tracker's primary record, keyed by ClientID.
type InFlightOrder struct {
	ClientID        string
	ExchangeID      string
	Symbol          string
	Type            OrderType
	Side            Side
	PositionAction  PositionAction
	Price           decimal.Decimal
	Amount          decimal.Decimal
	Leverage        decimal.Decimal
	State           InFlightState
	FilledAmount    decimal.Decimal
	AvgFillPrice    decimal.Decimal
	Fills           []FillEvent
	CreatedAt       time.Time
	LastUpdatedAt   time.Time
	Cloid           string
	GoodTilBlock    *int64
	GoodTilBlockTime *int64
	NumericClientID *int64
	NotFoundMisses  int
	Tags            map[string]string
}

// IsFillable reports whether state ∈ {open, partially_filled}.
func (o *InFlightOrder) IsFillable() bool {
	return o.State == StateOpen || o.State == StatePartiallyFilled
}

// IsTerminal reports whether State is one of the sink states.
func (o *InFlightOrder) IsTerminal() bool {
	return TerminalStates[o.State]
}

// OrderUpdateCallback, FillCallback, and ErrorCallback are the adapter's
// async notification hooks. Callbacks may be invoked from adapter-internal
// threads; they must not block on adapter I/O.
type OrderUpdateCallback func(OrderUpdateEvent)
type FillCallback func(FillEvent)
type ErrorCallback func(err error, context string)

// Adapter is the venue-neutral exchange adapter contract every CEX/DEX
// implementation satisfies. All methods may block; adapters must not
// hold global locks across I/O. Callbacks may run on adapter-internal
// goroutines.
type Adapter interface {
	Initialize(apiKey, apiSecret string, testnet bool) error
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool

	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	CancelOrder(ctx context.Context, clientID string, symbol, exchangeID *string) (OrderResponse, error)
	ModifyOrder(ctx context.Context, clientID string, newQty, newPrice *string) (OrderResponse, error)
	QueryOrder(ctx context.Context, clientID string) (OrderResponse, error)
	ListOpenOrders(ctx context.Context, category, symbol, settleCoin, baseCoin *string) ([]OrderResponse, error)

	SetOrderUpdateCallback(cb OrderUpdateCallback)
	SetFillCallback(cb FillCallback)
	SetErrorCallback(cb ErrorCallback)

	ExchangeName() string
}
