// Package tracker implements the shared order-state tracker: a
// thread-safe, client-id-keyed in-flight order container with four write
// operations (start_tracking, process_order_update, process_trade_update,
// process_order_not_found) and read accessors guarded by a shared lock.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
)

// fillTolerance is the tolerance used when comparing filled_amount
// against the target amount, absorbing venue-side rounding dust.
var fillTolerance = decimal.NewFromFloat(0.00000001)

// notFoundMissLimit is the number of consecutive process_order_not_found
// calls that force-transitions an order to canceled.
const notFoundMissLimit = 3

// allowedTransitions enforces the invariant that terminal states are
// sinks, and otherwise only forward-moving transitions are accepted. A
// transition to the same state is always a no-op allowed (idempotent
// re-delivery of the same status).
var allowedTransitions = map[adapter.InFlightState]map[adapter.InFlightState]bool{
	adapter.StatePendingCreate: {
		adapter.StatePendingSubmit: true,
		adapter.StateOpen:          true,
		adapter.StateCanceled:      true,
		adapter.StateFailed:        true,
	},
	adapter.StatePendingSubmit: {
		adapter.StateOpen:      true,
		adapter.StateFilled:    true,
		adapter.StateCanceled:  true,
		adapter.StateFailed:    true,
		adapter.StateExpired:   true,
	},
	adapter.StateOpen: {
		adapter.StatePartiallyFilled: true,
		adapter.StateFilled:          true,
		adapter.StatePendingCancel:   true,
		adapter.StateCanceled:        true,
		adapter.StateExpired:         true,
		adapter.StateFailed:          true,
	},
	adapter.StatePartiallyFilled: {
		adapter.StateFilled:        true,
		adapter.StatePendingCancel: true,
		adapter.StateCanceled:      true,
		adapter.StateExpired:       true,
	},
	adapter.StatePendingCancel: {
		adapter.StateCanceled: true,
		adapter.StateFilled:   true,
		adapter.StateFailed:   true,
	},
}

// OrderUpdate mirrors adapter.OrderUpdateEvent for the tracker's write
// path; it is the same shape, kept as a type alias so tracker call sites
// read naturally.
type OrderUpdate = adapter.OrderUpdateEvent

// Trade mirrors adapter.FillEvent for the tracker's write path.
type Trade = adapter.FillEvent

// EventHandlers are the tracker's outward notifications, fired while the
// tracker's write lock is NOT held (copies are taken first) so a slow
// handler cannot stall other client ids.
type EventHandlers struct {
	OnOrderUpdate   func(*adapter.InFlightOrder, OrderUpdate)
	OnOrderFilled   func(*adapter.InFlightOrder, Trade)
	OnOrderCompleted func(*adapter.InFlightOrder)
}

// Tracker is the single source of truth for order state.
type Tracker struct {
	mu            sync.RWMutex
	orders        map[string]*adapter.InFlightOrder
	byExchangeID  map[string]string // exchange id -> client id
	autoCleanup   bool
	handlers      EventHandlers
}

// New builds an empty Tracker. autoCleanup removes orders from the map
// once they reach a terminal state rather than retaining them indefinitely.
func New(autoCleanup bool, handlers EventHandlers) *Tracker {
	return &Tracker{
		orders:       make(map[string]*adapter.InFlightOrder),
		byExchangeID: make(map[string]string),
		autoCleanup:  autoCleanup,
		handlers:     handlers,
	}
}

// StartTracking inserts a pending_create entry. Must be called before the
// adapter submission so inbound WS events arriving before the REST
// response can still be attributed. A second call with the same client
// id is a programmer error and panics rather than silently overwriting
// state.
func (t *Tracker) StartTracking(order *adapter.InFlightOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.orders[order.ClientID]; exists {
		panic(fmt.Sprintf("tracker: start_tracking called twice for client id %q", order.ClientID))
	}

	order.State = adapter.StatePendingCreate
	order.CreatedAt = time.Now()
	order.LastUpdatedAt = order.CreatedAt
	if order.FilledAmount.IsZero() {
		order.FilledAmount = decimal.Zero
	}
	if order.AvgFillPrice.IsZero() {
		order.AvgFillPrice = decimal.Zero
	}
	t.orders[order.ClientID] = order
}

// ProcessOrderUpdate resolves by client id, enforces the state machine,
// writes state and last_update_ts, and fires OnOrderUpdate. Unknown
// client ids and invalid transitions are logged and ignored rather than
// surfaced, since adapter callbacks must never throw back to the caller.
func (t *Tracker) ProcessOrderUpdate(update OrderUpdate) {
	t.mu.Lock()
	order, ok := t.orders[update.ClientID]
	if !ok {
		t.mu.Unlock()
		log.Warn().Str("client_id", update.ClientID).Msg("order update for unknown client id")
		return
	}

	if order.IsTerminal() {
		t.mu.Unlock()
		return
	}

	newState := statusToState(update.Status)
	if newState != order.State && !allowedTransitions[order.State][newState] {
		t.mu.Unlock()
		log.Warn().
			Str("client_id", update.ClientID).
			Str("from", string(order.State)).
			Str("to", string(newState)).
			Msg("tracker: rejected illegal state transition")
		return
	}

	if update.ExchangeID != "" && order.ExchangeID == "" {
		order.ExchangeID = update.ExchangeID
		t.byExchangeID[update.ExchangeID] = update.ClientID
	}
	order.State = newState
	order.LastUpdatedAt = time.Now()
	order.NotFoundMisses = 0
	for k, v := range update.Tags {
		if order.Tags == nil {
			order.Tags = make(map[string]string)
		}
		order.Tags[k] = v
	}

	terminal := order.IsTerminal()
	snapshot := *order
	if terminal && t.autoCleanup {
		delete(t.orders, order.ClientID)
		if order.ExchangeID != "" {
			delete(t.byExchangeID, order.ExchangeID)
		}
	}
	t.mu.Unlock()

	if t.handlers.OnOrderUpdate != nil {
		t.handlers.OnOrderUpdate(&snapshot, update)
	}
	if terminal && t.handlers.OnOrderCompleted != nil {
		t.handlers.OnOrderCompleted(&snapshot)
	}
}

// ProcessTradeUpdate appends the fill, recomputes VWAP, and transitions to
// partially_filled or filled using fillTolerance to absorb rounding dust.
func (t *Tracker) ProcessTradeUpdate(trade Trade) {
	t.mu.Lock()
	order, ok := t.orders[trade.ClientID]
	if !ok {
		t.mu.Unlock()
		log.Warn().Str("client_id", trade.ClientID).Msg("trade update for unknown client id")
		return
	}
	if order.IsTerminal() {
		t.mu.Unlock()
		return
	}

	order.Fills = append(order.Fills, trade)
	order.FilledAmount = order.FilledAmount.Add(trade.Quantity)

	sumNotional := decimal.Zero
	sumQty := decimal.Zero
	for _, f := range order.Fills {
		sumNotional = sumNotional.Add(f.Price.Mul(f.Quantity))
		sumQty = sumQty.Add(f.Quantity)
	}
	if sumQty.GreaterThan(decimal.Zero) {
		order.AvgFillPrice = sumNotional.Div(sumQty)
	}

	remaining := order.Amount.Sub(order.FilledAmount)
	if remaining.Abs().LessThanOrEqual(fillTolerance) {
		order.State = adapter.StateFilled
	} else if order.State == adapter.StateOpen {
		order.State = adapter.StatePartiallyFilled
	}
	order.LastUpdatedAt = time.Now()
	order.NotFoundMisses = 0

	terminal := order.IsTerminal()
	snapshot := *order
	if terminal && t.autoCleanup {
		delete(t.orders, order.ClientID)
		if order.ExchangeID != "" {
			delete(t.byExchangeID, order.ExchangeID)
		}
	}
	t.mu.Unlock()

	if t.handlers.OnOrderFilled != nil {
		t.handlers.OnOrderFilled(&snapshot, trade)
	}
	if terminal && t.handlers.OnOrderCompleted != nil {
		t.handlers.OnOrderCompleted(&snapshot)
	}
}

// ProcessOrderNotFound increments the miss counter; after three
// consecutive misses the order is force-canceled, supporting DEX venues
// that stop acknowledging a cancelled order's existence.
func (t *Tracker) ProcessOrderNotFound(clientID string) {
	t.mu.Lock()
	order, ok := t.orders[clientID]
	if !ok || order.IsTerminal() {
		t.mu.Unlock()
		return
	}

	order.NotFoundMisses++
	if order.NotFoundMisses < notFoundMissLimit {
		t.mu.Unlock()
		return
	}

	order.State = adapter.StateCanceled
	order.LastUpdatedAt = time.Now()
	snapshot := *order
	if t.autoCleanup {
		delete(t.orders, order.ClientID)
		if order.ExchangeID != "" {
			delete(t.byExchangeID, order.ExchangeID)
		}
	}
	t.mu.Unlock()

	log.Warn().Str("client_id", clientID).Msg("tracker: force-canceled after 3 consecutive not-found misses")
	if t.handlers.OnOrderCompleted != nil {
		t.handlers.OnOrderCompleted(&snapshot)
	}
}

// GetOrder returns a copy of the in-flight order for clientID, if present.
func (t *Tracker) GetOrder(clientID string) (adapter.InFlightOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	order, ok := t.orders[clientID]
	if !ok {
		return adapter.InFlightOrder{}, false
	}
	return *order, true
}

// GetOrderByExchangeID returns a copy of the in-flight order whose
// exchange id matches exchangeID, if present.
func (t *Tracker) GetOrderByExchangeID(exchangeID string) (adapter.InFlightOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	clientID, ok := t.byExchangeID[exchangeID]
	if !ok {
		return adapter.InFlightOrder{}, false
	}
	order, ok := t.orders[clientID]
	if !ok {
		return adapter.InFlightOrder{}, false
	}
	return *order, true
}

// AllFillableOrders returns a copy of every order currently in {open,
// partially_filled}.
func (t *Tracker) AllFillableOrders() []adapter.InFlightOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]adapter.InFlightOrder, 0, len(t.orders))
	for _, o := range t.orders {
		if o.IsFillable() {
			out = append(out, *o)
		}
	}
	return out
}

// AllFillableOrdersByExchangeID is AllFillableOrders keyed by exchange id,
// omitting orders that have not yet been assigned one.
func (t *Tracker) AllFillableOrdersByExchangeID() map[string]adapter.InFlightOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]adapter.InFlightOrder)
	for _, o := range t.orders {
		if o.IsFillable() && o.ExchangeID != "" {
			out[o.ExchangeID] = *o
		}
	}
	return out
}

// Count returns the number of orders currently tracked.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.orders)
}

func statusToState(status adapter.OrderStatus) adapter.InFlightState {
	switch status {
	case adapter.StatusNew, adapter.StatusAccepted, adapter.StatusReplaced:
		return adapter.StateOpen
	case adapter.StatusFilled:
		return adapter.StateFilled
	case adapter.StatusCanceled:
		return adapter.StateCanceled
	case adapter.StatusRejected:
		return adapter.StateFailed
	case adapter.StatusExpired:
		return adapter.StateExpired
	default:
		return adapter.StateOpen
	}
}
