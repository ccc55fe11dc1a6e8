package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/internal/dedupe"
	"github.com/latentspeed/gateway/internal/numeric"
)

const (
	prodRESTBaseURL    = "https://api.bybit.com"
	testnetRESTBaseURL = "https://api-demo.bybit.com"
	prodWSURL          = "wss://stream.bybit.com/v5/private"
	testnetWSURL       = "wss://stream-demo.bybit.com/v5/private"

	execDedupeCapacity = 50000
	defaultCategory    = "linear"
)

// Adapter implements adapter.Adapter for a Bybit-shape CEX venue (spec
// §4.8): a mutex-guarded REST client, a self-reconnecting private WS, and
// the pending-order cache that lets cancel/replace/catch-up resolve a
// client id back to its category/symbol.
type Adapter struct {
	rest *restClient
	ws   *privateWS

	mu      sync.Mutex
	pending map[string]adapter.OrderRequest // client id -> original request
	cursors map[string]int64                // category -> exec_cursor_ms

	execDedup *dedupe.Set

	onOrderUpdate adapter.OrderUpdateCallback
	onFill        adapter.FillCallback
	onError       adapter.ErrorCallback

	cancel context.CancelFunc
}

// New builds an uninitialized Adapter; call Initialize before Connect.
func New() *Adapter {
	return &Adapter{
		pending:   make(map[string]adapter.OrderRequest),
		cursors:   make(map[string]int64),
		execDedup: dedupe.NewSet(execDedupeCapacity),
	}
}

func (a *Adapter) ExchangeName() string { return "bybit" }

func (a *Adapter) Initialize(apiKey, apiSecret string, testnet bool) error {
	restBase, wsURL := prodRESTBaseURL, prodWSURL
	if testnet {
		restBase, wsURL = testnetRESTBaseURL, testnetWSURL
	}
	a.rest = newRESTClient(restBase, apiKey, apiSecret, 5000)
	a.ws = newPrivateWS(wsURL, a.rest.signer)
	a.ws.onMessage = a.handleWSMessage
	a.ws.onReady = a.onWSReady
	return nil
}

func (a *Adapter) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.ws.run(runCtx)

	deadline := time.Now().Add(5 * time.Second)
	for !a.ws.isConnected() {
		if time.Now().After(deadline) {
			return adapter.NewError(adapter.ReasonExpired, "timed out waiting for bybit private ws to connect")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	return nil
}

func (a *Adapter) Disconnect() {
	if a.cancel != nil {
		a.cancel()
	}
	a.ws.stop()
}

func (a *Adapter) IsConnected() bool { return a.ws.isConnected() }

func (a *Adapter) SetOrderUpdateCallback(cb adapter.OrderUpdateCallback) { a.onOrderUpdate = cb }
func (a *Adapter) SetFillCallback(cb adapter.FillCallback)               { a.onFill = cb }
func (a *Adapter) SetErrorCallback(cb adapter.ErrorCallback)             { a.onError = cb }

func (a *Adapter) PlaceOrder(ctx context.Context, req adapter.OrderRequest) (adapter.OrderResponse, error) {
	category := categoryOf(req)
	wire := placeOrderWire{
		Category:    category,
		Symbol:      req.Symbol,
		Side:        sideWire(req.Side),
		OrderType:   orderTypeWire(req.Type),
		Qty:         req.Quantity,
		OrderLinkID: req.ClientID,
		ReduceOnly:  req.ReduceOnly,
	}
	if req.Price != nil {
		wire.Price = *req.Price
	}
	if req.TIF != nil {
		wire.TimeInForce = tifWire(*req.TIF)
	}
	if tp, ok := req.Extra["triggerPrice"]; ok {
		wire.TriggerPrice = tp
	}

	a.mu.Lock()
	a.pending[req.ClientID] = req
	a.mu.Unlock()

	result, err := a.rest.post(ctx, "/v5/order/create", wire)
	if err != nil {
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: req.ClientID, Status: adapter.StatusRejected}, err
	}

	var res placeOrderResult
	if err := json.Unmarshal(result, &res); err != nil {
		e := adapter.NewError(adapter.ReasonVenueRejected, "decode place-order result: "+err.Error())
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: req.ClientID, Status: adapter.StatusRejected}, e
	}

	return adapter.OrderResponse{
		Success:    true,
		Message:    "accepted",
		ExchangeID: res.OrderID,
		ClientID:   req.ClientID,
		Status:     adapter.StatusAccepted,
	}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, clientID string, symbol, exchangeID *string) (adapter.OrderResponse, error) {
	category, sym := a.resolveSymbolCategory(clientID, symbol)
	if sym == "" {
		err := adapter.NewError(adapter.ReasonNotFound, fmt.Sprintf("cancel: no cached symbol for client id %q", clientID))
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}

	wire := cancelOrderWire{Category: category, Symbol: sym, OrderLinkID: clientID}
	if exchangeID != nil {
		wire.OrderID = *exchangeID
	}

	_, err := a.rest.post(ctx, "/v5/order/cancel", wire)
	if err != nil {
		if isNotExistError(err) {
			nf := adapter.NewError(adapter.ReasonNotFound, err.Error())
			return adapter.OrderResponse{Success: false, Message: nf.Error(), ClientID: clientID, Status: adapter.StatusRejected}, nf
		}
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}

	return adapter.OrderResponse{Success: true, Message: "canceled", ClientID: clientID, Status: adapter.StatusCanceled}, nil
}

func (a *Adapter) ModifyOrder(ctx context.Context, clientID string, newQty, newPrice *string) (adapter.OrderResponse, error) {
	category, sym := a.resolveSymbolCategory(clientID, nil)
	if sym == "" {
		err := adapter.NewError(adapter.ReasonNotFound, fmt.Sprintf("modify: no cached symbol for client id %q", clientID))
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}

	wire := amendOrderWire{Category: category, Symbol: sym, OrderLinkID: clientID}
	if newQty != nil {
		wire.Qty = *newQty
	}
	if newPrice != nil {
		wire.Price = *newPrice
	}

	_, err := a.rest.post(ctx, "/v5/order/amend", wire)
	if err != nil {
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}
	return adapter.OrderResponse{Success: true, Message: "replaced", ClientID: clientID, Status: adapter.StatusReplaced}, nil
}

func (a *Adapter) QueryOrder(ctx context.Context, clientID string) (adapter.OrderResponse, error) {
	category, _ := a.resolveSymbolCategory(clientID, nil)
	if category == "" {
		category = defaultCategory
	}
	result, err := a.rest.get(ctx, "/v5/order/realtime", map[string]string{
		"category":    category,
		"orderLinkId": clientID,
	})
	if err != nil {
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}

	var page struct {
		List []orderWire `json:"list"`
	}
	if err := json.Unmarshal(result, &page); err != nil || len(page.List) == 0 {
		nf := adapter.NewError(adapter.ReasonNotFound, fmt.Sprintf("order %q not found", clientID))
		return adapter.OrderResponse{Success: false, Message: nf.Error(), ClientID: clientID, Status: adapter.StatusRejected}, nf
	}

	row := page.List[0]
	return adapter.OrderResponse{
		Success:    true,
		ExchangeID: row.OrderID,
		ClientID:   clientID,
		Status:     mapStatus(row.OrderStatus),
	}, nil
}

func (a *Adapter) ListOpenOrders(ctx context.Context, category, symbol, settleCoin, baseCoin *string) ([]adapter.OrderResponse, error) {
	params := map[string]string{"category": defaultCategory}
	if category != nil {
		params["category"] = *category
	}
	if symbol != nil {
		params["symbol"] = *symbol
	}
	if settleCoin != nil {
		params["settleCoin"] = *settleCoin
	}
	if baseCoin != nil {
		params["baseCoin"] = *baseCoin
	}

	result, err := a.rest.get(ctx, "/v5/order/realtime", params)
	if err != nil {
		return nil, err
	}
	var page struct {
		List []orderWire `json:"list"`
	}
	if err := json.Unmarshal(result, &page); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}

	out := make([]adapter.OrderResponse, 0, len(page.List))
	for _, row := range page.List {
		out = append(out, adapter.OrderResponse{
			Success:    true,
			ExchangeID: row.OrderID,
			ClientID:   row.OrderLinkID,
			Status:     mapStatus(row.OrderStatus),
		})
	}
	return out, nil
}

// resolveSymbolCategory looks up the category/symbol cached from the
// original place request, falling back to overrideSymbol when supplied.
func (a *Adapter) resolveSymbolCategory(clientID string, overrideSymbol *string) (category, symbol string) {
	a.mu.Lock()
	req, ok := a.pending[clientID]
	a.mu.Unlock()

	if overrideSymbol != nil {
		symbol = *overrideSymbol
	} else if ok {
		symbol = req.Symbol
	}
	if ok {
		category = categoryOf(req)
	} else {
		category = defaultCategory
	}
	return category, symbol
}

func (a *Adapter) handleWSMessage(topic string, data json.RawMessage) {
	switch topic {
	case "order":
		var rows []orderWire
		if err := json.Unmarshal(data, &rows); err != nil {
			a.reportError(err, "decode order ws message")
			return
		}
		for _, row := range rows {
			a.handleOrderRow(row)
		}
	case "execution":
		var rows []executionWire
		if err := json.Unmarshal(data, &rows); err != nil {
			a.reportError(err, "decode execution ws message")
			return
		}
		for _, row := range rows {
			a.handleExecutionRow(row)
		}
	}
}

func (a *Adapter) handleOrderRow(row orderWire) {
	if a.onOrderUpdate == nil {
		return
	}
	a.onOrderUpdate(adapter.OrderUpdateEvent{
		ClientID:    row.OrderLinkID,
		ExchangeID:  row.OrderID,
		Status:      mapStatus(row.OrderStatus),
		Reason:      row.RejectReason,
		TimestampMs: parseIntOr(row.UpdatedTimeMs, time.Now().UnixMilli()),
	})
}

func (a *Adapter) handleExecutionRow(row executionWire) {
	execID := row.ExecID
	if execID == "" {
		execID = fmt.Sprintf("%s:%s:%s:%s", row.OrderID, row.ExecPrice, row.ExecQty, row.ExecTimeMs)
	}
	if !a.execDedup.Insert(execID) {
		return
	}

	a.advanceCursor(row.Category, row.ExecTimeMs)

	if a.onFill == nil {
		return
	}
	liquidity := adapter.LiquidityTaker
	if row.IsMaker {
		liquidity = adapter.LiquidityMaker
	}
	feeCurrency := row.FeeCurrency
	if feeCurrency == "" {
		feeCurrency = numeric.Parse(row.Symbol, false).Quote
	}
	a.onFill(adapter.FillEvent{
		ClientID:    row.OrderLinkID,
		ExchangeID:  row.OrderID,
		ExecutionID: execID,
		Symbol:      row.Symbol,
		Side:        sideFromWire(row.Side),
		Price:       numeric.ParseDecimalOr(row.ExecPrice, decimal.Zero),
		Quantity:    numeric.ParseDecimalOr(row.ExecQty, decimal.Zero),
		Fee:         numeric.ParseDecimalOr(row.ExecFee, decimal.Zero),
		FeeCurrency: feeCurrency,
		Liquidity:   liquidity,
		TimestampMs: parseIntOr(row.ExecTimeMs, time.Now().UnixMilli()),
	})
}

func (a *Adapter) advanceCursor(category, execTimeMs string) {
	ts := parseIntOr(execTimeMs, 0)
	if ts == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if ts > a.cursors[category] {
		a.cursors[category] = ts
	}
}

func (a *Adapter) reportError(err error, context string) {
	if a.onError != nil {
		a.onError(err, context)
	}
}

// onWSReady runs the post-reconnect catch-up: one openOrders snapshot and
// one execution backfill per category in the deterministic query plan.
func (a *Adapter) onWSReady() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, q := range a.catchUpPlan() {
		a.snapshotOpenOrders(ctx, q)
		a.backfillExecutions(ctx, q)
	}
}

type categoryQuery struct {
	category string
	params   map[string]string
}

// catchUpPlan builds the deterministic post-reconnect query plan: linear
// x {settleCoin USDT, USDC}, inverse x {baseCoin BTC, ETH}, plus
// spot|option driven by symbols observed in pending orders.
func (a *Adapter) catchUpPlan() []categoryQuery {
	plan := []categoryQuery{
		{"linear", map[string]string{"settleCoin": "USDT"}},
		{"linear", map[string]string{"settleCoin": "USDC"}},
		{"inverse", map[string]string{"baseCoin": "BTC"}},
		{"inverse", map[string]string{"baseCoin": "ETH"}},
	}

	seen := make(map[string]bool)
	a.mu.Lock()
	for _, req := range a.pending {
		cat := categoryOf(req)
		if cat != "spot" && cat != "option" {
			continue
		}
		key := cat + ":" + req.Symbol
		if seen[key] {
			continue
		}
		seen[key] = true
		plan = append(plan, categoryQuery{cat, map[string]string{"symbol": req.Symbol}})
	}
	a.mu.Unlock()
	return plan
}

func (a *Adapter) snapshotOpenOrders(ctx context.Context, q categoryQuery) {
	params := map[string]string{"category": q.category}
	for k, v := range q.params {
		params[k] = v
	}
	result, err := a.rest.get(ctx, "/v5/order/realtime", params)
	if err != nil {
		a.reportError(err, "catch-up open orders "+q.category)
		return
	}
	var page struct {
		List []orderWire `json:"list"`
	}
	if err := json.Unmarshal(result, &page); err != nil {
		a.reportError(err, "decode catch-up open orders "+q.category)
		return
	}
	for _, row := range page.List {
		a.handleOrderRow(row)
	}
}

func (a *Adapter) backfillExecutions(ctx context.Context, q categoryQuery) {
	a.mu.Lock()
	cursor := a.cursors[q.category]
	a.mu.Unlock()

	params := map[string]string{
		"category":  q.category,
		"limit":     "200",
		"startTime": strconv.FormatInt(cursor, 10),
	}
	for k, v := range q.params {
		params[k] = v
	}

	result, err := a.rest.get(ctx, "/v5/execution/list", params)
	if err != nil {
		a.reportError(err, "catch-up executions "+q.category)
		return
	}
	var page struct {
		List []executionWire `json:"list"`
	}
	if err := json.Unmarshal(result, &page); err != nil {
		a.reportError(err, "decode catch-up executions "+q.category)
		return
	}
	for _, row := range page.List {
		if row.Category == "" {
			row.Category = q.category
		}
		a.handleExecutionRow(row)
	}
}

func isNotExistError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not exist")
}

func categoryOf(req adapter.OrderRequest) string {
	if req.Category != "" {
		return req.Category
	}
	return defaultCategory
}

func sideWire(s adapter.Side) string {
	if s == adapter.SideBuy {
		return "Buy"
	}
	return "Sell"
}

func sideFromWire(s string) adapter.Side {
	if strings.EqualFold(s, "Buy") {
		return adapter.SideBuy
	}
	return adapter.SideSell
}

func orderTypeWire(t adapter.OrderType) string {
	switch t {
	case adapter.OrderTypeMarket:
		return "Market"
	default:
		return "Limit"
	}
}

func tifWire(tif adapter.TimeInForce) string {
	switch tif {
	case adapter.TIFIOC:
		return "IOC"
	case adapter.TIFFOK:
		return "FOK"
	case adapter.TIFPostOnly:
		return "PostOnly"
	default:
		return "GTC"
	}
}

func parseIntOr(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

var _ adapter.Adapter = (*Adapter)(nil)
