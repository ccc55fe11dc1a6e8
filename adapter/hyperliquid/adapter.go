package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/internal/assets"
	"github.com/latentspeed/gateway/internal/dedupe"
	"github.com/latentspeed/gateway/internal/httpclient"
	"github.com/latentspeed/gateway/internal/nonce"
	"github.com/latentspeed/gateway/internal/numeric"
	"github.com/latentspeed/gateway/internal/signing"
)

const (
	prodRESTBaseURL    = "https://api.hyperliquid.xyz"
	testnetRESTBaseURL = "https://api.hyperliquid-testnet.xyz"
	prodWSURL          = "wss://api.hyperliquid.xyz/ws"
	testnetWSURL       = "wss://api.hyperliquid-testnet.xyz/ws"

	fillDedupeCapacity     = 10000
	defaultIOCSlippageBps  = 10
	defaultBatchCadenceMs  = 100
	connectPollInterval    = 20 * time.Millisecond
	connectTimeoutDuration = 5 * time.Second
)

// Adapter implements adapter.Adapter for a Hyperliquid-shape DEX venue:
// a signed action batcher over two transports, IOC/ALO queues, trigger
// and market-order synthesis, a cloid<->client-id map, cross-stream fill
// dedup, and private-WS liveness management.
type Adapter struct {
	httpClient *httpclient.Client
	signer     signing.Signer
	nonces     *nonce.Manager
	resolver   *assets.Resolver
	transport  *transport
	feed       *privateFeed
	batcher    *batcher
	maps       *orderMaps
	fillDedup  *dedupe.Set

	vault     common.Address
	isMainnet bool

	lastFillMu    sync.Mutex
	lastFillPrice map[string]decimal.Decimal

	onOrderUpdate adapter.OrderUpdateCallback
	onFill        adapter.FillCallback
	onError       adapter.ErrorCallback

	cancel context.CancelFunc
}

// New builds an uninitialized Adapter; call Initialize before Connect.
func New() *Adapter {
	return &Adapter{
		maps:          newOrderMaps(),
		fillDedup:     dedupe.NewSet(fillDedupeCapacity),
		lastFillPrice: make(map[string]decimal.Decimal),
	}
}

func (a *Adapter) ExchangeName() string { return "hyperliquid" }

// Initialize treats apiKey as an optional vault address (hex, may be
// empty for a direct account) and apiSecret as the DEX signer's raw
// private key (hex, with or without 0x). It wires DEXSigner in-process
// when a key is supplied and RefusingSigner otherwise. No SubprocessSigner
// is built, here or in cmd/gateway, and the adapter has no way to accept
// one from its caller.
func (a *Adapter) Initialize(apiKey, apiSecret string, testnet bool) error {
	restBase, wsURL := prodRESTBaseURL, prodWSURL
	if testnet {
		restBase, wsURL = testnetRESTBaseURL, testnetWSURL
	}
	a.isMainnet = !testnet
	if apiKey != "" {
		a.vault = common.HexToAddress(apiKey)
	}

	var signer signing.Signer
	if apiSecret != "" {
		s, err := signing.NewDEXSigner(apiSecret, chainID(testnet))
		if err != nil {
			return adapter.NewError(adapter.ReasonSignerUnavailable, err.Error())
		}
		signer = s
	} else {
		signer = signing.RefusingSigner{}
	}
	a.signer = signer

	a.httpClient = httpclient.New(restBase)
	a.nonces = nonce.NewManager(nil)
	a.transport = newTransport(a.httpClient, a.signer, a.nonces, a.vault, a.isMainnet)
	a.resolver = assets.NewResolver(assets.HTTPMetaFetcher{Get: metaGetter(a.httpClient)}, 0)

	a.feed = newPrivateFeed(wsURL, a.signer.Address().Hex(), a.fillDedup, a.resolveSpotIndex, a.clientIDForCloid)
	a.feed.onOrderEvent = a.handleOrderUpdate
	a.feed.onFillEvent = a.handleFill
	a.feed.onError = a.reportError

	a.batcher = newBatcher(batchCadence(), a.flushBatch)
	return nil
}

func (a *Adapter) Connect(ctx context.Context) error {
	refreshCtx, cancelRefresh := context.WithTimeout(ctx, connectTimeoutDuration)
	defer cancelRefresh()
	if err := a.resolver.RefreshAll(refreshCtx); err != nil {
		return adapter.NewError(adapter.ReasonTransportFailed, "refresh asset meta: "+err.Error())
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.feed.start(runCtx)
	go a.batcher.run(runCtx)

	deadline := time.Now().Add(connectTimeoutDuration)
	for !a.feed.getClient().Connected() {
		if time.Now().After(deadline) {
			return adapter.NewError(adapter.ReasonExpired, "timed out waiting for hyperliquid private ws to connect")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectPollInterval):
		}
	}
	return nil
}

func (a *Adapter) Disconnect() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Adapter) IsConnected() bool { return a.feed.getClient().Connected() }

func (a *Adapter) SetOrderUpdateCallback(cb adapter.OrderUpdateCallback) { a.onOrderUpdate = cb }
func (a *Adapter) SetFillCallback(cb adapter.FillCallback)               { a.onFill = cb }
func (a *Adapter) SetErrorCallback(cb adapter.ErrorCallback)             { a.onError = cb }

func (a *Adapter) reportError(err error, context string) {
	if a.onError != nil {
		a.onError(err, context)
	}
}

// PlaceOrder resolves the asset, ensures a cloid, builds the wire order,
// and either submits it immediately (deterministic mode) or enqueues it
// for the next batch flush.
func (a *Adapter) PlaceOrder(ctx context.Context, req adapter.OrderRequest) (adapter.OrderResponse, error) {
	asset, err := a.resolver.Resolve(ctx, req.Symbol)
	if err != nil {
		e := adapter.NewError(adapter.ReasonSymbolResolutionFailed, err.Error())
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: req.ClientID, Status: adapter.StatusRejected}, e
	}

	role := orderRoleFromExtra(req)
	rec := a.maps.ensureCloid(req, asset.ID, role)

	wire, err := a.buildOrderWire(req, asset, rec.Cloid)
	if err != nil {
		e := adapter.NewError(adapter.ReasonInvalidParams, err.Error())
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: req.ClientID, Status: adapter.StatusRejected}, e
	}

	if isDeterministic(req) {
		return a.submitSingle(ctx, req.ClientID, wire)
	}

	type outcome struct {
		resp adapter.OrderResponse
		err  error
	}
	resultCh := make(chan outcome, 1)
	item := batchItem{
		clientID: req.ClientID,
		wire:     wire,
		respond: func(resp adapter.OrderResponse, err error) {
			resultCh <- outcome{resp, err}
		},
	}
	if isPostOnly(req) {
		a.batcher.enqueueAlo(item)
	} else {
		a.batcher.enqueueFast(item)
	}

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		return adapter.OrderResponse{Success: false, ClientID: req.ClientID, Status: adapter.StatusRejected}, ctx.Err()
	}
}

// submitSingle signs and sends one order action immediately, bypassing
// the batcher (the deterministic submission mode).
func (a *Adapter) submitSingle(ctx context.Context, clientID string, wire orderWire) (adapter.OrderResponse, error) {
	action := orderAction{Type: "order", Grouping: "na", Orders: []orderWire{wire}}
	body, err := a.transport.sendAction(ctx, a.feed.getClient(), action)
	if err != nil {
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}

	var statuses statusesData
	if err := json.Unmarshal(body.Data, &statuses); err != nil || len(statuses.Statuses) == 0 {
		e := fmt.Errorf("hyperliquid: empty order response for client id %q", clientID)
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: clientID, Status: adapter.StatusRejected}, e
	}

	return a.translateItemStatus(clientID, parseItemStatus(statuses.Statuses[0])), nil
}

// flushBatch is the batcher's send callback: it signs and sends every
// queued item as one "order" action, then fans the per-item statuses back
// out to each caller blocked in PlaceOrder.
func (a *Adapter) flushBatch(ctx context.Context, items []batchItem) {
	wires := make([]orderWire, len(items))
	for i, it := range items {
		wires[i] = it.wire
	}
	action := orderAction{Type: "order", Grouping: "na", Orders: wires}

	body, err := a.transport.sendAction(ctx, a.feed.getClient(), action)
	if err != nil {
		for _, it := range items {
			it.respond(adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: it.clientID, Status: adapter.StatusRejected}, err)
		}
		return
	}

	var statuses statusesData
	if err := json.Unmarshal(body.Data, &statuses); err != nil {
		for _, it := range items {
			it.respond(adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: it.clientID, Status: adapter.StatusRejected}, err)
		}
		return
	}

	for i, it := range items {
		if i >= len(statuses.Statuses) {
			e := fmt.Errorf("hyperliquid: missing batch status for client id %q", it.clientID)
			it.respond(adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: it.clientID, Status: adapter.StatusRejected}, e)
			continue
		}
		it.respond(a.translateItemStatus(it.clientID, parseItemStatus(statuses.Statuses[i])), nil)
	}
}

// translateItemStatus applies the venue's order-response parsing rules: a
// resting status records the oid and schedules confirm_resting_async; a
// filled status records the oid and synthesizes a taker fill; anything
// else is a rejection.
func (a *Adapter) translateItemStatus(clientID string, st itemStatus) adapter.OrderResponse {
	switch st.Kind {
	case "resting":
		a.maps.setOid(clientID, st.Oid)
		a.transport.confirmRestingAsync(clientID, formatOid(st.Oid), st.Oid, a.onOrderUpdate)
		return adapter.OrderResponse{Success: true, Message: "accepted", ExchangeID: formatOid(st.Oid), ClientID: clientID, Status: adapter.StatusAccepted}
	case "filled":
		a.maps.setOid(clientID, st.Oid)
		a.emitSyntheticFill(clientID, st)
		return adapter.OrderResponse{Success: true, Message: "filled", ExchangeID: formatOid(st.Oid), ClientID: clientID, Status: adapter.StatusFilled}
	default:
		return adapter.OrderResponse{Success: false, Message: st.Reason, ClientID: clientID, Status: adapter.StatusRejected}
	}
}

func (a *Adapter) emitSyntheticFill(clientID string, st itemStatus) {
	rec, ok := a.maps.byClient(clientID)
	if !ok || a.onFill == nil {
		return
	}
	price := numeric.ParseDecimalOr(st.AvgPx, decimal.Zero)
	a.recordLastFillPrice(rec.Symbol, price)
	a.onFill(adapter.FillEvent{
		ClientID:    clientID,
		ExchangeID:  formatOid(st.Oid),
		ExecutionID: fmt.Sprintf("place:%d", st.Oid),
		Symbol:      rec.Symbol,
		Quantity:    numeric.ParseDecimalOr(st.TotalSz, decimal.Zero),
		Price:       price,
		Liquidity:   adapter.LiquidityTaker,
		TimestampMs: time.Now().UnixMilli(),
	})
}

// CancelOrder prefers cancelByCloid when a cloid is known, otherwise
// requires the exchange oid plus the asset id resolved from the symbol.
func (a *Adapter) CancelOrder(ctx context.Context, clientID string, symbol, exchangeID *string) (adapter.OrderResponse, error) {
	rec, known := a.maps.byClient(clientID)

	var action interface{}
	switch {
	case known && rec.Cloid != "":
		action = cancelByCloidAction{Type: "cancelByCloid", Cancels: []cancelByCloidWire{{Asset: rec.AssetID, Cloid: rec.Cloid}}}
	case known && rec.HasOid:
		action = cancelAction{Type: "cancel", Cancels: []cancelWire{{Asset: rec.AssetID, Oid: rec.Oid}}}
	case exchangeID != nil && symbol != nil:
		asset, err := a.resolver.Resolve(ctx, *symbol)
		if err != nil {
			e := adapter.NewError(adapter.ReasonSymbolResolutionFailed, err.Error())
			return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: clientID, Status: adapter.StatusRejected}, e
		}
		oid := parseIntOr(*exchangeID, 0)
		action = cancelAction{Type: "cancel", Cancels: []cancelWire{{Asset: asset.ID, Oid: oid}}}
	default:
		e := adapter.NewError(adapter.ReasonNotFound, fmt.Sprintf("cancel: no cloid or oid derivable for client id %q", clientID))
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: clientID, Status: adapter.StatusRejected}, e
	}

	_, err := a.transport.sendAction(ctx, a.feed.getClient(), action)
	if err != nil {
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}
	a.maps.remove(clientID)
	return adapter.OrderResponse{Success: true, Message: "canceled", ClientID: clientID, Status: adapter.StatusCanceled}, nil
}

// ModifyOrder is not implemented natively by this venue; this performs
// cancel-then-place using the original request's context (see DESIGN.md's
// Open Question decision), overriding quantity/price when supplied.
func (a *Adapter) ModifyOrder(ctx context.Context, clientID string, newQty, newPrice *string) (adapter.OrderResponse, error) {
	rec, ok := a.maps.byClient(clientID)
	if !ok {
		e := adapter.NewError(adapter.ReasonNotFound, fmt.Sprintf("modify: no cached request for client id %q", clientID))
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: clientID, Status: adapter.StatusRejected}, e
	}

	if _, err := a.CancelOrder(ctx, clientID, &rec.Symbol, nil); err != nil {
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}

	newReq := rec.Req
	if newQty != nil {
		newReq.Quantity = *newQty
	}
	if newPrice != nil {
		newReq.Price = newPrice
	}

	resp, err := a.PlaceOrder(ctx, newReq)
	if err == nil {
		resp.Status = adapter.StatusReplaced
	}
	return resp, err
}

// QueryOrder reports whether the venue still knows the order, queried by
// oid. An order whose oid is not yet known is reported as not found; no
// query by cloid is made.
func (a *Adapter) QueryOrder(ctx context.Context, clientID string) (adapter.OrderResponse, error) {
	rec, ok := a.maps.byClient(clientID)
	if !ok || !rec.HasOid {
		e := adapter.NewError(adapter.ReasonNotFound, fmt.Sprintf("query: no known oid for client id %q", clientID))
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: clientID, Status: adapter.StatusRejected}, e
	}
	known, err := a.transport.queryOrderStatus(ctx, rec.Oid)
	if err != nil {
		return adapter.OrderResponse{Success: false, Message: err.Error(), ClientID: clientID, Status: adapter.StatusRejected}, err
	}
	if !known {
		e := adapter.NewError(adapter.ReasonNotFound, fmt.Sprintf("order %q not found at venue", clientID))
		return adapter.OrderResponse{Success: false, Message: e.Error(), ClientID: clientID, Status: adapter.StatusRejected}, e
	}
	return adapter.OrderResponse{Success: true, ExchangeID: formatOid(rec.Oid), ClientID: clientID, Status: adapter.StatusNew}, nil
}

// ListOpenOrders POSTs /info openOrders and maps each row's cloid back to
// a caller-facing client id when one is known.
func (a *Adapter) ListOpenOrders(ctx context.Context, category, symbol, settleCoin, baseCoin *string) ([]adapter.OrderResponse, error) {
	reqBody := map[string]interface{}{"type": "openOrders", "user": a.signer.Address().Hex()}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	body, err := a.httpClient.DoWithRetry(ctx, "POST", "/info", payload, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Coin  string `json:"coin"`
		Oid   int64  `json:"oid"`
		Cloid string `json:"cloid"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}

	out := make([]adapter.OrderResponse, 0, len(rows))
	for _, row := range rows {
		sym := resolveCoinSymbol(row.Coin, a.resolveSpotIndex)
		if symbol != nil && *symbol != "" && sym != *symbol {
			continue
		}
		out = append(out, adapter.OrderResponse{
			Success:    true,
			ExchangeID: formatOid(row.Oid),
			ClientID:   a.clientIDForCloid(row.Cloid),
			Status:     adapter.StatusNew,
		})
	}
	return out, nil
}

func (a *Adapter) resolveSpotIndex(index int) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	asset, err := a.resolver.ResolveSpotIndex(ctx, index)
	if err != nil {
		return "", false
	}
	return asset.Name, true
}

func (a *Adapter) clientIDForCloid(cloid string) string {
	if rec, ok := a.maps.byCloidValue(cloid); ok {
		return rec.ClientID
	}
	return cloid
}

func (a *Adapter) recordLastFillPrice(symbol string, price decimal.Decimal) {
	if price.IsZero() {
		return
	}
	a.lastFillMu.Lock()
	a.lastFillPrice[symbol] = price
	a.lastFillMu.Unlock()
}

func (a *Adapter) lastFillPriceFor(symbol string) (decimal.Decimal, bool) {
	a.lastFillMu.Lock()
	defer a.lastFillMu.Unlock()
	p, ok := a.lastFillPrice[symbol]
	return p, ok
}

func (a *Adapter) handleOrderUpdate(ev adapter.OrderUpdateEvent) {
	if a.onOrderUpdate != nil {
		a.onOrderUpdate(ev)
	}
}

func (a *Adapter) handleFill(ev adapter.FillEvent) {
	a.recordLastFillPrice(ev.Symbol, ev.Price)
	if a.onFill != nil {
		a.onFill(ev)
	}
}

// buildOrderWire turns a normalized request into the signed wire shape,
// synthesizing a price for market and best-effort trigger orders per spec
// §4.9's "Market-order fallback" and "Trigger orders".
func (a *Adapter) buildOrderWire(req adapter.OrderRequest, asset assets.Asset, cloid string) (orderWire, error) {
	maxDecimals := numeric.MaxDecimalsForPerp(asset.SzDecimals)
	side := numericSideOf(req.Side)

	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return orderWire{}, fmt.Errorf("invalid quantity %q: %w", req.Quantity, err)
	}
	sizeStr := numeric.FormatSize(qty, asset.SzDecimals)

	wire := orderWire{
		Asset:      asset.ID,
		IsBuy:      req.Side == adapter.SideBuy,
		Size:       sizeStr,
		ReduceOnly: req.ReduceOnly,
		Cloid:      cloid,
	}

	switch req.Type {
	case adapter.OrderTypeStop, adapter.OrderTypeStopLimit:
		triggerRaw, ok := req.Extra["triggerPrice"]
		if !ok || triggerRaw == "" {
			return orderWire{}, fmt.Errorf("trigger order requires extras.triggerPrice")
		}
		triggerDec, err := decimal.NewFromString(triggerRaw)
		if err != nil {
			return orderWire{}, fmt.Errorf("invalid triggerPrice %q: %w", triggerRaw, err)
		}
		triggerPx := numeric.SnapPerpPrice(triggerDec, maxDecimals, side).String()

		isMarket := req.Type == adapter.OrderTypeStop
		var limitPx string
		if !isMarket && req.Price != nil {
			priceDec, err := decimal.NewFromString(*req.Price)
			if err != nil {
				return orderWire{}, fmt.Errorf("invalid price %q: %w", *req.Price, err)
			}
			limitPx = numeric.SnapPerpPrice(priceDec, maxDecimals, side).String()
		} else {
			limitPx = a.bestEffortLimitPrice(req, maxDecimals, side, triggerPx)
		}
		wire.Price = limitPx
		wire.Type = orderTypeWire{Trigger: &triggerWire{IsMarket: isMarket, TriggerPx: triggerPx, Tpsl: tpslFromExtra(req)}}

	case adapter.OrderTypeMarket:
		priceDec, err := a.synthesizeMarketPrice(req)
		if err != nil {
			return orderWire{}, err
		}
		wire.Price = numeric.SnapPerpPrice(priceDec, maxDecimals, side).String()
		wire.Type = orderTypeWire{Limit: &limitWire{Tif: "Ioc"}}

	default:
		if req.Price == nil {
			return orderWire{}, fmt.Errorf("limit order requires a price")
		}
		priceDec, err := decimal.NewFromString(*req.Price)
		if err != nil {
			return orderWire{}, fmt.Errorf("invalid price %q: %w", *req.Price, err)
		}
		wire.Price = numeric.SnapPerpPrice(priceDec, maxDecimals, side).String()
		wire.Type = orderTypeWire{Limit: &limitWire{Tif: tifWireHL(req.TIF, isPostOnly(req))}}
	}

	return wire, nil
}

// synthesizeMarketPrice implements the market-order fallback: since live
// top-of-book is out of scope for this adapter (no market-data feed
// handler, per spec Non-goals), the only available source is the last
// observed fill for the symbol; absent that, the order is rejected.
func (a *Adapter) synthesizeMarketPrice(req adapter.OrderRequest) (decimal.Decimal, error) {
	last, ok := a.lastFillPriceFor(req.Symbol)
	if !ok {
		return decimal.Zero, adapter.NewError(adapter.ReasonInvalidParams, fmt.Sprintf("no reference price available to synthesize a market order for %q", req.Symbol))
	}
	bps := envIntOr("LATENTSPEED_HL_IOC_MARKET_SLIPPAGE_BPS", defaultIOCSlippageBps)
	return applySlippage(last, req.Side, bps), nil
}

// bestEffortLimitPrice derives a stop-market's accompanying limit price
// from the last observed fill (with the same slippage cap as a market
// order), falling back to the trigger price itself if no fill has been
// observed yet.
func (a *Adapter) bestEffortLimitPrice(req adapter.OrderRequest, maxDecimals int, side numeric.Side, triggerPx string) string {
	last, ok := a.lastFillPriceFor(req.Symbol)
	if !ok {
		return triggerPx
	}
	bps := envIntOr("LATENTSPEED_HL_IOC_MARKET_SLIPPAGE_BPS", defaultIOCSlippageBps)
	return numeric.SnapPerpPrice(applySlippage(last, req.Side, bps), maxDecimals, side).String()
}

func applySlippage(price decimal.Decimal, side adapter.Side, bps int) decimal.Decimal {
	factor := decimal.New(int64(bps), -4)
	if side == adapter.SideBuy {
		return price.Mul(decimal.NewFromInt(1).Add(factor))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(factor))
}

func numericSideOf(side adapter.Side) numeric.Side {
	if side == adapter.SideBuy {
		return numeric.SideBuy
	}
	return numeric.SideSell
}

func tifWireHL(tif *adapter.TimeInForce, postOnly bool) string {
	if postOnly {
		return "Alo"
	}
	if tif == nil {
		return "Gtc"
	}
	switch *tif {
	case adapter.TIFIOC, adapter.TIFFOK:
		return "Ioc"
	case adapter.TIFPostOnly:
		return "Alo"
	default:
		return "Gtc"
	}
}

func tpslFromExtra(req adapter.OrderRequest) string {
	filter := strings.ToLower(req.Extra["orderFilter"])
	if strings.HasPrefix(filter, "takeprofit") || strings.HasPrefix(filter, "tp") {
		return "tp"
	}
	return "sl"
}

func orderRoleFromExtra(req adapter.OrderRequest) orderRole {
	if req.Type != adapter.OrderTypeStop && req.Type != adapter.OrderTypeStopLimit {
		return orderRolePrimary
	}
	if tpslFromExtra(req) == "tp" {
		return orderRoleTakeProfit
	}
	return orderRoleStopLoss
}

func isPostOnly(req adapter.OrderRequest) bool {
	return req.TIF != nil && *req.TIF == adapter.TIFPostOnly
}

// isDeterministic classifies the submission mode: market, FOK, IOC, and
// any trigger order bypass batching and are signed and sent immediately;
// everything else (GTC, post-only) is queued.
func isDeterministic(req adapter.OrderRequest) bool {
	if req.Type == adapter.OrderTypeMarket || req.Type == adapter.OrderTypeStop || req.Type == adapter.OrderTypeStopLimit {
		return true
	}
	return req.TIF != nil && (*req.TIF == adapter.TIFIOC || *req.TIF == adapter.TIFFOK)
}

// chainID returns the EIP-712 domain chain id for the phantom-agent
// signature: 42161 for mainnet perps, 421614 for testnet.
func chainID(testnet bool) int64 {
	if testnet {
		return signing.ChainIDArbitrumSepl
	}
	return signing.ChainIDArbitrumOne
}

func batchCadence() time.Duration {
	return envDurationMs("LATENTSPEED_HL_BATCH_CADENCE_MS", defaultBatchCadenceMs)
}

var _ adapter.Adapter = (*Adapter)(nil)
