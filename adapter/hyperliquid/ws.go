package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/internal/dedupe"
	"github.com/latentspeed/gateway/internal/numeric"
	"github.com/latentspeed/gateway/internal/wsclient"
)

const (
	resubscribeQuietDuration = 15 * time.Second
	reconnectQuietDuration   = 45 * time.Second
	livenessTick             = 2 * time.Second
)

var privateChannels = []string{"orderUpdates", "userEvents", "userFills"}

// privateFeed owns the Hyperliquid private-WS connection: subscribe-on-
// connect, snapshot/staleness filtering, status normalization, cross-stream
// fill dedup, and the resubscribe/reconnect liveness policy.
type privateFeed struct {
	userAddress     string
	resolveSpot     func(index int) (string, bool)
	resolveClientID func(cloid string) string
	fillDedup       *dedupe.Set

	onOrderEvent adapter.OrderUpdateCallback
	onFillEvent  adapter.FillCallback
	onError      adapter.ErrorCallback

	clientMu sync.RWMutex
	client   *wsclient.Client
	url      string

	subscribedAtMs atomic.Int64
	lastEventMs    atomic.Int64
	lastResubMs    atomic.Int64
}

func newPrivateFeed(url, userAddress string, fillDedup *dedupe.Set, resolveSpot func(int) (string, bool), resolveClientID func(string) string) *privateFeed {
	pf := &privateFeed{
		userAddress:     userAddress,
		resolveSpot:     resolveSpot,
		resolveClientID: resolveClientID,
		fillDedup:       fillDedup,
		url:             url,
	}
	pf.client = wsclient.NewWithCodec(url, pf.handleMessage, wireCodec{})
	return pf
}

// getClient returns the currently active wsclient.Client for
// transport.sendAction to post signed actions over, preferring the WS
// post client when connected.
func (pf *privateFeed) getClient() *wsclient.Client {
	pf.clientMu.RLock()
	defer pf.clientMu.RUnlock()
	return pf.client
}

func (pf *privateFeed) start(ctx context.Context) {
	go pf.getClient().Run(ctx)
	go pf.livenessLoop(ctx)
}

func (pf *privateFeed) livenessLoop(ctx context.Context) {
	ticker := time.NewTicker(livenessTick)
	defer ticker.Stop()
	wasConnected := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client := pf.getClient()
			connected := client.Connected()

			if connected && !wasConnected {
				pf.subscribeAll(client)
			}
			wasConnected = connected
			if !connected {
				continue
			}

			quiet := time.Since(lastEventTime(pf.lastEventMs.Load()))
			switch {
			case quiet >= reconnectQuietDuration:
				log.Warn().Dur("quiet", quiet).Msg("hyperliquid private ws recycling connection")
				pf.recycle(ctx)
				wasConnected = false
			case quiet >= resubscribeQuietDuration:
				lastResub := lastEventTime(pf.lastResubMs.Load())
				if time.Since(lastResub) >= resubscribeQuietDuration {
					log.Warn().Dur("quiet", quiet).Msg("hyperliquid private ws resubscribing")
					pf.subscribeAll(client)
				}
			}
		}
	}
}

func lastEventTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (pf *privateFeed) subscribeAll(client *wsclient.Client) {
	fields, _ := json.Marshal(map[string]string{"user": pf.userAddress})
	for _, channel := range privateChannels {
		if err := client.Subscribe(channel, fields); err != nil {
			pf.reportError(err, "subscribe "+channel)
		}
	}
	now := time.Now().UnixMilli()
	pf.subscribedAtMs.Store(now)
	pf.lastResubMs.Store(now)
}

// recycle replaces the current wsclient.Client with a fresh one, per spec
// §5's "WS subscriptions cannot be cancelled individually; the adapter
// recycles the WS client to clear state."
func (pf *privateFeed) recycle(ctx context.Context) {
	pf.clientMu.Lock()
	old := pf.client
	pf.client = wsclient.NewWithCodec(pf.url, pf.handleMessage, wireCodec{})
	newClient := pf.client
	pf.clientMu.Unlock()

	old.Stop()
	go newClient.Run(ctx)
}

func (pf *privateFeed) reportError(err error, context string) {
	if pf.onError != nil {
		pf.onError(err, context)
	}
}

func (pf *privateFeed) handleMessage(_ []byte, env wsclient.Envelope) {
	pf.lastEventMs.Store(time.Now().UnixMilli())
	staleCutoff := pf.subscribedAtMs.Load() - 1000

	switch env.Type {
	case "orderUpdates":
		var rows []orderUpdateRow
		if err := json.Unmarshal(env.Payload, &rows); err != nil {
			pf.reportError(err, "decode orderUpdates")
			return
		}
		for _, row := range rows {
			if row.StatusTimestamp != 0 && row.StatusTimestamp < staleCutoff {
				continue
			}
			pf.emitOrderUpdate(row)
		}
	case "userEvents":
		var payload userEventsPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return // userEvents also carries non-fill event kinds this adapter ignores
		}
		for _, fill := range payload.Fills {
			if fill.Time != 0 && fill.Time < staleCutoff {
				continue
			}
			pf.emitFill(fill)
		}
	case "userFills":
		var payload userFillsPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			pf.reportError(err, "decode userFills")
			return
		}
		if payload.IsSnapshot {
			return
		}
		for _, fill := range payload.Fills {
			if fill.Time != 0 && fill.Time < staleCutoff {
				continue
			}
			pf.emitFill(fill)
		}
	}
}

func (pf *privateFeed) emitOrderUpdate(row orderUpdateRow) {
	if pf.onOrderEvent == nil {
		return
	}
	status, reason := normalizeOrderStatus(row.Status)
	pf.onOrderEvent(adapter.OrderUpdateEvent{
		ClientID:    pf.resolveClientID(row.Order.Cloid),
		ExchangeID:  formatOid(row.Order.Oid),
		Status:      status,
		Reason:      reason,
		TimestampMs: row.StatusTimestamp,
	})
}

func (pf *privateFeed) emitFill(row fillRow) {
	tid := fmt.Sprintf("%d", row.Tid)
	if !pf.fillDedup.Insert(tid) {
		return
	}
	if pf.onFillEvent == nil {
		return
	}
	symbol := resolveCoinSymbol(row.Coin, pf.resolveSpot)
	pf.onFillEvent(adapter.FillEvent{
		ClientID:    pf.resolveClientID(row.Cloid),
		ExchangeID:  formatOid(row.Oid),
		ExecutionID: tid,
		Symbol:      symbol,
		Side:        sideFromWire(row.Side),
		Price:       numeric.ParseDecimalOr(row.Px, decimal.Zero),
		Quantity:    numeric.ParseDecimalOr(row.Sz, decimal.Zero),
		Fee:         numeric.ParseDecimalOr(row.Fee, decimal.Zero),
		FeeCurrency: row.FeeToken,
		Liquidity:   liquidityFromCrossed(row.Crossed),
		TimestampMs: row.Time,
	})
}
