package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/internal/dedupe"
	"github.com/latentspeed/gateway/internal/httpclient"
	"github.com/latentspeed/gateway/internal/nonce"
	"github.com/latentspeed/gateway/internal/signing"
	"github.com/latentspeed/gateway/internal/wsclient"
)

const (
	defaultWSPostTimeout     = 1500 * time.Millisecond
	defaultBackoffOn429Ms    = 10000
	defaultConfirmAttempts   = 3
	defaultConfirmIntervalMs = 4000
)

func envDurationMs(key string, fallbackMs int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(fallbackMs) * time.Millisecond
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// exchangeRequest is the signed envelope POSTed to /exchange or sent over
// the WS post channel.
type exchangeRequest struct {
	Action       interface{}       `json:"action"`
	Nonce        int64             `json:"nonce"`
	Signature    signing.Signature `json:"signature"`
	VaultAddress *string           `json:"vaultAddress,omitempty"`
}

type exchangeResponseEnvelope struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type exchangeResponseBody struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type statusesData struct {
	Statuses []json.RawMessage `json:"statuses"`
}

type restingStatus struct {
	Oid int64 `json:"oid"`
}

type filledStatus struct {
	Oid     int64  `json:"oid"`
	AvgPx   string `json:"avgPx"`
	TotalSz string `json:"totalSz"`
}

type itemStatusWire struct {
	Resting *restingStatus `json:"resting,omitempty"`
	Filled  *filledStatus  `json:"filled,omitempty"`
}

// itemStatus is the parsed, kind-tagged result of one orders[i] status.
type itemStatus struct {
	Kind    string // "resting", "filled", "rejected"
	Oid     int64
	AvgPx   string
	TotalSz string
	Reason  string
}

func parseItemStatus(raw json.RawMessage) itemStatus {
	var wire itemStatusWire
	if err := json.Unmarshal(raw, &wire); err == nil {
		if wire.Resting != nil {
			return itemStatus{Kind: "resting", Oid: wire.Resting.Oid}
		}
		if wire.Filled != nil {
			return itemStatus{Kind: "filled", Oid: wire.Filled.Oid, AvgPx: wire.Filled.AvgPx, TotalSz: wire.Filled.TotalSz}
		}
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return itemStatus{Kind: "rejected", Reason: str}
	}
	return itemStatus{Kind: "rejected", Reason: string(raw)}
}

// transport signs and sends actions via the WS post channel when
// connected, falling back to HTTP POST /exchange otherwise, and tracks
// the shared 429 back-off window.
type transport struct {
	http      *httpclient.Client
	signer    signing.Signer
	nonces    *nonce.Manager
	vault     common.Address
	isMainnet bool
	wsTimeout time.Duration
	backoff   *dedupe.Backoff
}

func newTransport(httpClient *httpclient.Client, signer signing.Signer, nonces *nonce.Manager, vault common.Address, isMainnet bool) *transport {
	return &transport{
		http:      httpClient,
		signer:    signer,
		nonces:    nonces,
		vault:     vault,
		isMainnet: isMainnet,
		wsTimeout: envDurationMs("LATENTSPEED_HL_WS_POST_TIMEOUT_MS", int(defaultWSPostTimeout/time.Millisecond)),
		backoff:   &dedupe.Backoff{},
	}
}

// sendAction signs action and sends it, preferring ws when non-nil and
// connected. Returns the raw response.data bytes for the caller to parse
// per action kind.
func (t *transport) sendAction(ctx context.Context, ws *wsclient.Client, action interface{}) (exchangeResponseBody, error) {
	if active, wait := t.backoff.Active(); active {
		return exchangeResponseBody{}, adapter.NewError(adapter.ReasonRateLimited, fmt.Sprintf("back-off active for %s", wait))
	}

	n := t.nonces.Next()
	sig, err := t.signer.SignL1Action(action, t.vault, n, t.isMainnet)
	if err != nil {
		return exchangeResponseBody{}, adapter.NewError(adapter.ReasonSignerUnavailable, err.Error())
	}

	req := exchangeRequest{Action: action, Nonce: n, Signature: sig}
	if t.vault != (common.Address{}) {
		addr := t.vault.Hex()
		req.VaultAddress = &addr
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return exchangeResponseBody{}, fmt.Errorf("marshal exchange request: %w", err)
	}

	var raw json.RawMessage
	if ws != nil && ws.Connected() {
		reply, wsErr := ws.Post(ctx, "action", payload, t.wsTimeout)
		if wsErr == nil {
			raw = reply
		} else {
			log.Warn().Err(wsErr).Msg("hyperliquid ws post failed, falling back to http")
		}
	}
	if raw == nil {
		body, httpErr := t.http.DoWithRetry(ctx, "POST", "/exchange", payload, map[string]string{"Content-Type": "application/json"})
		if httpErr != nil {
			if strings.Contains(httpErr.Error(), "HTTP status 429") {
				t.backoff.Trip(envDurationMs("LATENTSPEED_HL_ON_429_BACKOFF_MS", defaultBackoffOn429Ms))
				return exchangeResponseBody{}, adapter.NewError(adapter.ReasonRateLimited, httpErr.Error())
			}
			return exchangeResponseBody{}, adapter.NewError(adapter.ReasonTransportFailed, httpErr.Error())
		}
		raw = body
	}

	var env exchangeResponseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return exchangeResponseBody{}, fmt.Errorf("decode exchange response: %w", err)
	}
	if env.Status != "ok" {
		return exchangeResponseBody{}, adapter.NewError(adapter.ReasonVenueRejected, string(env.Response))
	}
	var body exchangeResponseBody
	if err := json.Unmarshal(env.Response, &body); err != nil {
		return exchangeResponseBody{}, fmt.Errorf("decode exchange response body: %w", err)
	}
	return body, nil
}

// queryOrderStatus powers confirm_resting_async: POSTs /info orderStatus by
// oid and reports whether the venue still knows the order.
func (t *transport) queryOrderStatus(ctx context.Context, oid int64) (bool, error) {
	reqBody := map[string]interface{}{
		"type": "orderStatus",
		"user": t.signer.Address().Hex(),
		"oid":  oid,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return false, err
	}
	body, err := t.http.DoWithRetry(ctx, "POST", "/info", payload, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return false, err
	}
	var resp struct {
		Status string          `json:"status"`
		Order  json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, err
	}
	return resp.Status == "order" && len(resp.Order) > 0, nil
}

// confirmRestingAsync is an out-of-band safety net: up to three attempts
// spaced 4s apart, emitting a synthetic "new" update if the venue still
// knows the order.
func (t *transport) confirmRestingAsync(clientID, exchangeID string, oid int64, onUpdate adapter.OrderUpdateCallback) {
	attempts := envIntOr("LATENTSPEED_CONFIRM_RESTING_ATTEMPTS", defaultConfirmAttempts)
	interval := envDurationMs("LATENTSPEED_CONFIRM_RESTING_INTERVAL_MS", defaultConfirmIntervalMs)
	go func() {
		for attempt := 0; attempt < attempts; attempt++ {
			time.Sleep(interval)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			known, err := t.queryOrderStatus(ctx, oid)
			cancel()
			if err == nil && known {
				if onUpdate != nil {
					onUpdate(adapter.OrderUpdateEvent{
						ClientID:    clientID,
						ExchangeID:  exchangeID,
						Status:      adapter.StatusNew,
						TimestampMs: time.Now().UnixMilli(),
					})
				}
				return
			}
		}
	}()
}

// metaGetter adapts transport's http client to internal/assets.HTTPMetaFetcher's
// Get function shape.
func metaGetter(c *httpclient.Client) func(ctx context.Context, path string, body []byte) ([]byte, error) {
	return func(ctx context.Context, path string, body []byte) ([]byte, error) {
		return c.DoWithRetry(ctx, "POST", path, body, map[string]string{"Content-Type": "application/json"})
	}
}

func formatOid(oid int64) string {
	return strconv.FormatInt(oid, 10)
}
