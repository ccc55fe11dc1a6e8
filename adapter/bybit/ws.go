package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/latentspeed/gateway/internal/signing"
)

// privateWS owns the one private-WS connection: auth, subscribe, ping,
// and an exponential-backoff-with-jitter reconnect loop. It is a bespoke
// raw gorilla/websocket client (rather than internal/wsclient) because
// Bybit's wire shape — {op,args}/{success} auth, bare {"op":"ping"}
// heartbeat, no request/reply correlation — doesn't fit the post/subscribe
// id-correlation contract internal/wsclient models for Hyperliquid.
type privateWS struct {
	url    string
	signer *signing.CEXSigner

	onMessage func(topic string, data json.RawMessage)
	onReady   func() // fired after successful auth+subscribe, drives catch-up

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	lastRecv  time.Time
}

func newPrivateWS(url string, signer *signing.CEXSigner) *privateWS {
	return &privateWS{url: url, signer: signer}
}

func (w *privateWS) isConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// run maintains the connection until ctx is cancelled, reconnecting with
// base 250ms, doubling, cap 30s, plus 0-250ms jitter.
func (w *privateWS) run(ctx context.Context) {
	backoff := 250 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connectAndAuth(ctx); err != nil {
			log.Error().Err(err).Str("url", w.url).Msg("bybit private ws connect/auth failed")
			jitter := time.Duration(rand.Intn(250)) * time.Millisecond
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = 250 * time.Millisecond

		w.readLoop(ctx)

		w.mu.Lock()
		w.connected = false
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
			log.Warn().Msg("bybit private ws disconnected, reconnecting")
		}
	}
}

func (w *privateWS) connectAndAuth(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	apiKey, expires, sig := w.signer.WSAuthPayload()
	authMsg := map[string]interface{}{
		"op":   "auth",
		"args": []interface{}{apiKey, expires, sig},
	}
	if err := conn.WriteJSON(authMsg); err != nil {
		conn.Close()
		return fmt.Errorf("write auth: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var authResp struct {
		Success bool   `json:"success"`
		RetMsg  string `json:"ret_msg"`
	}
	if err := conn.ReadJSON(&authResp); err != nil {
		conn.Close()
		return fmt.Errorf("read auth response: %w", err)
	}
	conn.SetReadDeadline(time.Time{})
	if !authResp.Success {
		conn.Close()
		return fmt.Errorf("auth rejected: %s", authResp.RetMsg)
	}

	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{"order", "execution"},
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.lastRecv = time.Now()
	w.mu.Unlock()

	go w.pingLoop(ctx)

	log.Info().Str("url", w.url).Msg("bybit private ws connected")
	if w.onReady != nil {
		w.onReady()
	}
	return nil
}

func (w *privateWS) readLoop(ctx context.Context) {
	for {
		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("bybit private ws read error")
			}
			return
		}
		w.mu.Lock()
		w.lastRecv = time.Now()
		w.mu.Unlock()

		var msg wsTopicMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Topic == "" {
			continue // pong/ack frames carry no "topic"
		}
		if w.onMessage != nil {
			w.onMessage(msg.Topic, msg.Data)
		}
	}
}

// pingLoop sends {"op":"ping"} every 20s; the connection is considered
// dead if no pong/data arrives within 30s, which the read loop's error
// path already surfaces by returning and triggering a reconnect.
func (w *privateWS) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			conn := w.conn
			quiet := time.Since(w.lastRecv) >= 30*time.Second
			w.mu.Unlock()
			if conn == nil {
				return
			}
			if quiet {
				conn.Close() // forces readLoop to return and reconnect
				return
			}
			if err := conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *privateWS) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
	}
}
