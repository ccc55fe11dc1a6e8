// Package wsclient implements the single-connection, id-correlated
// WebSocket post/subscribe client shared by the private venue feeds:
// one TLS socket, request/reply correlation by id, a heartbeat that
// pings after 50s of silence, and an exponential-backoff reconnect loop.
//
// Venues disagree on where the correlation id and method name live in the
// wire frame (Hyperliquid nests it under "data.id"; a flat venue might put
// it at the top level), so the wire shape is pluggable via Codec. Callers
// that don't need a custom shape get DefaultCodec's flat {id,type,payload}
// envelope for free.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	heartbeatSilence = 50 * time.Second
	defaultPostWait  = 5 * time.Second
)

// Envelope is the minimal post/reply/subscription message shape: a
// correlation id on requests and replies, a free-form type, and a payload.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Frame is what a Codec extracts from one inbound raw message: either a
// correlated reply to a pending Post (ReplyID set, Reply carries the
// response payload), a heartbeat pong to swallow silently (IsPong), or an
// unsolicited message to hand to the MessageHandler (Envelope).
type Frame struct {
	IsPong  bool
	ReplyID string
	Reply   json.RawMessage
	Env     Envelope
}

// Codec controls how post/subscribe requests are encoded on the wire and
// how inbound frames are decoded and correlated. DefaultCodec implements
// this package's own flat {id,type,payload} shape.
type Codec interface {
	EncodePost(id string, msgType string, payload json.RawMessage) ([]byte, error)
	EncodeSubscribe(msgType string, fields json.RawMessage) ([]byte, error)
	EncodePing() []byte
	Decode(raw []byte) Frame
}

// DefaultCodec is the flat envelope shape used when no venue-specific
// Codec is supplied.
type DefaultCodec struct{}

func (DefaultCodec) EncodePost(id, msgType string, payload json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{ID: id, Type: msgType, Payload: payload})
}

func (DefaultCodec) EncodeSubscribe(msgType string, fields json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, Payload: fields})
}

func (DefaultCodec) EncodePing() []byte {
	b, _ := json.Marshal(Envelope{Type: "ping"})
	return b
}

func (DefaultCodec) Decode(raw []byte) Frame {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Frame{}
	}
	if env.Type == "pong" {
		return Frame{IsPong: true}
	}
	if env.ID != "" {
		return Frame{ReplyID: env.ID, Reply: env.Payload, Env: env}
	}
	return Frame{Env: env}
}

// MessageHandler is invoked for every inbound message that isn't claimed
// by a pending Post() reply or a pong. raw is the untouched wire frame, so
// a venue-specific handler can re-decode it beyond what Frame.Env carries.
type MessageHandler func(raw []byte, env Envelope)

// Client is a single reconnecting WebSocket connection with request/reply
// correlation layered on top.
type Client struct {
	url     string
	handler MessageHandler
	codec   Codec

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	pending   map[string]chan json.RawMessage
	pendingMu sync.Mutex

	lastRecv atomic.Int64 // unix millis

	idSeq atomic.Uint64

	stopCh chan struct{}
	once   sync.Once
}

// New creates a client targeting url using DefaultCodec. handler receives
// every message that is not a correlated reply to Post() and not a pong.
func New(url string, handler MessageHandler) *Client {
	return NewWithCodec(url, handler, DefaultCodec{})
}

// NewWithCodec creates a client targeting url with a venue-specific wire
// Codec — Hyperliquid's adapter uses this for its nested channel/data.id
// reply shape.
func NewWithCodec(url string, handler MessageHandler, codec Codec) *Client {
	if codec == nil {
		codec = DefaultCodec{}
	}
	return &Client{
		url:     url,
		handler: handler,
		codec:   codec,
		pending: make(map[string]chan json.RawMessage),
		stopCh:  make(chan struct{}),
	}
}

// Connected reports whether the socket is currently believed healthy. It
// flips false the instant a read or write fails.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run dials and maintains the connection until ctx is cancelled,
// reconnecting with exponential backoff and jitter on failure.
func (c *Client) Run(ctx context.Context) {
	backoff := 250 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connect(ctx); err != nil {
			log.Error().Err(err).Str("url", c.url).Msg("websocket dial failed")
			c.connected.Store(false)
			jitter := time.Duration(time.Now().UnixNano()%250) * time.Millisecond
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
		c.readLoop(ctx)
		c.connected.Store(false)

		select {
		case <-ctx.Done():
			return
		default:
			log.Warn().Str("url", c.url).Msg("websocket disconnected, reconnecting")
		}
	}
}

// Stop tears down the connection permanently.
func (c *Client) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
}

func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.lastRecv.Store(time.Now().UnixMilli())

	go c.heartbeatLoop(ctx)
	log.Info().Str("url", c.url).Msg("websocket connected")
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("websocket read error")
			}
			return
		}
		c.lastRecv.Store(time.Now().UnixMilli())
		c.dispatch(data)
	}
}

func (c *Client) dispatch(raw []byte) {
	frame := c.codec.Decode(raw)
	if frame.IsPong {
		return
	}

	if frame.ReplyID != "" {
		c.pendingMu.Lock()
		ch, ok := c.pending[frame.ReplyID]
		if ok {
			delete(c.pending, frame.ReplyID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- frame.Reply
			return
		}
	}

	if c.handler != nil {
		c.handler(raw, frame.Env)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			last := time.UnixMilli(c.lastRecv.Load())
			if time.Since(last) >= heartbeatSilence {
				c.ping()
			}
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) ping() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, c.codec.EncodePing()); err != nil {
		log.Warn().Err(err).Msg("ping write failed")
		c.connected.Store(false)
	}
}

func (c *Client) nextID() string {
	return fmt.Sprintf("w%d", c.idSeq.Add(1))
}

// Post sends a typed request and waits up to timeout (defaultPostWait when
// zero) for the correlated reply's payload.
func (c *Client) Post(ctx context.Context, msgType string, payload json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = defaultPostWait
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !c.connected.Load() {
		return nil, fmt.Errorf("wsclient: not connected")
	}

	id := c.nextID()
	reply := make(chan json.RawMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = reply
	c.pendingMu.Unlock()

	b, err := c.codec.EncodePost(id, msgType, payload)
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		c.connected.Store(false)
		return nil, fmt.Errorf("write: %w", err)
	}

	select {
	case reply := <-reply:
		return reply, nil
	case <-time.After(timeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("wsclient: post %q timed out after %s", msgType, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe sends a fire-and-forget subscription request; replies (if any)
// arrive through the handler, not a correlated channel, since the venue's
// subscription acks are typically untagged.
func (c *Client) Subscribe(msgType string, fields json.RawMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !c.connected.Load() {
		return fmt.Errorf("wsclient: not connected")
	}
	b, err := c.codec.EncodeSubscribe(msgType, fields)
	if err != nil {
		return fmt.Errorf("encode subscribe: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		c.connected.Store(false)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// SendRaw writes a pre-encoded frame directly, for requests a venue's
// Codec doesn't model as post/subscribe (e.g. Bybit's bespoke auth op).
func (c *Client) SendRaw(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !c.connected.Load() {
		return fmt.Errorf("wsclient: not connected")
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.connected.Store(false)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
