package wsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer ignores every "ping" request and replies to every other
// typed request by echoing back the same id with type "ack".
func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			if env.Type == "ping" {
				continue
			}
			reply := Envelope{ID: env.ID, Type: "ack", Payload: env.Payload}
			b, _ := json.Marshal(reply)
			conn.WriteMessage(websocket.TextMessage, b)
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestPostCorrelatesReply(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := New(wsURL(srv.URL), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for !c.Connected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !c.Connected() {
		t.Fatal("client never connected")
	}

	reply, err := c.Post(ctx, "subscribe_test", json.RawMessage(`{"x":1}`), time.Second)
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(reply, &got); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if got["x"] != 1 {
		t.Fatalf("expected echoed payload, got %v", got)
	}
}

func TestSubscribeFailsWhenNotConnected(t *testing.T) {
	c := New("ws://127.0.0.1:1/nope", nil)
	if err := c.Subscribe("orderUpdates", nil); err == nil {
		t.Fatal("expected error when not connected")
	}
}

func TestUnsolicitedMessageReachesHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		push := Envelope{Type: "orderUpdate", Payload: json.RawMessage(`{"status":"new"}`)}
		b, _ := json.Marshal(push)
		conn.WriteMessage(websocket.TextMessage, b)
		// Keep the connection open briefly so the client can read it.
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	received := make(chan Envelope, 1)
	c := New(wsURL(srv.URL), func(raw []byte, env Envelope) {
		received <- env
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case env := <-received:
		if env.Type != "orderUpdate" {
			t.Fatalf("expected orderUpdate, got %q", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received unsolicited message")
	}
}
