package hyperliquid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/latentspeed/gateway/internal/wsclient"
)

// wireCodec implements wsclient.Codec for Hyperliquid's nested
// {method,id,request} / {channel,data} wire shape: the reply-correlation
// id lives at data.id inside a channel=="post" envelope, not at the
// envelope's top level the way wsclient.DefaultCodec assumes.
type wireCodec struct{}

type postRequestFrame struct {
	Method  string          `json:"method"`
	ID      int64           `json:"id"`
	Request postRequestBody `json:"request"`
}

type postRequestBody struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type subscribeFrame struct {
	Method       string          `json:"method"`
	Subscription json.RawMessage `json:"subscription"`
}

type inboundFrame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type postReplyData struct {
	ID       int64           `json:"id"`
	Response json.RawMessage `json:"response"`
}

func (wireCodec) EncodePost(id, msgType string, payload json.RawMessage) ([]byte, error) {
	n, err := idToInt(id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(postRequestFrame{
		Method:  "post",
		ID:      n,
		Request: postRequestBody{Type: msgType, Payload: payload},
	})
}

// EncodeSubscribe merges {"type": msgType} with fields' own keys into one
// subscription object, e.g. {"type":"orderUpdates","user":"0x..."}.
func (wireCodec) EncodeSubscribe(msgType string, fields json.RawMessage) ([]byte, error) {
	merged := map[string]interface{}{"type": msgType}
	if len(fields) > 0 {
		var extra map[string]interface{}
		if err := json.Unmarshal(fields, &extra); err == nil {
			for k, v := range extra {
				merged[k] = v
			}
		}
	}
	subBytes, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return json.Marshal(subscribeFrame{Method: "subscribe", Subscription: subBytes})
}

func (wireCodec) EncodePing() []byte {
	b, _ := json.Marshal(map[string]string{"method": "ping"})
	return b
}

func (wireCodec) Decode(raw []byte) wsclient.Frame {
	var in inboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		return wsclient.Frame{}
	}
	if in.Channel == "pong" {
		return wsclient.Frame{IsPong: true}
	}
	if in.Channel == "post" {
		var reply postReplyData
		if err := json.Unmarshal(in.Data, &reply); err == nil {
			return wsclient.Frame{ReplyID: intToID(reply.ID), Reply: reply.Response}
		}
	}
	return wsclient.Frame{Env: wsclient.Envelope{Type: in.Channel, Payload: in.Data}}
}

func idToInt(id string) (int64, error) {
	trimmed := strings.TrimPrefix(id, "w")
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("hyperliquid codec: non-numeric post id %q", id)
	}
	return n, nil
}

func intToID(n int64) string {
	return "w" + strconv.FormatInt(n, 10)
}
