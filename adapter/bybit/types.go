package bybit

import (
	"encoding/json"
	"strings"

	"github.com/latentspeed/gateway/adapter"
)

// placeOrderWire is the REST /v5/order/create request body.
type placeOrderWire struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	OrderLinkID string `json:"orderLinkId"`
	ReduceOnly  bool   `json:"reduceOnly,omitempty"`
	TriggerPrice string `json:"triggerPrice,omitempty"`
}

type placeOrderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

type cancelOrderWire struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	OrderID     string `json:"orderId,omitempty"`
	OrderLinkID string `json:"orderLinkId,omitempty"`
}

type amendOrderWire struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	OrderID     string `json:"orderId,omitempty"`
	OrderLinkID string `json:"orderLinkId,omitempty"`
	Qty         string `json:"qty,omitempty"`
	Price       string `json:"price,omitempty"`
}

// orderWire is one row of /v5/order/realtime (query), /v5/order/history,
// or the private WS "order" topic payload.
type orderWire struct {
	Category      string `json:"category"`
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	OrderLinkID   string `json:"orderLinkId"`
	Side          string `json:"side"`
	OrderType     string `json:"orderType"`
	Price         string `json:"price"`
	Qty           string `json:"qty"`
	CumExecQty    string `json:"cumExecQty"`
	AvgPrice      string `json:"avgPrice"`
	TimeInForce   string `json:"timeInForce"`
	OrderStatus   string `json:"orderStatus"`
	ReduceOnly    bool   `json:"reduceOnly"`
	RejectReason  string `json:"rejectReason"`
	UpdatedTimeMs string `json:"updatedTime"`
}

// executionWire is one row of /v5/execution/list or the private WS
// "execution" topic payload.
type executionWire struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	ExecID      string `json:"execId"`
	Side        string `json:"side"`
	ExecPrice   string `json:"execPrice"`
	ExecQty     string `json:"execQty"`
	ExecFee     string `json:"execFee"`
	FeeCurrency string `json:"feeCurrency"`
	IsMaker     bool   `json:"isMaker"`
	ExecTimeMs  string `json:"execTime"`
}

// wsTopicMessage is the shape every private-WS push carries: a topic name
// and an array of rows whose schema depends on the topic.
type wsTopicMessage struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// statusMap translates the venue's inbound order-status values.
var statusMap = map[string]adapter.OrderStatus{
	"New":                adapter.StatusNew,
	"PartiallyFilled":    adapter.StatusNew,
	"Filled":             adapter.StatusFilled,
	"Cancelled":          adapter.StatusCanceled,
	"Expired":            adapter.StatusExpired,
	"ExpiredInMatch":     adapter.StatusExpired,
	"Rejected":           adapter.StatusRejected,
	"Amended":            adapter.StatusReplaced,
	"Replaced":           adapter.StatusReplaced,
}

func mapStatus(bybitStatus string) adapter.OrderStatus {
	if s, ok := statusMap[bybitStatus]; ok {
		return s
	}
	return adapter.OrderStatus(strings.ToLower(bybitStatus))
}
