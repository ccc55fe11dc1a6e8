package hyperliquid

import (
	"strings"

	"github.com/latentspeed/gateway/adapter"
)

// orderUpdateRow is one entry of the "orderUpdates" private-WS channel.
type orderUpdateRow struct {
	Order struct {
		Coin    string `json:"coin"`
		Side    string `json:"side"`
		LimitPx string `json:"limitPx"`
		Sz      string `json:"sz"`
		Oid     int64  `json:"oid"`
		Cloid   string `json:"cloid"`
	} `json:"order"`
	Status          string `json:"status"`
	StatusTimestamp int64  `json:"statusTimestamp"`
}

// fillRow is one execution as carried by both "userEvents".fills and
// "userFills".fills — the two streams overlap and are deduped on tid.
type fillRow struct {
	Coin     string `json:"coin"`
	Px       string `json:"px"`
	Sz       string `json:"sz"`
	Side     string `json:"side"`
	Time     int64  `json:"time"`
	Oid      int64  `json:"oid"`
	Cloid    string `json:"cloid"`
	Crossed  bool   `json:"crossed"`
	Fee      string `json:"fee"`
	Tid      int64  `json:"tid"`
	FeeToken string `json:"feeToken"`
}

type userEventsPayload struct {
	Fills []fillRow `json:"fills"`
}

type userFillsPayload struct {
	IsSnapshot bool      `json:"isSnapshot"`
	Fills      []fillRow `json:"fills"`
}

// normalizeOrderStatus translates the venue's private-WS status table.
func normalizeOrderStatus(raw string) (status adapter.OrderStatus, reason string) {
	switch raw {
	case "open":
		return adapter.StatusNew, ""
	case "filled":
		return adapter.StatusFilled, ""
	case "canceled", "cancelled", "marginCanceled", "scheduledCancel":
		return adapter.StatusCanceled, ""
	case "triggered":
		return adapter.StatusAccepted, ""
	case "rejected":
		return adapter.StatusRejected, ""
	default:
		if strings.HasSuffix(raw, "Rejected") {
			return adapter.StatusRejected, raw
		}
		return adapter.OrderStatus(strings.ToLower(raw)), ""
	}
}

func sideFromWire(raw string) adapter.Side {
	if raw == "B" {
		return adapter.SideBuy
	}
	return adapter.SideSell
}

func liquidityFromCrossed(crossed bool) adapter.Liquidity {
	if crossed {
		return adapter.LiquidityTaker
	}
	return adapter.LiquidityMaker
}

// resolveCoinSymbol turns a wire "coin" field into a tradable symbol: a
// plain perp name passes through unchanged; a coin of the form "@N" names a
// spot pair by its numeric index.
func resolveCoinSymbol(coin string, resolveSpotIndex func(index int) (string, bool)) string {
	if strings.HasPrefix(coin, "@") {
		idx := parseIntOr(coin[1:], -1)
		if idx >= 0 {
			if symbol, ok := resolveSpotIndex(int(idx)); ok {
				return symbol
			}
		}
	}
	return coin
}

func parseIntOr(s string, fallback int64) int64 {
	n := int64(0)
	neg := false
	if s == "" {
		return fallback
	}
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}
