package numeric

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Side distinguishes the rounding direction used when snapping a price to a
// venue's tick size: buys round up (never pay less than the requested
// price's tick), sells round down.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// MaxDecimalsForPerp computes max_decimals = max(0, 6 - size_decimals),
// the price precision bound for a perpetual with the given size decimals.
func MaxDecimalsForPerp(sizeDecimals int) int {
	d := 6 - sizeDecimals
	if d < 0 {
		return 0
	}
	return d
}

// SnapPerpPrice rounds price to the venue's tick (10^-maxDecimals) in the
// direction dictated by side, then trims to at most 5 significant figures by
// reducing decimals in that same direction (never truncating the integer
// part), so a buy never ends below price and a sell never above it.
// Integer-valued prices are always allowed regardless of significant-figure
// count.
func SnapPerpPrice(price decimal.Decimal, maxDecimals int, side Side) decimal.Decimal {
	tick := decimal.New(1, int32(-maxDecimals))
	units := price.Div(tick)

	var snappedUnits decimal.Decimal
	switch side {
	case SideBuy:
		snappedUnits = units.Ceil()
	default:
		snappedUnits = units.Floor()
	}
	snapped := snappedUnits.Mul(tick)

	return enforceSigFigs(snapped, maxDecimals, side)
}

// enforceSigFigs reduces decimal places (down to 0) until the formatted
// number has at most 5 significant figures, or the value is already an
// integer. Each reduction rounds up for buys and down for sells.
func enforceSigFigs(v decimal.Decimal, maxDecimals int, side Side) decimal.Decimal {
	decimals := maxDecimals
	for decimals >= 0 {
		tick := decimal.New(1, int32(-decimals))
		rounded := v.Div(tick).Floor().Mul(tick)
		if side == SideBuy {
			rounded = v.Div(tick).Ceil().Mul(tick)
		}
		if rounded.IsZero() || isInteger(rounded) || sigFigs(rounded) <= 5 {
			return rounded
		}
		decimals--
	}
	return v.Round(0)
}

func isInteger(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(0))
}

// sigFigs counts significant digits in the decimal's formatted string,
// i.e. digits_before_dot + decimals with leading zeros excluded.
func sigFigs(v decimal.Decimal) int {
	s := v.Abs().String()
	s = strings.Replace(s, ".", "", 1)
	s = strings.TrimLeft(s, "0")
	s = strings.TrimRight(s, "0")
	if s == "" {
		return 1
	}
	return len(s)
}

// TrimSize removes trailing zeros from a fixed-point size string, strips a
// bare trailing dot, and maps the empty string to "0".
func TrimSize(s string) string {
	if s == "" {
		return "0"
	}
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// FormatSize trims a decimal to a fixed-point string the same way TrimSize
// does, given the venue's maximum size decimals.
func FormatSize(v decimal.Decimal, maxDecimals int) string {
	return TrimSize(v.StringFixed(int32(maxDecimals)))
}

// ParseDecimalOr parses s as a decimal, returning fallback on failure.
func ParseDecimalOr(s string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	return d
}

// FormatInt is a small helper used by callers building wire payloads that
// mix numeric and string fields (asset ids, decimals).
func FormatInt(n int) string {
	return strconv.Itoa(n)
}
