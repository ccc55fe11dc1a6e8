// Package numeric implements the tick/step rounding and symbol
// canonicalization rules shared by every venue adapter.
package numeric

import (
	"sort"
	"strings"
)

// knownQuotes is checked longest-match-first so "USD" doesn't shadow a
// symbol that actually ends in a longer quote sharing that suffix (e.g.
// FDUSD). The literal order below doesn't matter; init sorts it.
var knownQuotes = []string{"USDT", "USDC", "BTC", "ETH", "USD", "EUR", "DAI", "FDUSD"}

func init() {
	sort.Slice(knownQuotes, func(i, j int) bool {
		return len(knownQuotes[i]) > len(knownQuotes[j])
	})
}

// ParsedSymbol is a symbol split into base/quote with the product flag that
// was supplied alongside it.
type ParsedSymbol struct {
	Base      string
	Quote     string
	Perpetual bool
}

// Parse normalizes any of the supported input shapes (compact ETHUSDT,
// slashed ETH/USDT, hyphenated ETH-USDT, perpetual-suffixed
// ETH-USDT-PERP, ccxt-settle ETH/USDT:USDT) into a ParsedSymbol. If no known
// quote matches, Base holds the uppercased input and Quote is empty.
func Parse(symbol string, perpetual bool) ParsedSymbol {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	// Strip ccxt settle suffix: ETH/USDT:USDT -> ETH/USDT
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	// Strip perpetual suffix.
	s = strings.TrimSuffix(s, "-PERP")

	// Normalize separators to nothing for matching, but remember which one
	// was present so compact forms without one still work.
	compact := strings.NewReplacer("/", "", "-", "").Replace(s)

	for _, q := range knownQuotes {
		if strings.HasSuffix(compact, q) && len(compact) > len(q) {
			base := compact[:len(compact)-len(q)]
			return ParsedSymbol{Base: base, Quote: q, Perpetual: perpetual}
		}
	}
	return ParsedSymbol{Base: compact, Quote: "", Perpetual: perpetual}
}

// Compact renders BASEQUOTE with no separator, e.g. "ETHUSDT".
func (p ParsedSymbol) Compact() string {
	return p.Base + p.Quote
}

// Hyphen renders BASE-QUOTE, with a -PERP suffix when Perpetual is set.
func (p ParsedSymbol) Hyphen() string {
	if p.Quote == "" {
		return p.Base
	}
	h := p.Base + "-" + p.Quote
	if p.Perpetual {
		h += "-PERP"
	}
	return h
}

// ToCompact is a convenience wrapper equivalent to Parse(s, perpetual).Compact().
func ToCompact(symbol string, perpetual bool) string {
	return Parse(symbol, perpetual).Compact()
}

// ToHyphen is a convenience wrapper equivalent to Parse(s, perpetual).Hyphen().
func ToHyphen(symbol string, perpetual bool) string {
	return Parse(symbol, perpetual).Hyphen()
}
