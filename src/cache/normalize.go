package cache

import "strings"

// -----------------------------------------------------------------------------
// Symbol Normalization
// -----------------------------------------------------------------------------

// Venue suffixes stripped from inbound symbols so that equivalent instruments
// compare equal across sources (e.g. TradingView "BTCUSDT.P" vs "BTCUSDT").
var venueSuffixes = []string{".P", ".PERP", "-PERP", "-SWAP"}

// -----------------------------------------------------------------------------

// NormalizeSymbol uppercases a raw symbol, drops an exchange prefix
// ("BLOFIN:BTCUSDT.P") and trims venue suffixes. The empty string stays empty.
func NormalizeSymbol(raw string) string {
	sym := strings.ToUpper(strings.TrimSpace(raw))

	if idx := strings.LastIndex(sym, ":"); idx >= 0 {
		sym = sym[idx+1:]
	}

	for _, suffix := range venueSuffixes {
		if strings.HasSuffix(sym, suffix) && len(sym) > len(suffix) {
			sym = strings.TrimSuffix(sym, suffix)
			break
		}
	}

	return sym
}
