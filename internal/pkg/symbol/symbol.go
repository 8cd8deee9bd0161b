package symbol

import (
	"strings"
)

// Auto is the placeholder symbol of sessions that let the engine pick the pair.
const Auto = "AUTO"

var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "TUSD", "USD", "BTC", "ETH", "BNB"}

type Symbol struct {
	Base  string
	Quote string
}

// Exchange renders the concatenated exchange form, e.g. BTCUSDT.
func (s Symbol) Exchange() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Symbol{
				Base:  strings.TrimSpace(parts[0]),
				Quote: strings.TrimSpace(parts[1]),
			}
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

// Normalize returns the exchange form of s, or the upper-cased input when it
// carries no recognizable quote currency ("AUTO" stays "AUTO").
func Normalize(s string) string {
	if out := Parse(s).Exchange(); out != "" {
		return out
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// Ticker strips the quote currency: BTCUSDT -> BTC, ETH/USD -> ETH.
func Ticker(s string) string {
	if sym := Parse(s); sym.Base != "" {
		return sym.Base
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func IsAuto(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), Auto)
}

func IsValid(s string) bool {
	sym := Parse(s)
	return sym.Base != "" && sym.Quote != ""
}
