package assets

import (
	"fmt"
	"regexp"
	"strings"
)

// Explicit pair notation like EUR/USD or eur-usd.
var pairRe = regexp.MustCompile(`([A-Za-z]{3,5})\s*[/\-]\s*([A-Za-z]{3,5})`)

// Bare 6-letter token like EURUSD; only accepted when both halves are
// known currency codes, so words like LATEST never parse as pairs.
var barePairRe = regexp.MustCompile(`\b([A-Za-z]{6})\b`)

// pairPhrases maps natural-language pair mentions to canonical pairs.
// First match wins, checked before any regex.
var pairPhrases = []struct {
	phrase string
	pair   string
}{
	{"euro dollar", "EUR/USD"},
	{"eurodollar", "EUR/USD"},
	{"pound dollar", "GBP/USD"},
	{"cable", "GBP/USD"},
	{"dollar yen", "USD/JPY"},
	{"euro yen", "EUR/JPY"},
	{"euro pound", "EUR/GBP"},
	{"aussie dollar", "AUD/USD"},
	{"kiwi dollar", "NZD/USD"},
	{"dollar swiss", "USD/CHF"},
	{"swiss franc", "USD/CHF"},
	{"dollar loonie", "USD/CAD"},
}

// ExtractPair detects a forex currency pair in free-form text and
// returns it in canonical BASE/QUOTE form, or "" when no pair is found.
func ExtractPair(text string) string {
	lower := strings.ToLower(text)
	for _, p := range pairPhrases {
		if strings.Contains(lower, p.phrase) {
			return p.pair
		}
	}

	if m := pairRe.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s/%s", strings.ToUpper(m[1]), strings.ToUpper(m[2]))
	}

	if m := barePairRe.FindStringSubmatch(text); m != nil {
		token := strings.ToUpper(m[1])
		base, quote := token[:3], token[3:]
		if IsCurrencyCode(base) && IsCurrencyCode(quote) {
			return base + "/" + quote
		}
	}

	return ""
}

// PairBase returns the base currency of a BASE/QUOTE pair.
func PairBase(pair string) string {
	if i := strings.Index(pair, "/"); i > 0 {
		return pair[:i]
	}
	return pair
}
