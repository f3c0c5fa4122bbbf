package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPair(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"explicit slash", "EUR/USD", "EUR/USD"},
		{"explicit dash lowercase", "eur-usd", "EUR/USD"},
		{"bare six letters", "EURUSD", "EUR/USD"},
		{"bare six lowercase", "what is eurusd doing", "EUR/USD"},
		{"six letters not a pair", "LATEST", ""},
		{"six letters one valid half", "USDXYZ", ""},
		{"phrase euro dollar", "how is the euro dollar looking", "EUR/USD"},
		{"phrase pound dollar", "pound dollar outlook", "GBP/USD"},
		{"phrase cable", "any news on cable today", "GBP/USD"},
		{"phrase dollar yen", "dollar yen rate please", "USD/JPY"},
		{"pair inside sentence", "check GBP/JPY for me", "GBP/JPY"},
		{"spaced separator", "EUR / USD analysis", "EUR/USD"},
		{"no pair", "tell me about bitcoin", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPair(tt.text))
		})
	}
}

func TestExtractPairPhraseBeforeRegex(t *testing.T) {
	// The phrase table wins even when a regex candidate appears later.
	got := ExtractPair("euro dollar versus ABCDEF")
	assert.Equal(t, "EUR/USD", got)
}

func TestPairBase(t *testing.T) {
	assert.Equal(t, "EUR", PairBase("EUR/USD"))
	assert.Equal(t, "GBP", PairBase("GBP/JPY"))
	assert.Equal(t, "EURUSD", PairBase("EURUSD"))
}

func TestCurrencyCodes(t *testing.T) {
	assert.True(t, IsCurrencyCode("USD"))
	assert.True(t, IsCurrencyCode("jpy"))
	assert.False(t, IsCurrencyCode("BTC"))
	assert.False(t, IsCurrencyCode("LAT"))
}
