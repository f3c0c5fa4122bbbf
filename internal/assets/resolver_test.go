package assets

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubExtractor struct {
	result string
	err    error
	calls  int
}

func (s *stubExtractor) ExtractCoin(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.result, s.err
}

type stubSearcher struct {
	ids   map[string]string
	calls int
}

func (s *stubSearcher) SearchCoinID(_ context.Context, symbol string) string {
	s.calls++
	return s.ids[strings.ToUpper(symbol)]
}

func TestResolvePrioritySymbols(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"BTC", "bitcoin"},
		{"btc", "bitcoin"},
		{"ETH", "ethereum"},
		{"BNB", "binancecoin"},
		{"SOL", "solana"},
		{"MATIC", "matic-network"},
		{"AVAX", "avalanche-2"},
		{"DOGE", "dogecoin"},
	}

	// Extractor that would be detected if the slow path ran.
	ext := &stubExtractor{result: "should-not-run"}
	r := NewResolver(ext, nil, zerolog.Nop())

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := r.Resolve(context.Background(), tt.token)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Zero(t, ext.calls, "priority symbols must never reach the LLM path")
}

func TestResolvePriorityWinsConflicts(t *testing.T) {
	r := NewResolver(nil, nil, zerolog.Nop())

	// GALA appears first but BTC is a priority symbol.
	assert.Equal(t, "bitcoin", r.Resolve(context.Background(), "swap GALA for BTC"))
	assert.Equal(t, "gala", r.Resolve(context.Background(), "GALA price today"))
}

func TestResolveStopWords(t *testing.T) {
	r := NewResolver(nil, nil, zerolog.Nop())
	for _, word := range []string{"THE", "IS", "AND", "FOR", "WHAT", "the", "is"} {
		t.Run(word, func(t *testing.T) {
			assert.Empty(t, r.Resolve(context.Background(), word))
		})
	}
}

func TestResolveFromSentences(t *testing.T) {
	r := NewResolver(nil, nil, zerolog.Nop())

	tests := []struct {
		name string
		text string
		want string
	}{
		{"symbol in sentence", "what is the BTC price today", "bitcoin"},
		{"name in sentence", "analyze ethereum for me", "ethereum"},
		{"multi-word name", "is shiba inu still alive", "shiba-inu"},
		{"fallback name", "how is binance coin doing", "binancecoin"},
		{"nothing resolvable", "hello there general", ""},
		{"empty text", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(context.Background(), tt.text))
		})
	}
}

func TestLLMStrategyValidation(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{"placeholder leak", "TICKER", ""},
		{"hyphenated garbage", "do-not-know", ""},
		{"overlong output", "this is not a coin name at all", ""},
		{"known alias", "bitcoin", "bitcoin"},
		{"unknown passthrough", "Render", "render"},
		{"empty response", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &stubExtractor{result: tt.result}
			r := NewResolver(ext, nil, zerolog.Nop())
			got := r.Resolve(context.Background(), "zzqx unknown token")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, ext.calls)
		})
	}
}

func TestLLMStrategySearchResolution(t *testing.T) {
	// An extraction the alias table does not know resolves through the
	// searcher instead of passing through as a guessed id.
	ext := &stubExtractor{result: "RNDR"}
	search := &stubSearcher{ids: map[string]string{"RNDR": "render-token"}}
	r := NewResolver(ext, search, zerolog.Nop())

	assert.Equal(t, "render-token", r.Resolve(context.Background(), "zzqx RNDR outlook"))
	assert.Equal(t, 1, search.calls)
}

func TestLLMStrategySearchSkippedForKnownAlias(t *testing.T) {
	ext := &stubExtractor{result: "bitcoin"}
	search := &stubSearcher{}
	r := NewResolver(ext, search, zerolog.Nop())

	assert.Equal(t, "bitcoin", r.Resolve(context.Background(), "zzqx unknown token"))
	assert.Zero(t, search.calls, "alias table hits must not reach the search endpoint")
}

func TestLLMStrategySearchMiss(t *testing.T) {
	// Searcher returning nothing falls back to the lowercased extraction.
	ext := &stubExtractor{result: "Render"}
	search := &stubSearcher{}
	r := NewResolver(ext, search, zerolog.Nop())

	assert.Equal(t, "render", r.Resolve(context.Background(), "zzqx unknown token"))
	assert.Equal(t, 1, search.calls)
}

func TestSupportedCoins(t *testing.T) {
	coins := SupportedCoins()
	assert.NotEmpty(t, coins)

	seen := make(map[string]bool)
	for i, c := range coins {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Symbol)
		assert.False(t, seen[c.ID], "duplicate coin id %s", c.ID)
		seen[c.ID] = true
		if i > 0 {
			assert.LessOrEqual(t, coins[i-1].Symbol, c.Symbol, "coins must be sorted by symbol")
		}
	}
	assert.True(t, seen["bitcoin"])
	assert.True(t, seen["ethereum"])
}
