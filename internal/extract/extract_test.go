package extract

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/lexmanthefirst/marketmind/internal/assets"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "analyze BTC", "analyze BTC"},
		{"tags", "<p>analyze <b>BTC</b></p>", "analyze BTC"},
		{"entities", "EUR&#47;USD outlook &amp; news", "EUR/USD outlook & news"},
		{"whitespace", "  analyze\n\n BTC\t today ", "analyze BTC today"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestIsSummaryRequest(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"give me a market overview", true},
		{"what's happening in crypto", true},
		{"show top gainers today", true},
		{"Best Performing coins this week", true},
		{"any newly added coins?", true},
		{"analyze BTC", false},
		{"EUR/USD outlook", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSummaryRequest(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	resolver := assets.NewResolver(nil, nil, zerolog.Nop())
	e := New(resolver, zerolog.Nop())
	ctx := context.Background()

	t.Run("coin query", func(t *testing.T) {
		q := e.Classify(ctx, "what is the price of BTC")
		assert.False(t, q.IsSummary)
		assert.Empty(t, q.Pair)
		assert.Equal(t, "bitcoin", q.CoinID)
	})

	t.Run("pair query", func(t *testing.T) {
		q := e.Classify(ctx, "EUR/USD outlook please")
		assert.False(t, q.IsSummary)
		assert.Equal(t, "EUR/USD", q.Pair)
	})

	t.Run("natural language pair", func(t *testing.T) {
		q := e.Classify(ctx, "how is the euro dollar doing")
		assert.Equal(t, "EUR/USD", q.Pair)
	})

	t.Run("summary short-circuits extraction", func(t *testing.T) {
		q := e.Classify(ctx, "market overview including BTC and EUR/USD")
		assert.True(t, q.IsSummary)
		assert.Empty(t, q.Pair)
		assert.Empty(t, q.CoinID)
	})

	t.Run("html wrapped query", func(t *testing.T) {
		q := e.Classify(ctx, "<p>analyze <b>ethereum</b></p>")
		assert.Equal(t, "analyze ethereum", q.Text)
		assert.Equal(t, "ethereum", q.CoinID)
	})
}

func TestClassifyWithoutResolver(t *testing.T) {
	e := New(nil, zerolog.Nop())
	q := e.Classify(context.Background(), "analyze BTC")
	assert.Empty(t, q.CoinID)
}
