package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexmanthefirst/marketmind/internal/market"
	"github.com/lexmanthefirst/marketmind/internal/platform/httpclient"
)

func testHTTPClient() *httpclient.Client {
	return httpclient.New(httpclient.Options{
		Name:              "test",
		RequestsPerMinute: 6000,
		MaxRetryElapsed:   100 * time.Millisecond,
	})
}

func TestDedupe(t *testing.T) {
	a := []Item{
		{Title: "BTC rallies", URL: "https://a.example/1"},
		{Title: "No URL item"},
	}
	b := []Item{
		{Title: "BTC rallies again", URL: "https://a.example/1"}, // same URL
		{Title: "No URL item"},                                  // same title
		{Title: "Fresh story", URL: "https://b.example/2"},
		{}, // no key at all
	}

	out := Dedupe(a, b)
	require.Len(t, out, 3)
	assert.Equal(t, "BTC rallies", out[0].Title)
	assert.Equal(t, "No URL item", out[1].Title)
	assert.Equal(t, "Fresh story", out[2].Title)
}

func TestFilterByTicker(t *testing.T) {
	items := []Item{
		{Title: "Bitcoin hits new high", Symbols: []string{"BTC"}},
		{Title: "BTC whales move funds"},
		{Title: "Ethereum upgrade ships", Symbols: []string{"ETH"}},
		{Title: "Fed holds rates"},
	}

	out := Filter(items, "", "btc")
	require.Len(t, out, 2)
	assert.Equal(t, "Bitcoin hits new high", out[0].Title)
	assert.Equal(t, "BTC whales move funds", out[1].Title)
}

func TestFilterByPairBase(t *testing.T) {
	items := []Item{
		{Title: "EUR strengthens on ECB minutes"},
		{Title: "Market wrap", Source: "EUR Daily"},
		{Title: "Oil prices climb"},
	}

	out := Filter(items, "EUR/USD", "")
	require.Len(t, out, 2)

	// Lowercase pair input filters on the same base currency.
	assert.Equal(t, out, Filter(items, "eur/usd", ""))
}

func TestFilterNoSubject(t *testing.T) {
	items := []Item{{Title: "a"}, {Title: "b"}}
	assert.Equal(t, items, Filter(items, "", ""))
	assert.Empty(t, Filter(nil, "", "BTC"))
}

func TestCombined(t *testing.T) {
	cryptoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "news", r.URL.Query().Get("kind"))
		assert.Equal(t, "important", r.URL.Query().Get("filter"))
		w.Write([]byte(`{"results":[
			{"title":"BTC news","url":"https://n.example/btc","published_at":"2025-06-01T00:00:00Z",
			 "source":{"title":"CryptoPanic"},"currencies":[{"code":"BTC"}]},
			{"title":"Shared story","url":"https://n.example/shared","source":{"title":"CryptoPanic"}}
		]}`))
	}))
	defer cryptoSrv.Close()

	forexSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		w.Write([]byte(`{"articles":[
			{"title":"Shared story","url":"https://n.example/shared","source":{"name":"NewsAPI"}},
			{"title":"EUR news","url":"https://n.example/eur","publishedAt":"2025-06-01T00:00:00Z",
			 "source":{"name":"NewsAPI"}}
		]}`))
	}))
	defer forexSrv.Close()

	f := NewFetcher(cryptoSrv.URL, "ck", forexSrv.URL, "nk", testHTTPClient(), market.NewCache(nil), zerolog.Nop())
	items, err := f.Combined(context.Background(), 10)
	require.NoError(t, err)

	// Shared story collapses to one entry.
	require.Len(t, items, 3)
	urls := []string{items[0].URL, items[1].URL, items[2].URL}
	assert.Contains(t, urls, "https://n.example/shared")
	assert.Equal(t, []string{"BTC"}, items[0].Symbols)
}

func TestCombinedToleratesSourceFailure(t *testing.T) {
	downSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer downSrv.Close()

	forexSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"articles":[{"title":"EUR news","url":"https://n.example/eur","source":{"name":"NewsAPI"}}]}`))
	}))
	defer forexSrv.Close()

	f := NewFetcher(downSrv.URL, "ck", forexSrv.URL, "nk", testHTTPClient(), market.NewCache(nil), zerolog.Nop())
	items, err := f.Combined(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "EUR news", items[0].Title)
}

func TestCombinedMissingKeys(t *testing.T) {
	f := NewFetcher("http://unused", "", "http://unused", "", testHTTPClient(), market.NewCache(nil), zerolog.Nop())
	items, err := f.Combined(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = f.Combined(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}
