package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexmanthefirst/marketmind/internal/platform/httpclient"
)

func testHTTPClient() *httpclient.Client {
	return httpclient.New(httpclient.Options{
		Name:              "test",
		RequestsPerMinute: 6000,
		MaxRetryElapsed:   100 * time.Millisecond,
	})
}

func TestSimplePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{"bitcoin":{"usd":50000.5},"ethereum":{"usd":3500}}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	prices, err := c.SimplePrice(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	assert.Equal(t, 50000.5, prices["bitcoin"])
	assert.Equal(t, 3500.0, prices["ethereum"])
}

func TestSimplePriceUsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"bitcoin":{"usd":50000}}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	ctx := context.Background()

	_, err := c.SimplePrice(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	_, err = c.SimplePrice(ctx, []string{"bitcoin"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSimplePriceEmptyInput(t *testing.T) {
	c := NewCoinGeckoClient("http://unused", "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	prices, err := c.SimplePrice(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestMarketChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		w.Write([]byte(`{"prices":[[1,100],[2,105],[3,110]]}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	prices, err := c.MarketChart(context.Background(), "bitcoin", 7)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 105, 110}, prices)
}

func TestMarketChartUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	_, err := c.MarketChart(context.Background(), "nonexistent-coin", 7)
	assert.Error(t, err)
}

func TestTopCoins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "market_cap_desc", r.URL.Query().Get("order"))
		assert.Equal(t, "24h,7d", r.URL.Query().Get("price_change_percentage"))
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":50000,
			 "market_cap":1000000,"market_cap_rank":1,
			 "price_change_percentage_24h":2.5,
			 "price_change_percentage_7d_in_currency":-1.2}
		]`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	coins, err := c.TopCoins(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, coins, 1)

	assert.Equal(t, "bitcoin", coins[0].ID)
	require.NotNil(t, coins[0].PriceChange24h)
	assert.Equal(t, 2.5, *coins[0].PriceChange24h)
	require.NotNil(t, coins[0].PriceChange7d)
	assert.Equal(t, -1.2, *coins[0].PriceChange7d)
}

func TestTrendingCapsAtSeven(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"coins":[
			{"item":{"id":"a","symbol":"aa","name":"A","market_cap_rank":1}},
			{"item":{"id":"b","symbol":"bb","name":"B","market_cap_rank":2}},
			{"item":{"id":"c","symbol":"cc","name":"C","market_cap_rank":3}},
			{"item":{"id":"d","symbol":"dd","name":"D","market_cap_rank":4}},
			{"item":{"id":"e","symbol":"ee","name":"E","market_cap_rank":5}},
			{"item":{"id":"f","symbol":"ff","name":"F","market_cap_rank":6}},
			{"item":{"id":"g","symbol":"gg","name":"G","market_cap_rank":7}},
			{"item":{"id":"h","symbol":"hh","name":"H","market_cap_rank":8}}
		]}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	trending, err := c.Trending(context.Background())
	require.NoError(t, err)

	assert.Len(t, trending, 7)
	assert.Equal(t, "AA", trending[0].Symbol)
}

func TestSearchCoinID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(`{"coins":[
			{"id":"wrapped-render","symbol":"wrndr"},
			{"id":"render-token","symbol":"RNDR"}
		]}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	assert.Equal(t, "render-token", c.SearchCoinID(context.Background(), "rndr"))
}

func TestSearchCoinIDUsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"coins":[{"id":"render-token","symbol":"RNDR"}]}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, "render-token", c.SearchCoinID(ctx, "RNDR"))
	assert.Equal(t, "render-token", c.SearchCoinID(ctx, "rndr"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSearchCoinIDFallsBackToLowercase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", testHTTPClient(), NewCache(nil), zerolog.Nop())
	assert.Equal(t, "xyz", c.SearchCoinID(context.Background(), "XYZ"))
}
