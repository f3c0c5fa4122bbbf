// Package market contains the upstream market-data clients and the
// read-through cache that fronts them.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexmanthefirst/marketmind/internal/platform/httpclient"
)

// CoinGeckoClient talks to the CoinGecko REST API.
type CoinGeckoClient struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	cache   *Cache
	log     zerolog.Logger
}

// NewCoinGeckoClient creates a CoinGecko client. cache may be nil.
func NewCoinGeckoClient(baseURL, apiKey string, hc *httpclient.Client, cache *Cache, log zerolog.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
		cache:   cache,
		log:     log,
	}
}

// CoinMarket is one row of the /coins/markets response.
type CoinMarket struct {
	ID               string   `json:"id"`
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	CurrentPrice     float64  `json:"current_price"`
	MarketCap        float64  `json:"market_cap"`
	MarketCapRank    int      `json:"market_cap_rank"`
	PriceChange24h   *float64 `json:"price_change_percentage_24h"`
	PriceChange7d    *float64 `json:"price_change_percentage_7d_in_currency"`
}

// TrendingCoin is one entry of the /search/trending response.
type TrendingCoin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	MarketCapRank int     `json:"market_cap_rank"`
	PriceBTC      float64 `json:"price_btc"`
}

// CoinListing is one entry of the /coins/list/new response.
type CoinListing struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if c.apiKey != "" {
		params.Set("x_cg_demo_api_key", c.apiKey)
	}
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build coingecko request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode coingecko response: %w", err)
	}
	return nil
}

// SimplePrice returns the USD price per coin id. Missing coins are
// absent from the result, not an error.
func (c *CoinGeckoClient) SimplePrice(ctx context.Context, coinIDs []string) (map[string]float64, error) {
	if len(coinIDs) == 0 {
		return map[string]float64{}, nil
	}

	cacheKey := "price:" + strings.Join(coinIDs, ",")
	var cached map[string]float64
	if c.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(coinIDs, ","))
	params.Set("vs_currencies", "usd")

	var raw map[string]map[string]float64
	if err := c.get(ctx, "/simple/price", params, &raw); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(raw))
	for id, quotes := range raw {
		if usd, ok := quotes["usd"]; ok {
			prices[id] = usd
		}
	}

	c.cache.Set(ctx, cacheKey, prices, PriceTTL)
	c.log.Debug().Strs("coin_ids", coinIDs).Int("found", len(prices)).Msg("Fetched crypto prices")
	return prices, nil
}

// MarketChart returns the chronological closing prices for the coin
// over the given number of days.
func (c *CoinGeckoClient) MarketChart(ctx context.Context, coinID string, days int) ([]float64, error) {
	cacheKey := fmt.Sprintf("chart:%s:%d", coinID, days)
	var cached []float64
	if c.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(days))

	var raw struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := c.get(ctx, "/coins/"+coinID+"/market_chart", params, &raw); err != nil {
		return nil, err
	}

	prices := make([]float64, 0, len(raw.Prices))
	for _, point := range raw.Prices {
		prices = append(prices, point[1])
	}

	c.cache.Set(ctx, cacheKey, prices, ChartTTL)
	c.log.Debug().Str("coin_id", coinID).Int("points", len(prices)).Msg("Fetched market chart")
	return prices, nil
}

// TopCoins returns the top coins by market cap with 24h and 7d change.
func (c *CoinGeckoClient) TopCoins(ctx context.Context, limit int) ([]CoinMarket, error) {
	cacheKey := fmt.Sprintf("markets:%d", limit)
	var cached []CoinMarket
	if c.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("page", "1")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h,7d")

	var coins []CoinMarket
	if err := c.get(ctx, "/coins/markets", params, &coins); err != nil {
		return nil, err
	}

	c.cache.Set(ctx, cacheKey, coins, ChartTTL)
	return coins, nil
}

// Trending returns the currently trending coins, capped at 7.
func (c *CoinGeckoClient) Trending(ctx context.Context) ([]TrendingCoin, error) {
	cacheKey := "trending"
	var cached []TrendingCoin
	if c.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var raw struct {
		Coins []struct {
			Item TrendingCoin `json:"item"`
		} `json:"coins"`
	}
	if err := c.get(ctx, "/search/trending", url.Values{}, &raw); err != nil {
		return nil, err
	}

	trending := make([]TrendingCoin, 0, 7)
	for _, entry := range raw.Coins {
		coin := entry.Item
		coin.Symbol = strings.ToUpper(coin.Symbol)
		trending = append(trending, coin)
		if len(trending) == 7 {
			break
		}
	}

	c.cache.Set(ctx, cacheKey, trending, ChartTTL)
	return trending, nil
}

// RecentlyAdded returns the newest CoinGecko listings.
func (c *CoinGeckoClient) RecentlyAdded(ctx context.Context, limit int) ([]CoinListing, error) {
	cacheKey := fmt.Sprintf("new:%d", limit)
	var cached []CoinListing
	if c.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var listings []CoinListing
	if err := c.get(ctx, "/coins/list/new", url.Values{}, &listings); err != nil {
		return nil, err
	}
	if len(listings) > limit {
		listings = listings[:limit]
	}

	c.cache.Set(ctx, cacheKey, listings, CoinListTTL)
	return listings, nil
}

// SearchCoinID resolves a symbol to a coin id via /search. An exact
// symbol match wins; otherwise the first result is used. When nothing
// matches, the lowercased symbol comes back as a best guess.
func (c *CoinGeckoClient) SearchCoinID(ctx context.Context, symbol string) string {
	cacheKey := "search:" + strings.ToLower(symbol)
	var cached string
	if c.cache.Get(ctx, cacheKey, &cached) {
		return cached
	}

	params := url.Values{}
	params.Set("query", symbol)

	var raw struct {
		Coins []struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
		} `json:"coins"`
	}
	if err := c.get(ctx, "/search", params, &raw); err != nil {
		c.log.Debug().Err(err).Str("symbol", symbol).Msg("CoinGecko search failed")
		return strings.ToLower(symbol)
	}

	id := ""
	for _, coin := range raw.Coins {
		if strings.EqualFold(coin.Symbol, symbol) {
			id = coin.ID
			break
		}
	}
	if id == "" && len(raw.Coins) > 0 {
		id = raw.Coins[0].ID
	}
	if id == "" {
		id = strings.ToLower(symbol)
	}

	c.cache.Set(ctx, cacheKey, id, CoinListTTL)
	return id
}
