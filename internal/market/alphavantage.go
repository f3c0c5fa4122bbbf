package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexmanthefirst/marketmind/internal/platform/httpclient"
)

// ForexRate is the latest exchange rate for a BASE/QUOTE pair.
type ForexRate struct {
	Pair      string   `json:"pair"`
	Rate      *float64 `json:"rate"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// AlphaVantageClient fetches forex rates from AlphaVantage.
type AlphaVantageClient struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	cache   *Cache
	log     zerolog.Logger
}

// NewAlphaVantageClient creates an AlphaVantage client. cache may be nil.
func NewAlphaVantageClient(baseURL, apiKey string, hc *httpclient.Client, cache *Cache, log zerolog.Logger) *AlphaVantageClient {
	return &AlphaVantageClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    hc,
		cache:   cache,
		log:     log,
	}
}

// Rate returns the latest exchange rate for a pair like "EUR/USD".
func (c *AlphaVantageClient) Rate(ctx context.Context, pair string) (*ForexRate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alphavantage api key not set")
	}
	base, quote, ok := strings.Cut(strings.ToUpper(pair), "/")
	if !ok {
		return nil, fmt.Errorf("pair must be in BASE/QUOTE format, got %q", pair)
	}

	cacheKey := "forex:" + base + "/" + quote
	var cached ForexRate
	if c.cache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	params := url.Values{}
	params.Set("function", "CURRENCY_EXCHANGE_RATE")
	params.Set("from_currency", base)
	params.Set("to_currency", quote)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build alphavantage request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage request failed: %w", err)
	}
	defer resp.Body.Close()

	var raw struct {
		RateInfo map[string]string `json:"Realtime Currency Exchange Rate"`
		Error    string            `json:"Error Message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode alphavantage response: %w", err)
	}
	if len(raw.RateInfo) == 0 {
		msg := raw.Error
		if msg == "" {
			msg = "unknown error from alphavantage"
		}
		return nil, fmt.Errorf("error fetching forex rate: %s", msg)
	}

	rate, err := strconv.ParseFloat(raw.RateInfo["5. Exchange Rate"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate payload from alphavantage: %w", err)
	}

	result := &ForexRate{
		Pair:      base + "/" + quote,
		Rate:      &rate,
		Timestamp: normalizeTimestamp(raw.RateInfo["6. Last Refreshed"]),
	}
	c.cache.Set(ctx, cacheKey, result, PriceTTL)
	c.log.Debug().Str("pair", result.Pair).Float64("rate", rate).Msg("Fetched forex rate")
	return result, nil
}

// normalizeTimestamp coerces upstream timestamps to RFC3339 UTC with a
// Z suffix; unparseable values pass through unchanged.
func normalizeTimestamp(ts string) string {
	if ts == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	return ts
}
