// Package news fetches and merges the crypto and forex news feeds and
// filters them for relevance to a resolved subject.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lexmanthefirst/marketmind/internal/assets"
	"github.com/lexmanthefirst/marketmind/internal/market"
	"github.com/lexmanthefirst/marketmind/internal/platform/httpclient"
)

// Item is a single normalized news article.
type Item struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at,omitempty"`
	Source      string   `json:"source,omitempty"`
	Symbols     []string `json:"symbols,omitempty"`
}

// Fetcher pulls news from CryptoPanic and NewsAPI and merges the feeds.
type Fetcher struct {
	cryptoPanicURL string
	cryptoPanicKey string
	newsAPIURL     string
	newsAPIKey     string
	http           *httpclient.Client
	cache          *market.Cache
	log            zerolog.Logger
}

// NewFetcher creates a news fetcher. Either provider key may be empty;
// that provider simply contributes nothing.
func NewFetcher(cryptoPanicURL, cryptoPanicKey, newsAPIURL, newsAPIKey string, hc *httpclient.Client, cache *market.Cache, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		cryptoPanicURL: cryptoPanicURL,
		cryptoPanicKey: cryptoPanicKey,
		newsAPIURL:     newsAPIURL,
		newsAPIKey:     newsAPIKey,
		http:           hc,
		cache:          cache,
		log:            log,
	}
}

// Combined returns a merged crypto and forex feed capped at limit,
// deduplicated by URL with title as fallback key. Partial source
// failure degrades to whatever the other source returned.
func (f *Fetcher) Combined(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		return []Item{}, nil
	}

	cacheKey := "news:combined:" + strconv.Itoa(limit)
	var cached []Item
	if f.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	cryptoLimit := limit / 2
	if cryptoLimit < 1 {
		cryptoLimit = 1
	}
	forexLimit := limit - cryptoLimit

	var cryptoItems, forexItems []Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := f.fetchCryptoNews(gctx, cryptoLimit)
		if err != nil {
			f.log.Warn().Err(err).Msg("CryptoPanic fetch failed")
			return nil
		}
		cryptoItems = items
		return nil
	})
	g.Go(func() error {
		items, err := f.fetchForexNews(gctx, forexLimit)
		if err != nil {
			f.log.Warn().Err(err).Msg("NewsAPI fetch failed")
			return nil
		}
		forexItems = items
		return nil
	})
	_ = g.Wait()

	combined := Dedupe(cryptoItems, forexItems)
	if len(combined) > limit {
		combined = combined[:limit]
	}

	f.cache.Set(ctx, cacheKey, combined, market.NewsTTL)
	return combined, nil
}

func (f *Fetcher) fetchCryptoNews(ctx context.Context, limit int) ([]Item, error) {
	if f.cryptoPanicKey == "" || limit <= 0 {
		return []Item{}, nil
	}

	params := url.Values{}
	params.Set("auth_token", f.cryptoPanicKey)
	params.Set("kind", "news")
	params.Set("filter", "important")
	params.Set("public", "true")

	var raw struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedAt string `json:"published_at"`
			Source      struct {
				Title string `json:"title"`
			} `json:"source"`
			Currencies []struct {
				Code string `json:"code"`
			} `json:"currencies"`
		} `json:"results"`
	}
	if err := f.getJSON(ctx, f.cryptoPanicURL+"?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	items := make([]Item, 0, limit)
	for _, entry := range raw.Results {
		if len(items) == limit {
			break
		}
		symbols := make([]string, 0, len(entry.Currencies))
		for _, c := range entry.Currencies {
			if c.Code != "" {
				symbols = append(symbols, c.Code)
			}
		}
		items = append(items, Item{
			Title:       entry.Title,
			URL:         entry.URL,
			PublishedAt: entry.PublishedAt,
			Source:      entry.Source.Title,
			Symbols:     symbols,
		})
	}
	return items, nil
}

func (f *Fetcher) fetchForexNews(ctx context.Context, limit int) ([]Item, error) {
	if f.newsAPIKey == "" || limit <= 0 {
		return []Item{}, nil
	}

	params := url.Values{}
	params.Set("q", "forex OR currency OR exchange rate OR central bank")
	params.Set("apiKey", f.newsAPIKey)
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(limit))

	var raw struct {
		Articles []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := f.getJSON(ctx, f.newsAPIURL+"?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	items := make([]Item, 0, limit)
	for _, entry := range raw.Articles {
		if len(items) == limit {
			break
		}
		items = append(items, Item{
			Title:       entry.Title,
			URL:         entry.URL,
			PublishedAt: entry.PublishedAt,
			Source:      entry.Source.Name,
		})
	}
	return items, nil
}

func (f *Fetcher) getJSON(ctx context.Context, u string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build news request: %w", err)
	}
	resp, err := f.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode news response: %w", err)
	}
	return nil
}

// Dedupe merges feeds in order, dropping repeats by URL with title as
// the fallback key. Items with neither are dropped.
func Dedupe(feeds ...[]Item) []Item {
	seen := make(map[string]struct{})
	out := []Item{}
	for _, feed := range feeds {
		for _, item := range feed {
			key := item.URL
			if key == "" {
				key = item.Title
			}
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Filter narrows items to those relevant to the resolved subject.
// Ticker wins over pair; with neither, the full list passes through.
// Pure and order-preserving.
func Filter(items []Item, pair, ticker string) []Item {
	if len(items) == 0 {
		return []Item{}
	}

	if ticker != "" {
		upper := strings.ToUpper(ticker)
		out := []Item{}
		for _, item := range items {
			if containsFold(item.Symbols, upper) || strings.Contains(strings.ToUpper(item.Title), upper) {
				out = append(out, item)
			}
		}
		return out
	}

	if pair != "" {
		base := strings.ToUpper(assets.PairBase(pair))
		out := []Item{}
		for _, item := range items {
			if strings.Contains(strings.ToUpper(item.Title), base) ||
				strings.Contains(strings.ToUpper(item.Source), base) {
				out = append(out, item)
			}
		}
		return out
	}

	return items
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
