package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexmanthefirst/marketmind/internal/market"
	"github.com/lexmanthefirst/marketmind/internal/metrics"
)

const topCoinLimit = 20

var forexMajors = []string{"EUR/USD", "GBP/USD", "USD/JPY"}

// CryptoSummary aggregates crypto market breadth for the summary view.
type CryptoSummary struct {
	TopByMarketCap   []market.CoinMarket   `json:"top_by_market_cap"`
	Best24h          []market.CoinMarket   `json:"best_performers_24h"`
	Worst24h         []market.CoinMarket   `json:"worst_performers_24h"`
	Best7d           []market.CoinMarket   `json:"best_performers_7d"`
	Worst7d          []market.CoinMarket   `json:"worst_performers_7d"`
	Trending         []market.TrendingCoin `json:"trending"`
	RecentlyAdded    []market.CoinListing  `json:"recently_added"`
	TotalMarketCap   float64               `json:"total_market_cap_usd"`
	AverageChange24h float64               `json:"average_change_24h"`
}

// ForexSummary carries the major pair rates.
type ForexSummary struct {
	MajorPairs []*market.ForexRate `json:"major_pairs"`
}

// MarketSummary is the broad market overview payload.
type MarketSummary struct {
	Timestamp string        `json:"timestamp"`
	Crypto    CryptoSummary `json:"crypto"`
	Forex     ForexSummary  `json:"forex"`
	Sentiment string        `json:"market_sentiment"`
}

// marketSummary handles the broad overview path. Every fetch is
// tolerant; missing sections render as empty.
func (a *Agent) marketSummary(ctx context.Context, taskID, contextID string) *TaskResult {
	var (
		topCoins []market.CoinMarket
		trending []market.TrendingCoin
		recent   []market.CoinListing
		majors   []*market.ForexRate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, fetchTimeout)
		defer cancel()
		coins, err := a.crypto.TopCoins(fctx, topCoinLimit)
		if err != nil {
			metrics.RecordFetchFailure(metrics.SourceCoinGecko)
			a.log.Warn().Err(err).Msg("Top coins fetch failed")
			return nil
		}
		topCoins = coins
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, fetchTimeout)
		defer cancel()
		coins, err := a.crypto.Trending(fctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("Trending fetch failed")
			return nil
		}
		trending = coins
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, fetchTimeout)
		defer cancel()
		listings, err := a.crypto.RecentlyAdded(fctx, 5)
		if err != nil {
			a.log.Warn().Err(err).Msg("Recently added fetch failed")
			return nil
		}
		recent = listings
		return nil
	})
	g.Go(func() error {
		for _, pair := range forexMajors {
			fctx, cancel := context.WithTimeout(gctx, fetchTimeout)
			rate, err := a.forex.Rate(fctx, pair)
			cancel()
			if err != nil {
				metrics.RecordFetchFailure(metrics.SourceAlphaVantage)
				a.log.Warn().Err(err).Str("pair", pair).Msg("Forex major fetch failed")
				continue
			}
			majors = append(majors, rate)
		}
		return nil
	})
	_ = g.Wait()

	perf := analyzePerformers(topCoins)
	top := topCoins
	if len(top) > 10 {
		top = top[:10]
	}

	summary := MarketSummary{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Crypto: CryptoSummary{
			TopByMarketCap:   top,
			Best24h:          perf.best24h,
			Worst24h:         perf.worst24h,
			Best7d:           perf.best7d,
			Worst7d:          perf.worst7d,
			Trending:         trending,
			RecentlyAdded:    recent,
			TotalMarketCap:   perf.totalMarketCap,
			AverageChange24h: perf.averageChange24h,
		},
		Forex:     ForexSummary{MajorPairs: majors},
		Sentiment: marketSentiment(perf.averageChange24h),
	}

	text := formatMarketSummaryText(summary)

	result := &TaskResult{
		TaskID:    taskID,
		ContextID: contextID,
		Status:    TaskStatus{State: StatusCompleted, Message: text},
	}
	result.addArtifact("market_summary", summary)
	result.addArtifact("top_performers", summary.Crypto.Best24h)
	result.addArtifact("worst_performers", summary.Crypto.Worst24h)
	result.addArtifact("trending_coins", summary.Crypto.Trending)

	a.sessions.AppendMessage(contextID, "agent", text)
	return result
}

type performance struct {
	best24h          []market.CoinMarket
	worst24h         []market.CoinMarket
	best7d           []market.CoinMarket
	worst7d          []market.CoinMarket
	totalMarketCap   float64
	averageChange24h float64
}

// analyzePerformers ranks the top coins over both change windows. Coins
// without change data are excluded from the rankings but still count
// toward total market cap.
func analyzePerformers(coins []market.CoinMarket) performance {
	var perf performance
	if len(coins) == 0 {
		return perf
	}

	var valid24h, valid7d []market.CoinMarket
	for _, c := range coins {
		perf.totalMarketCap += c.MarketCap
		if c.PriceChange24h != nil {
			valid24h = append(valid24h, c)
		}
		if c.PriceChange7d != nil {
			valid7d = append(valid7d, c)
		}
	}

	sort.SliceStable(valid24h, func(i, j int) bool {
		return *valid24h[i].PriceChange24h > *valid24h[j].PriceChange24h
	})
	sort.SliceStable(valid7d, func(i, j int) bool {
		return *valid7d[i].PriceChange7d > *valid7d[j].PriceChange7d
	})

	perf.best24h = headCoins(valid24h, 3)
	perf.worst24h = tailCoins(valid24h, 3)
	perf.best7d = headCoins(valid7d, 3)
	perf.worst7d = tailCoins(valid7d, 3)

	if len(valid24h) > 0 {
		var sum float64
		for _, c := range valid24h {
			sum += *c.PriceChange24h
		}
		perf.averageChange24h = sum / float64(len(valid24h))
	}
	return perf
}

func headCoins(coins []market.CoinMarket, n int) []market.CoinMarket {
	if len(coins) > n {
		return coins[:n]
	}
	return coins
}

// tailCoins returns the bottom n, empty when the list is too small to
// have a distinct tail.
func tailCoins(coins []market.CoinMarket, n int) []market.CoinMarket {
	if len(coins) <= n {
		return nil
	}
	return coins[len(coins)-n:]
}

// marketSentiment bands the average 24h change into a sentiment label.
func marketSentiment(averageChange float64) string {
	switch {
	case averageChange > 5:
		return "very_bullish"
	case averageChange > 2:
		return "bullish"
	case averageChange > -2:
		return "neutral"
	case averageChange > -5:
		return "bearish"
	default:
		return "very_bearish"
	}
}

// formatMarketSummaryText renders the overview as Markdown.
func formatMarketSummaryText(summary MarketSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Market Summary - %s**\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))

	sentiment := capitalize(strings.ReplaceAll(summary.Sentiment, "_", " "))
	fmt.Fprintf(&b, "**Overall Sentiment:** %s (Avg 24h: %+.2f%%)\n\n", sentiment, summary.Crypto.AverageChange24h)

	b.WriteString("**Top Performers (24h):**\n")
	for _, coin := range summary.Crypto.Best24h {
		writePerformerLine(&b, coin)
	}

	b.WriteString("\n**Worst Performers (24h):**\n")
	for _, coin := range summary.Crypto.Worst24h {
		writePerformerLine(&b, coin)
	}

	b.WriteString("\n**Trending Coins:**\n")
	for i, coin := range summary.Crypto.Trending {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "• %s - %s (Rank #%d)\n", coin.Symbol, coin.Name, coin.MarketCapRank)
	}

	if len(summary.Crypto.RecentlyAdded) > 0 {
		b.WriteString("\n**Recently Added:**\n")
		for i, coin := range summary.Crypto.RecentlyAdded {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "• %s - %s\n", strings.ToUpper(coin.Symbol), coin.Name)
		}
	}

	if len(summary.Forex.MajorPairs) > 0 {
		b.WriteString("\n**Major Forex Pairs:**\n")
		for _, fx := range summary.Forex.MajorPairs {
			if fx == nil || fx.Rate == nil {
				continue
			}
			fmt.Fprintf(&b, "• %s: %.4f\n", fx.Pair, *fx.Rate)
		}
	}

	if summary.Crypto.TotalMarketCap > 0 {
		fmt.Fprintf(&b, "\n**Total Market Cap (Top 20):** $%s", groupThousands(fmt.Sprintf("%.0f", summary.Crypto.TotalMarketCap)))
	}

	return b.String()
}

func writePerformerLine(b *strings.Builder, coin market.CoinMarket) {
	change := 0.0
	if coin.PriceChange24h != nil {
		change = *coin.PriceChange24h
	}
	fmt.Fprintf(b, "• %s (%s): %s (%+.2f%%)\n",
		strings.ToUpper(coin.Symbol), coin.Name, formatMoney(coin.CurrentPrice), change)
}

// formatMoney renders a dollar amount with thousands separators and two
// decimals.
func formatMoney(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	parts := strings.SplitN(s, ".", 2)
	return "$" + groupThousands(parts[0]) + "." + parts[1]
}
