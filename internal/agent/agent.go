// Package agent orchestrates a market query end to end: entity
// extraction, parallel data fetch, analysis synthesis, and response
// assembly.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lexmanthefirst/marketmind/internal/extract"
	"github.com/lexmanthefirst/marketmind/internal/indicators"
	"github.com/lexmanthefirst/marketmind/internal/llm"
	"github.com/lexmanthefirst/marketmind/internal/market"
	"github.com/lexmanthefirst/marketmind/internal/metrics"
	"github.com/lexmanthefirst/marketmind/internal/news"
	"github.com/lexmanthefirst/marketmind/internal/notify"
	"github.com/lexmanthefirst/marketmind/internal/session"
)

const (
	fetchTimeout = 10 * time.Second
	chartDays    = 7
	newsLimit    = 10
)

// ErrEmptyQuery is returned when there is nothing to analyze. This is the
// single caller-input error; every other failure degrades in-band.
var ErrEmptyQuery = errors.New("no analyzable text found in message; provide a query with a cryptocurrency symbol, name, or forex pair (e.g. 'BTC price', 'Bitcoin analysis', 'EUR/USD rate')")

// MarketData is the crypto market data dependency.
type MarketData interface {
	SimplePrice(ctx context.Context, coinIDs []string) (map[string]float64, error)
	MarketChart(ctx context.Context, coinID string, days int) ([]float64, error)
	TopCoins(ctx context.Context, limit int) ([]market.CoinMarket, error)
	Trending(ctx context.Context) ([]market.TrendingCoin, error)
	RecentlyAdded(ctx context.Context, limit int) ([]market.CoinListing, error)
}

// ForexData is the forex rate dependency.
type ForexData interface {
	Rate(ctx context.Context, pair string) (*market.ForexRate, error)
}

// NewsSource is the combined news feed dependency.
type NewsSource interface {
	Combined(ctx context.Context, limit int) ([]news.Item, error)
}

// Synthesizer produces the directional analysis. It never errors; the
// fallback policy lives behind this interface.
type Synthesizer interface {
	Synthesize(ctx context.Context, subject string, priceSnapshot interface{}, newsSummary string) llm.Analysis
}

// Agent handles market queries.
type Agent struct {
	extractor *extract.Extractor
	crypto    MarketData
	forex     ForexData
	news      NewsSource
	analyzer  Synthesizer
	sessions  *session.Store
	notifier  *notify.Manager
	log       zerolog.Logger
}

// New creates an agent. sessions and notifier may be nil.
func New(
	extractor *extract.Extractor,
	crypto MarketData,
	forex ForexData,
	newsSource NewsSource,
	analyzer Synthesizer,
	sessions *session.Store,
	notifier *notify.Manager,
	log zerolog.Logger,
) *Agent {
	if sessions == nil {
		sessions = session.NewStore(nil, log)
	}
	if notifier == nil {
		notifier = notify.NewManager(false, 0, 0)
	}
	return &Agent{
		extractor: extractor,
		crypto:    crypto,
		forex:     forex,
		news:      newsSource,
		analyzer:  analyzer,
		sessions:  sessions,
		notifier:  notifier,
		log:       log,
	}
}

// fetchResults holds the outcome of the parallel fetch, one slot per
// source so a failure in one never disturbs the others.
type fetchResults struct {
	forexRate *market.ForexRate
	forexErr  error

	cryptoPrices map[string]float64
	cryptoErr    error

	technical indicators.Summary

	newsItems []news.Item
	newsErr   error
}

// ProcessQuery runs the full pipeline for one query. Every data-layer
// failure is degraded into the response; only empty input errors.
func (a *Agent) ProcessQuery(ctx context.Context, text, contextID string) (*TaskResult, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	taskID := uuid.NewString()
	if contextID == "" {
		contextID = uuid.NewString()
	}
	a.sessions.AppendMessage(contextID, "user", text)

	query := a.extractor.Classify(ctx, text)
	if query.IsSummary {
		result := a.marketSummary(ctx, taskID, contextID)
		metrics.RecordQuery(metrics.KindSummary, result.Status.State, time.Since(start).Seconds())
		return result, nil
	}

	fetched := a.gather(ctx, query.Pair, query.CoinID)

	snapshot, notices := a.buildSnapshot(query, fetched)
	relevant := news.Filter(fetched.newsItems, query.Pair, query.CoinID)
	newsSummary := buildNewsSummary(relevant, fetched.technical)

	subject := query.Pair
	if subject == "" {
		subject = query.CoinID
	}
	if subject == "" {
		subject = "market"
	}
	analysis := a.analyzer.Synthesize(ctx, subject, snapshot, newsSummary)

	key := strings.ToUpper(subject)
	topNews := capNews(relevant, 3)

	a.sessions.SaveAnalysis(key, session.AnalysisRecord{
		Analysis: analysis,
		News:     relevant,
		Snapshot: snapshot,
	})
	if a.notifier.MaybeNotify(notify.Event{
		Subject:  key,
		Impact:   analysis.ImpactScore,
		Analysis: analysis,
		News:     topNews,
		Snapshot: snapshot,
	}) {
		metrics.NotificationsDispatched.Inc()
	}

	message := formatAnalysisMessage(key, query, analysis, snapshot, fetched.technical, topNews, notices)

	result := &TaskResult{
		TaskID:    taskID,
		ContextID: contextID,
	}
	result.addArtifact("analysis", analysis)
	if len(snapshot) > 0 {
		result.addArtifact("price_snapshot", snapshot)
	}
	if fetched.technical.Valid {
		result.addArtifact("technical_indicators", fetched.technical)
	}
	result.addArtifact("recent_news", map[string]interface{}{"items": topNews})

	state := StatusCompleted
	if query.Pair != "" && (fetched.forexRate == nil || fetched.forexRate.Rate == nil) && query.CoinID == "" {
		state = StatusFailed
	}
	result.Status = TaskStatus{State: state, Message: message}

	a.sessions.AppendMessage(contextID, "agent", message)
	metrics.RecordQuery(metrics.KindAnalysis, state, time.Since(start).Seconds())

	a.log.Info().
		Str("task_id", taskID).
		Str("subject", key).
		Str("status", state).
		Dur("duration", time.Since(start)).
		Msg("Processed query")
	return result, nil
}

// gather fans out the independent fetches. Each slot is captured as a
// value or an error marker; nothing is fail-fast.
func (a *Agent) gather(ctx context.Context, pair, coinID string) fetchResults {
	var results fetchResults
	g, ctx := errgroup.WithContext(ctx)

	if pair != "" {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()
			rate, err := a.forex.Rate(fctx, pair)
			if err != nil {
				metrics.RecordFetchFailure(metrics.SourceAlphaVantage)
				a.log.Warn().Err(err).Str("pair", pair).Msg("Forex fetch failed")
				results.forexErr = err
				return nil
			}
			results.forexRate = rate
			return nil
		})
	}

	if coinID != "" {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()
			prices, err := a.crypto.SimplePrice(fctx, []string{coinID})
			if err != nil {
				metrics.RecordFetchFailure(metrics.SourceCoinGecko)
				a.log.Warn().Err(err).Str("coin_id", coinID).Msg("Price fetch failed")
				results.cryptoErr = err
				return nil
			}
			results.cryptoPrices = prices
			return nil
		})
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()
			prices, err := a.crypto.MarketChart(fctx, coinID, chartDays)
			if err != nil {
				// No technical data is non-fatal and carries no notice.
				a.log.Debug().Err(err).Str("coin_id", coinID).Msg("Chart fetch failed")
				return nil
			}
			results.technical = indicators.Compute(prices)
			return nil
		})
	}

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		items, err := a.news.Combined(fctx, newsLimit)
		if err != nil {
			a.log.Warn().Err(err).Msg("News fetch failed")
			results.newsErr = err
			return nil
		}
		results.newsItems = items
		return nil
	})

	_ = g.Wait()
	return results
}

// buildSnapshot assembles the price snapshot and the user-visible notices
// from the fetch outcome. Failed sources keep a nil-valued placeholder.
func (a *Agent) buildSnapshot(query extract.Query, fetched fetchResults) (map[string]interface{}, []string) {
	snapshot := make(map[string]interface{})
	var notices []string

	if query.Pair != "" {
		if fetched.forexRate != nil {
			snapshot["pair"] = fetched.forexRate
		} else {
			snapshot["pair"] = &market.ForexRate{Pair: query.Pair}
			notices = append(notices, fmt.Sprintf(
				"Unable to fetch forex rate for %s. The API may be unavailable or the pair may not be supported.", query.Pair))
		}
	}
	if query.CoinID != "" {
		if fetched.cryptoErr == nil {
			snapshot["crypto"] = fetched.cryptoPrices
		} else {
			snapshot["crypto"] = map[string]float64{}
			notices = append(notices, fmt.Sprintf(
				"Unable to fetch price data for %s. Please verify the coin name/symbol is correct.", query.CoinID))
		}
	}
	return snapshot, notices
}

// buildNewsSummary renders the synthesis context: headline bullets plus a
// technical block when indicators are available.
func buildNewsSummary(items []news.Item, technical indicators.Summary) string {
	var b strings.Builder
	if len(items) == 0 {
		b.WriteString("No recent headlines found.")
	} else {
		for i, item := range items {
			if i == 5 {
				break
			}
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "• %s (%s)", item.Title, item.Source)
		}
	}

	if technical.Valid {
		fmt.Fprintf(&b,
			"\n\n**Technical Analysis (7-day):**\n"+
				"• Trend: %s\n"+
				"• Price change: %.2f%%\n"+
				"• Signal: %s\n"+
				"• Position vs SMA: %s",
			technical.Trend, technical.ChangePct, technical.Signal, technical.PricePosition)
	}
	return b.String()
}

func capNews(items []news.Item, limit int) []news.Item {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
