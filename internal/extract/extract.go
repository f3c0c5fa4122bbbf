// Package extract classifies a market query and pulls the subjects out of
// it: summary intent, a forex pair, and a crypto coin id.
package extract

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexmanthefirst/marketmind/internal/assets"
)

// summaryKeywords mark a query as a broad market-summary request rather
// than a single-subject analysis.
var summaryKeywords = []string{
	"summarize",
	"summary",
	"overview",
	"what's happening",
	"market update",
	"today's market",
	"movements today",
	"market movements",
	"how are markets",
	"market status",
	"market snapshot",
	"best performing",
	"worst performing",
	"top gainers",
	"top losers",
	"trending",
	"newly added",
	"new coins",
	"market overview",
}

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Query is the classified form of a raw user query.
type Query struct {
	Text      string
	IsSummary bool
	Pair      string
	CoinID    string
}

// Extractor classifies queries and resolves their subjects.
type Extractor struct {
	resolver *assets.Resolver
	log      zerolog.Logger
}

// New creates an extractor. The resolver may be nil when coin resolution
// is not needed.
func New(resolver *assets.Resolver, log zerolog.Logger) *Extractor {
	return &Extractor{resolver: resolver, log: log}
}

// StripHTML removes tags and entities from query text and collapses
// whitespace. Queries relayed through chat frontends often arrive wrapped
// in markup.
func StripHTML(text string) string {
	cleaned := tagRe.ReplaceAllString(text, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

// IsSummaryRequest reports whether the text asks for a broad market
// summary instead of a single subject.
func IsSummaryRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Classify cleans the text, detects summary intent, and extracts the pair
// and coin subjects. Summary intent short-circuits subject extraction.
func (e *Extractor) Classify(ctx context.Context, text string) Query {
	cleaned := StripHTML(text)
	q := Query{Text: cleaned}

	if IsSummaryRequest(cleaned) {
		q.IsSummary = true
		return q
	}

	q.Pair = assets.ExtractPair(cleaned)
	if e.resolver != nil {
		q.CoinID = e.resolver.Resolve(ctx, cleaned)
	}

	e.log.Debug().
		Str("pair", q.Pair).
		Str("coin_id", q.CoinID).
		Msg("Classified query")
	return q
}
