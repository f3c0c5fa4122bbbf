package assets

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// CoinExtractor is the slow-path extractor backed by the reasoning
// model. It is consulted only after every static strategy has missed.
type CoinExtractor interface {
	ExtractCoin(ctx context.Context, text string) (string, error)
}

// CoinSearcher resolves a symbol the static tables do not know to a
// canonical coin id via the market-data provider's search endpoint.
type CoinSearcher interface {
	SearchCoinID(ctx context.Context, symbol string) string
}

// Strategy is one step of the resolution chain. Each strategy is pure
// with respect to its inputs and independently testable.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, text string) (string, bool)
}

var tokenRe = regexp.MustCompile(`[A-Za-z]{2,}`)

// aliasTableStrategy tokenizes the text and looks each token up in the
// static alias table, skipping stop words.
type aliasTableStrategy struct{}

func (aliasTableStrategy) Name() string { return "alias_table" }

func (aliasTableStrategy) Resolve(_ context.Context, text string) (string, bool) {
	first := ""
	for _, token := range tokenRe.FindAllString(text, -1) {
		if IsStopWord(token) {
			continue
		}
		id, ok := LookupAlias(token)
		if !ok {
			continue
		}
		// A priority symbol wins even when another alias appears first.
		if IsPrioritySymbol(token) {
			return id, true
		}
		if first == "" {
			first = id
		}
	}
	return first, first != ""
}

// nameSubstringStrategy matches known multi-word coin names inside the
// full text, e.g. "shiba inu" or "bitcoin cash".
type nameSubstringStrategy struct{}

func (nameSubstringStrategy) Name() string { return "name_substring" }

func (nameSubstringStrategy) Resolve(_ context.Context, text string) (string, bool) {
	lower := strings.ToLower(text)
	for alias, id := range cryptoAliases {
		if len(alias) <= 3 || !strings.Contains(alias, " ") {
			continue
		}
		if strings.Contains(lower, strings.ToLower(alias)) {
			return id, true
		}
	}
	return "", false
}

// fallbackMapStrategy scans for the curated names of the most common
// coins as plain substrings.
type fallbackMapStrategy struct{}

func (fallbackMapStrategy) Name() string { return "fallback_map" }

func (fallbackMapStrategy) Resolve(_ context.Context, text string) (string, bool) {
	lower := strings.ToLower(text)
	for name, id := range fallbackCoins {
		if strings.Contains(lower, name) {
			return id, true
		}
	}
	return "", false
}

// llmStrategy delegates to the reasoning model. Responses are
// validated before use: placeholder markers, overlong strings, and
// hyphenated output are all treated as garbage. Extractions the alias
// table does not know are resolved through the searcher.
type llmStrategy struct {
	extractor CoinExtractor
	searcher  CoinSearcher
	log       zerolog.Logger
}

func (llmStrategy) Name() string { return "llm" }

func (s llmStrategy) Resolve(ctx context.Context, text string) (string, bool) {
	raw, err := s.extractor.ExtractCoin(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("LLM coin extraction failed")
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.Contains(strings.ToUpper(raw), "TICKER") || len(raw) > 20 || strings.Contains(raw, "-") {
		s.log.Warn().Str("raw", raw).Msg("Rejecting garbage LLM extraction")
		return "", false
	}
	if id, ok := LookupAlias(raw); ok {
		return id, true
	}
	if s.searcher != nil {
		if id := s.searcher.SearchCoinID(ctx, raw); id != "" {
			return id, true
		}
	}
	// Unknown everywhere; pass through lowercased and let the upstream
	// price lookup be the judge.
	return strings.ToLower(raw), true
}

// Resolver resolves free-form coin mentions to canonical coin ids via
// an ordered chain of strategies. Static strategies run first; the LLM
// strategy, when configured, runs last.
type Resolver struct {
	strategies []Strategy
	log        zerolog.Logger
}

// NewResolver builds the resolution chain. extractor may be nil, in
// which case the slow path is simply absent. searcher may be nil, in
// which case unknown extractions pass through unresolved.
func NewResolver(extractor CoinExtractor, searcher CoinSearcher, log zerolog.Logger) *Resolver {
	strategies := []Strategy{
		aliasTableStrategy{},
		nameSubstringStrategy{},
		fallbackMapStrategy{},
	}
	if extractor != nil {
		strategies = append(strategies, llmStrategy{extractor: extractor, searcher: searcher, log: log})
	}
	return &Resolver{strategies: strategies, log: log}
}

// Resolve maps text to a canonical coin id, or "" when no strategy
// matches. Tokens in the priority set resolve via the alias table and
// never reach the LLM.
func (r *Resolver) Resolve(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, s := range r.strategies {
		if id, ok := s.Resolve(ctx, text); ok {
			r.log.Debug().Str("strategy", s.Name()).Str("coin_id", id).Msg("Coin resolved")
			return id
		}
	}
	return ""
}
