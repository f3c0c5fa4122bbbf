package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const extractCoinPrompt = `Extract the cryptocurrency name or symbol mentioned in the user query below.

Rules:
- Return ONLY the coin name or symbol, nothing else.
- Ignore command words like "analyze", "check", "price", "show".
- If no cryptocurrency is mentioned, return exactly NONE.

Query: %s`

// Extractor is the LLM-backed coin extractor used as the last resort
// of the resolution chain.
type Extractor struct {
	client  Completer
	timeout time.Duration
	log     zerolog.Logger
}

// NewExtractor creates a coin extractor with the given per-call deadline.
func NewExtractor(client Completer, timeout time.Duration, log zerolog.Logger) *Extractor {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Extractor{client: client, timeout: timeout, log: log}
}

// ExtractCoin asks the model for the coin mentioned in the query.
// Returns "" when no coin is mentioned or the response is unusable.
func (e *Extractor) ExtractCoin(ctx context.Context, query string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.client.CompleteText(callCtx, fmt.Sprintf(extractCoinPrompt, query), 0.1)
	if err != nil {
		return "", fmt.Errorf("coin extraction failed: %w", err)
	}

	result := strings.TrimSpace(raw)
	result = strings.Trim(result, "\"'`")
	result = strings.TrimSpace(result)

	if result == "" || strings.EqualFold(result, "NONE") || len(result) > 50 {
		e.log.Debug().Str("query", query).Msg("No coin found in query")
		return "", nil
	}
	return result, nil
}
