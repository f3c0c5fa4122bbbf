package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexmanthefirst/marketmind/internal/metrics"
)

// Analysis is the directional call produced for a subject. Every
// production path, model success, timeout fallback, and rule-based
// fallback, fills the same fields.
type Analysis struct {
	ImpactScore float64  `json:"impact_score"`
	Direction   string   `json:"direction"`
	Confidence  float64  `json:"confidence"`
	Reasoning   []string `json:"reasoning"`
	KeyFactors  []string `json:"key_factors,omitempty"`
	Risks       []string `json:"risks,omitempty"`
	Timeframe   string   `json:"timeframe,omitempty"`
	Timestamp   string   `json:"ts"`
}

// Completer is the model call the analyzer depends on.
type Completer interface {
	CompleteText(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Analyzer builds analysis prompts, parses the model's JSON output,
// and falls back deterministically when the model misbehaves.
type Analyzer struct {
	client      Completer
	timeout     time.Duration
	temperature float64
	log         zerolog.Logger
}

// NewAnalyzer creates an analyzer with the given synthesis deadline.
func NewAnalyzer(client Completer, timeout time.Duration, temperature float64, log zerolog.Logger) *Analyzer {
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	return &Analyzer{
		client:      client,
		timeout:     timeout,
		temperature: temperature,
		log:         log,
	}
}

// Synthesize produces an analysis for the subject from the price
// snapshot and news summary. It never returns an error: model failure,
// unparseable output, and timeout all converge on fallback records.
func (a *Analyzer) Synthesize(ctx context.Context, subject string, priceSnapshot interface{}, newsSummary string) Analysis {
	prompt := buildAnalysisPrompt(subject, priceSnapshot, newsSummary)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.client.CompleteText(callCtx, prompt, a.temperature)
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			metrics.RecordLLMFallback(metrics.FallbackTimeout)
			a.log.Warn().Str("subject", subject).Dur("timeout", a.timeout).Msg("Analysis timed out")
			return timeoutAnalysis()
		}
		metrics.RecordLLMFallback(metrics.FallbackRuleBased)
		a.log.Warn().Err(err).Str("subject", subject).Msg("Analysis call failed, using rule-based fallback")
		return RuleBasedAnalysis(newsSummary)
	}

	payload := parseModelOutput(raw)
	if len(payload) == 0 {
		metrics.RecordLLMFallback(metrics.FallbackRuleBased)
		a.log.Warn().Str("subject", subject).Msg("Unparseable model output, using rule-based fallback")
		return RuleBasedAnalysis(newsSummary)
	}

	analysis := Analysis{
		ImpactScore: toFloat(payload["impact_score"]),
		Direction:   toStringOr(payload["direction"], "neutral"),
		Confidence:  toFloat(payload["confidence"]),
		Reasoning:   coerceStrings(payload["reasoning"]),
		KeyFactors:  coerceStrings(payload["key_factors"]),
		Risks:       coerceStrings(payload["risks"]),
		Timeframe:   toStringOr(payload["timeframe"], ""),
		Timestamp:   utcNow(),
	}
	return analysis
}

func buildAnalysisPrompt(subject string, priceSnapshot interface{}, newsSummary string) string {
	snapshotJSON, err := json.Marshal(priceSnapshot)
	if err != nil {
		snapshotJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("You are an expert financial analyst specializing in cryptocurrency and forex markets.\n\n")
	fmt.Fprintf(&b, "**Asset to Analyze:** %s\n", subject)
	fmt.Fprintf(&b, "**Current Price Data:** %s\n", snapshotJSON)
	fmt.Fprintf(&b, "**Recent News Headlines:**\n%s\n\n", newsSummary)
	b.WriteString("**Task:** Provide a comprehensive market analysis in strict JSON format.\n\n")
	b.WriteString("**Analysis Framework:**\n")
	b.WriteString("1. Assess market sentiment from news (bullish/bearish signals)\n")
	b.WriteString("2. Evaluate price action and trends\n")
	b.WriteString("3. Consider macro factors (regulations, adoption, economic indicators)\n")
	b.WriteString("4. Identify risks and catalysts\n")
	b.WriteString("5. Synthesize into actionable insights\n\n")
	b.WriteString("**Required JSON Output:**\n")
	b.WriteString("{\n")
	b.WriteString(`  "impact_score": <float between -1.0 and 1.0>,` + "\n")
	b.WriteString(`  "direction": <"bullish"|"bearish"|"neutral">,` + "\n")
	b.WriteString(`  "confidence": <float 0-1>,` + "\n")
	b.WriteString(`  "reasoning": [<list of 3-5 concise bullet points explaining your analysis>],` + "\n")
	b.WriteString(`  "key_factors": [<2-3 most important factors driving the analysis>],` + "\n")
	b.WriteString(`  "risks": [<1-2 main risks to the thesis>],` + "\n")
	b.WriteString(`  "timeframe": <"short-term"|"medium-term"|"long-term">` + "\n")
	b.WriteString("}\n\n")
	b.WriteString("Return ONLY valid JSON (no markdown, no commentary).")
	return b.String()
}

// parseModelOutput extracts the JSON object between the first '{' and
// the last '}' in the raw text. Malformed JSON yields an empty map.
func parseModelOutput(raw string) map[string]interface{} {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return map[string]interface{}{}
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return map[string]interface{}{}
	}
	return payload
}

// RuleBasedAnalysis is the deterministic non-LLM path: scan the news
// summary for rate-cut and rate-hike mentions and score accordingly.
func RuleBasedAnalysis(newsSummary string) Analysis {
	score := 0.0
	var reasoning []string
	lowered := strings.ToLower(newsSummary)
	if strings.Contains(lowered, "rate cut") {
		score += 0.15
		reasoning = append(reasoning, "rate cut mention detected")
	}
	if strings.Contains(lowered, "rate hike") {
		score -= 0.15
		reasoning = append(reasoning, "rate hike mention detected")
	}
	if score > 1.0 {
		score = 1.0
	} else if score < -1.0 {
		score = -1.0
	}

	direction := "neutral"
	if score > 0 {
		direction = "bullish"
	} else if score < 0 {
		direction = "bearish"
	}

	if len(reasoning) == 0 {
		reasoning = []string{"rule-based fallback"}
	}
	return Analysis{
		ImpactScore: score,
		Direction:   direction,
		Confidence:  0.25,
		Reasoning:   reasoning,
		Timestamp:   utcNow(),
	}
}

func timeoutAnalysis() Analysis {
	return Analysis{
		ImpactScore: 0.0,
		Direction:   "neutral",
		Confidence:  0.5,
		Reasoning:   []string{"Analysis timed out - using fallback"},
		Timestamp:   utcNow(),
	}
}

// coerceStrings always yields a string slice whether the model
// returned a list, a scalar, or nothing.
func coerceStrings(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return val
	default:
		return []string{fmt.Sprint(val)}
	}
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	default:
		return 0
	}
}

func toStringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func utcNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
