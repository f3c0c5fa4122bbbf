package agent

import (
	"fmt"
	"strings"

	"github.com/lexmanthefirst/marketmind/internal/extract"
	"github.com/lexmanthefirst/marketmind/internal/indicators"
	"github.com/lexmanthefirst/marketmind/internal/llm"
	"github.com/lexmanthefirst/marketmind/internal/market"
	"github.com/lexmanthefirst/marketmind/internal/news"
)

// formatAnalysisMessage renders the Markdown response shown to the user.
// Structured data travels in artifacts, not here.
func formatAnalysisMessage(
	key string,
	query extract.Query,
	analysis llm.Analysis,
	snapshot map[string]interface{},
	technical indicators.Summary,
	topNews []news.Item,
	notices []string,
) string {
	var sections []string

	sections = append(sections, fmt.Sprintf("**%s Market Analysis**\n", key))

	if len(notices) > 0 {
		sections = append(sections, "⚠️ **Notices:**")
		for _, notice := range notices {
			sections = append(sections, "- "+notice)
		}
		sections = append(sections, "")
	}

	sections = append(sections, fmt.Sprintf("**Outlook:** %s (Confidence: %.0f%%)",
		capitalize(analysis.Direction), analysis.Confidence*100))

	if query.CoinID != "" {
		if prices, ok := snapshot["crypto"].(map[string]float64); ok {
			if price, ok := prices[query.CoinID]; ok && price != 0 {
				sections = append(sections, "**Current Price:** "+formatUSD(price))
			} else if len(notices) > 0 {
				sections = append(sections, "**Current Price:** Unavailable")
			}
		}
	} else if query.Pair != "" {
		if fx, ok := snapshot["pair"].(*market.ForexRate); ok {
			if fx.Rate != nil {
				sections = append(sections, fmt.Sprintf("**Exchange Rate:** %.4f", *fx.Rate))
			} else if len(notices) > 0 {
				sections = append(sections, "**Exchange Rate:** Unavailable")
			}
		}
	}

	if technical.Valid {
		sections = append(sections, fmt.Sprintf("**7-Day Change:** %+.2f%%", technical.ChangePct))
		sections = append(sections, "**Trend:** "+capitalize(technical.Trend))
	}

	if len(analysis.Reasoning) > 0 && analysis.Reasoning[0] != "" {
		sections = append(sections, "\n**Key Factors:**")
		for i, reason := range analysis.Reasoning {
			if i == 3 {
				break
			}
			sections = append(sections, "- "+reason)
		}
	}

	if len(topNews) > 0 {
		sections = append(sections, "\n**Recent News:**")
		for _, item := range topNews {
			if item.Title == "" {
				continue
			}
			sections = append(sections, fmt.Sprintf("- %s (%s)", item.Title, item.Source))
		}
	}

	if len(notices) > 0 {
		sections = append(sections, "\n💡 **Tip:** Try common coin symbols (BTC, ETH, SOL) or forex pairs (EUR/USD, GBP/USD).")
	}

	return strings.Join(sections, "\n")
}

// formatUSD renders a dollar amount with thousands separators and up to
// eight decimals, trimming trailing zeros. Sub-cent coins keep their
// precision while BTC-sized prices read naturally.
func formatUSD(price float64) string {
	s := fmt.Sprintf("%.8f", price)
	parts := strings.SplitN(s, ".", 2)
	whole := groupThousands(parts[0])
	frac := strings.TrimRight(parts[1], "0")
	if frac == "" {
		return "$" + whole
	}
	return "$" + whole + "." + frac
}

// groupThousands inserts commas into a decimal integer string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
