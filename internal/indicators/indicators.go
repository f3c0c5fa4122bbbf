// Package indicators computes the technical summary for a price
// series: change, moving average, volatility, support/resistance, and
// a derived trading signal.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/momentum"
)

// Summary holds the computed technical indicators for a price series.
// An empty summary (Valid == false) means the series was too short.
type Summary struct {
	Valid         bool    `json:"-"`
	CurrentPrice  float64 `json:"current_price"`
	SMA           float64 `json:"sma"`
	ChangePct     float64 `json:"change_pct"`
	Volatility    float64 `json:"volatility"`
	Trend         string  `json:"trend"`          // "uptrend" or "downtrend"
	Support       float64 `json:"support"`
	Resistance    float64 `json:"resistance"`
	PricePosition string  `json:"price_position"` // "above_sma" or "below_sma"
	Signal        string  `json:"signal"`         // "bullish", "bearish", "neutral"
	RSI           float64 `json:"rsi,omitempty"`
	DataPoints    int     `json:"data_points"`
}

// Compute derives the full technical summary from a chronological
// price series. Fewer than 2 points yields an empty summary, not an
// error.
func Compute(prices []float64) Summary {
	if len(prices) < 2 {
		return Summary{}
	}

	first := prices[0]
	current := prices[len(prices)-1]

	changePct := (current - first) / first * 100

	var sum float64
	for _, p := range prices {
		sum += p
	}
	sma := sum / float64(len(prices))

	// Population standard deviation (divide by N).
	var variance float64
	for _, p := range prices {
		d := p - sma
		variance += d * d
	}
	volatility := math.Sqrt(variance / float64(len(prices)))

	trend := "downtrend"
	position := "below_sma"
	if current > sma {
		trend = "uptrend"
		position = "above_sma"
	}

	support, resistance := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < support {
			support = p
		}
		if p > resistance {
			resistance = p
		}
	}

	s := Summary{
		Valid:         true,
		CurrentPrice:  current,
		SMA:           round2(sma),
		ChangePct:     round2(changePct),
		Volatility:    round2(volatility),
		Trend:         trend,
		Support:       support,
		Resistance:    resistance,
		PricePosition: position,
		DataPoints:    len(prices),
	}
	s.Signal = deriveSignal(s.Trend, s.ChangePct)
	s.RSI = computeRSI(prices)
	return s
}

// deriveSignal maps trend and change to a trading signal. The ±5
// thresholds are strict: near-zero or mixed readings stay neutral.
func deriveSignal(trend string, changePct float64) string {
	switch {
	case trend == "uptrend" && changePct > 5:
		return "bullish"
	case trend == "downtrend" && changePct < -5:
		return "bearish"
	default:
		return "neutral"
	}
}

// computeRSI returns the latest 14-period RSI, or 0 when the series is
// too short for the window.
func computeRSI(prices []float64) float64 {
	const period = 14
	if len(prices) <= period {
		return 0
	}

	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	rsi := momentum.NewRsiWithPeriod[float64](period)
	var last float64
	for val := range rsi.Compute(pricesChan) {
		last = val
	}
	return round2(last)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
