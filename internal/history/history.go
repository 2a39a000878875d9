// Package history summarizes a listing's cached sale history into the
// figures the overlay renders next to the price graph.
package history

import (
	"math"

	"github.com/skingap/skingap/internal/model"
)

// Summary aggregates one item's graph points and recent sales.
type Summary struct {
	Points    int     `json:"points"`
	Sales     int     `json:"sales"`
	MeanPrice float64 `json:"mean_price"`
	// Volatility is the coefficient of variation of the daily average
	// prices. Zero when fewer than two points exist.
	Volatility float64 `json:"volatility"`
	// Change is the difference between the newest and oldest daily
	// average, with ChangePct relative to the oldest.
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Volume    int     `json:"volume"`
}

// Summarize condenses the cached history for one item. Graph points
// arrive oldest-first, the order the marketplaces serve them in.
func Summarize(points []model.GraphPoint, sales []model.Sale) Summary {
	s := Summary{Points: len(points), Sales: len(sales)}
	if len(points) == 0 {
		return s
	}

	prices := make([]float64, 0, len(points))
	for _, p := range points {
		prices = append(prices, p.Price)
		s.Volume += p.Count
	}

	s.MeanPrice = round2(mean(prices))
	s.Volatility = coefficientOfVariation(prices)

	first, last := prices[0], prices[len(prices)-1]
	s.Change = round2(last - first)
	if first != 0 {
		s.ChangePct = round2((last - first) / first * 100)
	}
	return s
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// coefficientOfVariation is the sample standard deviation over the
// mean, the unit-free spread measure the overlay's badge thresholds
// are calibrated against.
func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	if m == 0 {
		return 0
	}

	var varianceSum float64
	for _, v := range values {
		diff := v - m
		varianceSum += diff * diff
	}
	variance := varianceSum / float64(len(values)-1)

	return math.Sqrt(variance) / m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
