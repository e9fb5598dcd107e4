package stats

import (
	"math"
	"strings"

	"github.com/verte-zerg/moviequiz/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders values on a fixed 0..100 scale so runs are comparable.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	top := float64(len(sparkChars) - 1)
	for _, v := range values {
		pos := math.Max(0, math.Min(100, v)) / 100
		b.WriteByte(sparkChars[int(math.Round(pos*top))])
	}
	return b.String()
}

// Accuracies extracts per-round accuracy percentages.
func Accuracies(rounds []model.RoundRecord) []float64 {
	out := make([]float64, len(rounds))
	for i, r := range rounds {
		out[i] = r.Accuracy
	}
	return out
}
