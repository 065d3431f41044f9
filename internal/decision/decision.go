// Package decision turns a defuzzified score into a trading recommendation.
package decision

import (
	"fmt"
	"math"

	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/model"
)

// ErrConfiguration is the same sentinel as fuzzy.ErrConfiguration.
var ErrConfiguration = fuzzy.ErrConfiguration

// Thresholds split the score axis into [0,Sell], (Sell,Buy), [Buy,10].
// Both bounds are inclusive toward their own label.
type Thresholds struct {
	Buy  float64 `json:"buy" yaml:"buy"`
	Sell float64 `json:"sell" yaml:"sell"`
}

// DefaultThresholds returns Buy at 7 and above, Sell at 3 and below.
func DefaultThresholds() Thresholds {
	return Thresholds{Buy: 7, Sell: 3}
}

// Validate requires finite bounds with Sell strictly below Buy.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Buy) || math.IsNaN(t.Sell) || math.IsInf(t.Buy, 0) || math.IsInf(t.Sell, 0) {
		return fmt.Errorf("%w: thresholds must be finite", ErrConfiguration)
	}
	if t.Sell >= t.Buy {
		return fmt.Errorf("%w: sell threshold %g must be below buy threshold %g",
			ErrConfiguration, t.Sell, t.Buy)
	}
	return nil
}

// Classify maps a score to a label. Total: NaN falls through to Hold.
func (t Thresholds) Classify(score float64) model.Recommendation {
	switch {
	case score >= t.Buy:
		return model.RecommendBuy
	case score <= t.Sell:
		return model.RecommendSell
	default:
		return model.RecommendHold
	}
}

// Classify uses DefaultThresholds.
func Classify(score float64) model.Recommendation {
	return DefaultThresholds().Classify(score)
}
