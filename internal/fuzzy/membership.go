// Package fuzzy implements a small Mamdani inference system: triangular
// membership functions, linguistic variables, single-antecedent rules,
// max aggregation of clipped consequents and centroid defuzzification.
//
// Everything here is immutable after construction and safe for concurrent use.
package fuzzy

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrConfiguration marks an invalid variable, term, rule or resolution.
	ErrConfiguration = errors.New("fuzzy configuration error")

	// ErrUndefinedInference is returned when the aggregated output region has
	// no area, or the input is not a number.
	ErrUndefinedInference = errors.New("undefined inference")
)

// Triangle is a triangular membership function. Left == Peak gives a left
// shoulder, Peak == Right a right shoulder.
type Triangle struct {
	Left  float64
	Peak  float64
	Right float64
}

// Tri is shorthand for Triangle{l, p, r}.
func Tri(l, p, r float64) Triangle { return Triangle{Left: l, Peak: p, Right: r} }

// Eval returns the degree of membership of x in [0,1]. Outside
// [Left, Right] the degree is exactly 0; NaN maps to 0.
func (t Triangle) Eval(x float64) float64 {
	if math.IsNaN(x) || x < t.Left || x > t.Right {
		return 0
	}
	switch {
	case x == t.Peak:
		return 1
	case x < t.Peak:
		return (x - t.Left) / (t.Peak - t.Left)
	default:
		return (t.Right - x) / (t.Right - t.Peak)
	}
}

// Validate requires finite, non-decreasing breakpoints with a non-zero width.
func (t Triangle) Validate() error {
	for _, v := range []float64{t.Left, t.Peak, t.Right} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: triangle %v has a non-finite breakpoint", ErrConfiguration, t)
		}
	}
	if t.Left > t.Peak || t.Peak > t.Right {
		return fmt.Errorf("%w: triangle %v breakpoints must satisfy left <= peak <= right", ErrConfiguration, t)
	}
	if t.Left == t.Right {
		return fmt.Errorf("%w: triangle %v has zero width", ErrConfiguration, t)
	}
	return nil
}

func (t Triangle) String() string {
	return fmt.Sprintf("tri(%g,%g,%g)", t.Left, t.Peak, t.Right)
}
