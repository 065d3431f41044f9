package fuzzy

import (
	"fmt"
	"math"
)

// DefaultResolution is the number of evenly spaced sample points used for
// centroid defuzzification: 1001 points over [0,10] is a 0.01 step. Changing
// it moves the centroid in the low-order digits.
const DefaultResolution = 1001

// Engine runs fuzzify → evaluate → aggregate → defuzzify for one input and
// one output variable. Output term shapes are sampled once at construction.
type Engine struct {
	input      Variable
	output     Variable
	rules      RuleBase
	resolution int

	xs     []float64            // output domain sample points
	shapes map[string][]float64 // term name → membership at xs
}

// NewEngine validates the resolution and precomputes the sampled output terms.
// The sample step must be at most one output unit.
func NewEngine(input, output Variable, rules RuleBase, resolution int) (*Engine, error) {
	if resolution < 2 {
		return nil, fmt.Errorf("%w: resolution %d is below 2 samples", ErrConfiguration, resolution)
	}
	step := (output.Max - output.Min) / float64(resolution-1)
	if step > 1 {
		return nil, fmt.Errorf("%w: resolution %d gives a %.3g step over %s, coarser than unit",
			ErrConfiguration, resolution, step, output.Name)
	}
	if len(rules.rules) == 0 {
		return nil, fmt.Errorf("%w: rule base is empty", ErrConfiguration)
	}

	xs := make([]float64, resolution)
	for i := range xs {
		xs[i] = output.Min + (output.Max-output.Min)*float64(i)/float64(resolution-1)
	}
	shapes := make(map[string][]float64, len(output.terms))
	for _, t := range output.terms {
		mu := make([]float64, resolution)
		for i, x := range xs {
			mu[i] = t.Shape.Eval(x)
		}
		shapes[t.Name] = mu
	}

	return &Engine{
		input:      input,
		output:     output,
		rules:      rules,
		resolution: resolution,
		xs:         xs,
		shapes:     shapes,
	}, nil
}

// Input returns the input variable.
func (e *Engine) Input() Variable { return e.input }

// Output returns the output variable.
func (e *Engine) Output() Variable { return e.output }

// Rules returns the rule base.
func (e *Engine) Rules() RuleBase { return e.rules }

// Resolution returns the number of defuzzification samples.
func (e *Engine) Resolution() int { return e.resolution }

// Inference is the full trace of one evaluation.
type Inference struct {
	Input       float64      `json:"input"`
	Clamped     float64      `json:"clamped"`
	Degrees     Degrees      `json:"degrees"`
	Activations []Activation `json:"activations"`
	Score       float64      `json:"score"`
}

// Infer maps an input value to a crisp output score within the output domain.
func (e *Engine) Infer(x float64) (float64, error) {
	inf, err := e.Explain(x)
	if err != nil {
		return 0, err
	}
	return inf.Score, nil
}

// Explain runs the inference and returns every intermediate step.
func (e *Engine) Explain(x float64) (Inference, error) {
	if math.IsNaN(x) {
		return Inference{}, fmt.Errorf("%w: input is NaN", ErrUndefinedInference)
	}
	clamped := e.input.Clamp(x)
	degrees := e.input.Fuzzify(clamped)
	acts := e.rules.Evaluate(degrees)

	score, err := e.defuzzify(e.aggregate(CombineActivations(acts)))
	if err != nil {
		return Inference{}, fmt.Errorf("%s=%g: %w", e.input.Name, clamped, err)
	}
	return Inference{
		Input:       x,
		Clamped:     clamped,
		Degrees:     degrees,
		Activations: acts,
		Score:       score,
	}, nil
}

// aggregate clips each consequent shape at its strength and takes the
// pointwise maximum.
func (e *Engine) aggregate(strengths map[string]float64) []float64 {
	agg := make([]float64, e.resolution)
	// Iterate terms in declaration order so float results never depend on
	// map ordering.
	for _, t := range e.output.terms {
		s, ok := strengths[t.Name]
		if !ok || s <= 0 {
			continue
		}
		mu := e.shapes[t.Name]
		for i := range agg {
			if clipped := math.Min(mu[i], s); clipped > agg[i] {
				agg[i] = clipped
			}
		}
	}
	return agg
}

// defuzzify returns the centroid Σx·μ(x) / Σμ(x) over the sample points.
func (e *Engine) defuzzify(agg []float64) (float64, error) {
	var num, den float64
	for i, mu := range agg {
		num += e.xs[i] * mu
		den += mu
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: aggregated %s region is empty", ErrUndefinedInference, e.output.Name)
	}
	return e.output.Clamp(num / den), nil
}
