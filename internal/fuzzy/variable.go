package fuzzy

import (
	"fmt"
	"math"
)

// Term is a named fuzzy set of a linguistic variable.
type Term struct {
	Name  string
	Shape Triangle
}

// Degrees maps term names to membership degrees.
type Degrees map[string]float64

// Variable is a linguistic variable over the closed interval [Min, Max].
type Variable struct {
	Name  string
	Min   float64
	Max   float64
	terms []Term
}

// NewVariable validates the domain and every term. Breakpoints must lie
// inside the domain and term names must be unique.
func NewVariable(name string, min, max float64, terms ...Term) (Variable, error) {
	if name == "" {
		return Variable{}, fmt.Errorf("%w: variable name is empty", ErrConfiguration)
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) || min >= max {
		return Variable{}, fmt.Errorf("%w: variable %s domain [%g,%g] is invalid", ErrConfiguration, name, min, max)
	}
	if len(terms) == 0 {
		return Variable{}, fmt.Errorf("%w: variable %s has no terms", ErrConfiguration, name)
	}
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		if t.Name == "" {
			return Variable{}, fmt.Errorf("%w: variable %s has an unnamed term", ErrConfiguration, name)
		}
		if seen[t.Name] {
			return Variable{}, fmt.Errorf("%w: variable %s declares term %q twice", ErrConfiguration, name, t.Name)
		}
		seen[t.Name] = true
		if err := t.Shape.Validate(); err != nil {
			return Variable{}, fmt.Errorf("variable %s term %s: %w", name, t.Name, err)
		}
		if t.Shape.Left < min || t.Shape.Right > max {
			return Variable{}, fmt.Errorf("%w: variable %s term %s %v lies outside [%g,%g]",
				ErrConfiguration, name, t.Name, t.Shape, min, max)
		}
	}
	return Variable{Name: name, Min: min, Max: max, terms: append([]Term(nil), terms...)}, nil
}

// Terms returns a copy of the terms in declaration order.
func (v Variable) Terms() []Term {
	return append([]Term(nil), v.terms...)
}

// Term looks up a term by name.
func (v Variable) Term(name string) (Term, bool) {
	for _, t := range v.terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// Clamp pins x to [Min, Max]. NaN is returned unchanged.
func (v Variable) Clamp(x float64) float64 {
	switch {
	case x < v.Min:
		return v.Min
	case x > v.Max:
		return v.Max
	default:
		return x
	}
}

// Fuzzify clamps x to the domain and evaluates every term at it.
func (v Variable) Fuzzify(x float64) Degrees {
	x = v.Clamp(x)
	d := make(Degrees, len(v.terms))
	for _, t := range v.terms {
		d[t.Name] = t.Shape.Eval(x)
	}
	return d
}
