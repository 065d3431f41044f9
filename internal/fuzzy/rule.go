package fuzzy

import "fmt"

// Rule reads "IF input IS Antecedent THEN output IS Consequent".
type Rule struct {
	Antecedent string
	Consequent string
}

func (r Rule) String() string {
	return "IF " + r.Antecedent + " THEN " + r.Consequent
}

// Activation is the firing strength a rule assigns to its consequent term.
type Activation struct {
	Consequent string  `json:"consequent"`
	Strength   float64 `json:"strength"`
}

// RuleBase is a fixed, ordered rule list bound to an input and output variable.
type RuleBase struct {
	rules []Rule
}

// NewRuleBase checks that every rule names a declared term on each side.
func NewRuleBase(input, output Variable, rules ...Rule) (RuleBase, error) {
	if len(rules) == 0 {
		return RuleBase{}, fmt.Errorf("%w: rule base is empty", ErrConfiguration)
	}
	for i, r := range rules {
		if _, ok := input.Term(r.Antecedent); !ok {
			return RuleBase{}, fmt.Errorf("%w: rule %d (%s): %s has no term %q",
				ErrConfiguration, i, r, input.Name, r.Antecedent)
		}
		if _, ok := output.Term(r.Consequent); !ok {
			return RuleBase{}, fmt.Errorf("%w: rule %d (%s): %s has no term %q",
				ErrConfiguration, i, r, output.Name, r.Consequent)
		}
	}
	return RuleBase{rules: append([]Rule(nil), rules...)}, nil
}

// Rules returns a copy of the rules in order.
func (rb RuleBase) Rules() []Rule {
	return append([]Rule(nil), rb.rules...)
}

// Evaluate returns one activation per rule, in rule order. With a single
// antecedent the firing strength is the antecedent degree itself.
func (rb RuleBase) Evaluate(degrees Degrees) []Activation {
	out := make([]Activation, len(rb.rules))
	for i, r := range rb.rules {
		out[i] = Activation{Consequent: r.Consequent, Strength: degrees[r.Antecedent]}
	}
	return out
}

// CombineActivations folds activations sharing a consequent with max (fuzzy OR).
func CombineActivations(acts []Activation) map[string]float64 {
	out := make(map[string]float64, len(acts))
	for _, a := range acts {
		if cur, ok := out[a.Consequent]; !ok || a.Strength > cur {
			out[a.Consequent] = a.Strength
		}
	}
	return out
}
