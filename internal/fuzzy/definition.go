package fuzzy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/*
YAML definition example (the built-in default):

resolution: 1001
input:
  name: rsi
  min: 0
  max: 100
  terms:
    - {name: low, points: [0, 0, 30]}
    - {name: medium, points: [20, 50, 80]}
    - {name: high, points: [70, 100, 100]}
output:
  name: decision
  min: 0
  max: 10
  terms:
    - {name: sell, points: [0, 0, 5]}
    - {name: hold, points: [0, 5, 10]}
    - {name: buy, points: [5, 10, 10]}
rules:
  - {if: low, then: buy}
  - {if: high, then: sell}
  - {if: medium, then: hold}
*/

// Definition is the serialisable description of an inference system.
type Definition struct {
	Resolution int                `yaml:"resolution" json:"resolution"`
	Input      VariableDefinition `yaml:"input" json:"input"`
	Output     VariableDefinition `yaml:"output" json:"output"`
	Rules      []RuleDefinition   `yaml:"rules" json:"rules"`
}

// VariableDefinition describes one linguistic variable.
type VariableDefinition struct {
	Name  string           `yaml:"name" json:"name"`
	Min   float64          `yaml:"min" json:"min"`
	Max   float64          `yaml:"max" json:"max"`
	Terms []TermDefinition `yaml:"terms" json:"terms"`
}

// TermDefinition is a term with its triangle breakpoints [left, peak, right].
type TermDefinition struct {
	Name   string    `yaml:"name" json:"name"`
	Points []float64 `yaml:"points" json:"points"`
}

// RuleDefinition is one IF/THEN rule.
type RuleDefinition struct {
	If   string `yaml:"if" json:"if"`
	Then string `yaml:"then" json:"then"`
}

// DefaultDefinition returns the RSI → decision system: oversold buys,
// overbought sells, the middle holds.
func DefaultDefinition() Definition {
	return Definition{
		Resolution: DefaultResolution,
		Input: VariableDefinition{
			Name: "rsi", Min: 0, Max: 100,
			Terms: []TermDefinition{
				{Name: "low", Points: []float64{0, 0, 30}},
				{Name: "medium", Points: []float64{20, 50, 80}},
				{Name: "high", Points: []float64{70, 100, 100}},
			},
		},
		Output: VariableDefinition{
			Name: "decision", Min: 0, Max: 10,
			Terms: []TermDefinition{
				{Name: "sell", Points: []float64{0, 0, 5}},
				{Name: "hold", Points: []float64{0, 5, 10}},
				{Name: "buy", Points: []float64{5, 10, 10}},
			},
		},
		Rules: []RuleDefinition{
			{If: "low", Then: "buy"},
			{If: "high", Then: "sell"},
			{If: "medium", Then: "hold"},
		},
	}
}

// ParseDefinition decodes YAML. Omitted fields are not defaulted; a zero
// resolution falls back to DefaultResolution.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("%w: parse definition: %v", ErrConfiguration, err)
	}
	if def.Resolution == 0 {
		def.Resolution = DefaultResolution
	}
	return def, nil
}

// LoadDefinition reads and parses a YAML definition file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read fuzzy definition %s: %w", path, err)
	}
	return ParseDefinition(data)
}

// YAML encodes the definition.
func (d Definition) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// Build validates the definition and constructs an Engine.
func (d Definition) Build() (*Engine, error) {
	in, err := d.Input.build()
	if err != nil {
		return nil, err
	}
	out, err := d.Output.build()
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, len(d.Rules))
	for i, r := range d.Rules {
		rules[i] = Rule{Antecedent: r.If, Consequent: r.Then}
	}
	rb, err := NewRuleBase(in, out, rules...)
	if err != nil {
		return nil, err
	}
	return NewEngine(in, out, rb, d.Resolution)
}

func (v VariableDefinition) build() (Variable, error) {
	terms := make([]Term, len(v.Terms))
	for i, t := range v.Terms {
		if len(t.Points) != 3 {
			return Variable{}, fmt.Errorf("%w: variable %s term %s needs 3 points, got %d",
				ErrConfiguration, v.Name, t.Name, len(t.Points))
		}
		terms[i] = Term{Name: t.Name, Shape: Tri(t.Points[0], t.Points[1], t.Points[2])}
	}
	return NewVariable(v.Name, v.Min, v.Max, terms...)
}

// NewDefaultEngine builds the engine from DefaultDefinition.
func NewDefaultEngine() (*Engine, error) {
	return DefaultDefinition().Build()
}
