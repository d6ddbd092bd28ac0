package rules

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"

	"nutriscan/pkg/label"
)

// Ruleset is the versioned regulatory threshold table. It is loaded once
// at process start and never mutated afterwards.
type Ruleset struct {
	Version string         `yaml:"version"`
	Rules   []StandardRule `yaml:"rules"`
}

// LoadRuleset reads a ruleset from a YAML file and validates it.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	if err := rs.validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (rs *Ruleset) validate() error {
	if len(rs.Rules) == 0 {
		return fmt.Errorf("ruleset %q has no rules", rs.Version)
	}
	seen := map[string]struct{}{}
	for _, r := range rs.Rules {
		if r.ID == "" {
			return fmt.Errorf("ruleset %q: rule without id", rs.Version)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("ruleset %q: duplicate rule id %s", rs.Version, r.ID)
		}
		seen[r.ID] = struct{}{}
		switch r.Comparator {
		case AtMost, AtLeast, Exactly:
		default:
			return fmt.Errorf("rule %s: unknown comparator %q", r.ID, r.Comparator)
		}
		switch r.Basis {
		case PerServing, Per100g:
		default:
			return fmt.Errorf("rule %s: unknown basis %q", r.ID, r.Basis)
		}
	}
	return nil
}

// DefaultRuleset returns the compiled-in FSSAI/WHO threshold table, used
// when no ruleset file is configured.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Version: "fssai-2024.1",
		Rules: []StandardRule{
			{ID: "fssai-high-protein", AppliesToClaim: []string{"high protein", "protein rich", "rich in protein"},
				Nutrient: label.Protein, Comparator: AtLeast, Threshold: 10, Basis: PerServing, Source: "FSSAI"},
			{ID: "fssai-source-of-protein", AppliesToClaim: []string{"source of protein", "contains protein"},
				Nutrient: label.Protein, Comparator: AtLeast, Threshold: 5, Basis: PerServing, Source: "FSSAI"},
			{ID: "fssai-high-fiber", AppliesToClaim: []string{"high fiber", "high fibre", "rich in fiber", "rich in fibre"},
				Nutrient: label.Fiber, Comparator: AtLeast, Threshold: 6, Basis: PerServing, Source: "FSSAI"},
			{ID: "fssai-source-of-fiber", AppliesToClaim: []string{"source of fiber", "source of fibre"},
				Nutrient: label.Fiber, Comparator: AtLeast, Threshold: 3, Basis: PerServing, Source: "FSSAI"},
			{ID: "fssai-sugar-free", AppliesToClaim: []string{"sugar free", "sugarless", "no sugar"},
				Nutrient: label.Sugar, Comparator: AtMost, Threshold: 0.5, Basis: Per100g, Source: "FSSAI"},
			{ID: "fssai-low-sugar", AppliesToClaim: []string{"low sugar", "less sugar"},
				Nutrient: label.Sugar, Comparator: AtMost, Threshold: 5, Basis: Per100g, Source: "FSSAI"},
			{ID: "fssai-fat-free", AppliesToClaim: []string{"fat free", "zero fat", "no fat"},
				Nutrient: label.Fat, Comparator: AtMost, Threshold: 0.5, Basis: Per100g, Source: "FSSAI"},
			{ID: "fssai-low-fat", AppliesToClaim: []string{"low fat"},
				Nutrient: label.Fat, Comparator: AtMost, Threshold: 3, Basis: Per100g, Source: "FSSAI"},
			{ID: "fssai-very-low-sodium", AppliesToClaim: []string{"very low sodium"},
				Nutrient: label.Sodium, Comparator: AtMost, Threshold: 40, Basis: Per100g, Source: "FSSAI"},
			{ID: "fssai-low-sodium", AppliesToClaim: []string{"low sodium", "low salt"},
				Nutrient: label.Sodium, Comparator: AtMost, Threshold: 120, Basis: Per100g, Source: "FSSAI"},
			// Absolute limit with no claim wording of its own; surfaced as
			// an advisory warning whenever trans fat is declared.
			{ID: "fssai-trans-fat-limit",
				Nutrient: label.TransFat, Comparator: AtMost, Threshold: 2.2, Basis: PerServing, Source: "FSSAI"},
		},
	}
}
