// Package rules evaluates normalized label data against a declarative table
// of FSSAI/WHO-style regulatory thresholds.
package rules

import (
	"fmt"
	"strings"

	"nutriscan/pkg/label"
)

// Comparator of a threshold rule. Comparisons are equality-inclusive at the
// exact threshold unless the rule is marked Strict.
type Comparator string

const (
	AtMost  Comparator = "<="
	AtLeast Comparator = ">="
	Exactly Comparator = "="
)

// Basis states which quantity a threshold applies to.
type Basis string

const (
	PerServing Basis = "per_serving"
	Per100g    Basis = "per_100g"
)

// ClaimState tracks a claim through the engine: it starts unmapped, gains a
// rule by keyword matching, and ends evaluated.
type ClaimState string

const (
	StateUnmapped  ClaimState = "unmapped"
	StateEvaluated ClaimState = "evaluated"
)

// StandardRule is one declarative regulatory threshold.
type StandardRule struct {
	ID             string         `yaml:"id"`
	AppliesToClaim []string       `yaml:"applies_to_claim"`
	Nutrient       label.Nutrient `yaml:"nutrient"`
	Comparator     Comparator     `yaml:"comparator"`
	Threshold      float64        `yaml:"threshold"`
	Basis          Basis          `yaml:"basis"`
	Source         string         `yaml:"source"`
	Strict         bool           `yaml:"strict,omitempty"`
}

// ClaimResult is the per-claim verdict.
type ClaimResult struct {
	Claim     string     `json:"claim"`
	RuleID    string     `json:"rule_id,omitempty"`
	State     ClaimState `json:"state"`
	Compliant bool       `json:"compliant"`
	Message   string     `json:"message"`
}

// Verification is the aggregate compliance verdict.
type Verification struct {
	OverallCompliance bool          `json:"overall_compliance"`
	TrustScore        float64       `json:"trust_score"`
	Claims            []ClaimResult `json:"claims"`
	Warnings          []string      `json:"warnings,omitempty"`
	Recommendations   []string      `json:"recommendations,omitempty"`
}

// TrustFloor is the minimum trust score for an overall-compliant verdict;
// below it even nominally passing claims are reported non-compliant overall.
const TrustFloor = 0.5

// Engine evaluates claims against a rule table loaded once at startup.
// The table is read-only for the lifetime of the engine.
type Engine struct {
	rules []StandardRule
}

// NewEngine builds an engine over a loaded ruleset.
func NewEngine(rs *Ruleset) *Engine {
	return &Engine{rules: rs.Rules}
}

// mapClaim finds the first rule whose claim keyword is contained in the
// claim text, case-insensitively. Rule order is table order, so loading
// order is the documented precedence.
func (e *Engine) mapClaim(claim string) *StandardRule {
	low := strings.ToLower(claim)
	for i := range e.rules {
		for _, kw := range e.rules[i].AppliesToClaim {
			if kw != "" && strings.Contains(low, strings.ToLower(kw)) {
				return &e.rules[i]
			}
		}
	}
	return nil
}

// Verify evaluates every supplied claim against the rule table and scales
// the aggregate trust score by the extraction confidence. Running it twice
// on the same inputs yields identical output.
func (e *Engine) Verify(facts label.NutritionFacts, serving label.ServingInfo, conf label.ConfidenceVector, claims []string) Verification {
	out := Verification{}
	evaluated, compliant := 0, 0

	for _, claim := range claims {
		rule := e.mapClaim(claim)
		if rule == nil {
			out.Claims = append(out.Claims, ClaimResult{
				Claim:   claim,
				State:   StateUnmapped,
				Message: "claim does not match any known standard; not counted toward compliance",
			})
			continue
		}
		res := e.evaluate(claim, rule, facts, serving)
		out.Claims = append(out.Claims, res)
		evaluated++
		if res.Compliant {
			compliant++
		}
	}

	fraction := 1.0
	if evaluated > 0 {
		fraction = float64(compliant) / float64(evaluated)
	}
	out.TrustScore = fraction * conf.Overall
	out.OverallCompliance = compliant == evaluated && out.TrustScore >= TrustFloor

	out.Warnings = advisoryWarnings(facts, e.rules)
	out.Recommendations = recommendations(facts, claims)
	return out
}

// evaluate applies one rule to the facts, converting between per-serving
// and per-100g bases when the serving size allows it.
func (e *Engine) evaluate(claim string, rule *StandardRule, facts label.NutritionFacts, serving label.ServingInfo) ClaimResult {
	res := ClaimResult{Claim: claim, RuleID: rule.ID, State: StateEvaluated}

	value, ok := facts.Get(rule.Nutrient)
	if !ok {
		// Absent is absent: an undeclared nutrient never evaluates as 0.
		res.Message = fmt.Sprintf("%s is not declared on the label; claim cannot be substantiated", rule.Nutrient)
		return res
	}

	value, ok = convertBasis(value, FactsBasis, rule.Basis, serving)
	if !ok {
		res.Message = fmt.Sprintf("serving size unknown; cannot convert %s to a %s basis", rule.Nutrient, rule.Basis)
		return res
	}

	res.Compliant = compare(value, rule.Threshold, rule.Comparator, rule.Strict)
	unit := label.CanonicalUnit(rule.Nutrient)
	if res.Compliant {
		res.Message = fmt.Sprintf("meets %s standard %s: %s %.4g%s %s %.4g%s",
			rule.Source, rule.ID, rule.Nutrient, value, unit, rule.Comparator, rule.Threshold, unit)
	} else {
		res.Message = fmt.Sprintf("fails %s standard %s: %s is %.4g%s, requires %s %.4g%s",
			rule.Source, rule.ID, rule.Nutrient, value, unit, rule.Comparator, rule.Threshold, unit)
	}
	return res
}

// FactsBasis is the basis nutrition tables are parsed on: values are taken
// as printed for one serving.
const FactsBasis = PerServing

// convertBasis converts value between bases using the serving size. When
// the conversion is needed but the serving size is unknown the basis is
// indeterminate and the caller surfaces that instead of assuming.
func convertBasis(value float64, from, to Basis, serving label.ServingInfo) (float64, bool) {
	if from == to {
		return value, true
	}
	grams, ok := serving.ServingSizeGrams()
	if !ok || grams <= 0 {
		return 0, false
	}
	switch {
	case from == PerServing && to == Per100g:
		return value * 100 / grams, true
	case from == Per100g && to == PerServing:
		return value * grams / 100, true
	}
	return 0, false
}

func compare(value, threshold float64, cmp Comparator, strict bool) bool {
	switch cmp {
	case AtMost:
		if strict {
			return value < threshold
		}
		return value <= threshold
	case AtLeast:
		if strict {
			return value > threshold
		}
		return value >= threshold
	case Exactly:
		return value == threshold
	}
	return false
}
