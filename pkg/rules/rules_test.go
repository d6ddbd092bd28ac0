package rules

import (
	"reflect"
	"strings"
	"testing"

	"nutriscan/pkg/label"
)

func fullConfidence() label.ConfidenceVector {
	return label.ConfidenceVector{TextClarity: 1, FieldCompleteness: 1, NumericConsistency: 1, Overall: 1}
}

func defaultEngine() *Engine {
	return NewEngine(DefaultRuleset())
}

func TestHighProteinInclusiveBoundary(t *testing.T) {
	e := defaultEngine()
	for _, c := range []struct {
		protein   float64
		compliant bool
	}{
		{12, true},
		{10, true}, // exactly at threshold: inclusive
		{9.9, false},
	} {
		v := e.Verify(label.NutritionFacts{label.Protein: c.protein}, label.ServingInfo{}, fullConfidence(), []string{"High Protein"})
		if len(v.Claims) != 1 {
			t.Fatalf("protein=%v: expected one claim result, got %d", c.protein, len(v.Claims))
		}
		res := v.Claims[0]
		if res.State != StateEvaluated {
			t.Fatalf("protein=%v: state = %s", c.protein, res.State)
		}
		if res.Compliant != c.compliant {
			t.Fatalf("protein=%v: compliant = %v want %v (%s)", c.protein, res.Compliant, c.compliant, res.Message)
		}
	}
}

func TestAbsentNutrientNeverEvaluatesAsZero(t *testing.T) {
	e := defaultEngine()
	// With sugar absent a "sugar free" claim must not pass; substituting 0
	// would make it compliant.
	v := e.Verify(label.NutritionFacts{}, label.ServingInfo{}, fullConfidence(), []string{"Sugar Free"})
	res := v.Claims[0]
	if res.State != StateEvaluated || res.Compliant {
		t.Fatalf("absent sugar must evaluate non-compliant, got %+v", res)
	}
	if !strings.Contains(res.Message, "not declared") {
		t.Fatalf("message should state the nutrient is undeclared: %q", res.Message)
	}
}

func TestUnmappedClaimRecordedAndExcluded(t *testing.T) {
	e := defaultEngine()
	facts := label.NutritionFacts{label.Protein: 15}
	v := e.Verify(facts, label.ServingInfo{}, fullConfidence(), []string{"tastiest snack ever", "high protein"})
	if len(v.Claims) != 2 {
		t.Fatalf("both claims must be recorded, got %d", len(v.Claims))
	}
	if v.Claims[0].State != StateUnmapped || v.Claims[0].RuleID != "" {
		t.Fatalf("unmapped claim: %+v", v.Claims[0])
	}
	// The unmapped claim is excluded from aggregation, so trust stays full.
	if v.TrustScore != 1 {
		t.Fatalf("trust = %v want 1", v.TrustScore)
	}
	if !v.OverallCompliance {
		t.Fatalf("unmapped claim with contradicting evidence absent must not break compliance")
	}
}

func TestTrustFloorBlocksLowConfidenceCompliance(t *testing.T) {
	e := defaultEngine()
	facts := label.NutritionFacts{label.Protein: 15}
	lowConf := label.ConfidenceVector{Overall: 0.1}
	v := e.Verify(facts, label.ServingInfo{}, lowConf, []string{"high protein"})
	if !v.Claims[0].Compliant {
		t.Fatalf("claim itself should be compliant")
	}
	if v.TrustScore != 0.1 {
		t.Fatalf("trust = %v want 0.1", v.TrustScore)
	}
	if v.OverallCompliance {
		t.Fatalf("overall compliance must require trust >= %v", TrustFloor)
	}
}

func TestBasisConversionUsesServingSize(t *testing.T) {
	e := defaultEngine()
	// 3g sugar in a 30g serving is 10g per 100g: fails the low-sugar rule.
	facts := label.NutritionFacts{label.Sugar: 3}
	serving := label.ServingInfo{ServingSize: &label.Measure{Value: 30, Unit: "g"}}
	v := e.Verify(facts, serving, fullConfidence(), []string{"low sugar"})
	if v.Claims[0].Compliant {
		t.Fatalf("10g/100g sugar must fail the low-sugar threshold: %s", v.Claims[0].Message)
	}

	// Same sugar in a 100g serving is 3g per 100g: passes.
	serving = label.ServingInfo{ServingSize: &label.Measure{Value: 100, Unit: "g"}}
	v = e.Verify(facts, serving, fullConfidence(), []string{"low sugar"})
	if !v.Claims[0].Compliant {
		t.Fatalf("3g/100g sugar should pass: %s", v.Claims[0].Message)
	}
}

func TestIndeterminateBasisSurfaced(t *testing.T) {
	e := defaultEngine()
	// Low-sugar is a per-100g rule; without a serving size the conversion
	// basis is indeterminate and must be surfaced, never assumed.
	v := e.Verify(label.NutritionFacts{label.Sugar: 3}, label.ServingInfo{}, fullConfidence(), []string{"low sugar"})
	res := v.Claims[0]
	if res.State != StateEvaluated || res.Compliant {
		t.Fatalf("indeterminate basis must evaluate non-compliant: %+v", res)
	}
	if !strings.Contains(res.Message, "serving size unknown") {
		t.Fatalf("message should state the basis is indeterminate: %q", res.Message)
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	e := defaultEngine()
	facts := label.NutritionFacts{label.Protein: 15, label.Sugar: 2, label.Sodium: 90}
	serving := label.ServingInfo{ServingSize: &label.Measure{Value: 100, Unit: "g"}}
	claims := []string{"high protein", "low sugar", "mystery claim"}
	a := e.Verify(facts, serving, fullConfidence(), claims)
	b := e.Verify(facts, serving, fullConfidence(), claims)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("verification is not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestAdvisoryWarnings(t *testing.T) {
	e := defaultEngine()
	facts := label.NutritionFacts{
		label.Sodium:   1200, // 24% of WHO daily guideline
		label.Sugar:    10,   // 40% of WHO daily guideline
		label.TransFat: 3,    // above the FSSAI absolute limit
	}
	v := e.Verify(facts, label.ServingInfo{}, fullConfidence(), nil)
	if len(v.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", v.Warnings)
	}
	joined := strings.Join(v.Warnings, " | ")
	for _, want := range []string{"trans fat", "sodium", "sugar"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("warnings missing %q: %v", want, v.Warnings)
		}
	}
}

func TestRecommendations(t *testing.T) {
	e := defaultEngine()
	v := e.Verify(label.NutritionFacts{label.Protein: 12}, label.ServingInfo{}, fullConfidence(), nil)
	joined := strings.Join(v.Recommendations, " | ")
	if !strings.Contains(joined, "High Protein") {
		t.Fatalf("12g protein without a claim should note the qualifying standard: %v", v.Recommendations)
	}

	v = e.Verify(label.NutritionFacts{label.Protein: 2}, label.ServingInfo{}, fullConfidence(), nil)
	joined = strings.Join(v.Recommendations, " | ")
	if !strings.Contains(joined, "low protein") {
		t.Fatalf("2g protein should read as low: %v", v.Recommendations)
	}
}

func TestClaimMappingPrecedence(t *testing.T) {
	e := defaultEngine()
	// "rich in protein, high protein" maps to the first matching rule in
	// table order, which is the high-protein rule either way.
	v := e.Verify(label.NutritionFacts{label.Protein: 11}, label.ServingInfo{}, fullConfidence(), []string{"rich in protein"})
	if v.Claims[0].RuleID != "fssai-high-protein" {
		t.Fatalf("rule = %s want fssai-high-protein", v.Claims[0].RuleID)
	}
}
