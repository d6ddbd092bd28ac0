package rules

import (
	"fmt"
	"strings"

	"nutriscan/pkg/label"
)

// WHO daily intake guideline values used for advisory warnings. These are
// informational and never flip the compliance verdict.
const (
	whoDailySodiumMg   = 5000.0
	whoDailySugarG     = 25.0
	whoSodiumShareWarn = 0.20
	whoSugarShareWarn  = 0.25
	transFatLimitG     = 2.2
)

// advisoryWarnings flags values that exceed absolute limits or a large
// share of WHO daily guidelines, independent of any claim on the label.
func advisoryWarnings(facts label.NutritionFacts, table []StandardRule) []string {
	var warnings []string

	if tf, ok := facts.Get(label.TransFat); ok {
		limit := transFatLimitG
		for _, r := range table {
			if r.ID == "fssai-trans-fat-limit" {
				limit = r.Threshold
			}
		}
		if tf > limit {
			warnings = append(warnings,
				fmt.Sprintf("trans fat %.4gg exceeds the FSSAI limit of %.4gg per serving", tf, limit))
		}
	}

	if sodium, ok := facts.Get(label.Sodium); ok {
		if share := sodium / whoDailySodiumMg; share > whoSodiumShareWarn {
			warnings = append(warnings,
				fmt.Sprintf("high sodium: %.4gmg is %.0f%% of the WHO daily guideline per serving", sodium, share*100))
		}
	}

	if sugar, ok := facts.Get(label.Sugar); ok {
		if share := sugar / whoDailySugarG; share > whoSugarShareWarn {
			warnings = append(warnings,
				fmt.Sprintf("high sugar: %.4gg is %.0f%% of the WHO daily guideline per serving", sugar, share*100))
		}
	}

	return warnings
}

// recommendations generates the short human-readable guidance strings the
// caller shows next to the verdict.
func recommendations(facts label.NutritionFacts, claims []string) []string {
	var recs []string

	if protein, ok := facts.Get(label.Protein); ok {
		switch {
		case protein >= 10:
			recs = append(recs, "good protein source")
			if !claimMentions(claims, "protein") {
				recs = append(recs, fmt.Sprintf("qualifies as 'High Protein' by FSSAI standards (%.4gg per serving, no claim made)", protein))
			}
		case protein >= 5:
			recs = append(recs, "moderate protein content")
		default:
			recs = append(recs, "low protein content")
		}
	}

	if sugar, ok := facts.Get(label.Sugar); ok && sugar > 10 {
		recs = append(recs, "high sugar content; consume in moderation")
	}
	if tf, ok := facts.Get(label.TransFat); ok && tf > 0.5 {
		recs = append(recs, "contains trans fats; limit consumption")
	}

	return recs
}

func claimMentions(claims []string, word string) bool {
	for _, c := range claims {
		if strings.Contains(strings.ToLower(c), word) {
			return true
		}
	}
	return false
}
