package label

import "math"

// Fixed weights of the overall confidence combination. They must sum to 1
// and are the single documented triple used everywhere.
const (
	weightClarity      = 0.4
	weightCompleteness = 0.3
	weightConsistency  = 0.3
)

// Energy constants in kcal per gram and the tolerance band of the energy
// identity check.
const (
	kcalPerGramProtein = 4.0
	kcalPerGramCarbs   = 4.0
	kcalPerGramFat     = 9.0
	energyTolerance    = 0.10
)

// regionImportance weights region qualities in the clarity score; the
// nutrition table carries the result, so it dominates.
var regionImportance = map[RegionKind]float64{
	KindNutritionTable: 3,
	KindIngredientList: 2,
	KindClaimsText:     1,
}

// EstimateConfidence combines per-region OCR quality, nutrient field
// completeness and physical consistency of the parsed numbers into one
// confidence vector.
func EstimateConfidence(regions []Region, facts NutritionFacts, serving ServingInfo) ConfidenceVector {
	v := ConfidenceVector{
		TextClarity:        textClarity(regions),
		FieldCompleteness:  fieldCompleteness(facts),
		NumericConsistency: numericConsistency(facts, serving),
	}
	v.Overall = clamp01(weightClarity*v.TextClarity +
		weightCompleteness*v.FieldCompleteness +
		weightConsistency*v.NumericConsistency)
	return v
}

func textClarity(regions []Region) float64 {
	var sum, weight float64
	for _, r := range regions {
		w := regionImportance[r.Kind]
		if w == 0 {
			w = 1
		}
		sum += w * clamp01(r.Quality)
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

func fieldCompleteness(facts NutritionFacts) float64 {
	found := 0
	for _, n := range CoreNutrients {
		if _, ok := facts.Get(n); ok {
			found++
		}
	}
	return float64(found) / float64(len(CoreNutrients))
}

// numericConsistency starts at 1 and multiplies in a penalty factor for
// every violated physical constraint, so one violation caps the score at
// its factor and multiple violations compound. The result stays in [0,1].
func numericConsistency(facts NutritionFacts, serving ServingInfo) float64 {
	score := 1.0

	// Energy identity: declared calories should match the macro-derived
	// value within the tolerance band.
	protein, hasP := facts.Get(Protein)
	carbs, hasC := facts.Get(Carbohydrates)
	fat, hasF := facts.Get(Fat)
	calories, hasK := facts.Get(Calories)
	if hasP && hasC && hasF && hasK {
		expected := kcalPerGramProtein*protein + kcalPerGramCarbs*carbs + kcalPerGramFat*fat
		if expected > 0 {
			deviation := math.Abs(calories-expected) / expected
			if deviation > energyTolerance {
				// Larger misreads are penalized harder.
				factor := 0.6 - (deviation - energyTolerance)
				if factor < 0.2 {
					factor = 0.2
				}
				score *= factor
			}
		}
	}

	// Macros cannot outweigh the serving they are declared for.
	macroSum := 0.0
	for _, n := range []Nutrient{Protein, Carbohydrates, Fat} {
		if v, ok := facts.Get(n); ok {
			macroSum += v
		}
	}
	if grams, ok := serving.ServingSizeGrams(); ok && grams > 0 {
		if macroSum > grams*1.05 {
			score *= 0.5
		}
	} else if macroSum > 150 {
		score *= 0.7
	}

	// Sugar is a carbohydrate; more sugar than carbohydrates is a misread.
	if sugar, ok := facts.Get(Sugar); ok {
		if c, ok2 := facts.Get(Carbohydrates); ok2 && sugar > c*1.05 {
			score *= 0.7
		}
	}

	return clamp01(score)
}
