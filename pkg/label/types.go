package label

import "image"

// RegionKind classifies a segmented area of the label.
type RegionKind string

const (
	KindNutritionTable RegionKind = "nutrition_table"
	KindIngredientList RegionKind = "ingredient_list"
	KindClaimsText     RegionKind = "claims_text"
)

// Region is a tagged rectangle carved out of the label image. SubIndex
// disambiguates repeated kinds (per-serving vs per-100g nutrition tables).
type Region struct {
	Kind     RegionKind
	SubIndex int
	Bounds   image.Rectangle
	// Filled by the extractor.
	RawText []string
	Quality float64
}

// LabelImage is the decoded input borrowed from the caller for one request.
type LabelImage struct {
	Pixels image.Image
	Format string
}

// Nutrient identifies one field of the fixed nutrition set.
type Nutrient string

const (
	Protein       Nutrient = "protein"
	Carbohydrates Nutrient = "carbohydrates"
	Fat           Nutrient = "fat"
	Sugar         Nutrient = "sugar"
	Sodium        Nutrient = "sodium"
	Fiber         Nutrient = "fiber"
	Calories      Nutrient = "calories"
	TransFat      Nutrient = "trans_fat"
)

// CoreNutrients is the enumerated set completeness is measured against.
var CoreNutrients = []Nutrient{Protein, Carbohydrates, Fat, Sugar, Sodium, Fiber, Calories}

// CanonicalUnit returns the unit all values of a nutrient are normalized to.
func CanonicalUnit(n Nutrient) string {
	switch n {
	case Sodium:
		return "mg"
	case Calories:
		return "kcal"
	default:
		return "g"
	}
}

// NutritionFacts maps the fixed nutrient set to canonical-unit values.
// Missing nutrients are simply absent from the map; zero and "not detected"
// stay distinct, and an absent nutrient must never be read as 0 downstream.
type NutritionFacts map[Nutrient]float64

// Get reports the value and whether the nutrient was detected at all.
func (f NutritionFacts) Get(n Nutrient) (float64, bool) {
	v, ok := f[n]
	return v, ok
}

// Measure is a parsed quantity+unit pair as printed on the label.
type Measure struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ServingInfo carries optional serving metadata parsed from the label.
type ServingInfo struct {
	ServingSize     *Measure `json:"serving_size,omitempty"`
	NetWeight       *Measure `json:"net_weight,omitempty"`
	ServingsPerPack *float64 `json:"servings_per_pack,omitempty"`
}

// ServingSizeGrams returns the serving size converted to grams when known.
func (s ServingInfo) ServingSizeGrams() (float64, bool) {
	if s.ServingSize == nil {
		return 0, false
	}
	switch s.ServingSize.Unit {
	case "g", "ml":
		return s.ServingSize.Value, true
	case "kg", "l":
		return s.ServingSize.Value * 1000, true
	case "mg":
		return s.ServingSize.Value / 1000, true
	}
	return 0, false
}

// IngredientList is the ordered, normalized ingredient tokens. Order is
// kept because position correlates with concentration.
type IngredientList []string

// ConfidenceVector aggregates the extraction quality signals, each in [0,1].
type ConfidenceVector struct {
	TextClarity        float64 `json:"text_clarity"`
	FieldCompleteness  float64 `json:"field_completeness"`
	NumericConsistency float64 `json:"numeric_consistency"`
	Overall            float64 `json:"overall"`
}
