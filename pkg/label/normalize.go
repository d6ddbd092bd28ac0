package label

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// nutrientPatterns are tried in order per nutrient; the first line that
// matches wins and duplicates on later lines are ignored. Group 1 is the
// numeric token, group 2 the optional unit.
var nutrientPatterns = map[Nutrient][]*regexp.Regexp{
	Protein: {
		regexp.MustCompile(`(?i)\bproteins?\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
		regexp.MustCompile(`(?i)\bprot[a-z]*\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
	},
	Carbohydrates: {
		regexp.MustCompile(`(?i)\b(?:total\s+)?carbohydrates?\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
		regexp.MustCompile(`(?i)\bcarbs?\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
	},
	TransFat: {
		regexp.MustCompile(`(?i)\btrans\s*[- ]?fat\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
	},
	Fat: {
		regexp.MustCompile(`(?i)\btotal\s+fat\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
		regexp.MustCompile(`(?i)\bfat\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
	},
	Sugar: {
		regexp.MustCompile(`(?i)\b(?:total\s+)?sugars?\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
	},
	Sodium: {
		regexp.MustCompile(`(?i)\bsodium\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(mg|g)?`),
		regexp.MustCompile(`(?i)\bsalt\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(mg|g)?`),
	},
	Fiber: {
		regexp.MustCompile(`(?i)\b(?:dietary\s+)?fib(?:er|re)\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg)?`),
	},
	Calories: {
		regexp.MustCompile(`(?i)\bcalories\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(kcal)?`),
		regexp.MustCompile(`(?i)\benergy\b[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(kcal)?`),
	},
}

// parseOrder fixes the matching order so trans fat is claimed before the
// plain fat patterns can swallow its line.
var parseOrder = []Nutrient{TransFat, Protein, Carbohydrates, Fat, Sugar, Sodium, Fiber, Calories}

var (
	servingSizeRE = regexp.MustCompile(`(?i)serv(?:ing)?\.?\s*size[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg|kg|ml|l)\b`)
	perServingRE  = regexp.MustCompile(`(?i)per\s+serving[:\s(]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg|kg|ml|l)\b`)
	netWeightRE   = regexp.MustCompile(`(?i)net\s*(?:weight|wt|quantity|qty|contents?)\.?[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(g|mg|kg|ml|l)\b`)
	servingsRE    = regexp.MustCompile(`(?i)servings?\s+per\s+(?:container|package|pack)[:\s]*(?:about\s+|approx\.?\s+)?([0-9]+(?:[.,][0-9]+)?)`)
	containsSrvRE = regexp.MustCompile(`(?i)(?:contains|has)\s+([0-9]+(?:[.,][0-9]+)?)\s+servings?`)
	annotationRE  = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|[0-9]+(?:[.,][0-9]+)?\s*%`)
	ingredientsRE = regexp.MustCompile(`(?i)ingredients?\s*[:\-]\s*(.+)`)
)

// ingredientSynonyms resolves spelling variants to one canonical token.
var ingredientSynonyms = map[string]string{
	"groundnut":      "peanut",
	"groundnuts":     "peanut",
	"peanuts":        "peanut",
	"soya":           "soy",
	"soybean":        "soy",
	"soybeans":       "soy",
	"whole milk":     "milk",
	"skimmed milk":   "milk",
	"milk solids":    "milk",
	"wheat flour":    "wheat",
	"refined flour":  "wheat",
	"maida":          "wheat",
	"cane sugar":     "sugar",
	"sucrose":        "sugar",
	"common salt":    "salt",
	"iodised salt":   "salt",
	"iodized salt":   "salt",
	"edible oil":     "vegetable oil",
	"palmolein":      "palm oil",
	"cocoa solids":   "cocoa",
	"cocoa butter":   "cocoa",
	"eggs":           "egg",
	"almonds":        "almond",
	"cashews":        "cashew",
	"cashew nuts":    "cashew",
	"walnuts":        "walnut",
	"pistachios":     "pistachio",
}

// NormalizeFacts parses raw OCR lines tagged by region kind into typed
// nutrition facts, serving info and the ingredient list. Nutrition values
// are canonical-unit and non-negative; anything unparseable stays absent.
func NormalizeFacts(regions []Region) (NutritionFacts, ServingInfo, IngredientList) {
	var tableLines, ingredientLines, allLines []string
	for _, r := range regions {
		for _, line := range r.RawText {
			line = cleanLine(line)
			if line == "" {
				continue
			}
			allLines = append(allLines, line)
			switch r.Kind {
			case KindNutritionTable:
				tableLines = append(tableLines, line)
			case KindIngredientList:
				ingredientLines = append(ingredientLines, line)
			}
		}
	}
	// A label with no detected table still gets a best-effort parse over
	// everything the extractor saw.
	if len(tableLines) == 0 {
		tableLines = allLines
	}
	if len(ingredientLines) == 0 {
		ingredientLines = allLines
	}

	facts := parseNutrients(tableLines)
	serving := parseServingInfo(strings.Join(allLines, "\n"))
	ingredients := parseIngredients(strings.Join(ingredientLines, " "))
	return facts, serving, ingredients
}

func parseNutrients(lines []string) NutritionFacts {
	facts := NutritionFacts{}
	claimed := make([]bool, len(lines))
	for _, nutrient := range parseOrder {
		for _, re := range nutrientPatterns[nutrient] {
			if _, ok := facts[nutrient]; ok {
				break
			}
			for i, line := range lines {
				if claimed[i] {
					continue
				}
				// Go regexps have no lookbehind; keep the bare "fat"
				// pattern away from saturated-fat rows explicitly.
				if nutrient == Fat && strings.Contains(strings.ToLower(line), "saturat") {
					continue
				}
				m := re.FindStringSubmatch(line)
				if len(m) < 2 {
					continue
				}
				value, ok := parseNumber(m[1])
				if !ok {
					continue
				}
				unit := ""
				if len(m) >= 3 {
					unit = strings.ToLower(m[2])
				}
				value, ok = toCanonical(nutrient, value, unit)
				if !ok {
					continue
				}
				facts[nutrient] = value
				claimed[i] = true
				break
			}
		}
	}
	return facts
}

// toCanonical converts a parsed value to the nutrient's canonical unit and
// applies the plausibility caps. A missing unit defaults to the canonical
// one: grams for macros, milligrams for sodium, kcal for calories.
func toCanonical(n Nutrient, value float64, unit string) (float64, bool) {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	switch n {
	case Sodium:
		if unit == "g" {
			value *= 1000
		}
		if value >= 10000 {
			return 0, false
		}
	case Calories:
		if value >= 10000 {
			return 0, false
		}
	default:
		if unit == "mg" {
			value /= 1000
		}
		if value >= 1000 {
			return 0, false
		}
	}
	return value, true
}

func parseServingInfo(text string) ServingInfo {
	info := ServingInfo{}
	if m := servingSizeRE.FindStringSubmatch(text); len(m) >= 3 {
		if v, ok := parseNumber(m[1]); ok {
			info.ServingSize = &Measure{Value: v, Unit: strings.ToLower(m[2])}
		}
	}
	if info.ServingSize == nil {
		if m := perServingRE.FindStringSubmatch(text); len(m) >= 3 {
			if v, ok := parseNumber(m[1]); ok {
				info.ServingSize = &Measure{Value: v, Unit: strings.ToLower(m[2])}
			}
		}
	}
	if m := netWeightRE.FindStringSubmatch(text); len(m) >= 3 {
		if v, ok := parseNumber(m[1]); ok {
			info.NetWeight = &Measure{Value: v, Unit: strings.ToLower(m[2])}
		}
	}
	if m := servingsRE.FindStringSubmatch(text); len(m) >= 2 {
		if v, ok := parseNumber(m[1]); ok && v > 0 {
			info.ServingsPerPack = &v
		}
	}
	if info.ServingsPerPack == nil {
		if m := containsSrvRE.FindStringSubmatch(text); len(m) >= 2 {
			if v, ok := parseNumber(m[1]); ok && v > 0 {
				info.ServingsPerPack = &v
			}
		}
	}
	return info
}

func parseIngredients(text string) IngredientList {
	m := ingredientsRE.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	body := m[1]
	// The ingredient block often runs into the next panel; cut at the
	// first anchor keyword of another section.
	for _, stop := range []string{"nutrition", "allergen advice", "net weight", "storage"} {
		if idx := strings.Index(strings.ToLower(body), stop); idx > 0 {
			body = body[:idx]
		}
	}
	body = annotationRE.ReplaceAllString(body, "")
	var out IngredientList
	seen := map[string]struct{}{}
	for _, tok := range strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ';' }) {
		tok = strings.Trim(strings.TrimSpace(strings.ToLower(tok)), ".-: ")
		if tok == "" || len(tok) < 2 {
			continue
		}
		if canon, ok := ingredientSynonyms[tok]; ok {
			tok = canon
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// cleanLine NFKC-folds OCR output and collapses whitespace so the regexes
// see consistent codepoints regardless of how the glyphs were recognized.
func cleanLine(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
