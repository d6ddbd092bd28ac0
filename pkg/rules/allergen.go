package rules

import (
	"fmt"
	"os"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"nutriscan/pkg/label"
)

// MatchType states how an ingredient token hit the dictionary.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSynonym MatchType = "synonym"
)

// AllergenMatch is one detected allergen occurrence.
type AllergenMatch struct {
	Allergen   string    `json:"allergen"`
	Ingredient string    `json:"ingredient"`
	MatchType  MatchType `json:"match_type"`
}

// AllergenDictionary maps an allergen name to its synonym keywords.
// Matching is token-based, never fuzzy, so short tokens cannot produce
// distance-based false positives.
type AllergenDictionary map[string][]string

// LoadAllergens reads an allergen dictionary from a YAML file.
func LoadAllergens(path string) (AllergenDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allergen dictionary: %w", err)
	}
	var d AllergenDictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse allergen dictionary: %w", err)
	}
	if len(d) == 0 {
		return nil, fmt.Errorf("allergen dictionary %s is empty", path)
	}
	return d, nil
}

// DefaultAllergens returns the compiled-in dictionary of common allergens.
func DefaultAllergens() AllergenDictionary {
	return AllergenDictionary{
		"milk":      {"milk", "dairy", "lactose", "whey", "casein", "butter", "ghee", "paneer"},
		"eggs":      {"egg", "albumin"},
		"peanuts":   {"peanut", "groundnut"},
		"tree_nuts": {"almond", "cashew", "walnut", "pistachio", "hazelnut"},
		"soy":       {"soy", "soya", "soybean"},
		"wheat":     {"wheat", "gluten", "maida"},
		"fish":      {"fish", "anchovy"},
		"shellfish": {"shrimp", "prawn", "crab", "lobster"},
	}
}

// Match scans normalized ingredient tokens and reports every allergen hit.
// Output order is deterministic: ingredients in label order, allergens in
// name order. Matches are reported regardless of extraction confidence;
// safety information is annotated, never suppressed.
func (d AllergenDictionary) Match(ingredients label.IngredientList) []AllergenMatch {
	allergens := make([]string, 0, len(d))
	for name := range d {
		allergens = append(allergens, name)
	}
	sort.Strings(allergens)

	var out []AllergenMatch
	reported := map[string]struct{}{}
	for _, ingredient := range ingredients {
		words := strings.Fields(ingredient)
		for _, allergen := range allergens {
			key := allergen + "\x00" + ingredient
			if _, dup := reported[key]; dup {
				continue
			}
			if mt, ok := matchToken(allergen, d[allergen], ingredient, words); ok {
				out = append(out, AllergenMatch{Allergen: allergen, Ingredient: ingredient, MatchType: mt})
				reported[key] = struct{}{}
			}
		}
	}
	return out
}

// matchToken checks one ingredient against one allergen entry: the whole
// token equal to the allergen name is exact; a word of the token equal to a
// dictionary keyword is a synonym hit.
func matchToken(allergen string, keywords []string, ingredient string, words []string) (MatchType, bool) {
	if ingredient == allergen {
		return MatchExact, true
	}
	for _, kw := range keywords {
		if ingredient == kw {
			if kw == allergen {
				return MatchExact, true
			}
			return MatchSynonym, true
		}
		for _, w := range words {
			if w == kw {
				return MatchSynonym, true
			}
		}
	}
	return "", false
}
