package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRulesetFromConfig(t *testing.T) {
	rs, err := LoadRuleset(filepath.Join("..", "..", "config", "ruleset.yaml"))
	if err != nil {
		t.Fatalf("load shipped ruleset: %v", err)
	}
	if rs.Version == "" || len(rs.Rules) == 0 {
		t.Fatalf("ruleset incomplete: %+v", rs)
	}
	// The shipped file mirrors the compiled-in defaults.
	def := DefaultRuleset()
	if len(rs.Rules) != len(def.Rules) {
		t.Fatalf("shipped ruleset has %d rules, defaults have %d", len(rs.Rules), len(def.Rules))
	}
	for i, r := range rs.Rules {
		if r.ID != def.Rules[i].ID || r.Threshold != def.Rules[i].Threshold {
			t.Fatalf("rule %d drifted: file=%+v default=%+v", i, r, def.Rules[i])
		}
	}
}

func writeTempRuleset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write temp ruleset: %v", err)
	}
	return path
}

func TestLoadRulesetRejectsDuplicateIDs(t *testing.T) {
	path := writeTempRuleset(t, `
version: test
rules:
  - {id: a, nutrient: protein, comparator: ">=", threshold: 10, basis: per_serving, source: FSSAI}
  - {id: a, nutrient: sugar, comparator: "<=", threshold: 5, basis: per_100g, source: FSSAI}
`)
	if _, err := LoadRuleset(path); err == nil {
		t.Fatalf("duplicate rule ids must be rejected")
	}
}

func TestLoadRulesetRejectsBadComparator(t *testing.T) {
	path := writeTempRuleset(t, `
version: test
rules:
  - {id: a, nutrient: protein, comparator: "!=", threshold: 10, basis: per_serving, source: FSSAI}
`)
	if _, err := LoadRuleset(path); err == nil {
		t.Fatalf("unknown comparator must be rejected")
	}
}

func TestLoadRulesetRejectsEmpty(t *testing.T) {
	path := writeTempRuleset(t, "version: test\nrules: []\n")
	if _, err := LoadRuleset(path); err == nil {
		t.Fatalf("empty ruleset must be rejected")
	}
}

func TestLoadAllergensFromConfig(t *testing.T) {
	d, err := LoadAllergens(filepath.Join("..", "..", "config", "allergens.yaml"))
	if err != nil {
		t.Fatalf("load shipped allergen dictionary: %v", err)
	}
	if len(d["milk"]) == 0 || len(d["peanuts"]) == 0 {
		t.Fatalf("dictionary incomplete: %+v", d)
	}
}
