package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"nutriscan/pkg/label"
	"nutriscan/pkg/rules"
	"nutriscan/pkg/scan"
)

func main() {
	// Load ./.env if present; real environment variables win.
	_ = godotenv.Load()

	ruleset := rules.DefaultRuleset()
	if path := os.Getenv("RULESET_PATH"); path != "" {
		rs, err := rules.LoadRuleset(path)
		if err != nil {
			log.Fatalf("load ruleset %s: %v", path, err)
		}
		ruleset = rs
	}
	allergens := rules.DefaultAllergens()
	if path := os.Getenv("ALLERGENS_PATH"); path != "" {
		d, err := rules.LoadAllergens(path)
		if err != nil {
			log.Fatalf("load allergen dictionary %s: %v", path, err)
		}
		allergens = d
	}
	log.Printf("ruleset %s loaded (%d rules, %d allergen entries)", ruleset.Version, len(ruleset.Rules), len(allergens))

	ocrTimeout := 20 * time.Second
	if v := os.Getenv("OCR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ocrTimeout = d
		}
	}

	s := &server{
		pipeline: &scan.Pipeline{
			Extractor:  &label.TesseractExtractor{Language: os.Getenv("OCR_LANG")},
			Engine:     rules.NewEngine(ruleset),
			Allergens:  allergens,
			OCRTimeout: ocrTimeout,
		},
		ruleset: ruleset,
	}

	r := gin.Default()
	setupRoutes(r, s)

	addr := ":8082"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
