// Package scan wires the extraction pipeline to the rule engine: one label
// image in, one aggregate verdict out. Processing is stateless across
// requests; the only shared state is the read-only rule table and allergen
// dictionary held by the pipeline.
package scan

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nutriscan/pkg/label"
	"nutriscan/pkg/rules"
)

const (
	defaultOCRTimeout = 20 * time.Second
	defaultBatchLimit = 4
)

// Pipeline composes segmentation, extraction, normalization, confidence
// estimation, rule evaluation and allergen matching.
type Pipeline struct {
	Extractor label.Extractor
	Engine    *rules.Engine
	Allergens rules.AllergenDictionary
	// OCRTimeout bounds each region's OCR call; a timed-out region is
	// treated as extraction-failed (quality 0), not as a request failure.
	OCRTimeout time.Duration
	// BatchLimit bounds concurrent images in ProcessBatch.
	BatchLimit int
}

// New builds a pipeline with the default rule table and allergen
// dictionary. The caller supplies the OCR backend.
func New(extractor label.Extractor) *Pipeline {
	return &Pipeline{
		Extractor: extractor,
		Engine:    rules.NewEngine(rules.DefaultRuleset()),
		Allergens: rules.DefaultAllergens(),
	}
}

// Result is the aggregate answer for one label image.
type Result struct {
	Facts        label.NutritionFacts   `json:"nutrition_facts"`
	Serving      label.ServingInfo      `json:"serving_info"`
	Ingredients  label.IngredientList   `json:"ingredients"`
	RawText      string                 `json:"raw_text"`
	Confidence   label.ConfidenceVector `json:"confidence"`
	Verification rules.Verification     `json:"verification"`
	Allergens    []rules.AllergenMatch  `json:"allergens_detected,omitempty"`
}

// Process runs the full pipeline for one image. Only an unusable input
// image is an error; every extraction anomaly degrades the confidence and
// compliance output instead.
func (p *Pipeline) Process(ctx context.Context, img label.LabelImage, claims []string) (*Result, error) {
	if img.Pixels == nil {
		return nil, label.ErrUndecodableImage
	}

	regions := label.SegmentRegions(img)
	if len(regions) == 0 {
		log.Printf("scan: no label regions detected (format=%s)", img.Format)
	}

	// Regions have no data dependency on each other; OCR them in parallel,
	// one worker per region (at most a handful per label).
	g, gctx := errgroup.WithContext(ctx)
	for i := range regions {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, p.ocrTimeout())
			defer cancel()
			lines, quality, err := p.Extractor.ExtractRegion(rctx, img.Pixels, regions[i])
			if err != nil {
				// Extraction failure downgrades this region only.
				log.Printf("scan: region %s/%d extraction failed: %v", regions[i].Kind, regions[i].SubIndex, err)
				regions[i].RawText = nil
				regions[i].Quality = 0
				return nil
			}
			regions[i].RawText = lines
			regions[i].Quality = quality
			return nil
		})
	}
	_ = g.Wait()

	regions = label.RetagByKeywords(regions)
	facts, serving, ingredients := label.NormalizeFacts(regions)
	confidence := label.EstimateConfidence(regions, facts, serving)

	res := &Result{
		Facts:        facts,
		Serving:      serving,
		Ingredients:  ingredients,
		RawText:      joinRegionText(regions),
		Confidence:   confidence,
		Verification: p.Engine.Verify(facts, serving, confidence, claims),
		Allergens:    p.Allergens.Match(ingredients),
	}
	return res, nil
}

// BatchInput pairs one image with its asserted claims.
type BatchInput struct {
	Image  label.LabelImage
	Claims []string
}

// BatchItem is one slot of a batch result; Err is set when that image
// failed, without affecting its siblings.
type BatchItem struct {
	Result *Result
	Err    error
}

// ProcessBatch scans images with bounded concurrency. One image's failure
// never cancels the others; errors land in the matching result slot.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []BatchInput) []BatchItem {
	out := make([]BatchItem, len(inputs))
	g := new(errgroup.Group)
	g.SetLimit(p.batchLimit())
	for i, in := range inputs {
		g.Go(func() error {
			res, err := p.Process(ctx, in.Image, in.Claims)
			out[i] = BatchItem{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) ocrTimeout() time.Duration {
	if p.OCRTimeout > 0 {
		return p.OCRTimeout
	}
	return defaultOCRTimeout
}

func (p *Pipeline) batchLimit() int {
	if p.BatchLimit > 0 {
		return p.BatchLimit
	}
	return defaultBatchLimit
}

func joinRegionText(regions []label.Region) string {
	var parts []string
	for _, r := range regions {
		parts = append(parts, r.RawText...)
	}
	return strings.Join(parts, "\n")
}
