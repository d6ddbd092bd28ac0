package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"nutriscan/pkg/label"
	"nutriscan/pkg/rules"
)

// fakeExtractor serves scripted lines per region kind, standing in for
// Tesseract so pipeline behavior is testable without an OCR runtime.
type fakeExtractor struct {
	byKind  map[label.RegionKind][]string
	quality float64
	err     error
	delay   time.Duration
}

func (f *fakeExtractor) ExtractRegion(ctx context.Context, _ image.Image, region label.Region) ([]string, float64, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.byKind[region.Kind], f.quality, nil
}

// testLabelImage paints a photo the segmenter resolves into a ruled
// nutrition-table block and a dense ingredient block.
func testLabelImage() label.LabelImage {
	img := imaging.New(800, 1200, color.NRGBA{255, 255, 255, 255})
	black := color.NRGBA{0, 0, 0, 255}
	for y := 100; y < 300; y++ {
		if (y/6)%2 == 0 {
			for x := 0; x < 800; x++ {
				img.Set(x, y, black)
			}
		}
	}
	for y := 600; y < 800; y++ {
		for x := 0; x < 800; x += 3 {
			img.Set(x, y, black)
		}
	}
	return label.LabelImage{Pixels: img, Format: "png"}
}

func cleanLabelExtractor() *fakeExtractor {
	return &fakeExtractor{
		quality: 0.9,
		byKind: map[label.RegionKind][]string{
			label.KindNutritionTable: {
				"Nutrition Facts",
				"Serving Size: 40g",
				"Energy 165 kcal",
				"Protein 10 g",
				"Carbohydrates 20 g",
				"Fat 5 g",
				"Sugar 1 g",
				"Sodium 90 mg",
				"Fiber 2 g",
			},
			label.KindIngredientList: {
				"INGREDIENTS: oats, whey protein concentrate, cane sugar, almonds",
			},
		},
	}
}

func TestProcessCleanLabelRoundTrip(t *testing.T) {
	p := New(cleanLabelExtractor())
	res, err := p.Process(context.Background(), testLabelImage(), []string{"High Protein", "Low Sugar"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// All seven core nutrients parsed back out of the synthetic label.
	for _, n := range label.CoreNutrients {
		if _, ok := res.Facts.Get(n); !ok {
			t.Fatalf("nutrient %s missing from %v", n, res.Facts)
		}
	}
	if v, _ := res.Facts.Get(label.Protein); v != 10 {
		t.Fatalf("protein = %v want 10", v)
	}
	if v, _ := res.Facts.Get(label.Sodium); v != 90 {
		t.Fatalf("sodium = %v want 90mg", v)
	}

	// Energy identity holds exactly (4*10 + 4*20 + 9*5 = 165).
	if res.Confidence.NumericConsistency != 1 {
		t.Fatalf("consistency = %v want 1", res.Confidence.NumericConsistency)
	}
	if res.Confidence.FieldCompleteness != 1 {
		t.Fatalf("completeness = %v want 1", res.Confidence.FieldCompleteness)
	}

	// Hand-computed verdicts: protein 10g meets the inclusive >=10g
	// threshold; sugar 1g/40g serving is 2.5g/100g, under the 5g limit.
	for _, c := range res.Verification.Claims {
		if !c.Compliant {
			t.Fatalf("claim %q should be compliant: %s", c.Claim, c.Message)
		}
	}
	if !res.Verification.OverallCompliance {
		t.Fatalf("clean label should be overall compliant (trust=%v)", res.Verification.TrustScore)
	}

	// whey, cane sugar->sugar, almonds->almond matched against allergens.
	foundMilk, foundNuts := false, false
	for _, m := range res.Allergens {
		if m.Allergen == "milk" {
			foundMilk = true
		}
		if m.Allergen == "tree_nuts" {
			foundNuts = true
		}
	}
	if !foundMilk || !foundNuts {
		t.Fatalf("expected milk and tree_nuts allergen hits: %+v", res.Allergens)
	}
}

func TestProcessNilImage(t *testing.T) {
	p := New(cleanLabelExtractor())
	if _, err := p.Process(context.Background(), label.LabelImage{}, nil); !errors.Is(err, label.ErrUndecodableImage) {
		t.Fatalf("expected ErrUndecodableImage, got %v", err)
	}
}

func TestExtractionFailureDegradesNotAborts(t *testing.T) {
	p := New(&fakeExtractor{err: errors.New("ocr backend down")})
	res, err := p.Process(context.Background(), testLabelImage(), []string{"high protein"})
	if err != nil {
		t.Fatalf("extraction failure must not abort the request: %v", err)
	}
	if res.Confidence.TextClarity != 0 {
		t.Fatalf("failed regions must carry zero quality, clarity = %v", res.Confidence.TextClarity)
	}
	if len(res.Facts) != 0 {
		t.Fatalf("no facts expected, got %v", res.Facts)
	}
	c := res.Verification.Claims[0]
	if c.State != rules.StateEvaluated || c.Compliant {
		t.Fatalf("mapped claim on an unreadable label must evaluate non-compliant: %+v", c)
	}
	if res.Verification.OverallCompliance {
		t.Fatalf("unreadable label must not verify as compliant")
	}
}

func TestOCRTimeoutFailsRegionNotRequest(t *testing.T) {
	p := New(&fakeExtractor{delay: 5 * time.Second, quality: 0.9})
	p.OCRTimeout = 10 * time.Millisecond
	start := time.Now()
	res, err := p.Process(context.Background(), testLabelImage(), nil)
	if err != nil {
		t.Fatalf("timeout must degrade, not fail: %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("timeout was not enforced")
	}
	if res.Confidence.TextClarity != 0 {
		t.Fatalf("timed-out regions must carry zero quality")
	}
}

func TestAllergensReportedAtZeroConfidence(t *testing.T) {
	p := New(&fakeExtractor{
		quality: 0,
		byKind: map[label.RegionKind][]string{
			label.KindIngredientList: {"INGREDIENTS: milk solids, peanuts"},
		},
	})
	res, err := p.Process(context.Background(), testLabelImage(), nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Confidence.TextClarity != 0 {
		t.Fatalf("clarity = %v want 0", res.Confidence.TextClarity)
	}
	// Safety information is never suppressed by low confidence.
	if len(res.Allergens) == 0 {
		t.Fatalf("allergen matches must be reported even at zero confidence")
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	p := New(cleanLabelExtractor())
	items := p.ProcessBatch(context.Background(), []BatchInput{
		{Image: testLabelImage(), Claims: []string{"high protein"}},
		{}, // nil image: undecodable
		{Image: testLabelImage()},
	})
	if len(items) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(items))
	}
	if items[0].Err != nil || items[0].Result == nil {
		t.Fatalf("slot 0 should succeed: %+v", items[0])
	}
	if !errors.Is(items[1].Err, label.ErrUndecodableImage) {
		t.Fatalf("slot 1 should fail alone: %+v", items[1])
	}
	if items[2].Err != nil || items[2].Result == nil {
		t.Fatalf("slot 2 must be unaffected by slot 1: %+v", items[2])
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	p := New(cleanLabelExtractor())
	claims := []string{"high protein", "low sugar"}
	a, err := p.Process(context.Background(), testLabelImage(), claims)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	b, err := p.Process(context.Background(), testLabelImage(), claims)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs must produce identical results")
	}
}
