package label

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Extractor turns one region of a label photo into raw text lines plus a
// quality score in [0,1]. Implementations must be safe for concurrent use
// across regions; the pipeline fans regions out in parallel.
type Extractor interface {
	ExtractRegion(ctx context.Context, img image.Image, region Region) ([]string, float64, error)
}

// TesseractExtractor runs Tesseract through gosseract. A fresh client is
// created per call so concurrent region extraction shares no state.
type TesseractExtractor struct {
	// Language defaults to "eng".
	Language string
	// PSM defaults to PSM_SINGLE_BLOCK, which suits label panels.
	PSM gosseract.PageSegMode
}

type ocrOutput struct {
	text    string
	quality float64
	err     error
}

// ExtractRegion crops the region, OCRs it, and scores the result from the
// word-level confidence distribution. Honors ctx cancellation: the OCR call
// itself is a blocking C call, so it runs in its own goroutine and a timeout
// abandons it rather than interrupting it.
func (e *TesseractExtractor) ExtractRegion(ctx context.Context, img image.Image, region Region) ([]string, float64, error) {
	if img == nil {
		return nil, 0, ErrUndecodableImage
	}
	prep := prepareImage(img)
	crop := imaging.Crop(prep, scaleRect(region.Bounds, img.Bounds(), prep.Bounds()))
	if crop.Bounds().Empty() {
		return nil, 0, fmt.Errorf("empty region crop %v", region.Bounds)
	}

	tmp, err := os.CreateTemp("", "label-region-*.png")
	if err != nil {
		return nil, 0, fmt.Errorf("region temp file: %w", err)
	}
	_ = tmp.Close()
	defer os.Remove(tmp.Name())
	if err := imaging.Save(crop, tmp.Name()); err != nil {
		return nil, 0, fmt.Errorf("save region crop: %w", err)
	}

	ch := make(chan ocrOutput, 1)
	go func() { ch <- e.runTesseract(tmp.Name()) }()
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case out := <-ch:
		if out.err != nil {
			return nil, 0, out.err
		}
		return splitLines(out.text), out.quality, nil
	}
}

func (e *TesseractExtractor) runTesseract(path string) ocrOutput {
	client := gosseract.NewClient()
	defer client.Close()
	lang := e.Language
	if lang == "" {
		lang = "eng"
	}
	_ = client.SetLanguage(lang)
	// PSM_OSD_ONLY is the zero value and reads as "unset"; it produces no
	// text anyway, so losing it to the default costs nothing.
	psm := e.PSM
	if psm == 0 {
		psm = gosseract.PSM_SINGLE_BLOCK
	}
	_ = client.SetPageSegMode(psm)
	_ = client.SetImage(path)
	text, err := client.Text()
	if err != nil {
		return ocrOutput{err: fmt.Errorf("tesseract: %w", err)}
	}
	quality := confidenceQuality(client, text)
	return ocrOutput{text: text, quality: quality}
}

// confidenceQuality derives a [0,1] score from the mean and variance of
// Tesseract's per-word confidences. When no word boxes are available it
// falls back to a text-shape heuristic.
func confidenceQuality(client *gosseract.Client, text string) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return heuristicQuality(text)
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	mean := sum / float64(len(boxes))
	var varSum float64
	for _, b := range boxes {
		d := b.Confidence - mean
		varSum += d * d
	}
	stddev := math.Sqrt(varSum / float64(len(boxes)))
	q := mean/100 - stddev/250
	return clamp01(q)
}

// heuristicQuality estimates readability from the text alone: mostly
// alphanumeric output with a few digits reads like a real label panel.
func heuristicQuality(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	letters, digits, junk := 0, 0, 0
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letters++
		case r >= '0' && r <= '9':
			digits++
		case r == ' ', r == '\n', r == '.', r == ',', r == ':', r == '%', r == '(', r == ')':
		default:
			junk++
		}
	}
	total := letters + digits + junk
	if total == 0 {
		return 0
	}
	q := float64(letters+digits) / float64(total)
	if len(trimmed) < 12 {
		q *= 0.5
	}
	return clamp01(q)
}

// scaleRect maps a rectangle from the original image space to the prepared
// (possibly upscaled) image space.
func scaleRect(r, from, to image.Rectangle) image.Rectangle {
	if from.Dx() == 0 || from.Dy() == 0 {
		return r
	}
	sx := float64(to.Dx()) / float64(from.Dx())
	sy := float64(to.Dy()) / float64(from.Dy())
	return image.Rect(
		to.Min.X+int(float64(r.Min.X-from.Min.X)*sx),
		to.Min.Y+int(float64(r.Min.Y-from.Min.Y)*sy),
		to.Min.X+int(float64(r.Max.X-from.Min.X)*sx),
		to.Min.Y+int(float64(r.Max.Y-from.Min.Y)*sy),
	)
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
