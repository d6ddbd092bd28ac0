package label

import (
	"image"
	"sort"
	"strings"
)

const (
	// minBandInk is the row ink density below which a row is background.
	minBandInk = 0.02
	// minRegionInk is the overall density a candidate needs to survive.
	// Below this across the whole image we report "no label detected".
	minRegionInk = 0.01
	// maxPerKind caps duplicated kinds; nutrition tables legitimately
	// repeat once (per-serving and per-100g panels).
	maxPerKind = 2
	bandMerge  = 8
)

// SegmentRegions locates candidate text blocks in a label photo. Returns
// zero regions when nothing on the image clears the minimum text density;
// that is a valid result, not an error.
func SegmentRegions(img LabelImage) []Region {
	if img.Pixels == nil {
		return nil
	}
	prep := prepareImage(img.Pixels)
	bin := adaptiveBinarize(prep, 15, 7)

	bounds := bin.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Horizontal ink profile: fraction of dark pixels per row.
	rows := make([]float64, h)
	for y := 0; y < h; y++ {
		dark := 0
		for x := 0; x < w; x++ {
			if luma(bin.At(bounds.Min.X+x, bounds.Min.Y+y)) < 128 {
				dark++
			}
		}
		rows[y] = float64(dark) / float64(w)
	}

	bands := findBands(rows)
	if len(bands) == 0 {
		return nil
	}

	type candidate struct {
		rect      image.Rectangle
		ink       float64
		lineScore int
	}
	var cands []candidate
	for _, b := range bands {
		rect := image.Rect(bounds.Min.X, bounds.Min.Y+b[0], bounds.Max.X, bounds.Min.Y+b[1])
		ink := inkRatio(bin, rect)
		if ink < minRegionInk {
			continue
		}
		lines := 0
		for y := b[0]; y < b[1]; y++ {
			// Near-solid rows are ruled separators, the signature of a
			// printed nutrition table.
			if rows[y] > 0.55 {
				lines++
			}
		}
		cands = append(cands, candidate{rect: rect, ink: ink, lineScore: lines})
	}
	if len(cands) == 0 {
		return nil
	}

	// Overlapping candidates: keep the denser one.
	sort.Slice(cands, func(i, j int) bool { return cands[i].ink > cands[j].ink })
	var kept []candidate
	for _, c := range cands {
		overlapped := false
		for _, k := range kept {
			if c.rect.Overlaps(k.rect) {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, c)
		}
	}

	// Kind assignment by geometry: ruled blocks read as nutrition tables,
	// the densest remaining block as the ingredient list, the rest as free
	// claims text. OCR keyword anchors refine this later (RetagByKeywords).
	byLines := make([]candidate, len(kept))
	copy(byLines, kept)
	sort.Slice(byLines, func(i, j int) bool { return byLines[i].lineScore > byLines[j].lineScore })

	kindOf := map[image.Rectangle]RegionKind{}
	if byLines[0].lineScore >= 2 {
		kindOf[byLines[0].rect] = KindNutritionTable
		if len(byLines) > 1 && byLines[1].lineScore >= 2 {
			kindOf[byLines[1].rect] = KindNutritionTable
		}
	}
	var rest []candidate
	for _, c := range kept {
		if _, ok := kindOf[c.rect]; !ok {
			rest = append(rest, c)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ink > rest[j].ink })
	for i, c := range rest {
		if i == 0 && len(kindOf) > 0 {
			kindOf[c.rect] = KindIngredientList
		} else if i == 0 {
			// No table found; densest block is the best nutrition guess.
			kindOf[c.rect] = KindNutritionTable
		} else if i == 1 {
			kindOf[c.rect] = KindIngredientList
		} else {
			kindOf[c.rect] = KindClaimsText
		}
	}

	// Emit in top-to-bottom order with per-kind caps and sub-indices.
	// Bounds are mapped back from the prepared (upscaled) image space to
	// the caller's original image space.
	sort.Slice(kept, func(i, j int) bool { return kept[i].rect.Min.Y < kept[j].rect.Min.Y })
	counts := map[RegionKind]int{}
	var out []Region
	for _, c := range kept {
		kind := kindOf[c.rect]
		if counts[kind] >= maxPerKind {
			continue
		}
		rect := scaleRect(c.rect, prep.Bounds(), img.Pixels.Bounds())
		out = append(out, Region{Kind: kind, SubIndex: counts[kind], Bounds: rect})
		counts[kind]++
	}
	return out
}

// findBands turns the row ink profile into [start,end) row intervals,
// merging bands separated by small gaps.
func findBands(rows []float64) [][2]int {
	var bands [][2]int
	start := -1
	for y, v := range rows {
		if v >= minBandInk {
			if start == -1 {
				start = y
			}
			continue
		}
		if start != -1 {
			bands = append(bands, [2]int{start, y})
			start = -1
		}
	}
	if start != -1 {
		bands = append(bands, [2]int{start, len(rows)})
	}
	var merged [][2]int
	for _, b := range bands {
		if n := len(merged); n > 0 && b[0]-merged[n-1][1] <= bandMerge {
			merged[n-1][1] = b[1]
			continue
		}
		merged = append(merged, b)
	}
	// Drop one-row noise bands.
	var out [][2]int
	for _, b := range merged {
		if b[1]-b[0] >= 4 {
			out = append(out, b)
		}
	}
	return out
}

// RetagByKeywords re-checks region kinds once OCR text is available. The
// geometric guess is kept unless an anchor keyword contradicts it.
func RetagByKeywords(regions []Region) []Region {
	counts := map[RegionKind]int{}
	for i := range regions {
		text := strings.ToLower(strings.Join(regions[i].RawText, " "))
		want := regions[i].Kind
		switch {
		case strings.Contains(text, "ingredient"):
			want = KindIngredientList
		case strings.Contains(text, "nutrition") || strings.Contains(text, "per 100g") ||
			strings.Contains(text, "energy"):
			want = KindNutritionTable
		}
		// The per-kind cap holds unconditionally, pass-through regions
		// included: a full kind falls back to the geometric kind, then to
		// whichever kind still has room.
		if counts[want] >= maxPerKind {
			want = regions[i].Kind
		}
		if counts[want] >= maxPerKind {
			for _, k := range []RegionKind{KindClaimsText, KindIngredientList, KindNutritionTable} {
				if counts[k] < maxPerKind {
					want = k
					break
				}
			}
		}
		regions[i].Kind = want
		regions[i].SubIndex = counts[want]
		counts[want]++
	}
	return regions
}
