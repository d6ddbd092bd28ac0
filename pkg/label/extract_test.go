package label

import (
	"image"
	"testing"
)

func TestHeuristicQuality(t *testing.T) {
	cases := []struct {
		name string
		text string
		low  float64
		high float64
	}{
		{"empty", "", 0, 0},
		{"clean label text", "Protein 10g per serving, Energy 182 kcal", 0.8, 1},
		{"mostly junk", "@#$% ^&* !!~~ ??", 0, 0.2},
		{"short fragment", "Rp", 0, 0.5},
	}
	for _, c := range cases {
		q := heuristicQuality(c.text)
		if q < c.low || q > c.high {
			t.Fatalf("%s: quality %v outside [%v,%v]", c.name, q, c.low, c.high)
		}
	}
}

func TestSplitLines(t *testing.T) {
	lines := splitLines("Protein 10g\n\n  Sugar 2g  \n")
	if len(lines) != 2 || lines[0] != "Protein 10g" || lines[1] != "Sugar 2g" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestScaleRectRoundTrip(t *testing.T) {
	orig := image.Rect(0, 0, 400, 600)
	scaled := image.Rect(0, 0, 800, 1200)
	r := image.Rect(10, 20, 110, 220)
	up := scaleRect(r, orig, scaled)
	if up != image.Rect(20, 40, 220, 440) {
		t.Fatalf("upscaled rect = %v", up)
	}
	down := scaleRect(up, scaled, orig)
	if down != r {
		t.Fatalf("round trip = %v want %v", down, r)
	}
}

func TestClamp01(t *testing.T) {
	if clamp01(-0.1) != 0 || clamp01(1.5) != 1 || clamp01(0.3) != 0.3 {
		t.Fatalf("clamp01 misbehaves")
	}
}
