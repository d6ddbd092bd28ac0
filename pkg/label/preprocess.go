package label

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// minOCRHeight is the height labels are upscaled to before thresholding;
// packaging photos are often too small for reliable glyph shapes.
const minOCRHeight = 1100

// prepareImage applies the contrast/brightness normalization pass used by
// both the segmenter and the extractor: grayscale, mild contrast boost,
// sharpening and upscaling of small photos.
func prepareImage(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 18)
	gray = imaging.Sharpen(gray, 0.6)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}
	return gray
}

func luma(c color.Color) int {
	r, g, b, _ := c.RGBA()
	return int((r + g + b) / 3 >> 8)
}

// adaptiveBinarize thresholds each pixel against the local window mean,
// which copes with the uneven lighting of curved packaging. Uses an
// integral image so the window mean is O(1) per pixel.
func adaptiveBinarize(img image.Image, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	half := window / 2

	ints := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += luma(img.At(img.Bounds().Min.X+x, img.Bounds().Min.Y+y))
			idx := y*w + x
			if y == 0 {
				ints[idx] = rowSum
			} else {
				ints[idx] = ints[(y-1)*w+x] + rowSum
			}
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(x-half, 0), max(y-half, 0)
			x1, y1 := min(x+half, w-1), min(y+half, h-1)
			sum := ints[y1*w+x1]
			if x0 > 0 {
				sum -= ints[y1*w+x0-1]
			}
			if y0 > 0 {
				sum -= ints[(y0-1)*w+x1]
			}
			if x0 > 0 && y0 > 0 {
				sum += ints[(y0-1)*w+x0-1]
			}
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			th := mean - bias
			if th < 0 {
				th = 0
			}
			pix := luma(img.At(img.Bounds().Min.X+x, img.Bounds().Min.Y+y))
			c := color.NRGBA{255, 255, 255, 255}
			if pix < th {
				c = color.NRGBA{0, 0, 0, 255}
			}
			out.Set(x, y, c)
		}
	}
	return out
}

// inkRatio returns the fraction of dark pixels inside rect of a binarized image.
func inkRatio(bin *image.NRGBA, rect image.Rectangle) float64 {
	rect = rect.Intersect(bin.Bounds())
	if rect.Empty() {
		return 0
	}
	dark := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if luma(bin.At(x, y)) < 128 {
				dark++
			}
		}
	}
	return float64(dark) / float64(rect.Dx()*rect.Dy())
}
