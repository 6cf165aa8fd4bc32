package lighthouse

import (
	"image"

	"github.com/disintegration/imaging"
)

// DefaultBlurThreshold is the variance-of-Laplacian value below which an
// image is flagged as blurry. This is a design parameter, not a statistical
// guarantee: tune it per deployment against representative submissions.
const DefaultBlurThreshold = 100.0

// QualityVerdict reports the sharpness measurement for one image.
type QualityVerdict struct {
	IsBlurry       bool
	SharpnessScore float64
}

// Inspector measures image sharpness. It applies a 3x3 Laplacian to the
// luminance channel and takes the variance of the response; blurred images
// have weak second derivatives everywhere and score low.
type Inspector struct {
	threshold float64
}

func NewInspector(threshold float64) *Inspector {
	if threshold <= 0 {
		threshold = DefaultBlurThreshold
	}
	return &Inspector{threshold: threshold}
}

// Threshold returns the configured blur threshold.
func (ins *Inspector) Threshold() float64 { return ins.threshold }

// Inspect never fails: degenerate images (uniform color, 1x1) simply score
// zero and come back flagged as blurry.
func (ins *Inspector) Inspect(img image.Image) QualityVerdict {
	variance := laplacianVariance(img)
	return QualityVerdict{
		IsBlurry:       variance < ins.threshold,
		SharpnessScore: variance,
	}
}

// laplacianVariance converts img to single-channel luminance, convolves with
// the 3x3 Laplacian kernel (4-neighbour form) and returns the variance of
// the response over the interior pixels.
func laplacianVariance(img image.Image) float64 {
	gray := imaging.Grayscale(img)
	w := gray.Rect.Dx()
	h := gray.Rect.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	// Grayscale output is NRGBA with R==G==B; read the red channel directly.
	lum := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	n := float64((w - 2) * (h - 2))
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := lum(x, y-1) + lum(x, y+1) + lum(x-1, y) + lum(x+1, y) - 4*lum(x, y)
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / n
	return sumSq/n - mean*mean
}
