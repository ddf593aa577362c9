package kernels

import (
	"math"

	"github.com/gogpu/framefx/cache"
	"github.com/gogpu/framefx/internal/parallel"
)

// GaussianKernel generates a normalized 1D Gaussian kernel for the given
// sigma. The kernel covers three standard deviations on each side.
// For sigma <= 0 it returns the identity kernel [1].
func GaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{1.0}
	}

	halfSize := int(math.Ceil(sigma * 3))
	size := halfSize*2 + 1
	kernel := make([]float32, size)

	twoSigmaSq := 2 * sigma * sigma
	sum := float64(0)
	for i := 0; i < size; i++ {
		x := float64(i - halfSize)
		v := math.Exp(-(x * x) / twoSigmaSq)
		kernel[i] = float32(v)
		sum += v
	}

	if sum > 0 {
		inv := float32(1.0 / sum)
		for i := range kernel {
			kernel[i] *= inv
		}
	}
	return kernel
}

// gaussianCache holds generated kernels keyed by sigma quantized to 0.01.
var gaussianCache = cache.NewSharded[int, []float32](64, cache.IntHasher)

// CachedGaussianKernel returns a cached normalized kernel for sigma.
// Callers must not modify the returned slice.
func CachedGaussianKernel(sigma float64) []float32 {
	key := int(sigma * 100)
	return gaussianCache.GetOrCreate(key, func() []float32 {
		return GaussianKernel(sigma)
	})
}

// GaussianBlurH convolves each row of src with a 1D Gaussian of the given
// sigma, writing into dst. Works for any channel count.
func GaussianBlurH(src, dst *Image, sigma float32) {
	convolve1D(src, dst, CachedGaussianKernel(float64(sigma)), true)
}

// GaussianBlurV convolves each column of src with a 1D Gaussian of the
// given sigma, writing into dst.
func GaussianBlurV(src, dst *Image, sigma float32) {
	convolve1D(src, dst, CachedGaussianKernel(float64(sigma)), false)
}

// BoxBlurH applies a horizontal box blur with a pixel radius using a
// sliding window, O(1) per pixel regardless of radius.
func BoxBlurH(src, dst *Image, radius int) {
	if radius <= 0 {
		Copy(src, dst)
		return
	}

	w, h, c := src.W, src.H, src.C
	window := float32(2*radius + 1)

	parallel.Rows(h, func(y0, y1 int) {
		acc := make([]float32, c)
		for y := y0; y < y1; y++ {
			row := y * w * c

			// Prime the window with the clamped left edge.
			for ch := 0; ch < c; ch++ {
				acc[ch] = 0
			}
			for k := -radius; k <= radius; k++ {
				i := src.idx(k, y)
				for ch := 0; ch < c; ch++ {
					acc[ch] += src.Pix[i+ch]
				}
			}

			for x := 0; x < w; x++ {
				di := row + x*c
				for ch := 0; ch < c; ch++ {
					dst.Pix[di+ch] = acc[ch] / window
				}

				// Slide: drop x-radius, add x+radius+1 (both edge-clamped).
				out := src.idx(x-radius, y)
				in := src.idx(x+radius+1, y)
				for ch := 0; ch < c; ch++ {
					acc[ch] += src.Pix[in+ch] - src.Pix[out+ch]
				}
			}
		}
	})
}

// convolve1D applies a 1D kernel along rows (horizontal) or columns.
func convolve1D(src, dst *Image, kernel []float32, horizontal bool) {
	if len(kernel) == 1 {
		Copy(src, dst)
		return
	}

	w, h, c := src.W, src.H, src.C
	half := len(kernel) / 2

	parallel.Rows(h, func(y0, y1 int) {
		acc := make([]float32, c)
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				for ch := 0; ch < c; ch++ {
					acc[ch] = 0
				}

				for k, weight := range kernel {
					var i int
					if horizontal {
						i = src.idx(x+k-half, y)
					} else {
						i = src.idx(x, y+k-half)
					}
					for ch := 0; ch < c; ch++ {
						acc[ch] += src.Pix[i+ch] * weight
					}
				}

				di := (y*w + x) * c
				for ch := 0; ch < c; ch++ {
					dst.Pix[di+ch] = acc[ch]
				}
			}
		}
	})
}
