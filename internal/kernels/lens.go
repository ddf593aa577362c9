package kernels

import (
	"math"

	"github.com/gogpu/framefx/internal/parallel"
)

// LensDistort applies radial barrel/pincushion distortion with per-channel
// chromatic aberration. Distortion follows r' = r*(1 + k*r^2) in normalized
// coordinates; aberration scales the red and blue channels' radii apart.
// Zero distortion and aberration reproduces the source exactly.
func LensDistort(src, dst *Image, distortion, aberration float32) {
	if distortion == 0 && aberration == 0 {
		Copy(src, dst)
		return
	}

	w, h := src.W, src.H
	cx := float32(w) / 2
	cy := float32(h) / 2
	// Normalize by the half-diagonal so the corners sit at r = 1.
	invNorm := 1.0 / float32(math.Sqrt(float64(cx*cx+cy*cy)))

	// Per-channel radial scale: red in, blue out.
	chScale := [3]float32{1 - aberration, 1, 1 + aberration}

	parallel.Rows(h, func(y0, y1 int) {
		var sample [4]float32
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				dx := (float32(x) + 0.5 - cx) * invNorm
				dy := (float32(y) + 0.5 - cy) * invNorm
				r2 := dx*dx + dy*dy
				base := 1 + distortion*r2

				i := (y*w + x) * 4
				for c := 0; c < 3; c++ {
					s := base * chScale[c]
					fx := cx + dx*s/invNorm
					fy := cy + dy*s/invNorm
					sampleBilinear(src, fx, fy, &sample)
					dst.Pix[i+c] = sample[c]
				}
				dst.Pix[i+3] = src.Pix[i+3]
			}
		}
	})
}

// dispersionWeight returns the spectral RGB weight for a normalized
// position t in [0, 1] across the sampled fringe, red to blue.
func dispersionWeight(t float32) (r, g, b float32) {
	// Triangular response per channel, peaking at t = 0, 0.5, 1.
	r = clampf(1-2*t, 0, 1)
	b = clampf(2*t-1, 0, 1)
	g = 1 - r - b
	return r, g, b
}

// SpectralDisperse spreads each pixel along the radial axis with
// wavelength-dependent scale, approximating prismatic fringing. The
// per-sample spectral weights are normalized so a neutral frame keeps its
// energy. Zero strength reproduces the source exactly.
func SpectralDisperse(src, dst *Image, strength float32, samples int) {
	if strength == 0 {
		Copy(src, dst)
		return
	}
	if samples < 3 {
		samples = 3
	}

	w, h := src.W, src.H
	cx := float32(w) / 2
	cy := float32(h) / 2

	parallel.Rows(h, func(y0, y1 int) {
		var sample [4]float32
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				dx := float32(x) + 0.5 - cx
				dy := float32(y) + 0.5 - cy

				var r, g, b float32
				var wr, wg, wb float32
				for s := 0; s < samples; s++ {
					t := float32(s) / float32(samples-1)
					// Red samples inward, blue outward.
					scale := 1 + strength*(t-0.5)
					fx := cx + dx*scale
					fy := cy + dy*scale

					cwr, cwg, cwb := dispersionWeight(t)
					sampleBilinear(src, fx, fy, &sample)
					r += sample[0] * cwr
					g += sample[1] * cwg
					b += sample[2] * cwb
					wr += cwr
					wg += cwg
					wb += cwb
				}

				i := (y*w + x) * 4
				dst.Pix[i+0] = r / maxf(wr, epsilon)
				dst.Pix[i+1] = g / maxf(wg, epsilon)
				dst.Pix[i+2] = b / maxf(wb, epsilon)
				dst.Pix[i+3] = src.Pix[i+3]
			}
		}
	})
}

// LightLeak adds procedural low-frequency tinted leaks. Two soft radial
// blobs drift slowly with time; their positions come from the hash noise
// so a fixed time always produces the same frame.
func LightLeak(src, dst *Image, time, intensity float32, tint [3]float32) {
	w, h := src.W, src.H

	// Blob centers drift around the frame edges.
	drift := float64(time) * 0.05
	blobs := [2][3]float32{
		// x, y (normalized), radius
		{0.9 + 0.2*float32(math.Sin(drift)), 0.15 + 0.1*float32(math.Cos(drift*1.3)), 0.55},
		{0.05 + 0.15*float32(math.Cos(drift*0.7)), 0.85 + 0.1*float32(math.Sin(drift*0.9)), 0.4},
	}
	// Per-blob strength varies slowly and deterministically.
	gain := [2]float32{
		0.7 + 0.3*noise01(0, 0, timeSeed(time)),
		0.4 + 0.3*noise01(1, 0, timeSeed(time)),
	}

	invW := 1.0 / float32(w)
	invH := 1.0 / float32(h)

	for y := 0; y < h; y++ {
		v := (float32(y) + 0.5) * invH
		for x := 0; x < w; x++ {
			u := (float32(x) + 0.5) * invW

			var leak float32
			for bi, blob := range blobs {
				du := u - blob[0]
				dv := v - blob[1]
				d := float32(math.Sqrt(float64(du*du + dv*dv)))
				leak += gain[bi] * (1 - smoothstepf(0, blob[2], d))
			}

			k := leak * intensity
			i := (y*w + x) * 4
			dst.Pix[i+0] = src.Pix[i+0] + tint[0]*k
			dst.Pix[i+1] = src.Pix[i+1] + tint[1]*k
			dst.Pix[i+2] = src.Pix[i+2] + tint[2]*k
			dst.Pix[i+3] = src.Pix[i+3]
		}
	}
}

// Diffusion blends a pre-blurred copy of the frame into the source in
// proportion to highlight luminance (the "pro-mist" look). The blend
// weight is amount * smoothstep(bias, bias+1, blurredLuma); amount 0
// reproduces the source exactly and the result never loses the source's
// own energy because the blur is blended, not subtracted.
func Diffusion(src, blurred, dst *Image, amount, highlightBias float32) {
	if amount <= 0 {
		Copy(src, dst)
		return
	}

	for i := 0; i < len(src.Pix); i += 4 {
		br := blurred.Pix[i+0]
		bg := blurred.Pix[i+1]
		bb := blurred.Pix[i+2]
		luma := 0.2126*br + 0.7152*bg + 0.0722*bb

		wt := amount * smoothstepf(highlightBias, highlightBias+1, luma)
		dst.Pix[i+0] = lerp(src.Pix[i+0], maxf(src.Pix[i+0], br), wt)
		dst.Pix[i+1] = lerp(src.Pix[i+1], maxf(src.Pix[i+1], bg), wt)
		dst.Pix[i+2] = lerp(src.Pix[i+2], maxf(src.Pix[i+2], bb), wt)
		dst.Pix[i+3] = src.Pix[i+3]
	}
}
