package kernels

import "math"

const epsilon = 1e-5

// BloomPrefilter clamps fireflies and applies the soft-knee threshold.
//
// Brightness is the max channel. The firefly cap rescales the whole color
// so channel ratios (hue) survive. Inside the knee band the contribution
// ramps as soft^2/(4*knee+eps); outside it matches the hard threshold, so
// the curve is continuous at both band edges: zero at threshold-knee, the
// hard-threshold value at threshold+knee.
func BloomPrefilter(src, dst *Image, threshold, knee, clampMax float32) {
	for i := 0; i < len(src.Pix); i += 4 {
		r, g, b, a := src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]

		brightness := max3(r, g, b)
		if clampMax > 0 && brightness > clampMax {
			scale := clampMax / brightness
			r, g, b = r*scale, g*scale, b*scale
			brightness = clampMax
		}

		soft := clampf(brightness-threshold+knee, 0, 2*knee)
		soft = soft * soft / (4*knee + epsilon)
		contribution := maxf(soft, brightness-threshold)
		weight := contribution / maxf(brightness, epsilon)

		dst.Pix[i+0] = r * weight
		dst.Pix[i+1] = g * weight
		dst.Pix[i+2] = b * weight
		dst.Pix[i+3] = a
	}
}

// Downsample13 halves resolution with the 13-tap dual-filter kernel:
// a 3x3 outer ring spaced two source pixels apart (corners 0.03125,
// edges 0.0625) plus a 5-point inner cross spaced one pixel (0.125 each,
// center included once). The weights sum to 1 so flat regions are exact.
func Downsample13(src, dst *Image) {
	type tap struct {
		dx, dy int
		w      float32
	}
	taps := [13]tap{
		{-2, -2, 0.03125}, {0, -2, 0.0625}, {2, -2, 0.03125},
		{-2, 0, 0.0625}, {2, 0, 0.0625},
		{-2, 2, 0.03125}, {0, 2, 0.0625}, {2, 2, 0.03125},
		{0, 0, 0.125},
		{-1, 0, 0.125}, {1, 0, 0.125}, {0, -1, 0.125}, {0, 1, 0.125},
	}

	for y := 0; y < dst.H; y++ {
		sy := y * 2
		for x := 0; x < dst.W; x++ {
			sx := x * 2

			var r, g, b, a float32
			for _, t := range taps {
				i := src.idx(sx+t.dx, sy+t.dy)
				r += src.Pix[i+0] * t.w
				g += src.Pix[i+1] * t.w
				b += src.Pix[i+2] * t.w
				a += src.Pix[i+3] * t.w
			}

			di := (y*dst.W + x) * 4
			dst.Pix[di+0] = r
			dst.Pix[di+1] = g
			dst.Pix[di+2] = b
			dst.Pix[di+3] = a
		}
	}
}

// DownsampleKaris halves resolution with a 5-tap luminance-weighted
// average (weight = 1/(1+luma)). Single-pixel fireflies get their weight
// crushed before they can propagate down the pyramid.
func DownsampleKaris(src, dst *Image) {
	offsets := [5][2]int{{0, 0}, {-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

	for y := 0; y < dst.H; y++ {
		sy := y * 2
		for x := 0; x < dst.W; x++ {
			sx := x * 2

			var r, g, b, a, wsum float32
			for _, off := range offsets {
				i := src.idx(sx+off[0], sy+off[1])
				sr, sg, sb := src.Pix[i+0], src.Pix[i+1], src.Pix[i+2]
				w := 1.0 / (1.0 + 0.2126*sr + 0.7152*sg + 0.0722*sb)
				r += sr * w
				g += sg * w
				b += sb * w
				a += src.Pix[i+3] * w
				wsum += w
			}

			di := (y*dst.W + x) * 4
			dst.Pix[di+0] = r / wsum
			dst.Pix[di+1] = g / wsum
			dst.Pix[di+2] = b / wsum
			dst.Pix[di+3] = a / wsum
		}
	}
}

// goldenAngle is the sample rotation for the spiral upsample filter.
const goldenAngle = 2.39996322972865332

// Upsample reconstructs smaller at current's resolution and accumulates
// additively into dst: dst = current + up(smaller)*weight.
//
// For radius <= 1 a plain bilinear tap is used; larger radii use a 12-tap
// golden-angle spiral with Gaussian falloff, a wide low-pass that keeps
// the reconstruction free of the boxy artifacts a repeated tent produces.
func Upsample(smaller, current, dst *Image, radius, weight float32) {
	scaleX := float32(smaller.W) / float32(current.W)
	scaleY := float32(smaller.H) / float32(current.H)

	var sample [4]float32
	for y := 0; y < dst.H; y++ {
		fy := (float32(y) + 0.5) * scaleY
		for x := 0; x < dst.W; x++ {
			fx := (float32(x) + 0.5) * scaleX

			var r, g, b, a float32
			if radius <= 1 {
				sampleBilinear(smaller, fx, fy, &sample)
				r, g, b, a = sample[0], sample[1], sample[2], sample[3]
			} else {
				var wsum float32
				for k := 0; k < 12; k++ {
					t := (float32(k) + 0.5) / 12.0
					sr := float32(math.Sqrt(float64(t))) * radius * scaleX
					angle := float64(k) * goldenAngle
					ox := sr * float32(math.Cos(angle))
					oy := sr * float32(math.Sin(angle))

					w := float32(math.Exp(float64(-2 * t * t)))
					sampleBilinear(smaller, fx+ox, fy+oy, &sample)
					r += sample[0] * w
					g += sample[1] * w
					b += sample[2] * w
					a += sample[3] * w
					wsum += w
				}
				r, g, b, a = r/wsum, g/wsum, b/wsum, a/wsum
			}

			ci := (y*current.W + x) * 4
			di := (y*dst.W + x) * 4
			dst.Pix[di+0] = current.Pix[ci+0] + r*weight
			dst.Pix[di+1] = current.Pix[ci+1] + g*weight
			dst.Pix[di+2] = current.Pix[ci+2] + b*weight
			dst.Pix[di+3] = current.Pix[ci+3] + a*weight
		}
	}
}

// BloomComposite adds the bloom contribution onto the source:
//
//	dst = src + bloom*intensity / (1 + preservation*bloomLuma)
//
// Strictly additive, never subtractive, so total scene energy only grows
// with intensity. Preservation soft-limits very hot contributions instead
// of letting them blow out. A tiny dither offset, scaled by the local
// contribution so a zero bloom stays byte-identical, breaks up banding in
// dark gradients before half-float quantization.
func BloomComposite(src, bloom, dst *Image, intensity, preservation float32) {
	const seed = 0x51ab

	w := src.W
	for i, px := 0, 0; i < len(src.Pix); i, px = i+4, px+1 {
		br := bloom.Pix[i+0] * intensity
		bg := bloom.Pix[i+1] * intensity
		bb := bloom.Pix[i+2] * intensity

		if preservation > 0 {
			luma := 0.2126*br + 0.7152*bg + 0.0722*bb
			scale := 1.0 / (1.0 + preservation*luma)
			br, bg, bb = br*scale, bg*scale, bb*scale
		}

		luma := 0.2126*br + 0.7152*bg + 0.0722*bb
		dither := ditherOffset(px%w, px/w, seed) * minf(1, luma*64)

		dst.Pix[i+0] = src.Pix[i+0] + br + dither
		dst.Pix[i+1] = src.Pix[i+1] + bg + dither
		dst.Pix[i+2] = src.Pix[i+2] + bb + dither
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// ThresholdLuminance zeroes every pixel whose Rec.709 luma is below the
// threshold. A luma exactly at the threshold is included.
func ThresholdLuminance(src, dst *Image, threshold float32) {
	for i := 0; i < len(src.Pix); i += 4 {
		r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		if 0.2126*r+0.7152*g+0.0722*b >= threshold {
			dst.Pix[i+0] = r
			dst.Pix[i+1] = g
			dst.Pix[i+2] = b
		} else {
			dst.Pix[i+0] = 0
			dst.Pix[i+1] = 0
			dst.Pix[i+2] = 0
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// ThresholdMaxChannel zeroes every pixel whose max channel is below the
// threshold. Colored highlights a luma threshold would miss survive.
func ThresholdMaxChannel(src, dst *Image, threshold float32) {
	for i := 0; i < len(src.Pix); i += 4 {
		r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		if max3(r, g, b) >= threshold {
			dst.Pix[i+0] = r
			dst.Pix[i+1] = g
			dst.Pix[i+2] = b
		} else {
			dst.Pix[i+0] = 0
			dst.Pix[i+1] = 0
			dst.Pix[i+2] = 0
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// HalationComposite adds the tinted halation contribution. With
// radialFalloff the contribution fades toward the corners as
// 1 - smoothstep(0.3, 1.0, 2*distFromCenter), keeping the frame edges
// clean. The time parameter drives a subtle deterministic flicker.
func HalationComposite(src, halation, dst *Image, intensity, time float32, radialFalloff bool, tint [3]float32) {
	flicker := 1 + 0.06*(noise01(0, 0, timeSeed(time))-0.5)

	invW := 1.0 / float32(src.W)
	invH := 1.0 / float32(src.H)

	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			falloff := float32(1)
			if radialFalloff {
				u := (float32(x)+0.5)*invW - 0.5
				v := (float32(y)+0.5)*invH - 0.5
				d := float32(math.Sqrt(float64(u*u + v*v)))
				falloff = 1 - smoothstepf(0.3, 1.0, 2*d)
			}

			i := (y*src.W + x) * 4
			k := intensity * flicker * falloff
			dst.Pix[i+0] = src.Pix[i+0] + halation.Pix[i+0]*tint[0]*k
			dst.Pix[i+1] = src.Pix[i+1] + halation.Pix[i+1]*tint[1]*k
			dst.Pix[i+2] = src.Pix[i+2] + halation.Pix[i+2]*tint[2]*k
			dst.Pix[i+3] = src.Pix[i+3]
		}
	}
}

// AnamorphicComposite adds the tinted streak contribution.
func AnamorphicComposite(src, streak, dst *Image, intensity float32, tint [3]float32) {
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i+0] = src.Pix[i+0] + streak.Pix[i+0]*tint[0]*intensity
		dst.Pix[i+1] = src.Pix[i+1] + streak.Pix[i+1]*tint[1]*intensity
		dst.Pix[i+2] = src.Pix[i+2] + streak.Pix[i+2]*tint[2]*intensity
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

func smoothstepf(edge0, edge1, x float32) float32 {
	t := clampf((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
