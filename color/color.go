// Package color provides the scalar color science used by the finishing
// stages: ACEScct log encoding, the filmic tone curve, luma-preserving
// gamut compression, and the display transfer function.
//
// Every function here operates on scene-linear float values and is pure:
// the pipeline wires buffers and parameters, this package only does math.
//
// References:
//   - ACEScct: S-2016-001, Academy Color Encoding System
//   - Filmic curve: Narkowicz, "ACES Filmic Tone Mapping Curve" (2016)
//   - sRGB transfer: IEC 61966-2-1
package color

// Luminance returns the Rec.709 luma of a linear RGB triple.
func Luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Smoothstep returns the Hermite interpolation of x between edge0 and edge1.
// Below edge0 it returns 0, above edge1 it returns 1.
func Smoothstep(edge0, edge1, x float32) float32 {
	if edge0 >= edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
