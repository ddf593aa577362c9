package color

import "math"

// EncodeSRGB converts a display-linear value to the sRGB transfer encoding.
// Input is clamped to [0, 1].
func EncodeSRGB(l float32) float32 {
	l = Clamp01(l)
	if l <= 0.0031308 {
		return l * 12.92
	}
	return float32(1.055*math.Pow(float64(l), 1.0/2.4) - 0.055)
}

// DecodeSRGB converts an sRGB-encoded value back to display linear.
func DecodeSRGB(s float32) float32 {
	s = Clamp01(s)
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow((float64(s)+0.055)/1.055, 2.4))
}
