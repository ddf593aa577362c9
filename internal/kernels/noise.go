package kernels

import "math"

// Deterministic per-pixel noise. The hash is a plain integer scramble of
// pixel position and a time seed, so the same (x, y, t) always produces the
// same value and tests stay reproducible across runs and devices.

// hash32 scrambles a 32-bit value (Wang hash).
func hash32(v uint32) uint32 {
	v = (v ^ 61) ^ (v >> 16)
	v *= 9
	v ^= v >> 4
	v *= 0x27d4eb2d
	v ^= v >> 15
	return v
}

// hashPixel combines pixel position and seed into one hash.
func hashPixel(x, y int, seed uint32) uint32 {
	h := hash32(uint32(x)*1973 + uint32(y)*9277 + seed*26699)
	return h
}

// noise01 returns a uniform value in [0, 1) for a pixel and seed.
func noise01(x, y int, seed uint32) float32 {
	return float32(hashPixel(x, y, seed)) / float32(1<<32)
}

// gaussianNoise returns a standard normal sample for a pixel and seed via
// the Box-Muller transform over two independent uniform hashes.
func gaussianNoise(x, y int, seed uint32) float32 {
	u1 := noise01(x, y, seed)
	u2 := noise01(x, y, seed^0x9e3779b9)

	// Keep u1 away from zero so the log stays finite.
	if u1 < 1e-7 {
		u1 = 1e-7
	}
	return float32(math.Sqrt(-2*math.Log(float64(u1))) * math.Cos(2*math.Pi*float64(u2)))
}

// ditherOffset returns a tiny signed offset used before quantization to
// break up banding in dark gradients.
func ditherOffset(x, y int, seed uint32) float32 {
	return (noise01(x, y, seed) - 0.5) * (1.0 / 255.0)
}

// timeSeed quantizes a time value into a noise seed. Grain and leaks
// animate per frame but stay deterministic for a fixed time.
func timeSeed(t float32) uint32 {
	return uint32(int64(float64(t) * 1000))
}
