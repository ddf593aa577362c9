package color

// CompressSaturation applies luma-preserving saturation compression.
//
// Chroma is measured as the largest channel offset from the Rec.709 luma,
// normalized by the luma itself. Below threshold the color passes through
// untouched; above it the chroma is compressed along a rational curve that
// asymptotically approaches ceiling, so no output ever exceeds the ceiling
// while the luma component is preserved exactly.
//
// threshold and ceiling are expressed in the same normalized chroma units;
// ceiling must be greater than threshold for compression to engage.
func CompressSaturation(r, g, b, threshold, ceiling float32) (float32, float32, float32) {
	if ceiling <= threshold {
		return r, g, b
	}

	y := Luminance(r, g, b)
	if y <= 1e-6 {
		return r, g, b
	}

	cr, cg, cb := r-y, g-y, b-y
	sat := maxAbs3(cr, cg, cb) / y
	if sat <= threshold {
		return r, g, b
	}

	// Rational compression: s' -> ceiling as s -> infinity.
	excess := sat - threshold
	span := ceiling - threshold
	compressed := threshold + excess/(1+excess/span)

	scale := compressed / sat
	return y + cr*scale, y + cg*scale, y + cb*scale
}

func maxAbs3(a, b, c float32) float32 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if c < 0 {
		c = -c
	}
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
