package color

// Filmic applies the ACES-fitted rational tone curve to a non-negative
// linear value, mapping scene-linear [0, inf) into display-linear [0, 1].
// The curve is monotonic and passes through the origin.
func Filmic(x float32) float32 {
	if x <= 0 {
		return 0
	}
	const (
		a = 2.51
		b = 0.03
		c = 2.43
		d = 0.59
		e = 0.14
	)
	return Clamp01((x * (a*x + b)) / (x*(c*x+d) + e))
}

// FilmicRGB applies Filmic per channel.
func FilmicRGB(r, g, b float32) (float32, float32, float32) {
	return Filmic(r), Filmic(g), Filmic(b)
}
