package kernels

import (
	"math"

	"github.com/gogpu/framefx/color"
)

// ToneMap applies exposure followed by the filmic tone curve, mapping the
// scene-linear frame into display-linear [0, 1]. Alpha passes through.
func ToneMap(src, dst *Image, exposure float32) {
	if exposure <= 0 {
		exposure = 1
	}
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i+0] = color.Filmic(src.Pix[i+0] * exposure)
		dst.Pix[i+1] = color.Filmic(src.Pix[i+1] * exposure)
		dst.Pix[i+2] = color.Filmic(src.Pix[i+2] * exposure)
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// GamutCompress applies luma-preserving saturation compression per pixel.
func GamutCompress(src, dst *Image, threshold, ceiling float32) {
	for i := 0; i < len(src.Pix); i += 4 {
		r, g, b := color.CompressSaturation(
			src.Pix[i], src.Pix[i+1], src.Pix[i+2], threshold, ceiling)
		dst.Pix[i+0] = r
		dst.Pix[i+1] = g
		dst.Pix[i+2] = b
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// DisplayEncode converts display-linear values to the sRGB transfer
// encoding for presentation.
func DisplayEncode(src, dst *Image) {
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i+0] = color.EncodeSRGB(src.Pix[i+0])
		dst.Pix[i+1] = color.EncodeSRGB(src.Pix[i+1])
		dst.Pix[i+2] = color.EncodeSRGB(src.Pix[i+2])
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// ApplyLUT samples a 3-D LUT through the log round trip:
// linear -> ACEScct encode -> trilinear LUT sample -> ACEScct decode.
// The LUT holds size^3 RGB triples, red-fastest.
func ApplyLUT(src, dst *Image, size int, data []float32) {
	n := float32(size - 1)

	for i := 0; i < len(src.Pix); i += 4 {
		er := clampf(color.EncodeACEScct(src.Pix[i+0]), 0, 1) * n
		eg := clampf(color.EncodeACEScct(src.Pix[i+1]), 0, 1) * n
		eb := clampf(color.EncodeACEScct(src.Pix[i+2]), 0, 1) * n

		r, g, b := trilinear(size, data, er, eg, eb)

		dst.Pix[i+0] = color.DecodeACEScct(r)
		dst.Pix[i+1] = color.DecodeACEScct(g)
		dst.Pix[i+2] = color.DecodeACEScct(b)
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// trilinear samples the LUT at continuous lattice coordinates.
func trilinear(size int, data []float32, fr, fg, fb float32) (float32, float32, float32) {
	r0 := int(fr)
	g0 := int(fg)
	b0 := int(fb)
	if r0 >= size-1 {
		r0 = size - 2
	}
	if g0 >= size-1 {
		g0 = size - 2
	}
	if b0 >= size-1 {
		b0 = size - 2
	}
	tr := fr - float32(r0)
	tg := fg - float32(g0)
	tb := fb - float32(b0)

	at := func(r, g, b int) (float32, float32, float32) {
		i := ((b*size+g)*size + r) * 3
		return data[i], data[i+1], data[i+2]
	}

	var out [3]float32
	for c := 0; c < 3; c++ {
		pick := func(r, g, b int) float32 {
			x, y, z := at(r, g, b)
			switch c {
			case 0:
				return x
			case 1:
				return y
			default:
				return z
			}
		}
		c000 := pick(r0, g0, b0)
		c100 := pick(r0+1, g0, b0)
		c010 := pick(r0, g0+1, b0)
		c110 := pick(r0+1, g0+1, b0)
		c001 := pick(r0, g0, b0+1)
		c101 := pick(r0+1, g0, b0+1)
		c011 := pick(r0, g0+1, b0+1)
		c111 := pick(r0+1, g0+1, b0+1)

		c00 := lerp(c000, c100, tr)
		c10 := lerp(c010, c110, tr)
		c01 := lerp(c001, c101, tr)
		c11 := lerp(c011, c111, tr)

		out[c] = lerp(lerp(c00, c10, tg), lerp(c01, c11, tg), tb)
	}
	return out[0], out[1], out[2]
}

// Vignette darkens toward the frame edges following the cos^4 natural
// illumination law of a lens with the given sensor width and focal length.
// Smoothness shapes the transition, roundness interpolates between a
// frame-shaped and a circular falloff, intensity scales the effect.
func Vignette(src, dst *Image, sensorWidth, focalLength, intensity, smoothness, roundness float32) {
	if focalLength <= 0 {
		focalLength = 50
	}
	if smoothness <= 0 {
		smoothness = 1
	}

	aspect := float32(src.W) / float32(src.H)
	// roundness 1 keeps the falloff circular; 0 stretches it to the frame.
	ux := lerp(1, aspect, roundness)

	invW := 1.0 / float32(src.W)
	invH := 1.0 / float32(src.H)
	halfSensor := sensorWidth / 2

	for y := 0; y < src.H; y++ {
		v := ((float32(y)+0.5)*invH - 0.5) * 2
		for x := 0; x < src.W; x++ {
			u := ((float32(x)+0.5)*invW - 0.5) * 2 * ux

			r := float32(math.Sqrt(float64(u*u + v*v)))
			theta := math.Atan(float64(r * halfSensor / focalLength))
			cosT := float32(math.Cos(theta))
			natural := cosT * cosT * cosT * cosT
			vig := float32(math.Pow(float64(natural), float64(smoothness)))

			k := 1 - intensity*(1-vig)
			i := (y*src.W + x) * 4
			dst.Pix[i+0] = src.Pix[i+0] * k
			dst.Pix[i+1] = src.Pix[i+1] * k
			dst.Pix[i+2] = src.Pix[i+2] * k
			dst.Pix[i+3] = src.Pix[i+3]
		}
	}
}

// FilmGrain adds deterministic Gaussian grain from a hash of pixel
// position and time. The grain is luminance-masked: shadows receive up to
// (1+shadowBoost) times the base amount, highlights are suppressed toward
// zero. Each sample is clamped to +/-0.5 before adding. Size >= 1 scales
// the grain cell in pixels.
func FilmGrain(src, dst *Image, time, intensity, size, shadowBoost float32) {
	seed := timeSeed(time)
	cell := int(size)
	if cell < 1 {
		cell = 1
	}

	for y := 0; y < src.H; y++ {
		gy := y / cell
		for x := 0; x < src.W; x++ {
			gx := x / cell
			n := gaussianNoise(gx, gy, seed)

			i := (y*src.W + x) * 4
			luma := color.Clamp01(color.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
			mask := (1 - luma) * (1 + shadowBoost*(1-luma))

			g := clampf(n*intensity*mask, -0.5, 0.5)
			dst.Pix[i+0] = src.Pix[i+0] + g
			dst.Pix[i+1] = src.Pix[i+1] + g
			dst.Pix[i+2] = src.Pix[i+2] + g
			dst.Pix[i+3] = src.Pix[i+3]
		}
	}
}
