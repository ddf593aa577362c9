package kernels

// Rect is a normalized [0,1] bounding box: X, Y top-left, W, H extent.
type Rect struct {
	X, Y, W, H float32
}

// FaceMaskGenerate renders each face box as a soft-edged ellipse into the
// single-channel dst, unioning overlapping faces via max. The edge ramps
// with 1 - smoothstep over the squared normalized ellipse distance, with
// feather widening the transition band. No rects clears the mask.
func FaceMaskGenerate(dst *Image, rects []Rect, feather float32) {
	for i := range dst.Pix {
		dst.Pix[i] = 0
	}
	if len(rects) == 0 {
		return
	}
	feather = clampf(feather, 0.01, 1)

	invW := 1.0 / float32(dst.W)
	invH := 1.0 / float32(dst.H)

	for _, rc := range rects {
		if rc.W <= 0 || rc.H <= 0 {
			continue
		}
		cx := rc.X + rc.W/2
		cy := rc.Y + rc.H/2
		rx := rc.W / 2
		ry := rc.H / 2

		for y := 0; y < dst.H; y++ {
			v := (float32(y) + 0.5) * invH
			dy := (v - cy) / ry
			for x := 0; x < dst.W; x++ {
				u := (float32(x) + 0.5) * invW
				dx := (u - cx) / rx

				d2 := dx*dx + dy*dy
				c := 1 - smoothstepf(1-feather, 1+feather, d2)

				i := y*dst.W + x
				if c > dst.Pix[i] {
					dst.Pix[i] = c
				}
			}
		}
	}
}

// MaskCombine multiplies the face mask with the segmentation mask,
// intersecting face ellipses with "is person" regions to cut background
// false positives.
func MaskCombine(faceMask, segMask, dst *Image) {
	for i := range dst.Pix {
		dst.Pix[i] = faceMask.Pix[i] * segMask.Pix[i]
	}
}

// MaskedBlur blurs src with a Gaussian of sigma radius and blends the
// result weighted by (1 - mask): masked-in pixels stay sharp, the rest
// receives the full blur. The mask is single-channel at frame resolution.
func MaskedBlur(src, mask, dst *Image, radius float32) {
	if radius <= 0 {
		Copy(src, dst)
		return
	}

	tmp := NewImage(src.W, src.H, 4)
	blurred := NewImage(src.W, src.H, 4)
	GaussianBlurH(src, tmp, radius)
	GaussianBlurV(tmp, blurred, radius)

	for p, i := 0, 0; i < len(src.Pix); p, i = p+1, i+4 {
		m := clampf(mask.Pix[p], 0, 1)
		for c := 0; c < 4; c++ {
			dst.Pix[i+c] = lerp(blurred.Pix[i+c], src.Pix[i+c], m)
		}
	}
}

// FaceEnhance smooths skin inside the mask. A Gaussian-smoothed copy is
// blended in by mask*strength, with the source's luminance detail partially
// reinjected so edges and texture survive the smoothing.
func FaceEnhance(src, mask, dst *Image, strength, radius float32) {
	if strength <= 0 || radius <= 0 {
		Copy(src, dst)
		return
	}

	tmp := NewImage(src.W, src.H, 4)
	smooth := NewImage(src.W, src.H, 4)
	GaussianBlurH(src, tmp, radius)
	GaussianBlurV(tmp, smooth, radius)

	// Fraction of high-frequency luminance added back on top of the
	// smoothed base.
	const detailKeep = 0.4

	for p, i := 0, 0; i < len(src.Pix); p, i = p+1, i+4 {
		m := clampf(mask.Pix[p], 0, 1) * clampf(strength, 0, 1)

		srcLuma := 0.2126*src.Pix[i] + 0.7152*src.Pix[i+1] + 0.0722*src.Pix[i+2]
		smLuma := 0.2126*smooth.Pix[i] + 0.7152*smooth.Pix[i+1] + 0.0722*smooth.Pix[i+2]
		detail := (srcLuma - smLuma) * detailKeep

		for c := 0; c < 3; c++ {
			enhanced := smooth.Pix[i+c] + detail
			dst.Pix[i+c] = lerp(src.Pix[i+c], enhanced, m)
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}
}
