// Package kernels implements the post-processing compute kernels on the
// CPU. The native device executes these directly; the wgpu device uses them
// as the staging-copy execution path and as the reference the WGSL shaders
// are validated against.
//
// All kernels operate on interleaved float32 planes in scene-linear working
// space. Out-of-bounds samples clamp to the edge.
package kernels

// Image is an interleaved float32 pixel plane. C is the channel count:
// 4 for working-space frames, 1 for masks.
type Image struct {
	Pix []float32
	W   int
	H   int
	C   int
}

// NewImage allocates a zeroed image.
func NewImage(w, h, c int) *Image {
	return &Image{Pix: make([]float32, w*h*c), W: w, H: h, C: c}
}

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	out := &Image{Pix: make([]float32, len(im.Pix)), W: im.W, H: im.H, C: im.C}
	copy(out.Pix, im.Pix)
	return out
}

// idx returns the pixel offset for (x, y) with edge clamping.
func (im *Image) idx(x, y int) int {
	if x < 0 {
		x = 0
	} else if x >= im.W {
		x = im.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= im.H {
		y = im.H - 1
	}
	return (y*im.W + x) * im.C
}

// Copy copies src into dst. Both images must have identical shape.
func Copy(src, dst *Image) {
	copy(dst.Pix, src.Pix)
}

// Clear fills dst with a constant color. For single-channel images only
// the first component is used.
func Clear(dst *Image, r, g, b, a float32) {
	if dst.C == 1 {
		for i := range dst.Pix {
			dst.Pix[i] = r
		}
		return
	}
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i+0] = r
		dst.Pix[i+1] = g
		dst.Pix[i+2] = b
		dst.Pix[i+3] = a
	}
}

// sampleBilinear samples an RGBA image at continuous pixel coordinates
// (fx, fy) with bilinear filtering and edge clamp.
func sampleBilinear(im *Image, fx, fy float32, out *[4]float32) {
	fx -= 0.5
	fy -= 0.5

	x0 := int(floorf(fx))
	y0 := int(floorf(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	i00 := im.idx(x0, y0)
	i10 := im.idx(x0+1, y0)
	i01 := im.idx(x0, y0+1)
	i11 := im.idx(x0+1, y0+1)

	for c := 0; c < 4; c++ {
		top := im.Pix[i00+c] + (im.Pix[i10+c]-im.Pix[i00+c])*tx
		bot := im.Pix[i01+c] + (im.Pix[i11+c]-im.Pix[i01+c])*tx
		out[c] = top + (bot-top)*ty
	}
}

func floorf(v float32) float32 {
	i := float32(int(v))
	if v < i {
		return i - 1
	}
	return i
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max3(a, b, c float32) float32 {
	return maxf(a, maxf(b, c))
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
