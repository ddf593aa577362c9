package kernels

import (
	"math"
	"testing"
)

func uniformImage(w, h int, r, g, b, a float32) *Image {
	im := NewImage(w, h, 4)
	for i := 0; i < len(im.Pix); i += 4 {
		im.Pix[i+0] = r
		im.Pix[i+1] = g
		im.Pix[i+2] = b
		im.Pix[i+3] = a
	}
	return im
}

func TestBloomPrefilterKneeBoundaries(t *testing.T) {
	const (
		threshold = 1.0
		knee      = 0.5
	)

	prefilter := func(b float32) float32 {
		src := uniformImage(1, 1, b, b, b, 1)
		dst := NewImage(1, 1, 4)
		BloomPrefilter(src, dst, threshold, knee, 0)
		return dst.Pix[0]
	}

	// Exactly at threshold-knee the contribution is zero.
	if got := prefilter(threshold - knee); got != 0 {
		t.Errorf("at threshold-knee: got %v, want 0", got)
	}

	// Exactly at threshold+knee the contribution matches the hard
	// threshold: weight = (b-threshold)/b.
	b := float32(threshold + knee)
	want := b * (b - threshold) / b
	if got := prefilter(b); math.Abs(float64(got-want)) > 1e-3 {
		t.Errorf("at threshold+knee: got %v, want %v", got, want)
	}

	// Continuity at both band edges.
	for _, edge := range []float32{threshold - knee, threshold + knee} {
		lo := prefilter(edge - 1e-3)
		hi := prefilter(edge + 1e-3)
		if math.Abs(float64(hi-lo)) > 1e-2 {
			t.Errorf("discontinuity at %v: %v vs %v", edge, lo, hi)
		}
	}

	// Interior of the band ramps strictly between the edges.
	mid := prefilter(threshold)
	if mid <= 0 || mid >= want {
		t.Errorf("knee band interior out of range: %v", mid)
	}
}

func TestBloomPrefilterBelowThresholdZero(t *testing.T) {
	src := uniformImage(2, 2, 0.5, 0.5, 0.5, 1)
	dst := NewImage(2, 2, 4)
	BloomPrefilter(src, dst, 1.0, 0, 0)
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 0 || dst.Pix[i+1] != 0 || dst.Pix[i+2] != 0 {
			t.Fatalf("pixel %d not zero: %v", i/4, dst.Pix[i:i+3])
		}
	}
}

func TestBloomPrefilterFireflyClampKeepsHue(t *testing.T) {
	src := uniformImage(1, 1, 8, 4, 2, 1)
	dst := NewImage(1, 1, 4)
	BloomPrefilter(src, dst, 0.5, 0, 4)

	// Channel ratios must survive the clamp.
	r, g, b := dst.Pix[0], dst.Pix[1], dst.Pix[2]
	if math.Abs(float64(r/g-2)) > 1e-3 || math.Abs(float64(g/b-2)) > 1e-3 {
		t.Errorf("hue not preserved: %v %v %v", r, g, b)
	}
	if r > 4.0001 {
		t.Errorf("clamp not applied: %v", r)
	}
}

func TestDownsample13FlatRegionExact(t *testing.T) {
	src := uniformImage(8, 8, 0.25, 0.5, 0.75, 1)
	dst := NewImage(4, 4, 4)
	Downsample13(src, dst)
	for i := 0; i < len(dst.Pix); i += 4 {
		for c, want := range []float32{0.25, 0.5, 0.75, 1} {
			if diff := math.Abs(float64(dst.Pix[i+c] - want)); diff > 1e-5 {
				t.Fatalf("channel %d: got %v, want %v", c, dst.Pix[i+c], want)
			}
		}
	}
}

func TestDownsampleKarisSuppressesFirefly(t *testing.T) {
	// One hot pixel in a dark field: the Karis average must land far below
	// the plain mean of its contributing taps.
	src := NewImage(8, 8, 4)
	i := src.idx(4, 4)
	src.Pix[i] = 100
	src.Pix[i+1] = 100
	src.Pix[i+2] = 100

	karis := NewImage(4, 4, 4)
	DownsampleKaris(src, karis)
	plain := NewImage(4, 4, 4)
	Downsample13(src, plain)

	var karisMax, plainMax float32
	for j := 0; j < len(karis.Pix); j += 4 {
		karisMax = maxf(karisMax, karis.Pix[j])
		plainMax = maxf(plainMax, plain.Pix[j])
	}
	if karisMax >= plainMax {
		t.Errorf("karis %v not below plain %v", karisMax, plainMax)
	}
}

func TestUpsampleAccumulates(t *testing.T) {
	smaller := uniformImage(2, 2, 1, 1, 1, 0)
	current := uniformImage(4, 4, 0.5, 0.5, 0.5, 0)
	dst := NewImage(4, 4, 4)

	Upsample(smaller, current, dst, 1, 0.5)
	for i := 0; i < len(dst.Pix); i += 4 {
		if diff := math.Abs(float64(dst.Pix[i] - 1.0)); diff > 1e-5 {
			t.Fatalf("pixel %d: got %v, want 1.0", i/4, dst.Pix[i])
		}
	}
}

func TestBloomCompositeZeroBloomIsExact(t *testing.T) {
	src := uniformImage(4, 4, 0.5, 0.25, 0.125, 1)
	bloom := NewImage(4, 4, 4)
	dst := NewImage(4, 4, 4)

	BloomComposite(src, bloom, dst, 0.5, 1.0)
	for i := range src.Pix {
		if dst.Pix[i] != src.Pix[i] {
			t.Fatalf("index %d: %v != %v", i, dst.Pix[i], src.Pix[i])
		}
	}
}

func TestBloomCompositeAdditive(t *testing.T) {
	src := uniformImage(4, 4, 0.5, 0.5, 0.5, 1)
	bloom := uniformImage(4, 4, 1, 1, 1, 1)
	dst := NewImage(4, 4, 4)

	BloomComposite(src, bloom, dst, 0.5, 0)
	for i := 0; i < len(dst.Pix); i += 4 {
		// src + bloom*intensity plus at most the dither quantum.
		if diff := math.Abs(float64(dst.Pix[i] - 1.0)); diff > 1.0/255 {
			t.Fatalf("pixel %d: got %v, want ~1.0", i/4, dst.Pix[i])
		}
		if dst.Pix[i+3] != 1 {
			t.Fatalf("alpha modified: %v", dst.Pix[i+3])
		}
	}
}

func TestThresholdIncludesBoundary(t *testing.T) {
	// Gray with luma exactly at the threshold must pass.
	src := uniformImage(1, 1, 0.5, 0.5, 0.5, 1)
	dst := NewImage(1, 1, 4)

	ThresholdLuminance(src, dst, 0.5)
	if dst.Pix[0] != 0.5 {
		t.Errorf("luma threshold boundary excluded: %v", dst.Pix[0])
	}

	ThresholdMaxChannel(src, dst, 0.5)
	if dst.Pix[0] != 0.5 {
		t.Errorf("max-channel threshold boundary excluded: %v", dst.Pix[0])
	}
}

func TestThresholdMaxChannelCatchesColoredHighlight(t *testing.T) {
	// Saturated blue: low luma, high max channel.
	src := uniformImage(1, 1, 0, 0, 2, 1)
	dst := NewImage(1, 1, 4)

	ThresholdLuminance(src, dst, 1.0)
	if dst.Pix[2] != 0 {
		t.Errorf("luma threshold passed colored highlight: %v", dst.Pix[2])
	}
	ThresholdMaxChannel(src, dst, 1.0)
	if dst.Pix[2] != 2 {
		t.Errorf("max-channel threshold missed colored highlight: %v", dst.Pix[2])
	}
}

func TestHalationCompositeRadialFalloff(t *testing.T) {
	src := NewImage(16, 16, 4)
	hal := uniformImage(16, 16, 1, 1, 1, 1)

	dst := NewImage(16, 16, 4)
	HalationComposite(src, hal, dst, 1, 0, true, [3]float32{1, 1, 1})

	center := dst.Pix[dst.idx(8, 8)]
	corner := dst.Pix[dst.idx(0, 0)]
	if center <= 0 {
		t.Fatalf("no contribution at center: %v", center)
	}
	if corner >= center*0.1 {
		t.Errorf("corner %v not attenuated relative to center %v", corner, center)
	}
}

func TestAnamorphicCompositeTint(t *testing.T) {
	src := NewImage(2, 2, 4)
	streak := uniformImage(2, 2, 1, 1, 1, 1)
	dst := NewImage(2, 2, 4)

	AnamorphicComposite(src, streak, dst, 0.5, [3]float32{0.2, 0.4, 1})
	if dst.Pix[0] != 0.1 || dst.Pix[1] != 0.2 || dst.Pix[2] != 0.5 {
		t.Errorf("tint not applied: %v", dst.Pix[:3])
	}
}
