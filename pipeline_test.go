// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framefx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/framefx/color"
	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/device/native"
	"github.com/gogpu/framefx/vision"
)

func newPipeline(t *testing.T, opts ...PipelineOption) (*native.Device, *Pipeline) {
	t.Helper()
	dev := native.New()
	p, err := New(dev, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return dev, p
}

// uploadFrame creates a frame buffer filled by fn(x, y) -> RGBA.
func uploadFrame(t *testing.T, dev *native.Device, w, h int, fn func(x, y int) [4]float32) device.Buffer {
	t.Helper()
	b, err := dev.CreateBuffer(device.FrameDescriptor(w, h), "test")
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	pix := make([]float32, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := fn(x, y)
			i := (y*w + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v[0], v[1], v[2], v[3]
		}
	}
	if err := b.Upload(pix); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return b
}

func downloadFrame(t *testing.T, b device.Buffer) []float32 {
	t.Helper()
	d := b.Descriptor()
	pix := make([]float32, d.Width*d.Height*d.Channels())
	if err := b.Download(pix); err != nil {
		t.Fatalf("Download: %v", err)
	}
	return pix
}

func gradient(x, y int) [4]float32 {
	return [4]float32{
		float32(x) / 16,
		float32(y) / 16,
		float32(x+y) / 32,
		1,
	}
}

func TestProcessZeroLookIsIdentity(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 16, 16, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "out")

	rep, err := p.Process(&Look{}, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	in := downloadFrame(t, src)
	out := downloadFrame(t, dst)
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("component %d changed: %v != %v", i, out[i], in[i])
		}
	}

	if len(rep.Stages) != int(stageCount) {
		t.Fatalf("report has %d stages, want %d", len(rep.Stages), int(stageCount))
	}
	for i, sr := range rep.Stages {
		if sr.Stage != Stage(i) {
			t.Errorf("stage %d out of order: %v", i, sr.Stage)
		}
		if sr.Status != StageSkipped || sr.Reason != "disabled" {
			t.Errorf("stage %v: %v (%q), want skipped/disabled", sr.Stage, sr.Status, sr.Reason)
		}
	}
	if p.State() != StateDone {
		t.Errorf("state = %v, want done", p.State())
	}
}

func TestProcessNilLook(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 8, 8, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(8, 8), "out")

	if _, err := p.Process(nil, src, dst, 0); err != nil {
		t.Fatalf("nil look: %v", err)
	}
}

func TestProcessValidation(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 8, 8, gradient)
	small, _ := dev.CreateBuffer(device.FrameDescriptor(4, 4), "small")

	if _, err := p.Process(nil, nil, src, 0); !errors.Is(err, device.ErrNilBuffer) {
		t.Errorf("nil src: %v", err)
	}
	if _, err := p.Process(nil, src, nil, 0); !errors.Is(err, device.ErrNilBuffer) {
		t.Errorf("nil dst: %v", err)
	}
	if _, err := p.Process(nil, src, small, 0); !errors.Is(err, device.ErrSizeMismatch) {
		t.Errorf("mismatched dst: %v", err)
	}
}

func TestProcessInPlace(t *testing.T) {
	dev, p := newPipeline(t)
	frame := uploadFrame(t, dev, 8, 8, func(x, y int) [4]float32 {
		return [4]float32{0.5, 0.5, 0.5, 1}
	})

	look := &Look{ToneMap: ToneMapSettings{Enabled: true, Exposure: 1}}
	rep, err := p.Process(look, frame, frame, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !rep.Applied(StageToneMap) {
		t.Fatal("tone map not applied")
	}

	want := color.Filmic(0.5)
	out := downloadFrame(t, frame)
	if out[0] != want {
		t.Errorf("in-place result %v, want %v", out[0], want)
	}
}

func TestToneMapFinishSequence(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 8, 8, func(x, y int) [4]float32 {
		return [4]float32{0.18, 0.18, 0.18, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(8, 8), "out")

	look := &Look{ToneMap: ToneMapSettings{
		Enabled:       true,
		Exposure:      2,
		DisplayEncode: true,
	}}
	if _, err := p.Process(look, src, dst, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := color.EncodeSRGB(color.Filmic(0.36))
	out := downloadFrame(t, dst)
	if out[0] != want {
		t.Errorf("finish output %v, want %v", out[0], want)
	}
}

// gainLUT builds a LUT applying a per-channel linear gain, expressed on
// the log-encoded lattice.
func gainLUT(size int, gain [3]float32) *device.LUT {
	data := make([]float32, size*size*size*3)
	i := 0
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				axes := [3]int{r, g, b}
				for ch := 0; ch < 3; ch++ {
					enc := float32(axes[ch]) / float32(size-1)
					data[i+ch] = color.EncodeACEScct(color.DecodeACEScct(enc) * gain[ch])
				}
				i += 3
			}
		}
	}
	return &device.LUT{Size: size, Data: data}
}

func TestFinishLUTGradesLinearValues(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 8, 8, func(x, y int) [4]float32 {
		return [4]float32{0.36, 0.36, 0.36, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(8, 8), "out")

	look := &Look{
		ToneMap: ToneMapSettings{Enabled: true, DisplayEncode: true},
		LUT:     LUTSettings{Enabled: true, Table: gainLUT(33, [3]float32{0.5, 0.5, 0.5})},
	}
	if _, err := p.Process(look, src, dst, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// The half-gain grade lands on the tone-mapped linear value; the sRGB
	// transfer comes after. Tolerance covers the LUT lattice quantization.
	want := color.EncodeSRGB(0.5 * color.Filmic(0.36))
	out := downloadFrame(t, dst)
	if d := out[0] - want; d < -0.02 || d > 0.02 {
		t.Errorf("graded output %v, want %v", out[0], want)
	}
}

func TestFinishGamutCompressionFollowsLUT(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 8, 8, func(x, y int) [4]float32 {
		return [4]float32{0.9, 0.1, 0.1, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(8, 8), "out")

	// A red-only grade changes the chroma the compression sees, so the
	// result depends on the LUT running first.
	look := &Look{
		ToneMap: ToneMapSettings{Enabled: true, SaturationThreshold: 0.5, SaturationCeiling: 1},
		LUT:     LUTSettings{Enabled: true, Table: gainLUT(33, [3]float32{0.5, 1, 1})},
	}
	if _, err := p.Process(look, src, dst, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}

	tr := 0.5 * color.Filmic(0.9)
	tg := color.Filmic(0.1)
	wr, wg, _ := color.CompressSaturation(tr, tg, tg, 0.5, 1)
	out := downloadFrame(t, dst)
	if d := out[0] - wr; d < -0.01 || d > 0.01 {
		t.Errorf("red = %v, want %v", out[0], wr)
	}
	if d := out[1] - wg; d < -0.01 || d > 0.01 {
		t.Errorf("green = %v, want %v", out[1], wg)
	}
}

func TestFinishEncodeIsFinalHop(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 16, 16, gradient)
	linear, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "linear")
	encoded, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "encoded")

	look := func(encode bool) *Look {
		return &Look{
			ToneMap:  ToneMapSettings{Enabled: true, SaturationThreshold: 0.6, SaturationCeiling: 1, DisplayEncode: encode},
			LUT:      LUTSettings{Enabled: true},
			Vignette: VignetteSettings{Enabled: true, Intensity: 0.5},
			Grain:    GrainSettings{Enabled: true, Intensity: 0.05},
		}
	}
	if _, err := p.Process(look(false), src, linear, 1.5); err != nil {
		t.Fatalf("Process linear: %v", err)
	}
	if _, err := p.Process(look(true), src, encoded, 1.5); err != nil {
		t.Fatalf("Process encoded: %v", err)
	}

	// With identical frame time the two runs match exactly up to the final
	// encode hop, so the encoded run is the linear run through the sRGB
	// transfer, pixel for pixel.
	lin := downloadFrame(t, linear)
	enc := downloadFrame(t, encoded)
	for i := 0; i < len(lin); i += 4 {
		for c := 0; c < 3; c++ {
			if want := color.EncodeSRGB(lin[i+c]); enc[i+c] != want {
				t.Fatalf("pixel %d channel %d: %v, want %v", i/4, c, enc[i+c], want)
			}
		}
		if enc[i+3] != lin[i+3] {
			t.Fatalf("pixel %d alpha changed: %v vs %v", i/4, enc[i+3], lin[i+3])
		}
	}
}

func TestToneMapAnnotatesSkippedSubSteps(t *testing.T) {
	dev, p := newPipeline(t)
	dev.SetKernelErr(device.KernelGamutCompress, errors.New("pipeline build failed"))
	dev.SetKernelErr(device.KernelDisplayEncode, errors.New("pipeline build failed"))
	src := uploadFrame(t, dev, 8, 8, func(x, y int) [4]float32 {
		return [4]float32{0.5, 0.5, 0.5, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(8, 8), "out")

	look := &Look{ToneMap: ToneMapSettings{
		Enabled:             true,
		SaturationThreshold: 0.8,
		SaturationCeiling:   1,
		DisplayEncode:       true,
	}}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	res, ok := rep.Result(StageToneMap)
	if !ok {
		t.Fatal("tone map stage not recorded")
	}
	if res.Status != StageApplied {
		t.Errorf("tone map status = %v, want applied", res.Status)
	}
	if !strings.Contains(res.Reason, "gamut compression skipped") {
		t.Errorf("reason %q missing gamut compression note", res.Reason)
	}
	if !strings.Contains(res.Reason, "display encode skipped") {
		t.Errorf("reason %q missing display encode note", res.Reason)
	}

	// The curve itself still ran.
	out := downloadFrame(t, dst)
	if want := color.Filmic(0.5); out[0] != want {
		t.Errorf("output %v, want %v", out[0], want)
	}
}

func TestBloomBelowThresholdIsExact(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 32, 32, func(x, y int) [4]float32 {
		return [4]float32{0.5, 0.5, 0.5, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(32, 32), "out")

	look := &Look{Bloom: BloomSettings{
		Enabled:   true,
		Threshold: 1.0,
		Knee:      0,
		Intensity: 1,
		Radius:    2,
		MipLevels: 4,
	}}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !rep.Applied(StageBloom) {
		t.Fatal("bloom stage did not run")
	}

	in := downloadFrame(t, src)
	out := downloadFrame(t, dst)
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("sub-threshold frame changed at component %d: %v != %v", i, out[i], in[i])
		}
	}
}

func bloomLook(intensity float32) *Look {
	return &Look{Bloom: BloomSettings{
		Enabled:   true,
		Threshold: 1.0,
		Knee:      0.5,
		Intensity: intensity,
		Radius:    2,
		MipLevels: 5,
	}}
}

func TestBloomSpreadsHighlight(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 32, 32, func(x, y int) [4]float32 {
		if x == 16 && y == 16 {
			return [4]float32{10, 10, 10, 1}
		}
		return [4]float32{0, 0, 0, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(32, 32), "out")

	if _, err := p.Process(bloomLook(1), src, dst, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}
	out := downloadFrame(t, dst)
	at := func(x, y int) float32 { return out[(y*32+x)*4] }

	if at(12, 16) <= 0 || at(16, 20) <= 0 {
		t.Error("bloom did not spread energy around the highlight")
	}
	if at(12, 16) >= at(16, 16) {
		t.Error("bloom energy should decay away from the highlight")
	}
}

func TestBloomIntensityMonotonic(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 32, 32, func(x, y int) [4]float32 {
		if x == 16 && y == 16 {
			return [4]float32{10, 10, 10, 1}
		}
		return [4]float32{0, 0, 0, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(32, 32), "out")

	sum := func(intensity float32) float64 {
		if _, err := p.Process(bloomLook(intensity), src, dst, 0); err != nil {
			t.Fatalf("Process: %v", err)
		}
		var s float64
		for i, v := range downloadFrame(t, dst) {
			if i%4 != 3 {
				s += float64(v)
			}
		}
		return s
	}

	weak := sum(0.25)
	strong := sum(1.0)
	if strong <= weak {
		t.Errorf("energy not monotonic in intensity: %v <= %v", strong, weak)
	}
}

func TestBloomZeroIntensitySkips(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 16, 16, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "out")

	look := &Look{Bloom: BloomSettings{Enabled: true, Threshold: 1, MipLevels: 4, Radius: 2}}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	sr, ok := rep.Result(StageBloom)
	if !ok || sr.Status != StageSkipped || sr.Reason != "intensity not positive" {
		t.Errorf("bloom result = %+v, want skip for non-positive intensity", sr)
	}
}

func TestUnavailableKernelSkipsStage(t *testing.T) {
	dev, p := newPipeline(t)
	dev.SetKernelErr(device.KernelVignette, errors.New("pipeline build failed"))
	src := uploadFrame(t, dev, 16, 16, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "out")

	look := &Look{
		Vignette: VignetteSettings{Enabled: true, Intensity: 0.5},
		Grain:    GrainSettings{Enabled: true, Intensity: 0.1},
	}
	rep, err := p.Process(look, src, dst, 0.5)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	sr, _ := rep.Result(StageVignette)
	if sr.Status != StageSkipped || !strings.Contains(sr.Reason, "kernel unavailable") {
		t.Errorf("vignette result = %+v, want kernel-unavailable skip", sr)
	}
	if !rep.Applied(StageGrain) {
		t.Error("unrelated grain stage should still run")
	}
}

func TestScratchAllocationFailurePassesThrough(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 16, 16, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "out")
	dev.SetAllocErr(errors.New("out of memory"))

	look := &Look{ToneMap: ToneMapSettings{Enabled: true}}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	for _, sr := range rep.Stages {
		if sr.Status != StageSkipped || sr.Reason != "scratch allocation failed" {
			t.Fatalf("stage %v = %+v, want scratch-allocation skip", sr.Stage, sr)
		}
	}
	in := downloadFrame(t, src)
	out := downloadFrame(t, dst)
	for i := range in {
		if in[i] != out[i] {
			t.Fatal("pass-through frame changed")
		}
	}
}

func TestProcessFailedStream(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 8, 8, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(8, 8), "out")
	dev.Close()

	if _, err := p.Process(nil, src, dst, 0); err == nil {
		t.Fatal("Process on closed device succeeded")
	}
	if p.State() != StateFailed {
		t.Errorf("state = %v, want failed", p.State())
	}
}

func TestNewRequiresDevice(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, device.ErrDeviceNotAvailable) {
		t.Errorf("New(nil) = %v, want ErrDeviceNotAvailable", err)
	}
}

func TestPoolReuseAcrossFrames(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 16, 16, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "out")

	look := &Look{ToneMap: ToneMapSettings{Enabled: true}}
	for i := 0; i < 3; i++ {
		if _, err := p.Process(look, src, dst, float32(i)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	s := p.Pool().Stats()
	if s.Misses != 2 {
		t.Errorf("pool misses = %d, want 2 scratch allocations total", s.Misses)
	}
	if s.Hits == 0 {
		t.Error("pool never reused a buffer across frames")
	}
	if s.InUse != 0 {
		t.Errorf("in-use after frames = %d, want 0", s.InUse)
	}
}

// stubDetector returns one fixed face.
type stubDetector struct{}

func (stubDetector) DetectFaces(_ context.Context, _ device.Buffer, _ bool) ([]vision.FaceObservation, error) {
	return []vision.FaceObservation{{
		Rect:       device.FaceRect{X: 0.3, Y: 0.3, W: 0.4, H: 0.4},
		Confidence: 0.9,
	}}, nil
}

// stubSegmenter marks the left half of the frame as person.
type stubSegmenter struct{}

func (stubSegmenter) SegmentPeople(_ context.Context, _ device.Buffer, _ vision.SegmentationQuality) (vision.SegmentationResult, error) {
	return vision.SegmentationResult{
		Mask:   []float32{1, 0, 1, 0},
		Width:  2,
		Height: 2,
	}, nil
}

func TestFaceEnhanceWithBridge(t *testing.T) {
	bridge := vision.NewBridge(stubDetector{}, nil)
	dev, p := newPipeline(t, WithBridge(bridge))

	// Checkerboard texture so smoothing produces a visible change.
	src := uploadFrame(t, dev, 32, 32, func(x, y int) [4]float32 {
		v := float32((x + y) % 2)
		return [4]float32{v, v, v, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(32, 32), "out")

	look := &Look{Face: FaceEnhanceSettings{
		Enabled:  true,
		Strength: 1,
		Radius:   2,
		Feather:  0.3,
	}}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !rep.Applied(StageFaceEnhance) {
		sr, _ := rep.Result(StageFaceEnhance)
		t.Fatalf("face enhance skipped: %q", sr.Reason)
	}

	in := downloadFrame(t, src)
	out := downloadFrame(t, dst)
	center := (16*32 + 16) * 4
	if in[center] == out[center] {
		t.Error("face region not smoothed")
	}
	corner := 0
	if in[corner] != out[corner] {
		t.Error("pixel outside the face mask changed")
	}
}

func TestFaceEnhanceSkipsWithoutBridge(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 16, 16, gradient)
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "out")

	look := &Look{
		Face:       FaceEnhanceSettings{Enabled: true, Strength: 1},
		Background: BackgroundBlurSettings{Enabled: true, Sigma: 4},
	}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for _, s := range []Stage{StageFaceEnhance, StageBackgroundBlur} {
		sr, _ := rep.Result(s)
		if sr.Status != StageSkipped || sr.Reason != "no vision bridge" {
			t.Errorf("%v = %+v, want no-bridge skip", s, sr)
		}
	}
}

func TestBackgroundBlurWithBridge(t *testing.T) {
	bridge := vision.NewBridge(nil, stubSegmenter{})
	dev, p := newPipeline(t, WithBridge(bridge))

	src := uploadFrame(t, dev, 32, 32, func(x, y int) [4]float32 {
		v := float32((x + y) % 2)
		return [4]float32{v, v, v, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(32, 32), "out")

	look := &Look{Background: BackgroundBlurSettings{Enabled: true, Sigma: 3}}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !rep.Applied(StageBackgroundBlur) {
		sr, _ := rep.Result(StageBackgroundBlur)
		t.Fatalf("background blur skipped: %q", sr.Reason)
	}

	in := downloadFrame(t, src)
	out := downloadFrame(t, dst)
	// Right half (mask 0) is blurred toward mid-gray.
	right := (16*32 + 28) * 4
	if in[right] == out[right] {
		t.Error("background not blurred")
	}
}

func TestGrainDeterministicAcrossRuns(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 16, 16, func(x, y int) [4]float32 {
		return [4]float32{0.2, 0.2, 0.2, 1}
	})
	a, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "a")
	b, _ := dev.CreateBuffer(device.FrameDescriptor(16, 16), "b")

	look := &Look{Grain: GrainSettings{Enabled: true, Intensity: 0.3}}
	if _, err := p.Process(look, src, a, 1.25); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := p.Process(look, src, b, 1.25); err != nil {
		t.Fatalf("Process: %v", err)
	}

	pa := downloadFrame(t, a)
	pb := downloadFrame(t, b)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatal("grain not deterministic for a fixed frame time")
		}
	}
}

func TestLUTFallsBackToIdentity(t *testing.T) {
	dev, p := newPipeline(t)
	src := uploadFrame(t, dev, 8, 8, func(x, y int) [4]float32 {
		return [4]float32{0.25, 0.5, 0.75, 1}
	})
	dst, _ := dev.CreateBuffer(device.FrameDescriptor(8, 8), "out")

	look := &Look{LUT: LUTSettings{Enabled: true}}
	rep, err := p.Process(look, src, dst, 0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !rep.Applied(StageLUT) {
		t.Fatal("LUT stage did not run")
	}

	in := downloadFrame(t, src)
	out := downloadFrame(t, dst)
	for i := 0; i < len(in); i += 4 {
		for c := 0; c < 3; c++ {
			d := out[i+c] - in[i+c]
			if d < -0.01 || d > 0.01 {
				t.Fatalf("identity fallback distorted channel %d: %v vs %v", c, out[i+c], in[i+c])
			}
		}
	}
}

func TestStateLifecycle(t *testing.T) {
	_, p := newPipeline(t)
	if p.State() != StateIdle {
		t.Errorf("initial state = %v, want idle", p.State())
	}

	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateDone, "done"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d) = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestParseTint(t *testing.T) {
	got, err := ParseTint("#ffffff")
	if err != nil {
		t.Fatalf("ParseTint: %v", err)
	}
	for c, v := range got {
		if v < 0.999 || v > 1.001 {
			t.Errorf("white channel %d = %v, want 1", c, v)
		}
	}

	// Bare hex without the leading # is accepted.
	if _, err := ParseTint("ff4c1f"); err != nil {
		t.Errorf("bare hex rejected: %v", err)
	}
	if _, err := ParseTint("not-a-color"); err == nil {
		t.Error("invalid tint accepted")
	}

	// Mid-gray decodes through the sRGB curve, so the linear value sits
	// well below 0.5.
	mid, err := ParseTint("#808080")
	if err != nil {
		t.Fatalf("ParseTint: %v", err)
	}
	if mid[0] >= 0.5 || mid[0] <= 0.1 {
		t.Errorf("linearized mid-gray = %v, want ~0.22", mid[0])
	}
}

func TestStageStrings(t *testing.T) {
	want := []string{
		"lens", "face_enhance", "background_blur", "bloom", "halation",
		"anamorphic", "dispersion", "light_leak", "diffusion", "tone_map",
		"lut", "vignette", "grain",
	}
	if len(want) != int(stageCount) {
		t.Fatalf("test covers %d stages, want %d", len(want), int(stageCount))
	}
	for i, name := range want {
		if got := Stage(i).String(); got != name {
			t.Errorf("Stage(%d) = %q, want %q", i, got, name)
		}
	}
	if got := StageSkipped.String(); got != "skipped" {
		t.Errorf("StageSkipped = %q", got)
	}
	if got := StageApplied.String(); got != "applied" {
		t.Errorf("StageApplied = %q", got)
	}
}
