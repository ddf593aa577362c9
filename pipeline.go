// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framefx is a per-frame video post-processing pipeline: it takes
// one scene-referred linear frame and applies an ordered, independently
// toggleable chain of effects (lens distortion, AI face enhancement and
// background blur, bloom, halation, anamorphic streaks, spectral
// dispersion, light leaks, diffusion, filmic tone mapping, vignette, film
// grain) to produce a display-referred output, reusing a small set of
// pooled device buffers rather than allocating per effect per frame.
package framefx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/internal/glow"
	"github.com/gogpu/framefx/pool"
	"github.com/gogpu/framefx/vision"
)

// State tracks the pipeline lifecycle across frames.
type State int

const (
	// StateIdle means no frame has been processed yet.
	StateIdle State = iota

	// StateRunning means a Process call is in progress.
	StateRunning

	// StateDone means the last frame completed.
	StateDone

	// StateFailed means the last frame hit a hard failure (command stream
	// creation or final output copy). The pipeline remains usable; the
	// caller is expected to have dropped the frame.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pipeline applies a Look to frames.
//
// Lifecycle: New -> Process (repeatedly) -> Close.
//
// Thread-safety: a Pipeline serializes Process calls internally, but the
// intent is one pipeline per encoding thread. The buffer pool and bridge
// caches belong to the instance and are not shared.
type Pipeline struct {
	mu     sync.Mutex
	dev    device.Device
	pool   *pool.Pool
	bridge *vision.Bridge
	logger *slog.Logger
	state  State

	// fallbackLUT is bound when the LUT stage is enabled without a table.
	// Built once here so per-frame behavior has no order-of-first-use
	// nondeterminism.
	fallbackLUT *device.LUT
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBridge attaches a vision bridge supplying face detection and person
// segmentation. Without a bridge the AI-driven stages always skip.
func WithBridge(b *vision.Bridge) PipelineOption {
	return func(p *Pipeline) { p.bridge = b }
}

// New creates a pipeline on the given device.
func New(dev device.Device, opts ...PipelineOption) (*Pipeline, error) {
	if dev == nil {
		return nil, fmt.Errorf("new pipeline: %w", device.ErrDeviceNotAvailable)
	}
	p := &Pipeline{
		dev:         dev,
		logger:      Logger(),
		state:       StateIdle,
		fallbackLUT: device.IdentityLUT(33),
	}
	p.pool = pool.New(dev, pool.WithLogger(p.logger))
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// State returns the lifecycle state of the last frame.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pool exposes the pipeline's buffer pool, mainly for stats.
func (p *Pipeline) Pool() *pool.Pool { return p.pool }

// Close returns all pooled buffers to the device. The device itself stays
// open; it belongs to the caller.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pool.Drain()
}

// bufferTag identifies which buffer currently holds the frame as stages
// advance. Stages always read the current buffer and write the other
// scratch, so no dispatch ever aliases its input and output.
type bufferTag int

const (
	tagInput bufferTag = iota
	tagScratchA
	tagScratchB
)

// frameRun carries the per-frame state through the stage chain.
type frameRun struct {
	p    *Pipeline
	st   device.Stream
	look *Look
	rep  *Report
	time float32

	input    device.Buffer
	scratchA device.Buffer
	scratchB device.Buffer
	cur      bufferTag
}

func (fr *frameRun) buffer(t bufferTag) device.Buffer {
	switch t {
	case tagScratchA:
		return fr.scratchA
	case tagScratchB:
		return fr.scratchB
	default:
		return fr.input
	}
}

func (fr *frameRun) current() device.Buffer { return fr.buffer(fr.cur) }

// target returns the scratch buffer the next stage writes into: whichever
// scratch is not current.
func (fr *frameRun) target() (bufferTag, device.Buffer) {
	if fr.cur == tagScratchA {
		return tagScratchB, fr.scratchB
	}
	return tagScratchA, fr.scratchA
}

func (fr *frameRun) skip(s Stage, reason string) {
	fr.rep.record(s, StageSkipped, reason)
	fr.p.logger.Debug("stage skipped", "stage", s.String(), "reason", reason)
}

// kernelReason returns a skip reason if any of the kernels failed to build
// at device setup, or "" when all are available.
func (fr *frameRun) kernelReason(ks ...device.Kernel) string {
	for _, k := range ks {
		if err := fr.p.dev.KernelErr(k); err != nil {
			return fmt.Sprintf("kernel unavailable: %s", k)
		}
	}
	return ""
}

// apply runs one single-dispatch stage: fn reads src, writes dst. On error
// the stage degrades to a skip and the current buffer does not advance.
func (fr *frameRun) apply(s Stage, fn func(src, dst device.Buffer) error) {
	tag, dst := fr.target()
	if err := fn(fr.current(), dst); err != nil {
		fr.skip(s, err.Error())
		return
	}
	fr.cur = tag
	fr.rep.record(s, StageApplied, "")
}

// Process applies the look to src and writes the result into dst. src and
// dst must share a descriptor; they may be the same buffer (in-place), in
// which case stages still write through pooled scratch buffers and the
// result is copied back at the end.
//
// Per-stage failures (missing kernel, allocation failure, empty inference
// result) degrade to skipping that stage. The only hard failures are
// command-stream creation and the final output copy; both return an error
// and the caller should drop the frame.
//
// The returned Report lists every stage outcome in execution order.
func (p *Pipeline) Process(look *Look, src, dst device.Buffer, frameTime float32) (*Report, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("process: %w", device.ErrNilBuffer)
	}
	if src.Descriptor() != dst.Descriptor() {
		return nil, fmt.Errorf("process: %w", device.ErrSizeMismatch)
	}
	if look == nil {
		look = &Look{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateRunning

	st, err := p.dev.NewStream()
	if err != nil {
		p.state = StateFailed
		return nil, fmt.Errorf("create stream: %w", err)
	}

	fr := &frameRun{
		p:     p,
		st:    st,
		look:  look,
		rep:   &Report{},
		time:  frameTime,
		input: src,
		cur:   tagInput,
	}

	desc := src.Descriptor()
	fr.scratchA, err = p.pool.Acquire(desc)
	if err == nil {
		fr.scratchB, err = p.pool.Acquire(desc)
	}
	if err != nil {
		// No scratch memory: every stage passes through.
		p.logger.Warn("scratch allocation failed, frame passes through", "error", err)
		for s := Stage(0); s < stageCount; s++ {
			fr.skip(s, "scratch allocation failed")
		}
	} else {
		fr.runStages()
	}
	defer func() {
		if fr.scratchA != nil {
			p.pool.Release(fr.scratchA)
		}
		if fr.scratchB != nil {
			p.pool.Release(fr.scratchB)
		}
	}()

	if out := fr.current(); out != dst {
		if err := st.Copy(out, dst); err != nil {
			p.state = StateFailed
			return fr.rep, fmt.Errorf("output copy: %w", err)
		}
	}
	if err := st.Submit(); err != nil {
		p.state = StateFailed
		return fr.rep, fmt.Errorf("submit: %w", err)
	}
	p.state = StateDone
	return fr.rep, nil
}

// runStages walks the fixed stage order. Ordering matters: the glow
// family reads the lens/AI-corrected frame, the finish stages read the
// fully composited frame. Within the finish, gamut compression follows
// the LUT round-trip, and display encode runs after grain so every
// finish step operates on display-linear values.
func (fr *frameRun) runStages() {
	fr.stageLens()
	fr.stageFaceEnhance()
	fr.stageBackgroundBlur()
	fr.stageBloom()
	fr.stageHalation()
	fr.stageAnamorphic()
	fr.stageDispersion()
	fr.stageLightLeak()
	fr.stageDiffusion()
	fr.stageToneMap()
	fr.stageLUT()
	fr.finishGamut()
	fr.stageVignette()
	fr.stageGrain()
	fr.finishEncode()
}

func (fr *frameRun) stageLens() {
	cfg := fr.look.Lens
	if !cfg.Enabled {
		fr.skip(StageLens, "disabled")
		return
	}
	if cfg.Distortion == 0 && cfg.Aberration == 0 {
		fr.skip(StageLens, "identity parameters")
		return
	}
	if r := fr.kernelReason(device.KernelLensDistort); r != "" {
		fr.skip(StageLens, r)
		return
	}
	fr.apply(StageLens, func(src, dst device.Buffer) error {
		return fr.st.LensDistort(src, dst, cfg.Distortion, cfg.Aberration)
	})
}

func (fr *frameRun) stageFaceEnhance() {
	cfg := fr.look.Face
	if !cfg.Enabled {
		fr.skip(StageFaceEnhance, "disabled")
		return
	}
	if cfg.Strength <= 0 {
		fr.skip(StageFaceEnhance, "strength not positive")
		return
	}
	if fr.p.bridge == nil {
		fr.skip(StageFaceEnhance, "no vision bridge")
		return
	}
	if r := fr.kernelReason(device.KernelFaceMaskGenerate, device.KernelFaceEnhance); r != "" {
		fr.skip(StageFaceEnhance, r)
		return
	}

	faces := fr.p.bridge.Faces(fr.current(), cfg.Landmarks)
	if len(faces) == 0 {
		fr.skip(StageFaceEnhance, "no faces detected")
		return
	}
	rects := vision.FaceRects(faces, cfg.RectExpand)

	desc := fr.input.Descriptor()
	mask, err := fr.p.pool.Acquire(device.MaskDescriptor(desc.Width, desc.Height))
	if err != nil {
		fr.skip(StageFaceEnhance, "mask allocation failed")
		return
	}
	defer fr.p.pool.Release(mask)

	if err := fr.st.FaceMaskGenerate(mask, rects, cfg.Feather); err != nil {
		fr.skip(StageFaceEnhance, err.Error())
		return
	}

	// When person segmentation is also configured, intersect the face
	// ellipses with the "is person" region to cut background false
	// positives.
	active := mask
	if fr.look.Background.Enabled && fr.kernelReason(device.KernelMaskCombine) == "" {
		if refined := fr.refineFaceMask(mask); refined != nil {
			defer fr.p.pool.Release(refined)
			active = refined
		}
	}

	radius := cfg.Radius
	if radius <= 0 {
		radius = 4
	}
	fr.apply(StageFaceEnhance, func(src, dst device.Buffer) error {
		return fr.st.FaceEnhance(src, active, dst, cfg.Strength, radius)
	})
}

// refineFaceMask multiplies the face mask by the person segmentation mask.
// Returns nil when segmentation is unavailable or any step fails; the
// caller then uses the raw face mask.
func (fr *frameRun) refineFaceMask(faceMask device.Buffer) device.Buffer {
	seg := fr.p.bridge.Segmentation(fr.current(), fr.look.Background.Quality)
	if seg.Empty() {
		return nil
	}

	desc := fr.input.Descriptor()
	maskDesc := device.MaskDescriptor(desc.Width, desc.Height)
	segBuf, err := fr.p.pool.Acquire(maskDesc)
	if err != nil {
		return nil
	}
	defer fr.p.pool.Release(segBuf)
	if err := segBuf.Upload(seg.Resample(desc.Width, desc.Height)); err != nil {
		return nil
	}

	refined, err := fr.p.pool.Acquire(maskDesc)
	if err != nil {
		return nil
	}
	if err := fr.st.MaskCombine(faceMask, segBuf, refined); err != nil {
		fr.p.pool.Release(refined)
		return nil
	}
	return refined
}

func (fr *frameRun) stageBackgroundBlur() {
	cfg := fr.look.Background
	if !cfg.Enabled {
		fr.skip(StageBackgroundBlur, "disabled")
		return
	}
	if cfg.Sigma <= 0 {
		fr.skip(StageBackgroundBlur, "sigma not positive")
		return
	}
	if fr.p.bridge == nil {
		fr.skip(StageBackgroundBlur, "no vision bridge")
		return
	}
	if r := fr.kernelReason(device.KernelMaskedBlur); r != "" {
		fr.skip(StageBackgroundBlur, r)
		return
	}

	seg := fr.p.bridge.Segmentation(fr.current(), cfg.Quality)
	if seg.Empty() {
		fr.skip(StageBackgroundBlur, "no segmentation")
		return
	}

	desc := fr.input.Descriptor()
	segBuf, err := fr.p.pool.Acquire(device.MaskDescriptor(desc.Width, desc.Height))
	if err != nil {
		fr.skip(StageBackgroundBlur, "mask allocation failed")
		return
	}
	defer fr.p.pool.Release(segBuf)
	if err := segBuf.Upload(seg.Resample(desc.Width, desc.Height)); err != nil {
		fr.skip(StageBackgroundBlur, err.Error())
		return
	}

	fr.apply(StageBackgroundBlur, func(src, dst device.Buffer) error {
		return fr.st.MaskedBlur(src, segBuf, dst, cfg.Sigma)
	})
}

func (fr *frameRun) stageBloom() {
	cfg := fr.look.Bloom
	if !cfg.Enabled {
		fr.skip(StageBloom, "disabled")
		return
	}
	if cfg.Intensity <= 0 {
		fr.skip(StageBloom, "intensity not positive")
		return
	}
	kernels := []device.Kernel{
		device.KernelBloomPrefilter,
		device.KernelBloomDownsample,
		device.KernelBloomUpsample,
		device.KernelBloomComposite,
	}
	if cfg.FireflySuppression {
		kernels = append(kernels, device.KernelBloomDownsampleKaris)
	}
	if r := fr.kernelReason(kernels...); r != "" {
		fr.skip(StageBloom, r)
		return
	}

	bloom, err := glow.ExtractBloom(fr.st, fr.p.pool, fr.current(), glow.BloomParams{
		Threshold:          cfg.Threshold,
		Knee:               cfg.Knee,
		ClampMax:           cfg.ClampMax,
		MipLevels:          cfg.MipLevels,
		Radius:             cfg.Radius,
		FireflySuppression: cfg.FireflySuppression,
	})
	if err != nil {
		fr.skip(StageBloom, fmt.Sprintf("extraction failed: %v", err))
		return
	}
	defer fr.p.pool.Release(bloom)

	fr.apply(StageBloom, func(src, dst device.Buffer) error {
		return fr.st.BloomComposite(src, bloom, dst, cfg.Intensity, cfg.Preservation)
	})
}

func (fr *frameRun) stageHalation() {
	cfg := fr.look.Halation
	if !cfg.Enabled {
		fr.skip(StageHalation, "disabled")
		return
	}
	if cfg.Intensity <= 0 {
		fr.skip(StageHalation, "intensity not positive")
		return
	}
	if r := fr.kernelReason(device.KernelHalationThreshold, device.KernelGaussianBlur, device.KernelHalationComposite); r != "" {
		fr.skip(StageHalation, r)
		return
	}

	hal, err := glow.ExtractHalation(fr.st, fr.p.pool, fr.current(), glow.HalationParams{
		Threshold: cfg.Threshold,
		Sigma:     cfg.Sigma,
	})
	if err != nil {
		fr.skip(StageHalation, fmt.Sprintf("extraction failed: %v", err))
		return
	}
	defer fr.p.pool.Release(hal)

	tint := tintOrDefault(cfg.Tint, DefaultHalationTint)
	fr.apply(StageHalation, func(src, dst device.Buffer) error {
		return fr.st.HalationComposite(src, hal, dst, cfg.Intensity, fr.time, cfg.RadialFalloff, tint)
	})
}

func (fr *frameRun) stageAnamorphic() {
	cfg := fr.look.Anamorphic
	if !cfg.Enabled {
		fr.skip(StageAnamorphic, "disabled")
		return
	}
	if cfg.Intensity <= 0 {
		fr.skip(StageAnamorphic, "intensity not positive")
		return
	}
	if r := fr.kernelReason(device.KernelAnamorphicThreshold, device.KernelBoxBlur, device.KernelAnamorphicComposite); r != "" {
		fr.skip(StageAnamorphic, r)
		return
	}

	streak, err := glow.ExtractAnamorphic(fr.st, fr.p.pool, fr.current(), glow.AnamorphicParams{
		Threshold:    cfg.Threshold,
		StreakLength: cfg.StreakLength,
	})
	if err != nil {
		fr.skip(StageAnamorphic, fmt.Sprintf("extraction failed: %v", err))
		return
	}
	defer fr.p.pool.Release(streak)

	tint := tintOrDefault(cfg.Tint, DefaultAnamorphicTint)
	fr.apply(StageAnamorphic, func(src, dst device.Buffer) error {
		return fr.st.AnamorphicComposite(src, streak, dst, cfg.Intensity, tint)
	})
}

func (fr *frameRun) stageDispersion() {
	cfg := fr.look.Dispersion
	if !cfg.Enabled {
		fr.skip(StageDispersion, "disabled")
		return
	}
	if cfg.Strength <= 0 {
		fr.skip(StageDispersion, "strength not positive")
		return
	}
	if r := fr.kernelReason(device.KernelSpectralDisperse); r != "" {
		fr.skip(StageDispersion, r)
		return
	}
	fr.apply(StageDispersion, func(src, dst device.Buffer) error {
		return fr.st.SpectralDisperse(src, dst, cfg.Strength, cfg.Samples)
	})
}

func (fr *frameRun) stageLightLeak() {
	cfg := fr.look.LightLeak
	if !cfg.Enabled {
		fr.skip(StageLightLeak, "disabled")
		return
	}
	if cfg.Intensity <= 0 {
		fr.skip(StageLightLeak, "intensity not positive")
		return
	}
	if r := fr.kernelReason(device.KernelLightLeak); r != "" {
		fr.skip(StageLightLeak, r)
		return
	}
	tint := tintOrDefault(cfg.Tint, DefaultLeakTint)
	fr.apply(StageLightLeak, func(src, dst device.Buffer) error {
		return fr.st.LightLeak(src, dst, fr.time, cfg.Intensity, tint)
	})
}

func (fr *frameRun) stageDiffusion() {
	cfg := fr.look.Diffusion
	if !cfg.Enabled {
		fr.skip(StageDiffusion, "disabled")
		return
	}
	if cfg.Amount <= 0 {
		fr.skip(StageDiffusion, "amount not positive")
		return
	}
	if r := fr.kernelReason(device.KernelGaussianBlur, device.KernelDiffusion); r != "" {
		fr.skip(StageDiffusion, r)
		return
	}

	sigma := cfg.Sigma
	if sigma <= 0 {
		sigma = 8
	}
	desc := fr.input.Descriptor()
	t1, err := fr.p.pool.Acquire(desc)
	if err != nil {
		fr.skip(StageDiffusion, "buffer allocation failed")
		return
	}
	defer fr.p.pool.Release(t1)
	t2, err := fr.p.pool.Acquire(desc)
	if err != nil {
		fr.skip(StageDiffusion, "buffer allocation failed")
		return
	}
	defer fr.p.pool.Release(t2)

	if err := fr.st.GaussianBlurH(fr.current(), t1, sigma); err != nil {
		fr.skip(StageDiffusion, err.Error())
		return
	}
	if err := fr.st.GaussianBlurV(t1, t2, sigma); err != nil {
		fr.skip(StageDiffusion, err.Error())
		return
	}
	fr.apply(StageDiffusion, func(src, dst device.Buffer) error {
		return fr.st.Diffusion(src, t2, dst, cfg.Amount, cfg.HighlightBias)
	})
}

// stageToneMap applies the filmic curve. The gamut compression and
// display encode configured on the same Look group run later in the
// finish: compression after the LUT round-trip, encode after grain.
func (fr *frameRun) stageToneMap() {
	cfg := fr.look.ToneMap
	if !cfg.Enabled {
		fr.skip(StageToneMap, "disabled")
		return
	}
	if r := fr.kernelReason(device.KernelToneMap); r != "" {
		fr.skip(StageToneMap, r)
		return
	}
	fr.apply(StageToneMap, func(src, dst device.Buffer) error {
		return fr.st.ToneMap(src, dst, cfg.Exposure)
	})
}

// finishGamut runs the luma-preserving gamut compression on the graded
// frame, after the LUT round-trip. A failed sub-step leaves the frame as
// is and annotates the tone-map record rather than un-applying it.
func (fr *frameRun) finishGamut() {
	cfg := fr.look.ToneMap
	if !cfg.Enabled || cfg.SaturationThreshold <= 0 || !fr.rep.Applied(StageToneMap) {
		return
	}
	if r := fr.kernelReason(device.KernelGamutCompress); r != "" {
		fr.rep.annotate(StageToneMap, "gamut compression skipped: "+r)
		return
	}
	tag, dst := fr.target()
	if err := fr.st.GamutCompress(fr.current(), dst, cfg.SaturationThreshold, cfg.SaturationCeiling); err != nil {
		fr.rep.annotate(StageToneMap, "gamut compression skipped: "+err.Error())
		return
	}
	fr.cur = tag
}

// finishEncode converts the frame to display-referred sRGB. This is the
// last hop of the chain so vignette and grain operate on linear values.
func (fr *frameRun) finishEncode() {
	cfg := fr.look.ToneMap
	if !cfg.Enabled || !cfg.DisplayEncode || !fr.rep.Applied(StageToneMap) {
		return
	}
	if r := fr.kernelReason(device.KernelDisplayEncode); r != "" {
		fr.rep.annotate(StageToneMap, "display encode skipped: "+r)
		return
	}
	tag, dst := fr.target()
	if err := fr.st.DisplayEncode(fr.current(), dst); err != nil {
		fr.rep.annotate(StageToneMap, "display encode skipped: "+err.Error())
		return
	}
	fr.cur = tag
}

func (fr *frameRun) stageLUT() {
	cfg := fr.look.LUT
	if !cfg.Enabled {
		fr.skip(StageLUT, "disabled")
		return
	}
	if r := fr.kernelReason(device.KernelApplyLUT); r != "" {
		fr.skip(StageLUT, r)
		return
	}
	lut := cfg.Table
	if lut == nil {
		lut = fr.p.fallbackLUT
	}
	fr.apply(StageLUT, func(src, dst device.Buffer) error {
		return fr.st.ApplyLUT(src, dst, lut)
	})
}

func (fr *frameRun) stageVignette() {
	cfg := fr.look.Vignette
	if !cfg.Enabled {
		fr.skip(StageVignette, "disabled")
		return
	}
	if cfg.Intensity <= 0 {
		fr.skip(StageVignette, "intensity not positive")
		return
	}
	if r := fr.kernelReason(device.KernelVignette); r != "" {
		fr.skip(StageVignette, r)
		return
	}
	sensor := cfg.SensorWidth
	if sensor <= 0 {
		sensor = 36
	}
	focal := cfg.FocalLength
	if focal <= 0 {
		focal = 50
	}
	fr.apply(StageVignette, func(src, dst device.Buffer) error {
		return fr.st.Vignette(src, dst, sensor, focal, cfg.Intensity, cfg.Smoothness, cfg.Roundness)
	})
}

func (fr *frameRun) stageGrain() {
	cfg := fr.look.Grain
	if !cfg.Enabled {
		fr.skip(StageGrain, "disabled")
		return
	}
	if cfg.Intensity <= 0 {
		fr.skip(StageGrain, "intensity not positive")
		return
	}
	if r := fr.kernelReason(device.KernelFilmGrain); r != "" {
		fr.skip(StageGrain, r)
		return
	}
	size := cfg.Size
	if size <= 0 {
		size = 1
	}
	fr.apply(StageGrain, func(src, dst device.Buffer) error {
		return fr.st.FilmGrain(src, dst, fr.time, cfg.Intensity, size, cfg.ShadowBoost)
	})
}

func tintOrDefault(t, def [3]float32) [3]float32 {
	if t == ([3]float32{}) {
		return def
	}
	return t
}
