// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framefx

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/vision"
)

// Look is the complete per-pipeline effect configuration. Every effect
// group carries an explicit Enabled flag; the zero value of Look disables
// everything, and a pipeline run with a zero Look returns the input
// byte-identical.
//
// A Look is plain data. It can be built in code or decoded from a config
// file by the caller; the pipeline only reads it.
type Look struct {
	Lens       LensSettings
	Face       FaceEnhanceSettings
	Background BackgroundBlurSettings
	Bloom      BloomSettings
	Halation   HalationSettings
	Anamorphic AnamorphicSettings
	Dispersion DispersionSettings
	LightLeak  LightLeakSettings
	Diffusion  DiffusionSettings
	ToneMap    ToneMapSettings
	LUT        LUTSettings
	Vignette   VignetteSettings
	Grain      GrainSettings
}

// LensSettings controls barrel/pincushion distortion and lateral
// chromatic aberration.
type LensSettings struct {
	Enabled    bool
	Distortion float32 // radial coefficient, negative = pincushion
	Aberration float32 // per-channel radial scale spread
}

// FaceEnhanceSettings controls AI-driven face enhancement. Detection
// results come from the pipeline's vision bridge.
type FaceEnhanceSettings struct {
	Enabled    bool
	Strength   float32 // blend of the enhanced result, [0,1]
	Radius     float32 // skin smoothing blur radius in pixels
	Feather    float32 // soft edge width of the elliptical face mask
	RectExpand float32 // fractional bounding-box expansion before masking
	Landmarks  bool    // request landmarks from the detector
}

// BackgroundBlurSettings controls AI-driven portrait background blur.
type BackgroundBlurSettings struct {
	Enabled bool
	Sigma   float32 // Gaussian radius of the background
	Feather float32 // face-mask edge width when refining the person mask
	Quality vision.SegmentationQuality
}

// BloomSettings controls the pyramid bloom.
type BloomSettings struct {
	Enabled            bool
	Threshold          float32 // soft-knee brightness threshold
	Knee               float32 // transition half-width
	ClampMax           float32 // firefly brightness cap, 0 = off
	Intensity          float32 // composite gain
	Preservation       float32 // highlight soft-limit strength in composite
	Radius             float32 // upsample filter radius
	MipLevels          int
	FireflySuppression bool // Karis average on the first downsample
}

// HalationSettings controls the red film-base glow around highlights.
type HalationSettings struct {
	Enabled       bool
	Threshold     float32
	Sigma         float32
	Intensity     float32
	Tint          [3]float32
	RadialFalloff bool // attenuate toward image corners
}

// AnamorphicSettings controls horizontal lens streaks.
type AnamorphicSettings struct {
	Enabled      bool
	Threshold    float32
	StreakLength float32 // [0,1], drives box-blur pass count
	Intensity    float32
	Tint         [3]float32
}

// DispersionSettings controls radial spectral dispersion fringing.
type DispersionSettings struct {
	Enabled  bool
	Strength float32
	Samples  int // spectral samples, forced to at least 3
}

// LightLeakSettings controls drifting additive light leaks.
type LightLeakSettings struct {
	Enabled   bool
	Intensity float32
	Tint      [3]float32
}

// DiffusionSettings controls the pro-mist style highlight diffusion.
type DiffusionSettings struct {
	Enabled       bool
	Amount        float32
	HighlightBias float32 // luminance above which diffusion engages
	Sigma         float32 // blur radius feeding the diffusion blend
}

// ToneMapSettings controls the filmic finish. SaturationThreshold and
// SaturationCeiling parameterize the luma-preserving gamut compression
// applied after the curve and LUT; DisplayEncode converts to
// display-referred sRGB as the final step of the finish, after grain.
type ToneMapSettings struct {
	Enabled             bool
	Exposure            float32 // linear gain before the curve, 0 = 1.0
	SaturationThreshold float32
	SaturationCeiling   float32
	DisplayEncode       bool
}

// LUTSettings applies a 3D creative LUT through a log-space round trip.
type LUTSettings struct {
	Enabled bool
	Table   *device.LUT
}

// VignetteSettings is parameterized physically rather than as a raw
// radius so the falloff tracks the virtual sensor geometry.
type VignetteSettings struct {
	Enabled     bool
	SensorWidth float32 // mm
	FocalLength float32 // mm
	Intensity   float32
	Smoothness  float32
	Roundness   float32 // 1 = circular, 0 = follows frame aspect
}

// GrainSettings controls luminance-masked Gaussian film grain.
type GrainSettings struct {
	Enabled     bool
	Intensity   float32
	Size        float32 // grain cell size in pixels
	ShadowBoost float32
}

// Default tints, chosen to match photographic film behavior.
var (
	DefaultHalationTint   = [3]float32{1.0, 0.3, 0.12}
	DefaultAnamorphicTint = [3]float32{0.25, 0.45, 1.0}
	DefaultLeakTint       = [3]float32{1.0, 0.55, 0.25}
)

// ParseTint converts a hex color string ("#ff4c1f" or "ff4c1f") into the
// RGB triple used by tint parameters. The hex value is interpreted as
// display sRGB and linearized, since tints multiply linear light.
func ParseTint(hex string) ([3]float32, error) {
	if len(hex) > 0 && hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return [3]float32{}, fmt.Errorf("parse tint %q: %w", hex, err)
	}
	r, g, b := c.LinearRgb()
	return [3]float32{float32(r), float32(g), float32(b)}, nil
}
