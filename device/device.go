// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device abstracts the GPU device executing the post-processing
// kernels. It defines the buffer, stream, and kernel contracts the pipeline
// binds against, plus a registry of pluggable device implementations
// (native CPU reference, WebGPU).
package device

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Common device errors.
var (
	// ErrDeviceNotAvailable is returned when a requested device is not available.
	ErrDeviceNotAvailable = errors.New("device: not available")

	// ErrAllocationFailed is returned when the device cannot allocate a buffer.
	// The pipeline treats this as "effect skipped, pass through unchanged".
	ErrAllocationFailed = errors.New("device: buffer allocation failed")

	// ErrStreamUnavailable is returned when a command stream cannot be created.
	// This is the only hard per-frame failure: the caller drops the frame.
	ErrStreamUnavailable = errors.New("device: command stream unavailable")

	// ErrKernelUnavailable is returned by stream operations whose kernel
	// failed to build at device setup. The pipeline skips the stage.
	ErrKernelUnavailable = errors.New("device: kernel unavailable")

	// ErrStreamSubmitted is returned when commands are recorded on a stream
	// that has already been submitted.
	ErrStreamSubmitted = errors.New("device: stream already submitted")

	// ErrBufferReleased is returned when operating on a destroyed buffer.
	ErrBufferReleased = errors.New("device: buffer has been released")

	// ErrSizeMismatch is returned when an operation's buffers disagree on
	// dimensions where the kernel contract requires them to match.
	ErrSizeMismatch = errors.New("device: buffer size mismatch")

	// ErrNilBuffer is returned when a required buffer argument is nil.
	ErrNilBuffer = errors.New("device: buffer is nil")
)

// Descriptor describes a frame buffer shape. Two buffers are interchangeable
// in the resource pool exactly when their descriptors are equal; a shape
// change always yields a new allocation, never a resize.
type Descriptor struct {
	// Format is the pixel format. The working space uses RGBA16Float
	// (linear, wide gamut); masks use R16Float.
	Format gputypes.TextureFormat

	// Width and Height in pixels, fixed for the buffer's lifetime.
	Width  int
	Height int

	// Usage flags for the underlying texture.
	Usage gputypes.TextureUsage
}

// DefaultUsage is the usage for intermediate pipeline buffers: sampled by
// later stages, written by compute kernels, copyable for readback.
const DefaultUsage = gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageStorageBinding

// FrameDescriptor returns the descriptor for a working-space frame buffer.
func FrameDescriptor(width, height int) Descriptor {
	return Descriptor{
		Format: gputypes.TextureFormatRGBA16Float,
		Width:  width,
		Height: height,
		Usage:  DefaultUsage,
	}
}

// MaskDescriptor returns the descriptor for a single-channel mask buffer.
func MaskDescriptor(width, height int) Descriptor {
	return Descriptor{
		Format: gputypes.TextureFormatR16Float,
		Width:  width,
		Height: height,
		Usage:  DefaultUsage,
	}
}

// Channels returns the number of color channels for the descriptor's format.
func (d Descriptor) Channels() int {
	switch d.Format {
	case gputypes.TextureFormatR16Float:
		return 1
	default:
		return 4
	}
}

// Buffer is a device-resident 2D image. Ownership is transient: a buffer
// either belongs to the caller (pipeline input/output) or to the resource
// pool (intermediates). Buffers are never resized.
type Buffer interface {
	// Descriptor returns the buffer's shape descriptor.
	Descriptor() Descriptor

	// Width returns the buffer width in pixels.
	Width() int

	// Height returns the buffer height in pixels.
	Height() int

	// Label returns the debug label assigned at creation.
	Label() string

	// Upload writes interleaved float32 pixel data (Channels() values per
	// pixel, scanline order) into the buffer. The slice length must be
	// exactly Width*Height*Channels.
	Upload(pix []float32) error

	// Download reads the buffer into dst, which must have length
	// Width*Height*Channels. On GPU devices this stalls on a staging copy.
	Download(dst []float32) error
}

// FaceRect is an axis-aligned face bounding box in normalized [0,1] frame
// coordinates: X, Y are the top-left corner, W, H the extent.
type FaceRect struct {
	X, Y, W, H float32
}

// Device creates buffers and command streams. Implementations register
// themselves in the device registry (see Register).
//
// A Device is safe for concurrent buffer creation, but a Stream and the
// buffers it records against must be confined to one goroutine per frame.
type Device interface {
	// Name returns the device identifier (e.g. "native", "wgpu").
	Name() string

	// CreateBuffer allocates a buffer. Returns ErrAllocationFailed (possibly
	// wrapped) when the underlying allocator fails.
	CreateBuffer(desc Descriptor, label string) (Buffer, error)

	// DestroyBuffer releases a buffer's device memory. Destroying a buffer
	// still referenced by an unsubmitted stream is undefined behavior.
	DestroyBuffer(b Buffer)

	// NewStream creates a command stream for one frame. Commands recorded on
	// the stream execute in submission order on the device, which is what
	// lets the pipeline return pooled buffers without explicit fences.
	NewStream() (Stream, error)

	// KernelErr reports the setup error for a kernel, or nil if the kernel
	// built successfully. A kernel that failed to build no-ops its stage for
	// the lifetime of the device.
	KernelErr(k Kernel) error

	// Close releases all device resources.
	Close()
}

// Stream records the per-frame kernel invocations in order. Every operation
// corresponds to one kernel dispatch; scalar parameters follow the kernel
// binding contract order. Operations validate eagerly and return
// ErrKernelUnavailable when their kernel failed to build.
//
// A Stream is single-use: after Submit no further commands may be recorded.
type Stream interface {
	// Copy copies src into dst. Both buffers must share a descriptor shape.
	Copy(src, dst Buffer) error

	// Clear fills dst with a constant color.
	Clear(dst Buffer, r, g, b, a float32) error

	// LensDistort applies radial distortion with per-channel chromatic
	// aberration offsets. Zero distortion and aberration is an identity.
	LensDistort(src, dst Buffer, distortion, aberration float32) error

	// FaceEnhance smooths skin regions weighted by mask*strength while
	// reinjecting luminance detail to preserve edges.
	FaceEnhance(src, mask, dst Buffer, strength, radius float32) error

	// MaskedBlur blurs src weighted by (1 - mask): masked-in regions stay
	// sharp, the rest receives the full radius.
	MaskedBlur(src, mask, dst Buffer, radius float32) error

	// BloomPrefilter applies the firefly clamp and soft-knee threshold.
	BloomPrefilter(src, dst Buffer, threshold, knee, clampMax float32) error

	// BloomDownsample halves resolution with the 13-tap dual-filter kernel.
	BloomDownsample(src, dst Buffer) error

	// BloomDownsampleKaris halves resolution with the 5-tap Karis-weighted
	// average, used for the first mip to suppress fireflies.
	BloomDownsampleKaris(src, dst Buffer) error

	// BloomUpsample upsamples smaller into current's resolution and blends
	// additively into dst with the given filter radius and weight.
	BloomUpsample(smaller, current, dst Buffer, radius, weight float32) error

	// BloomComposite adds bloom*intensity onto src. Preservation rescales
	// the source to keep total energy bounded.
	BloomComposite(src, bloom, dst Buffer, intensity, preservation float32) error

	// HalationThreshold extracts highlights above a luminance threshold.
	HalationThreshold(src, dst Buffer, threshold float32) error

	// HalationComposite adds the tinted halation contribution, optionally
	// attenuated by a radial falloff toward the corners.
	HalationComposite(src, halation, dst Buffer, intensity, time float32, radialFalloff bool, tint [3]float32) error

	// AnamorphicThreshold extracts highlights above a max-channel threshold.
	AnamorphicThreshold(src, dst Buffer, threshold float32) error

	// AnamorphicComposite adds the tinted streak contribution.
	AnamorphicComposite(src, streak, dst Buffer, intensity float32, tint [3]float32) error

	// GaussianBlurH applies a horizontal Gaussian blur with the given sigma.
	GaussianBlurH(src, dst Buffer, sigma float32) error

	// GaussianBlurV applies a vertical Gaussian blur with the given sigma.
	GaussianBlurV(src, dst Buffer, sigma float32) error

	// BoxBlurH applies a horizontal box blur with the given pixel radius.
	BoxBlurH(src, dst Buffer, radius int) error

	// SpectralDisperse applies wavelength-dependent radial fringing with the
	// given sample count. Zero strength is an identity.
	SpectralDisperse(src, dst Buffer, strength float32, samples int) error

	// LightLeak adds procedural tinted low-frequency leaks drifting with time.
	LightLeak(src, dst Buffer, time, intensity float32, tint [3]float32) error

	// Diffusion blends a pre-blurred copy of the frame into src in
	// proportion to highlight luminance.
	Diffusion(src, blurred, dst Buffer, amount, highlightBias float32) error

	// ToneMap applies exposure followed by the filmic tone curve.
	ToneMap(src, dst Buffer, exposure float32) error

	// GamutCompress applies luma-preserving saturation compression above
	// the threshold, asymptotically approaching the ceiling.
	GamutCompress(src, dst Buffer, threshold, ceiling float32) error

	// DisplayEncode converts display-linear values to the display transfer
	// encoding (sRGB).
	DisplayEncode(src, dst Buffer) error

	// ApplyLUT samples a 3-D LUT through the log-space round trip:
	// linear -> log encode -> LUT -> log decode -> linear.
	ApplyLUT(src, dst Buffer, lut *LUT) error

	// Vignette applies a physically parameterized vignette.
	Vignette(src, dst Buffer, sensorWidth, focalLength, intensity, smoothness, roundness float32) error

	// FilmGrain adds deterministic luminance-masked Gaussian grain.
	FilmGrain(src, dst Buffer, time, intensity, size, shadowBoost float32) error

	// FaceMaskGenerate renders soft-edged elliptical face masks into dst,
	// unioned via max. An empty rect list clears the mask to zero.
	FaceMaskGenerate(dst Buffer, rects []FaceRect, feather float32) error

	// MaskCombine multiplies faceMask with segMask into dst.
	MaskCombine(faceMask, segMask, dst Buffer) error

	// Submit executes the recorded commands in order. On the native device
	// commands run eagerly and Submit only seals the stream.
	Submit() error
}

// LUT is a 3-D color lookup table sampled in log space. Size is the number
// of entries per axis; Data holds Size^3 RGB triples, red-fastest.
type LUT struct {
	Size int
	Data []float32
}

// IdentityLUT returns a LUT that maps every color to itself (within the
// table's quantization). Constructed explicitly so pipelines can hold a
// dummy LUT without order-of-first-use nondeterminism.
func IdentityLUT(size int) *LUT {
	if size < 2 {
		size = 2
	}
	data := make([]float32, size*size*size*3)
	i := 0
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				data[i+0] = float32(r) / float32(size-1)
				data[i+1] = float32(g) / float32(size-1)
				data[i+2] = float32(b) / float32(size-1)
				i += 3
			}
		}
	}
	return &LUT{Size: size, Data: data}
}
