// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "fmt"

// Kernel identifies one compute kernel in the post-processing contract.
// Devices report per-kernel setup errors through Device.KernelErr.
type Kernel int

const (
	KernelCopy Kernel = iota
	KernelClear
	KernelLensDistort
	KernelFaceEnhance
	KernelMaskedBlur
	KernelBloomPrefilter
	KernelBloomDownsample
	KernelBloomDownsampleKaris
	KernelBloomUpsample
	KernelBloomComposite
	KernelHalationThreshold
	KernelHalationComposite
	KernelAnamorphicThreshold
	KernelAnamorphicComposite
	KernelGaussianBlur
	KernelBoxBlur
	KernelSpectralDisperse
	KernelLightLeak
	KernelDiffusion
	KernelToneMap
	KernelGamutCompress
	KernelDisplayEncode
	KernelApplyLUT
	KernelVignette
	KernelFilmGrain
	KernelFaceMaskGenerate
	KernelMaskCombine

	kernelCount
)

// KernelCount is the number of kernels in the contract.
const KernelCount = int(kernelCount)

// String returns the kernel's entry-point name.
func (k Kernel) String() string {
	switch k {
	case KernelCopy:
		return "copy"
	case KernelClear:
		return "clear"
	case KernelLensDistort:
		return "lens_distort"
	case KernelFaceEnhance:
		return "face_enhance"
	case KernelMaskedBlur:
		return "masked_blur"
	case KernelBloomPrefilter:
		return "bloom_prefilter"
	case KernelBloomDownsample:
		return "bloom_downsample"
	case KernelBloomDownsampleKaris:
		return "bloom_downsample_karis"
	case KernelBloomUpsample:
		return "bloom_upsample"
	case KernelBloomComposite:
		return "bloom_composite"
	case KernelHalationThreshold:
		return "halation_threshold"
	case KernelHalationComposite:
		return "halation_composite"
	case KernelAnamorphicThreshold:
		return "anamorphic_threshold"
	case KernelAnamorphicComposite:
		return "anamorphic_composite"
	case KernelGaussianBlur:
		return "gaussian_blur"
	case KernelBoxBlur:
		return "box_blur"
	case KernelSpectralDisperse:
		return "spectral_disperse"
	case KernelLightLeak:
		return "light_leak"
	case KernelDiffusion:
		return "diffusion"
	case KernelToneMap:
		return "tone_map"
	case KernelGamutCompress:
		return "gamut_compress"
	case KernelDisplayEncode:
		return "display_encode"
	case KernelApplyLUT:
		return "apply_lut"
	case KernelVignette:
		return "vignette"
	case KernelFilmGrain:
		return "film_grain"
	case KernelFaceMaskGenerate:
		return "face_mask_generate"
	case KernelMaskCombine:
		return "mask_combine"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// TileSize is the dispatch granularity for all 2-D kernels: 16x16 threads,
// grid = ceil(width/16) x ceil(height/16).
const TileSize = 16

// WorkgroupCount returns the dispatch grid for a width x height kernel.
func WorkgroupCount(width, height int) (x, y uint32) {
	x = uint32((width + TileSize - 1) / TileSize)
	y = uint32((height + TileSize - 1) / TileSize)
	return x, y
}
