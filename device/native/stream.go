// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/internal/kernels"
)

// stream executes kernels eagerly. Submission order and execution order
// coincide by construction.
type stream struct {
	dev       *Device
	submitted bool
	dispatch  int
}

// begin validates stream state and kernel availability, then unwraps the
// buffers into kernel images.
func (s *stream) begin(k device.Kernel, bufs ...device.Buffer) ([]*kernels.Image, error) {
	if s.submitted {
		return nil, device.ErrStreamSubmitted
	}
	if err := s.dev.KernelErr(k); err != nil {
		return nil, fmt.Errorf("%s: %w", k, device.ErrKernelUnavailable)
	}

	imgs := make([]*kernels.Image, len(bufs))
	for i, b := range bufs {
		img, err := image(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		imgs[i] = img
	}
	s.dispatch++
	return imgs, nil
}

// sameSize checks that all images share dimensions.
func sameSize(k device.Kernel, imgs ...*kernels.Image) error {
	for _, im := range imgs[1:] {
		if im.W != imgs[0].W || im.H != imgs[0].H {
			return fmt.Errorf("%s: %w", k, device.ErrSizeMismatch)
		}
	}
	return nil
}

func (s *stream) Copy(src, dst device.Buffer) error {
	imgs, err := s.begin(device.KernelCopy, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelCopy, imgs...); err != nil {
		return err
	}
	kernels.Copy(imgs[0], imgs[1])
	return nil
}

func (s *stream) Clear(dst device.Buffer, r, g, b, a float32) error {
	imgs, err := s.begin(device.KernelClear, dst)
	if err != nil {
		return err
	}
	kernels.Clear(imgs[0], r, g, b, a)
	return nil
}

func (s *stream) LensDistort(src, dst device.Buffer, distortion, aberration float32) error {
	imgs, err := s.begin(device.KernelLensDistort, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelLensDistort, imgs...); err != nil {
		return err
	}
	kernels.LensDistort(imgs[0], imgs[1], distortion, aberration)
	return nil
}

func (s *stream) FaceEnhance(src, mask, dst device.Buffer, strength, radius float32) error {
	imgs, err := s.begin(device.KernelFaceEnhance, src, mask, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelFaceEnhance, imgs...); err != nil {
		return err
	}
	kernels.FaceEnhance(imgs[0], imgs[1], imgs[2], strength, radius)
	return nil
}

func (s *stream) MaskedBlur(src, mask, dst device.Buffer, radius float32) error {
	imgs, err := s.begin(device.KernelMaskedBlur, src, mask, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelMaskedBlur, imgs...); err != nil {
		return err
	}
	kernels.MaskedBlur(imgs[0], imgs[1], imgs[2], radius)
	return nil
}

func (s *stream) BloomPrefilter(src, dst device.Buffer, threshold, knee, clampMax float32) error {
	imgs, err := s.begin(device.KernelBloomPrefilter, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelBloomPrefilter, imgs...); err != nil {
		return err
	}
	kernels.BloomPrefilter(imgs[0], imgs[1], threshold, knee, clampMax)
	return nil
}

func (s *stream) BloomDownsample(src, dst device.Buffer) error {
	imgs, err := s.begin(device.KernelBloomDownsample, src, dst)
	if err != nil {
		return err
	}
	kernels.Downsample13(imgs[0], imgs[1])
	return nil
}

func (s *stream) BloomDownsampleKaris(src, dst device.Buffer) error {
	imgs, err := s.begin(device.KernelBloomDownsampleKaris, src, dst)
	if err != nil {
		return err
	}
	kernels.DownsampleKaris(imgs[0], imgs[1])
	return nil
}

func (s *stream) BloomUpsample(smaller, current, dst device.Buffer, radius, weight float32) error {
	imgs, err := s.begin(device.KernelBloomUpsample, smaller, current, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelBloomUpsample, imgs[1], imgs[2]); err != nil {
		return err
	}
	kernels.Upsample(imgs[0], imgs[1], imgs[2], radius, weight)
	return nil
}

func (s *stream) BloomComposite(src, bloom, dst device.Buffer, intensity, preservation float32) error {
	imgs, err := s.begin(device.KernelBloomComposite, src, bloom, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelBloomComposite, imgs...); err != nil {
		return err
	}
	kernels.BloomComposite(imgs[0], imgs[1], imgs[2], intensity, preservation)
	return nil
}

func (s *stream) HalationThreshold(src, dst device.Buffer, threshold float32) error {
	imgs, err := s.begin(device.KernelHalationThreshold, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelHalationThreshold, imgs...); err != nil {
		return err
	}
	kernels.ThresholdLuminance(imgs[0], imgs[1], threshold)
	return nil
}

func (s *stream) HalationComposite(src, halation, dst device.Buffer, intensity, time float32, radialFalloff bool, tint [3]float32) error {
	imgs, err := s.begin(device.KernelHalationComposite, src, halation, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelHalationComposite, imgs...); err != nil {
		return err
	}
	kernels.HalationComposite(imgs[0], imgs[1], imgs[2], intensity, time, radialFalloff, tint)
	return nil
}

func (s *stream) AnamorphicThreshold(src, dst device.Buffer, threshold float32) error {
	imgs, err := s.begin(device.KernelAnamorphicThreshold, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelAnamorphicThreshold, imgs...); err != nil {
		return err
	}
	kernels.ThresholdMaxChannel(imgs[0], imgs[1], threshold)
	return nil
}

func (s *stream) AnamorphicComposite(src, streak, dst device.Buffer, intensity float32, tint [3]float32) error {
	imgs, err := s.begin(device.KernelAnamorphicComposite, src, streak, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelAnamorphicComposite, imgs...); err != nil {
		return err
	}
	kernels.AnamorphicComposite(imgs[0], imgs[1], imgs[2], intensity, tint)
	return nil
}

func (s *stream) GaussianBlurH(src, dst device.Buffer, sigma float32) error {
	imgs, err := s.begin(device.KernelGaussianBlur, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelGaussianBlur, imgs...); err != nil {
		return err
	}
	kernels.GaussianBlurH(imgs[0], imgs[1], sigma)
	return nil
}

func (s *stream) GaussianBlurV(src, dst device.Buffer, sigma float32) error {
	imgs, err := s.begin(device.KernelGaussianBlur, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelGaussianBlur, imgs...); err != nil {
		return err
	}
	kernels.GaussianBlurV(imgs[0], imgs[1], sigma)
	return nil
}

func (s *stream) BoxBlurH(src, dst device.Buffer, radius int) error {
	imgs, err := s.begin(device.KernelBoxBlur, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelBoxBlur, imgs...); err != nil {
		return err
	}
	kernels.BoxBlurH(imgs[0], imgs[1], radius)
	return nil
}

func (s *stream) SpectralDisperse(src, dst device.Buffer, strength float32, samples int) error {
	imgs, err := s.begin(device.KernelSpectralDisperse, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelSpectralDisperse, imgs...); err != nil {
		return err
	}
	kernels.SpectralDisperse(imgs[0], imgs[1], strength, samples)
	return nil
}

func (s *stream) LightLeak(src, dst device.Buffer, time, intensity float32, tint [3]float32) error {
	imgs, err := s.begin(device.KernelLightLeak, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelLightLeak, imgs...); err != nil {
		return err
	}
	kernels.LightLeak(imgs[0], imgs[1], time, intensity, tint)
	return nil
}

func (s *stream) Diffusion(src, blurred, dst device.Buffer, amount, highlightBias float32) error {
	imgs, err := s.begin(device.KernelDiffusion, src, blurred, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelDiffusion, imgs...); err != nil {
		return err
	}
	kernels.Diffusion(imgs[0], imgs[1], imgs[2], amount, highlightBias)
	return nil
}

func (s *stream) ToneMap(src, dst device.Buffer, exposure float32) error {
	imgs, err := s.begin(device.KernelToneMap, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelToneMap, imgs...); err != nil {
		return err
	}
	kernels.ToneMap(imgs[0], imgs[1], exposure)
	return nil
}

func (s *stream) GamutCompress(src, dst device.Buffer, threshold, ceiling float32) error {
	imgs, err := s.begin(device.KernelGamutCompress, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelGamutCompress, imgs...); err != nil {
		return err
	}
	kernels.GamutCompress(imgs[0], imgs[1], threshold, ceiling)
	return nil
}

func (s *stream) DisplayEncode(src, dst device.Buffer) error {
	imgs, err := s.begin(device.KernelDisplayEncode, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelDisplayEncode, imgs...); err != nil {
		return err
	}
	kernels.DisplayEncode(imgs[0], imgs[1])
	return nil
}

func (s *stream) ApplyLUT(src, dst device.Buffer, lut *device.LUT) error {
	imgs, err := s.begin(device.KernelApplyLUT, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelApplyLUT, imgs...); err != nil {
		return err
	}
	if lut == nil || lut.Size < 2 {
		return fmt.Errorf("%s: invalid LUT", device.KernelApplyLUT)
	}
	kernels.ApplyLUT(imgs[0], imgs[1], lut.Size, lut.Data)
	return nil
}

func (s *stream) Vignette(src, dst device.Buffer, sensorWidth, focalLength, intensity, smoothness, roundness float32) error {
	imgs, err := s.begin(device.KernelVignette, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelVignette, imgs...); err != nil {
		return err
	}
	kernels.Vignette(imgs[0], imgs[1], sensorWidth, focalLength, intensity, smoothness, roundness)
	return nil
}

func (s *stream) FilmGrain(src, dst device.Buffer, time, intensity, size, shadowBoost float32) error {
	imgs, err := s.begin(device.KernelFilmGrain, src, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelFilmGrain, imgs...); err != nil {
		return err
	}
	kernels.FilmGrain(imgs[0], imgs[1], time, intensity, size, shadowBoost)
	return nil
}

func (s *stream) FaceMaskGenerate(dst device.Buffer, rects []device.FaceRect, feather float32) error {
	imgs, err := s.begin(device.KernelFaceMaskGenerate, dst)
	if err != nil {
		return err
	}
	krects := make([]kernels.Rect, len(rects))
	for i, r := range rects {
		krects[i] = kernels.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
	}
	kernels.FaceMaskGenerate(imgs[0], krects, feather)
	return nil
}

func (s *stream) MaskCombine(faceMask, segMask, dst device.Buffer) error {
	imgs, err := s.begin(device.KernelMaskCombine, faceMask, segMask, dst)
	if err != nil {
		return err
	}
	if err := sameSize(device.KernelMaskCombine, imgs...); err != nil {
		return err
	}
	kernels.MaskCombine(imgs[0], imgs[1], imgs[2])
	return nil
}

// Submit seals the stream. All commands already executed in order.
func (s *stream) Submit() error {
	if s.submitted {
		return device.ErrStreamSubmitted
	}
	s.submitted = true
	return nil
}
