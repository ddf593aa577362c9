package glow

import (
	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/pool"
)

// HalationParams configures halation extraction. Halation models the red
// film-base reflection around hot highlights: a hard threshold followed by
// a wide separable Gaussian.
type HalationParams struct {
	// Threshold is the hard brightness cutoff, compared against the max
	// channel so saturated colors bleed too.
	Threshold float32

	// Sigma is the Gaussian blur radius in pixels at full resolution.
	Sigma float32
}

// ExtractHalation returns the blurred over-threshold energy as a
// pool-owned buffer. Sigma <= 0 skips the blur and returns the raw
// threshold output.
func ExtractHalation(st device.Stream, p *pool.Pool, src device.Buffer, prm HalationParams) (device.Buffer, error) {
	w, h := src.Width(), src.Height()
	desc := device.FrameDescriptor(w, h)

	bright, err := p.Acquire(desc)
	if err != nil {
		return nil, err
	}
	if err := st.HalationThreshold(src, bright, prm.Threshold); err != nil {
		p.Release(bright)
		return nil, err
	}
	if prm.Sigma <= 0 {
		return bright, nil
	}

	tmp, err := p.Acquire(desc)
	if err != nil {
		p.Release(bright)
		return nil, err
	}
	if err := st.GaussianBlurH(bright, tmp, prm.Sigma); err != nil {
		p.Release(tmp)
		p.Release(bright)
		return nil, err
	}
	if err := st.GaussianBlurV(tmp, bright, prm.Sigma); err != nil {
		p.Release(tmp)
		p.Release(bright)
		return nil, err
	}
	p.Release(tmp)
	return bright, nil
}
