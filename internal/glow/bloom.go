// Package glow implements the highlight extractors: the Laplacian-style
// bloom pyramid, halation, and anamorphic streaks. Extractors acquire
// every intermediate from the resource pool and return a single pool-owned
// contribution buffer the caller composites and releases.
package glow

import (
	"fmt"

	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/pool"
)

// BloomParams configures bloom extraction.
type BloomParams struct {
	// Threshold is the soft-knee brightness threshold.
	Threshold float32

	// Knee is the half-width of the soft transition band.
	Knee float32

	// ClampMax caps per-pixel brightness before thresholding to suppress
	// fireflies. Zero disables the cap.
	ClampMax float32

	// MipLevels is the pyramid depth.
	MipLevels int

	// Radius is the upsample filter radius in destination pixels.
	Radius float32

	// FireflySuppression selects the Karis-weighted average for the first
	// downsample so single-pixel outliers die before they propagate.
	FireflySuppression bool
}

// pyramid is the ephemeral list of pool-owned mip buffers, finest first.
type pyramid struct {
	p      *pool.Pool
	levels []device.Buffer
}

func (py *pyramid) releaseAll() {
	for _, b := range py.levels {
		py.p.Release(b)
	}
	py.levels = nil
}

// ExtractBloom runs the prefilter and pyramid and returns the full-
// resolution bloom contribution as a pool-owned buffer.
//
// MipLevels <= 0 or Radius <= 0 yields a constant black buffer with no
// pyramid built. Any mid-pyramid acquisition failure releases everything
// and returns the error so the caller can skip the effect.
func ExtractBloom(st device.Stream, p *pool.Pool, src device.Buffer, prm BloomParams) (device.Buffer, error) {
	w, h := src.Width(), src.Height()
	frameDesc := device.FrameDescriptor(w, h)

	result, err := p.Acquire(frameDesc)
	if err != nil {
		return nil, err
	}

	if prm.MipLevels <= 0 || prm.Radius <= 0 {
		if err := st.Clear(result, 0, 0, 0, 0); err != nil {
			p.Release(result)
			return nil, err
		}
		return result, nil
	}

	// Level 0: prefiltered highlights at full resolution.
	if err := st.BloomPrefilter(src, result, prm.Threshold, prm.Knee, prm.ClampMax); err != nil {
		p.Release(result)
		return nil, err
	}

	// Downsample finest to coarsest. The pyramid stops early once a level
	// would fall below 2x2.
	py := pyramid{p: p, levels: []device.Buffer{result}}
	mw, mh := w, h
	for i := 0; i < prm.MipLevels; i++ {
		mw /= 2
		mh /= 2
		if mw < 2 || mh < 2 {
			break
		}

		mip, err := p.Acquire(device.FrameDescriptor(mw, mh))
		if err != nil {
			py.releaseAll()
			return nil, fmt.Errorf("bloom mip %d: %w", i+1, err)
		}

		prev := py.levels[len(py.levels)-1]
		if i == 0 && prm.FireflySuppression {
			err = st.BloomDownsampleKaris(prev, mip)
		} else {
			err = st.BloomDownsample(prev, mip)
		}
		if err != nil {
			p.Release(mip)
			py.releaseAll()
			return nil, err
		}
		py.levels = append(py.levels, mip)
	}

	// Upsample coarsest to finest, accumulating additively into each finer
	// level. Each pass writes a fresh pool buffer: the upsample kernel may
	// not alias its current-mip input and output in one dispatch.
	for i := len(py.levels) - 2; i >= 0; i-- {
		smaller := py.levels[i+1]
		current := py.levels[i]

		dst, err := p.Acquire(current.Descriptor())
		if err != nil {
			py.releaseAll()
			return nil, fmt.Errorf("bloom upsample %d: %w", i, err)
		}
		if err := st.BloomUpsample(smaller, current, dst, prm.Radius, 1.0); err != nil {
			p.Release(dst)
			py.releaseAll()
			return nil, err
		}

		p.Release(smaller)
		p.Release(current)
		py.levels[i] = dst
		py.levels = py.levels[:i+1]
	}

	return py.levels[0], nil
}
