package glow

import (
	"math"

	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/pool"
)

// AnamorphicParams configures anamorphic streak extraction: a hard
// threshold stretched into horizontal flares by iterated box blurs.
type AnamorphicParams struct {
	// Threshold is the hard brightness cutoff.
	Threshold float32

	// StreakLength in [0,1] scales how far the flare reaches. The pass
	// count grows with length so long streaks stay smooth.
	StreakLength float32
}

// StreakPasses returns the number of horizontal box-blur passes for a
// given streak length. Always at least one.
func StreakPasses(streakLength float32) int {
	n := int(math.Round(float64(streakLength) * 3))
	if n < 1 {
		n = 1
	}
	return n
}

// ExtractAnamorphic returns the streaked over-threshold energy as a
// pool-owned buffer.
func ExtractAnamorphic(st device.Stream, p *pool.Pool, src device.Buffer, prm AnamorphicParams) (device.Buffer, error) {
	w, h := src.Width(), src.Height()
	desc := device.FrameDescriptor(w, h)

	a, err := p.Acquire(desc)
	if err != nil {
		return nil, err
	}
	if err := st.AnamorphicThreshold(src, a, prm.Threshold); err != nil {
		p.Release(a)
		return nil, err
	}

	b, err := p.Acquire(desc)
	if err != nil {
		p.Release(a)
		return nil, err
	}

	// Horizontal reach per pass. The iterated box converges toward a wide
	// Gaussian along x only.
	radius := int(float32(w) * 0.02 * clampStreak(prm.StreakLength))
	if radius < 4 {
		radius = 4
	}

	passes := StreakPasses(prm.StreakLength)
	for i := 0; i < passes; i++ {
		if err := st.BoxBlurH(a, b, radius); err != nil {
			p.Release(a)
			p.Release(b)
			return nil, err
		}
		a, b = b, a
	}

	p.Release(b)
	return a, nil
}

func clampStreak(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
