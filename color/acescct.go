package color

import "math"

// ACEScct piecewise constants (S-2016-001). The curve is linear below the
// break point and logarithmic above it; EncodeACEScct and DecodeACEScct are
// exact inverses across the full defined domain.
const (
	acesCCTBreakLinear = 0.0078125         // linear-side break point
	acesCCTBreakLog    = 0.155251141552511 // encoded value at the break
	acesCCTSlope       = 10.5402377416545  // linear segment slope
	acesCCTOffset      = 0.0729055341958355
	acesCCTLogScale    = 17.52
	acesCCTLogOffset   = 9.72
)

// EncodeACEScct converts a scene-linear value to ACEScct log encoding.
func EncodeACEScct(x float32) float32 {
	if x <= acesCCTBreakLinear {
		return float32(acesCCTSlope*float64(x) + acesCCTOffset)
	}
	return float32((math.Log2(float64(x)) + acesCCTLogOffset) / acesCCTLogScale)
}

// DecodeACEScct converts an ACEScct-encoded value back to scene linear.
// DecodeACEScct(EncodeACEScct(x)) round-trips within float precision for
// any x in the curve's domain.
func DecodeACEScct(y float32) float32 {
	if y <= acesCCTBreakLog {
		return float32((float64(y) - acesCCTOffset) / acesCCTSlope)
	}
	return float32(math.Exp2(float64(y)*acesCCTLogScale - acesCCTLogOffset))
}
