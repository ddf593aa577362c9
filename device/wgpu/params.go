//go:build !nogpu

package wgpu

import (
	"math"

	"github.com/gogpu/framefx/device"
)

// kernelParams is the CPU-side layout of the Params uniform block.
// Must match the Params struct in framefx.wgsl.
type kernelParams struct {
	Width     uint32
	Height    uint32
	SrcWidth  uint32
	SrcHeight uint32
	P         [8]float32 // scalar parameters in kernel contract order
	Tint      [4]float32
	Flags     uint32
	Count     uint32
	Channels  uint32
	Pad0      uint32
}

// Uniform flag bits.
const (
	flagRadialFalloff = 1 << 0
	flagHorizontal    = 1 << 0
)

func writeUint32(buf []byte, offset int, val uint32) {
	buf[offset] = byte(val)
	buf[offset+1] = byte(val >> 8)
	buf[offset+2] = byte(val >> 16)
	buf[offset+3] = byte(val >> 24)
}

func writeFloat32(buf []byte, offset int, val float32) {
	writeUint32(buf, offset, math.Float32bits(val))
}

// toBytes serializes the params block for uniform buffer upload.
func (p *kernelParams) toBytes() []byte {
	buf := make([]byte, uniformSize)
	writeUint32(buf, 0, p.Width)
	writeUint32(buf, 4, p.Height)
	writeUint32(buf, 8, p.SrcWidth)
	writeUint32(buf, 12, p.SrcHeight)
	for i, v := range p.P {
		writeFloat32(buf, 16+i*4, v)
	}
	for i, v := range p.Tint {
		writeFloat32(buf, 48+i*4, v)
	}
	writeUint32(buf, 64, p.Flags)
	writeUint32(buf, 68, p.Count)
	writeUint32(buf, 72, p.Channels)
	writeUint32(buf, 76, p.Pad0)
	return buf
}

// dispatchSize returns the workgroup grid for the params' output extent.
func (p *kernelParams) dispatchSize() (x, y uint32) {
	return device.WorkgroupCount(int(p.Width), int(p.Height))
}
