// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native provides the CPU reference device. Every kernel executes
// immediately in submission order, which trivially satisfies the in-order
// command stream contract and makes the device the test vehicle for the
// pipeline.
package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/internal/kernels"
)

func init() {
	device.Register(device.NameNative, func() (device.Device, error) {
		return New(), nil
	})
}

// Device is the CPU reference device. Buffers live in host memory as
// float32 planes; half-float quantization of the working format is not
// simulated.
//
// Device is safe for concurrent buffer creation. Streams must be confined
// to one goroutine.
type Device struct {
	closed atomic.Bool

	mu         sync.Mutex
	kernelErrs [device.KernelCount]error
	allocErr   error
	allocated  int64
}

// New creates a CPU reference device.
func New() *Device {
	return &Device{}
}

// Name returns "native".
func (d *Device) Name() string { return device.NameNative }

// SetKernelErr marks a kernel as failed at setup. Stages depending on it
// will silently no-op, mirroring a GPU device whose pipeline failed to
// build. Intended for tests of degraded configurations.
func (d *Device) SetKernelErr(k device.Kernel, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kernelErrs[k] = err
}

// SetAllocErr makes every subsequent CreateBuffer fail with err until
// called again with nil. Intended for tests of allocation-failure paths.
func (d *Device) SetAllocErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocErr = err
}

// KernelErr reports the setup error recorded for a kernel.
func (d *Device) KernelErr(k device.Kernel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k < 0 || int(k) >= device.KernelCount {
		return fmt.Errorf("%w: unknown kernel %d", device.ErrKernelUnavailable, int(k))
	}
	return d.kernelErrs[k]
}

// AllocatedBuffers returns the number of live buffers, for leak checks.
func (d *Device) AllocatedBuffers() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated
}

// CreateBuffer allocates a host-memory buffer.
func (d *Device) CreateBuffer(desc device.Descriptor, label string) (device.Buffer, error) {
	if d.closed.Load() {
		return nil, device.ErrDeviceNotAvailable
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d",
			device.ErrAllocationFailed, desc.Width, desc.Height)
	}

	d.mu.Lock()
	if d.allocErr != nil {
		err := d.allocErr
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", device.ErrAllocationFailed, err)
	}
	d.allocated++
	d.mu.Unlock()

	return &buffer{
		img:   kernels.NewImage(desc.Width, desc.Height, desc.Channels()),
		desc:  desc,
		label: label,
	}, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(b device.Buffer) {
	nb, ok := b.(*buffer)
	if !ok || nb == nil {
		return
	}
	if nb.released.Swap(true) {
		return
	}
	nb.img = nil

	d.mu.Lock()
	d.allocated--
	d.mu.Unlock()
}

// NewStream creates an immediate-execution command stream.
func (d *Device) NewStream() (device.Stream, error) {
	if d.closed.Load() {
		return nil, device.ErrStreamUnavailable
	}
	return &stream{dev: d}, nil
}

// Close marks the device closed. Outstanding buffers stay readable.
func (d *Device) Close() {
	d.closed.Store(true)
}

// buffer is a host-memory frame buffer.
type buffer struct {
	img      *kernels.Image
	desc     device.Descriptor
	label    string
	released atomic.Bool
}

func (b *buffer) Descriptor() device.Descriptor { return b.desc }
func (b *buffer) Width() int                    { return b.desc.Width }
func (b *buffer) Height() int                   { return b.desc.Height }
func (b *buffer) Label() string                 { return b.label }

func (b *buffer) Upload(pix []float32) error {
	if b.released.Load() {
		return device.ErrBufferReleased
	}
	if len(pix) != len(b.img.Pix) {
		return fmt.Errorf("%w: got %d values, want %d",
			device.ErrSizeMismatch, len(pix), len(b.img.Pix))
	}
	copy(b.img.Pix, pix)
	return nil
}

func (b *buffer) Download(dst []float32) error {
	if b.released.Load() {
		return device.ErrBufferReleased
	}
	if len(dst) != len(b.img.Pix) {
		return fmt.Errorf("%w: got %d values, want %d",
			device.ErrSizeMismatch, len(dst), len(b.img.Pix))
	}
	copy(dst, b.img.Pix)
	return nil
}

// image unwraps a device.Buffer into its kernels image, validating type
// and liveness.
func image(b device.Buffer) (*kernels.Image, error) {
	if b == nil {
		return nil, device.ErrNilBuffer
	}
	nb, ok := b.(*buffer)
	if !ok {
		return nil, fmt.Errorf("native: foreign buffer %T", b)
	}
	if nb.released.Load() {
		return nil, device.ErrBufferReleased
	}
	return nb.img, nil
}
