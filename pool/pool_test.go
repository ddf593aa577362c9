// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"errors"
	"testing"

	"github.com/gogpu/framefx/device"
	"github.com/gogpu/framefx/device/native"
)

func TestAcquireAllocatesThenReuses(t *testing.T) {
	dev := native.New()
	p := New(dev)
	desc := device.FrameDescriptor(64, 64)

	a, err := p.Acquire(desc)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(a)

	b, err := p.Acquire(desc)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a != b {
		t.Error("released buffer was not reused")
	}

	s := p.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss", s)
	}
}

func TestAcquireDistinctShapes(t *testing.T) {
	dev := native.New()
	p := New(dev)

	a, err := p.Acquire(device.FrameDescriptor(64, 64))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(a)

	// A different shape never reuses the parked buffer.
	b, err := p.Acquire(device.FrameDescriptor(32, 32))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a == b {
		t.Error("buffer reused across descriptors")
	}

	// Mask and frame formats are distinct keys even at equal size.
	m, err := p.Acquire(device.MaskDescriptor(64, 64))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if m == a {
		t.Error("mask acquisition returned a frame buffer")
	}
}

func TestReleaseNotInUseIgnored(t *testing.T) {
	dev := native.New()
	p := New(dev)

	b, err := p.Acquire(device.FrameDescriptor(16, 16))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(b)
	p.Release(b) // double release: ignored
	p.Release(nil)

	if s := p.Stats(); s.Free != 1 || s.InUse != 0 {
		t.Errorf("stats = %+v, want 1 free, 0 in use", s)
	}

	// The freelist must not contain the buffer twice.
	x, _ := p.Acquire(device.FrameDescriptor(16, 16))
	y, err := p.Acquire(device.FrameDescriptor(16, 16))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if x == y {
		t.Error("double release duplicated the freelist entry")
	}
}

func TestAcquireError(t *testing.T) {
	dev := native.New()
	p := New(dev)
	dev.SetAllocErr(errors.New("out of memory"))

	if _, err := p.Acquire(device.FrameDescriptor(8, 8)); !errors.Is(err, device.ErrAllocationFailed) {
		t.Errorf("err = %v, want ErrAllocationFailed", err)
	}
}

func TestDrainDestroysFreeOnly(t *testing.T) {
	dev := native.New()
	p := New(dev)
	desc := device.FrameDescriptor(16, 16)

	held, err := p.Acquire(desc)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	parked, err := p.Acquire(desc)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(parked)

	p.Drain()

	if got := dev.AllocatedBuffers(); got != 1 {
		t.Errorf("allocated after drain = %d, want 1", got)
	}
	// The held buffer stays usable.
	pix := make([]float32, 16*16*4)
	if err := held.Download(pix); err != nil {
		t.Errorf("held buffer unusable after drain: %v", err)
	}

	if s := p.Stats(); s.Free != 0 || s.InUse != 1 {
		t.Errorf("stats = %+v, want 0 free, 1 in use", s)
	}
}
