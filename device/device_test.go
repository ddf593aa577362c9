// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"testing"
)

func TestDescriptorChannels(t *testing.T) {
	if got := FrameDescriptor(64, 48).Channels(); got != 4 {
		t.Errorf("frame channels = %d, want 4", got)
	}
	if got := MaskDescriptor(64, 48).Channels(); got != 1 {
		t.Errorf("mask channels = %d, want 1", got)
	}
}

func TestDescriptorEquality(t *testing.T) {
	if FrameDescriptor(64, 48) != FrameDescriptor(64, 48) {
		t.Error("equal frame descriptors compare unequal")
	}
	if FrameDescriptor(64, 48) == FrameDescriptor(48, 64) {
		t.Error("descriptors with swapped dimensions compare equal")
	}
	if FrameDescriptor(64, 48) == MaskDescriptor(64, 48) {
		t.Error("frame and mask descriptors compare equal")
	}
}

func TestIdentityLUT(t *testing.T) {
	lut := IdentityLUT(5)
	if lut.Size != 5 {
		t.Fatalf("size = %d, want 5", lut.Size)
	}
	if len(lut.Data) != 5*5*5*3 {
		t.Fatalf("data length = %d, want %d", len(lut.Data), 5*5*5*3)
	}

	at := func(r, g, b int) (float32, float32, float32) {
		i := ((b*5+g)*5 + r) * 3
		return lut.Data[i], lut.Data[i+1], lut.Data[i+2]
	}
	if r, g, b := at(0, 0, 0); r != 0 || g != 0 || b != 0 {
		t.Errorf("origin = %v %v %v, want zeros", r, g, b)
	}
	if r, g, b := at(4, 4, 4); r != 1 || g != 1 || b != 1 {
		t.Errorf("corner = %v %v %v, want ones", r, g, b)
	}
	if r, g, b := at(2, 0, 4); r != 0.5 || g != 0 || b != 1 {
		t.Errorf("lattice (2,0,4) = %v %v %v, want 0.5 0 1", r, g, b)
	}

	// Degenerate sizes clamp to the smallest valid table.
	if got := IdentityLUT(0).Size; got != 2 {
		t.Errorf("clamped size = %d, want 2", got)
	}
}

func TestKernelString(t *testing.T) {
	tests := []struct {
		k    Kernel
		want string
	}{
		{KernelCopy, "copy"},
		{KernelBloomDownsampleKaris, "bloom_downsample_karis"},
		{KernelApplyLUT, "apply_lut"},
		{KernelMaskCombine, "mask_combine"},
		{Kernel(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kernel(%d).String() = %q, want %q", int(tt.k), got, tt.want)
		}
	}
}

func TestKernelStringsDistinct(t *testing.T) {
	seen := make(map[string]Kernel)
	for k := Kernel(0); int(k) < KernelCount; k++ {
		name := k.String()
		if prev, ok := seen[name]; ok {
			t.Errorf("kernels %d and %d share the name %q", int(prev), int(k), name)
		}
		seen[name] = k
	}
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		w, h   int
		gx, gy uint32
	}{
		{16, 16, 1, 1},
		{17, 16, 2, 1},
		{1920, 1080, 120, 68},
		{1, 1, 1, 1},
	}
	for _, tt := range tests {
		gx, gy := WorkgroupCount(tt.w, tt.h)
		if gx != tt.gx || gy != tt.gy {
			t.Errorf("WorkgroupCount(%d, %d) = (%d, %d), want (%d, %d)",
				tt.w, tt.h, gx, gy, tt.gx, tt.gy)
		}
	}
}

type stubDevice struct{ Device }

func TestRegistry(t *testing.T) {
	const name = "test-stub"
	Register(name, func() (Device, error) {
		return stubDevice{}, nil
	})
	defer Unregister(name)

	dev, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := dev.(stubDevice); !ok {
		t.Errorf("Open returned %T", dev)
	}

	found := false
	for _, n := range Available() {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Error("registered device missing from Available")
	}

	if _, err := Open("no-such-device"); !errors.Is(err, ErrDeviceNotAvailable) {
		t.Errorf("Open of unknown device: %v, want ErrDeviceNotAvailable", err)
	}
}

func TestRegistryFailedFactorySkipped(t *testing.T) {
	const name = "test-broken"
	Register(name, func() (Device, error) {
		return nil, errors.New("no hardware")
	})
	defer Unregister(name)

	if _, err := Open(name); err == nil {
		t.Error("Open of failing factory succeeded")
	}
}
