// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "sync"

// Well-known device names.
const (
	// NameNative is the CPU reference device.
	NameNative = "native"

	// NameWGPU is the WebGPU compute device.
	NameWGPU = "wgpu"
)

// Factory creates a new device instance, or returns an error when the
// device cannot be brought up on this host.
type Factory func() (Device, error)

var (
	registryMu sync.RWMutex
	devices    = make(map[string]Factory)

	// Priority order for default selection (first that initializes wins).
	// WGPU is preferred when a GPU is reachable; native is the fallback.
	devicePriority = []string{NameWGPU, NameNative}
)

// Register registers a device factory under the given name, typically from
// an init function in the implementing package. Re-registering a name
// replaces the previous factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	devices[name] = factory
}

// Unregister removes a device from the registry. Useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(devices, name)
}

// Available returns the registered device names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	return names
}

// Open creates a device by name. Returns ErrDeviceNotAvailable when the
// name is not registered.
func Open(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := devices[name]
	registryMu.RUnlock()

	if !ok {
		return nil, ErrDeviceNotAvailable
	}
	return factory()
}

// OpenDefault creates the best available device in priority order.
func OpenDefault() (Device, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range devicePriority {
		factory, ok := devices[name]
		if !ok {
			continue
		}
		if dev, err := factory(); err == nil {
			return dev, nil
		}
	}

	// Fallback: first factory that initializes.
	for _, factory := range devices {
		if dev, err := factory(); err == nil {
			return dev, nil
		}
	}

	return nil, ErrDeviceNotAvailable
}
