//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framefx/device"
)

// ErrNoHALAccess is returned when a host provider does not expose the
// underlying HAL device and queue.
var ErrNoHALAccess = errors.New("wgpu: provider does not expose HAL types")

// HostHandle is the integration point for host applications that own the
// GPU context. The post pipeline receives the device from the host, it
// does not create one; this shares GPU resources between the pipeline and
// the host's own rendering.
//
// HostHandle is an alias for gpucontext.DeviceProvider so any
// gpucontext-compatible host (e.g. a gogpu.App) plugs in directly.
type HostHandle = gpucontext.DeviceProvider

// halFromHost extracts the HAL device and queue from a host provider.
// Providers that also implement HalDevice() any and HalQueue() any grant
// direct HAL access; others cannot drive the compute pipelines.
func halFromHost(h HostHandle) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := h.(halProvider)
	if !ok {
		return nil, nil, ErrNoHALAccess
	}
	halDev, ok := hp.HalDevice().(hal.Device)
	if !ok || halDev == nil {
		return nil, nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device: %w", ErrNoHALAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue: %w", ErrNoHALAccess)
	}
	return halDev, queue, nil
}

// RegisterHost installs a host application's shared GPU context and
// registers the wgpu device in the device registry. The host must keep
// the underlying device alive for the registry's lifetime; the pipeline
// never destroys host-owned resources.
func RegisterHost(h HostHandle) error {
	if h == nil {
		return device.ErrDeviceNotAvailable
	}
	if _, _, err := halFromHost(h); err != nil {
		return err
	}
	RegisterProvider(func() (hal.Device, hal.Queue, error) {
		return halFromHost(h)
	})
	return nil
}
