package backend

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device is an open HAL device with its queue, adapter and instance.
// It implements gpucontext.DeviceProvider.
type Device struct {
	name     string
	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue
	format   gputypes.TextureFormat
}

var _ gpucontext.DeviceProvider = (*Device)(nil)

// Open opens a device on the named backend. An empty name tries every
// registered backend in priority order and returns the first that opens.
func Open(name string) (*Device, error) {
	names := candidates(name)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no backend registered", ErrBackendNotAvailable)
	}
	var errs []error
	for _, n := range names {
		d, err := openBackend(n)
		if err == nil {
			return d, nil
		}
		if name != "" {
			return nil, err
		}
		framegraph.Logger().Warn("backend: skipped", "backend", n, "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func openBackend(name string) (*Device, error) {
	b, err := Get(name)
	if err != nil {
		return nil, err
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%s: create instance: %w", name, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%s: %w", name, ErrNoAdapter)
	}
	selected := selectAdapter(adapters)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%s: open device: %w", name, err)
	}
	d := &Device{
		name:     name,
		instance: instance,
		adapter:  selected.Adapter,
		info:     selected.Info,
		device:   openDev.Device,
		queue:    openDev.Queue,
		format:   gputypes.TextureFormatBGRA8Unorm,
	}
	framegraph.Logger().Info("backend: device opened",
		"backend", name, "adapter", selected.Info.Name, "type", selected.Info.DeviceType.String())
	return d, nil
}

// selectAdapter prefers hardware adapters over software and unknown ones.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU:
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// Name returns the backend name the device was opened on.
func (d *Device) Name() string { return d.name }

// HAL returns the HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// Instance returns the HAL instance, for surface creation.
func (d *Device) Instance() hal.Instance { return d.instance }

// Device returns the hal.Device.
func (d *Device) Device() gpucontext.Device { return d.device }

// Queue returns the hal.Queue.
func (d *Device) Queue() gpucontext.Queue { return d.queue }

// Adapter returns the hal.Adapter.
func (d *Device) Adapter() gpucontext.Adapter { return d.adapter }

// SurfaceFormat returns the format swapchain images are created with.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.format }

// SetSurfaceFormat overrides the swapchain format, typically with one
// reported by hal.Adapter.SurfaceCapabilities.
func (d *Device) SetSurfaceFormat(f gputypes.TextureFormat) { d.format = f }

// AdapterInfo returns the adapter name and type.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: d.info.Name, Type: adapterType(d.info.DeviceType)}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterTypeUnknown
}

// WaitIdle blocks until the queue has finished every submission.
func (d *Device) WaitIdle() error {
	if d.device == nil {
		return ErrClosed
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("backend: wait idle: %w", err)
	}
	return nil
}

// Close releases the device, adapter and instance. Close is idempotent.
func (d *Device) Close() {
	if d.device == nil {
		return
	}
	d.device.Destroy()
	d.adapter.Destroy()
	d.instance.Destroy()
	d.device = nil
	d.queue = nil
	framegraph.Logger().Info("backend: device closed", "backend", d.name)
}
