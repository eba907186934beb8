package pass

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device and queue on the noop backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// countingEncoder records what passes submit to the encoder.
type countingEncoder struct {
	hal.CommandEncoder
	passes      []string
	transitions int
	draws       int
	indexed     int
	offsets     []uint32
}

func (e *countingEncoder) BeginRenderPass(d *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.passes = append(e.passes, d.Label)
	return &countingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(d), enc: e}
}

func (e *countingEncoder) TransitionTextures(b []hal.TextureBarrier) { e.transitions += len(b) }

type countingPass struct {
	hal.RenderPassEncoder
	enc *countingEncoder
}

func (p *countingPass) Draw(_, _, _, _ uint32) { p.enc.draws++ }

func (p *countingPass) DrawIndexed(_, _, _ uint32, _ int32, _ uint32) { p.enc.indexed++ }

func (p *countingPass) SetBindGroup(index uint32, _ hal.BindGroup, offsets []uint32) {
	if index == 1 {
		p.enc.offsets = append(p.enc.offsets, offsets...)
	}
}
