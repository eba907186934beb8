package deferred

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/framegraph"
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

// halDevice adapts a raw device and queue to Device.
type halDevice struct {
	device hal.Device
	queue  hal.Queue
}

func (d halDevice) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// testConfig is a small volume that keeps noop runs fast.
func testConfig() framegraph.Config {
	cfg := framegraph.DefaultConfig()
	cfg.Width, cfg.Height = 64, 48
	cfg.VoxelCube = 32
	cfg.VoxelLODs = 3
	cfg.WorkgroupSize = 8
	cfg.ShaderMode = framegraph.ShaderModeWGSL
	cfg.VoxelizeInterval = 1
	return cfg
}

// newTestScheduler builds a scheduler over two cubes on the noop backend.
func newTestScheduler(t *testing.T, cfg framegraph.Config) (*Scheduler, *Scene) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	return newTestSchedulerOn(t, cfg, device, queue, cleanup)
}

// newTestSchedulerOn builds the two cube scheduler over device and queue.
// cleanup runs when the test ends or New fails.
func newTestSchedulerOn(t *testing.T, cfg framegraph.Config, device hal.Device, queue hal.Queue, cleanup func()) (*Scheduler, *Scene) {
	t.Helper()
	camera := Ortho(-6, 6, -6, 6, 0.1, 20).Mul4(mgl32.LookAtV(mgl32.Vec3{0, 2, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))
	scene := &Scene{ViewProj: ToMat4(camera)}
	for i, c := range []mgl32.Vec3{{-2, 0, 0}, {2, 0, 0}} {
		cube, err := NewCube(device, queue, fmt.Sprintf("cube%d", i), c, 1.5, [4]float32{0.8, 0.3, 0.2, 1})
		if err != nil {
			scene.Destroy(device)
			cleanup()
			t.Fatal(err)
		}
		scene.Objects = append(scene.Objects, cube)
	}
	s, err := New(halDevice{device, queue}, cfg, scene)
	if err != nil {
		scene.Destroy(device)
		cleanup()
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		s.Destroy()
		scene.Destroy(device)
		cleanup()
	})
	return s, scene
}

func runFrames(t *testing.T, s *Scheduler, n int) {
	t.Helper()
	for i := range n {
		if err := s.Frame(context.Background()); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}
