package deferred

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/graph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/pass"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/framegraph/timeline"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Voxelize rasterizes the scene into level 0 of the voxel volumes from
// each of the three orthographic views. The views share one parameter
// buffer, so each view waits on the fence of the previous one before the
// buffer is rewritten.
type Voxelize struct {
	graph.NodeContext

	cfg     framegraph.Config
	queue   *timeline.Queue
	wait    *timeline.Semaphore
	signals [3]*timeline.Semaphore
	scene   *Scene
	active  func(*graph.Frame) bool

	views  [3]View
	raster *resource.Set
	rp     *pass.RenderPass
	sp     *pass.Subpass
	enc    *submitEncoder

	submissions int
	draws       int
}

// NewVoxelize returns the voxelize node. The first view waits on wait and
// view i signals signals[i].
func NewVoxelize(cfg framegraph.Config, queue *timeline.Queue, scene *Scene, wait *timeline.Semaphore, signals [3]*timeline.Semaphore) *Voxelize {
	return &Voxelize{
		NodeContext: graph.NewNodeContext("voxelize", resource.StageVertex, resource.StageFragment),
		cfg:         cfg,
		queue:       queue,
		wait:        wait,
		signals:     signals,
		scene:       scene,
		active:      always,
		views:       VoxelViews(cfg.WorldSize),
	}
}

// Init reads the volumes for storage and creates the cube-sized raster
// target the views render into.
func (v *Voxelize) Init() error {
	albedo, _, err := v.Read(VoxelAlbedo, resource.UsageStorage)
	if err != nil {
		return err
	}
	normal, _, err := v.Read(VoxelNormal, resource.UsageStorage)
	if err != nil {
		return err
	}
	if v.raster, _, err = v.Write(VoxelRaster, resource.KindRenderTexture, resource.UsageColorAttachment); err != nil {
		return err
	}
	v.raster.SetExtent(v.cfg.VoxelCube, v.cfg.VoxelCube, 1)
	v.raster.SetFormat(gputypes.TextureFormatRGBA8Unorm)

	v.rp = pass.New("voxelize", v.Device, v.Queue, v.Materials, 1, 1)
	if err := v.rp.AddAttachment(v.raster, pass.ClearValue{}); err != nil {
		return err
	}
	if v.sp, err = v.rp.AddSubpass(material.Voxelizer, "voxelize"); err != nil {
		return err
	}
	if err := v.sp.AddOutput(v.raster); err != nil {
		return err
	}
	v.sp.BindStorage(1, albedo, 0)
	v.sp.BindStorage(2, normal, 0)
	if err := v.sp.SetParam("world_size", material.Float(v.cfg.WorldSize)); err != nil {
		return err
	}
	if err := v.sp.SetParam("voxel_cube", material.Float(float32(v.cfg.VoxelCube))); err != nil {
		return err
	}
	v.enc, err = newSubmitEncoder(v.Device, "voxelize")
	return err
}

// Skip reports whether the volume is kept this frame.
func (v *Voxelize) Skip(f *graph.Frame) bool { return !v.active(f) }

// Encoder begins the command buffer of the first view.
func (v *Voxelize) Encoder(f *graph.Frame) (hal.CommandEncoder, error) {
	return v.enc.begin(f)
}

// Update does nothing; the views are fixed.
func (v *Voxelize) Update(*graph.Frame) error { return nil }

// Record renders and submits the three views in order.
func (v *Voxelize) Record(f *graph.Frame) error {
	if !v.rp.Created(f.Index) {
		if err := v.rp.Create(f.Index); err != nil {
			return err
		}
	}
	for i, view := range v.views {
		enc := v.enc.enc
		if i > 0 {
			var err error
			if enc, err = v.enc.begin(f); err != nil {
				return err
			}
		}
		if err := v.sp.SetParam("view_proj", material.Mat4(view.ViewProj)); err != nil {
			return err
		}
		n, err := v.rp.Record(enc, f.Index, v.scene.Objects, v.ObjectSubpasses)
		v.draws += n
		if err != nil {
			return fmt.Errorf("view %d: %w", i, err)
		}
		wait := v.wait
		if i > 0 {
			wait = v.signals[i-1]
		}
		if err := v.enc.submit(f, v.queue, wait, v.signals[i]); err != nil {
			return fmt.Errorf("view %d: %w", i, err)
		}
		v.submissions++
	}
	return nil
}

// Resize keeps the raster target at the volume resolution after the
// swapchain-sized targets were recreated.
func (v *Voxelize) Resize(_, _ uint32) error {
	v.rp.Invalidate()
	v.raster.Destroy(v.Device)
	v.raster.SetExtent(v.cfg.VoxelCube, v.cfg.VoxelCube, 1)
	return v.raster.Init(v.Device)
}

// Submissions returns the number of view submissions made so far.
func (v *Voxelize) Submissions() int { return v.submissions }

// Draws returns the number of draw calls recorded so far.
func (v *Voxelize) Draws() int { return v.draws }

// Destroy releases the render pass and encoder.
func (v *Voxelize) Destroy() {
	v.rp.Destroy()
	v.enc.destroy()
}
