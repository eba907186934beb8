package deferred

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/graph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/framegraph/timeline"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Names of the resources registered by the deferred nodes.
const (
	VoxelAlbedo = "voxel_albedo"
	VoxelNormal = "voxel_normal"
	VoxelRaster = "voxel_raster"
	GAlbedo     = "g_albedo"
	GNormal     = "g_normal"
	GPosition   = "g_position"
	GDepth      = "g_depth"
	Sky         = "sky"
	Present     = "present"
)

// Clear owns the voxel volumes and zeroes every mip level of both in one
// compute submission.
type Clear struct {
	graph.NodeContext

	cfg    framegraph.Config
	queue  *timeline.Queue
	signal *timeline.Semaphore
	active func(*graph.Frame) bool

	albedo *resource.Set
	normal *resource.Set
	pipe   *material.Pipeline
	groups []hal.BindGroup
	enc    *submitEncoder

	dispatches int
}

// NewClear returns the clear node. It submits on queue and signals signal.
func NewClear(cfg framegraph.Config, queue *timeline.Queue, signal *timeline.Semaphore) *Clear {
	return &Clear{
		NodeContext: graph.NewNodeContext("clear", resource.StageCompute, resource.StageCompute),
		cfg:         cfg,
		queue:       queue,
		signal:      signal,
		active:      always,
	}
}

func always(*graph.Frame) bool { return true }

func volume(set *resource.Set, cfg framegraph.Config, format gputypes.TextureFormat) {
	set.SetExtent(cfg.VoxelCube, cfg.VoxelCube, cfg.VoxelCube)
	set.SetMipLevels(uint32(cfg.VoxelLODs))
	set.SetFormat(format)
	set.SetFilter(gputypes.FilterModeLinear)
}

// Init registers both volumes for write, then reads them back for storage
// so that every voxelized frame starts by returning them to GENERAL.
func (c *Clear) Init() error {
	if err := framegraph.CheckWorkgroupDivisibility(c.cfg.VoxelCube, c.cfg.VoxelLODs, c.cfg.WorkgroupSize); err != nil {
		return err
	}
	var err error
	if c.albedo, _, err = c.Write(VoxelAlbedo, resource.KindTexture3D, resource.UsageStorage); err != nil {
		return err
	}
	if c.normal, _, err = c.Write(VoxelNormal, resource.KindTexture3D, resource.UsageStorage); err != nil {
		return err
	}
	volume(c.albedo, c.cfg, material.AlbedoVolumeFormat)
	volume(c.normal, c.cfg, material.NormalVolumeFormat)
	if _, _, err = c.Read(VoxelAlbedo, resource.UsageStorage); err != nil {
		return err
	}
	if _, _, err = c.Read(VoxelNormal, resource.UsageStorage); err != nil {
		return err
	}

	m, err := c.Materials.Get(material.Clear3D)
	if err != nil {
		return err
	}
	if c.pipe, err = c.Materials.ComputePipeline(m); err != nil {
		return err
	}
	c.enc, err = newSubmitEncoder(c.Device, "clear")
	return err
}

// prepare creates one bind group per mip level once the volumes exist.
func (c *Clear) prepare() error {
	if c.groups != nil {
		return nil
	}
	groups := make([]hal.BindGroup, 0, c.cfg.VoxelLODs)
	for level := range uint32(c.cfg.VoxelLODs) {
		a, err := c.albedo.Image(0).MipView(level)
		if err != nil {
			return err
		}
		n, err := c.normal.Image(0).MipView(level)
		if err != nil {
			return err
		}
		bg, err := c.pipe.BindGroup(fmt.Sprintf("clear_mip%d", level), []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: a.NativeHandle()}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: n.NativeHandle()}},
		})
		if err != nil {
			return err
		}
		groups = append(groups, bg)
	}
	c.groups = groups
	return nil
}

// Skip reports whether the volume is kept this frame.
func (c *Clear) Skip(f *graph.Frame) bool { return !c.active(f) }

// Encoder begins the clear command buffer once the previous clear
// completed.
func (c *Clear) Encoder(f *graph.Frame) (hal.CommandEncoder, error) {
	return c.enc.begin(f)
}

// Update does nothing; the clear has no per-frame state.
func (c *Clear) Update(*graph.Frame) error { return nil }

// Record dispatches the clear shader over every mip level and submits.
func (c *Clear) Record(f *graph.Frame) error {
	if err := c.prepare(); err != nil {
		return err
	}
	for level, bg := range c.groups {
		d := DispatchSize(c.cfg.VoxelCube, level, c.cfg.WorkgroupSize)
		cp := c.enc.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: fmt.Sprintf("clear_mip%d", level)})
		cp.SetPipeline(c.pipe.Compute)
		cp.SetBindGroup(0, bg, nil)
		cp.Dispatch(d, d, d)
		cp.End()
		c.dispatches++
		framegraph.Logger().Debug("deferred: clear dispatch", "level", level, "groups", d)
	}
	return c.enc.submit(f, c.queue, nil, c.signal)
}

// Dispatches returns the number of compute dispatches recorded so far.
func (c *Clear) Dispatches() int { return c.dispatches }

// Destroy releases the pipeline, bind groups and encoder.
func (c *Clear) Destroy() {
	for _, bg := range c.groups {
		c.Device.DestroyBindGroup(bg)
	}
	c.groups = nil
	c.pipe.Destroy()
	c.pipe = nil
	c.enc.destroy()
}
