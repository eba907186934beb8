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

// MipChain downsamples the voxel volumes one level at a time. Level i is
// built from level i-1 in its own submission, after level i-1 was moved
// from storage to sampled layout. When it is done every level of both
// volumes is ready for sampling.
type MipChain struct {
	graph.NodeContext

	cfg     framegraph.Config
	queue   *timeline.Queue
	wait    *timeline.Semaphore
	signals []*timeline.Semaphore
	active  func(*graph.Frame) bool

	albedo *resource.Set
	normal *resource.Set
	pipes  [2]*material.Pipeline
	groups [][2]hal.BindGroup
	encs   []*submitEncoder

	dispatches  int
	transitions int
}

// MipSubmissions returns the number of submissions a mip chain over lods
// levels makes per voxelization.
func MipSubmissions(lods int) int { return max(lods-1, 1) }

// NewMipChain returns the mip chain node. The first submission waits on
// wait; submission k signals signals[k]. len(signals) must equal
// MipSubmissions(cfg.VoxelLODs).
func NewMipChain(cfg framegraph.Config, queue *timeline.Queue, wait *timeline.Semaphore, signals []*timeline.Semaphore) *MipChain {
	return &MipChain{
		NodeContext: graph.NewNodeContext("mipchain", resource.StageCompute, resource.StageCompute),
		cfg:         cfg,
		queue:       queue,
		wait:        wait,
		signals:     signals,
		active:      always,
	}
}

// Done returns the semaphore signaled by the last submission.
func (m *MipChain) Done() *timeline.Semaphore { return m.signals[len(m.signals)-1] }

func (m *MipChain) Init() error {
	if n := MipSubmissions(m.cfg.VoxelLODs); len(m.signals) != n {
		return fmt.Errorf("mipchain: %d semaphores for %d submissions", len(m.signals), n)
	}
	var err error
	if m.albedo, _, err = m.Read(VoxelAlbedo, resource.UsageStorage); err != nil {
		return err
	}
	if m.normal, _, err = m.Read(VoxelNormal, resource.UsageStorage); err != nil {
		return err
	}
	for i, name := range [2]string{material.Downsize, material.DownsizeSnorm} {
		mat, err := m.Materials.Get(name)
		if err != nil {
			return err
		}
		if m.pipes[i], err = m.Materials.ComputePipeline(mat); err != nil {
			return err
		}
	}
	m.encs = make([]*submitEncoder, len(m.signals))
	for i := range m.encs {
		if m.encs[i], err = newSubmitEncoder(m.Device, fmt.Sprintf("mipchain[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// prepare creates the bind groups of every level once the volumes exist.
// Entry i-1 reads level i-1 and writes level i.
func (m *MipChain) prepare() error {
	if m.groups != nil {
		return nil
	}
	groups := make([][2]hal.BindGroup, 0, max(m.cfg.VoxelLODs-1, 0))
	for level := uint32(1); level < uint32(m.cfg.VoxelLODs); level++ {
		var pair [2]hal.BindGroup
		for i, set := range [2]*resource.Set{m.albedo, m.normal} {
			img := set.Image(0)
			src, err := img.MipView(level - 1)
			if err != nil {
				return err
			}
			dst, err := img.MipView(level)
			if err != nil {
				return err
			}
			pair[i], err = m.pipes[i].BindGroup(fmt.Sprintf("%s_mip%d", set.Name(), level), []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: src.NativeHandle()}},
				{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: dst.NativeHandle()}},
			})
			if err != nil {
				return err
			}
		}
		groups = append(groups, pair)
	}
	m.groups = groups
	return nil
}

// Skip reports whether the volume is kept this frame.
func (m *MipChain) Skip(f *graph.Frame) bool { return !m.active(f) }

func (m *MipChain) Encoder(f *graph.Frame) (hal.CommandEncoder, error) {
	return m.encs[0].begin(f)
}

func (m *MipChain) Update(*graph.Frame) error { return nil }

// toSampled moves one level of both volumes from storage to sampled
// layout.
func (m *MipChain) toSampled(enc hal.CommandEncoder, level uint32) {
	barriers := make([]hal.TextureBarrier, 0, 2)
	for _, set := range [2]*resource.Set{m.albedo, m.normal} {
		tex := set.Image(0).Texture()
		if tex == nil {
			continue
		}
		barriers = append(barriers, hal.TextureBarrier{
			Texture: tex,
			Range: hal.TextureRange{
				Aspect:          gputypes.TextureAspectAll,
				BaseMipLevel:    level,
				MipLevelCount:   1,
				ArrayLayerCount: 1,
			},
			Usage: hal.TextureUsageTransition{
				OldUsage: resource.LayoutGeneral.TextureUsage(),
				NewUsage: resource.LayoutShaderReadOnly.TextureUsage(),
			},
		})
	}
	enc.TransitionTextures(barriers)
	m.transitions++
}

// Record builds levels 1..LODs-1 and leaves both volumes sampled.
func (m *MipChain) Record(f *graph.Frame) error {
	if err := m.prepare(); err != nil {
		return err
	}
	last := len(m.encs) - 1
	for k, se := range m.encs {
		enc := se.enc
		if k > 0 {
			var err error
			if enc, err = se.begin(f); err != nil {
				return err
			}
		}
		if k < len(m.groups) {
			level := uint32(k + 1)
			m.toSampled(enc, level-1)
			d := DispatchSize(m.cfg.VoxelCube, int(level), m.cfg.WorkgroupSize)
			for i, bg := range m.groups[k] {
				cp := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: fmt.Sprintf("downsize_mip%d", level)})
				cp.SetPipeline(m.pipes[i].Compute)
				cp.SetBindGroup(0, bg, nil)
				cp.Dispatch(d, d, d)
				cp.End()
				m.dispatches++
			}
			framegraph.Logger().Debug("deferred: downsize", "level", level, "groups", d)
		}
		if k == last {
			m.toSampled(enc, uint32(m.cfg.VoxelLODs-1))
		}
		wait := m.wait
		if k > 0 {
			wait = m.signals[k-1]
		}
		if err := se.submit(f, m.queue, wait, m.signals[k]); err != nil {
			return err
		}
	}
	m.albedo.Image(0).SetNativeLayout(resource.LayoutShaderReadOnly)
	m.normal.Image(0).SetNativeLayout(resource.LayoutShaderReadOnly)
	return nil
}

// Dispatches returns the number of downsample dispatches recorded so far.
func (m *MipChain) Dispatches() int { return m.dispatches }

// Transitions returns the number of per-level layout transitions
// recorded so far.
func (m *MipChain) Transitions() int { return m.transitions }

func (m *MipChain) Destroy() {
	for _, pair := range m.groups {
		for _, bg := range pair {
			m.Device.DestroyBindGroup(bg)
		}
	}
	m.groups = nil
	for i, p := range m.pipes {
		p.Destroy()
		m.pipes[i] = nil
	}
	for _, e := range m.encs {
		e.destroy()
	}
	m.encs = nil
}
