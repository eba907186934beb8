package deferred

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/graph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/recorder"
	"github.com/gogpu/framegraph/timeline"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device is an open HAL device. *backend.Device implements it.
type Device interface {
	HAL() (hal.Device, hal.Queue)
}

// Stats counts the work done by a scheduler.
type Stats struct {
	Frames        uint64
	Voxelizations uint64
	// Submissions is the index of the last submission on the device queue.
	Submissions uint64
	Draws         int
	Dispatches    int
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	swapchain recorder.Swapchain
	timeout   time.Duration
}

// WithSwapchain presents from sc instead of an offscreen swapchain of the
// configured size.
func WithSwapchain(sc recorder.Swapchain) Option {
	return func(o *options) {
		o.swapchain = sc
	}
}

// WithFenceTimeout bounds the wait for a frame slot.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Scheduler runs the deferred VXGI frame graph.
type Scheduler struct {
	cfg    framegraph.Config
	device hal.Device

	store    *material.Store
	graph    *graph.Graph
	graphics *timeline.Queue
	compute  *timeline.Queue
	rec      *recorder.Recorder

	clear     *Clear
	voxelize  *Voxelize
	mipchain  *MipChain
	gbuffer   *GBuffer
	composite *Composite

	voxelized bool
	stats     Stats
	destroyed bool
}

// New validates cfg, builds the node tree over scene and initializes
// every resource.
func New(dev Device, cfg framegraph.Config, scene *Scene, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scene == nil {
		return nil, ErrNoScene
	}
	o := options{timeout: recorder.DefaultFenceTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	compile, err := material.CompilerFor(cfg.ShaderMode)
	if err != nil {
		return nil, err
	}
	device, queue := dev.HAL()

	s := &Scheduler{
		cfg:      cfg,
		device:   device,
		store:    material.NewStore(device, material.WithCompiler(compile)),
		graphics: timeline.NewQueue("graphics", queue),
		compute:  timeline.NewQueue("compute", queue),
	}
	if err := s.store.RegisterDefaults(); err != nil {
		return nil, err
	}
	s.graph = graph.New(device, queue, s.store)

	cleared := timeline.NewSemaphore("cleared")
	var views [3]*timeline.Semaphore
	for i := range views {
		views[i] = timeline.NewSemaphore(fmt.Sprintf("voxelized[%d]", i))
	}
	mips := make([]*timeline.Semaphore, MipSubmissions(cfg.VoxelLODs))
	for i := range mips {
		mips[i] = timeline.NewSemaphore(fmt.Sprintf("mip[%d]", i))
	}
	var gbufferDone [framegraph.FramesInFlight]*timeline.Semaphore
	for i := range gbufferDone {
		gbufferDone[i] = timeline.NewSemaphore(fmt.Sprintf("gbuffer-done[%d]", i))
	}

	active := func(*graph.Frame) bool { return s.voxelized }
	s.clear = NewClear(cfg, s.compute, cleared)
	s.clear.active = active
	s.voxelize = NewVoxelize(cfg, s.graphics, scene, cleared, views)
	s.voxelize.active = active
	s.mipchain = NewMipChain(cfg, s.compute, views[2], mips)
	s.mipchain.active = active
	s.gbuffer = NewGBuffer(cfg, s.graphics, scene, gbufferDone)
	s.composite = NewComposite(cfg, scene)

	if err := s.build(); err != nil {
		s.graph.Destroy()
		s.store.Destroy()
		return nil, err
	}

	sc := o.swapchain
	if sc == nil {
		format := gputypes.TextureFormatBGRA8Unorm
		if fp, ok := dev.(interface{ SurfaceFormat() gputypes.TextureFormat }); ok && fp.SurfaceFormat() != gputypes.TextureFormatUndefined {
			format = fp.SurfaceFormat()
		}
		window := gpucontext.NullWindowProvider{W: int(cfg.Width), H: int(cfg.Height)}
		off, err := recorder.NewOffscreenSwapchain(device, window, format)
		if err != nil {
			s.graph.Destroy()
			s.store.Destroy()
			return nil, err
		}
		sc = off
	}
	rec, err := recorder.New(device, s.graphics, sc,
		recorder.WithPresentTarget(s.composite.PresentTarget()),
		recorder.WithRecreate(s.graph.Recreate),
		recorder.WithFenceTimeout(o.timeout),
	)
	if err != nil {
		sc.Destroy()
		s.graph.Destroy()
		s.store.Destroy()
		return nil, err
	}
	s.rec = rec
	framegraph.Logger().Info("deferred: scheduler ready",
		"width", cfg.Width, "height", cfg.Height,
		"voxel_cube", cfg.VoxelCube, "lods", cfg.VoxelLODs,
		"interval", cfg.VoxelizeInterval, "objects", len(scene.Objects))
	return s, nil
}

// build links the nodes and initializes the graph. The composite is the
// only root; the g-buffer and the voxel chain are its children, so both
// are recorded before it.
func (s *Scheduler) build() error {
	if err := s.voxelize.AddChild(s.clear); err != nil {
		return err
	}
	if err := s.mipchain.AddChild(s.voxelize); err != nil {
		return err
	}
	if err := s.composite.AddChild(s.mipchain); err != nil {
		return err
	}
	if err := s.composite.AddChild(s.gbuffer); err != nil {
		return err
	}
	if err := s.graph.AddRoot(s.composite); err != nil {
		return err
	}
	return s.graph.Init()
}

// Voxelizes reports whether the frame displayed after count earlier
// frames rebuilds the voxel volume.
func (s *Scheduler) Voxelizes(count uint64) bool {
	return count%uint64(s.cfg.VoxelizeInterval) == 0
}

// Frame records, submits and presents one frame.
func (s *Scheduler) Frame(ctx context.Context) error {
	if s.destroyed {
		return ErrDestroyed
	}
	f, err := s.rec.Begin(ctx)
	if err != nil {
		return err
	}
	s.voxelized = s.Voxelizes(f.Count)
	if err := s.graph.Update(f); err != nil {
		return errors.Join(err, s.abort())
	}
	if err := s.graph.Record(f); err != nil {
		return errors.Join(err, s.abort())
	}
	if _, err := s.rec.End(); err != nil {
		return err
	}
	wait := []*timeline.Semaphore{s.gbuffer.signals[f.Index]}
	if s.voxelized {
		wait = append(wait, s.mipchain.Done())
	}
	if err := s.rec.Submit(ctx, wait...); err != nil {
		return err
	}
	if err := s.rec.Present(); err != nil {
		return err
	}

	s.stats.Frames++
	if s.voxelized {
		s.stats.Voxelizations++
	}
	framegraph.Logger().Debug("deferred: frame", "count", f.Count, "slot", f.Index, "voxelized", s.voxelized)
	return nil
}

// abort ends a frame whose recording failed so that the recorder can
// begin the next one.
func (s *Scheduler) abort() error {
	_, err := s.rec.End()
	return err
}

// Graph returns the underlying frame graph.
func (s *Scheduler) Graph() *graph.Graph { return s.graph }

// Materials returns the material store.
func (s *Scheduler) Materials() *material.Store { return s.store }

// Stats returns work counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Submissions = max(s.graphics.Last(), s.compute.Last())
	st.Draws = s.voxelize.Draws() + s.gbuffer.Draws() + s.composite.Draws()
	st.Dispatches = s.clear.Dispatches() + s.mipchain.Dispatches()
	return st
}

// Destroy waits for the GPU and releases everything New created. It is
// safe to call more than once.
func (s *Scheduler) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.rec.Destroy(context.Background())
	if err := s.compute.WaitIdle(context.Background()); err != nil {
		framegraph.Logger().Warn("deferred: destroy without idle GPU", "err", err)
	}
	s.graph.Destroy()
	s.store.Destroy()
}
