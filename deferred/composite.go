package deferred

import (
	"image"
	"image/color"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/graph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/pass"
	"github.com/gogpu/framegraph/resource"
)

// DefaultSky is the color shown where no geometry was rendered when the
// scene has no sky image.
var DefaultSky = color.RGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff}

// Composite lights the g-buffer with cone traces through the voxel
// volume and writes the result to the swapchain image. It records into
// the frame encoder.
type Composite struct {
	graph.NodeContext

	cfg   framegraph.Config
	scene *Scene

	present *resource.Set
	rp      *pass.RenderPass
	sp      *pass.Subpass

	draws int
}

// NewComposite returns the composite node.
func NewComposite(cfg framegraph.Config, scene *Scene) *Composite {
	return &Composite{
		NodeContext: graph.NewNodeContext("composite", resource.StageFragment, resource.StageColorOutput),
		cfg:         cfg,
		scene:       scene,
	}
}

func (c *Composite) sky() image.Image {
	if c.scene.Sky != nil {
		return c.scene.Sky
	}
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, DefaultSky)
	return img
}

func (c *Composite) Init() error {
	var gbuf [3]*resource.Set
	for i, name := range [3]string{GAlbedo, GNormal, GPosition} {
		set, _, err := c.Read(name, resource.UsageInputAttachment)
		if err != nil {
			return err
		}
		gbuf[i] = set
	}
	vol, _, err := c.Read(VoxelAlbedo, resource.UsageSampled)
	if err != nil {
		return err
	}
	if _, err := c.Registry.RegisterLoaded(Sky, c.ID, c.sky()); err != nil {
		return err
	}
	sky, _, err := c.Read(Sky, resource.UsageSampled)
	if err != nil {
		return err
	}
	if c.present, _, err = c.Write(Present, resource.KindPresent, resource.UsageColorAttachment); err != nil {
		return err
	}
	c.present.SetExtent(c.cfg.Width, c.cfg.Height, 1)

	c.rp = pass.New("composite", c.Device, c.Queue, c.Materials, 1, 1)
	if err := c.rp.AddAttachment(c.present, pass.ClearValue{}); err != nil {
		return err
	}
	if c.sp, err = c.rp.AddSubpass(material.DeferredOutput, "deferred_output"); err != nil {
		return err
	}
	if err := c.sp.AddOutput(c.present); err != nil {
		return err
	}
	for i, set := range gbuf {
		c.sp.BindTexture(uint32(i), set)
	}
	c.sp.BindTexture(3, vol)
	c.sp.BindSampler(4, vol)
	c.sp.BindTexture(6, sky)

	params := []struct {
		name string
		v    float32
	}{
		{"world_size", c.cfg.WorldSize},
		{"voxel_cube", float32(c.cfg.VoxelCube)},
		{"lods", float32(c.cfg.VoxelLODs)},
	}
	for _, p := range params {
		if err := c.sp.SetParam(p.name, material.Float(p.v)); err != nil {
			return err
		}
	}
	return nil
}

// PresentTarget returns the set the swapchain images are bound to.
func (c *Composite) PresentTarget() *resource.Set { return c.present }

func (c *Composite) Update(*graph.Frame) error { return nil }

func (c *Composite) Record(f *graph.Frame) error {
	slot := f.Index % framegraph.FramesInFlight
	if !c.rp.Created(slot) {
		if err := c.rp.Create(slot); err != nil {
			return err
		}
	}
	n, err := c.rp.Record(f.Encoder, slot, nil, nil)
	c.draws += n
	return err
}

// Resize drops the pipelines and bind groups built over the old g-buffer.
func (c *Composite) Resize(_, _ uint32) error {
	c.rp.Invalidate()
	return nil
}

// Draws returns the number of draw calls recorded so far.
func (c *Composite) Draws() int { return c.draws }

func (c *Composite) Destroy() { c.rp.Destroy() }
