package pass

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type fixture struct {
	device hal.Device
	queue  hal.Queue
	store  *material.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	store := material.NewStore(device, material.WithCompiler(material.PassWGSL))
	if err := store.RegisterDefaults(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		store.Destroy()
		cleanup()
	})
	return &fixture{device: device, queue: queue, store: store}
}

func (f *fixture) target(t *testing.T, name string, kind resource.Kind, w, h uint32) *resource.Set {
	t.Helper()
	s := resource.NewSet(name, kind)
	s.SetExtent(w, h, 1)
	if err := s.Init(f.device); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Destroy(f.device) })
	return s
}

func (f *fixture) encoder(t *testing.T) hal.CommandEncoder {
	t.Helper()
	enc, err := f.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: t.Name()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(enc.Destroy)
	return enc
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func mustAttach(t *testing.T, p *RenderPass, s *resource.Set, clear ClearValue) {
	t.Helper()
	if err := p.AddAttachment(s, clear); err != nil {
		t.Fatalf("AddAttachment(%s): %v", s.Name(), err)
	}
}

func mustSubpass(t *testing.T, p *RenderPass, materialName, name string) *Subpass {
	t.Helper()
	sp, err := p.AddSubpass(materialName, name)
	if err != nil {
		t.Fatalf("AddSubpass(%s): %v", name, err)
	}
	return sp
}

func TestAttachmentGroup(t *testing.T) {
	g := NewAttachmentGroup(2)
	color := resource.NewSet("color", resource.KindRenderTexture)
	depth := resource.NewSet("depth", resource.KindDepth)
	if err := g.Add(depth, DefaultDepthClear); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(color, ClearValue{}); !errors.Is(err, ErrDepthNotLast) {
		t.Errorf("color after depth = %v, want ErrDepthNotLast", err)
	}
	if err := g.Add(resource.NewSet("depth2", resource.KindDepth), DefaultDepthClear); !errors.Is(err, ErrDepthNotLast) {
		t.Errorf("second depth = %v, want ErrDepthNotLast", err)
	}

	g = NewAttachmentGroup(1)
	if err := g.Add(color, ClearValue{}); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(depth, DefaultDepthClear); !errors.Is(err, framegraph.ErrCapacityExceeded) {
		t.Errorf("past capacity = %v, want ErrCapacityExceeded", err)
	}
	if g.Depth() != nil || g.Index(color) != 0 || g.Index(depth) != -1 {
		t.Error("group bookkeeping wrong")
	}
}

func TestCreateRequiresCompleteGroup(t *testing.T) {
	f := newFixture(t)
	p := New("gbuffer", f.device, f.queue, f.store, 4, 1)
	t.Cleanup(p.Destroy)
	sets := []*resource.Set{
		f.target(t, "g_albedo", resource.KindRenderTexture, 64, 32),
		f.target(t, "g_normal", resource.KindRenderTexture, 64, 32),
		f.target(t, "g_position", resource.KindRenderTexture, 64, 32),
		f.target(t, "g_depth", resource.KindDepth, 64, 32),
	}
	sp, err := p.AddSubpass(material.MRT, "mrt")
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range sets {
		if err := p.Create(0); !errors.Is(err, ErrIncomplete) {
			t.Fatalf("Create with %d of 4 attachments = %v, want ErrIncomplete", i, err)
		}
		clear := ClearValue{}
		if s.Kind() == resource.KindDepth {
			clear = DefaultDepthClear
		}
		if err := p.AddAttachment(s, clear); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Create(0); !errors.Is(err, ErrEmptySubpass) {
		t.Fatalf("Create with empty subpass = %v, want ErrEmptySubpass", err)
	}
	for _, s := range sets[:3] {
		if err := sp.AddOutput(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Create(0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fb := p.Framebuffer(0)
	if len(fb) != 4 || fb[3] != sets[3].Image(0).View() {
		t.Errorf("framebuffer does not end with depth")
	}
	if p.Created(1) {
		t.Error("frame 1 created without Create(1)")
	}
}

func TestCreateDimensionMismatch(t *testing.T) {
	f := newFixture(t)
	p := New("gbuffer", f.device, f.queue, f.store, 2, 1)
	mustAttach(t, p, f.target(t, "color", resource.KindRenderTexture, 64, 32), ClearValue{})
	mustAttach(t, p, f.target(t, "depth", resource.KindDepth, 64, 16), DefaultDepthClear)
	if err := p.Create(0); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Create = %v, want ErrDimensionMismatch", err)
	}

	p = New("lazy", f.device, f.queue, f.store, 1, 1)
	mustAttach(t, p, resource.NewSet("uninit", resource.KindRenderTexture), ClearValue{})
	if err := p.Create(0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Create = %v, want ErrNotInitialized", err)
	}
}

func TestAddSubpassCapacity(t *testing.T) {
	f := newFixture(t)
	p := New("composite", f.device, f.queue, f.store, 1, 1)
	if _, err := p.AddSubpass(material.DeferredOutput, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AddSubpass(material.DeferredOutput, "b"); !errors.Is(err, framegraph.ErrCapacityExceeded) {
		t.Errorf("AddSubpass past capacity = %v", err)
	}
	if _, err := New("x", f.device, f.queue, f.store, 1, 1).AddSubpass("missing", "m"); !errors.Is(err, material.ErrUnknownMaterial) {
		t.Errorf("AddSubpass unknown material = %v", err)
	}
}

func TestDependencies(t *testing.T) {
	deps := dependencies(3)
	want := []string{
		"external->0 bottom->color-output memory-read->color-read|color-write",
		"0->1 color-output->fragment color-write->shader-read",
		"1->2 color-output->fragment color-write->shader-read",
		"2->external color-output->bottom color-read|color-write->memory-read",
	}
	if len(deps) != len(want) {
		t.Fatalf("got %d dependencies", len(deps))
	}
	for i, d := range deps {
		if d.String() != want[i] {
			t.Errorf("dependency %d = %q, want %q", i, d.String(), want[i])
		}
		if !d.ByRegion {
			t.Errorf("dependency %d not by region", i)
		}
	}
	if dependencies(0) != nil {
		t.Error("dependencies(0) not empty")
	}
}

func TestIgnoreObject(t *testing.T) {
	sp := &Subpass{name: "s"}
	if err := sp.IgnoreObject(MaxObjects); !errors.Is(err, framegraph.ErrCapacityExceeded) {
		t.Errorf("IgnoreObject(MaxObjects) = %v", err)
	}
	if err := sp.IgnoreObject(MaxObjects - 1); err != nil {
		t.Fatal(err)
	}
	if !sp.Ignored(MaxObjects-1) || sp.Ignored(0) {
		t.Error("ignore bitset wrong")
	}
}

func TestRecordDraws(t *testing.T) {
	f := newFixture(t)
	p := New("gbuffer", f.device, f.queue, f.store, 4, 1)
	t.Cleanup(p.Destroy)
	var colors []*resource.Set
	for _, name := range []string{"g_albedo", "g_normal", "g_position"} {
		s := f.target(t, name, resource.KindRenderTexture, 32, 32)
		colors = append(colors, s)
		mustAttach(t, p, s, ClearValue{})
	}
	mustAttach(t, p, f.target(t, "g_depth", resource.KindDepth, 32, 32), DefaultDepthClear)
	sp := mustSubpass(t, p, material.MRT, "mrt")
	for _, s := range colors {
		must(t, sp.AddOutput(s))
	}
	if _, err := p.Record(nil, 0, nil, nil); !errors.Is(err, ErrNotCreated) {
		t.Fatalf("Record before Create = %v", err)
	}
	if err := p.Create(0); err != nil {
		t.Fatal(err)
	}

	vb, err := f.device.CreateBuffer(&hal.BufferDescriptor{Size: 40 * 3, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatal(err)
	}
	ib, err := f.device.CreateBuffer(&hal.BufferDescriptor{Size: 6, Usage: gputypes.BufferUsageIndex})
	if err != nil {
		t.Fatal(err)
	}
	mesh := Mesh{Vertices: vb, Indices: ib, IndexFormat: gputypes.IndexFormatUint16, IndexCount: 3}
	objects := []Object{
		&StaticObject{Model: material.Identity(), Parts: []Mesh{mesh, mesh}},
		&StaticObject{Model: material.Identity(), Parts: []Mesh{mesh}},
		&StaticObject{Model: material.Identity(), Parts: []Mesh{mesh}},
	}
	must(t, sp.IgnoreObject(2))

	raw := f.encoder(t)
	enc := &countingEncoder{CommandEncoder: raw}
	draws, err := p.Record(enc, 0, objects, nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if draws != 3 || enc.indexed != 3 || enc.draws != 0 {
		t.Errorf("draws = %d, indexed = %d, full-screen = %d", draws, enc.indexed, enc.draws)
	}
	if len(enc.offsets) != 2 || enc.offsets[1] != material.DynamicStride {
		t.Errorf("dynamic offsets = %v", enc.offsets)
	}

	enc = &countingEncoder{CommandEncoder: raw}
	mask := func(obj int) uint32 {
		if obj == 0 {
			return 0
		}
		return 1
	}
	if draws, err := p.Record(enc, 0, objects, mask); err != nil || draws != 1 {
		t.Errorf("masked draws = %d, %v, want 1", draws, err)
	}
	if colors[0].Image(0).NativeLayout() != resource.LayoutColorAttachment {
		t.Errorf("output layout = %v", colors[0].Image(0).NativeLayout())
	}
}

func TestRecordSubpassChain(t *testing.T) {
	f := newFixture(t)
	p := New("deferred", f.device, f.queue, f.store, 5, 2)
	t.Cleanup(p.Destroy)
	var gbuf []*resource.Set
	for _, name := range []string{"g_albedo", "g_normal", "g_position"} {
		s := f.target(t, name, resource.KindRenderTexture, 16, 16)
		gbuf = append(gbuf, s)
		mustAttach(t, p, s, ClearValue{})
	}
	out := f.target(t, "output", resource.KindRenderTexture, 16, 16)
	mustAttach(t, p, out, ClearValue{Color: gputypes.Color{A: 1}})
	mustAttach(t, p, f.target(t, "depth", resource.KindDepth, 16, 16), DefaultDepthClear)

	volume := resource.NewSet("voxel_albedo", resource.KindTexture3D)
	volume.SetExtent(8, 8, 8)
	volume.SetMipLevels(4)
	if err := volume.Init(f.device); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { volume.Destroy(f.device) })

	mrt := mustSubpass(t, p, material.MRT, "mrt")
	for _, s := range gbuf {
		must(t, mrt.AddOutput(s))
	}
	composite := mustSubpass(t, p, material.DeferredOutput, "composite")
	for _, s := range gbuf {
		must(t, composite.AddInput(s))
	}
	must(t, composite.AddOutput(out))
	composite.BindTexture(3, volume)
	if err := composite.SetParam("lods", material.Float(4)); err != nil {
		t.Fatal(err)
	}
	if err := p.Create(1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(p.Dependencies()) != 3 {
		t.Errorf("dependencies = %v", p.Dependencies())
	}

	raw := f.encoder(t)
	enc := &countingEncoder{CommandEncoder: raw}
	if _, err := p.Record(enc, 1, nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(enc.passes) != 2 || enc.passes[0] != "mrt" || enc.passes[1] != "composite" {
		t.Errorf("passes = %v", enc.passes)
	}
	if enc.transitions != 3 || enc.draws != 2 {
		t.Errorf("transitions = %d, full-screen draws = %d", enc.transitions, enc.draws)
	}
	if gbuf[0].Image(1).NativeLayout() != resource.LayoutShaderReadOnly {
		t.Errorf("g-buffer layout after chain = %v", gbuf[0].Image(1).NativeLayout())
	}
}
