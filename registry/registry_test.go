package registry

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/framegraph/resource"
)

func TestRegisterWriteUnique(t *testing.T) {
	r := New()
	if _, err := r.RegisterWrite("albedo", 1, resource.KindRenderTexture, resource.UsageColorAttachment); err != nil {
		t.Fatalf("first RegisterWrite() error: %v", err)
	}
	_, err := r.RegisterWrite("albedo", 2, resource.KindRenderTexture, resource.UsageColorAttachment)
	if !errors.Is(err, ErrDuplicateWrite) {
		t.Fatalf("second RegisterWrite() = %v, want ErrDuplicateWrite", err)
	}
	if p, _ := r.Producer("albedo"); p != 1 {
		t.Errorf("Producer() = %d after duplicate, want 1", p)
	}
	if len(r.Accesses(2)) != 0 {
		t.Error("failed write recorded an access")
	}
}

func TestRegisterReadBeforeWrite(t *testing.T) {
	r := New()
	if _, err := r.RegisterRead("voxel_albedo", 3, resource.UsageSampled); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("RegisterRead() before write = %v, want ErrUnknownResource", err)
	}
	if len(r.Accesses(3)) != 0 {
		t.Error("failed read recorded an access")
	}
}

func TestRegisterReadExpectedLayout(t *testing.T) {
	r := New()
	wh, err := r.RegisterWrite("voxel_albedo", 1, resource.KindTexture3D, resource.UsageStorage)
	if err != nil {
		t.Fatal(err)
	}
	rh, err := r.RegisterRead("voxel_albedo", 2, resource.UsageSampled)
	if err != nil {
		t.Fatal(err)
	}
	if rh != wh {
		t.Errorf("RegisterRead() handle %v, want writer's %v", rh, wh)
	}

	deps := r.Dependees(2)
	if len(deps) != 1 {
		t.Fatalf("Dependees() = %d entries, want 1", len(deps))
	}
	if deps[0].Layout != resource.LayoutShaderReadOnly || deps[0].Write {
		t.Errorf("Dependees()[0] = %+v, want SHADER_READ_ONLY read", deps[0])
	}
	if len(r.Dependees(1)) != 0 {
		t.Error("writer listed as dependee of its own resource")
	}

	set, err := r.Lookup(wh)
	if err != nil {
		t.Fatal(err)
	}
	if set.Pending() != 2 {
		t.Errorf("ledger pending = %d, want 2 (write + read)", set.Pending())
	}
}

func TestAccessesRegistrationOrder(t *testing.T) {
	r := New()
	mustWrite(t, r, "a", 1, resource.KindRenderTexture, resource.UsageColorAttachment)
	mustWrite(t, r, "b", 1, resource.KindRenderTexture, resource.UsageColorAttachment)
	mustWrite(t, r, "depth", 1, resource.KindDepth, resource.UsageDepthAttachment)
	for _, name := range []string{"b", "depth", "a"} {
		usage := resource.UsageInputAttachment
		if _, err := r.RegisterRead(name, 2, usage); err != nil {
			t.Fatal(err)
		}
	}

	got := r.Accesses(2)
	want := []string{"b", "depth", "a"}
	if len(got) != len(want) {
		t.Fatalf("Accesses() = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("Accesses()[%d] = %s, want %s", i, got[i].Name, want[i])
		}
	}
	if got[1].Layout != resource.LayoutDepthStencilReadOnly {
		t.Errorf("depth input layout = %v, want DEPTH_STENCIL_READ_ONLY", got[1].Layout)
	}

	names := r.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "depth" {
		t.Errorf("Names() = %v", names)
	}
}

func TestLookupName(t *testing.T) {
	r := New()
	h := mustWrite(t, r, "x", 1, resource.KindTexture2D, resource.UsageTransferDst)
	set, got, err := r.LookupName("x")
	if err != nil || got != h || set.Name() != "x" {
		t.Errorf("LookupName() = %v, %v, %v", set, got, err)
	}
	if _, _, err := r.LookupName("y"); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("LookupName(unknown) = %v, want ErrUnknownResource", err)
	}
}

func TestRegisterLoaded(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	pal := image.NewPaletted(image.Rect(2, 2, 6, 5), color.Palette{color.Black, color.White})
	r := New()
	h, err := r.RegisterLoaded("checker", 7, pal)
	if err != nil {
		t.Fatalf("RegisterLoaded() error: %v", err)
	}
	set, err := r.Lookup(h)
	if err != nil {
		t.Fatal(err)
	}
	img := set.Image(0)
	if img.Width() != 4 || img.Height() != 3 {
		t.Errorf("extent = %dx%d, want 4x3", img.Width(), img.Height())
	}
	if err := r.InitAll(device, queue); err != nil {
		t.Fatalf("InitAll() error: %v", err)
	}
	if !set.Initialized() {
		t.Error("loaded texture not initialized")
	}
	if got := img.NativeLayout(); got != resource.LayoutShaderReadOnly {
		t.Errorf("loaded texture layout = %v, want SHADER_READ_ONLY", got)
	}
	r.Destroy(device)

	if _, err := r.RegisterLoaded("empty", 7, image.NewRGBA(image.Rectangle{})); err == nil {
		t.Error("RegisterLoaded(empty) succeeded")
	}
}

func TestResetPerFrame(t *testing.T) {
	r := New()
	h := mustWrite(t, r, "gbuffer", 1, resource.KindRenderTexture, resource.UsageColorAttachment)
	if _, err := r.RegisterRead("gbuffer", 2, resource.UsageInputAttachment); err != nil {
		t.Fatal(err)
	}
	set, _ := r.Lookup(h)

	if err := r.ResetPerFrame(0); !errors.Is(err, resource.ErrLedgerPending) {
		t.Fatalf("ResetPerFrame() with pending = %v, want ErrLedgerPending", err)
	}

	for range 2 {
		if _, err := set.PopTransition(); err != nil {
			t.Fatal(err)
		}
	}
	set.Image(0).SetNativeLayout(resource.LayoutShaderReadOnly)
	if err := r.ResetPerFrame(0); err != nil {
		t.Fatalf("ResetPerFrame() error: %v", err)
	}
	if set.Pending() != 2 {
		t.Errorf("pending after reset = %d, want 2", set.Pending())
	}
	if got := set.Image(0).NativeLayout(); got != resource.LayoutColorAttachment {
		t.Errorf("layout after reset = %v, want COLOR_ATTACHMENT", got)
	}
}

func TestResizeTargets(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r := New()
	th := mustWrite(t, r, "albedo", 1, resource.KindRenderTexture, resource.UsageColorAttachment)
	vh := mustWrite(t, r, "voxel_albedo", 1, resource.KindTexture3D, resource.UsageStorage)
	target, _ := r.Lookup(th)
	volume, _ := r.Lookup(vh)
	target.SetExtent(64, 64, 1)
	volume.SetExtent(16, 16, 16)
	if err := r.InitAll(device, queue); err != nil {
		t.Fatal(err)
	}
	defer r.Destroy(device)
	if got := volume.Image(0).NativeLayout(); got != resource.LayoutGeneral {
		t.Errorf("volume layout after InitAll() = %v, want GENERAL", got)
	}

	if err := r.ResizeTargets(device, 128, 96); err != nil {
		t.Fatalf("ResizeTargets() error: %v", err)
	}
	for _, img := range target.Images() {
		if img.Width() != 128 || img.Height() != 96 || !img.Initialized() {
			t.Errorf("%s = %dx%d init=%v, want 128x96 initialized", img.Label(), img.Width(), img.Height(), img.Initialized())
		}
	}
	if volume.Image(0).Width() != 16 {
		t.Error("ResizeTargets() resized a shared volume")
	}
}

func mustWrite(t *testing.T, r *Registry, name string, node NodeID, kind resource.Kind, usage resource.Usage) resource.Handle {
	t.Helper()
	h, err := r.RegisterWrite(name, node, kind, usage)
	if err != nil {
		t.Fatalf("RegisterWrite(%q) error: %v", name, err)
	}
	return h
}
