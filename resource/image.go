package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Image is one GPU image of a resource: a texture with its default view,
// per-mip views for storage writes and a sampler. It also carries the
// layout the image is currently in from the GPU's point of view.
//
// An Image is dimensioned and formatted by its owner, initialized once and
// destroyed once. Swapchain images are bound with Bind instead of Init and
// are never destroyed here.
type Image struct {
	label  string
	kind   Kind
	width  uint32
	height uint32
	depth  uint32
	mips   uint32
	format gputypes.TextureFormat
	filter gputypes.FilterMode

	native   Layout
	original Layout

	texture  hal.Texture
	view     hal.TextureView
	mipViews []hal.TextureView
	sampler  hal.Sampler
	external bool

	pixels []byte
}

// NewImage returns an unsized image of the given kind.
func NewImage(label string, kind Kind) *Image {
	return &Image{
		label:    label,
		kind:     kind,
		depth:    1,
		mips:     1,
		format:   kind.defaultFormat(),
		filter:   gputypes.FilterModeLinear,
		native:   kind.OriginalLayout(),
		original: kind.OriginalLayout(),
	}
}

// Label returns the debug label.
func (img *Image) Label() string { return img.label }

// Kind returns the resource kind.
func (img *Image) Kind() Kind { return img.kind }

// Width returns the image width in texels.
func (img *Image) Width() uint32 { return img.width }

// Height returns the image height in texels.
func (img *Image) Height() uint32 { return img.height }

// Depth returns the depth of a 3-D image, 1 otherwise.
func (img *Image) Depth() uint32 { return img.depth }

// MipLevels returns the mip level count.
func (img *Image) MipLevels() uint32 { return img.mips }

// Format returns the pixel format.
func (img *Image) Format() gputypes.TextureFormat { return img.format }

// Filter returns the sampler filter mode.
func (img *Image) Filter() gputypes.FilterMode { return img.filter }

// SetExtent sets the image dimensions. Depth is clamped to at least 1.
func (img *Image) SetExtent(w, h, d uint32) {
	img.width, img.height = w, h
	img.depth = max(d, 1)
}

// SetMipLevels sets the mip level count, clamped to at least 1.
func (img *Image) SetMipLevels(n uint32) { img.mips = max(n, 1) }

// SetFormat sets the pixel format.
func (img *Image) SetFormat(f gputypes.TextureFormat) { img.format = f }

// SetFilter sets the sampler filter mode.
func (img *Image) SetFilter(f gputypes.FilterMode) { img.filter = f }

// SetPixels stores tightly packed texels uploaded by Upload.
func (img *Image) SetPixels(data []byte) { img.pixels = data }

// LayoutFor returns the layout this image needs for usage u.
func (img *Image) LayoutFor(u Usage) Layout { return LayoutFor(img.kind, u) }

// NativeLayout returns the layout the image is currently in.
func (img *Image) NativeLayout() Layout { return img.native }

// SetNativeLayout records a layout change performed on the GPU.
func (img *Image) SetNativeLayout(l Layout) { img.native = l }

// OriginalLayout returns the layout the image was created in.
func (img *Image) OriginalLayout() Layout { return img.original }

// ResetLayout returns the image to its original layout.
func (img *Image) ResetLayout() { img.native = img.original }

// Initialized reports whether the GPU objects exist.
func (img *Image) Initialized() bool { return img.texture != nil }

// Texture returns the HAL texture, nil before Init.
func (img *Image) Texture() hal.Texture { return img.texture }

// View returns the view over every mip level.
func (img *Image) View() hal.TextureView { return img.view }

// Sampler returns the sampler, nil for swapchain images.
func (img *Image) Sampler() hal.Sampler { return img.sampler }

// MipView returns a view over a single mip level. Images with one level
// return the default view.
func (img *Image) MipView(level uint32) (hal.TextureView, error) {
	if !img.Initialized() {
		return nil, fmt.Errorf("%s: %w", img.label, ErrNotInitialized)
	}
	if len(img.mipViews) == 0 {
		if level != 0 {
			return nil, fmt.Errorf("%s: mip %d of %d", img.label, level, img.mips)
		}
		return img.view, nil
	}
	if level >= uint32(len(img.mipViews)) {
		return nil, fmt.Errorf("%s: mip %d of %d", img.label, level, img.mips)
	}
	return img.mipViews[level], nil
}

// Extent returns the size of mip level 0.
func (img *Image) Extent() hal.Extent3D {
	return hal.Extent3D{Width: img.width, Height: img.height, DepthOrArrayLayers: img.depth}
}

func (img *Image) dimension() (gputypes.TextureDimension, gputypes.TextureViewDimension) {
	if img.kind == KindTexture3D {
		return gputypes.TextureDimension3D, gputypes.TextureViewDimension3D
	}
	return gputypes.TextureDimension2D, gputypes.TextureViewDimension2D
}

// Init creates the texture, its views and its sampler.
func (img *Image) Init(device hal.Device) error {
	if img.Initialized() {
		return fmt.Errorf("%s: %w", img.label, ErrAlreadyInitialized)
	}
	if img.width == 0 || img.height == 0 {
		return fmt.Errorf("%s: %w: %dx%dx%d", img.label, ErrInvalidExtent, img.width, img.height, img.depth)
	}
	dim, viewDim := img.dimension()

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         img.label,
		Size:          img.Extent(),
		MipLevelCount: img.mips,
		SampleCount:   1,
		Dimension:     dim,
		Format:        img.format,
		Usage:         img.kind.textureUsage(),
	})
	if err != nil {
		return fmt.Errorf("create texture %s: %w", img.label, err)
	}
	img.texture = tex

	aspect := gputypes.TextureAspectAll
	if IsDepthFormat(img.format) {
		aspect = gputypes.TextureAspectDepthOnly
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         img.label + "_view",
		Format:        img.format,
		Dimension:     viewDim,
		Aspect:        aspect,
		MipLevelCount: img.mips,
	})
	if err != nil {
		img.Destroy(device)
		return fmt.Errorf("create texture view %s: %w", img.label, err)
	}
	img.view = view

	if img.mips > 1 {
		img.mipViews = make([]hal.TextureView, 0, img.mips)
		for level := range img.mips {
			mv, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
				Label:         fmt.Sprintf("%s_mip%d", img.label, level),
				Format:        img.format,
				Dimension:     viewDim,
				Aspect:        aspect,
				BaseMipLevel:  level,
				MipLevelCount: 1,
			})
			if err != nil {
				img.Destroy(device)
				return fmt.Errorf("create mip view %s/%d: %w", img.label, level, err)
			}
			img.mipViews = append(img.mipViews, mv)
		}
	}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        img.label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    img.filter,
		MinFilter:    img.filter,
		MipmapFilter: img.filter,
		LodMaxClamp:  float32(img.mips),
	})
	if err != nil {
		img.Destroy(device)
		return fmt.Errorf("create sampler %s: %w", img.label, err)
	}
	img.sampler = sampler
	img.native = img.original
	if img.kind.Shared() {
		// Shared images leave UNDEFINED through Upload or Prepare.
		img.native = LayoutUndefined
	}
	return nil
}

// Prepare records the transition of a new image out of UNDEFINED into its
// original layout and reports whether it recorded one.
func (img *Image) Prepare(enc hal.CommandEncoder) bool {
	if img.native != LayoutUndefined || img.texture == nil {
		return false
	}
	aspect := gputypes.TextureAspectAll
	if IsDepthFormat(img.format) {
		aspect = gputypes.TextureAspectDepthOnly
	}
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.texture,
		Range:   hal.TextureRange{Aspect: aspect, MipLevelCount: img.mips, ArrayLayerCount: 1},
		Usage: hal.TextureUsageTransition{
			OldUsage: LayoutUndefined.TextureUsage(),
			NewUsage: img.original.TextureUsage(),
		},
	}})
	img.native = img.original
	return true
}

// Bind attaches a texture owned by someone else, typically a swapchain.
// Bound images are released with Unbind, never destroyed.
func (img *Image) Bind(tex hal.Texture, view hal.TextureView) {
	img.texture = tex
	img.view = view
	img.external = true
}

// Unbind detaches a texture attached with Bind.
func (img *Image) Unbind() {
	if !img.external {
		return
	}
	img.texture = nil
	img.view = nil
	img.external = false
}

// Upload writes the pixels set with SetPixels to mip level 0.
// Images without pixels are left untouched.
func (img *Image) Upload(queue hal.Queue) error {
	if len(img.pixels) == 0 {
		return nil
	}
	if !img.Initialized() {
		return fmt.Errorf("%s: %w", img.label, ErrNotInitialized)
	}
	bpp := BytesPerPixel(img.format)
	if bpp == 0 {
		return fmt.Errorf("upload %s: unsupported format %v", img.label, img.format)
	}
	want := int(img.width * img.height * img.depth * bpp)
	if len(img.pixels) != want {
		return fmt.Errorf("upload %s: %d bytes, want %d", img.label, len(img.pixels), want)
	}
	size := img.Extent()
	err := queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: img.texture},
		img.pixels,
		&hal.ImageDataLayout{BytesPerRow: img.width * bpp, RowsPerImage: img.height},
		&size,
	)
	if err != nil {
		return fmt.Errorf("upload %s: %w", img.label, err)
	}
	// The HAL leaves uploaded textures ready for sampling.
	img.native = LayoutShaderReadOnly
	return nil
}

// Destroy releases GPU objects created by Init. It is a no-op for bound
// images and safe to call more than once.
func (img *Image) Destroy(device hal.Device) {
	if img.external {
		img.Unbind()
		return
	}
	if img.sampler != nil {
		device.DestroySampler(img.sampler)
		img.sampler = nil
	}
	for _, mv := range img.mipViews {
		device.DestroyTextureView(mv)
	}
	img.mipViews = nil
	if img.view != nil {
		device.DestroyTextureView(img.view)
		img.view = nil
	}
	if img.texture != nil {
		device.DestroyTexture(img.texture)
		img.texture = nil
	}
}
