package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Kind classifies a resource. It decides whether the resource is replicated
// per frame in flight, which layout it starts in and returns to, and which
// HAL usages its textures are created with.
type Kind uint8

const (
	// KindTexture2D is a persistent sampled 2-D texture, shared by all frames.
	KindTexture2D Kind = iota
	// KindTexture3D is a persistent storage volume, shared by all frames.
	KindTexture3D
	// KindRenderTexture is a per-frame color target.
	KindRenderTexture
	// KindDepth is a per-frame depth/stencil target.
	KindDepth
	// KindPresent is a per-frame swapchain image.
	KindPresent
)

var kindNames = [...]string{
	KindTexture2D:     "texture2d",
	KindTexture3D:     "texture3d",
	KindRenderTexture: "render-texture",
	KindDepth:         "depth",
	KindPresent:       "present",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Shared reports whether one image serves every frame in flight.
func (k Kind) Shared() bool {
	return k == KindTexture2D || k == KindTexture3D
}

// Transient reports whether the image returns to its original layout at
// every frame reset.
func (k Kind) Transient() bool {
	return !k.Shared()
}

// OriginalLayout is the layout an image of this kind is created in.
func (k Kind) OriginalLayout() Layout {
	switch k {
	case KindTexture2D:
		return LayoutShaderReadOnly
	case KindTexture3D:
		return LayoutGeneral
	case KindRenderTexture:
		return LayoutColorAttachment
	case KindDepth:
		return LayoutDepthStencilAttachment
	case KindPresent:
		return LayoutPresent
	}
	return LayoutUndefined
}

// defaultFormat is the format used until the owner sets one.
func (k Kind) defaultFormat() gputypes.TextureFormat {
	switch k {
	case KindDepth:
		return gputypes.TextureFormatDepth24PlusStencil8
	case KindPresent:
		return gputypes.TextureFormatBGRA8Unorm
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

func (k Kind) textureUsage() gputypes.TextureUsage {
	switch k {
	case KindTexture2D:
		return gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst
	case KindTexture3D:
		return gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding |
			gputypes.TextureUsageCopyDst
	case KindRenderTexture, KindDepth:
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	case KindPresent:
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc
	}
	return gputypes.TextureUsageNone
}

// IsDepthFormat reports whether f carries a depth aspect.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// BytesPerPixel returns the texel size of uncompressed color formats used
// by the pipeline, or 0 when unknown.
func BytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8Snorm,
		gputypes.TextureFormatBGRA8Unorm:
		return 4
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatRGBA16Unorm:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	}
	return 0
}
