package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Layout is the GPU-visible memory layout an image is in.
type Layout uint8

const (
	LayoutUndefined Layout = iota
	LayoutPreinitialized
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

var layoutNames = [...]string{
	LayoutUndefined:              "UNDEFINED",
	LayoutPreinitialized:         "PREINITIALIZED",
	LayoutGeneral:                "GENERAL",
	LayoutColorAttachment:        "COLOR_ATTACHMENT",
	LayoutDepthStencilAttachment: "DEPTH_STENCIL_ATTACHMENT",
	LayoutDepthStencilReadOnly:   "DEPTH_STENCIL_READ_ONLY",
	LayoutShaderReadOnly:         "SHADER_READ_ONLY",
	LayoutTransferSrc:            "TRANSFER_SRC",
	LayoutTransferDst:            "TRANSFER_DST",
	LayoutPresent:                "PRESENT",
}

// String returns the layout name.
func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("Layout(%d)", l)
}

// Transferable reports whether an image may be transitioned into l.
// Undefined and Preinitialized are only valid as a starting point.
func (l Layout) Transferable() bool {
	return l != LayoutUndefined && l != LayoutPreinitialized && int(l) < len(layoutNames)
}

// TextureUsage maps the layout to the HAL usage state used in
// hal.TextureBarrier.
func (l Layout) TextureUsage() gputypes.TextureUsage {
	switch l {
	case LayoutGeneral:
		return gputypes.TextureUsageStorageBinding
	case LayoutColorAttachment, LayoutDepthStencilAttachment, LayoutPresent:
		return gputypes.TextureUsageRenderAttachment
	case LayoutDepthStencilReadOnly, LayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case LayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case LayoutTransferDst:
		return gputypes.TextureUsageCopyDst
	default:
		return gputypes.TextureUsageNone
	}
}

// Usage is how a node accesses a resource.
type Usage uint8

const (
	UsageInputAttachment Usage = iota
	UsageSampled
	UsageStorage
	UsageColorAttachment
	UsageDepthAttachment
	UsageTransferSrc
	UsageTransferDst
	UsagePresent
)

var usageNames = [...]string{
	UsageInputAttachment: "input-attachment",
	UsageSampled:         "sampled",
	UsageStorage:         "storage",
	UsageColorAttachment: "color-attachment",
	UsageDepthAttachment: "depth-attachment",
	UsageTransferSrc:     "transfer-src",
	UsageTransferDst:     "transfer-dst",
	UsagePresent:         "present",
}

func (u Usage) String() string {
	if int(u) < len(usageNames) {
		return usageNames[u]
	}
	return fmt.Sprintf("Usage(%d)", u)
}

// LayoutFor returns the layout an image of kind k must be in for usage u.
// Usages that make no sense for the kind map to LayoutUndefined.
func LayoutFor(k Kind, u Usage) Layout {
	switch u {
	case UsageInputAttachment, UsageSampled:
		if k == KindDepth {
			return LayoutDepthStencilReadOnly
		}
		return LayoutShaderReadOnly
	case UsageStorage:
		return LayoutGeneral
	case UsageColorAttachment:
		if k == KindDepth {
			return LayoutUndefined
		}
		return LayoutColorAttachment
	case UsageDepthAttachment:
		if k != KindDepth {
			return LayoutUndefined
		}
		return LayoutDepthStencilAttachment
	case UsageTransferSrc:
		return LayoutTransferSrc
	case UsageTransferDst:
		return LayoutTransferDst
	case UsagePresent:
		if k != KindPresent {
			return LayoutUndefined
		}
		return LayoutPresent
	}
	return LayoutUndefined
}

// Stage is a coarse pipeline stage used to scope barriers and subpass
// dependencies.
type Stage uint8

const (
	StageTop Stage = iota
	StageVertex
	StageFragment
	StageCompute
	StageColorOutput
	StageTransfer
	StageBottom
)

var stageNames = [...]string{
	StageTop:         "top",
	StageVertex:      "vertex",
	StageFragment:    "fragment",
	StageCompute:     "compute",
	StageColorOutput: "color-output",
	StageTransfer:    "transfer",
	StageBottom:      "bottom",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", s)
}
