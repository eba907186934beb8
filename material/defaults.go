package material

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

//go:embed shaders/clear_3d_texture.wgsl
var clear3DShader string

//go:embed shaders/downsize.wgsl
var downsizeShader string

//go:embed shaders/voxelizer.wgsl
var voxelizerShader string

//go:embed shaders/mrt.wgsl
var mrtShader string

//go:embed shaders/deferred_output.wgsl
var deferredOutputShader string

// Names of the materials registered by RegisterDefaults.
const (
	Clear3D        = "clear_3d_texture"
	Downsize       = "downsize"
	DownsizeSnorm  = "downsize_snorm"
	Voxelizer      = "voxelizer"
	MRT            = "mrt"
	DeferredOutput = "deferred_output"
)

// Formats of the voxel volumes written by the default shaders.
const (
	AlbedoVolumeFormat = gputypes.TextureFormatRGBA8Unorm
	NormalVolumeFormat = gputypes.TextureFormatRGBA8Snorm
)

// MeshVertexLayout is the vertex layout of the default visual materials:
// position, normal and RGBA color, interleaved.
var MeshVertexLayout = gputypes.VertexBufferLayout{
	ArrayStride: 40,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 24, ShaderLocation: 2},
	},
}

func storage3D(binding uint32, format gputypes.TextureFormat, stage gputypes.ShaderStage) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: stage,
		StorageTexture: &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        format,
			ViewDimension: gputypes.TextureViewDimension3D,
		},
	}
}

func sampled(binding uint32, dim gputypes.TextureViewDimension, sample gputypes.TextureSampleType, stage gputypes.ShaderStage) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: stage,
		Texture: &gputypes.TextureBindingLayout{
			SampleType:    sample,
			ViewDimension: dim,
		},
	}
}

func uniform(binding uint32, stage gputypes.ShaderStage) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: stage,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}

type namedParam struct {
	name  string
	value Param
}

func defaultGroup(params ...namedParam) (*ParamGroup, error) {
	g := NewParamGroup()
	for _, p := range params {
		if err := g.Set(p.name, p.value); err != nil {
			return nil, fmt.Errorf("default parameter %s: %w", p.name, err)
		}
	}
	return g, nil
}

// RegisterDefaults adds the shaders and materials of the deferred VXGI
// pipeline.
func (s *Store) RegisterDefaults() error {
	s.AddShader(Clear3D, clear3DShader)
	s.AddShader(Downsize, downsizeShader)
	s.AddShader(DownsizeSnorm, strings.ReplaceAll(downsizeShader, "rgba8unorm", "rgba8snorm"))
	s.AddShader(Voxelizer, voxelizerShader)
	s.AddShader(MRT, mrtShader)
	s.AddShader(DeferredOutput, deferredOutputShader)

	const (
		vs = gputypes.ShaderStageVertex
		fs = gputypes.ShaderStageFragment
		cs = gputypes.ShaderStageCompute
	)
	voxelParams, err := defaultGroup(
		namedParam{"view_proj", Mat4(Identity())},
		namedParam{"world_size", Float(0)},
		namedParam{"voxel_cube", Float(0)},
	)
	if err != nil {
		return err
	}
	cameraParams, err := defaultGroup(namedParam{"view_proj", Mat4(Identity())})
	if err != nil {
		return err
	}
	outputParams, err := defaultGroup(
		namedParam{"world_size", Float(0)},
		namedParam{"voxel_cube", Float(0)},
		namedParam{"lods", Float(0)},
	)
	if err != nil {
		return err
	}
	voxelObject, err := defaultGroup(namedParam{"model", Mat4(Identity())})
	if err != nil {
		return err
	}
	meshObject := voxelObject.Clone()

	downsize := func(name string, format gputypes.TextureFormat) *Material {
		return &Material{
			Name:         name,
			Kind:         Compute,
			Shader:       name,
			ComputeEntry: "main",
			Bindings: []gputypes.BindGroupLayoutEntry{
				sampled(0, gputypes.TextureViewDimension3D, gputypes.TextureSampleTypeUnfilterableFloat, cs),
				storage3D(1, format, cs),
			},
		}
	}

	materials := []*Material{
		{
			Name:         Clear3D,
			Kind:         Compute,
			Shader:       Clear3D,
			ComputeEntry: "main",
			Bindings: []gputypes.BindGroupLayoutEntry{
				storage3D(0, AlbedoVolumeFormat, cs),
				storage3D(1, NormalVolumeFormat, cs),
			},
		},
		downsize(Downsize, AlbedoVolumeFormat),
		downsize(DownsizeSnorm, NormalVolumeFormat),
		{
			Name:          Voxelizer,
			Kind:          Visual,
			Shader:        Voxelizer,
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
			Bindings: []gputypes.BindGroupLayoutEntry{
				uniform(0, vs|fs),
				storage3D(1, AlbedoVolumeFormat, fs),
				storage3D(2, NormalVolumeFormat, fs),
			},
			VertexBuffers: []gputypes.VertexBufferLayout{MeshVertexLayout},
			CullMode:      gputypes.CullModeNone,
			Params:        voxelParams,
			Dynamic:       voxelObject,
		},
		{
			Name:          MRT,
			Kind:          Visual,
			Shader:        MRT,
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
			Bindings:      []gputypes.BindGroupLayoutEntry{uniform(0, vs)},
			VertexBuffers: []gputypes.VertexBufferLayout{MeshVertexLayout},
			CullMode:      gputypes.CullModeBack,
			DepthTest:     true,
			Params:        cameraParams,
			Dynamic:       meshObject,
		},
		{
			Name:          DeferredOutput,
			Kind:          Visual,
			Shader:        DeferredOutput,
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
			Bindings: []gputypes.BindGroupLayoutEntry{
				sampled(0, gputypes.TextureViewDimension2D, gputypes.TextureSampleTypeUnfilterableFloat, fs),
				sampled(1, gputypes.TextureViewDimension2D, gputypes.TextureSampleTypeUnfilterableFloat, fs),
				sampled(2, gputypes.TextureViewDimension2D, gputypes.TextureSampleTypeUnfilterableFloat, fs),
				sampled(3, gputypes.TextureViewDimension3D, gputypes.TextureSampleTypeFloat, fs),
				{
					Binding:    4,
					Visibility: fs,
					Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				},
				uniform(5, fs),
				sampled(6, gputypes.TextureViewDimension2D, gputypes.TextureSampleTypeUnfilterableFloat, fs),
			},
			CullMode: gputypes.CullModeNone,
			Params:   outputParams,
		},
	}
	for _, m := range materials {
		if err := s.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Identity returns the 4x4 identity matrix.
func Identity() f32.Mat4 {
	return f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
