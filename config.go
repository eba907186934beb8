package framegraph

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FramesInFlight is the number of frames the CPU may record ahead of the GPU.
// Per-frame resources, command buffers and fences are replicated this many
// times.
const FramesInFlight = 3

// Default voxel volume parameters.
const (
	DefaultVoxelCube     = 256
	DefaultVoxelLODs     = 6
	DefaultWorkgroupSize = 8
	DefaultWorldSize     = 10.0
)

// Shader modes accepted by Config.ShaderMode.
const (
	// ShaderModeSPIRV compiles WGSL to SPIR-V with naga before module creation.
	ShaderModeSPIRV = "spirv"
	// ShaderModeWGSL hands WGSL source to the backend unchanged.
	ShaderModeWGSL = "wgsl"
)

// Config holds the tunables of a deferred VXGI frame graph.
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	// Backend selects the HAL backend by name ("vulkan", "noop").
	// Empty selects the best available.
	Backend string `toml:"backend"`

	// Width and Height are the swapchain extent in pixels.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`

	// VoxelCube is the voxel volume edge length at LOD 0.
	VoxelCube uint32 `toml:"voxel_cube"`

	// VoxelLODs is the number of mip levels of the voxel volume.
	VoxelLODs int `toml:"voxel_lods"`

	// WorkgroupSize is the compute local workgroup edge.
	WorkgroupSize uint32 `toml:"workgroup_size"`

	// WorldSize is the world-space edge of the voxelized region.
	WorldSize float32 `toml:"world_size"`

	// VoxelizeInterval voxelizes every Nth frame. 1 voxelizes every frame.
	VoxelizeInterval int `toml:"voxelize_interval"`

	// ShaderMode is ShaderModeSPIRV or ShaderModeWGSL.
	ShaderMode string `toml:"shader_mode"`

	// LogLevel is one of "debug", "info", "warn", "error" or "off".
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Width:            1280,
		Height:           720,
		VoxelCube:        DefaultVoxelCube,
		VoxelLODs:        DefaultVoxelLODs,
		WorkgroupSize:    DefaultWorkgroupSize,
		WorldSize:        DefaultWorldSize,
		VoxelizeInterval: 1,
		ShaderMode:       ShaderModeSPIRV,
		LogLevel:         "off",
	}
}

// NewConfig returns DefaultConfig with opts applied.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are
// rejected so that typos surface instead of silently keeping defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first inconsistency in c.
func (c Config) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w: extent %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.VoxelCube == 0 || c.VoxelLODs <= 0 || c.WorkgroupSize == 0 {
		return fmt.Errorf("%w: voxel cube %d, lods %d, workgroup %d",
			ErrInvalidConfig, c.VoxelCube, c.VoxelLODs, c.WorkgroupSize)
	}
	if c.VoxelizeInterval < 1 {
		return fmt.Errorf("%w: voxelize interval %d", ErrInvalidConfig, c.VoxelizeInterval)
	}
	if c.WorldSize <= 0 {
		return fmt.Errorf("%w: world size %v", ErrInvalidConfig, c.WorldSize)
	}
	switch c.ShaderMode {
	case ShaderModeSPIRV, ShaderModeWGSL:
	default:
		return fmt.Errorf("%w: shader mode %q", ErrInvalidConfig, c.ShaderMode)
	}
	if _, _, err := c.SlogLevel(); err != nil {
		return err
	}
	return CheckWorkgroupDivisibility(c.VoxelCube, c.VoxelLODs, c.WorkgroupSize)
}

// VoxelSize returns the world-space edge of a single LOD 0 voxel.
func (c Config) VoxelSize() float32 {
	return c.WorldSize / float32(c.VoxelCube)
}

// SlogLevel maps LogLevel to a slog level. The second result is false for
// "off".
func (c Config) SlogLevel() (slog.Level, bool, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "off":
		return 0, false, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "warn":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	}
	return 0, false, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
}

// CheckWorkgroupDivisibility verifies that edge >> level is a positive
// multiple of local for every level in [0, levels).
func CheckWorkgroupDivisibility(edge uint32, levels int, local uint32) error {
	if local == 0 {
		return fmt.Errorf("%w: workgroup size 0", ErrWorkgroupDivisibility)
	}
	for level := 0; level < levels; level++ {
		e := edge >> uint(level)
		if e == 0 || e%local != 0 {
			return fmt.Errorf("%w: edge %d at level %d (local %d)",
				ErrWorkgroupDivisibility, e, level, local)
		}
	}
	return nil
}
