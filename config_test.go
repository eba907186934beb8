package framegraph

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"defaults", nil, nil},
		{"zero width", []Option{WithExtent(0, 600)}, ErrInvalidConfig},
		{"zero cube", []Option{WithVoxelCube(0)}, ErrInvalidConfig},
		{"zero lods", []Option{WithLODs(0)}, ErrInvalidConfig},
		{"zero interval", []Option{WithVoxelizeInterval(0)}, ErrInvalidConfig},
		{"negative world", []Option{WithWorldSize(-1)}, ErrInvalidConfig},
		{"bad shader mode", []Option{WithShaderMode("glsl")}, ErrInvalidConfig},
		{"bad log level", []Option{WithLogLevel("verbose")}, ErrInvalidConfig},
		{"cube 128 lods 5", []Option{WithVoxelCube(128), WithLODs(5)}, nil},
		{"cube 128 lods 6", []Option{WithVoxelCube(128), WithLODs(6)}, ErrWorkgroupDivisibility},
		{"cube 100", []Option{WithVoxelCube(100)}, ErrWorkgroupDivisibility},
		{"workgroup 4", []Option{WithWorkgroupSize(4), WithLODs(7)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckWorkgroupDivisibility(t *testing.T) {
	tests := []struct {
		edge   uint32
		levels int
		local  uint32
		ok     bool
	}{
		{256, 6, 8, true},
		{256, 7, 8, false},
		{512, 7, 8, true},
		{64, 4, 8, false},
		{64, 3, 8, true},
		{256, 1, 0, false},
		{24, 1, 8, true},
		{24, 2, 8, false},
	}
	for _, tt := range tests {
		err := CheckWorkgroupDivisibility(tt.edge, tt.levels, tt.local)
		if tt.ok && err != nil {
			t.Errorf("CheckWorkgroupDivisibility(%d, %d, %d) = %v, want nil", tt.edge, tt.levels, tt.local, err)
		}
		if !tt.ok && !errors.Is(err, ErrWorkgroupDivisibility) {
			t.Errorf("CheckWorkgroupDivisibility(%d, %d, %d) = %v, want ErrWorkgroupDivisibility", tt.edge, tt.levels, tt.local, err)
		}
	}
}

func TestConfigVoxelSize(t *testing.T) {
	cfg := DefaultConfig()
	if got, want := cfg.VoxelSize(), float32(10.0/256.0); got != want {
		t.Errorf("VoxelSize() = %v, want %v", got, want)
	}
}

func TestConfigSlogLevel(t *testing.T) {
	tests := []struct {
		in      string
		level   slog.Level
		enabled bool
	}{
		{"off", 0, false},
		{"", 0, false},
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
	}
	for _, tt := range tests {
		cfg := NewConfig(WithLogLevel(tt.in))
		level, enabled, err := cfg.SlogLevel()
		if err != nil {
			t.Fatalf("SlogLevel(%q) error: %v", tt.in, err)
		}
		if level != tt.level || enabled != tt.enabled {
			t.Errorf("SlogLevel(%q) = (%v, %v), want (%v, %v)", tt.in, level, enabled, tt.level, tt.enabled)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vxgi.toml")
	data := []byte(`backend = "noop"
width = 640
height = 480
voxel_cube = 128
voxel_lods = 5
voxelize_interval = 2
shader_mode = "wgsl"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Backend != "noop" || cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("LoadConfig() = %+v, want noop 640x480", cfg)
	}
	if cfg.VoxelCube != 128 || cfg.VoxelLODs != 5 || cfg.VoxelizeInterval != 2 {
		t.Errorf("LoadConfig() voxel fields = %+v", cfg)
	}
	if cfg.WorkgroupSize != DefaultWorkgroupSize {
		t.Errorf("WorkgroupSize = %d, want default %d", cfg.WorkgroupSize, DefaultWorkgroupSize)
	}
	if cfg.ShaderMode != ShaderModeWGSL {
		t.Errorf("ShaderMode = %q, want %q", cfg.ShaderMode, ShaderModeWGSL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) = %v, want os.ErrNotExist", err)
	}

	unknown := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknown, []byte("voxel_cubes = 64\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(unknown); err == nil {
		t.Error("LoadConfig(unknown key) = nil, want error")
	}
}
