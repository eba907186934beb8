package framegraph

// Option configures a Config built by NewConfig.
//
// Example:
//
//	cfg := framegraph.NewConfig(
//	    framegraph.WithVoxelCube(128),
//	    framegraph.WithLODs(5),
//	)
type Option func(*Config)

// WithBackend selects the HAL backend by registry name.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}

// WithExtent sets the swapchain extent.
func WithExtent(width, height uint32) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithVoxelCube sets the voxel volume edge length at LOD 0.
func WithVoxelCube(edge uint32) Option {
	return func(c *Config) {
		c.VoxelCube = edge
	}
}

// WithLODs sets the number of voxel volume mip levels.
func WithLODs(n int) Option {
	return func(c *Config) {
		c.VoxelLODs = n
	}
}

// WithWorkgroupSize sets the compute local workgroup edge.
// Every mip edge must stay divisible by it; see Config.Validate.
func WithWorkgroupSize(n uint32) Option {
	return func(c *Config) {
		c.WorkgroupSize = n
	}
}

// WithWorldSize sets the world-space edge of the voxelized region.
func WithWorldSize(size float32) Option {
	return func(c *Config) {
		c.WorldSize = size
	}
}

// WithVoxelizeInterval voxelizes the scene only every n-th frame.
func WithVoxelizeInterval(n int) Option {
	return func(c *Config) {
		c.VoxelizeInterval = n
	}
}

// WithShaderMode selects how WGSL sources reach the backend.
func WithShaderMode(mode string) Option {
	return func(c *Config) {
		c.ShaderMode = mode
	}
}

// WithLogLevel sets the level name used by the demo command.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.LogLevel = level
	}
}
