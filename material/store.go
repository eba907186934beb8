package material

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/internal/cache"
	"github.com/gogpu/wgpu/hal"
)

// DefaultShaderCacheSize is the number of shader modules kept alive.
const DefaultShaderCacheSize = 32

// Option configures a Store.
type Option func(*Store)

// WithCompiler sets the WGSL compiler. The default is CompileSPIRV.
func WithCompiler(c Compiler) Option {
	return func(s *Store) {
		s.compile = c
	}
}

// WithShaderCacheSize bounds the number of cached shader modules.
func WithShaderCacheSize(n int) Option {
	return func(s *Store) {
		s.cacheSize = n
	}
}

// Store owns named materials, WGSL sources and compiled shader modules.
// Store is safe for concurrent use.
type Store struct {
	device    hal.Device
	compile   Compiler
	cacheSize int

	mu        sync.Mutex
	sources   map[string]string
	materials map[string]*Material
	modules   *cache.Cache[string, hal.ShaderModule]
}

// NewStore returns an empty store creating shader modules on device.
func NewStore(device hal.Device, opts ...Option) *Store {
	s := &Store{
		device:    device,
		compile:   CompileSPIRV,
		cacheSize: DefaultShaderCacheSize,
		sources:   make(map[string]string),
		materials: make(map[string]*Material),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.modules = cache.New[string, hal.ShaderModule](s.cacheSize, func(label string, m hal.ShaderModule) {
		framegraph.Logger().Debug("material: shader module released", "shader", label)
		device.DestroyShaderModule(m)
	})
	return s
}

// AddShader registers WGSL source under label. Re-adding a label replaces
// the source and drops its cached module.
func (s *Store) AddShader(label, wgsl string) {
	s.mu.Lock()
	s.sources[label] = wgsl
	s.mu.Unlock()
	s.modules.Delete(label)
}

// Register adds a material. Names are unique.
func (s *Store) Register(m *Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[m.Name]; ok {
		return fmt.Errorf("%q: %w", m.Name, ErrDuplicateMaterial)
	}
	if m.Params == nil {
		m.Params = NewParamGroup()
	}
	s.materials[m.Name] = m
	return nil
}

// Get returns the material called name and marks it in use. A material
// already in use is cloned, so that two passes never share parameters.
func (s *Store) Get(name string) (*Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownMaterial)
	}
	if m.inUse {
		c := m.Clone()
		c.inUse = true
		return c, nil
	}
	m.inUse = true
	return m, nil
}

// Names returns registered material names, sorted.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.materials))
	for n := range s.materials {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ShaderModule returns the module for a shader label, compiling it on
// first use.
func (s *Store) ShaderModule(label string) (hal.ShaderModule, error) {
	return s.modules.GetOrCreate(label, func() (hal.ShaderModule, error) {
		s.mu.Lock()
		src, ok := s.sources[label]
		s.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%q: %w", label, ErrUnknownShader)
		}
		source, err := s.compile(label, src)
		if err != nil {
			return nil, err
		}
		mod, err := s.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: source,
		})
		if err != nil {
			return nil, fmt.Errorf("create shader module %s: %w", label, err)
		}
		framegraph.Logger().Debug("material: shader module created", "shader", label)
		return mod, nil
	})
}

// CacheStats returns shader cache counters.
func (s *Store) CacheStats() cache.Stats { return s.modules.Stats() }

// Destroy releases every cached shader module.
func (s *Store) Destroy() {
	s.modules.Clear()
}
