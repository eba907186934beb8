package material

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Compiler turns WGSL source into a shader module source for the backend.
type Compiler func(label, wgsl string) (hal.ShaderSource, error)

// CompileSPIRV compiles WGSL to SPIR-V with naga.
func CompileSPIRV(label, wgsl string) (hal.ShaderSource, error) {
	words, err := compileToSPIRV(wgsl)
	if err != nil {
		return hal.ShaderSource{}, fmt.Errorf("compile %s: %w", label, err)
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

// PassWGSL hands WGSL to the backend unchanged.
func PassWGSL(_, wgsl string) (hal.ShaderSource, error) {
	return hal.ShaderSource{WGSL: wgsl}, nil
}

// CompilerFor returns the compiler for a framegraph shader mode.
func CompilerFor(mode string) (Compiler, error) {
	switch mode {
	case framegraph.ShaderModeSPIRV, "":
		return CompileSPIRV, nil
	case framegraph.ShaderModeWGSL:
		return PassWGSL, nil
	}
	return nil, fmt.Errorf("shader mode %q: %w", mode, framegraph.ErrInvalidConfig)
}

// compileToSPIRV compiles WGSL and repacks the little-endian byte stream
// into SPIR-V words.
func compileToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("spir-v stream of %d bytes is not word aligned", len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
