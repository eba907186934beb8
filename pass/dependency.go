package pass

import (
	"fmt"
	"strings"

	"github.com/gogpu/framegraph/resource"
)

// External is the subpass index of work outside the render pass.
const External = -1

// Access is a set of memory access kinds.
type Access uint8

const (
	AccessMemoryRead Access = 1 << iota
	AccessColorRead
	AccessColorWrite
	AccessShaderRead
)

var accessNames = []struct {
	bit  Access
	name string
}{
	{AccessMemoryRead, "memory-read"},
	{AccessColorRead, "color-read"},
	{AccessColorWrite, "color-write"},
	{AccessShaderRead, "shader-read"},
}

func (a Access) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for _, n := range accessNames {
		if a&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Dependency orders two subpasses, or a subpass and External.
type Dependency struct {
	Src, Dst             int
	SrcStage, DstStage   resource.Stage
	SrcAccess, DstAccess Access
	ByRegion             bool
}

func (d Dependency) String() string {
	name := func(i int) string {
		if i == External {
			return "external"
		}
		return fmt.Sprint(i)
	}
	return fmt.Sprintf("%s->%s %v->%v %v->%v", name(d.Src), name(d.Dst), d.SrcStage, d.DstStage, d.SrcAccess, d.DstAccess)
}

// dependencies returns the linear chain for n subpasses: external into
// the first, each subpass into the next, the last out to external.
func dependencies(n int) []Dependency {
	if n == 0 {
		return nil
	}
	deps := make([]Dependency, 0, n+1)
	deps = append(deps, Dependency{
		Src:       External,
		Dst:       0,
		SrcStage:  resource.StageBottom,
		DstStage:  resource.StageColorOutput,
		SrcAccess: AccessMemoryRead,
		DstAccess: AccessColorRead | AccessColorWrite,
		ByRegion:  true,
	})
	for i := range n - 1 {
		deps = append(deps, Dependency{
			Src:       i,
			Dst:       i + 1,
			SrcStage:  resource.StageColorOutput,
			DstStage:  resource.StageFragment,
			SrcAccess: AccessColorWrite,
			DstAccess: AccessShaderRead,
			ByRegion:  true,
		})
	}
	deps = append(deps, Dependency{
		Src:       n - 1,
		Dst:       External,
		SrcStage:  resource.StageColorOutput,
		DstStage:  resource.StageBottom,
		SrcAccess: AccessColorRead | AccessColorWrite,
		DstAccess: AccessMemoryRead,
		ByRegion:  true,
	})
	return deps
}
