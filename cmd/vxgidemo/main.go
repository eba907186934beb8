// Command vxgidemo renders a few cubes with the deferred voxel global
// illumination pipeline for a number of frames and reports what it did.
//
// Settings come from an optional TOML file; flags given on the command
// line override it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/deferred"
	"github.com/gogpu/wgpu/hal"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		backendArg = flag.String("backend", "", "HAL backend: "+fmt.Sprint(backend.Available()))
		width      = flag.Uint("width", 1280, "swapchain width")
		height     = flag.Uint("height", 720, "swapchain height")
		cube       = flag.Uint("voxel-cube", framegraph.DefaultVoxelCube, "voxel volume edge")
		lods       = flag.Int("lods", framegraph.DefaultVoxelLODs, "voxel mip levels")
		interval   = flag.Int("interval", 1, "voxelize every Nth frame")
		shaderMode = flag.String("shader", framegraph.ShaderModeSPIRV, "shader mode: spirv or wgsl")
		logLevel   = flag.String("log", "info", "log level: debug, info, warn, error or off")
		skyPath    = flag.String("sky", "", "sky image (png, jpeg, bmp or tiff)")
		frames     = flag.Int("frames", 120, "frames to render")
		dump       = flag.Bool("dump", false, "print the node tree after initialization")
	)
	flag.Parse()

	cfg := framegraph.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = framegraph.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	var flagErrs []error
	set32 := func(dst *uint32, name string, v uint) {
		n, err := toUint32(name, v)
		if err != nil {
			flagErrs = append(flagErrs, err)
			return
		}
		*dst = n
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backendArg
		case "width":
			set32(&cfg.Width, f.Name, *width)
		case "height":
			set32(&cfg.Height, f.Name, *height)
		case "voxel-cube":
			set32(&cfg.VoxelCube, f.Name, *cube)
		case "lods":
			cfg.VoxelLODs = *lods
		case "interval":
			cfg.VoxelizeInterval = *interval
		case "shader":
			cfg.ShaderMode = *shaderMode
		case "log":
			cfg.LogLevel = *logLevel
		}
	})
	if err := errors.Join(flagErrs...); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}
	if *configPath == "" && !isSet("log") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	level, on, err := cfg.SlogLevel()
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	if on {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	if err := run(cfg, *skyPath, *frames, *dump); err != nil {
		log.Fatal(err)
	}
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func run(cfg framegraph.Config, skyPath string, frames int, dump bool) error {
	dev, err := backend.Open(cfg.Backend)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer dev.Close()
	info := dev.AdapterInfo()
	log.Printf("Using %s backend on %s", dev.Name(), info.Name)

	device, queue := dev.HAL()
	scene, err := buildScene(device, queue, cfg)
	if err != nil {
		return err
	}
	defer scene.Destroy(device)
	if skyPath != "" {
		if scene.Sky, err = loadImage(skyPath); err != nil {
			return err
		}
	}

	sched, err := deferred.New(dev, cfg, scene)
	if err != nil {
		return fmt.Errorf("build frame graph: %w", err)
	}
	defer sched.Destroy()
	if dump {
		if err := sched.Graph().Dump(os.Stdout); err != nil {
			return err
		}
	}

	ctx := context.Background()
	start := time.Now()
	for i := range frames {
		if err := sched.Frame(ctx); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)

	st := sched.Stats()
	log.Printf("Rendered %d frames in %v (%d voxelizations, %d draws, %d dispatches, %d submissions)",
		st.Frames, elapsed.Round(time.Millisecond), st.Voxelizations, st.Draws, st.Dispatches, st.Submissions)
	return nil
}

// buildScene places a floor and a few colored cubes inside the voxelized
// region, seen by a camera looking down at them.
func buildScene(device hal.Device, queue hal.Queue, cfg framegraph.Config) (*deferred.Scene, error) {
	h := cfg.WorldSize / 2
	cubes := []struct {
		name   string
		center mgl32.Vec3
		size   float32
		color  [4]float32
	}{
		{"floor", mgl32.Vec3{0, -h + 0.25, 0}, cfg.WorldSize * 0.9, [4]float32{0.8, 0.8, 0.8, 1}},
		{"red", mgl32.Vec3{-2, -h + 1.5, 0}, 2, [4]float32{0.9, 0.2, 0.2, 1}},
		{"green", mgl32.Vec3{2, -h + 1.5, -1}, 2, [4]float32{0.2, 0.9, 0.3, 1}},
		{"blue", mgl32.Vec3{0, -h + 1, 2}, 1, [4]float32{0.2, 0.3, 0.9, 1}},
	}
	scene := &deferred.Scene{}
	for _, c := range cubes {
		obj, err := deferred.NewCube(device, queue, c.name, c.center, c.size, c.color)
		if err != nil {
			scene.Destroy(device)
			return nil, err
		}
		if c.name == "floor" {
			obj.Model[5] = 0.5
		}
		scene.Objects = append(scene.Objects, obj)
	}

	aspect := float32(cfg.Width) / float32(cfg.Height)
	eye := mgl32.Vec3{0, h, cfg.WorldSize * 1.2}
	proj := deferred.Ortho(-h*aspect, h*aspect, -h, h, 0.1, cfg.WorldSize*3)
	scene.ViewProj = deferred.ToMat4(proj.Mul4(mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})))
	return scene, nil
}

// toUint32 narrows an unsigned flag value, rejecting values that do not fit.
func toUint32(name string, v uint) (uint32, error) {
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("-%s %d exceeds %d", name, v, uint64(math.MaxUint32))
	}
	return uint32(v), nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sky: %w", err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode sky %s: %w", path, err)
	}
	b := img.Bounds()
	log.Printf("Loaded %s sky %dx%d", format, b.Dx(), b.Dy())
	return img, nil
}
