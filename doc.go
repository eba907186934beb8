// Package framegraph provides a frame graph for GPU rendering on top of the
// gogpu wgpu HAL, with a deferred voxel global illumination pipeline built
// on it.
//
// # Overview
//
// Passes declare the named GPU resources they produce and consume. The graph
// tracks, per resource and per frame in flight, the layouts each resource
// moves through and inserts the pipeline barriers needed between producers
// and consumers. Work crossing the graphics and compute queues is ordered
// with semaphores; the CPU waits on fences only before reusing memory that is
// not replicated per frame.
//
// # Quick Start
//
//	dev, err := backend.Open("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	cfg := framegraph.NewConfig(framegraph.WithVoxelCube(128))
//	scene := &deferred.Scene{Objects: objects, ViewProj: camera}
//	sched, err := deferred.New(dev, cfg, scene)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sched.Destroy()
//
//	for range 100 {
//	    if err := sched.Frame(ctx); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Architecture
//
// The module is organized into:
//   - resource: images, per-frame resource sets, the layout transition ledger, handles
//   - registry: the name to resource catalog with producer and consumer bookkeeping
//   - graph: the node capability interface, the graph and its barrier pass
//   - pass: attachment groups, render passes and subpasses
//   - material: materials, shader parameters and the shader cache
//   - timeline: queue submission with semaphores and fences
//   - recorder: per-frame command buffers and swapchains
//   - backend: backend selection and device opening
//   - deferred: the VXGI schedule (clear, voxelize, mip chain, g-buffer, composite)
//
// # Logging
//
// framegraph is silent by default. Call SetLogger to route diagnostics,
// including those of the HAL, to a slog.Logger.
package framegraph
