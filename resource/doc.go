// Package resource models GPU images as frame graph resources.
//
// A Set is one named resource: a single image shared by every frame in
// flight (persistent textures, voxel volumes) or one image per frame
// (render targets, depth buffers, swapchain images). Each Set keeps a
// ledger of the layout transitions nodes declared on it, which the graph
// replays every frame to decide where barriers are needed.
//
// Sets live in an Arena and are referred to by generation-checked Handles.
package resource
