// Package deferred schedules a deferred renderer with voxel global
// illumination on the frame graph.
//
// Every displayed frame runs, in order:
//
//  1. clear: one compute submission zeroing every mip level of the albedo
//     and normal voxel volumes;
//  2. voxelize: the scene rasterized from three orthographic views into
//     level 0 of the volumes, one graphics submission per view;
//  3. mip chain: one compute submission per level, each downsampling level
//     i-1 into level i;
//  4. g-buffer: the scene rendered into albedo, normal and position
//     targets;
//  5. composite: the g-buffer shaded with light gathered from every level
//     of the volume, written to the swapchain image and presented.
//
// Steps 1 to 3 run only every VoxelizeInterval frames. On the frames in
// between they are skipped and the volume keeps the last result, already
// in sampled layout. Submissions are chained with semaphores; the CPU only
// blocks on fences before rewriting memory shared between submissions.
package deferred
