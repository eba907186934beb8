// Package recorder drives the per-frame command buffer lifecycle: wait
// for the frame slot, acquire a swapchain image, record, submit, present,
// and recreate the swapchain when it goes out of date.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/graph"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/framegraph/timeline"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultFenceTimeout bounds the wait for a frame slot.
const DefaultFenceTimeout = 5 * time.Second

// Option configures a Recorder.
type Option func(*Recorder)

// WithPresentTarget binds every acquired image to the given present set,
// so that graph nodes can render to it by name.
func WithPresentTarget(set *resource.Set) Option {
	return func(r *Recorder) {
		r.target = set
	}
}

// WithRecreate sets the function run after the swapchain was
// reconfigured, typically Graph.Recreate.
func WithRecreate(fn func(width, height uint32) error) Option {
	return func(r *Recorder) {
		r.recreate = fn
	}
}

// WithFenceTimeout sets how long Begin waits for a frame slot.
func WithFenceTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		r.timeout = d
	}
}

type slot struct {
	encoder        hal.CommandEncoder
	cmd            hal.CommandBuffer
	fence          *timeline.Fence
	imageAvailable *timeline.Semaphore
	renderDone     *timeline.Semaphore
	image          Image
}

// Recorder owns one command encoder, fence and semaphore pair per frame
// in flight.
type Recorder struct {
	device    hal.Device
	queue     *timeline.Queue
	swapchain Swapchain
	target    *resource.Set
	recreate  func(width, height uint32) error
	timeout   time.Duration

	slots     [framegraph.FramesInFlight]slot
	frame     int
	count     uint64
	recording bool
}

// New creates a recorder submitting on queue and presenting from sc.
func New(device hal.Device, queue *timeline.Queue, sc Swapchain, opts ...Option) (*Recorder, error) {
	r := &Recorder{device: device, queue: queue, swapchain: sc, timeout: DefaultFenceTimeout}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.slots {
		enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: fmt.Sprintf("frame[%d]", i)})
		if err != nil {
			r.Destroy(context.Background())
			return nil, fmt.Errorf("create frame encoder: %w", err)
		}
		r.slots[i] = slot{
			encoder:        enc,
			fence:          timeline.NewFence(fmt.Sprintf("frame[%d]", i), true),
			imageAvailable: timeline.NewSemaphore(fmt.Sprintf("image-available[%d]", i)),
			renderDone:     timeline.NewSemaphore(fmt.Sprintf("render-done[%d]", i)),
		}
	}
	if r.target != nil {
		w, h := sc.Extent()
		r.target.SetExtent(w, h, 1)
		r.target.SetFormat(sc.Format())
	}
	return r, nil
}

// FrameIndex returns the current frame-in-flight slot.
func (r *Recorder) FrameIndex() int { return r.frame }

// Count returns the number of presented frames.
func (r *Recorder) Count() uint64 { return r.count }

// Queue returns the graphics queue.
func (r *Recorder) Queue() *timeline.Queue { return r.queue }

// ImageAvailable returns the semaphore signaled when the current slot's
// swapchain image was acquired.
func (r *Recorder) ImageAvailable() *timeline.Semaphore { return r.slots[r.frame].imageAvailable }

// RenderDone returns the semaphore the current slot's submission signals.
func (r *Recorder) RenderDone() *timeline.Semaphore { return r.slots[r.frame].renderDone }

// Image returns the swapchain image acquired for the current slot.
func (r *Recorder) Image() Image { return r.slots[r.frame].image }

// Begin waits until the current slot's previous submission completed,
// acquires a swapchain image and begins encoding. A swapchain out of date
// is recreated and acquisition retried once.
func (r *Recorder) Begin(ctx context.Context) (*graph.Frame, error) {
	if r.recording {
		return nil, ErrRecording
	}
	s := &r.slots[r.frame]
	if err := s.fence.Wait(ctx, r.timeout); err != nil && !errors.Is(err, timeline.ErrFenceUnsubmitted) {
		return nil, fmt.Errorf("frame %d: %w", r.frame, err)
	}
	if err := s.fence.Reset(); err != nil {
		return nil, err
	}
	if s.cmd != nil {
		s.encoder.ResetAll([]hal.CommandBuffer{s.cmd})
		s.cmd = nil
	}

	img, err := r.swapchain.Acquire()
	if errors.Is(err, ErrSwapchainOutOfDate) {
		framegraph.Logger().Warn("recorder: swapchain out of date on acquire", "err", err)
		if err = r.Recreate(); err == nil {
			img, err = r.swapchain.Acquire()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire frame %d: %w", r.frame, err)
	}
	s.image = img
	r.queue.SignalHost(s.imageAvailable)
	if r.target != nil {
		r.target.Image(r.frame).Bind(img.Texture, img.View)
	}

	if err := s.encoder.BeginEncoding(fmt.Sprintf("frame %d", r.count)); err != nil {
		return nil, fmt.Errorf("begin frame %d: %w", r.frame, err)
	}
	r.recording = true
	return &graph.Frame{Index: r.frame, Count: r.count, Encoder: s.encoder, Ctx: ctx}, nil
}

// End transitions the present target for presentation and finishes
// encoding.
func (r *Recorder) End() (hal.CommandBuffer, error) {
	if !r.recording {
		return nil, ErrNotRecording
	}
	s := &r.slots[r.frame]
	// The graph has already returned the target to its original layout in
	// the ledger; the last logged transition is what the final pass left
	// it in.
	if r.target != nil {
		img := r.target.Image(r.frame)
		last, ok := r.target.LastTransition()
		if from := last.Current; ok && from != resource.LayoutPresent && img.Texture() != nil {
			s.encoder.TransitionTextures([]hal.TextureBarrier{{
				Texture: img.Texture(),
				Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1},
				Usage: hal.TextureUsageTransition{
					OldUsage: from.TextureUsage(),
					NewUsage: resource.LayoutPresent.TextureUsage(),
				},
			}})
			img.SetNativeLayout(resource.LayoutPresent)
		}
	}
	cmd, err := s.encoder.EndEncoding()
	r.recording = false
	if err != nil {
		return nil, fmt.Errorf("end frame %d: %w", r.frame, err)
	}
	s.cmd = cmd
	return cmd, nil
}

// Submit submits the frame's command buffer after the image-available
// semaphore and any extra wait semaphores, signaling render-done and the
// slot fence.
func (r *Recorder) Submit(ctx context.Context, wait ...*timeline.Semaphore) error {
	s := &r.slots[r.frame]
	if s.cmd == nil {
		return ErrNotRecording
	}
	_, err := r.queue.Submit(ctx, timeline.Submission{
		Commands: []hal.CommandBuffer{s.cmd},
		Wait:     append([]*timeline.Semaphore{s.imageAvailable}, wait...),
		Signal:   []*timeline.Semaphore{s.renderDone},
		Fence:    s.fence,
	})
	if err != nil {
		return fmt.Errorf("submit frame %d: %w", r.frame, err)
	}
	return nil
}

// Present presents the slot's image once render-done is signaled, then
// advances to the next slot. An out of date swapchain is recreated.
func (r *Recorder) Present() error {
	s := &r.slots[r.frame]
	if err := s.renderDone.Consume(); err != nil {
		return fmt.Errorf("present frame %d: %w", r.frame, err)
	}
	err := r.swapchain.Present(r.queue.HAL())
	if r.target != nil {
		r.target.Image(r.frame).Unbind()
	}
	s.image = Image{}
	r.frame = (r.frame + 1) % framegraph.FramesInFlight
	r.count++
	if errors.Is(err, ErrSwapchainOutOfDate) {
		framegraph.Logger().Warn("recorder: swapchain out of date on present", "err", err)
		return r.Recreate()
	}
	return err
}

// Recreate waits for every frame in flight, reconfigures the swapchain at
// its current size and runs the recreate hook.
func (r *Recorder) Recreate() error {
	if err := r.waitAll(context.Background()); err != nil {
		return err
	}
	w, h := r.swapchain.WindowExtent()
	if err := r.swapchain.Configure(w, h); err != nil {
		return fmt.Errorf("recreate swapchain: %w", err)
	}
	if r.target != nil {
		r.target.SetExtent(w, h, 1)
	}
	if r.recreate != nil {
		if err := r.recreate(w, h); err != nil {
			return fmt.Errorf("recreate: %w", err)
		}
	}
	framegraph.Logger().Info("recorder: swapchain recreated", "width", w, "height", h)
	return nil
}

func (r *Recorder) waitAll(ctx context.Context) error {
	for i := range r.slots {
		if f := r.slots[i].fence; f != nil && f.Value() != 0 {
			if err := f.Wait(ctx, r.timeout); err != nil && !errors.Is(err, timeline.ErrFenceUnsubmitted) {
				return err
			}
		}
	}
	return nil
}

// Destroy waits for the GPU and releases the encoders and the swapchain.
func (r *Recorder) Destroy(ctx context.Context) {
	if err := r.waitAll(ctx); err != nil {
		framegraph.Logger().Warn("recorder: destroy without idle GPU", "err", err)
	}
	for i := range r.slots {
		s := &r.slots[i]
		if s.encoder == nil {
			continue
		}
		if s.cmd != nil {
			s.encoder.ResetAll([]hal.CommandBuffer{s.cmd})
			s.cmd = nil
		}
		s.encoder.Destroy()
		s.encoder = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy()
	}
}
