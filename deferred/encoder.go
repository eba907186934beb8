package deferred

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/graph"
	"github.com/gogpu/framegraph/recorder"
	"github.com/gogpu/framegraph/timeline"
	"github.com/gogpu/wgpu/hal"
)

// submitEncoder is a command encoder whose command buffer is submitted by
// its node and guarded by a fence. begin waits for the previous
// submission before the buffer is reused.
type submitEncoder struct {
	name  string
	enc   hal.CommandEncoder
	cmd   hal.CommandBuffer
	fence *timeline.Fence
}

func newSubmitEncoder(device hal.Device, name string) (*submitEncoder, error) {
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: name})
	if err != nil {
		return nil, fmt.Errorf("create encoder %s: %w", name, err)
	}
	return &submitEncoder{name: name, enc: enc, fence: timeline.NewFence(name, true)}, nil
}

func (e *submitEncoder) begin(f *graph.Frame) (hal.CommandEncoder, error) {
	err := e.fence.Wait(f.Context(), recorder.DefaultFenceTimeout)
	if err != nil && !errors.Is(err, timeline.ErrFenceUnsubmitted) {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	if err := e.fence.Reset(); err != nil {
		return nil, err
	}
	if e.cmd != nil {
		e.enc.ResetAll([]hal.CommandBuffer{e.cmd})
		e.cmd = nil
	}
	if err := e.enc.BeginEncoding(e.name); err != nil {
		return nil, fmt.Errorf("begin %s: %w", e.name, err)
	}
	return e.enc, nil
}

func (e *submitEncoder) end() (hal.CommandBuffer, error) {
	cmd, err := e.enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end %s: %w", e.name, err)
	}
	e.cmd = cmd
	return cmd, nil
}

// submit ends encoding and submits the command buffer on q.
func (e *submitEncoder) submit(f *graph.Frame, q *timeline.Queue, wait, signal *timeline.Semaphore) error {
	cmd, err := e.end()
	if err != nil {
		return err
	}
	s := timeline.Submission{
		Commands: []hal.CommandBuffer{cmd},
		Fence:    e.fence,
	}
	if wait != nil {
		s.Wait = []*timeline.Semaphore{wait}
	}
	if signal != nil {
		s.Signal = []*timeline.Semaphore{signal}
	}
	if _, err := q.Submit(f.Context(), s); err != nil {
		return fmt.Errorf("%s: %w", e.name, err)
	}
	return nil
}

func (e *submitEncoder) destroy() {
	if e == nil || e.enc == nil {
		return
	}
	if e.cmd != nil {
		e.enc.ResetAll([]hal.CommandBuffer{e.cmd})
		e.cmd = nil
	}
	e.enc.Destroy()
	e.enc = nil
}
