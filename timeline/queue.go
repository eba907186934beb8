// Package timeline orders GPU submissions with semaphores and lets the CPU
// wait for them with fences.
//
// The HAL exposes one queue per device and reports progress as a
// monotonically increasing submission index. A Queue wraps it under a
// role name (graphics, compute); several Queues may share one HAL queue.
// Semaphores and fences record the index of the submission that signals
// them. Work submitted to the same HAL queue executes in order, so a wait
// on a semaphore signaled there is satisfied by submission order; a wait
// on a semaphore signaled on another HAL queue blocks the submitting
// goroutine until that submission has completed.
package timeline

import (
	"context"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/wgpu/hal"
)

// Queue submits command buffers on a HAL queue.
type Queue struct {
	name string
	hal  hal.Queue
	last uint64
}

// NewQueue wraps q under a role name.
func NewQueue(name string, q hal.Queue) *Queue {
	return &Queue{name: name, hal: q}
}

// Name returns the queue role.
func (q *Queue) Name() string { return q.name }

// HAL returns the wrapped queue.
func (q *Queue) HAL() hal.Queue { return q.hal }

// Last returns the index of the last submission made through q.
func (q *Queue) Last() uint64 { return q.last }

// Submission describes one Submit call.
type Submission struct {
	Commands []hal.CommandBuffer
	// Wait must all be signaled; each wait unsignals its semaphore.
	Wait []*Semaphore
	// Signal are signaled when the submission completes.
	Signal []*Semaphore
	// Fence, if not nil, must be unsignaled. It is signaled when the
	// submission completes.
	Fence *Fence
}

// Submit validates the submission's synchronization and submits it.
func (q *Queue) Submit(ctx context.Context, s Submission) (uint64, error) {
	for _, w := range s.Wait {
		if !w.Signaled() {
			return 0, fmt.Errorf("%s submit: %s: %w", q.name, w.name, ErrSemaphoreNotSignaled)
		}
	}
	if s.Fence != nil && s.Fence.state != fenceUnsignaled {
		return 0, fmt.Errorf("%s submit: fence %s not reset: %w", q.name, s.Fence.name, ErrFenceInUse)
	}
	for _, w := range s.Wait {
		if w.queue != q.hal {
			if err := waitCompleted(ctx, w.queue, w.value, 0, w.name); err != nil {
				return 0, fmt.Errorf("%s submit: %w", q.name, err)
			}
		}
	}

	idx, err := q.hal.Submit(s.Commands)
	if err != nil {
		framegraph.Logger().Error("timeline: submit failed", "queue", q.name, "err", err)
		return 0, fmt.Errorf("%s submit: %w", q.name, err)
	}
	q.last = idx
	for _, w := range s.Wait {
		w.signaled, w.value, w.queue = false, 0, nil
	}
	for _, sig := range s.Signal {
		sig.signaled, sig.value, sig.queue = true, idx, q.hal
	}
	if s.Fence != nil {
		s.Fence.state, s.Fence.queue, s.Fence.value = fencePending, q.hal, idx
	}
	framegraph.Logger().Debug("timeline: submit", "queue", q.name, "index", idx,
		"commands", len(s.Commands), "wait", len(s.Wait), "signal", len(s.Signal))
	return idx, nil
}

// SignalHost signals s for a host-side event, such as a swapchain image
// becoming available, ordered after every submission made through q.
func (q *Queue) SignalHost(s *Semaphore) {
	s.signaled, s.value, s.queue = true, q.last, q.hal
}

// WaitIdle blocks until every submission made through q has completed.
func (q *Queue) WaitIdle(ctx context.Context) error {
	return waitCompleted(ctx, q.hal, q.last, 0, q.name)
}
