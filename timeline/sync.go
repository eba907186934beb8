package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/wgpu/hal"
)

// Semaphore is a binary GPU-to-GPU signal. A submission signals it and a
// later submission waits on it, which unsignals it again.
type Semaphore struct {
	name     string
	signaled bool
	queue    hal.Queue
	value    uint64 // submission index that signals it
}

// NewSemaphore returns an unsignaled semaphore.
func NewSemaphore(name string) *Semaphore { return &Semaphore{name: name} }

// Name returns the semaphore name.
func (s *Semaphore) Name() string { return s.name }

// Signaled reports whether a submission signals s and no one waited yet.
func (s *Semaphore) Signaled() bool { return s.signaled }

// Value returns the submission index that signals s.
func (s *Semaphore) Value() uint64 { return s.value }

// Consume unsignals s on behalf of a host-side waiter such as
// presentation.
func (s *Semaphore) Consume() error {
	if !s.signaled {
		return fmt.Errorf("consume %s: %w", s.name, ErrSemaphoreNotSignaled)
	}
	s.signaled, s.queue, s.value = false, nil, 0
	return nil
}

type fenceState uint8

const (
	fenceSignaled fenceState = iota
	fenceUnsignaled
	fencePending
)

// Fence lets the CPU wait for a submission to complete.
type Fence struct {
	name  string
	state fenceState
	queue hal.Queue
	value uint64
}

// NewFence returns a fence, signaled or not.
func NewFence(name string, signaled bool) *Fence {
	f := &Fence{name: name, state: fenceUnsignaled}
	if signaled {
		f.state = fenceSignaled
	}
	return f
}

// Name returns the fence name.
func (f *Fence) Name() string { return f.name }

// Value returns the submission index the fence waits for, 0 before any
// submission.
func (f *Fence) Value() uint64 { return f.value }

// Status reports whether the fence is signaled. It never blocks.
func (f *Fence) Status() bool {
	switch f.state {
	case fenceSignaled:
		return true
	case fencePending:
		if f.queue.PollCompleted() >= f.value {
			f.state = fenceSignaled
			return true
		}
	}
	return false
}

// Reset unsignals the fence. A fence whose submission is still running
// cannot be reset.
func (f *Fence) Reset() error {
	if f.state == fencePending && !f.Status() {
		return fmt.Errorf("reset %s: %w", f.name, ErrFenceInUse)
	}
	f.state = fenceUnsignaled
	return nil
}

// Wait blocks until the fence is signaled, ctx is done or timeout
// elapses. A zero timeout waits for ctx alone.
func (f *Fence) Wait(ctx context.Context, timeout time.Duration) error {
	if f.Status() {
		return nil
	}
	if f.state == fenceUnsignaled {
		return fmt.Errorf("wait %s: %w", f.name, ErrFenceUnsubmitted)
	}
	return waitCompleted(ctx, f.queue, f.value, timeout, f.name)
}

// PollInterval is how often blocking waits poll for completed submissions.
var PollInterval = 100 * time.Microsecond

func waitCompleted(ctx context.Context, q hal.Queue, value uint64, timeout time.Duration, name string) error {
	if q.PollCompleted() >= value {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				framegraph.Logger().Warn("timeline: wait timed out", "name", name, "value", value, "completed", q.PollCompleted())
				return fmt.Errorf("wait %s for submission %d: %w", name, value, ErrFenceTimeout)
			}
			return fmt.Errorf("wait %s: %w", name, ctx.Err())
		case <-ticker.C:
			if q.PollCompleted() >= value {
				return nil
			}
		}
	}
}
