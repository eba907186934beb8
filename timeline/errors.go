package timeline

import "errors"

var (
	// ErrSemaphoreNotSignaled is returned when a submission waits on a
	// semaphore no earlier submission signals.
	ErrSemaphoreNotSignaled = errors.New("timeline: wait on unsignaled semaphore")

	// ErrFenceTimeout is returned by Fence.Wait when the timeout elapses.
	ErrFenceTimeout = errors.New("timeline: fence wait timed out")

	// ErrFenceInUse is returned when resetting or submitting a fence whose
	// submission has not completed.
	ErrFenceInUse = errors.New("timeline: fence in use")

	// ErrFenceUnsubmitted is returned when waiting on a reset fence that
	// was never submitted.
	ErrFenceUnsubmitted = errors.New("timeline: wait on unsubmitted fence")
)
