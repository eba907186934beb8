package recorder

import "errors"

var (
	// ErrSwapchainOutOfDate is returned when the swapchain no longer
	// matches its surface and must be recreated before the next frame.
	ErrSwapchainOutOfDate = errors.New("recorder: swapchain out of date")

	// ErrNotRecording is returned by End and Submit outside Begin/End.
	ErrNotRecording = errors.New("recorder: frame not begun")

	// ErrRecording is returned by Begin while a frame is being recorded.
	ErrRecording = errors.New("recorder: frame already begun")
)
