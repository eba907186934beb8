package pass

import "errors"

var (
	// ErrDepthNotLast is returned when an attachment is added after a
	// depth attachment.
	ErrDepthNotLast = errors.New("pass: depth attachment must be last")

	// ErrIncomplete is returned by Create before every declared attachment
	// was added.
	ErrIncomplete = errors.New("pass: attachment group incomplete")

	// ErrNotInitialized is returned by Create when an attachment image has
	// no GPU texture.
	ErrNotInitialized = errors.New("pass: attachment not initialized")

	// ErrDimensionMismatch is returned by Create when attachments differ in
	// width or height.
	ErrDimensionMismatch = errors.New("pass: attachment dimensions differ")

	// ErrEmptySubpass is returned by Create for a subpass with neither
	// inputs nor outputs.
	ErrEmptySubpass = errors.New("pass: subpass has no inputs or outputs")

	// ErrNotInGroup is returned when a subpass references a set that is not
	// an attachment of its pass.
	ErrNotInGroup = errors.New("pass: set is not an attachment of the pass")

	// ErrNotCreated is returned by Record for a frame Create did not build.
	ErrNotCreated = errors.New("pass: frame not created")
)
