package graph

import "errors"

var (
	// ErrCyclicGraph is returned by Init when a node is its own ancestor.
	ErrCyclicGraph = errors.New("graph: cycle in node children")

	// ErrNotInitialized is returned by Record before Init.
	ErrNotInitialized = errors.New("graph: not initialized")

	// ErrNotAttached is returned when a node registers resources before it
	// was attached to a graph.
	ErrNotAttached = errors.New("graph: node not attached")

	// ErrLedgerOrder is returned when a node's accesses are replayed out of
	// registration order, meaning record order differs from init order.
	ErrLedgerOrder = errors.New("graph: access replayed out of order")
)
