package search

import "errors"

var (
	// ErrIndexBuild means the chunk set could not be indexed.
	ErrIndexBuild = errors.New("index build failed")

	// errDegraded marks an index that cannot serve the chunk set it was
	// asked to search. It is logged and never returned to callers.
	errDegraded = errors.New("search degraded")
)
