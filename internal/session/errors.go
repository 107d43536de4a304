package session

import "errors"

var (
	// ErrNoDocument means no textbook has been loaded yet.
	ErrNoDocument = errors.New("no textbook loaded")

	// ErrSuperseded means a newer load or question replaced this one; its
	// result was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")

	ErrEmptyQuestion = errors.New("question is empty")
)
