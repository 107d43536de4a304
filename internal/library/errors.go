package library

import "errors"

var (
	ErrNotPDF   = errors.New("not a PDF document")
	ErrTooLarge = errors.New("document exceeds size limit")
	// ErrNoLibrary means a library reference was given but no GitHub
	// library is configured.
	ErrNoLibrary = errors.New("no textbook library configured")
)
