package document

import "errors"

var (
	// ErrExtractionFailed means no page of the document yielded any text.
	ErrExtractionFailed = errors.New("no text could be extracted from document")
	// ErrEmptyDocument means the input had no bytes or no pages.
	ErrEmptyDocument = errors.New("document is empty")
)
