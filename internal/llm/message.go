package llm

import (
	"context"
	"errors"
)

// UserMessage turns a Complete failure into a sentence fit to show a student.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "The question was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The tutor took too long to answer. Please try again."
	case errors.Is(err, ErrAuth):
		return "The tutor is not configured correctly: the model API key was rejected."
	case errors.Is(err, ErrQuotaExceeded):
		return "The tutor has used up its model quota. Please try again later."
	case errors.Is(err, ErrRateLimited):
		return "The tutor is receiving too many questions right now. Please wait a moment and try again."
	case errors.Is(err, ErrContentBlocked):
		return "The model declined to answer this question. Try rephrasing it."
	case errors.Is(err, ErrModelNotFound):
		return "The configured model is not available."
	case errors.Is(err, ErrMalformedResponse):
		return "The model returned an empty or unreadable answer. Please try again."
	case errors.Is(err, ErrTransient):
		return "The model service is temporarily unavailable. Please try again."
	default:
		return "Something went wrong while answering. Please try again."
	}
}
