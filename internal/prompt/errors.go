package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrInvalid is returned when values still fail validation after every
	// retry.
	ErrInvalid = errors.New("prompt: values failed validation")
)
