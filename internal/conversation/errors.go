package conversation

import (
	"errors"

	"github.com/antoniostano/vocabtutor/internal/curriculum"
)

var (
	// ErrInvalidUnit covers out-of-range unit numbers and catalogue gaps.
	ErrInvalidUnit = curriculum.ErrInvalidUnit
	// ErrSessionNotFound is a normal outcome: the id was never issued, was
	// ended, or aged out in a sweep.
	ErrSessionNotFound = errors.New("conversation not found")
	ErrUpstream        = errors.New("upstream failure")
	ErrTranscription   = errors.New("could not understand the audio")
	ErrUpload          = errors.New("invalid upload")
	ErrEmptyMessage    = errors.New("message is empty")
)
