package matching

import (
	"errors"
	"fmt"

	"github.com/spigell/labconnect/internal/ai"
	"github.com/spigell/labconnect/internal/labs"
)

// Kind classifies why a search failed.
type Kind int

const (
	// KindValidation means the request was rejected before any network call.
	KindValidation Kind = iota
	// KindImageRead means the resume could not be read.
	KindImageRead
	// KindUpstream means the database or the model failed.
	KindUpstream
	// KindResponseShape means the model reply did not follow the expected format.
	KindResponseShape
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindImageRead:
		return "image_read"
	case KindUpstream:
		return "upstream"
	case KindResponseShape:
		return "response_shape"
	default:
		return "unknown"
	}
}

const (
	MsgNoImage    = "Please upload an image"
	MsgImageRead  = "Error reading image file"
	MsgNoLabs     = "No labs found"
	MsgFallback   = "Failed to process image. Please try again."
	msgNoDetails  = "Failed to extract resume details"
	msgBadDetails = "Failed to parse resume details"
	msgNoAnalysis = "Failed to get lab analysis from LLM"
)

var (
	ErrNoImage = errors.New("no resume selected")
	ErrNoLabs  = errors.New("no labs found")
)

// Error is a failed search step.
type Error struct {
	Kind Kind
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Step == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message renders err as the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNoImage):
		return MsgNoImage
	case errors.Is(err, ErrNoLabs):
		return MsgNoLabs
	case errors.Is(err, ai.ErrEmptyResumeResponse):
		return msgNoDetails
	case errors.Is(err, ai.ErrResumeFormat):
		return msgBadDetails
	case errors.Is(err, ai.ErrEmptyAnalysisResponse):
		return msgNoAnalysis
	}

	var stepErr *Error
	if errors.As(err, &stepErr) {
		switch stepErr.Kind {
		case KindValidation:
			return MsgNoImage
		case KindImageRead:
			return MsgImageRead
		case KindUpstream:
			if msg := upstreamMessage(stepErr.Err); msg != "" {
				return msg
			}
		}
	}

	return MsgFallback
}

// upstreamMessage returns what the provider or the database said, without
// the context added on the way up.
func upstreamMessage(err error) string {
	if err == nil {
		return ""
	}

	var modelErr *ai.APIError
	if errors.As(err, &modelErr) && modelErr.Message != "" {
		return modelErr.Message
	}
	var tableErr *labs.APIError
	if errors.As(err, &tableErr) && tableErr.Message != "" {
		return tableErr.Message
	}

	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	return err.Error()
}

// KindOf returns the failure kind of err, or KindUpstream when err is not a step error.
func KindOf(err error) Kind {
	var stepErr *Error
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	return KindUpstream
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ai.ErrEmptyResumeResponse),
		errors.Is(err, ai.ErrResumeFormat),
		errors.Is(err, ai.ErrEmptyAnalysisResponse):
		return KindResponseShape
	default:
		return KindUpstream
	}
}
