package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/labconnect/internal/domain"
)

// ImageDetail is the resolution hint sent with an image attachment.
type ImageDetail string

const (
	DetailAuto ImageDetail = "auto"
	DetailHigh ImageDetail = "high"
)

var (
	ErrEmptyResumeResponse   = errors.New("failed to extract resume details")
	ErrResumeFormat          = errors.New("failed to parse resume details")
	ErrEmptyAnalysisResponse = errors.New("failed to get lab analysis from model")
)

// APIError is an error reply from a model provider. Message is the text the
// provider returned, if any.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s HTTP %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s HTTP %d: %s", e.Provider, e.Status, e.Message)
}

// Request is a single chat-style completion: a system instruction and one
// user turn made of text plus the resume.
type Request struct {
	System    string
	Text      string
	Resume    *domain.ResumeDocument
	Detail    ImageDetail
	MaxTokens int
}

// Generator sends one request to a model and returns its free-text reply.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// Assistant performs the two model calls of a search.
type Assistant interface {
	ExtractResumeDetails(ctx context.Context, resume *domain.ResumeDocument) (domain.ResumeDetails, error)
	CompareLabs(ctx context.Context, details domain.ResumeDetails, labs []domain.LabRecord, resume *domain.ResumeDocument) ([]domain.Analysis, error)
}
