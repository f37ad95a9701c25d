package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/domain"
	"github.com/spigell/labconnect/internal/utils"
)

const (
	extractMaxTokens = 150
	compareMaxTokens = 1000

	defaultMaxLogLength = 200
)

var (
	//go:embed prompts/extract.md
	extractSystemPrompt string
	//go:embed prompts/extract_user.md
	extractUserPrompt string
	//go:embed prompts/compare.md
	compareSystemTemplate string
	//go:embed prompts/compare_user.md
	compareUserTemplate string
)

// TextAssistant implements Assistant on top of a Generator using the
// plain-text reply formats declared in format.go.
type TextAssistant struct {
	generator Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewTextAssistant(generator Generator, maxLogLength int, logger *zap.Logger) *TextAssistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TextAssistant{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *TextAssistant) ExtractResumeDetails(ctx context.Context, resume *domain.ResumeDocument) (domain.ResumeDetails, error) {
	if resume == nil {
		return domain.ResumeDetails{}, fmt.Errorf("resume is required")
	}

	raw, err := a.generate(ctx, "extract", Request{
		System:    strings.TrimSpace(extractSystemPrompt),
		Text:      strings.TrimSpace(extractUserPrompt),
		Resume:    resume,
		Detail:    DetailAuto,
		MaxTokens: extractMaxTokens,
	})
	if err != nil {
		return domain.ResumeDetails{}, err
	}

	return ParseResumeDetails(raw)
}

func (a *TextAssistant) CompareLabs(ctx context.Context, details domain.ResumeDetails, labs []domain.LabRecord, resume *domain.ResumeDocument) ([]domain.Analysis, error) {
	labsJSON, err := json.MarshalIndent(labsPayload(labs), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal labs payload: %w", err)
	}

	raw, err := a.generate(ctx, "compare", Request{
		System:    fillTemplate(compareSystemTemplate, details, ""),
		Text:      fillTemplate(compareUserTemplate, details, string(labsJSON)),
		Resume:    resume,
		Detail:    DetailHigh,
		MaxTokens: compareMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyAnalysisResponse
	}

	analyses := ParseLabAnalyses(raw)
	a.logger.Debug("parsed lab analyses",
		zap.Int("labs", len(labs)),
		zap.Int("analyses", len(analyses)),
	)

	return analyses, nil
}

func (a *TextAssistant) generate(ctx context.Context, call string, req Request) (string, error) {
	a.logger.Debug("model request",
		zap.String("call", call),
		zap.Int("prompt_length", utf8.RuneCountInString(req.System)+utf8.RuneCountInString(req.Text)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Text, a.maxLogLen)),
	)

	raw, err := a.generator.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s call: %w", call, err)
	}

	a.logger.Debug("model response",
		zap.String("call", call),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	return raw, nil
}

// labsPayload prefers the rows as read from the table so the model sees
// every column under its own name.
func labsPayload(labs []domain.LabRecord) []any {
	payload := make([]any, len(labs))
	for i, lab := range labs {
		if lab.Columns != nil {
			payload[i] = lab.Columns
			continue
		}
		payload[i] = lab
	}
	return payload
}

func fillTemplate(template string, details domain.ResumeDetails, labsJSON string) string {
	out := strings.ReplaceAll(strings.TrimSpace(template), "{{MAJOR}}", details.Major)
	out = strings.ReplaceAll(out, "{{KEYWORDS}}", details.Keywords)
	return strings.ReplaceAll(out, "{{LABS_JSON}}", labsJSON)
}
