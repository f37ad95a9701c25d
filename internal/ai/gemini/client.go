package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/labconnect/internal/ai"
	"github.com/spigell/labconnect/internal/utils"
)

const (
	defaultModel = "gemini-2.5-pro"

	// Thinking tokens count toward MaxOutputTokens on 2.5 models, so the
	// reply cap of a request is raised by this budget.
	thinkingBudget int32 = 1024

	baseRetryDelay = 2 * time.Second
	// Quota errors asking to come back later than this are not retried.
	maxQuotaDelay = 30 * time.Second
)

// ErrTokenLimit means the model stopped at the output token limit before
// writing any answer text.
var ErrTokenLimit = errors.New("gemini reached the output token limit before answering")

var (
	wait = utils.WaitFor

	retryDelayPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to answer multimodal prompts.
type Generator struct {
	models     contentModels
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
// maxRetries is the total number of attempts; values below one mean one.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate sends the system instruction and a user turn holding the text and
// the resume, and returns the textual reply.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", errors.New("prompt must not be empty")
	}

	parts := []*genai.Part{genai.NewPartFromText(text)}
	if req.Resume != nil {
		if req.Resume.IsImage() {
			parts = append(parts, genai.NewPartFromBytes(req.Resume.Data, req.Resume.MIMEType))
		} else if resumeText := strings.TrimSpace(req.Resume.Text); resumeText != "" {
			parts = append(parts, genai.NewPartFromText("Resume:\n"+resumeText))
		}
	}

	budget := thinkingBudget
	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens) + budget
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	attempts := g.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			return responseText(resp)
		}
		lastErr = err

		delay, retryable := retryDelay(err, attempt)
		if !retryable || attempt == attempts {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return "", err
		}
	}

	var apiErr genai.APIError
	if errors.As(lastErr, &apiErr) {
		return "", fmt.Errorf("generate content: %w", &ai.APIError{
			Provider: "gemini",
			Status:   apiErr.Code,
			Message:  apiErr.Message,
		})
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

// responseText joins the answer parts of every candidate, skipping thoughts.
// A reply without text is returned as an empty string unless the model ran
// out of tokens, which is reported as ErrTokenLimit.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}

	var (
		builder   strings.Builder
		truncated bool
	)
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		if candidate.FinishReason == genai.FinishReasonMaxTokens {
			truncated = true
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" && truncated {
		return "", ErrTokenLimit
	}

	return output, nil
}

// retryDelay reports whether err is temporary and how long to wait before
// the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	backoff := baseRetryDelay * time.Duration(attempt)

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		match := retryDelayPattern.FindStringSubmatch(apiErr.Message)
		if match == nil {
			return backoff, true
		}
		seconds, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return backoff, true
		}
		delay := time.Duration(seconds * float64(time.Second))
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}
