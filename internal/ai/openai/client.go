package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/ai"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4-turbo"
)

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// chatMessage content is either a string (system) or a list of parts (user).
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generator talks to an OpenAI-compatible chat completions endpoint.
type Generator struct {
	apiKey     string
	model      string
	baseURL    string
	logger     *zap.Logger
	HTTPClient *http.Client
}

func NewGenerator(apiKey, model, baseURL string, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		logger:  logger,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", errors.New("prompt must not be empty")
	}

	parts := []contentPart{{Type: "text", Text: text}}
	if req.Resume != nil {
		if req.Resume.IsImage() {
			parts = append(parts, contentPart{
				Type: "image_url",
				ImageURL: &imageURL{
					URL:    req.Resume.DataURL(),
					Detail: string(req.Detail),
				},
			})
		} else if resumeText := strings.TrimSpace(req.Resume.Text); resumeText != "" {
			parts = append(parts, contentPart{Type: "text", Text: "Resume:\n" + resumeText})
		}
	}

	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: parts})

	body, err := json.Marshal(chatRequest{
		Model:     g.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	g.logger.Debug("make request", zap.String("url", httpReq.URL.String()), zap.Int("body_bytes", len(body)))

	resp, err := g.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		upstream := &ai.APIError{Provider: "openai", Status: resp.StatusCode}
		var apiErr errorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil {
			upstream.Message = apiErr.Error.Message
		}
		return "", upstream
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	// No choices is an empty reply, the caller decides what that means.
	if len(cr.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
