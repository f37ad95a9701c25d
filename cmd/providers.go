package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/ai"
	"github.com/spigell/labconnect/internal/ai/gemini"
	"github.com/spigell/labconnect/internal/ai/openai"
	"github.com/spigell/labconnect/internal/labs"
	"github.com/spigell/labconnect/internal/logger"
	"github.com/spigell/labconnect/internal/secrets"
)

const (
	providerOpenAI = "openai"
	providerGemini = "gemini"
)

// newLabsSource returns the lab table reader and a cleanup func.
func newLabsSource(ctx context.Context, cfg *LabsConfig, log *zap.Logger) (labs.Source, func(), error) {
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	log = logger.WithLabsFields(log, backend, cfg.Table)

	switch backend {
	case "", labs.BackendSupabase:
		key, err := secrets.Load(secrets.Source{
			Name:  "supabase api key",
			Value: cfg.Supabase.APIKey,
			File:  cfg.Supabase.APIKeyFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set labs.supabase.api-key-file or SUPABASE_KEY)", err)
		}

		client, err := labs.NewRESTClient(cfg.Supabase.URL, key, cfg.Table, log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	case labs.BackendPostgres, labs.BackendSQLite:
		db, err := labs.OpenSQL(ctx, backend, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set labs.dsn or LABS_DSN)", err)
		}
		return labs.NewSQLStore(db, cfg.Table, log), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported labs backend: %s", cfg.Backend)
	}
}

func newAssistant(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Assistant, error) {
	generator, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	assistantLogger := logger.WithCommonFields(log, cfg.Provider, generator.Model())

	return ai.NewTextAssistant(generator, cfg.MaxLogLength, assistantLogger), nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", providerOpenAI:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			File:  cfg.OpenAI.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY)", err)
		}

		genLogger := logger.WithCommonFields(log, providerOpenAI, cfg.OpenAI.Model)
		return openai.NewGenerator(apiKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, genLogger)

	case providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		genLogger := logger.WithCommonFields(log, providerGemini, cfg.Gemini.Model).
			With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))
		return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
