package matching

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/ai"
	"github.com/spigell/labconnect/internal/domain"
	"github.com/spigell/labconnect/internal/labs"
)

const (
	StepExtract = "extract_resume_details"
	StepFetch   = "fetch_labs"
	StepCompare = "compare_labs"
	StepRank    = "merge_and_rank"
)

// Matcher runs one search: extraction, lab fetch, comparison, merge and rank,
// strictly one after another.
type Matcher struct {
	assistant ai.Assistant
	source    labs.Source
	logger    *zap.Logger
}

func New(assistant ai.Assistant, source labs.Source, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{assistant: assistant, source: source, logger: logger}
}

// Match returns the ranked labs for resume. Any failure aborts the search.
func (m *Matcher) Match(ctx context.Context, resume *domain.ResumeDocument) (*labs.Results, error) {
	if resume == nil {
		return nil, &Error{Kind: KindValidation, Err: ErrNoImage}
	}
	if len(resume.Data) == 0 && resume.Text == "" {
		return nil, &Error{Kind: KindImageRead, Step: "read_resume", Err: errors.New("resume is empty")}
	}

	var details domain.ResumeDetails
	err := m.step(StepExtract, func() error {
		var err error
		details, err = m.assistant.ExtractResumeDetails(ctx, resume)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("resume details extracted",
		zap.String("major", details.Major),
		zap.String("keywords", details.Keywords),
	)

	var records []domain.LabRecord
	err = m.step(StepFetch, func() error {
		var err error
		records, err = m.source.All(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return ErrNoLabs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var analyses []domain.Analysis
	err = m.step(StepCompare, func() error {
		var err error
		analyses, err = m.assistant.CompareLabs(ctx, details, records, resume)
		return err
	})
	if err != nil {
		return nil, err
	}

	var ranked []domain.LabAnalysis
	err = m.step(StepRank, func() error {
		ranked = Merge(records, analyses)
		Rank(ranked)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("search completed",
		zap.Int("labs", len(records)),
		zap.Int("analyses", len(analyses)),
	)

	return &labs.Results{Details: details, Items: ranked}, nil
}

func (m *Matcher) step(name string, fn func() error) error {
	started := time.Now()
	err := fn()

	fields := []zap.Field{
		zap.String("name", name),
		zap.Duration("took", time.Since(started)),
	}

	if err != nil {
		kind := classify(err)
		m.logger.Warn("search step failed", append(fields, zap.Stringer("kind", kind), zap.Error(err))...)
		return &Error{Kind: kind, Step: name, Err: err}
	}

	m.logger.Debug("search step", fields...)
	return nil
}
