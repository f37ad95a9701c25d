package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/labconnect/internal/ai"
	"github.com/spigell/labconnect/internal/domain"
	"github.com/spigell/labconnect/internal/labs"
)

type stubGenerator struct {
	extractReply string
	compareReply string
	err          error
	calls        []ai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.calls) == 1 {
		return s.extractReply, nil
	}
	return s.compareReply, nil
}

func (s *stubGenerator) Model() string { return "stub" }

type stubSource struct {
	records []domain.LabRecord
	err     error
	calls   int
}

func (s *stubSource) All(context.Context) ([]domain.LabRecord, error) {
	s.calls++
	return s.records, s.err
}

var (
	resume = &domain.ResumeDocument{Name: "cv.jpg", MIMEType: "image/jpeg", Data: []byte("jpeg")}
	labSet = []domain.LabRecord{
		{ID: 9, LabName: "Quiet Lab"},
		{ID: 7, LabName: "Robotics Lab"},
		{ID: 3, LabName: "ML Lab"},
	}
)

func newMatcher(gen *stubGenerator, source *stubSource) *Matcher {
	return New(ai.NewTextAssistant(gen, 0, nil), source, zap.NewNop())
}

func TestMatchEndToEnd(t *testing.T) {
	gen := &stubGenerator{
		extractReply: "Major: Computer Science\nKeywords: machine learning, robotics",
		compareReply: "Lab ID: 3\nSimilarity Score: 5\nMatch Reason: strong ML overlap\n---\nLab ID: 7\nSimilarity Score: 2\nMatch Reason: partial overlap\n---",
	}
	source := &stubSource{records: labSet}

	results, err := newMatcher(gen, source).Match(context.Background(), resume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results.Details.Major != "Computer Science" || results.Details.Keywords != "machine learning, robotics" {
		t.Fatalf("unexpected details: %+v", results.Details)
	}

	wantOrder := []int64{3, 7, 9}
	for i, id := range wantOrder {
		if results.Items[i].ID != id {
			t.Fatalf("position %d: expected lab %d, got %d", i, id, results.Items[i].ID)
		}
	}

	if results.Items[0].ScoreOrZero() != 5 || results.Items[0].Reason() != "strong ML overlap" {
		t.Fatalf("unexpected top entry: %+v", results.Items[0])
	}
	if results.Items[2].SimilarityScore != nil || results.Items[2].MatchReason != nil {
		t.Fatalf("expected lab 9 to have no analysis: %+v", results.Items[2])
	}

	if len(gen.calls) != 2 || source.calls != 1 {
		t.Fatalf("expected 2 model calls and 1 fetch, got %d and %d", len(gen.calls), source.calls)
	}
}

func TestMatchStopsOnExtractionFormatError(t *testing.T) {
	gen := &stubGenerator{extractReply: "Major: Computer Science"}
	source := &stubSource{records: labSet}

	_, err := newMatcher(gen, source).Match(context.Background(), resume)
	if !errors.Is(err, ai.ErrResumeFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if KindOf(err) != KindResponseShape {
		t.Fatalf("expected response shape kind, got %s", KindOf(err))
	}
	if Message(err) != "Failed to parse resume details" {
		t.Fatalf("unexpected message: %q", Message(err))
	}
	if len(gen.calls) != 1 {
		t.Fatalf("comparison call must not be issued, got %d calls", len(gen.calls))
	}
	if source.calls != 0 {
		t.Fatalf("labs must not be fetched, got %d fetches", source.calls)
	}
}

func TestMatchFailsOnSourceError(t *testing.T) {
	gen := &stubGenerator{extractReply: "Major: Biology\nKeywords: genetics"}
	source := &stubSource{err: errors.New("connection refused")}

	_, err := newMatcher(gen, source).Match(context.Background(), resume)
	if KindOf(err) != KindUpstream {
		t.Fatalf("expected upstream kind, got %s (%v)", KindOf(err), err)
	}
	if Message(err) != "connection refused" {
		t.Fatalf("expected upstream message, got %q", Message(err))
	}
	if len(gen.calls) != 1 {
		t.Fatalf("comparison call must not be issued, got %d calls", len(gen.calls))
	}
}

func TestMatchFailsOnEmptyTable(t *testing.T) {
	gen := &stubGenerator{extractReply: "Major: Biology\nKeywords: genetics"}

	_, err := newMatcher(gen, &stubSource{}).Match(context.Background(), resume)
	if !errors.Is(err, ErrNoLabs) || Message(err) != MsgNoLabs {
		t.Fatalf("expected no labs error, got %v", err)
	}
}

func TestMatchFailsOnEmptyComparisonReply(t *testing.T) {
	gen := &stubGenerator{extractReply: "Major: Biology\nKeywords: genetics", compareReply: ""}

	_, err := newMatcher(gen, &stubSource{records: labSet}).Match(context.Background(), resume)
	if !errors.Is(err, ai.ErrEmptyAnalysisResponse) {
		t.Fatalf("expected empty analysis error, got %v", err)
	}
	if Message(err) != "Failed to get lab analysis from LLM" {
		t.Fatalf("unexpected message: %q", Message(err))
	}
}

func TestMatchKeepsLabsWhenNoBlockParses(t *testing.T) {
	gen := &stubGenerator{extractReply: "Major: Biology\nKeywords: genetics", compareReply: "I could not compare these labs."}

	results, err := newMatcher(gen, &stubSource{records: labSet}).Match(context.Background(), resume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Len() != len(labSet) {
		t.Fatalf("expected every lab to be kept, got %d", results.Len())
	}
	for _, item := range results.Items {
		if item.SimilarityScore != nil {
			t.Fatalf("expected no scores, got %+v", item)
		}
	}
}

func TestMatchValidatesInputWithoutNetwork(t *testing.T) {
	gen := &stubGenerator{}
	source := &stubSource{}

	_, err := newMatcher(gen, source).Match(context.Background(), nil)
	if !errors.Is(err, ErrNoImage) || KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if Message(err) != MsgNoImage {
		t.Fatalf("unexpected message: %q", Message(err))
	}

	_, err = newMatcher(gen, source).Match(context.Background(), &domain.ResumeDocument{Name: "empty.png", MIMEType: "image/png"})
	if KindOf(err) != KindImageRead || Message(err) != MsgImageRead {
		t.Fatalf("expected image read error, got %v", err)
	}

	if len(gen.calls) != 0 || source.calls != 0 {
		t.Fatalf("no network call expected, got %d model calls and %d fetches", len(gen.calls), source.calls)
	}
}

func TestMatchLogsSteps(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	gen := &stubGenerator{
		extractReply: "Major: Biology\nKeywords: genetics",
		compareReply: "Lab ID: 3\nSimilarity Score: 4\nMatch Reason: ok",
	}

	m := New(ai.NewTextAssistant(gen, 0, nil), &stubSource{records: labSet}, zap.New(core))
	if _, err := m.Match(context.Background(), resume); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var steps []string
	for _, entry := range observed.FilterMessage("search step").All() {
		steps = append(steps, entry.ContextMap()["name"].(string))
	}

	want := []string{StepExtract, StepFetch, StepCompare, StepRank}
	if len(steps) != len(want) {
		t.Fatalf("expected steps %v, got %v", want, steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("expected steps %v, got %v", want, steps)
		}
	}
}

func TestMessageFallback(t *testing.T) {
	if got := Message(errors.New("boom")); got != MsgFallback {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Message(&Error{Kind: KindUpstream, Err: errors.New("")}); got != MsgFallback {
		t.Fatalf("expected fallback for empty upstream message, got %q", got)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}

func TestMessageShowsUpstreamTextWithoutContext(t *testing.T) {
	tests := []struct {
		name      string
		genErr    error
		sourceErr error
		want      string
	}{
		{
			name:   "model provider reply",
			genErr: fmt.Errorf("generate content: %w", &ai.APIError{Provider: "openai", Status: 401, Message: "Incorrect API key provided"}),
			want:   "Incorrect API key provided",
		},
		{
			name:   "model provider without message",
			genErr: &ai.APIError{Provider: "openai", Status: 502},
			want:   "openai HTTP 502",
		},
		{
			name:      "table reply",
			sourceErr: fmt.Errorf("select labconnect: %w", &labs.APIError{Status: "401 Unauthorized", Message: "Invalid API key"}),
			want:      "Invalid API key",
		},
		{
			name:      "transport failure",
			sourceErr: fmt.Errorf("select labconnect: %w", fmt.Errorf("dial tcp: %w", errors.New("connection refused"))),
			want:      "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{extractReply: "Major: Biology\nKeywords: genetics", err: tt.genErr}
			source := &stubSource{records: labSet, err: tt.sourceErr}

			_, err := newMatcher(gen, source).Match(context.Background(), resume)
			if KindOf(err) != KindUpstream {
				t.Fatalf("expected upstream kind, got %s (%v)", KindOf(err), err)
			}
			if got := Message(err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
