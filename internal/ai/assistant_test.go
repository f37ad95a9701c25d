package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/domain"
)

type stubGenerator struct {
	responses []string
	err       error
	requests  []Request
}

func (s *stubGenerator) Generate(_ context.Context, req Request) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("unexpected call")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

var testResume = &domain.ResumeDocument{Name: "resume.png", MIMEType: "image/png", Data: []byte("png")}

func TestTextAssistantExtractResumeDetails(t *testing.T) {
	stub := &stubGenerator{responses: []string{"Major: Computer Science\nKeywords: machine learning, robotics"}}
	assistant := NewTextAssistant(stub, 0, zap.NewNop())

	details, err := assistant.ExtractResumeDetails(context.Background(), testResume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if details.Major != "Computer Science" || details.Keywords != "machine learning, robotics" {
		t.Fatalf("unexpected details: %+v", details)
	}

	req := stub.requests[0]
	if !strings.Contains(req.System, "Major: <major>") || !strings.Contains(req.System, "Keywords: <comma-separated keywords>") {
		t.Fatalf("system prompt must describe the reply format: %q", req.System)
	}
	if req.Resume != testResume || req.Detail != DetailAuto || req.MaxTokens != extractMaxTokens {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestTextAssistantExtractResumeDetailsFormatError(t *testing.T) {
	stub := &stubGenerator{responses: []string{"This looks like a resume."}}
	assistant := NewTextAssistant(stub, 0, nil)

	_, err := assistant.ExtractResumeDetails(context.Background(), testResume)
	if !errors.Is(err, ErrResumeFormat) {
		t.Fatalf("expected ErrResumeFormat, got %v", err)
	}
}

func TestTextAssistantPropagatesGeneratorError(t *testing.T) {
	upstream := errors.New("rate limited")
	assistant := NewTextAssistant(&stubGenerator{err: upstream}, 0, nil)

	_, err := assistant.ExtractResumeDetails(context.Background(), testResume)
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestTextAssistantCompareLabs(t *testing.T) {
	stub := &stubGenerator{responses: []string{"Lab ID: 3\nSimilarity Score: 5\nMatch Reason: strong ML overlap\n---"}}
	assistant := NewTextAssistant(stub, 0, zap.NewNop())

	details := domain.ResumeDetails{Major: "Computer Science", Keywords: "machine learning"}
	labs := []domain.LabRecord{{ID: 3, LabName: "ML Lab", ProfessorName: "Ada Lovelace"}}

	analyses, err := assistant.CompareLabs(context.Background(), details, labs, testResume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analyses) != 1 || analyses[0].LabID != 3 || analyses[0].Score != 5 {
		t.Fatalf("unexpected analyses: %+v", analyses)
	}

	req := stub.requests[0]
	if !strings.Contains(req.System, `major ("Computer Science")`) || !strings.Contains(req.System, `keywords ("machine learning")`) {
		t.Fatalf("system prompt must mention major and keywords: %q", req.System)
	}
	if !strings.Contains(req.System, "Lab ID: <id>") || !strings.HasSuffix(req.System, BlockDelimiter) {
		t.Fatalf("system prompt must describe block format: %q", req.System)
	}
	if !strings.Contains(req.Text, `"Professor Name": "Ada Lovelace"`) || !strings.Contains(req.Text, "Major: Computer Science") {
		t.Fatalf("user text must embed resume details and labs: %q", req.Text)
	}
	if strings.Contains(req.Text, "{{") {
		t.Fatalf("template placeholders left in prompt: %q", req.Text)
	}
	if req.Detail != DetailHigh || req.MaxTokens != compareMaxTokens {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestTextAssistantCompareLabsEmptyReply(t *testing.T) {
	assistant := NewTextAssistant(&stubGenerator{responses: []string{"  "}}, 0, nil)

	_, err := assistant.CompareLabs(context.Background(), domain.ResumeDetails{}, nil, testResume)
	if !errors.Is(err, ErrEmptyAnalysisResponse) {
		t.Fatalf("expected ErrEmptyAnalysisResponse, got %v", err)
	}
}

func TestTextAssistantCompareLabsSendsTableColumns(t *testing.T) {
	stub := &stubGenerator{responses: []string{"Lab ID: 4\nSimilarity Score: 3\nMatch Reason: ok"}}
	assistant := NewTextAssistant(stub, 0, zap.NewNop())

	labs := []domain.LabRecord{
		{
			ID:      4,
			LabName: "Fluids Lab",
			Major:   "Mechanical Engineering",
			Columns: map[string]any{
				"id":               4,
				"Lab Name":         "Fluids Lab",
				"Department/Major": "Mechanical Engineering",
				"Funding":          "NSF",
			},
		},
		{ID: 5, LabName: "Decoded Only Lab"},
	}

	if _, err := assistant.CompareLabs(context.Background(), domain.ResumeDetails{Major: "ME", Keywords: "cfd"}, labs, testResume); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := stub.requests[0].Text
	for _, want := range []string{`"Department/Major": "Mechanical Engineering"`, `"Funding": "NSF"`, `"Lab Name": "Decoded Only Lab"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in prompt: %q", want, text)
		}
	}
	if strings.Contains(text, `"Major": "Mechanical Engineering"`) {
		t.Fatalf("row columns must not be renamed: %q", text)
	}
}
