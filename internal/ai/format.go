package ai

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/labconnect/internal/domain"
)

// Extraction reply format:
//
//	Major: <major>
//	Keywords: <comma-separated keywords>
const (
	MajorMarker    = "Major:"
	KeywordsMarker = "Keywords:"
)

// Comparison reply format, one block per lab:
//
//	Lab ID: <id>
//	Similarity Score: <score>
//	Match Reason: <reason>
//	---
const (
	LabIDMarker    = "Lab ID:"
	ScoreMarker    = "Similarity Score:"
	ReasonMarker   = "Match Reason:"
	BlockDelimiter = "---"
)

var (
	majorPattern    = regexp.MustCompile(regexp.QuoteMeta(MajorMarker) + `\s*(.+)`)
	keywordsPattern = regexp.MustCompile(regexp.QuoteMeta(KeywordsMarker) + `\s*(.+)`)

	labIDPattern  = regexp.MustCompile(regexp.QuoteMeta(LabIDMarker) + `\s*(\d+)`)
	scorePattern  = regexp.MustCompile(regexp.QuoteMeta(ScoreMarker) + `\s*(\d+)`)
	reasonPattern = regexp.MustCompile(regexp.QuoteMeta(ReasonMarker) + `\s*([\s\S]+)`)
)

// ParseResumeDetails reads the extraction reply. Both markers are required.
func ParseResumeDetails(raw string) (domain.ResumeDetails, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return domain.ResumeDetails{}, ErrEmptyResumeResponse
	}

	major := majorPattern.FindStringSubmatch(content)
	keywords := keywordsPattern.FindStringSubmatch(content)
	if major == nil || keywords == nil {
		return domain.ResumeDetails{}, ErrResumeFormat
	}

	return domain.ResumeDetails{
		Major:    strings.TrimSpace(major[1]),
		Keywords: strings.TrimSpace(keywords[1]),
	}, nil
}

// ParseLabAnalyses reads the comparison reply. Blocks missing any of the
// three fields are dropped.
func ParseLabAnalyses(raw string) []domain.Analysis {
	blocks := strings.Split(raw, BlockDelimiter)
	analyses := make([]domain.Analysis, 0, len(blocks))

	for _, block := range blocks {
		analysis, ok := parseBlock(block)
		if !ok {
			continue
		}
		analyses = append(analyses, analysis)
	}

	return analyses
}

func parseBlock(block string) (domain.Analysis, bool) {
	id := labIDPattern.FindStringSubmatch(block)
	score := scorePattern.FindStringSubmatch(block)
	reason := reasonPattern.FindStringSubmatch(block)
	if id == nil || score == nil || reason == nil {
		return domain.Analysis{}, false
	}

	labID, err := strconv.ParseInt(id[1], 10, 64)
	if err != nil {
		return domain.Analysis{}, false
	}
	value, err := strconv.Atoi(score[1])
	if err != nil {
		return domain.Analysis{}, false
	}

	return domain.Analysis{
		LabID:  labID,
		Score:  value,
		Reason: strings.TrimSpace(reason[1]),
	}, true
}
