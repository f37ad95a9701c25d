package domain

import (
	"encoding/base64"
	"strings"
)

// TopMatchScore is the lowest similarity score rendered with a "Top Match" badge.
const TopMatchScore = 4

// LabRecord is one row of the lab table.
type LabRecord struct {
	ID            int64  `json:"id" mapstructure:"id"`
	Department    string `json:"Department" mapstructure:"Department"`
	ProfessorName string `json:"Professor Name" mapstructure:"Professor Name"`
	Contact       string `json:"Contact" mapstructure:"Contact"`
	LabName       string `json:"Lab Name" mapstructure:"Lab Name"`
	Major         string `json:"Major" mapstructure:"Major"`
	HowToApply    string `json:"How to apply" mapstructure:"How to apply"`
	Description   string `json:"Description" mapstructure:"Description"`

	// Columns is the row as the table returned it, every column included.
	Columns map[string]any `json:"-" mapstructure:"-"`
}

// ResumeDetails is what the model extracted from a resume.
type ResumeDetails struct {
	Major    string `json:"major"`
	Keywords string `json:"keywords"`
}

// Analysis is a single parsed comparison block.
type Analysis struct {
	LabID  int64
	Score  int
	Reason string
}

// LabAnalysis is a lab augmented with the model's verdict, if any.
type LabAnalysis struct {
	LabRecord
	SimilarityScore *int    `json:"similarity_score,omitempty"`
	MatchReason     *string `json:"match_reason,omitempty"`
}

// ScoreOrZero returns the similarity score, treating an absent score as zero.
func (l LabAnalysis) ScoreOrZero() int {
	if l.SimilarityScore == nil {
		return 0
	}
	return *l.SimilarityScore
}

// HasScore reports whether a non-zero score is present.
func (l LabAnalysis) HasScore() bool {
	return l.ScoreOrZero() != 0
}

func (l LabAnalysis) IsTopMatch() bool {
	return l.HasScore() && l.ScoreOrZero() >= TopMatchScore
}

func (l LabAnalysis) Reason() string {
	if l.MatchReason == nil {
		return ""
	}
	return *l.MatchReason
}

// ResumeDocument is an uploaded resume. Images keep their bytes, other
// documents carry the text extracted from them.
type ResumeDocument struct {
	Name     string
	MIMEType string
	Data     []byte
	Text     string
}

func (d *ResumeDocument) IsImage() bool {
	return d != nil && strings.HasPrefix(d.MIMEType, "image/")
}

func (d *ResumeDocument) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

// DataURL returns the document as a data URL suitable for image inputs.
func (d *ResumeDocument) DataURL() string {
	mime := d.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + d.Base64()
}
