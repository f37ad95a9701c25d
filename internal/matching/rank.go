package matching

import (
	"cmp"
	"slices"

	"github.com/spigell/labconnect/internal/domain"
)

// Merge augments every lab with the first analysis carrying its id.
// Analyses that match no lab are dropped.
func Merge(labs []domain.LabRecord, analyses []domain.Analysis) []domain.LabAnalysis {
	byID := make(map[int64]domain.Analysis, len(analyses))
	for _, analysis := range analyses {
		if _, seen := byID[analysis.LabID]; seen {
			continue
		}
		byID[analysis.LabID] = analysis
	}

	merged := make([]domain.LabAnalysis, 0, len(labs))
	for _, lab := range labs {
		item := domain.LabAnalysis{LabRecord: lab}
		if analysis, ok := byID[lab.ID]; ok {
			score := analysis.Score
			reason := analysis.Reason
			item.SimilarityScore = &score
			item.MatchReason = &reason
		}
		merged = append(merged, item)
	}

	return merged
}

// Rank orders items by similarity score, highest first. An absent score counts as zero.
func Rank(items []domain.LabAnalysis) {
	slices.SortStableFunc(items, func(a, b domain.LabAnalysis) int {
		return cmp.Compare(b.ScoreOrZero(), a.ScoreOrZero())
	})
}
