package labs

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spigell/labconnect/internal/domain"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	DefaultTable = "labconnect"
)

// Source reads every row of the lab table.
type Source interface {
	All(ctx context.Context) ([]domain.LabRecord, error)
}

// Results is a ranked list of labs ready for display.
type Results struct {
	Details domain.ResumeDetails `json:"details"`
	Items   []domain.LabAnalysis `json:"labs"`
}

func (r *Results) Len() int {
	return len(r.Items)
}

func (r *Results) FindByID(id int64) *domain.LabAnalysis {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// Top returns at most n leading entries that carry a score.
func (r *Results) Top(n int) []domain.LabAnalysis {
	top := make([]domain.LabAnalysis, 0, n)
	for _, item := range r.Items {
		if len(top) == n {
			break
		}
		if item.HasScore() {
			top = append(top, item)
		}
	}
	return top
}

// DumpToTmpFile writes the results as indented JSON to a new temporary file.
func (r *Results) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "labs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// DepartmentEntry is one lab in a department report.
type DepartmentEntry struct {
	LabName   string `json:"lab_name"`
	Professor string `json:"professor,omitempty"`
	Score     *int   `json:"score,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ReportByDepartment groups the results by department, keeping ranking order
// inside each group.
func (r *Results) ReportByDepartment() map[string][]DepartmentEntry {
	report := make(map[string][]DepartmentEntry)
	for _, item := range r.Items {
		department := item.Department
		if department == "" {
			department = "Unknown department"
		}
		report[department] = append(report[department], DepartmentEntry{
			LabName:   item.LabName,
			Professor: item.ProfessorName,
			Score:     item.SimilarityScore,
			Reason:    item.Reason(),
		})
	}
	return report
}
