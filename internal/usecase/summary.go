package usecase

import (
	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/org-activity/internal/domain"
)

// ColumnSummary describes the distribution of one counter column across all users.
type ColumnSummary struct {
	Name   string  `json:"name"`
	Total  int     `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Summarize computes totals, means and medians for the counter columns the report shows.
// A report without users yields zero values rather than an error.
func Summarize(report *domain.ReportData) ([]ColumnSummary, error) {
	users := report.Users()
	var summaries []ColumnSummary
	for _, col := range report.Columns() {
		if col.Count == nil {
			continue
		}
		summary := ColumnSummary{Name: col.Name}
		if len(users) == 0 {
			summaries = append(summaries, summary)
			continue
		}

		values := make(stats.Float64Data, 0, len(users))
		for _, login := range users {
			n := col.Count(report.GetOrCreateUserData(login))
			summary.Total += n
			values = append(values, float64(n))
		}
		mean, err := values.Mean()
		if err != nil {
			return nil, err
		}
		median, err := values.Median()
		if err != nil {
			return nil, err
		}
		summary.Mean, summary.Median = mean, median
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
