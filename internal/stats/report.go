package stats

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/verte-zerg/stenoarena/internal/model"
)

// ResultSource lists stored results matching a filter.
type ResultSource interface {
	List(ctx context.Context, filter model.ResultFilter) ([]model.StoredResult, error)
}

// Summary aggregates scores across results.
type Summary struct {
	Count       int
	AvgWPM      float64
	BestWPM     int
	AvgAccuracy float64
}

// Report contains precomputed data for results rendering.
type Report struct {
	Results  []model.StoredResult
	Summary  Summary
	Students []model.StudentSummary
}

// BuildReport loads and prepares data for results rendering.
func BuildReport(ctx context.Context, src ResultSource, filter model.ResultFilter) (Report, error) {
	results, err := src.List(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Results:  results,
		Summary:  Summarize(results),
		Students: Students(results),
	}, nil
}

// Summarize computes averages and the best WPM for results.
func Summarize(results []model.StoredResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	var totalWPM, totalAcc int
	best := 0
	for _, r := range results {
		totalWPM += r.WPM
		totalAcc += r.Accuracy
		best = max(best, r.WPM)
	}
	count := float64(len(results))
	return Summary{
		Count:       len(results),
		AvgWPM:      float64(totalWPM) / count,
		BestWPM:     best,
		AvgAccuracy: float64(totalAcc) / count,
	}
}

// Students lists unique roll numbers with their name and result count.
func Students(results []model.StoredResult) []model.StudentSummary {
	byRoll := map[string]*model.StudentSummary{}
	for _, r := range results {
		entry, ok := byRoll[r.RollNumber]
		if !ok {
			entry = &model.StudentSummary{RollNumber: r.RollNumber, Name: r.Name}
			byRoll[r.RollNumber] = entry
		}
		entry.TestCount++
	}
	out := make([]model.StudentSummary, 0, len(byRoll))
	for _, entry := range byRoll {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RollNumber < out[j].RollNumber
	})
	return out
}

// RenderSummary prints a summary block for results.
func RenderSummary(w io.Writer, s Summary) error {
	if s.Count == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Results: %d", s.Count),
		fmt.Sprintf("Avg WPM: %.1f", s.AvgWPM),
		fmt.Sprintf("Best WPM: %d", s.BestWPM),
		fmt.Sprintf("Avg Accuracy: %.1f%%", s.AvgAccuracy),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderResultTable prints one row per stored result.
func RenderResultTable(w io.Writer, results []model.StoredResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	headers := []string{"Roll Number", "Name", "Test", "WPM", "Accuracy", "Time", "Level", "Submitted At"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.RollNumber,
			r.Name,
			r.TestName,
			strconv.Itoa(r.WPM),
			fmt.Sprintf("%d%%", r.Accuracy),
			FormatDuration(r.TimeTaken),
			PerformanceLevel(r.WPM, r.Accuracy),
			r.SubmittedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	rightAlign := map[int]bool{3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderStudentTable prints the unique students found in results.
func RenderStudentTable(w io.Writer, students []model.StudentSummary) error {
	if len(students) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{s.RollNumber, s.Name, strconv.Itoa(s.TestCount)})
	}
	for _, line := range formatTable([]string{"Roll Number", "Name", "Tests"}, rows, map[int]bool{2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderTrend prints a WPM and accuracy sparkline for results in submission order.
func RenderTrend(w io.Writer, results []model.StoredResult, window int) error {
	if len(results) < 2 {
		return nil
	}
	ordered := make([]model.StoredResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})
	wpms := make([]float64, len(ordered))
	accs := make([]float64, len(ordered))
	for i, r := range ordered {
		wpms[i] = float64(r.WPM)
		accs[i] = float64(r.Accuracy)
	}
	if _, err := fmt.Fprintf(w, "WPM trend      %s\n", Sparkline(MovingAverage(wpms, window))); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Accuracy trend %s\n\n", Sparkline(MovingAverage(accs, window)))
	return err
}

// FormatDuration renders seconds as M:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
