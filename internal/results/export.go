package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/stenoarena/internal/model"
)

// AllResultsFileName is the export file name when no student filter is applied.
const AllResultsFileName = "all_test_results.csv"

var csvHeader = []string{
	"Roll Number",
	"Name",
	"Test Name",
	"WPM",
	"Accuracy (%)",
	"Time Taken (min)",
	"Submitted At",
}

// WriteCSV writes results as CSV. Time taken is rounded to whole minutes.
func WriteCSV(w io.Writer, results []model.StoredResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.RollNumber,
			r.Name,
			r.TestName,
			strconv.Itoa(r.WPM),
			strconv.Itoa(r.Accuracy),
			strconv.Itoa(int(math.Round(float64(r.TimeTaken) / 60))),
			r.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFileName names the export for one student, or for everyone when
// student is nil.
func ExportFileName(student *model.Student) string {
	if student == nil {
		return AllResultsFileName
	}
	return fmt.Sprintf("%s_%s_results.csv", fileSafe(student.RollNumber), fileSafe(student.Name))
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}
