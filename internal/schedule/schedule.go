// Package schedule derives test windows and statuses from wall-clock time.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/verte-zerg/stenoarena/internal/model"
)

const (
	// DateLayout is the layout of TestDefinition.Date.
	DateLayout = "2006-01-02"
	// ClockLayout is the layout of TestDefinition.StartTime and EndTime.
	ClockLayout = "15:04"
)

// Window returns the half-open interval [start, end) a test may be started in.
func Window(test model.TestDefinition, loc *time.Location) (start, end time.Time, err error) {
	if loc == nil {
		loc = time.Local
	}
	start, err = time.ParseInLocation(DateLayout+" "+ClockLayout, test.Date+" "+test.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start of test %q: %w", test.Name, err)
	}
	end, err = time.ParseInLocation(DateLayout+" "+ClockLayout, test.Date+" "+test.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end of test %q: %w", test.Name, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("test %q ends before it starts", test.Name)
	}
	return start, end, nil
}

// StatusAt derives the lifecycle status of a test at now.
func StatusAt(test model.TestDefinition, now time.Time) (model.Status, error) {
	start, end, err := Window(test, now.Location())
	if err != nil {
		return "", err
	}
	switch {
	case now.Before(start):
		return model.StatusUpcoming, nil
	case now.Before(end):
		return model.StatusActive, nil
	default:
		return model.StatusCompleted, nil
	}
}

// IsActive reports whether now falls inside the test window.
func IsActive(test model.TestDefinition, now time.Time) bool {
	status, err := StatusAt(test, now)
	return err == nil && status == model.StatusActive
}

// WithStatus returns copies of tests with Status derived at now.
// Tests with an unparseable window keep their stored status.
func WithStatus(tests []model.TestDefinition, now time.Time) []model.TestDefinition {
	out := make([]model.TestDefinition, len(tests))
	for i, test := range tests {
		if status, err := StatusAt(test, now); err == nil {
			test.Status = status
		}
		out[i] = test
	}
	return out
}

// EndTime adds durationMinutes to an HH:MM start time. Windows that would
// cross midnight are rejected.
func EndTime(start string, durationMinutes int) (string, error) {
	parsed, err := time.Parse(ClockLayout, start)
	if err != nil {
		return "", fmt.Errorf("invalid start time %q: %w", start, err)
	}
	if durationMinutes <= 0 {
		return "", fmt.Errorf("duration must be > 0")
	}
	endMinutes := parsed.Hour()*60 + parsed.Minute() + durationMinutes
	if endMinutes >= 24*60 {
		return "", fmt.Errorf("test starting at %s with %d minutes would end after midnight", start, durationMinutes)
	}
	return fmt.Sprintf("%02d:%02d", endMinutes/60, endMinutes%60), nil
}

// NextUpcoming returns the earliest test starting after now.
func NextUpcoming(tests []model.TestDefinition, now time.Time) (model.TestDefinition, bool) {
	var (
		best      model.TestDefinition
		bestStart time.Time
		found     bool
	)
	for _, test := range tests {
		start, _, err := Window(test, now.Location())
		if err != nil || !start.After(now) {
			continue
		}
		if !found || start.Before(bestStart) {
			best, bestStart, found = test, start, true
		}
	}
	return best, found
}

// FirstActive returns the first test whose window contains now.
func FirstActive(tests []model.TestDefinition, now time.Time) (model.TestDefinition, bool) {
	for _, test := range tests {
		if IsActive(test, now) {
			return test, true
		}
	}
	return model.TestDefinition{}, false
}

// Until renders the time left before a test starts.
func Until(test model.TestDefinition, now time.Time) string {
	start, _, err := Window(test, now.Location())
	if err != nil {
		return "unknown"
	}
	diff := start.Sub(now)
	if diff <= 0 {
		return "Test is starting now!"
	}
	total := int(diff / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// SortNewestFirst orders tests by scheduled start, latest first.
func SortNewestFirst(tests []model.TestDefinition) {
	key := func(t model.TestDefinition) string { return t.Date + " " + t.StartTime }
	sort.SliceStable(tests, func(i, j int) bool {
		return key(tests[i]) > key(tests[j])
	})
}
