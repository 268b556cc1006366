package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/stenoarena/internal/model"
)

type urgency int

const (
	urgencySafe urgency = iota
	urgencyWarn
	urgencyLow
)

func remainingUrgency(seconds int) urgency {
	switch {
	case seconds > 300:
		return urgencySafe
	case seconds > 60:
		return urgencyWarn
	default:
		return urgencyLow
	}
}

func remainingStyle(seconds int) lipgloss.Style {
	switch remainingUrgency(seconds) {
	case urgencySafe:
		return timeSafeStyle
	case urgencyWarn:
		return timeWarnStyle
	default:
		return timeLowStyle
	}
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func timeProgress(test model.TestDefinition, m model.Metrics) int {
	total := test.Duration * 60
	if total <= 0 {
		return 0
	}
	return min(100, m.ElapsedSeconds*100/total)
}

func renderHeader(test model.TestDefinition, m model.Metrics) string {
	segments := []string{
		accentStyle.Render(test.Name),
		"Time " + remainingStyle(m.RemainingSeconds).Render(formatClock(m.RemainingSeconds)),
		fmt.Sprintf("Progress %d%%", timeProgress(test, m)),
		fmt.Sprintf("WPM %d", m.WPM),
		fmt.Sprintf("Accuracy %d%%", m.Accuracy),
		fmt.Sprintf("Words %d", m.WordCount),
		fmt.Sprintf("Chars %d", m.CharacterCount),
	}
	return strings.Join(segments, "  ")
}
