package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type styledSegment struct {
	s       string
	width   int
	isSpace bool
}

// buildReviewSegments styles each typed word by whether it matches the
// reference word at the same position.
func buildReviewSegments(typed, reference []string) []styledSegment {
	out := make([]styledSegment, 0, len(typed)*2)
	for i, word := range typed {
		if i > 0 {
			out = append(out, styledSegment{s: " ", width: 1, isSpace: true})
		}
		style := incorrectStyle
		if i < len(reference) && reference[i] == word {
			style = correctStyle
		}
		out = append(out, styledSegment{
			s:     style.Render(word),
			width: runewidth.StringWidth(word),
		})
	}
	return out
}

func renderSegments(segments []styledSegment) string {
	var b strings.Builder
	for _, item := range segments {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapSegments(segments []styledSegment, width int) string {
	if width <= 0 {
		return renderSegments(segments)
	}
	var out strings.Builder
	line := make([]styledSegment, 0, len(segments))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(segments); {
		item := segments[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderSegments(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledSegment{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderSegments(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderSegments(line))
	return out.String()
}

func lineWidthOf(line []styledSegment) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledSegment) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
