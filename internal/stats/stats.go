// Package stats contains scoring calculations and reporting.
package stats

import (
	"math"
	"strings"
)

const sparkChars = " .:-=+*#%@"

// Words splits text on whitespace runs and drops empty tokens.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount returns the number of non-empty whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// WPM returns words per minute rounded to the nearest integer.
// Zero elapsed time yields 0.
func WPM(words, elapsedSeconds int) int {
	if elapsedSeconds <= 0 {
		return 0
	}
	minutes := float64(elapsedSeconds) / 60.0
	return int(math.Round(float64(words) / minutes))
}

// Accuracy compares typed words to reference words position by position.
// A typed word is correct only when the reference has a word at the same index
// and both are exactly equal. No typed words yields 100.
func Accuracy(typed, reference []string) int {
	if len(typed) == 0 {
		return 100
	}
	correct := CorrectWords(typed, reference)
	return int(math.Round(float64(correct) / float64(len(typed)) * 100))
}

// CorrectWords counts typed words that match the reference at the same position.
func CorrectWords(typed, reference []string) int {
	correct := 0
	for i, word := range typed {
		if i < len(reference) && reference[i] == word {
			correct++
		}
	}
	return correct
}

// PerformanceLevel buckets a result by speed and accuracy.
func PerformanceLevel(wpm, accuracy int) string {
	switch {
	case wpm >= 40 && accuracy >= 95:
		return "Excellent"
	case wpm >= 30 && accuracy >= 90:
		return "Good"
	case wpm >= 20 && accuracy >= 80:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
