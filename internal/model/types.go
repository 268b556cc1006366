// Package model defines shared data structures.
package model

import "time"

// Status is the lifecycle status of a scheduled test. It is always derived from
// the current time and the test window, never stored as authoritative state.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// TestDefinition describes a scheduled dictation test.
type TestDefinition struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Date      string `json:"date" yaml:"date"`
	StartTime string `json:"startTime" yaml:"start"`
	EndTime   string `json:"endTime" yaml:"end"`
	Duration  int    `json:"duration" yaml:"duration"`
	Paragraph string `json:"paragraph" yaml:"paragraph"`
	Status    Status `json:"status" yaml:"-"`
}

// TestDraft holds the admin-supplied fields of a new test.
type TestDraft struct {
	Name      string `yaml:"name"`
	Date      string `yaml:"date"`
	StartTime string `yaml:"start"`
	Duration  int    `yaml:"duration"`
	Paragraph string `yaml:"paragraph"`
}

// TestPatch holds optional updates to an existing test. Nil fields are left unchanged.
type TestPatch struct {
	Name      *string
	Date      *string
	StartTime *string
	Duration  *int
	Paragraph *string
}

// Student identifies the person taking a test.
type Student struct {
	RollNumber string
	Name       string
}

// Metrics is the live scoring snapshot of a running session.
type Metrics struct {
	RemainingSeconds int
	ElapsedSeconds   int
	WPM              int
	Accuracy         int
	WordCount        int
	CharacterCount   int
}

// CompletionReason records how a session was finalized.
type CompletionReason string

const (
	ReasonTimeout   CompletionReason = "timeout"
	ReasonSubmitted CompletionReason = "submitted"
)

// ResultRecord captures a completed typing session.
type ResultRecord struct {
	TypedText      string
	TimeTaken      int
	WPM            int
	Accuracy       int
	WordCount      int
	CharacterCount int
	StartedAt      time.Time
	EndedAt        time.Time
	Reason         CompletionReason
}

// StoredResult is a ResultRecord attributed to a student and a test.
type StoredResult struct {
	ID             string    `json:"id"`
	TestID         string    `json:"testId"`
	TestName       string    `json:"testName"`
	RollNumber     string    `json:"rollNumber"`
	Name           string    `json:"name"`
	TypedText      string    `json:"typedText"`
	TimeTaken      int       `json:"timeTaken"`
	WPM            int       `json:"wpm"`
	Accuracy       int       `json:"accuracy"`
	WordCount      int       `json:"wordCount"`
	CharacterCount int       `json:"characterCount"`
	Reason         string    `json:"reason,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// ResultFilter narrows stored results for listing and export.
type ResultFilter struct {
	RollNumber string
	Query      string
}

// StudentSummary lists a student and how many results they have.
type StudentSummary struct {
	RollNumber string
	Name       string
	TestCount  int
}
