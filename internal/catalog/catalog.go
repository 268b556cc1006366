// Package catalog manages scheduled test definitions.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/schedule"
)

const (
	minDuration = 1
	maxDuration = 180
)

var (
	// ErrTestNotFound is returned when no test has the requested ID.
	ErrTestNotFound = errors.New("test not found")
	// ErrInvalidTest is returned when a test definition fails validation.
	ErrInvalidTest = errors.New("invalid test")
)

// Repository loads and saves the full list of tests.
type Repository interface {
	Load(ctx context.Context) ([]model.TestDefinition, error)
	Save(ctx context.Context, tests []model.TestDefinition) error
}

// Catalog creates, edits and lists scheduled tests.
type Catalog struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// New returns a Catalog backed by repo.
func New(repo Repository, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create validates draft, computes its end time and stores it as an upcoming test.
func (c *Catalog) Create(ctx context.Context, draft model.TestDraft) (model.TestDefinition, error) {
	created, err := c.CreateMany(ctx, []model.TestDraft{draft})
	if err != nil {
		return model.TestDefinition{}, err
	}
	return created[0], nil
}

// CreateMany validates every draft before storing any of them.
func (c *Catalog) CreateMany(ctx context.Context, drafts []model.TestDraft) ([]model.TestDefinition, error) {
	created := make([]model.TestDefinition, 0, len(drafts))
	for i, draft := range drafts {
		test := model.TestDefinition{
			ID:        c.newID(),
			Name:      strings.TrimSpace(draft.Name),
			Date:      strings.TrimSpace(draft.Date),
			StartTime: strings.TrimSpace(draft.StartTime),
			Duration:  draft.Duration,
			Paragraph: strings.TrimSpace(draft.Paragraph),
			Status:    model.StatusUpcoming,
		}
		if err := complete(&test); err != nil {
			if len(drafts) > 1 {
				return nil, fmt.Errorf("test #%d: %w", i+1, err)
			}
			return nil, err
		}
		created = append(created, test)
	}

	tests, err := c.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}
	tests = append(tests, created...)
	if err := c.repo.Save(ctx, tests); err != nil {
		return nil, fmt.Errorf("failed to save tests: %w", err)
	}
	for _, test := range created {
		c.logger.Info("test created",
			zap.String("test_id", test.ID),
			zap.String("name", test.Name),
			zap.String("date", test.Date),
			zap.String("start", test.StartTime))
	}
	return created, nil
}

// Update applies patch to the test with id and recomputes its end time.
func (c *Catalog) Update(ctx context.Context, id string, patch model.TestPatch) (model.TestDefinition, error) {
	tests, err := c.repo.Load(ctx)
	if err != nil {
		return model.TestDefinition{}, fmt.Errorf("failed to load tests: %w", err)
	}
	idx := indexOf(tests, id)
	if idx < 0 {
		return model.TestDefinition{}, fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	updated := tests[idx]
	applyString(&updated.Name, patch.Name)
	applyString(&updated.Date, patch.Date)
	applyString(&updated.StartTime, patch.StartTime)
	applyString(&updated.Paragraph, patch.Paragraph)
	if patch.Duration != nil {
		updated.Duration = *patch.Duration
	}
	if err := complete(&updated); err != nil {
		return model.TestDefinition{}, err
	}
	tests[idx] = updated
	if err := c.repo.Save(ctx, tests); err != nil {
		return model.TestDefinition{}, fmt.Errorf("failed to save tests: %w", err)
	}
	c.logger.Info("test updated", zap.String("test_id", id))
	return updated, nil
}

// Delete removes the test with id.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	tests, err := c.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tests: %w", err)
	}
	idx := indexOf(tests, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	tests = append(tests[:idx], tests[idx+1:]...)
	if err := c.repo.Save(ctx, tests); err != nil {
		return fmt.Errorf("failed to save tests: %w", err)
	}
	c.logger.Info("test deleted", zap.String("test_id", id))
	return nil
}

// List returns every test, newest first, with status derived from the current time.
func (c *Catalog) List(ctx context.Context) ([]model.TestDefinition, error) {
	tests, err := c.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}
	tests = schedule.WithStatus(tests, c.now())
	schedule.SortNewestFirst(tests)
	return tests, nil
}

// Get returns the test with id.
func (c *Catalog) Get(ctx context.Context, id string) (model.TestDefinition, error) {
	tests, err := c.List(ctx)
	if err != nil {
		return model.TestDefinition{}, err
	}
	idx := indexOf(tests, id)
	if idx < 0 {
		return model.TestDefinition{}, fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	return tests[idx], nil
}

// Active returns the first test whose window contains the current time.
func (c *Catalog) Active(ctx context.Context) (model.TestDefinition, bool, error) {
	tests, err := c.List(ctx)
	if err != nil {
		return model.TestDefinition{}, false, err
	}
	test, ok := schedule.FirstActive(tests, c.now())
	return test, ok, nil
}

// NextUpcoming returns the earliest test that has not started yet.
func (c *Catalog) NextUpcoming(ctx context.Context) (model.TestDefinition, bool, error) {
	tests, err := c.List(ctx)
	if err != nil {
		return model.TestDefinition{}, false, err
	}
	test, ok := schedule.NextUpcoming(tests, c.now())
	return test, ok, nil
}

// Current returns the active test, or the next upcoming one when none is active.
// The boolean is false when there is neither.
func (c *Catalog) Current(ctx context.Context) (model.TestDefinition, bool, error) {
	if test, ok, err := c.Active(ctx); err != nil || ok {
		return test, ok, err
	}
	return c.NextUpcoming(ctx)
}

// Counts returns how many tests are in each status.
func (c *Catalog) Counts(ctx context.Context) (map[model.Status]int, error) {
	tests, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[model.Status]int{}
	for _, test := range tests {
		counts[test.Status]++
	}
	return counts, nil
}

func complete(test *model.TestDefinition) error {
	var missing []string
	if test.Name == "" {
		missing = append(missing, "name")
	}
	if test.Date == "" {
		missing = append(missing, "date")
	}
	if test.StartTime == "" {
		missing = append(missing, "start time")
	}
	if test.Paragraph == "" {
		missing = append(missing, "paragraph")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidTest, strings.Join(missing, ", "))
	}
	if test.Duration < minDuration || test.Duration > maxDuration {
		return fmt.Errorf("%w: duration must be between %d and %d minutes", ErrInvalidTest, minDuration, maxDuration)
	}
	if _, err := time.Parse(schedule.DateLayout, test.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidTest)
	}
	end, err := schedule.EndTime(test.StartTime, test.Duration)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTest, err)
	}
	test.EndTime = end
	return nil
}

func applyString(target, value *string) {
	if value == nil {
		return
	}
	*target = strings.TrimSpace(*value)
}

func indexOf(tests []model.TestDefinition, id string) int {
	for i, test := range tests {
		if test.ID == id {
			return i
		}
	}
	return -1
}
