// Package results records finished sessions and exports them.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/stats"
)

// AllRolls is the roll-number filter value that matches every student.
const AllRolls = "all"

// ErrNoResults is returned when an export would be empty.
var ErrNoResults = errors.New("no results to export")

// Repository loads and saves the full list of stored results.
type Repository interface {
	Load(ctx context.Context) ([]model.StoredResult, error)
	Save(ctx context.Context, results []model.StoredResult) error
}

// Service stores and queries results.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// New returns a Service backed by repo.
func New(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Record attributes a finished session to student and stores it.
func (s *Service) Record(ctx context.Context, test model.TestDefinition, student model.Student, record model.ResultRecord) (model.StoredResult, error) {
	stored := model.StoredResult{
		ID:             s.newID(),
		TestID:         test.ID,
		TestName:       test.Name,
		RollNumber:     student.RollNumber,
		Name:           student.Name,
		TypedText:      record.TypedText,
		TimeTaken:      record.TimeTaken,
		WPM:            record.WPM,
		Accuracy:       record.Accuracy,
		WordCount:      record.WordCount,
		CharacterCount: record.CharacterCount,
		Reason:         string(record.Reason),
		SubmittedAt:    s.now(),
	}
	all, err := s.repo.Load(ctx)
	if err != nil {
		return model.StoredResult{}, fmt.Errorf("failed to load results: %w", err)
	}
	all = append(all, stored)
	if err := s.repo.Save(ctx, all); err != nil {
		return model.StoredResult{}, fmt.Errorf("failed to save result: %w", err)
	}
	s.logger.Info("result recorded",
		zap.String("result_id", stored.ID),
		zap.String("test_id", stored.TestID),
		zap.String("roll_number", stored.RollNumber),
		zap.Int("wpm", stored.WPM),
		zap.Int("accuracy", stored.Accuracy),
		zap.String("reason", stored.Reason))
	return stored, nil
}

// List returns results matching filter, most recently submitted first.
func (s *Service) List(ctx context.Context, filter model.ResultFilter) ([]model.StoredResult, error) {
	all, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	out := Filter(all, filter)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// Students returns every student that has at least one result.
func (s *Service) Students(ctx context.Context) ([]model.StudentSummary, error) {
	all, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	return stats.Students(all), nil
}

// Filter keeps results matching the roll number and the case-insensitive query.
func Filter(all []model.StoredResult, filter model.ResultFilter) []model.StoredResult {
	roll := strings.TrimSpace(filter.RollNumber)
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]model.StoredResult, 0, len(all))
	for _, r := range all {
		if roll != "" && roll != AllRolls && r.RollNumber != roll {
			continue
		}
		if query != "" && !matches(r, query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r model.StoredResult, query string) bool {
	for _, field := range []string{r.Name, r.RollNumber, r.TestName} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
