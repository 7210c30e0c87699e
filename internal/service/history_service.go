package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/config"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/repository"
)

// ErrEvaluationNotFound indicates the requested evaluation does not exist.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// HistoryService exposes previously persisted evaluations.
type HistoryService interface {
	List(ctx context.Context, limit int) ([]dto.EvaluationListItem, error)
	Get(ctx context.Context, id uint) (dto.EvaluationResponse, error)
}

type historyService struct {
	repo       repository.EvaluationRepository
	thresholds config.GradeThresholds
	logger     zerolog.Logger
}

// NewHistoryService constructs the history reader.
func NewHistoryService(repo repository.EvaluationRepository, thresholds config.GradeThresholds, logger zerolog.Logger) HistoryService {
	return &historyService{
		repo:       repo,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "history_service").Logger(),
	}
}

func (s *historyService) List(ctx context.Context, limit int) ([]dto.EvaluationListItem, error) {
	evaluations, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.EvaluationListItem, 0, len(evaluations))
	for _, evaluation := range evaluations {
		items = append(items, dto.NewEvaluationListItem(evaluation))
	}

	return items, nil
}

func (s *historyService) Get(ctx context.Context, id uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	response, err := dto.NewEvaluationResponseFromModel(evaluation)
	if err != nil {
		s.logger.Error().Err(err).Uint("evaluation_id", id).Msg("failed to decode stored questions")
		return dto.EvaluationResponse{}, err
	}

	// Credit counts are recomputed; percentage and grade stay as graded,
	// since the thresholds in force at evaluation time are authoritative.
	response.Summary = BuildSummary(response.Questions, response.TotalEarned, response.TotalMax, s.thresholds)
	response.Summary.Percentage = evaluation.Percentage
	response.Summary.Grade = evaluation.Grade
	response.Summary.GradeName = gradeNames[evaluation.Grade]

	return response, nil
}
