package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/models"
)

// EvaluationRepository persists and retrieves evaluation history records.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	List(ctx context.Context, limit int) ([]models.Evaluation, error)
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs a GORM-backed evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) List(ctx context.Context, limit int) ([]models.Evaluation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var evaluations []models.Evaluation
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&evaluations).Error

	return evaluations, err
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).First(&evaluation, id).Error

	return evaluation, err
}
