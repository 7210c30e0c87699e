package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation is one persisted grading run: the configuration it was run
// with plus the reconciled outcome. The per-question breakdown is stored as
// a JSON column since it is only ever read back whole.
type Evaluation struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Model           string         `gorm:"size:128;not null" json:"model"`
	Strictness      string         `gorm:"size:16;not null" json:"strictness"`
	PartialCredit   bool           `gorm:"not null" json:"partial_credit"`
	TotalEarned     float64        `gorm:"not null" json:"total_earned"`
	TotalMax        float64        `gorm:"not null" json:"total_max"`
	Percentage      float64        `gorm:"not null" json:"percentage"`
	Grade           string         `gorm:"size:2;not null" json:"grade"`
	OverallFeedback string         `gorm:"type:text" json:"overall_feedback"`
	Questions       datatypes.JSON `json:"questions"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
