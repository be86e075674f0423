package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Experiment groups draft variants for an A/B test
type Experiment struct {
	ID         string              `gorm:"primaryKey" json:"id"`
	Name       string              `gorm:"unique;not null" json:"name"`
	GoalMetric string              `gorm:"column:goal_metric;default:conversion_rate" json:"goal_metric"`
	Status     string              `gorm:"default:running" json:"status"` // running, completed
	WinnerID   string              `gorm:"column:winner_id" json:"winner_id,omitempty"`
	Variants   []ExperimentVariant `gorm:"foreignKey:ExperimentID" json:"variants,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (e *Experiment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Experiment) TableName() string {
	return "experiments"
}

// ExperimentVariant is one draft enrolled in an experiment
type ExperimentVariant struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	ExperimentID string    `gorm:"not null;column:experiment_id;index" json:"experiment_id"`
	DraftID      string    `gorm:"not null;column:draft_id" json:"draft_id"`
	Label        string    `json:"label"` // A, B, C...
	Impressions  int64     `gorm:"default:0" json:"impressions"`
	Conversions  int64     `gorm:"default:0" json:"conversions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (ev *ExperimentVariant) BeforeCreate(tx *gorm.DB) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (ExperimentVariant) TableName() string {
	return "experiment_variants"
}
