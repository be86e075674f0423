package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Draft is a saved generation output
type Draft struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Body         string    `gorm:"type:text" json:"body"`
	ContentType  string    `gorm:"not null;column:content_type" json:"content_type"`
	Industry     string    `json:"industry"`
	TemplateID   string    `gorm:"column:template_id" json:"template_id"`
	BrandID      string    `gorm:"column:brand_id" json:"brand_id"`
	TaskID       string    `gorm:"column:task_id" json:"task_id"` // Generation task that produced this draft
	VariantGroup string    `gorm:"column:variant_group;index" json:"variant_group,omitempty"` // Experiment the draft is enrolled in
	QualityScore float64   `gorm:"column:quality_score" json:"quality_score"`
	WordCount    int       `gorm:"column:word_count" json:"word_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (d *Draft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Draft) TableName() string {
	return "drafts"
}
