package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GenerationRecord tracks one submitted content-generation job
type GenerationRecord struct {
	ID          string    `gorm:"primaryKey" json:"id"`                       // Local record ID
	TaskID      string    `gorm:"uniqueIndex;column:task_id" json:"task_id"`  // Task ID issued by the content API
	ContentType string    `gorm:"not null;column:content_type" json:"content_type"`
	Topic       string    `gorm:"not null" json:"topic"`
	TemplateID  string    `gorm:"column:template_id" json:"template_id"`
	BrandID     string    `gorm:"column:brand_id" json:"brand_id"`
	Status      string    `gorm:"not null;default:starting" json:"status"` // starting, running, completed, failed, cancelled
	Progress    int       `gorm:"not null;default:0" json:"progress"`      // 0-100
	Messages    string    `gorm:"type:text" json:"messages"`               // JSON array of strings
	DraftID     string    `gorm:"column:draft_id" json:"draft_id"`         // Set once the result is saved
	Error       string    `gorm:"type:text" json:"error"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (gr *GenerationRecord) BeforeCreate(tx *gorm.DB) error {
	if gr.ID == "" {
		gr.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (GenerationRecord) TableName() string {
	return "generation_records"
}
