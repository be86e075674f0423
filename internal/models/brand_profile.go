package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BrandProfile captures the brand voice used to fill template placeholders
type BrandProfile struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"unique;not null" json:"name"`
	Industry    string    `json:"industry"`
	Tone        string    `json:"tone"`     // e.g. "friendly", "authoritative"
	Audience    string    `json:"audience"` // e.g. "IT decision makers"
	Description string    `gorm:"type:text" json:"description"`
	Website     string    `json:"website"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (bp *BrandProfile) BeforeCreate(tx *gorm.DB) error {
	if bp.ID == "" {
		bp.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (BrandProfile) TableName() string {
	return "brand_profiles"
}
