package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkspaceProfile represents a named connection to a content API workspace
type WorkspaceProfile struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"unique;not null" json:"name"`
	Owner           string    `json:"owner"`
	APIURL          string    `gorm:"not null;column:api_url" json:"api_url"`
	APITokenEnc     string    `gorm:"not null;column:api_token_enc" json:"-"` // Encrypted, never expose in JSON
	EventsURL       string    `gorm:"column:events_url" json:"events_url"`    // Optional push endpoint override
	DefaultIndustry string    `gorm:"column:default_industry" json:"default_industry"`
	DefaultBrandID  string    `gorm:"column:default_brand_id" json:"default_brand_id"`
	Active          bool      `gorm:"default:false" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (wp *WorkspaceProfile) BeforeCreate(tx *gorm.DB) error {
	if wp.ID == "" {
		wp.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (WorkspaceProfile) TableName() string {
	return "workspace_profiles"
}
