package studio

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"contentstudio/internal/models"
)

// CreateBrandRequest carries the fields for a brand profile.
type CreateBrandRequest struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	Tone        string `json:"tone"`
	Audience    string `json:"audience"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// ListBrands returns all brand profiles, sorted by name.
func (s *Studio) ListBrands() ([]models.BrandProfile, error) {
	var brands []models.BrandProfile
	if err := s.db.Order("name").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

// GetBrand retrieves a brand profile by ID or name.
func (s *Studio) GetBrand(ref string) (*models.BrandProfile, error) {
	var brand models.BrandProfile
	if err := s.db.Where("id = ? OR name = ?", ref, ref).First(&brand).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("brand profile not found: %s", ref)
		}
		return nil, fmt.Errorf("failed to load brand: %w", err)
	}
	return &brand, nil
}

// CreateBrand saves a new brand profile.
func (s *Studio) CreateBrand(req CreateBrandRequest) (*models.BrandProfile, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("brand name is required")
	}

	brand := &models.BrandProfile{
		Name:        req.Name,
		Industry:    req.Industry,
		Tone:        req.Tone,
		Audience:    req.Audience,
		Description: req.Description,
		Website:     req.Website,
	}

	if err := s.db.Create(brand).Error; err != nil {
		return nil, fmt.Errorf("failed to save brand: %w", err)
	}
	return brand, nil
}

// DeleteBrand removes a brand profile by ID or name.
func (s *Studio) DeleteBrand(ref string) error {
	brand, err := s.GetBrand(ref)
	if err != nil {
		return err
	}

	if err := s.db.Where("id = ?", brand.ID).Delete(&models.BrandProfile{}).Error; err != nil {
		return fmt.Errorf("failed to delete brand: %w", err)
	}
	return nil
}
