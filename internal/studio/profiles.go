package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"contentstudio/internal/api"
	"contentstudio/internal/crypto"
	"contentstudio/internal/models"
)

// CreateProfileRequest carries the fields for a new workspace profile.
// The token arrives in plain text and is encrypted before it is saved.
type CreateProfileRequest struct {
	Name            string `json:"name"`
	Owner           string `json:"owner"`
	APIURL          string `json:"api_url"`
	APIToken        string `json:"api_token"` // Plain text, will be encrypted
	EventsURL       string `json:"events_url"`
	DefaultIndustry string `json:"default_industry"`
	DefaultBrandID  string `json:"default_brand_id"`
}

// TestConnectionRequest describes credentials to verify without saving.
type TestConnectionRequest struct {
	APIURL   string `json:"api_url"`
	APIToken string `json:"api_token"`
}

// TestConnectionResponse reports the outcome of a connection test.
type TestConnectionResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// ListProfiles returns all workspace profiles, sorted by name.
func (s *Studio) ListProfiles() ([]models.WorkspaceProfile, error) {
	var profiles []models.WorkspaceProfile
	if err := s.db.Order("name").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// GetProfile retrieves a workspace profile by ID or name.
func (s *Studio) GetProfile(ref string) (*models.WorkspaceProfile, error) {
	var profile models.WorkspaceProfile
	if err := s.db.Where("id = ? OR name = ?", ref, ref).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workspace profile not found: %s", ref)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// CreateProfile encrypts the token and saves a new workspace profile.
// The first profile becomes active right away.
func (s *Studio) CreateProfile(req CreateProfileRequest) (*models.WorkspaceProfile, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	if strings.TrimSpace(req.APIURL) == "" {
		return nil, fmt.Errorf("API URL is required")
	}
	if req.APIToken == "" {
		return nil, fmt.Errorf("API token is required")
	}
	if !crypto.IsInitialized() {
		return nil, errors.New("encryption system not initialized - cannot save profiles")
	}

	tokenEnc, err := crypto.EncryptToken(req.APIToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API token: %w", err)
	}

	profile := &models.WorkspaceProfile{
		Name:            req.Name,
		Owner:           req.Owner,
		APIURL:          strings.TrimRight(req.APIURL, "/"),
		APITokenEnc:     tokenEnc,
		EventsURL:       req.EventsURL,
		DefaultIndustry: req.DefaultIndustry,
		DefaultBrandID:  req.DefaultBrandID,
	}

	var count int64
	s.db.Model(&models.WorkspaceProfile{}).Count(&count)

	if err := s.db.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	if count == 0 {
		if err := s.UseProfile(profile.ID); err != nil {
			log.Printf("WARNING: failed to activate profile %q: %v", profile.Name, err)
		}
	}

	return profile, nil
}

// UpdateProfile updates an existing workspace profile. The token is
// re-encrypted only when a new one is provided.
func (s *Studio) UpdateProfile(ref string, req CreateProfileRequest) error {
	profile, err := s.GetProfile(ref)
	if err != nil {
		return err
	}

	profile.Name = req.Name
	profile.Owner = req.Owner
	profile.APIURL = strings.TrimRight(req.APIURL, "/")
	profile.EventsURL = req.EventsURL
	profile.DefaultIndustry = req.DefaultIndustry
	profile.DefaultBrandID = req.DefaultBrandID

	if req.APIToken != "" {
		tokenEnc, err := crypto.EncryptToken(req.APIToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt API token: %w", err)
		}
		profile.APITokenEnc = tokenEnc
	}

	if err := s.db.Save(profile).Error; err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	// An edit to the active workspace takes effect immediately
	if s.activeProfile != nil && s.activeProfile.ID == profile.ID {
		return s.bindWorkspace(profile)
	}
	return nil
}

// DeleteProfile removes a workspace profile. Deleting the active one
// takes generation offline until another profile is selected.
func (s *Studio) DeleteProfile(ref string) error {
	profile, err := s.GetProfile(ref)
	if err != nil {
		return err
	}

	if err := s.db.Where("id = ?", profile.ID).Delete(&models.WorkspaceProfile{}).Error; err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if s.activeProfile != nil && s.activeProfile.ID == profile.ID {
		s.unbindWorkspace()
	}
	return nil
}

// UseProfile activates a workspace profile: the active flag moves in
// the database and the API client is rebuilt from the new profile.
func (s *Studio) UseProfile(ref string) error {
	profile, err := s.GetProfile(ref)
	if err != nil {
		return err
	}

	if err := s.db.Model(&models.WorkspaceProfile{}).Where("active = ?", true).Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to clear active profile: %w", err)
	}
	if err := s.db.Model(&models.WorkspaceProfile{}).Where("id = ?", profile.ID).Update("active", true).Error; err != nil {
		return fmt.Errorf("failed to activate profile: %w", err)
	}
	profile.Active = true

	if err := s.bindWorkspace(profile); err != nil {
		return err
	}

	log.Printf("Active workspace: %s (%s)", profile.Name, profile.APIURL)
	return nil
}

// TestConnection verifies a workspace URL and token without saving
// them.
func (s *Studio) TestConnection(req TestConnectionRequest) TestConnectionResponse {
	client := api.NewClient(req.APIURL, req.APIToken)

	resp, err := client.Get(s.ctx, "me", nil)
	if err != nil {
		return TestConnectionResponse{
			Success: false,
			Error:   fmt.Sprintf("Connection failed: %v", err),
		}
	}

	if !resp.IsSuccess() {
		var errorMsg string
		switch resp.StatusCode() {
		case 401:
			errorMsg = "Invalid API token"
		case 403:
			errorMsg = "Access forbidden (check token scopes)"
		case 404:
			errorMsg = "Server not found or invalid URL"
		default:
			errorMsg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status())
		}
		return TestConnectionResponse{
			Success: false,
			Error:   errorMsg,
		}
	}

	// Parse account info from the response
	var account struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Workspace string `json:"workspace"`
	}

	if err := json.Unmarshal(resp.Body(), &account); err == nil {
		userName := account.Name
		if userName == "" {
			userName = account.Email
		}
		if userName == "" {
			userName = "Connected User"
		}
		return TestConnectionResponse{
			Success:   true,
			UserName:  userName,
			Workspace: account.Workspace,
		}
	}

	// Connection succeeded but the account info did not parse
	return TestConnectionResponse{
		Success:  true,
		UserName: "Connected User",
	}
}

// TestProfile runs a connection check with a saved profile's
// credentials. An empty ref checks the active profile.
func (s *Studio) TestProfile(ref string) (TestConnectionResponse, error) {
	var profile *models.WorkspaceProfile
	if ref == "" {
		if s.activeProfile == nil {
			return TestConnectionResponse{}, ErrNoWorkspace
		}
		profile = s.activeProfile
	} else {
		var err error
		profile, err = s.GetProfile(ref)
		if err != nil {
			return TestConnectionResponse{}, err
		}
	}

	token, err := crypto.DecryptToken(profile.APITokenEnc)
	if err != nil {
		return TestConnectionResponse{}, fmt.Errorf("failed to decrypt API token: %w", err)
	}

	return s.TestConnection(TestConnectionRequest{
		APIURL:   profile.APIURL,
		APIToken: token,
	}), nil
}
