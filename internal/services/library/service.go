package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"contentstudio/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service handles browsing of saved drafts and generation history
type Service struct {
	db  *gorm.DB
	ctx context.Context
}

// NewService creates a new library service
func NewService(db *gorm.DB, ctx context.Context) *Service {
	return &Service{db: db, ctx: ctx}
}

// ListHistory retrieves past generation records, newest first
func (s *Service) ListHistory(filter HistoryFilter) ([]HistoryEntry, error) {
	query := s.db.Model(&models.GenerationRecord{}).Order("created_at DESC")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ContentType != "" {
		query = query.Where("content_type = ?", filter.ContentType)
	}
	query = query.Limit(listLimit(filter.Limit))

	var records []models.GenerationRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]HistoryEntry, len(records))
	for i, record := range records {
		entries[i] = HistoryEntry{
			TaskID:      record.TaskID,
			ContentType: record.ContentType,
			Topic:       record.Topic,
			TemplateID:  record.TemplateID,
			Status:      record.Status,
			Progress:    record.Progress,
			Error:       record.Error,
			DraftID:     record.DraftID,
			CreatedAt:   record.CreatedAt.Format(time.RFC3339),
		}
	}
	return entries, nil
}

// ListDrafts retrieves saved drafts, newest first
func (s *Service) ListDrafts(filter DraftFilter) ([]DraftSummary, error) {
	query := s.db.Model(&models.Draft{}).Order("created_at DESC")

	if filter.ContentType != "" {
		query = query.Where("content_type = ?", filter.ContentType)
	}
	if filter.Industry != "" {
		query = query.Where("industry = ?", filter.Industry)
	}
	if filter.Search != "" {
		query = query.Where("title LIKE ?", "%"+filter.Search+"%")
	}
	query = query.Limit(listLimit(filter.Limit))

	var drafts []models.Draft
	if err := query.Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	summaries := make([]DraftSummary, len(drafts))
	for i, draft := range drafts {
		summaries[i] = DraftSummary{
			ID:           draft.ID,
			Title:        draft.Title,
			ContentType:  draft.ContentType,
			Industry:     draft.Industry,
			WordCount:    draft.WordCount,
			QualityScore: draft.QualityScore,
			VariantGroup: draft.VariantGroup,
			TaskID:       draft.TaskID,
			CreatedAt:    draft.CreatedAt.Format(time.RFC3339),
		}
	}
	return summaries, nil
}

// GetDraft retrieves one draft with its full body
func (s *Service) GetDraft(draftID string) (*models.Draft, error) {
	var draft models.Draft
	if err := s.db.First(&draft, "id = ?", draftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("draft not found: %s", draftID)
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return &draft, nil
}

// DeleteDraft removes a saved draft. Drafts enrolled in an experiment stay
// until the experiment no longer needs them.
func (s *Service) DeleteDraft(draftID string) error {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return err
	}
	if draft.VariantGroup != "" {
		return fmt.Errorf("draft is enrolled in experiment %s", draft.VariantGroup)
	}

	if err := s.db.Delete(&models.Draft{}, "id = ?", draftID).Error; err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// ExportDraft renders a draft in JSON or Markdown format
func (s *Service) ExportDraft(draftID, format string) (string, error) {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return "", err
	}

	if format == "json" {
		data, err := json.MarshalIndent(draft, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(data), nil
	}

	if format == "markdown" {
		var buf strings.Builder
		fmt.Fprintf(&buf, "# %s\n\n", draft.Title)
		fmt.Fprintf(&buf, "- Type: %s\n", draft.ContentType)
		if draft.Industry != "" {
			fmt.Fprintf(&buf, "- Industry: %s\n", draft.Industry)
		}
		if draft.QualityScore > 0 {
			fmt.Fprintf(&buf, "- Quality: %.1f/100\n", draft.QualityScore)
		}
		fmt.Fprintf(&buf, "- Words: %d\n\n", draft.WordCount)
		buf.WriteString(draft.Body)
		buf.WriteString("\n")
		return buf.String(), nil
	}

	return "", fmt.Errorf("unsupported format: %s", format)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
