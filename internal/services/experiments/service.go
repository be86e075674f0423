package experiments

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"contentstudio/internal/models"
)

// Variants with fewer impressions than this leave the evaluation inconclusive
const minImpressionsPerVariant = 30

// Service handles A/B experiments over saved drafts
type Service struct {
	db  *gorm.DB
	ctx context.Context
}

// NewService creates a new experiments service
func NewService(db *gorm.DB, ctx context.Context) *Service {
	return &Service{db: db, ctx: ctx}
}

// CreateExperiment groups two or more drafts as variants of a new experiment
func (s *Service) CreateExperiment(req CreateExperimentRequest) (*models.Experiment, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("experiment name is required")
	}
	if len(req.DraftIDs) < 2 {
		return nil, fmt.Errorf("an experiment needs at least two draft variants")
	}

	seen := make(map[string]bool, len(req.DraftIDs))
	for _, draftID := range req.DraftIDs {
		if seen[draftID] {
			return nil, fmt.Errorf("draft %s is listed twice", draftID)
		}
		seen[draftID] = true
	}

	goal := req.Goal
	if goal == "" {
		goal = "conversion_rate"
	}

	// Verify the drafts exist and are not already enrolled elsewhere
	var drafts []models.Draft
	if err := s.db.Where("id IN ?", req.DraftIDs).Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("failed to load drafts: %w", err)
	}
	if len(drafts) != len(req.DraftIDs) {
		found := make(map[string]bool, len(drafts))
		for _, draft := range drafts {
			found[draft.ID] = true
		}
		for _, draftID := range req.DraftIDs {
			if !found[draftID] {
				return nil, fmt.Errorf("draft not found: %s", draftID)
			}
		}
	}
	for _, draft := range drafts {
		if draft.VariantGroup != "" {
			return nil, fmt.Errorf("draft %s is already enrolled in an experiment", draft.ID)
		}
	}

	experiment := models.Experiment{
		Name:       req.Name,
		GoalMetric: goal,
		Status:     "running",
	}
	if err := s.db.Create(&experiment).Error; err != nil {
		return nil, fmt.Errorf("failed to create experiment: %w", err)
	}

	for i, draftID := range req.DraftIDs {
		variant := models.ExperimentVariant{
			ExperimentID: experiment.ID,
			DraftID:      draftID,
			Label:        variantLabel(i),
		}
		if err := s.db.Create(&variant).Error; err != nil {
			return nil, fmt.Errorf("failed to create variant: %w", err)
		}
		experiment.Variants = append(experiment.Variants, variant)
	}

	// Stamp the variant group on the enrolled drafts
	if err := s.db.Model(&models.Draft{}).Where("id IN ?", req.DraftIDs).
		Update("variant_group", experiment.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to stamp variant group: %w", err)
	}

	return &experiment, nil
}

// RecordMetrics accumulates impression and conversion counters on a variant.
// The variant can be addressed by ID or by label.
func (s *Service) RecordMetrics(update MetricsUpdate) (*VariantReport, error) {
	if update.Impressions < 0 || update.Conversions < 0 {
		return nil, fmt.Errorf("impressions and conversions must not be negative")
	}
	if update.Impressions == 0 && update.Conversions == 0 {
		return nil, fmt.Errorf("nothing to record")
	}

	var experiment models.Experiment
	if err := s.db.First(&experiment, "id = ?", update.ExperimentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("experiment not found: %s", update.ExperimentID)
		}
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}
	if experiment.Status == "completed" {
		return nil, fmt.Errorf("experiment %s is completed, metrics are frozen", experiment.Name)
	}

	var variant models.ExperimentVariant
	err := s.db.First(&variant, "experiment_id = ? AND (id = ? OR label = ?)",
		update.ExperimentID, update.VariantID, strings.ToUpper(update.VariantID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("variant not found in experiment: %s", update.VariantID)
		}
		return nil, fmt.Errorf("failed to load variant: %w", err)
	}

	variant.Impressions += update.Impressions
	variant.Conversions += update.Conversions
	if err := s.db.Save(&variant).Error; err != nil {
		return nil, fmt.Errorf("failed to update metrics: %w", err)
	}

	report := VariantReport{
		VariantID:      variant.ID,
		DraftID:        variant.DraftID,
		Label:          variant.Label,
		Impressions:    variant.Impressions,
		Conversions:    variant.Conversions,
		ConversionRate: conversionRate(variant.Impressions, variant.Conversions),
	}
	return &report, nil
}

// Evaluate computes the conversion rate per variant, the current leader and
// its relative lift. Experiments without enough data come back inconclusive
// rather than failing.
func (s *Service) Evaluate(experimentID string) (*ExperimentReport, error) {
	experiment, err := s.getExperiment(experimentID)
	if err != nil {
		return nil, err
	}

	report := &ExperimentReport{
		ExperimentID: experiment.ID,
		Name:         experiment.Name,
		Goal:         experiment.GoalMetric,
		Status:       experiment.Status,
		WinnerID:     experiment.WinnerID,
	}

	// Draft titles for display
	draftIDs := make([]string, 0, len(experiment.Variants))
	for _, variant := range experiment.Variants {
		draftIDs = append(draftIDs, variant.DraftID)
	}
	titles := make(map[string]string, len(draftIDs))
	if len(draftIDs) > 0 {
		var drafts []models.Draft
		if err := s.db.Where("id IN ?", draftIDs).Find(&drafts).Error; err != nil {
			return nil, fmt.Errorf("failed to load drafts: %w", err)
		}
		for _, draft := range drafts {
			titles[draft.ID] = draft.Title
		}
	}

	for _, variant := range experiment.Variants {
		report.Variants = append(report.Variants, VariantReport{
			VariantID:      variant.ID,
			DraftID:        variant.DraftID,
			Label:          variant.Label,
			DraftTitle:     titles[variant.DraftID],
			Impressions:    variant.Impressions,
			Conversions:    variant.Conversions,
			ConversionRate: conversionRate(variant.Impressions, variant.Conversions),
		})
	}

	sort.Slice(report.Variants, func(i, j int) bool {
		return report.Variants[i].Label < report.Variants[j].Label
	})

	evaluateLeader(report)
	return report, nil
}

// CompleteExperiment evaluates one last time and freezes the winner on the row
func (s *Service) CompleteExperiment(experimentID string) (*ExperimentReport, error) {
	report, err := s.Evaluate(experimentID)
	if err != nil {
		return nil, err
	}
	if report.Status == "completed" {
		return nil, fmt.Errorf("experiment is already completed")
	}

	updates := map[string]interface{}{"status": "completed"}
	if report.Conclusive {
		updates["winner_id"] = report.LeaderID
	}
	if err := s.db.Model(&models.Experiment{}).Where("id = ?", experimentID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to complete experiment: %w", err)
	}

	report.Status = "completed"
	if report.Conclusive {
		report.WinnerID = report.LeaderID
	}
	return report, nil
}

// ListExperiments returns saved experiments, newest first
func (s *Service) ListExperiments() ([]ExperimentSummary, error) {
	var experiments []models.Experiment
	if err := s.db.Preload("Variants").Order("created_at DESC").Find(&experiments).Error; err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}

	summaries := make([]ExperimentSummary, len(experiments))
	for i, experiment := range experiments {
		summaries[i] = ExperimentSummary{
			ID:        experiment.ID,
			Name:      experiment.Name,
			Goal:      experiment.GoalMetric,
			Status:    experiment.Status,
			Variants:  len(experiment.Variants),
			WinnerID:  experiment.WinnerID,
			CreatedAt: experiment.CreatedAt.Format(time.RFC3339),
		}
	}
	return summaries, nil
}

// ExportReport renders an evaluation in JSON or CSV format
func (s *Service) ExportReport(experimentID, format string) (string, error) {
	report, err := s.Evaluate(experimentID)
	if err != nil {
		return "", err
	}

	if format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(data), nil
	}

	if format == "csv" {
		var buf strings.Builder
		writer := csv.NewWriter(&buf)

		writer.Write([]string{"label", "variant_id", "draft_id", "draft_title", "impressions", "conversions", "conversion_rate", "leader"})

		for _, variant := range report.Variants {
			writer.Write([]string{
				variant.Label,
				variant.VariantID,
				variant.DraftID,
				variant.DraftTitle,
				fmt.Sprintf("%d", variant.Impressions),
				fmt.Sprintf("%d", variant.Conversions),
				fmt.Sprintf("%.1f", variant.ConversionRate),
				fmt.Sprintf("%t", variant.Leader),
			})
		}

		writer.Flush()
		return buf.String(), writer.Error()
	}

	return "", fmt.Errorf("unsupported format: %s", format)
}

func (s *Service) getExperiment(experimentID string) (*models.Experiment, error) {
	var experiment models.Experiment
	if err := s.db.Preload("Variants").First(&experiment, "id = ?", experimentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("experiment not found: %s", experimentID)
		}
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}
	return &experiment, nil
}

// evaluateLeader marks the leading variant and computes lift over the
// runner-up. A leader is only declared when every variant has a workable
// sample and the top rates are not tied.
func evaluateLeader(report *ExperimentReport) {
	if len(report.Variants) < 2 {
		report.Note = "inconclusive: fewer than two variants enrolled"
		return
	}

	leader, runnerUp := -1, -1
	for i := range report.Variants {
		rate := report.Variants[i].ConversionRate
		switch {
		case leader == -1 || rate > report.Variants[leader].ConversionRate:
			runnerUp = leader
			leader = i
		case runnerUp == -1 || rate > report.Variants[runnerUp].ConversionRate:
			runnerUp = i
		}
	}

	for _, variant := range report.Variants {
		if variant.Impressions < minImpressionsPerVariant {
			report.Note = fmt.Sprintf("inconclusive: every variant needs at least %d impressions", minImpressionsPerVariant)
			return
		}
	}

	if report.Variants[leader].ConversionRate == report.Variants[runnerUp].ConversionRate {
		report.Note = "inconclusive: leading variants are tied"
		return
	}

	report.Variants[leader].Leader = true
	report.LeaderID = report.Variants[leader].VariantID
	report.Conclusive = true

	if runnerUpRate := report.Variants[runnerUp].ConversionRate; runnerUpRate > 0 {
		leaderRate := report.Variants[leader].ConversionRate
		report.Lift = (leaderRate - runnerUpRate) / runnerUpRate * 100
	}
}

func conversionRate(impressions, conversions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return float64(conversions) / float64(impressions) * 100
}

// variantLabel assigns A, B, C... in enrollment order
func variantLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("V%d", i+1)
}
