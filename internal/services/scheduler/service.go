package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"contentstudio/internal/models"
	"contentstudio/internal/services/generation"
)

// cronParser accepts the stored 6-field form (seconds first) plus
// descriptors like @daily.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// GenerationServiceInterface defines the generation service operations the
// content calendar needs
type GenerationServiceInterface interface {
	StartGeneration(req generation.GenerationRequest) (string, error)
	GetProgress(taskID string) (*generation.GenerationProgress, error)
}

// Service runs the content calendar: cron-registered jobs that submit
// generations and record their outcome.
type Service struct {
	db                *gorm.DB
	ctx               context.Context
	cron              *cron.Cron
	jobs              map[string]cron.EntryID // jobID -> cron entry ID
	jobsMu            sync.RWMutex
	generationService GenerationServiceInterface
	monitorTimeout    time.Duration
	monitorInterval   time.Duration
}

// NewService creates a new scheduler service
func NewService(db *gorm.DB, ctx context.Context, generationService GenerationServiceInterface) *Service {
	return &Service{
		db:                db,
		ctx:               ctx,
		cron:              cron.New(cron.WithSeconds()),
		jobs:              make(map[string]cron.EntryID),
		generationService: generationService,
		monitorTimeout:    30 * time.Minute,
		monitorInterval:   5 * time.Second,
	}
}

// Start begins cron dispatch and registers every enabled job from the
// database.
func (s *Service) Start() error {
	log.Println("Starting scheduler...")
	s.cron.Start()

	var jobs []models.ScheduledJob
	if err := s.db.Where("enabled = ?", true).Find(&jobs).Error; err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	for i := range jobs {
		job := &jobs[i]
		if err := s.scheduleJob(job); err != nil {
			log.Printf("WARNING: Failed to schedule job %s (%s): %v", job.Name, job.ID, err)
			continue
		}
		log.Printf("Scheduled job: %s (%s) with cron: %s", job.Name, job.ID, job.Cron)
	}

	log.Printf("Scheduler started with %d enabled jobs", len(jobs))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		log.Println("Scheduler stopped")
	}
}

// ListJobs retrieves all scheduled jobs, newest first.
func (s *Service) ListJobs() ([]JobListResponse, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	responses := make([]JobListResponse, len(jobs))
	for i := range jobs {
		responses[i] = s.toJobListResponse(&jobs[i])
	}
	return responses, nil
}

// UpsertJob creates or updates a scheduled job, keyed by name. The cron
// expression is normalized to the stored 6-field form first, and the
// live cron registration follows the saved row.
func (s *Service) UpsertJob(req UpsertJobRequest) (string, error) {
	if req.Name == "" || req.JobType == "" || req.Cron == "" {
		return "", fmt.Errorf("name, job_type, and cron are required")
	}

	normalized, err := normalizeCron(req.Cron)
	if err != nil {
		return "", err
	}

	var job models.ScheduledJob
	err = s.db.Where("name = ?", req.Name).First(&job).Error
	creating := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !creating {
		return "", fmt.Errorf("failed to query job: %w", err)
	}
	if creating {
		job = models.ScheduledJob{ID: uuid.New().String(), Name: req.Name}
	}

	job.JobType = req.JobType
	job.Cron = normalized
	job.Timezone = req.Timezone
	if job.Timezone == "" {
		job.Timezone = "UTC"
	}
	job.Enabled = req.Enabled

	payload, err := marshalPayload(req.Payload)
	if err != nil {
		return "", err
	}
	job.Payload = payload

	next, err := nextRunAfter(job.Cron, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to parse cron for next run: %w", err)
	}
	job.NextRunAt = &next

	if creating {
		err = s.db.Create(&job).Error
	} else {
		err = s.db.Save(&job).Error
	}
	if err != nil {
		return "", fmt.Errorf("failed to save job: %w", err)
	}

	if err := s.rescheduleJob(job.ID); err != nil {
		return "", fmt.Errorf("failed to reschedule job: %w", err)
	}
	return job.ID, nil
}

// DeleteJob removes a scheduled job from cron and the database.
func (s *Service) DeleteJob(jobID string) error {
	s.unschedule(jobID)

	if err := s.db.Delete(&models.ScheduledJob{}, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// SetEnabled switches a job on or off and reschedules it live
func (s *Service) SetEnabled(jobID string, enabled bool) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	job.Enabled = enabled
	if err := s.db.Save(&job).Error; err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return s.rescheduleJob(job.ID)
}

// unschedule drops the live cron entry for a job, if one exists.
func (s *Service) unschedule(jobID string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if entryID, exists := s.jobs[jobID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, jobID)
	}
}

// scheduleJob registers a job with cron. A disabled job only has its
// existing entry removed.
func (s *Service) scheduleJob(job *models.ScheduledJob) error {
	s.unschedule(job.ID)

	if !job.Enabled {
		return nil
	}

	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Cron, func() {
		s.executeJob(jobID)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = entryID
	s.jobsMu.Unlock()
	return nil
}

// rescheduleJob re-reads a job row and brings the cron registration in
// line with it. A deleted row just clears the entry.
func (s *Service) rescheduleJob(jobID string) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.unschedule(jobID)
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}
	return s.scheduleJob(&job)
}

// executeJob is the cron entry point: stamp the run times, decode the
// payload and dispatch on job type.
func (s *Service) executeJob(jobID string) {
	log.Printf("Executing scheduled job: %s", jobID)

	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		log.Printf("ERROR: Failed to load job %s: %v", jobID, err)
		return
	}

	now := time.Now()
	job.LastRunAt = &now
	if next, err := nextRunAfter(job.Cron, now); err != nil {
		log.Printf("WARNING: Failed to parse cron for next run: %v", err)
	} else {
		job.NextRunAt = &next
	}
	if err := s.db.Save(&job).Error; err != nil {
		log.Printf("WARNING: Failed to update job run times: %v", err)
	}

	var payload map[string]interface{}
	if job.Payload != "" {
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			log.Printf("ERROR: Failed to parse job payload: %v", err)
			return
		}
	}

	switch job.JobType {
	case "generation":
		s.runGenerationJob(job.ID, payload)
	default:
		log.Printf("WARNING: Unknown job type: %s", job.JobType)
	}

	log.Printf("Completed scheduled job: %s", jobID)
}

// runGenerationJob submits a content generation from a calendar payload
func (s *Service) runGenerationJob(jobID string, payload map[string]interface{}) {
	contentType, _ := payload["content_type"].(string)
	topic, _ := payload["topic"].(string)

	if contentType == "" || topic == "" {
		log.Printf("WARNING: Incomplete generation job payload")
		s.recordOutcome(jobID, "", "skipped: incomplete payload")
		return
	}

	req := generation.GenerationRequest{
		ContentType: contentType,
		Topic:       topic,
	}

	if templateID, ok := payload["template_id"].(string); ok {
		req.TemplateID = templateID
	}
	if brandID, ok := payload["brand_id"].(string); ok {
		req.BrandID = brandID
	}
	if tone, ok := payload["tone"].(string); ok {
		req.Tone = tone
	}
	if audience, ok := payload["audience"].(string); ok {
		req.Audience = audience
	}
	if variables, ok := payload["variables"].(map[string]interface{}); ok {
		req.Variables = make(map[string]string, len(variables))
		for name, value := range variables {
			if str, ok := value.(string); ok {
				req.Variables[name] = str
			}
		}
	}
	if variants, ok := payload["variants"].(float64); ok {
		req.Variants = int(variants)
	}

	log.Printf("Starting scheduled generation: %s %q (job: %s)", contentType, topic, jobID)

	taskID, err := s.generationService.StartGeneration(req)
	if err != nil {
		log.Printf("ERROR: Failed to start scheduled generation: %v", err)
		s.recordOutcome(jobID, "", fmt.Sprintf("failed: %v", err))
		return
	}

	log.Printf("Scheduled generation started with task ID: %s", taskID)

	// Monitor to completion in the background so the scheduler is not blocked
	go s.monitorGeneration(jobID, taskID)
}

// monitorGeneration polls the generation progress store until the task
// is terminal or the timeout elapses, then records the outcome on the
// job row.
func (s *Service) monitorGeneration(jobID, taskID string) {
	timeout := time.After(s.monitorTimeout)
	ticker := time.NewTicker(s.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timeout:
			log.Printf("WARNING: Scheduled generation %s timed out after %v", taskID, s.monitorTimeout)
			s.recordOutcome(jobID, taskID, "timeout")
			return
		case <-ticker.C:
			progress, err := s.generationService.GetProgress(taskID)
			if err != nil {
				log.Printf("ERROR: Failed to get progress for generation %s: %v", taskID, err)
				return
			}

			if progress == nil {
				log.Printf("WARNING: Progress for generation %s is nil, stopping monitoring", taskID)
				return
			}

			switch progress.Status {
			case "completed":
				log.Printf("Scheduled generation completed successfully (task: %s)", taskID)
				if progress.Result != nil {
					log.Printf("Result: draft %q, %d words, quality %.0f",
						progress.Result.Title,
						progress.Result.WordCount,
						progress.Result.QualityScore)
				}
				s.recordOutcome(jobID, taskID, "completed")
				return
			case "failed":
				log.Printf("ERROR: Scheduled generation failed (task: %s): %s", taskID, progress.Error)
				s.recordOutcome(jobID, taskID, fmt.Sprintf("failed: %s", progress.Error))
				return
			case "cancelled":
				log.Printf("Scheduled generation was cancelled (task: %s)", taskID)
				s.recordOutcome(jobID, taskID, "cancelled")
				return
			}
		}
	}
}

// recordOutcome stores the result of the most recent run on the job row
func (s *Service) recordOutcome(jobID, taskID, outcome string) {
	updates := map[string]interface{}{
		"last_status":  outcome,
		"last_task_id": taskID,
	}
	if err := s.db.Model(&models.ScheduledJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		log.Printf("WARNING: Failed to record outcome for job %s: %v", jobID, err)
	}
}

// marshalPayload flattens the request payload to the JSON string stored
// on the row. Strings are taken verbatim.
func marshalPayload(payload interface{}) (string, error) {
	if payload == nil {
		return "", nil
	}
	if str, ok := payload.(string); ok {
		return str, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}

// nextRunAfter computes the next firing of a stored cron expression.
func nextRunAfter(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from), nil
}

// normalizeCron converts the common 5-field cron form to the 6-field
// form the scheduler stores, by prepending a 0 seconds field. A valid
// 6-field expression passes through unchanged.
func normalizeCron(cronExpr string) (string, error) {
	cronExpr = strings.TrimSpace(cronExpr)

	fields := strings.Fields(cronExpr)
	switch len(fields) {
	case 6:
		if _, err := cronParser.Parse(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 6-field cron expression: %w", err)
		}
		return cronExpr, nil
	case 5:
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		return "0 " + cronExpr, nil
	default:
		return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
	}
}

func (s *Service) toJobListResponse(job *models.ScheduledJob) JobListResponse {
	resp := JobListResponse{
		ID:         job.ID,
		Name:       job.Name,
		JobType:    job.JobType,
		Cron:       job.Cron,
		Timezone:   job.Timezone,
		Enabled:    job.Enabled,
		LastStatus: job.LastStatus,
		LastTaskID: job.LastTaskID,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  job.UpdatedAt.Format(time.RFC3339),
	}

	if job.LastRunAt != nil {
		lastRun := job.LastRunAt.Format(time.RFC3339)
		resp.LastRunAt = &lastRun
	}
	if job.NextRunAt != nil {
		nextRun := job.NextRunAt.Format(time.RFC3339)
		resp.NextRun = &nextRun
	}
	return resp
}
