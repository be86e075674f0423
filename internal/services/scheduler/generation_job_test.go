package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"contentstudio/internal/models"
	"contentstudio/internal/services/generation"
)

// mockGenerationService for testing scheduled generation jobs. The monitor
// goroutine calls it concurrently with test assertions, so state is
// mutex-protected and read through accessors.
type mockGenerationService struct {
	mu                    sync.Mutex
	startGenerationCalled bool
	startGenerationReq    generation.GenerationRequest
	startGenerationTaskID string
	startGenerationErr    error
	getProgressCount      int
	getProgressResult     *generation.GenerationProgress
}

func (m *mockGenerationService) StartGeneration(req generation.GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startGenerationCalled = true
	m.startGenerationReq = req
	if m.startGenerationErr != nil {
		return "", m.startGenerationErr
	}
	return m.startGenerationTaskID, nil
}

func (m *mockGenerationService) GetProgress(taskID string) (*generation.GenerationProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getProgressCount++
	return m.getProgressResult, nil
}

func (m *mockGenerationService) startCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startGenerationCalled
}

func (m *mockGenerationService) lastRequest() generation.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startGenerationReq
}

func (m *mockGenerationService) progressPolls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getProgressCount
}

func (m *mockGenerationService) setProgress(p *generation.GenerationProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getProgressResult = p
}

func setupJobDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// :memory: is per-connection and the monitor runs on its own goroutine
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.ScheduledJob{}))
	return db
}

func seedJob(t *testing.T, db *gorm.DB, name string) string {
	t.Helper()

	job := models.ScheduledJob{
		ID:       "job-1",
		Name:     name,
		JobType:  "generation",
		Cron:     "0 0 9 * * *",
		Timezone: "UTC",
		Enabled:  true,
	}
	require.NoError(t, db.Create(&job).Error)
	return job.ID
}

func loadJob(t *testing.T, db *gorm.DB, jobID string) models.ScheduledJob {
	t.Helper()

	var job models.ScheduledJob
	require.NoError(t, db.First(&job, "id = ?", jobID).Error)
	return job
}

func jobStatus(db *gorm.DB, jobID string) string {
	var job models.ScheduledJob
	if err := db.First(&job, "id = ?", jobID).Error; err != nil {
		return ""
	}
	return job.LastStatus
}

func newJobService(db *gorm.DB, mock *mockGenerationService) *Service {
	return &Service{
		db:                db,
		ctx:               context.Background(),
		generationService: mock,
		monitorTimeout:    2 * time.Second,
		monitorInterval:   10 * time.Millisecond,
	}
}

// TestGenerationJobExecution tests that scheduled generation jobs actually
// submit generations
func TestGenerationJobExecution(t *testing.T) {
	t.Run("Should call generation service with correct parameters", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Full Payload Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-123",
			getProgressResult: &generation.GenerationProgress{
				TaskID:   "test-task-123",
				Status:   "completed",
				Progress: 100,
				Result: &generation.GenerationResult{
					Title:        "Cloud Cost Playbook",
					WordCount:    850,
					QualityScore: 88.5,
				},
			},
		}

		service := newJobService(db, mockService)

		payload := map[string]interface{}{
			"content_type": "blog-post",
			"topic":        "Cutting cloud costs without slowing delivery",
			"template_id":  "tech-thought-leadership-blog",
			"brand_id":     "brand-001",
			"tone":         "authoritative",
			"audience":     "Engineering leaders",
			"variables":    map[string]interface{}{"product_name": "PipelineKit"},
			"variants":     float64(2),
		}

		service.runGenerationJob(jobID, payload)

		assert.True(t, mockService.startCalled(), "StartGeneration should be called")

		req := mockService.lastRequest()
		assert.Equal(t, "blog-post", req.ContentType)
		assert.Equal(t, "Cutting cloud costs without slowing delivery", req.Topic)
		assert.Equal(t, "tech-thought-leadership-blog", req.TemplateID)
		assert.Equal(t, "brand-001", req.BrandID)
		assert.Equal(t, "authoritative", req.Tone)
		assert.Equal(t, "Engineering leaders", req.Audience)
		assert.Equal(t, map[string]string{"product_name": "PipelineKit"}, req.Variables)
		assert.Equal(t, 2, req.Variants)
	})

	t.Run("Should leave optional fields empty when not provided", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Minimal Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-456",
			getProgressResult:     &generation.GenerationProgress{Status: "completed"},
		}

		service := newJobService(db, mockService)

		payload := map[string]interface{}{
			"content_type": "social-post",
			"topic":        "Daily engineering tip",
		}

		service.runGenerationJob(jobID, payload)

		assert.True(t, mockService.startCalled())

		req := mockService.lastRequest()
		assert.Empty(t, req.TemplateID)
		assert.Empty(t, req.BrandID)
		assert.Nil(t, req.Variables)
		assert.Zero(t, req.Variants, "variant count defaulting happens in the generation service")
	})

	t.Run("Should skip job with incomplete payload", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Incomplete Job")

		mockService := &mockGenerationService{}
		service := newJobService(db, mockService)

		// Missing topic
		payload := map[string]interface{}{
			"content_type": "blog-post",
		}

		service.runGenerationJob(jobID, payload)

		assert.False(t, mockService.startCalled(), "Should not call StartGeneration with incomplete payload")

		job := loadJob(t, db, jobID)
		assert.Equal(t, "skipped: incomplete payload", job.LastStatus)
	})

	t.Run("Should record submission failures on the job row", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Failing Job")

		mockService := &mockGenerationService{
			startGenerationErr: errors.New("api unreachable"),
		}
		service := newJobService(db, mockService)

		payload := map[string]interface{}{
			"content_type": "blog-post",
			"topic":        "Release notes roundup",
		}

		service.runGenerationJob(jobID, payload)

		job := loadJob(t, db, jobID)
		assert.Equal(t, "failed: api unreachable", job.LastStatus)
		assert.Empty(t, job.LastTaskID)
	})
}

// TestGenerationJobMonitoring tests that running generations are followed to
// a terminal state and the outcome lands on the job row
func TestGenerationJobMonitoring(t *testing.T) {
	runPayload := map[string]interface{}{
		"content_type": "blog-post",
		"topic":        "Release notes roundup",
	}

	t.Run("Should record completion on the job row", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Completing Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-123",
			getProgressResult: &generation.GenerationProgress{
				TaskID:   "test-task-123",
				Status:   "completed",
				Progress: 100,
				Result: &generation.GenerationResult{
					Title:        "Cloud Cost Playbook",
					WordCount:    850,
					QualityScore: 88.5,
				},
			},
		}

		service := newJobService(db, mockService)
		service.runGenerationJob(jobID, runPayload)

		require.Eventually(t, func() bool {
			return jobStatus(db, jobID) == "completed"
		}, 2*time.Second, 10*time.Millisecond)

		job := loadJob(t, db, jobID)
		assert.Equal(t, "test-task-123", job.LastTaskID)
	})

	t.Run("Should record failure with the task error", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Failing Task Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-456",
			getProgressResult: &generation.GenerationProgress{
				TaskID: "test-task-456",
				Status: "failed",
				Error:  "model rate limited",
			},
		}

		service := newJobService(db, mockService)
		service.runGenerationJob(jobID, runPayload)

		require.Eventually(t, func() bool {
			return jobStatus(db, jobID) == "failed: model rate limited"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Should record cancellation", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Cancelled Task Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-789",
			getProgressResult: &generation.GenerationProgress{
				TaskID: "test-task-789",
				Status: "cancelled",
			},
		}

		service := newJobService(db, mockService)
		service.runGenerationJob(jobID, runPayload)

		require.Eventually(t, func() bool {
			return jobStatus(db, jobID) == "cancelled"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Should keep polling while the task is running", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Running Task Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-progress-task",
			getProgressResult: &generation.GenerationProgress{
				TaskID:   "test-progress-task",
				Status:   "running",
				Progress: 50,
			},
		}

		service := newJobService(db, mockService)
		service.runGenerationJob(jobID, runPayload)

		require.Eventually(t, func() bool {
			return mockService.progressPolls() >= 2
		}, 2*time.Second, 10*time.Millisecond, "monitor should keep polling a running task")
		assert.Empty(t, jobStatus(db, jobID), "no outcome should be recorded while running")

		// Flip to completed and wait for the monitor to notice
		mockService.setProgress(&generation.GenerationProgress{
			TaskID:   "test-progress-task",
			Status:   "completed",
			Progress: 100,
		})

		require.Eventually(t, func() bool {
			return jobStatus(db, jobID) == "completed"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Should stop monitoring when progress is missing", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Vanished Task Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-gone",
		}

		service := newJobService(db, mockService)
		service.runGenerationJob(jobID, runPayload)

		require.Eventually(t, func() bool {
			return mockService.progressPolls() == 1
		}, 2*time.Second, 10*time.Millisecond)

		// The monitor exits after the nil poll, so the count stays put
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, mockService.progressPolls())
		assert.Empty(t, jobStatus(db, jobID))
	})

	t.Run("Should time out when the task never finishes", func(t *testing.T) {
		db := setupJobDB(t)
		jobID := seedJob(t, db, "Stuck Task Job")

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-stuck",
			getProgressResult: &generation.GenerationProgress{
				TaskID: "test-task-stuck",
				Status: "running",
			},
		}

		service := newJobService(db, mockService)
		service.monitorTimeout = 50 * time.Millisecond
		service.runGenerationJob(jobID, runPayload)

		require.Eventually(t, func() bool {
			return jobStatus(db, jobID) == "timeout"
		}, 2*time.Second, 10*time.Millisecond)
	})
}

// TestExecuteJob tests the cron entry point: run-time stamping, payload
// parsing and dispatch by job type
func TestExecuteJob(t *testing.T) {
	t.Run("Should stamp run times and dispatch generation jobs", func(t *testing.T) {
		db := setupJobDB(t)

		job := models.ScheduledJob{
			ID:       "job-1",
			Name:     "Stamped Job",
			JobType:  "generation",
			Cron:     "0 0 9 * * *",
			Timezone: "UTC",
			Enabled:  true,
			Payload:  `{"content_type":"social-post","topic":"Daily engineering tip"}`,
		}
		require.NoError(t, db.Create(&job).Error)

		mockService := &mockGenerationService{
			startGenerationTaskID: "test-task-123",
			getProgressResult:     &generation.GenerationProgress{Status: "completed"},
		}

		service := newJobService(db, mockService)
		service.executeJob(job.ID)

		assert.True(t, mockService.startCalled())

		reloaded := loadJob(t, db, job.ID)
		require.NotNil(t, reloaded.LastRunAt)
		require.NotNil(t, reloaded.NextRunAt)
		assert.True(t, reloaded.NextRunAt.After(*reloaded.LastRunAt), "next run should be in the future")
	})

	t.Run("Should ignore unknown job types", func(t *testing.T) {
		db := setupJobDB(t)

		job := models.ScheduledJob{
			ID:      "job-1",
			Name:    "Odd Job",
			JobType: "publish",
			Cron:    "0 0 9 * * *",
			Payload: `{"content_type":"blog-post","topic":"T"}`,
		}
		require.NoError(t, db.Create(&job).Error)

		mockService := &mockGenerationService{}
		service := newJobService(db, mockService)
		service.executeJob(job.ID)

		assert.False(t, mockService.startCalled())
	})

	t.Run("Should stop on malformed payload", func(t *testing.T) {
		db := setupJobDB(t)

		job := models.ScheduledJob{
			ID:      "job-1",
			Name:    "Broken Payload Job",
			JobType: "generation",
			Cron:    "0 0 9 * * *",
			Payload: `{not json`,
		}
		require.NoError(t, db.Create(&job).Error)

		mockService := &mockGenerationService{}
		service := newJobService(db, mockService)
		service.executeJob(job.ID)

		assert.False(t, mockService.startCalled())

		// Run times are stamped before the payload is parsed
		reloaded := loadJob(t, db, job.ID)
		assert.NotNil(t, reloaded.LastRunAt)
	})
}
