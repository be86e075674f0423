// Package studio wires the application together for the CLI: crypto,
// database, template catalog, agent crew and the services built on
// them. One Studio owns the active workspace profile and the API
// client derived from it.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/gorm"

	"contentstudio/internal/agents"
	"contentstudio/internal/api"
	"contentstudio/internal/crypto"
	"contentstudio/internal/database"
	"contentstudio/internal/models"
	"contentstudio/internal/progress"
	"contentstudio/internal/services/experiments"
	"contentstudio/internal/services/generation"
	"contentstudio/internal/services/library"
	"contentstudio/internal/services/scheduler"
	"contentstudio/internal/templates"
)

// ErrNoWorkspace is returned by operations that need an active
// workspace profile when none is selected.
var ErrNoWorkspace = errors.New("no active workspace profile (run 'contentstudio profiles use <name>')")

// Studio is the composition root behind the CLI commands.
type Studio struct {
	ctx    context.Context
	cancel context.CancelFunc
	db     *gorm.DB

	catalog *templates.Catalog

	// crewMu guards crew and the generation service handle against the
	// crew reload goroutine
	crewMu      sync.RWMutex
	crew        *agents.CrewFile
	crewWatcher *agents.Watcher

	activeProfile *models.WorkspaceProfile
	client        *api.Client

	generationService  *generation.Service
	schedulerService   *scheduler.Service
	experimentsService *experiments.Service
	libraryService     *library.Service

	forcePolling bool
}

// Option configures a Studio before its services are wired.
type Option func(*Studio)

// WithForcePolling makes generation watchers use the pull channel even
// when the workspace offers a push endpoint.
func WithForcePolling() Option {
	return func(s *Studio) { s.forcePolling = true }
}

// New initializes the studio: encryption first (profiles are unusable
// without it), then the database, then the services. When a workspace
// profile is marked active it is loaded and an API client is built
// from it.
func New(ctx context.Context, opts ...Option) (*Studio, error) {
	if err := crypto.InitEncryption(); err != nil {
		return nil, fmt.Errorf("encryption initialization failed: %w", err)
	}

	db, err := database.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s := newStudio(ctx, db, opts...)
	if err := s.wire(); err != nil {
		return nil, err
	}
	return s, nil
}

// newStudio builds the studio shell around an open database handle.
func newStudio(ctx context.Context, db *gorm.DB, opts ...Option) *Studio {
	ctx, cancel := context.WithCancel(ctx)
	s := &Studio{ctx: ctx, cancel: cancel, db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// wire loads the catalog and crew, builds the workspace-independent
// services and binds the active profile when there is one.
func (s *Studio) wire() error {
	catalog, err := templates.NewCatalog()
	if err != nil {
		return fmt.Errorf("failed to load template catalog: %w", err)
	}
	s.catalog = catalog

	// Workspace-local template files merge over the built-in catalog
	if dir, err := ConfigDir(); err == nil {
		templateDir := filepath.Join(dir, "templates")
		if _, statErr := os.Stat(templateDir); statErr == nil {
			if err := catalog.LoadDirectory(templateDir); err != nil {
				log.Printf("WARNING: failed to load workspace templates: %v", err)
			}
		}
	}

	s.crew = s.loadCrew()
	s.watchCrew()

	s.libraryService = library.NewService(s.db, s.ctx)
	s.experimentsService = experiments.NewService(s.db, s.ctx)

	// Calendar CRUD works without a workspace; the cron loop only runs
	// once a profile is bound and jobs can actually submit
	s.schedulerService = scheduler.NewService(s.db, s.ctx, nil)

	var profile models.WorkspaceProfile
	err = s.db.Where("active = ?", true).First(&profile).Error
	switch {
	case err == nil:
		if err := s.bindWorkspace(&profile); err != nil {
			log.Printf("WARNING: failed to bind workspace %q: %v", profile.Name, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Println("No active workspace profile; generation commands need one")
	default:
		return fmt.Errorf("failed to load active profile: %w", err)
	}

	return nil
}

// loadCrew reads the workspace crew file, falling back to the built-in
// crew when there is none or it does not load.
func (s *Studio) loadCrew() *agents.CrewFile {
	dir, err := ConfigDir()
	if err != nil {
		log.Printf("WARNING: cannot resolve config directory: %v", err)
		return agents.DefaultCrew()
	}

	crew, err := agents.NewLoader(dir).LoadDefault()
	if err != nil {
		log.Printf("WARNING: failed to load crew file: %v", err)
		return agents.DefaultCrew()
	}
	return crew
}

// watchCrew starts the crew file watcher so an edited crew.yaml takes
// effect without a restart. Long-running commands (watch, a scheduler
// tick) pick up the new crew on their next submission.
func (s *Studio) watchCrew() {
	dir, err := ConfigDir()
	if err != nil {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		return
	}

	watcher, err := agents.NewWatcher(agents.NewLoader(dir), dir)
	if err != nil {
		log.Printf("WARNING: crew watcher unavailable: %v", err)
		return
	}
	if err := watcher.Start(s.ctx); err != nil {
		log.Printf("WARNING: failed to watch crew files: %v", err)
		return
	}
	s.crewWatcher = watcher

	go func() {
		for event := range watcher.Events() {
			switch {
			case event.Error != nil:
				log.Printf("WARNING: crew reload: %v", event.Error)
			case filepath.Base(event.Path) == agents.DefaultCrewFile:
				s.swapCrew(event.Crew)
				log.Printf("Crew %q reloaded", event.Crew.Name)
			}
		}
	}()
}

// swapCrew installs a reloaded crew for submissions from now on.
func (s *Studio) swapCrew(crew *agents.CrewFile) {
	s.crewMu.Lock()
	s.crew = crew
	svc := s.generationService
	s.crewMu.Unlock()

	if svc != nil {
		svc.SetCrew(crew)
	}
}

// bindWorkspace decrypts the profile token, builds the API client and
// brings up the services that talk to the workspace.
func (s *Studio) bindWorkspace(profile *models.WorkspaceProfile) error {
	token, err := crypto.DecryptToken(profile.APITokenEnc)
	if err != nil {
		return fmt.Errorf("failed to decrypt API token: %w", err)
	}

	var clientOpts []api.Option
	if profile.EventsURL != "" {
		clientOpts = append(clientOpts, api.WithEventsURL(profile.EventsURL))
	}
	s.client = api.NewClient(profile.APIURL, token, clientOpts...)
	s.activeProfile = profile

	svc := generation.NewService(s.ctx, s.client, s.catalog, s.Crew())
	if s.forcePolling {
		svc.SetChannelOptions(api.WithForcePolling())
	}
	s.crewMu.Lock()
	s.generationService = svc
	s.crewMu.Unlock()

	// The calendar restarts against the new workspace
	if s.schedulerService != nil {
		s.schedulerService.Stop()
	}
	s.schedulerService = scheduler.NewService(s.db, s.ctx, svc)
	if err := s.schedulerService.Start(); err != nil {
		log.Printf("WARNING: failed to start scheduler: %v", err)
	}

	return nil
}

// unbindWorkspace takes the workspace-bound services offline.
func (s *Studio) unbindWorkspace() {
	if s.schedulerService != nil {
		s.schedulerService.Stop()
	}
	s.schedulerService = scheduler.NewService(s.db, s.ctx, nil)
	s.crewMu.Lock()
	s.generationService = nil
	s.crewMu.Unlock()
	s.client = nil
	s.activeProfile = nil
}

// Shutdown stops the scheduler and the crew watcher, closes open update
// channels through context cancellation and closes the database.
func (s *Studio) Shutdown() {
	if s.schedulerService != nil {
		s.schedulerService.Stop()
	}
	s.cancel()
	if s.crewWatcher != nil {
		if err := s.crewWatcher.Stop(); err != nil {
			log.Printf("WARNING: failed to stop crew watcher: %v", err)
		}
	}

	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// ConfigDir resolves the directory holding workspace configuration
// (crew files, the default sqlite database). CONTENTSTUDIO_CONFIG_DIR
// overrides the per-user default.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CONTENTSTUDIO_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "contentstudio"), nil
}

// requireWorkspace guards operations that talk to the content API.
func (s *Studio) requireWorkspace() error {
	if s.activeProfile == nil || s.generationService == nil {
		return ErrNoWorkspace
	}
	return nil
}

// Catalog exposes the template catalog for browsing and rendering.
func (s *Studio) Catalog() *templates.Catalog {
	return s.catalog
}

// Crew exposes the loaded agent crew.
func (s *Studio) Crew() *agents.CrewFile {
	s.crewMu.RLock()
	defer s.crewMu.RUnlock()
	return s.crew
}

// ActiveProfile returns the bound workspace profile, nil when offline.
func (s *Studio) ActiveProfile() *models.WorkspaceProfile {
	return s.activeProfile
}

// ValidateAgentsFile loads and validates a crew YAML without
// installing it.
func (s *Studio) ValidateAgentsFile(path string) (*agents.CrewFile, error) {
	loader := agents.NewLoader(filepath.Dir(path))
	return loader.LoadAndValidate(path, nil)
}

// Generate submits a content generation job to the active workspace.
func (s *Studio) Generate(req generation.GenerationRequest) (string, error) {
	if err := s.requireWorkspace(); err != nil {
		return "", err
	}

	// The profile's defaults fill what the caller left unset
	if req.BrandID == "" {
		req.BrandID = s.activeProfile.DefaultBrandID
	}

	return s.generationService.StartGeneration(req)
}

// Progress reports the tracked progress of a generation task.
func (s *Studio) Progress(taskID string) (*generation.GenerationProgress, error) {
	if err := s.requireWorkspace(); err != nil {
		return nil, err
	}
	return s.generationService.GetProgress(taskID)
}

// ActiveGenerations lists the generation tasks tracked in this session.
func (s *Studio) ActiveGenerations() []*generation.GenerationProgress {
	if s.generationService == nil {
		return nil
	}
	return s.generationService.ListActive()
}

// Watch attaches to a task and subscribes to its progress events. The
// returned progress is the state at attach time; a task that already
// finished produces no further events.
func (s *Studio) Watch(taskID string) (*generation.GenerationProgress, <-chan generation.ProgressEvent, func(), error) {
	if err := s.requireWorkspace(); err != nil {
		return nil, nil, nil, err
	}

	events, unsubscribe := s.generationService.Subscribe(taskID)
	prog, err := s.generationService.Attach(taskID)
	if err != nil {
		unsubscribe()
		return nil, nil, nil, err
	}
	return prog, events, unsubscribe, nil
}

// Cancel requests cancellation of a running generation task.
func (s *Studio) Cancel(taskID string) error {
	if err := s.requireWorkspace(); err != nil {
		return err
	}
	return s.generationService.Cancel(taskID)
}

// TaskSnapshot fetches the task's current remote snapshot, bypassing
// the local store.
func (s *Studio) TaskSnapshot(taskID string) (progress.TaskSnapshot, error) {
	if err := s.requireWorkspace(); err != nil {
		return progress.TaskSnapshot{}, err
	}
	return s.client.GetTaskStatus(s.ctx, taskID)
}

// History lists past generation records.
func (s *Studio) History(filter library.HistoryFilter) ([]library.HistoryEntry, error) {
	return s.libraryService.ListHistory(filter)
}

// Drafts lists saved drafts.
func (s *Studio) Drafts(filter library.DraftFilter) ([]library.DraftSummary, error) {
	return s.libraryService.ListDrafts(filter)
}

// Draft retrieves one saved draft.
func (s *Studio) Draft(draftID string) (*models.Draft, error) {
	return s.libraryService.GetDraft(draftID)
}

// DeleteDraft removes a saved draft.
func (s *Studio) DeleteDraft(draftID string) error {
	return s.libraryService.DeleteDraft(draftID)
}

// ExportDraft renders a draft as json or markdown.
func (s *Studio) ExportDraft(draftID, format string) (string, error) {
	return s.libraryService.ExportDraft(draftID, format)
}

// Jobs lists the content-calendar entries.
func (s *Studio) Jobs() ([]scheduler.JobListResponse, error) {
	return s.schedulerService.ListJobs()
}

// UpsertJob creates or updates a calendar entry, keyed by name.
func (s *Studio) UpsertJob(req scheduler.UpsertJobRequest) (string, error) {
	return s.schedulerService.UpsertJob(req)
}

// RemoveJob deletes a calendar entry by ID or name.
func (s *Studio) RemoveJob(ref string) error {
	jobID, err := s.resolveJob(ref)
	if err != nil {
		return err
	}
	return s.schedulerService.DeleteJob(jobID)
}

// SetJobEnabled switches a calendar entry on or off by ID or name.
func (s *Studio) SetJobEnabled(ref string, enabled bool) error {
	jobID, err := s.resolveJob(ref)
	if err != nil {
		return err
	}
	return s.schedulerService.SetEnabled(jobID, enabled)
}

// CreateExperiment groups drafts into a new A/B experiment.
func (s *Studio) CreateExperiment(req experiments.CreateExperimentRequest) (*models.Experiment, error) {
	return s.experimentsService.CreateExperiment(req)
}

// RecordMetrics adds impressions and conversions to a variant.
func (s *Studio) RecordMetrics(update experiments.MetricsUpdate) (*experiments.VariantReport, error) {
	experimentID, err := s.resolveExperiment(update.ExperimentID)
	if err != nil {
		return nil, err
	}
	update.ExperimentID = experimentID
	return s.experimentsService.RecordMetrics(update)
}

// ExperimentReport evaluates an experiment by ID or name.
func (s *Studio) ExperimentReport(ref string) (*experiments.ExperimentReport, error) {
	experimentID, err := s.resolveExperiment(ref)
	if err != nil {
		return nil, err
	}
	return s.experimentsService.Evaluate(experimentID)
}

// CompleteExperiment freezes an experiment and its winner.
func (s *Studio) CompleteExperiment(ref string) (*experiments.ExperimentReport, error) {
	experimentID, err := s.resolveExperiment(ref)
	if err != nil {
		return nil, err
	}
	return s.experimentsService.CompleteExperiment(experimentID)
}

// Experiments lists all experiments, newest first.
func (s *Studio) Experiments() ([]experiments.ExperimentSummary, error) {
	return s.experimentsService.ListExperiments()
}

// ExportExperiment renders an experiment report as json or csv.
func (s *Studio) ExportExperiment(ref, format string) (string, error) {
	experimentID, err := s.resolveExperiment(ref)
	if err != nil {
		return "", err
	}
	return s.experimentsService.ExportReport(experimentID, format)
}

// resolveJob maps a calendar entry name or ID to the row ID.
func (s *Studio) resolveJob(ref string) (string, error) {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ? OR name = ?", ref, ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("scheduled job not found: %s", ref)
		}
		return "", fmt.Errorf("failed to load job: %w", err)
	}
	return job.ID, nil
}

// resolveExperiment maps an experiment name or ID to the row ID.
func (s *Studio) resolveExperiment(ref string) (string, error) {
	var experiment models.Experiment
	if err := s.db.First(&experiment, "id = ? OR name = ?", ref, ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("experiment not found: %s", ref)
		}
		return "", fmt.Errorf("failed to load experiment: %w", err)
	}
	return experiment.ID, nil
}
