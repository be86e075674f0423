package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"contentstudio/internal/agents"
	"contentstudio/internal/api"
	"contentstudio/internal/database"
	"contentstudio/internal/models"
	"contentstudio/internal/progress"
	"contentstudio/internal/templates"
)

// Service handles content generation against the content service API
type Service struct {
	ctx         context.Context
	client      *api.Client
	catalog     *templates.Catalog
	crew        *agents.CrewFile
	taskStore   map[string]*GenerationProgress
	watchers    map[string]api.UpdateChannel
	subs        map[string][]chan ProgressEvent
	channelOpts []api.ChannelOption
	taskMu      sync.RWMutex
}

// NewService creates a new Generation service
func NewService(ctx context.Context, client *api.Client, catalog *templates.Catalog, crew *agents.CrewFile) *Service {
	return &Service{
		ctx:       ctx,
		client:    client,
		catalog:   catalog,
		crew:      crew,
		taskStore: make(map[string]*GenerationProgress),
		watchers:  make(map[string]api.UpdateChannel),
		subs:      make(map[string][]chan ProgressEvent),
	}
}

// StartGeneration validates and submits a generation request, then tracks
// the resulting task in the background. Returns the task ID issued by the
// content service.
func (s *Service) StartGeneration(req GenerationRequest) (string, error) {
	if err := ValidateGenerationRequest(&req); err != nil {
		return "", err
	}

	if err := s.resolveBrand(&req); err != nil {
		return "", err
	}

	// Resolve the catalog template before submitting
	var templateBody string
	if req.TemplateID != "" {
		tpl, err := s.catalog.Get(req.TemplateID)
		if err != nil {
			return "", err
		}
		rendered := templates.RenderBody(tpl, req.Variables)
		if len(rendered.Missing) > 0 {
			log.Printf("WARNING: template %s has unresolved slots: %v", req.TemplateID, rendered.Missing)
		}
		templateBody = rendered.Body
	}

	payload := generationPayload{
		ContentType:  req.ContentType,
		Topic:        req.Topic,
		TemplateID:   req.TemplateID,
		TemplateBody: templateBody,
		BrandID:      req.BrandID,
		Tone:         req.Tone,
		Audience:     req.Audience,
		Variables:    req.Variables,
		Variants:     req.Variants,
		Agents:       s.enabledAgents(),
	}

	// Submit with retry - transient failures here would otherwise lose the
	// whole request before a task even exists
	var submitted submitResponse
	err := retryWithBackoff("submit", func() error {
		resp, err := s.client.Post(s.ctx, "generations", payload)
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.String())
		}
		return json.Unmarshal(resp.Body(), &submitted)
	}, 3, nil)
	if err != nil {
		return "", fmt.Errorf("failed to submit generation request: %w", err)
	}

	taskID := submitted.TaskID
	if taskID == "" {
		return "", fmt.Errorf("content service returned no task ID")
	}

	// Initialize progress tracking
	prog := &GenerationProgress{
		TaskID:    taskID,
		Status:    "starting",
		Progress:  0,
		Steps:     progress.DefaultSteps(),
		Messages:  []string{"Generation request submitted"},
		StartedAt: time.Now().Format(time.RFC3339),
	}

	s.taskMu.Lock()
	s.taskStore[taskID] = prog
	s.taskMu.Unlock()

	// Persist to database
	record := &models.GenerationRecord{
		TaskID:      taskID,
		ContentType: req.ContentType,
		Topic:       req.Topic,
		TemplateID:  req.TemplateID,
		BrandID:     req.BrandID,
		Status:      "starting",
		Progress:    0,
		Messages:    s.marshalMessages(prog.Messages),
	}

	db := database.GetDB()
	if err := db.Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to create generation record for task %s: %w", taskID, err)
	}

	// Track the remote task in the background
	go s.watchTask(taskID)

	return taskID, nil
}

// SetChannelOptions overrides how update channels open for tasks
// watched after the call. Set during wiring, before any task starts.
func (s *Service) SetChannelOptions(opts ...api.ChannelOption) {
	s.channelOpts = opts
}

// Attach starts tracking a task this session did not submit, such as
// one started with --detach or by the content calendar. Returns the
// progress at attach time. Tasks that already finished are served from
// the database and not re-watched.
func (s *Service) Attach(taskID string) (*GenerationProgress, error) {
	s.taskMu.RLock()
	if p, exists := s.taskStore[taskID]; exists {
		snapshot := s.copyProgress(p)
		s.taskMu.RUnlock()
		return snapshot, nil
	}
	s.taskMu.RUnlock()

	db := database.GetDB()
	var record models.GenerationRecord
	recordErr := db.Where("task_id = ?", taskID).First(&record).Error
	if recordErr == nil && isTerminalStatus(record.Status) {
		return s.GetProgress(taskID)
	}

	// Confirm the workspace knows the task before tracking it
	if _, err := s.client.GetTaskStatus(s.ctx, taskID); err != nil {
		return nil, err
	}

	prog := &GenerationProgress{
		TaskID:    taskID,
		Status:    "starting",
		Progress:  0,
		Steps:     progress.DefaultSteps(),
		Messages:  []string{"Attached to task"},
		StartedAt: time.Now().Format(time.RFC3339),
	}

	if recordErr == nil {
		prog.Messages = append(s.unmarshalMessages(record.Messages), "Attached to task")
		prog.StartedAt = record.CreatedAt.Format(time.RFC3339)
	} else {
		// Tasks submitted elsewhere still get a record so history and
		// drafts line up
		record = models.GenerationRecord{
			TaskID:   taskID,
			Status:   "starting",
			Progress: 0,
			Messages: s.marshalMessages(prog.Messages),
		}
		if err := db.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to create generation record for task %s: %w", taskID, err)
		}
	}

	s.taskMu.Lock()
	if existing, exists := s.taskStore[taskID]; exists {
		snapshot := s.copyProgress(existing)
		s.taskMu.Unlock()
		return snapshot, nil
	}
	s.taskStore[taskID] = prog
	snapshot := s.copyProgress(prog)
	s.taskMu.Unlock()

	go s.watchTask(taskID)

	return snapshot, nil
}

// GetProgress retrieves the current progress of a generation task
func (s *Service) GetProgress(taskID string) (*GenerationProgress, error) {
	s.taskMu.RLock()
	if p, exists := s.taskStore[taskID]; exists {
		snapshot := s.copyProgress(p)
		s.taskMu.RUnlock()
		return snapshot, nil
	}
	s.taskMu.RUnlock()

	// Try to load from database
	db := database.GetDB()
	var record models.GenerationRecord
	if err := db.Where("task_id = ?", taskID).First(&record).Error; err != nil {
		return nil, fmt.Errorf("task not found: %w", err)
	}

	// Reconstruct progress from DB
	prog := &GenerationProgress{
		TaskID:    record.TaskID,
		Status:    record.Status,
		Progress:  record.Progress,
		Messages:  s.unmarshalMessages(record.Messages),
		Error:     record.Error,
		StartedAt: record.CreatedAt.Format(time.RFC3339),
	}

	if record.DraftID != "" {
		var draft models.Draft
		if err := db.Where("id = ?", record.DraftID).First(&draft).Error; err == nil {
			prog.Result = resultFromDraft(&draft)
		}
	}

	return prog, nil
}

// ListActive returns the generation tasks tracked in this session,
// oldest first.
func (s *Service) ListActive() []*GenerationProgress {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()

	out := make([]*GenerationProgress, 0, len(s.taskStore))
	for _, p := range s.taskStore {
		out = append(out, s.copyProgress(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt < out[j].StartedAt })
	return out
}

// Cancel asks the content service to cancel a running generation task.
// The task's terminal state arrives through the update channel like any
// other snapshot. The cancel flag is set before the request goes out so
// a terminal snapshot landing immediately is still reported as cancelled.
func (s *Service) Cancel(taskID string) error {
	s.taskMu.Lock()
	var pct int
	if p, exists := s.taskStore[taskID]; exists {
		p.CancelRequested = true
		pct = p.Progress
	}
	s.taskMu.Unlock()

	if err := s.client.CancelTask(s.ctx, taskID); err != nil {
		s.taskMu.Lock()
		if p, exists := s.taskStore[taskID]; exists {
			p.CancelRequested = false
		}
		s.taskMu.Unlock()
		return err
	}

	s.updateProgressOnly(taskID, pct, "Cancellation requested")
	log.Printf("[%s] cancellation requested", taskID)
	return nil
}

// Subscribe registers for progress events on a task. The returned cancel
// function removes the subscription and closes the channel.
func (s *Service) Subscribe(taskID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)

	s.taskMu.Lock()
	s.subs[taskID] = append(s.subs[taskID], ch)
	s.taskMu.Unlock()

	cancel := func() {
		s.taskMu.Lock()
		defer s.taskMu.Unlock()
		subs := s.subs[taskID]
		for i, sub := range subs {
			if sub == ch {
				s.subs[taskID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(s.subs[taskID]) == 0 {
			delete(s.subs, taskID)
		}
	}

	return ch, cancel
}

// watchTask follows a remote generation task until it reaches a terminal
// state, reducing snapshots onto the pipeline steps as they arrive.
func (s *Service) watchTask(taskID string) {
	defer func() {
		if r := recover(); r != nil {
			s.updateProgress(taskID, "failed", 0, fmt.Sprintf("Panic while tracking generation: %v", r))
			log.Printf("Generation watcher panic recovered: %v", r)
		}
	}()

	tracker := progress.NewTracker()
	done := make(chan struct{})

	tracker.OnComplete(func(result json.RawMessage) {
		s.handleCompleted(taskID, tracker, result)
		close(done)
	})
	tracker.OnFail(func(reason string) {
		s.handleFailed(taskID, tracker, reason)
		close(done)
	})

	channel, err := api.Open(s.ctx, s.client, taskID, func(snap progress.TaskSnapshot) {
		s.applySnapshot(taskID, tracker, snap)
	}, s.channelOpts...)
	if err != nil {
		s.updateProgress(taskID, "failed", 0, fmt.Sprintf("Failed to open update channel: %v", err))
		return
	}
	defer channel.Close()

	s.taskMu.Lock()
	s.watchers[taskID] = channel
	s.taskMu.Unlock()

	select {
	case <-done:
	case <-s.ctx.Done():
	}

	s.taskMu.Lock()
	delete(s.watchers, taskID)
	s.taskMu.Unlock()
}

// applySnapshot reduces one remote snapshot onto the step pipeline
func (s *Service) applySnapshot(taskID string, tracker *progress.Tracker, snap progress.TaskSnapshot) {
	if !tracker.Apply(snap) {
		return
	}
	if snap.Terminal() {
		return // The tracker callbacks own terminal reporting
	}

	s.syncSteps(taskID, tracker.Steps())

	message := snap.CurrentStep
	if message == "" {
		message = "Generating content..."
	}
	s.updateProgress(taskID, "running", tracker.Overall(), message)
}

// handleCompleted saves the produced draft and reports completion
func (s *Service) handleCompleted(taskID string, tracker *progress.Tracker, result json.RawMessage) {
	s.syncSteps(taskID, tracker.Steps())
	s.markCompleted(taskID)

	draft, err := s.saveDraft(taskID, result)
	if err != nil {
		log.Printf("WARNING: failed to save draft for task %s: %v", taskID, err)
		s.updateProgress(taskID, "completed", 100, fmt.Sprintf("Generation complete, but saving the draft failed: %v", err))
		return
	}

	s.taskMu.Lock()
	if p, exists := s.taskStore[taskID]; exists {
		p.Result = resultFromDraft(draft)
	}
	s.taskMu.Unlock()

	s.updateProgress(taskID, "completed", 100,
		fmt.Sprintf("Generation complete! Draft %q saved (%d words, quality %.0f/100)",
			draft.Title, draft.WordCount, draft.QualityScore))
}

// handleFailed reports a failed or cancelled task
func (s *Service) handleFailed(taskID string, tracker *progress.Tracker, reason string) {
	s.syncSteps(taskID, tracker.Steps())
	s.markCompleted(taskID)

	s.taskMu.RLock()
	cancelled := false
	if p, exists := s.taskStore[taskID]; exists {
		cancelled = p.CancelRequested
	}
	s.taskMu.RUnlock()

	status := "failed"
	if cancelled {
		status = "cancelled"
		if reason == "" {
			reason = "Generation cancelled"
		}
	} else if reason == "" {
		reason = "Generation failed"
	}

	s.taskMu.Lock()
	if p, exists := s.taskStore[taskID]; exists {
		p.Error = reason
	}
	s.taskMu.Unlock()

	db := database.GetDB()
	db.Model(&models.GenerationRecord{}).Where("task_id = ?", taskID).Update("error", reason)

	s.updateProgress(taskID, status, tracker.Overall(), reason)
}

// markCompleted stamps the completion time on the in-memory progress
func (s *Service) markCompleted(taskID string) {
	s.taskMu.Lock()
	if p, exists := s.taskStore[taskID]; exists {
		p.CompletedAt = time.Now().Format(time.RFC3339)
	}
	s.taskMu.Unlock()
}

// saveDraft persists the result document of a completed task as a Draft
func (s *Service) saveDraft(taskID string, result json.RawMessage) (*models.Draft, error) {
	if len(result) == 0 {
		return nil, fmt.Errorf("task completed without a result document")
	}

	var payload resultPayload
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse result document: %w", err)
	}

	db := database.GetDB()
	var record models.GenerationRecord
	if err := db.Where("task_id = ?", taskID).First(&record).Error; err != nil {
		return nil, fmt.Errorf("generation record not found: %w", err)
	}

	// Re-attaching to a finished task must not produce a second draft
	if record.DraftID != "" {
		var existing models.Draft
		if err := db.Where("id = ?", record.DraftID).First(&existing).Error; err == nil {
			return &existing, nil
		}
	}

	title := payload.Title
	if title == "" {
		title = record.Topic
	}
	contentType := payload.ContentType
	if contentType == "" {
		contentType = record.ContentType
	}
	wordCount := payload.WordCount
	if wordCount == 0 {
		wordCount = len(strings.Fields(payload.Content))
	}

	draft := &models.Draft{
		Title:        title,
		Body:         payload.Content,
		ContentType:  contentType,
		TemplateID:   record.TemplateID,
		BrandID:      record.BrandID,
		TaskID:       taskID,
		QualityScore: payload.QualityScore,
		WordCount:    wordCount,
	}

	// Stamp the brand's industry on the draft for catalog-style filtering
	if record.BrandID != "" {
		var brand models.BrandProfile
		if err := db.Where("id = ?", record.BrandID).First(&brand).Error; err == nil {
			draft.Industry = brand.Industry
		}
	}

	if err := db.Create(draft).Error; err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	record.DraftID = draft.ID
	db.Save(&record)

	return draft, nil
}

// resolveBrand loads the referenced brand profile and layers its voice
// into the request: tone and audience default from the brand, and brand
// fields become template variables that caller vars override. Brands can
// be addressed by ID or by name.
func (s *Service) resolveBrand(req *GenerationRequest) error {
	if req.BrandID == "" {
		return nil
	}

	var brand models.BrandProfile
	db := database.GetDB()
	if err := db.Where("id = ? OR name = ?", req.BrandID, req.BrandID).First(&brand).Error; err != nil {
		return &ValidationError{"BrandID", fmt.Sprintf("brand profile not found: %s", req.BrandID)}
	}
	req.BrandID = brand.ID

	if req.Tone == "" {
		req.Tone = brand.Tone
	}
	if req.Audience == "" {
		req.Audience = brand.Audience
	}

	vars := map[string]string{
		"brand_name":   brand.Name,
		"company_name": brand.Name,
	}
	if brand.Industry != "" {
		vars["industry"] = brand.Industry
	}
	if brand.Website != "" {
		vars["website"] = brand.Website
	}
	for k, v := range req.Variables {
		vars[k] = v
	}
	req.Variables = vars

	return nil
}

// syncSteps stores the latest reduced step view on the in-memory progress
func (s *Service) syncSteps(taskID string, steps []progress.Step) {
	s.taskMu.Lock()
	if p, exists := s.taskStore[taskID]; exists {
		p.Steps = steps
	}
	s.taskMu.Unlock()
}

// SetCrew swaps the agent crew used for submissions from now on.
// Running tasks are not affected.
func (s *Service) SetCrew(crew *agents.CrewFile) {
	s.taskMu.Lock()
	s.crew = crew
	s.taskMu.Unlock()
}

// enabledAgents returns the crew agents that are switched on
func (s *Service) enabledAgents() []agents.AgentConfig {
	s.taskMu.RLock()
	crew := s.crew
	s.taskMu.RUnlock()

	if crew == nil {
		return nil
	}
	var out []agents.AgentConfig
	for _, agent := range crew.Agents {
		if agent.IsEnabled() {
			out = append(out, agent)
		}
	}
	return out
}

// updateProgress updates the progress of a generation task
func (s *Service) updateProgress(taskID, status string, progressPct int, message string) {
	// Update in-memory store, capture state and notify subscribers
	var allMessages []string
	var steps []progress.Step

	s.taskMu.Lock()
	if p, exists := s.taskStore[taskID]; exists {
		p.Status = status
		p.Progress = progressPct
		p.Messages = append(p.Messages, message)
		allMessages = p.Messages
		steps = p.Steps
	}

	event := ProgressEvent{
		TaskID:   taskID,
		Status:   status,
		Progress: progressPct,
		Message:  message,
		Messages: allMessages,
		Steps:    steps,
	}
	for _, ch := range s.subs[taskID] {
		select {
		case ch <- event:
		default: // Drop when a subscriber is not keeping up
		}
	}
	s.taskMu.Unlock()

	// Update database
	db := database.GetDB()
	var record models.GenerationRecord
	if err := db.Where("task_id = ?", taskID).First(&record).Error; err == nil {
		record.Status = status
		record.Progress = progressPct

		// Append message
		messages := s.unmarshalMessages(record.Messages)
		messages = append(messages, message)
		record.Messages = s.marshalMessages(messages)

		db.Save(&record)
	}

	log.Printf("[%s] %s (%d%%): %s", taskID, status, progressPct, message)
}

// updateProgressOnly updates progress percentage and message without changing status
func (s *Service) updateProgressOnly(taskID string, progressPct int, message string) {
	s.taskMu.Lock()
	if p, exists := s.taskStore[taskID]; exists {
		p.Progress = progressPct
		p.Messages = append(p.Messages, message)
	}
	s.taskMu.Unlock()
}

// copyProgress snapshots a progress entry. Caller holds at least a read lock.
func (s *Service) copyProgress(p *GenerationProgress) *GenerationProgress {
	out := *p
	out.Messages = append([]string(nil), p.Messages...)
	out.Steps = append([]progress.Step(nil), p.Steps...)
	if p.Result != nil {
		result := *p.Result
		out.Result = &result
	}
	return &out
}

// isTerminalStatus reports whether a locally tracked status is final
func isTerminalStatus(status string) bool {
	switch status {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// resultFromDraft builds the result summary handed to callers
func resultFromDraft(draft *models.Draft) *GenerationResult {
	return &GenerationResult{
		DraftID:      draft.ID,
		Title:        draft.Title,
		ContentType:  draft.ContentType,
		QualityScore: draft.QualityScore,
		WordCount:    draft.WordCount,
	}
}

// marshalMessages converts a string slice to JSON
func (s *Service) marshalMessages(messages []string) string {
	data, _ := json.Marshal(messages)
	return string(data)
}

// unmarshalMessages converts JSON to a string slice
func (s *Service) unmarshalMessages(messagesJSON string) []string {
	if messagesJSON == "" {
		return []string{}
	}
	var messages []string
	json.Unmarshal([]byte(messagesJSON), &messages)
	return messages
}
