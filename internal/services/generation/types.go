package generation

import (
	"contentstudio/internal/agents"
	"contentstudio/internal/progress"
)

// GenerationRequest represents a request to generate marketing content
type GenerationRequest struct {
	ContentType string            `json:"content_type"` // blog-post, email, social-post, ad-copy
	Topic       string            `json:"topic"`
	TemplateID  string            `json:"template_id,omitempty"` // Optional catalog template
	BrandID     string            `json:"brand_id,omitempty"`    // Optional brand profile
	Tone        string            `json:"tone,omitempty"`        // e.g. "professional", "playful"
	Audience    string            `json:"audience,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"` // Template slot values
	Variants    int               `json:"variants,omitempty"`  // Number of drafts to produce (1-5)
}

// generationPayload is the submission body sent to the content service.
// The template body travels with the request so the template-preparation
// phase works from the workspace's catalog, overrides included.
type generationPayload struct {
	ContentType  string               `json:"content_type"`
	Topic        string               `json:"topic"`
	TemplateID   string               `json:"template_id,omitempty"`
	TemplateBody string               `json:"template_body,omitempty"`
	BrandID      string               `json:"brand_id,omitempty"`
	Tone         string               `json:"tone,omitempty"`
	Audience     string               `json:"audience,omitempty"`
	Variables    map[string]string    `json:"variables,omitempty"`
	Variants     int                  `json:"variants"`
	Agents       []agents.AgentConfig `json:"agents,omitempty"`
}

// submitResponse is the content service's answer to a generation submission
type submitResponse struct {
	TaskID string `json:"task_id"`
}

// GenerationProgress represents the progress of a generation task
type GenerationProgress struct {
	TaskID          string            `json:"task_id"`
	Status          string            `json:"status"`   // starting, running, completed, failed, cancelled
	Progress        int               `json:"progress"` // 0-100
	Steps           []progress.Step   `json:"steps"`
	Messages        []string          `json:"messages"`
	Error           string            `json:"error,omitempty"`
	Result          *GenerationResult `json:"result,omitempty"`
	CancelRequested bool              `json:"cancel_requested,omitempty"`
	StartedAt       string            `json:"started_at"`
	CompletedAt     string            `json:"completed_at,omitempty"`
}

// GenerationResult describes the saved draft a completed task produced
type GenerationResult struct {
	DraftID      string  `json:"draft_id"`
	Title        string  `json:"title"`
	ContentType  string  `json:"content_type"`
	QualityScore float64 `json:"quality_score"`
	WordCount    int     `json:"word_count"`
}

// resultPayload is the result document carried by a completed task snapshot
type resultPayload struct {
	DraftID      string  `json:"draft_id,omitempty"` // Server-side draft ID, informational
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	ContentType  string  `json:"content_type,omitempty"`
	QualityScore float64 `json:"quality_score,omitempty"`
	WordCount    int     `json:"word_count,omitempty"`
}

// ProgressEvent is pushed to subscribers on every progress change
type ProgressEvent struct {
	TaskID   string          `json:"task_id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Message  string          `json:"message"`  // Latest message
	Messages []string        `json:"messages"` // Full message log
	Steps    []progress.Step `json:"steps"`
}
