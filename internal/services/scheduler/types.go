package scheduler

// JobListResponse represents a scheduled job in list responses
type JobListResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	JobType    string  `json:"job_type"`
	Cron       string  `json:"cron"`
	Timezone   string  `json:"timezone"`
	Enabled    bool    `json:"enabled"`
	LastStatus string  `json:"last_status,omitempty"` // Outcome of the most recent run
	LastTaskID string  `json:"last_task_id,omitempty"`
	LastRunAt  *string `json:"last_run_at"` // RFC 3339
	NextRun    *string `json:"next_run"`    // RFC 3339
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// UpsertJobRequest represents a request to create or update a scheduled job
type UpsertJobRequest struct {
	Name     string      `json:"name"`
	JobType  string      `json:"job_type"` // "generation"
	Cron     string      `json:"cron"`
	Timezone string      `json:"timezone"`
	Enabled  bool        `json:"enabled"`
	Payload  interface{} `json:"payload"` // Generation request as map or JSON string
}

// GenerationJobPayload documents the payload fields of a generation job
type GenerationJobPayload struct {
	ContentType string            `json:"content_type"`
	Topic       string            `json:"topic"`
	TemplateID  string            `json:"template_id,omitempty"`
	BrandID     string            `json:"brand_id,omitempty"`
	Tone        string            `json:"tone,omitempty"`
	Audience    string            `json:"audience,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
	Variants    int               `json:"variants,omitempty"`
}
