package library

// HistoryFilter narrows the generation history listing
type HistoryFilter struct {
	Status      string `json:"status"` // starting, running, completed, failed, cancelled
	ContentType string `json:"content_type"`
	Limit       int    `json:"limit"` // Defaults to 50, capped at 500
}

// HistoryEntry is a list row for past generation jobs
type HistoryEntry struct {
	TaskID      string `json:"task_id"`
	ContentType string `json:"content_type"`
	Topic       string `json:"topic"`
	TemplateID  string `json:"template_id,omitempty"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Error       string `json:"error,omitempty"`
	DraftID     string `json:"draft_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// DraftFilter narrows the saved draft listing
type DraftFilter struct {
	ContentType string `json:"content_type"`
	Industry    string `json:"industry"`
	Search      string `json:"search"` // Case-insensitive match on title
	Limit       int    `json:"limit"`  // Defaults to 50, capped at 500
}

// DraftSummary is a list row for saved drafts, body omitted
type DraftSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	ContentType  string  `json:"content_type"`
	Industry     string  `json:"industry,omitempty"`
	WordCount    int     `json:"word_count"`
	QualityScore float64 `json:"quality_score"`
	VariantGroup string  `json:"variant_group,omitempty"`
	TaskID       string  `json:"task_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}
