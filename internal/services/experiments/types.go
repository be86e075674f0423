package experiments

// CreateExperimentRequest represents a new A/B experiment over saved drafts
type CreateExperimentRequest struct {
	Name     string   `json:"name"`
	Goal     string   `json:"goal"`      // Defaults to "conversion_rate"
	DraftIDs []string `json:"draft_ids"` // Two or more saved drafts
}

// MetricsUpdate represents counter deltas observed for one variant
type MetricsUpdate struct {
	ExperimentID string `json:"experiment_id"`
	VariantID    string `json:"variant_id"` // Variant ID or label ("A", "B", ...)
	Impressions  int64  `json:"impressions"`
	Conversions  int64  `json:"conversions"`
}

// VariantReport contains the evaluated state of one variant
type VariantReport struct {
	VariantID      string  `json:"variant_id"`
	DraftID        string  `json:"draft_id"`
	Label          string  `json:"label"`
	DraftTitle     string  `json:"draft_title,omitempty"`
	Impressions    int64   `json:"impressions"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"` // 0-100 percentage
	Leader         bool    `json:"leader,omitempty"`
}

// ExperimentReport contains the evaluation of a whole experiment
type ExperimentReport struct {
	ExperimentID string          `json:"experiment_id"`
	Name         string          `json:"name"`
	Goal         string          `json:"goal"`
	Status       string          `json:"status"` // running, completed
	Variants     []VariantReport `json:"variants"`
	LeaderID     string          `json:"leader_id,omitempty"`
	Lift         float64         `json:"lift,omitempty"` // Leader rate over runner-up, percent
	Conclusive   bool            `json:"conclusive"`
	Note         string          `json:"note,omitempty"`      // Set when inconclusive
	WinnerID     string          `json:"winner_id,omitempty"` // Frozen by CompleteExperiment
}

// ExperimentSummary is a list row for saved experiments
type ExperimentSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Goal      string `json:"goal"`
	Status    string `json:"status"`
	Variants  int    `json:"variants"`
	WinnerID  string `json:"winner_id,omitempty"`
	CreatedAt string `json:"created_at"`
}
