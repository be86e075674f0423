package progress

// StepStatus describes the display state of a single pipeline step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

// Terminal reports whether the step can no longer change within the
// current task's lifetime.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepError
}

// Pipeline phase IDs, in execution order.
const (
	PhaseTemplatePreparation = "template-preparation"
	PhaseContentGeneration   = "content-generation"
	PhaseQualityAssessment   = "quality-assessment"
	PhaseOptimization        = "optimization"
)

// Step is one phase of the four-phase generation pipeline as surfaced
// to the user. Progress is only meaningful while the step is
// in-progress; Message carries free-text detail from the backing task.
type Step struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
}

// DefaultSteps returns the four pipeline steps in their initial pending
// state. Each call returns a fresh slice.
func DefaultSteps() []Step {
	return []Step{
		{
			ID:          PhaseTemplatePreparation,
			Label:       "Template Preparation",
			Description: "Selecting the template and filling brand placeholders",
			Status:      StepPending,
		},
		{
			ID:          PhaseContentGeneration,
			Label:       "Content Generation",
			Description: "Generating the draft content",
			Status:      StepPending,
		},
		{
			ID:          PhaseQualityAssessment,
			Label:       "Quality Assessment",
			Description: "Scoring the draft for quality and brand fit",
			Status:      StepPending,
		},
		{
			ID:          PhaseOptimization,
			Label:       "Optimization",
			Description: "Refining tone, structure and length",
			Status:      StepPending,
		},
	}
}

// CloneSteps returns a copy of steps that is safe to modify without
// affecting the original.
func CloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
