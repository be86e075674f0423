package progress

import "encoding/json"

// TaskStatus is the overall state the content API reports for a
// generation task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether no further snapshots can change the task.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskSnapshot is a point-in-time read of a generation task, as
// returned by the status endpoint and by the task event stream. Every
// field beyond Status is optional on the wire; defaults are applied
// where the snapshot is consumed, not by the decoder.
type TaskSnapshot struct {
	TaskID                  string          `json:"task_id,omitempty"`
	Status                  TaskStatus      `json:"status"`
	Progress                int             `json:"progress"`
	StepsCompleted          int             `json:"steps_completed"`
	TotalSteps              int             `json:"total_steps,omitempty"`
	CurrentStep             string          `json:"current_step,omitempty"`
	Error                   string          `json:"error,omitempty"`
	Result                  json.RawMessage `json:"result,omitempty"`
	EstimatedCompletionTime string          `json:"estimated_completion_time,omitempty"`
}

// Terminal reports whether the snapshot describes a finished task.
func (s TaskSnapshot) Terminal() bool {
	return s.Status.Terminal()
}
