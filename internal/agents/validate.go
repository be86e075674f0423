package agents

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError holds details about a crew validation failure.
type ValidationError struct {
	Field   string
	Message string
	Context string
}

func (e ValidationError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Field, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validator validates crew definitions.
type Validator struct {
	knownModels []string
}

// NewValidator creates a crew validator. An empty model list disables
// model checking.
func NewValidator(knownModels []string) *Validator {
	return &Validator{knownModels: knownModels}
}

// Validate checks a crew for errors and returns detailed validation errors.
func (v *Validator) Validate(crew *CrewFile) ValidationErrors {
	var errs ValidationErrors

	if crew.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "crew name is required",
		})
	}

	if len(crew.Agents) == 0 {
		errs = append(errs, ValidationError{
			Field:   "agents",
			Message: "at least one agent is required",
		})
	}

	seenAgents := make(map[string]bool)

	for i, agent := range crew.Agents {
		agentContext := fmt.Sprintf("agent[%d]", i)

		if agent.Name == "" {
			errs = append(errs, ValidationError{
				Field:   "name",
				Message: "agent name is required",
				Context: agentContext,
			})
		} else {
			if seenAgents[agent.Name] {
				errs = append(errs, ValidationError{
					Field:   "name",
					Message: fmt.Sprintf("duplicate agent name %q", agent.Name),
					Context: agentContext,
				})
			}
			seenAgents[agent.Name] = true
		}

		if agent.Goal == "" {
			errs = append(errs, ValidationError{
				Field:   "goal",
				Message: "agent goal is required",
				Context: agentContext,
			})
		}

		if agent.Model != "" && len(v.knownModels) > 0 && !v.isKnownModel(agent.Model) {
			errs = append(errs, ValidationError{
				Field:   "model",
				Message: fmt.Sprintf("unknown model %q, known models: %s", agent.Model, strings.Join(v.knownModels, ", ")),
				Context: agentContext,
			})
		}

		if agent.Temperature != nil && (*agent.Temperature < 0 || *agent.Temperature > 2) {
			errs = append(errs, ValidationError{
				Field:   "temperature",
				Message: fmt.Sprintf("temperature %.2f is outside the 0-2 range", *agent.Temperature),
				Context: agentContext,
			})
		}
	}

	seenTasks := make(map[string]bool)

	for i, task := range crew.Tasks {
		taskContext := fmt.Sprintf("task[%d]", i)

		if task.Name == "" {
			errs = append(errs, ValidationError{
				Field:   "name",
				Message: "task name is required",
				Context: taskContext,
			})
		} else {
			if seenTasks[task.Name] {
				errs = append(errs, ValidationError{
					Field:   "name",
					Message: fmt.Sprintf("duplicate task name %q", task.Name),
					Context: taskContext,
				})
			}
			seenTasks[task.Name] = true
		}

		if task.Agent == "" {
			errs = append(errs, ValidationError{
				Field:   "agent",
				Message: "task agent is required",
				Context: taskContext,
			})
		} else if !seenAgents[task.Agent] {
			errs = append(errs, ValidationError{
				Field:   "agent",
				Message: fmt.Sprintf("task references unknown agent %q", task.Agent),
				Context: taskContext,
			})
		}

		if task.Timeout != "" {
			if _, err := time.ParseDuration(task.Timeout); err != nil {
				errs = append(errs, ValidationError{
					Field:   "timeout",
					Message: fmt.Sprintf("invalid timeout %q", task.Timeout),
					Context: taskContext,
				})
			}
		}
	}

	return errs
}

func (v *Validator) isKnownModel(model string) bool {
	for _, m := range v.knownModels {
		if m == model {
			return true
		}
	}
	return false
}

// ValidateCrew is a convenience function to validate a crew against
// known model identifiers.
func ValidateCrew(crew *CrewFile, knownModels []string) error {
	validator := NewValidator(knownModels)
	errs := validator.Validate(crew)
	if errs.HasErrors() {
		return errs
	}
	return nil
}
