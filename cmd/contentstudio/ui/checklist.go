package ui

import (
	"fmt"
	"strings"

	"contentstudio/internal/progress"
)

// Progress bar characters.
const (
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 20
)

// StepGlyph returns the status icon for one pipeline step. frame is the
// current spinner frame, used while the step is in progress. Pending
// steps carry no icon, only the column space.
func StepGlyph(status progress.StepStatus, frame string) string {
	switch status {
	case progress.StepCompleted:
		return SuccessStyle.Render("✓")
	case progress.StepError:
		return ErrorStyle.Render("✗")
	case progress.StepInProgress:
		if frame == "" {
			frame = "●"
		}
		return AccentStyle.Render(frame)
	default:
		return " "
	}
}

// Checklist renders the pipeline steps as a vertical stepper. The
// in-progress step shows its live message (falling back to the step
// description); an errored step shows the failure text.
func Checklist(steps []progress.Step, frame string) string {
	maxLabel := 0
	for _, step := range steps {
		if len(step.Label) > maxLabel {
			maxLabel = len(step.Label)
		}
	}

	var sb strings.Builder
	for _, step := range steps {
		label := fmt.Sprintf("%-*s", maxLabel, step.Label)
		line := "  " + StepGlyph(step.Status, frame) + " " + label

		switch step.Status {
		case progress.StepInProgress:
			detail := step.Message
			if detail == "" {
				detail = step.Description
			}
			line += "  " + MutedStyle.Render(Truncate(detail, 60))
		case progress.StepError:
			if step.Message != "" {
				line += "  " + ErrorStyle.Render(Truncate(step.Message, 60))
			}
		case progress.StepPending:
			line = "  " + StepGlyph(step.Status, frame) + " " + FaintStyle.Render(label)
		}

		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// ProgressBar renders the overall 0-100 progress as a fixed-width bar
// with a percent suffix.
func ProgressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent * barWidth / 100
	bar := SuccessStyle.Render(strings.Repeat(barFilled, filled)) +
		FaintStyle.Render(strings.Repeat(barEmpty, barWidth-filled))
	return bar + " " + MutedStyle.Render(fmt.Sprintf("%d%%", percent))
}

// StatusBanner renders the terminal outcome line for a generation task.
func StatusBanner(status, errText string) string {
	switch status {
	case "completed":
		return SuccessMsg("Generation completed")
	case "cancelled":
		return WarnMsg("Generation cancelled")
	case "failed":
		if errText == "" {
			errText = "see task status for details"
		}
		return ErrorMsg("Generation failed: %s", errText)
	default:
		return InfoMsg("Generation %s", status)
	}
}
