package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"contentstudio/internal/progress"
)

func sampleSteps() []progress.Step {
	steps := progress.DefaultSteps()
	steps[0].Status = progress.StepCompleted
	steps[0].Progress = 100
	steps[1].Status = progress.StepInProgress
	steps[1].Message = "Generating draft"
	return steps
}

func TestStepGlyph(t *testing.T) {
	t.Run("Should map each status to its icon", func(t *testing.T) {
		usePlainOutput(t)

		assert.Equal(t, "✓", StepGlyph(progress.StepCompleted, ""))
		assert.Equal(t, "✗", StepGlyph(progress.StepError, ""))
		assert.Equal(t, " ", StepGlyph(progress.StepPending, ""), "Pending steps carry no icon")
		assert.Equal(t, "⠋", StepGlyph(progress.StepInProgress, "⠋"))
		assert.Equal(t, "●", StepGlyph(progress.StepInProgress, ""), "Missing frame should fall back to a dot")
	})
}

func TestChecklist(t *testing.T) {
	t.Run("Should render one line per step in order", func(t *testing.T) {
		usePlainOutput(t)

		out := Checklist(sampleSteps(), "⠙")

		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		assert.Len(t, lines, 4)
		assert.Contains(t, lines[0], "✓ Template Preparation")
		assert.Contains(t, lines[1], "⠙ Content Generation")
		assert.Contains(t, lines[1], "Generating draft")
		assert.Contains(t, lines[2], "  Quality Assessment", "Pending steps have a blank icon column")
		assert.Contains(t, lines[3], "  Optimization")
	})

	t.Run("Should fall back to the step description while in progress", func(t *testing.T) {
		usePlainOutput(t)
		steps := sampleSteps()
		steps[1].Message = ""

		out := Checklist(steps, "")

		assert.Contains(t, out, "Generating the draft content")
	})

	t.Run("Should show the failure message on an errored step", func(t *testing.T) {
		usePlainOutput(t)
		steps := sampleSteps()
		steps[1].Status = progress.StepError
		steps[1].Message = "rate limited"

		out := Checklist(steps, "")

		assert.Contains(t, out, "✗ Content Generation")
		assert.Contains(t, out, "rate limited")
	})
}

func TestProgressBar(t *testing.T) {
	t.Run("Should fill proportionally", func(t *testing.T) {
		usePlainOutput(t)

		assert.Equal(t, 0, strings.Count(ProgressBar(0), barFilled))
		assert.Equal(t, 9, strings.Count(ProgressBar(45), barFilled))
		assert.Equal(t, 20, strings.Count(ProgressBar(100), barFilled))
		assert.Contains(t, ProgressBar(45), "45%")
	})

	t.Run("Should clamp out-of-range values", func(t *testing.T) {
		usePlainOutput(t)

		assert.Contains(t, ProgressBar(-5), "0%")
		assert.Contains(t, ProgressBar(140), "100%")
		assert.Equal(t, 20, strings.Count(ProgressBar(140), barFilled))
	})
}

func TestStatusBanner(t *testing.T) {
	t.Run("Should describe each outcome", func(t *testing.T) {
		usePlainOutput(t)

		assert.Equal(t, "✓ Generation completed", StatusBanner("completed", ""))
		assert.Equal(t, "! Generation cancelled", StatusBanner("cancelled", ""))
		assert.Equal(t, "✗ Generation failed: rate limited", StatusBanner("failed", "rate limited"))
		assert.Contains(t, StatusBanner("failed", ""), "see task status")
		assert.Equal(t, "● Generation running", StatusBanner("running", ""))
	})
}
