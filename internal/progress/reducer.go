package progress

// Reduce maps a task snapshot onto a new step slice and an overall
// progress percent. It is pure: the input slice is never mutated and
// identical inputs always produce identical outputs.
//
// The active step is selected by clamping the snapshot's
// StepsCompleted count to a valid index. Steps before it are completed
// at 100, steps after it are pending. A completed task forces every
// step to completed regardless of the counts reported, so partial or
// inconsistent counts from the backend cannot leave the model half
// done. A failed task marks the active step as the error carrier and
// leaves the earlier steps as they were.
func Reduce(steps []Step, snap TaskSnapshot) ([]Step, int) {
	out := CloneSteps(steps)
	overall := clamp(snap.Progress, 0, 100)

	if len(out) == 0 {
		return out, overall
	}

	if snap.Status == TaskCompleted {
		for i := range out {
			out[i].Status = StepCompleted
			out[i].Progress = 100
		}
		return out, 100
	}

	active := clamp(snap.StepsCompleted, 0, len(out)-1)

	for i := range out {
		switch {
		case i < active:
			out[i].Status = StepCompleted
			out[i].Progress = 100
		case i > active:
			out[i].Status = StepPending
			out[i].Progress = 0
			out[i].Message = ""
		}
	}

	cur := &out[active]
	if snap.Status == TaskFailed {
		cur.Status = StepError
		cur.Progress = 0
		if snap.Error != "" {
			cur.Message = snap.Error
		}
		return out, overall
	}

	cur.Status = StepInProgress
	cur.Progress = stepLocalProgress(overall, active, len(out))
	if snap.CurrentStep != "" {
		cur.Message = snap.CurrentStep
	}
	return out, overall
}

// stepLocalProgress converts the overall percent into the active step's
// own 0-100 value: the share of overall progress not already banked by
// the completed steps before it.
func stepLocalProgress(overall, active, total int) int {
	share := 100 / total
	if share == 0 {
		return 0
	}
	banked := share * active
	if overall <= banked {
		return 0
	}
	return clamp((overall-banked)*100/share, 0, 100)
}
