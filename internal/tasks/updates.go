package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	GeneratingSample Phase = iota
	SampleSaved
	SampleFailed
)

func (p Phase) String() string {
	switch p {
	case GeneratingSample:
		return "generating_sample"
	case SampleSaved:
		return "sample_saved"
	case SampleFailed:
		return "sample_failed"
	default:
		return ""
	}
}

// sendProgress delivers update without blocking; updates are dropped when the channel is full.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func generatingSampleUpdate(step, total, seed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GeneratingSample,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Generating sample for seed %d...", step, total, seed),
	}
}

func sampleSavedUpdate(step, total int, res SampleResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SampleSaved,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ seed %d → %s (%d bytes)", step, total, res.Seed, res.Path, res.Size),
		Data:    res,
	}
}

func sampleFailedUpdate(step, total int, res SampleResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SampleFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ seed %d: %v", step, total, res.Seed, res.Err),
		Data:    res,
	}
}
