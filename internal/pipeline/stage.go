package pipeline

import (
	"fmt"

	"github.com/crimson-sun/thermofin/internal/model"
)

// Stage is a sample's position in the per-sample pipeline. A sample
// advances one stage at a time; StageFailed is reachable from any
// non-terminal stage. Only StageStored and StageFailed are terminal.
type Stage uint8

const (
	StageSampled Stage = iota
	StageGeometrized
	StageMeshed
	StageAssembled
	StageSolved
	StageResampled
	StageStored
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageSampled:
		return "sampled"
	case StageGeometrized:
		return "geometrized"
	case StageMeshed:
		return "meshed"
	case StageAssembled:
		return "assembled"
	case StageSolved:
		return "solved"
	case StageResampled:
		return "resampled"
	case StageStored:
		return "stored"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stage ends a sample's lifecycle.
func (s Stage) Terminal() bool {
	return s == StageStored || s == StageFailed
}

// CanTransition reports whether a sample may move from one stage to
// another: forward by exactly one step, or to StageFailed from any
// non-terminal stage.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return to == from+1 && to <= StageStored
}

// SampleError records one skipped sample: which stage failed, for which
// parameter vector, and why. The run continues past it.
type SampleError struct {
	Index  int
	Stage  Stage
	Params model.ParameterVector
	Err    error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %d failed at stage %s: %v", e.Index, e.Stage, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }
