package slicer

import "fmt"

// Stage names a step of an extraction. Stages are reported in order at
// debug level; StageError ends a request that could not allocate its
// buffers.
type Stage int

const (
	StageInit Stage = iota
	StageAllocateOutput
	StageIterateZSubsteps
	StageIterateFrames
	StageIterateGates
	StageIterateXY
	StageNormalize
	StageDone
	StageError
)

var stageNames = [...]string{
	StageInit:             "init",
	StageAllocateOutput:   "allocate-output",
	StageIterateZSubsteps: "iterate-z-substeps",
	StageIterateFrames:    "iterate-frames",
	StageIterateGates:     "iterate-gates",
	StageIterateXY:        "iterate-xy",
	StageNormalize:        "normalize",
	StageDone:             "done",
	StageError:            "error",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}
