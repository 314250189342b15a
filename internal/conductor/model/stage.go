// Package model defines the grading session data shared by the conductor, its HTTP boundary and the driver.
package model

// Stage is one phase of the grading state machine.
// Stages are totally ordered: setup < noop < detection < localization < mitigation < done.
type Stage string

const (
	StageSetup        Stage = "setup"
	StageNoop         Stage = "noop"
	StageDetection    Stage = "detection"
	StageLocalization Stage = "localization"
	StageMitigation   Stage = "mitigation"
	StageDone         Stage = "done"
)

var stageRank = map[Stage]int{
	StageSetup:        0,
	StageNoop:         1,
	StageDetection:    2,
	StageLocalization: 3,
	StageMitigation:   4,
	StageDone:         5,
}

// Rank returns the position of the stage in the total order, or -1 for unknown values.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s.Rank() >= 0
}

// Before reports whether s strictly precedes other.
func (s Stage) Before(other Stage) bool {
	return s.Rank() < other.Rank()
}

// After reports whether s strictly follows other.
func (s Stage) After(other Stage) bool {
	return s.Rank() > other.Rank()
}

// Submittable reports whether the conductor accepts submissions at this stage.
func (s Stage) Submittable() bool {
	switch s {
	case StageNoop, StageDetection, StageLocalization, StageMitigation:
		return true
	default:
		return false
	}
}

func (s Stage) String() string {
	return string(s)
}
