// Package stacker drives the block-stacking planning loop: it asks the HTN
// planner for one cycle of actions at a time, executes them against the live
// world, and stops once the agent stands on the finished goal.
//
// The same Runner backs both the synchronous headless run and the
// frame-driven interactive scene; only the Motion strategy differs.
package stacker

import "errors"

var (
	// ErrPlanningFailed is returned when the planner produces no actions.
	ErrPlanningFailed = errors.New("stacker: planner failed to find a plan")
	// ErrIterationLimit is returned when the loop exceeds its iteration cap.
	ErrIterationLimit = errors.New("stacker: iteration limit exceeded")
	// ErrCancelled is returned when the run is cancelled or its scene disposed.
	ErrCancelled = errors.New("stacker: run cancelled")
)

// Terminal status strings reported through Callbacks.OnStatus.
const (
	StatusPlannerFailed  = "Planner failed to find a plan."
	StatusIterationLimit = "Iteration limit reached."
	StatusActionFailed   = "Action failed."
)
