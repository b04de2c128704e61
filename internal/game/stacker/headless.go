package stacker

import (
	"slices"

	"github.com/cory-johannsen/stacker/internal/game/scenario"
)

// RunHeadless runs cfg to completion in one call stack. Navigation teleports,
// so every Step is one planning iteration and the run is deterministic.
//
// Planning failures and the iteration cap are reported in Result.Err, not as
// the returned error.
//
// Postcondition: returns a non-nil Result, or an error when cfg is invalid or
// an option is rejected.
func RunHeadless(cfg scenario.Config, opts ...Option) (*Result, error) {
	opts = append(slices.Clone(opts), WithMotion(Teleport{}))
	r, err := NewRunner(cfg, opts...)
	if err != nil {
		return nil, err
	}
	for !r.Step(0).Terminal() {
	}
	res := r.Result()
	return &res, nil
}
