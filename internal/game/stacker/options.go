package stacker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stacker/internal/game/ai"
	"github.com/cory-johannsen/stacker/internal/game/world"
)

// DefaultMaxIterations bounds a run against oscillating plans.
const DefaultMaxIterations = 1000

// Option configures a Runner.
type Option interface {
	applyOption(*options) error
}

type optionFunc func(*options) error

func (f optionFunc) applyOption(o *options) error { return f(o) }

type options struct {
	planner       *ai.Planner
	maxIterations int
	maxClimb      int
	reach         int
	tolerance     float64
	logger        *zap.Logger
	callbacks     Callbacks
	renderer      Renderer
	recorder      Recorder
	motion        Motion
	runID         string
}

func defaultOptions() options {
	return options{
		maxIterations: DefaultMaxIterations,
		maxClimb:      1,
		reach:         ai.DefaultReach,
		tolerance:     world.DefaultGoalTolerance,
		logger:        zap.NewNop(),
		renderer:      nopRenderer{},
		recorder:      nopRecorder{},
		motion:        Teleport{},
	}
}

func buildOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(&o); err != nil {
			return options{}, err
		}
	}
	if o.planner == nil {
		o.planner = ai.NewPlanner(ai.DefaultDomain(), nil, ai.DefaultDomainID)
	}
	return o, nil
}

// WithPlanner sets the HTN planner. Default is the built-in block_stacker
// domain without Lua hooks.
func WithPlanner(p *ai.Planner) Option {
	return optionFunc(func(o *options) error {
		if p == nil {
			return fmt.Errorf("planner cannot be nil")
		}
		o.planner = p
		return nil
	})
}

// WithMaxIterations sets the iteration cap. Default is DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return optionFunc(func(o *options) error {
		if n < 1 {
			return fmt.Errorf("max iterations must be positive, got %d", n)
		}
		o.maxIterations = n
		return nil
	})
}

// WithMaxClimb sets the navmesh step height in blocks. Default is 1.
func WithMaxClimb(n int) Option {
	return optionFunc(func(o *options) error {
		if n < 1 {
			return fmt.Errorf("max climb must be positive, got %d", n)
		}
		o.maxClimb = n
		return nil
	})
}

// WithReach sets how many blocks above its stance the agent can place onto.
func WithReach(n int) Option {
	return optionFunc(func(o *options) error {
		if n < 0 {
			return fmt.Errorf("reach must not be negative, got %d", n)
		}
		o.reach = n
		return nil
	})
}

// WithTolerance sets the goal tolerance as a fraction of one block.
func WithTolerance(f float64) Option {
	return optionFunc(func(o *options) error {
		if f <= 0 || f >= 0.5 {
			return fmt.Errorf("tolerance must be in (0, 0.5), got %g", f)
		}
		o.tolerance = f
		return nil
	})
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) error {
		if l != nil {
			o.logger = l
		}
		return nil
	})
}

// WithCallbacks sets the run observers.
func WithCallbacks(c Callbacks) Option {
	return optionFunc(func(o *options) error {
		o.callbacks = c
		return nil
	})
}

// WithRenderer sets the visual sink.
func WithRenderer(r Renderer) Option {
	return optionFunc(func(o *options) error {
		if r == nil {
			return fmt.Errorf("renderer cannot be nil")
		}
		o.renderer = r
		return nil
	})
}

// WithRecorder sets the trace sink.
func WithRecorder(r Recorder) Option {
	return optionFunc(func(o *options) error {
		if r == nil {
			return fmt.Errorf("recorder cannot be nil")
		}
		o.recorder = r
		return nil
	})
}

// WithMotion sets the action pacing. Default is Teleport.
func WithMotion(m Motion) Option {
	return optionFunc(func(o *options) error {
		if m == nil {
			return fmt.Errorf("motion cannot be nil")
		}
		o.motion = m
		return nil
	})
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return optionFunc(func(o *options) error {
		if id == "" {
			return fmt.Errorf("run ID cannot be empty")
		}
		o.runID = id
		return nil
	})
}
