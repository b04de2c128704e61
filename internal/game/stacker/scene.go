package stacker

import (
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stacker/internal/game/scenario"
	"github.com/cory-johannsen/stacker/internal/observability"
)

// Scene defaults.
const (
	DefaultSpeed       = 4.0
	DefaultActionDelay = 250 * time.Millisecond
)

// SceneOptions configures an interactive scene.
type SceneOptions struct {
	Config scenario.Config

	// Speed is the agent's travel speed in blocks per second. Zero means DefaultSpeed.
	Speed float64

	// ActionDelay holds each pick and place before it commits. Zero means
	// DefaultActionDelay; negative means no delay.
	ActionDelay time.Duration

	// Run options apply to every run the scene starts. The scene overrides
	// WithMotion, WithCallbacks and WithLogger.
	Run    []Option
	Logger *zap.Logger
}

// Scene is the interactive driver: it steps a Runner once per host frame and
// keeps rescheduling itself until the run ends or the scene is disposed.
//
// Dispose, SetSpeed and SetConfig are safe to call from any goroutine. The
// runner itself is only touched from frame callbacks.
type Scene struct {
	host      Host
	callbacks Callbacks
	opts      SceneOptions
	logger    *zap.Logger

	speed     atomic.Uint64 // math.Float64bits
	disposed  atomic.Bool
	scheduled atomic.Bool
	pending   atomic.Pointer[scenario.Config]
	runner    atomic.Pointer[Runner]
}

// NewScene validates opts.Config, starts its run and requests the first frame.
//
// Precondition: host must not be nil.
// Postcondition: returns a running Scene, or an error for an invalid config or option.
func NewScene(host Host, callbacks Callbacks, opts SceneOptions) (*Scene, error) {
	if host == nil {
		panic("stacker.NewScene: host must not be nil")
	}
	if opts.Speed < 0 {
		return nil, fmt.Errorf("stacker.NewScene: speed must not be negative, got %g", opts.Speed)
	}
	if opts.Speed == 0 {
		opts.Speed = DefaultSpeed
	}
	if opts.ActionDelay == 0 {
		opts.ActionDelay = DefaultActionDelay
	}
	s := &Scene{host: host, callbacks: callbacks, opts: opts, logger: observability.OrNop(opts.Logger)}
	s.speed.Store(math.Float64bits(opts.Speed))

	r, err := s.newRunner(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("stacker.NewScene: %w", err)
	}
	s.runner.Store(r)
	s.schedule()
	return s, nil
}

// Dispose cancels the current run. No callback fires and no world mutation
// happens afterwards, and the scene stops requesting frames.
func (s *Scene) Dispose() {
	if s.disposed.Swap(true) {
		return
	}
	if r := s.runner.Load(); r != nil {
		r.Cancel()
	}
	s.logger.Debug("scene disposed")
}

// Disposed reports whether Dispose has been called.
func (s *Scene) Disposed() bool {
	return s.disposed.Load()
}

// SetSpeed changes the travel speed in blocks per second from the next frame on.
func (s *Scene) SetSpeed(blocksPerSecond float64) error {
	if blocksPerSecond <= 0 || math.IsNaN(blocksPerSecond) || math.IsInf(blocksPerSecond, 0) {
		return fmt.Errorf("stacker.Scene.SetSpeed: speed must be positive and finite, got %g", blocksPerSecond)
	}
	s.speed.Store(math.Float64bits(blocksPerSecond))
	return nil
}

// Speed returns the current travel speed in blocks per second.
func (s *Scene) Speed() float64 {
	return math.Float64frombits(s.speed.Load())
}

// SetConfig replaces the current run with a fresh run of cfg on the next frame.
//
// Postcondition: returns an error, and changes nothing, when cfg is invalid
// or the scene is disposed.
func (s *Scene) SetConfig(cfg scenario.Config) error {
	if s.Disposed() {
		return fmt.Errorf("stacker.Scene.SetConfig: %w", ErrCancelled)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("stacker.Scene.SetConfig: %w", err)
	}
	s.pending.Store(&cfg)
	s.schedule()
	return nil
}

// Result snapshots the current run.
func (s *Scene) Result() Result {
	return s.runner.Load().Result()
}

func (s *Scene) schedule() {
	if s.scheduled.CompareAndSwap(false, true) {
		s.host.RequestFrame(s.frame)
	}
}

func (s *Scene) frame(dt time.Duration) {
	if s.Disposed() {
		s.runner.Load().Step(dt)
		s.scheduled.Store(false)
		return
	}
	if cfg := s.pending.Swap(nil); cfg != nil {
		s.restart(*cfg)
	}
	if !s.runner.Load().Step(dt).Terminal() {
		s.host.RequestFrame(s.frame)
		return
	}
	s.scheduled.Store(false)
	// A SetConfig racing the end of the run would otherwise be missed.
	if s.pending.Load() != nil {
		s.schedule()
	}
}

func (s *Scene) restart(cfg scenario.Config) {
	old := s.runner.Load()
	old.Cancel()
	old.Step(0)
	r, err := s.newRunner(cfg)
	if err != nil {
		// cfg was validated by SetConfig, so only a bad Run option lands here.
		s.logger.Error("scene restart failed", zap.Error(err))
		return
	}
	s.runner.Store(r)
	s.logger.Info("scene restarted", zap.String("scenario", cfg.Name), zap.String("run_id", r.RunID()))
}

func (s *Scene) newRunner(cfg scenario.Config) (*Runner, error) {
	delay := s.opts.ActionDelay
	if delay < 0 {
		delay = 0
	}
	motion := Animated{
		Speed:     s.Speed,
		BlockSize: cfg.Dimensions.BlockSize,
		Delay:     delay,
	}
	opts := append(slices.Clone(s.opts.Run),
		WithLogger(s.logger),
		WithMotion(motion),
		WithCallbacks(s.guarded()),
	)
	return NewRunner(cfg, opts...)
}

// guarded wraps the scene callbacks so none fires after Dispose.
func (s *Scene) guarded() Callbacks {
	cb := s.callbacks
	live := func() bool { return !s.Disposed() }
	var out Callbacks
	if cb.OnStatus != nil {
		out.OnStatus = func(text string) {
			if live() {
				cb.OnStatus(text)
			}
		}
	}
	if cb.OnAction != nil {
		out.OnAction = func(text string) {
			if live() {
				cb.OnAction(text)
			}
		}
	}
	if cb.OnPlanUpdate != nil {
		out.OnPlanUpdate = func(info PlanInfo) {
			if live() {
				cb.OnPlanUpdate(info)
			}
		}
	}
	if cb.OnDone != nil {
		out.OnDone = func(res Result) {
			if live() {
				cb.OnDone(res)
			}
		}
	}
	return out
}
