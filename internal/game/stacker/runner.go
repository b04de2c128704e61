package stacker

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	bt "github.com/joeycumines/go-behaviortree"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stacker/internal/game/ai"
	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/navmesh"
	"github.com/cory-johannsen/stacker/internal/game/scenario"
	"github.com/cory-johannsen/stacker/internal/game/world"
	"github.com/cory-johannsen/stacker/internal/observability"
)

// Phase is the planning loop's state.
type Phase int

const (
	// PhasePlanning asks the planner for the next cycle on the next Step.
	PhasePlanning Phase = iota
	// PhaseExecuting ticks the current plan's behaviour tree.
	PhaseExecuting
	// PhaseDone means the agent stands on the finished goal.
	PhaseDone
	// PhaseFailed means the run stopped on an error or cancellation.
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhasePlanning:
		return "planning"
	case PhaseExecuting:
		return "executing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Terminal reports whether no further Step can change the run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Result summarises a finished (or interrupted) run.
type Result struct {
	RunID       string
	ReachedGoal bool
	Iterations  int
	Actions     []ai.Action
	FinalGrid   *grid.Grid

	// Rebuilds counts navmesh compilations of the live world, the initial one included.
	Rebuilds int
	Err      error
}

// Count returns how many executed actions were of kind k.
func (r Result) Count(k ai.Kind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == k {
			n++
		}
	}
	return n
}

// Runner owns one run's live world and drives it one frame at a time.
//
// A Runner is not safe for concurrent use, except for Cancel.
type Runner struct {
	cfg       scenario.Config
	opts      options
	logger    *zap.Logger
	runID     string
	live      *world.State
	objective ai.Objective

	phase      Phase
	iterations int
	actions    []ai.Action
	tree       bt.Node
	dt         time.Duration
	reached    bool
	err        error

	cancelled atomic.Bool
}

// NewRunner lays out cfg, compiles the initial navmesh and records the run start.
//
// Postcondition: returns a Runner in PhasePlanning, or an error when cfg is
// invalid or an option is rejected.
func NewRunner(cfg scenario.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stacker.NewRunner: %w", err)
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("stacker.NewRunner: %w", err)
	}
	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	g := scenario.InitialGrid(cfg)
	agent := world.Agent{Position: scenario.StartPosition(cfg, g), Carrying: cfg.StartCarrying}
	objective := ai.Objective{Stairs: cfg.Stairs, Goal: cfg.Goal, Supplies: cfg.SupplyCells()}
	r := &Runner{
		cfg:       cfg,
		opts:      o,
		runID:     runID,
		live:      world.NewState(g, agent, navmesh.Options{MaxClimb: o.maxClimb}),
		logger:    observability.ForRun(o.logger, runID, cfg.Name),
		objective: objective,
	}

	domain := o.planner.Domain().ID
	r.logger.Info("run started",
		zap.String("domain", domain),
		zap.Int("max_iterations", o.maxIterations),
		zap.Int("blocks", cfg.Blocks()),
	)
	o.recorder.RunStarted(runID, cfg, domain)
	o.renderer.GridChanged(r.live.Grid())
	o.renderer.AgentMoved(agent.Position, agent.Carrying)
	return r, nil
}

// RunID returns the run's identifier.
func (r *Runner) RunID() string { return r.runID }

// Scenario returns the configuration the run was laid out from.
func (r *Runner) Scenario() scenario.Config { return r.cfg }

// Phase returns the current phase.
func (r *Runner) Phase() Phase { return r.phase }

// Iterations returns how many planning iterations have started.
func (r *Runner) Iterations() int { return r.iterations }

// World returns the live world. Callers must not mutate it.
func (r *Runner) World() *world.State { return r.live }

// Cancel stops the run before its next action or iteration. Actions already
// committed stay committed. Safe to call from any goroutine.
func (r *Runner) Cancel() {
	r.cancelled.Store(true)
}

// Result snapshots the run so far.
func (r *Runner) Result() Result {
	return Result{
		RunID:       r.runID,
		ReachedGoal: r.reached,
		Iterations:  r.iterations,
		Actions:     slices.Clone(r.actions),
		FinalGrid:   r.live.Grid().Clone(),
		Rebuilds:    r.live.Rebuilds(),
		Err:         r.err,
	}
}

// Step advances the run by one frame of length dt. In PhasePlanning it runs
// one planning iteration and then ticks the new plan once, so under Teleport
// motion every Step is exactly one iteration.
//
// Postcondition: returns the phase after the frame.
func (r *Runner) Step(dt time.Duration) Phase {
	if r.phase.Terminal() {
		return r.phase
	}
	if r.cancelled.Load() {
		r.abandon()
		return r.phase
	}
	r.dt = dt
	if r.phase == PhasePlanning {
		r.plan()
	}
	if r.phase == PhaseExecuting {
		r.tick()
	}
	return r.phase
}

// plan runs one iteration: cap check, termination on the live world, then a
// planning call against a clone.
func (r *Runner) plan() {
	r.iterations++
	if r.iterations > r.opts.maxIterations {
		r.fail(fmt.Errorf("%w (%d)", ErrIterationLimit, r.opts.maxIterations), StatusIterationLimit)
		return
	}
	if r.objective.Finished(r.live, r.opts.tolerance) {
		r.succeed()
		return
	}

	ws := ai.BuildWorldState(r.live, r.objective, r.opts.reach, r.opts.tolerance)
	p, err := r.opts.planner.Plan(ws)
	if err != nil {
		r.fail(fmt.Errorf("stacker: planning: %w", err), StatusPlannerFailed)
		return
	}
	r.opts.recorder.PlanMade(r.iterations, p)
	if p.Status == ai.StatusAtGoal {
		r.succeed()
		return
	}
	if p.Empty() {
		r.fail(fmt.Errorf("%w: %s", ErrPlanningFailed, p.Reason), StatusPlannerFailed)
		return
	}

	r.logger.Debug("plan made",
		zap.Int("iteration", r.iterations),
		zap.Int("actions", len(p.Actions)),
		zap.Strings("methods", p.Methods),
		zap.String("frontier", describe(p.Frontier)),
	)
	r.opts.callbacks.status(fmt.Sprintf("Iteration %d: %s", r.iterations, describe(p.Frontier)))
	r.opts.callbacks.planUpdate(PlanInfo{
		Iteration: r.iterations,
		Actions:   slices.Clone(p.Actions),
		Frontier:  p.Frontier,
		Path:      joinPaths(p.Actions),
	})
	r.tree = r.compile(p.Actions)
	r.phase = PhaseExecuting
}

// compile turns the plan into a memorised sequence so actions that span
// several frames resume where they left off.
func (r *Runner) compile(actions []ai.Action) bt.Node {
	children := make([]bt.Node, len(actions))
	for i, a := range actions {
		children[i] = r.actionNode(a)
	}
	return bt.New(bt.Memorize(bt.Sequence), children...)
}

func (r *Runner) actionNode(a ai.Action) bt.Node {
	var (
		started   bool
		travelled float64
		waited    time.Duration
	)
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if !started {
			if r.cancelled.Load() {
				return bt.Failure, ErrCancelled
			}
			started = true
			r.begin(a)
		}
		switch a.Kind {
		case ai.KindNavigate:
			pos, next, done := r.opts.motion.Advance(a.Path, travelled, r.dt)
			travelled = next
			r.live.MoveAgent(pos)
			r.opts.renderer.AgentMoved(pos, r.live.Agent().Carrying)
			if !done {
				return bt.Running, nil
			}
			return bt.Success, nil
		case ai.KindPick, ai.KindPlace:
			next, done := r.opts.motion.Settle(waited, r.dt)
			waited = next
			if !done {
				return bt.Running, nil
			}
			if r.cancelled.Load() {
				return bt.Failure, ErrCancelled
			}
			if err := r.commit(a); err != nil {
				return bt.Failure, err
			}
			return bt.Success, nil
		default:
			return bt.Failure, fmt.Errorf("stacker: unknown action kind %s", a.Kind)
		}
	})
}

func (r *Runner) tick() {
	status, err := r.tree.Tick()
	switch {
	case errors.Is(err, ErrCancelled):
		r.abandon()
	case err != nil:
		r.fail(err, StatusActionFailed)
	case status == bt.Running:
	case status == bt.Success:
		r.tree = nil
		r.phase = PhasePlanning
	default:
		r.fail(errors.New("stacker: plan execution failed"), StatusActionFailed)
	}
}

func (r *Runner) begin(a ai.Action) {
	r.actions = append(r.actions, a)
	fields := []zap.Field{
		zap.Int("iteration", r.iterations),
		zap.Stringer("kind", a.Kind),
		zap.String("description", a.Description),
	}
	if dest, ok := a.Destination(); ok {
		fields = append(fields, zap.Stringer("destination", dest))
	}
	r.logger.Debug("action started", fields...)
	r.opts.callbacks.action(a.Description)
	r.opts.recorder.ActionStarted(r.iterations, a)
	if a.Kind == ai.KindNavigate {
		r.opts.renderer.PathChanged(a.Path)
	}
}

// commit applies a pick or place to the live world. The mutation and the
// navmesh rebuild happen together inside world.State.
func (r *Runner) commit(a ai.Action) error {
	var err error
	if a.Kind == ai.KindPick {
		err = r.live.Pick(a.Cell)
	} else {
		err = r.live.Place(a.Cell)
	}
	if err != nil {
		return fmt.Errorf("stacker: %s %s: %w", a.Kind, a.Cell, err)
	}
	agent := r.live.Agent()
	r.logger.Debug("world mutated",
		zap.Stringer("kind", a.Kind),
		zap.Stringer("cell", a.Cell),
		zap.Int("height", r.live.Grid().Height(a.Cell)),
		zap.Int("rebuilds", r.live.Rebuilds()),
	)
	r.opts.renderer.GridChanged(r.live.Grid())
	r.opts.renderer.AgentMoved(agent.Position, agent.Carrying)
	return nil
}

func (r *Runner) succeed() {
	r.phase = PhaseDone
	r.reached = true
	r.opts.callbacks.status(fmt.Sprintf("Reached goal in %d iterations.", r.iterations))
	r.finish()
}

func (r *Runner) fail(err error, status string) {
	r.phase = PhaseFailed
	r.err = err
	r.tree = nil
	r.opts.callbacks.status(status)
	r.finish()
}

func (r *Runner) finish() {
	res := r.Result()
	r.opts.recorder.RunFinished(res.ReachedGoal, res.Iterations, res.FinalGrid, res.Err)
	fields := []zap.Field{
		zap.Bool("reached_goal", res.ReachedGoal),
		zap.Int("iterations", res.Iterations),
		zap.Int("actions", len(res.Actions)),
		zap.Int("rebuilds", res.Rebuilds),
	}
	if res.Err != nil {
		r.logger.Warn("run failed", append(fields, zap.Error(res.Err))...)
	} else {
		r.logger.Info("run finished", fields...)
	}
	r.opts.callbacks.done(res)
}

// abandon ends a cancelled run without firing callbacks.
func (r *Runner) abandon() {
	r.phase = PhaseFailed
	r.err = ErrCancelled
	r.tree = nil
	r.opts.recorder.RunFinished(false, r.iterations, r.live.Grid(), ErrCancelled)
	r.logger.Info("run cancelled", zap.Int("iterations", r.iterations))
}

// describe names what the plan works toward.
func describe(f *ai.Frontier) string {
	if f == nil {
		return "walking to the goal"
	}
	return "building " + f.String()
}

// joinPaths concatenates the navigate paths of actions, dropping the repeated
// joint between consecutive paths.
func joinPaths(actions []ai.Action) []grid.Point {
	var out []grid.Point
	for _, a := range actions {
		if a.Kind != ai.KindNavigate {
			continue
		}
		path := a.Path
		if len(out) > 0 && len(path) > 0 && out[len(out)-1] == path[0] {
			path = path[1:]
		}
		out = append(out, path...)
	}
	return out
}
