package stacker

import (
	"github.com/cory-johannsen/stacker/internal/game/ai"
	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/scenario"
)

// PlanInfo describes a freshly made plan for visualisation.
type PlanInfo struct {
	Iteration int
	Actions   []ai.Action
	Frontier  *ai.Frontier

	// Path joins every navigate path of the plan in execution order.
	Path []grid.Point
}

// Callbacks are optional observers of a run. Any field may be nil.
type Callbacks struct {
	OnStatus     func(text string)
	OnAction     func(text string)
	OnPlanUpdate func(info PlanInfo)

	// OnDone fires once when a run reaches PhaseDone or PhaseFailed. It never
	// fires for a cancelled run.
	OnDone func(res Result)
}

func (c Callbacks) status(text string) {
	if c.OnStatus != nil {
		c.OnStatus(text)
	}
}

func (c Callbacks) action(text string) {
	if c.OnAction != nil {
		c.OnAction(text)
	}
}

func (c Callbacks) planUpdate(info PlanInfo) {
	if c.OnPlanUpdate != nil {
		c.OnPlanUpdate(info)
	}
}

func (c Callbacks) done(res Result) {
	if c.OnDone != nil {
		c.OnDone(res)
	}
}

// Renderer receives visual updates. It must not retain g beyond the call.
type Renderer interface {
	GridChanged(g *grid.Grid)
	AgentMoved(pos grid.Point, carrying bool)
	PathChanged(path []grid.Point)
}

// Recorder receives the run's events for tracing. trace.Recorder implements it.
type Recorder interface {
	RunStarted(runID string, cfg scenario.Config, domain string)
	PlanMade(iteration int, plan *ai.Plan)
	ActionStarted(iteration int, action ai.Action)
	RunFinished(reachedGoal bool, iterations int, final *grid.Grid, err error)
}

type nopRenderer struct{}

func (nopRenderer) GridChanged(*grid.Grid) {}
func (nopRenderer) AgentMoved(grid.Point, bool) {}
func (nopRenderer) PathChanged([]grid.Point) {}

type nopRecorder struct{}

func (nopRecorder) RunStarted(string, scenario.Config, string) {}
func (nopRecorder) PlanMade(int, *ai.Plan) {}
func (nopRecorder) ActionStarted(int, ai.Action) {}
func (nopRecorder) RunFinished(bool, int, *grid.Grid, error) {}
