package trace

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stacker/internal/game/ai"
	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/scenario"
	"github.com/cory-johannsen/stacker/internal/observability"
)

// Entry types.
const (
	TypeRun    = "run"
	TypePlan   = "plan"
	TypeAction = "action"
	TypeResult = "result"
)

// Entry is one line of a run trace.
type Entry struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Time      time.Time `json:"time"`
	Iteration int       `json:"iteration,omitempty"`

	// run
	Scenario *scenario.Config `json:"scenario,omitempty"`
	Domain   string           `json:"domain,omitempty"`

	// plan
	Status   string       `json:"status,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Frontier *ai.Frontier `json:"frontier,omitempty"`
	Methods  []string     `json:"methods,omitempty"`
	Planned  int          `json:"planned,omitempty"`

	// action
	Action *ai.Action `json:"action,omitempty"`

	// result
	ReachedGoal *bool   `json:"reached_goal,omitempty"`
	Heights     [][]int `json:"heights,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// writer is the sink a Recorder appends entries to.
type writer interface {
	Write(v any) error
}

// Recorder turns planning-loop events into trace entries.
//
// Write failures are logged and remembered; the run is never interrupted.
type Recorder struct {
	w      writer
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	runID string
	err   error
}

// NewRecorder returns a Recorder writing to w.
//
// Precondition: w must not be nil.
func NewRecorder(w *JSONLZstdWriter, logger *zap.Logger) *Recorder {
	if w == nil {
		panic("trace.NewRecorder: writer must not be nil")
	}
	return &Recorder{w: w, logger: observability.OrNop(logger), now: time.Now}
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) write(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.RunID == "" {
		e.RunID = r.runID
	}
	e.Time = r.now().UTC()
	if err := r.w.Write(e); err != nil {
		if r.err == nil {
			r.err = err
		}
		r.logger.Warn("trace: write failed", zap.String("type", e.Type), zap.Error(err))
	}
}

// RunStarted writes the run header.
func (r *Recorder) RunStarted(runID string, cfg scenario.Config, domain string) {
	r.mu.Lock()
	r.runID = runID
	r.mu.Unlock()
	r.write(Entry{Type: TypeRun, RunID: runID, Scenario: &cfg, Domain: domain})
}

// PlanMade writes a plan summary.
func (r *Recorder) PlanMade(iteration int, plan *ai.Plan) {
	r.write(Entry{
		Type:      TypePlan,
		Iteration: iteration,
		Status:    plan.Status.String(),
		Reason:    plan.Reason,
		Frontier:  plan.Frontier,
		Methods:   plan.Methods,
		Planned:   len(plan.Actions),
	})
}

// ActionStarted writes an action as it begins executing.
func (r *Recorder) ActionStarted(iteration int, action ai.Action) {
	a := action
	r.write(Entry{Type: TypeAction, Iteration: iteration, Action: &a})
}

// RunFinished writes the run's outcome and final grid.
func (r *Recorder) RunFinished(reachedGoal bool, iterations int, final *grid.Grid, err error) {
	e := Entry{Type: TypeResult, Iteration: iterations, ReachedGoal: &reachedGoal}
	if final != nil {
		e.Heights = final.Heights()
	}
	if err != nil {
		e.Error = err.Error()
	}
	r.write(e)
}

// Actions returns the action entries of a decoded trace in order.
func Actions(entries []Entry) []ai.Action {
	var out []ai.Action
	for _, e := range entries {
		if e.Type == TypeAction && e.Action != nil {
			out = append(out, *e.Action)
		}
	}
	return out
}
