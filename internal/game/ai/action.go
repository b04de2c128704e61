package ai

import (
	"fmt"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/world"
)

// Kind tags a primitive action.
type Kind int

const (
	// KindNavigate walks the agent along Path.
	KindNavigate Kind = iota
	// KindPick takes the top block of Cell into the agent's hand.
	KindPick
	// KindPlace sets the carried block on top of Cell.
	KindPlace
)

// String returns "navigate", "pick" or "place".
func (k Kind) String() string {
	switch k {
	case KindNavigate:
		return ActionNavigate
	case KindPick:
		return ActionPick
	case KindPlace:
		return ActionPlace
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case ActionNavigate:
		*k = KindNavigate
	case ActionPick:
		*k = KindPick
	case ActionPlace:
		*k = KindPlace
	default:
		return fmt.Errorf("ai.Kind: unknown kind %q", string(b))
	}
	return nil
}

// Action is one primitive step of a plan.
//
// Invariant: Path has at least two points when Kind is KindNavigate; Cell is
// meaningful only for KindPick and KindPlace.
type Action struct {
	Kind        Kind         `json:"kind"`
	Path        []grid.Point `json:"path,omitempty"`
	Cell        grid.Cell    `json:"cell"`
	Description string       `json:"description"`
	Operator    string       `json:"operator,omitempty"`
}

// Destination returns the last point of a navigate path, or false for other kinds.
func (a Action) Destination() (grid.Point, bool) {
	if a.Kind != KindNavigate || len(a.Path) == 0 {
		return grid.Point{}, false
	}
	return a.Path[len(a.Path)-1], true
}

// Status is the outcome of one planning call.
type Status int

const (
	// StatusPlanned means Actions holds at least one action.
	StatusPlanned Status = iota
	// StatusAtGoal means the agent already stands on the finished goal.
	StatusAtGoal
	// StatusFailed means no action could be produced; Reason says why.
	StatusFailed
)

// String returns a lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "planned"
	case StatusAtGoal:
		return "at_goal"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Frontier is the next unbuilt stair step, or the goal cell once every step is built.
type Frontier struct {
	world.StairStep
	// Goal is true when the frontier is the goal cell itself.
	Goal bool
	// Index is the stair step's position, or len(stairs) for the goal.
	Index int
}

// String returns e.g. "step 2 (5,4)@3" or "goal (6,4)@4".
func (f Frontier) String() string {
	if f.Goal {
		return "goal " + f.StairStep.String()
	}
	return fmt.Sprintf("step %d %s", f.Index, f.StairStep)
}

// Plan is the result of one planning call.
//
// Invariant: Actions is empty unless Status is StatusPlanned.
type Plan struct {
	Status   Status
	Actions  []Action
	Reason   string
	Frontier *Frontier // nil when every step and the goal are built
	Methods  []string  // applied method IDs in decomposition order
}

// Empty reports whether the plan has no actions to execute.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Actions) == 0
}

// Count returns how many actions of kind k the plan holds.
func (p *Plan) Count(k Kind) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, a := range p.Actions {
		if a.Kind == k {
			n++
		}
	}
	return n
}
