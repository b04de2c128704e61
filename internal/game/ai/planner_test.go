package ai_test

import (
	"errors"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stacker/internal/game/ai"
	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/navmesh"
	"github.com/cory-johannsen/stacker/internal/game/world"
)

// mockScriptCaller returns the given value for any hook call and records the calls.
type mockScriptCaller struct {
	returnVal lua.LValue
	err       error
	hooks     []string
	args      [][]lua.LValue
}

func (m *mockScriptCaller) CallHook(scriptID, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.hooks = append(m.hooks, hook)
	m.args = append(m.args, args)
	if m.err != nil {
		return lua.LNil, m.err
	}
	if m.returnVal == nil {
		return lua.LNil, nil
	}
	return m.returnVal, nil
}

// fixture describes a small block world for planning tests.
type fixture struct {
	width, depth int
	heights      map[grid.Cell]int
	start        grid.Cell
	carrying     bool
	objective    ai.Objective
}

func (f fixture) live() *world.State {
	g := grid.NewGrid(grid.Dimensions{Width: f.width, Depth: f.depth, BlockSize: 1})
	for c, h := range f.heights {
		g.SetHeight(c, h)
	}
	agent := world.Agent{Position: g.CellTop(f.start), Carrying: f.carrying}
	return world.NewState(g, agent, navmesh.Options{MaxClimb: 1})
}

func (f fixture) snapshot(live *world.State) *ai.WorldState {
	return ai.BuildWorldState(live, f.objective, ai.DefaultReach, world.DefaultGoalTolerance)
}

func kinds(actions []ai.Action) []ai.Kind {
	out := make([]ai.Kind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func equalKinds(a, b []ai.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func defaultPlanner() *ai.Planner {
	return ai.NewPlanner(ai.DefaultDomain(), nil, ai.DefaultDomainID)
}

func TestPlanner_Plan_AtGoalIsEmpty(t *testing.T) {
	goal := grid.Cell{X: 4, Z: 4}
	f := fixture{
		width: 10, depth: 10,
		heights:   map[grid.Cell]int{goal: 2},
		start:     goal,
		objective: ai.Objective{Goal: world.Goal{Cell: goal, Height: 2}},
	}
	plan, err := defaultPlanner().Plan(f.snapshot(f.live()))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Status != ai.StatusAtGoal || !plan.Empty() {
		t.Fatalf("expected empty at-goal plan, got %v with %d actions", plan.Status, len(plan.Actions))
	}
}

func TestPlanner_Plan_OnGoalWithUnbuiltStairKeepsBuilding(t *testing.T) {
	goal := grid.Cell{X: 4, Z: 5}
	stair := grid.Cell{X: 5, Z: 5}
	f := fixture{
		width: 10, depth: 10,
		heights:  map[grid.Cell]int{stair: 1},
		start:    goal,
		carrying: true,
		objective: ai.Objective{
			Stairs: []world.StairStep{{Cell: stair, Height: 2}},
			Goal:   world.Goal{Cell: goal, Height: 0},
		},
	}
	ws := f.snapshot(f.live())
	if ws.AtGoal() {
		t.Fatal("agent on the goal with an unbuilt stair must not count as at goal")
	}
	plan, err := defaultPlanner().Plan(ws)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Status == ai.StatusAtGoal {
		t.Fatal("expected a build plan, got at_goal")
	}
	placed := false
	for _, a := range plan.Actions {
		placed = placed || (a.Kind == ai.KindPlace && a.Cell == stair)
	}
	if !placed {
		t.Fatalf("expected a place on %s, got %v", stair, kinds(plan.Actions))
	}
}

func TestPlanner_Plan_NavigatesWhenNothingToBuild(t *testing.T) {
	goal := grid.Cell{X: 3, Z: 3}
	f := fixture{
		width: 10, depth: 10,
		heights:   map[grid.Cell]int{goal: 1},
		start:     grid.Cell{X: 1, Z: 1},
		objective: ai.Objective{Goal: world.Goal{Cell: goal, Height: 1}},
	}
	live := f.live()
	plan, err := defaultPlanner().Plan(f.snapshot(live))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !equalKinds(kinds(plan.Actions), []ai.Kind{ai.KindNavigate}) {
		t.Fatalf("expected a single navigate, got %v", kinds(plan.Actions))
	}
	dest, _ := plan.Actions[0].Destination()
	if dest != live.Grid().CellTop(goal) {
		t.Fatalf("navigate ends at %v, want goal top", dest)
	}
	if plan.Frontier != nil {
		t.Fatalf("expected no frontier, got %v", plan.Frontier)
	}
}

func TestPlanner_Plan_FetchesAndPlacesOneBlock(t *testing.T) {
	stair := grid.Cell{X: 3, Z: 4}
	goal := grid.Cell{X: 4, Z: 4}
	pile := grid.Cell{X: 1, Z: 6}
	f := fixture{
		width: 10, depth: 10,
		heights: map[grid.Cell]int{goal: 2, pile: 2},
		start:   grid.Cell{X: 1, Z: 4},
		objective: ai.Objective{
			Stairs:   []world.StairStep{{Cell: stair, Height: 1}},
			Goal:     world.Goal{Cell: goal, Height: 2},
			Supplies: []grid.Cell{pile},
		},
	}
	live := f.live()
	plan, err := defaultPlanner().Plan(f.snapshot(live))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []ai.Kind{ai.KindNavigate, ai.KindPick, ai.KindNavigate, ai.KindPlace}
	if !equalKinds(kinds(plan.Actions), want) {
		t.Fatalf("kinds = %v, want %v (reason %q)", kinds(plan.Actions), want, plan.Reason)
	}
	if plan.Actions[1].Cell != pile || plan.Actions[3].Cell != stair {
		t.Fatalf("pick %v place %v", plan.Actions[1].Cell, plan.Actions[3].Cell)
	}
	dest, _ := plan.Actions[2].Destination()
	if got := live.Grid().CellAt(dest); got != (grid.Cell{X: 2, Z: 4}) {
		t.Fatalf("stance = %v, want first shortest neighbour (2,4)", got)
	}
	if plan.Frontier == nil || plan.Frontier.Cell != stair || plan.Frontier.Goal {
		t.Fatalf("frontier = %v", plan.Frontier)
	}

	// The live world is untouched.
	if live.Grid().Height(stair) != 0 || live.Grid().Height(pile) != 2 || live.Rebuilds() != 1 {
		t.Fatalf("planner mutated the live state")
	}
	if live.Agent().Carrying {
		t.Fatal("planner changed the live agent")
	}
}

func TestPlanner_Plan_OneCyclePerCall(t *testing.T) {
	stair := grid.Cell{X: 3, Z: 4}
	pile := grid.Cell{X: 1, Z: 6}
	f := fixture{
		width: 8, depth: 8,
		heights: map[grid.Cell]int{pile: 2},
		start:   grid.Cell{X: 1, Z: 4},
		objective: ai.Objective{
			Stairs:   []world.StairStep{{Cell: stair, Height: 2}},
			Goal:     world.Goal{Cell: grid.Cell{X: 4, Z: 4}, Height: 0},
			Supplies: []grid.Cell{pile},
		},
	}
	plan, err := defaultPlanner().Plan(f.snapshot(f.live()))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Count(ai.KindPick) != 1 || plan.Count(ai.KindPlace) != 1 {
		t.Fatalf("expected one pick and one place, got %v", kinds(plan.Actions))
	}
}

func TestPlanner_Plan_PlacesCarriedBlockFromCurrentStance(t *testing.T) {
	stair := grid.Cell{X: 3, Z: 4}
	goal := grid.Cell{X: 4, Z: 4}
	f := fixture{
		width: 10, depth: 10,
		heights:  map[grid.Cell]int{goal: 2},
		start:    grid.Cell{X: 2, Z: 4},
		carrying: true,
		objective: ai.Objective{
			Stairs: []world.StairStep{{Cell: stair, Height: 1}},
			Goal:   world.Goal{Cell: goal, Height: 2},
		},
	}
	plan, err := defaultPlanner().Plan(f.snapshot(f.live()))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !equalKinds(kinds(plan.Actions), []ai.Kind{ai.KindPlace}) {
		t.Fatalf("expected a direct place, got %v (reason %q)", kinds(plan.Actions), plan.Reason)
	}
	if plan.Methods[len(plan.Methods)-1] != "place_carried" {
		t.Fatalf("methods = %v", plan.Methods)
	}
}

func TestPlanner_Plan_LevelStancePreferredOverShorter(t *testing.T) {
	frontier := grid.Cell{X: 3, Z: 4}
	heights := map[grid.Cell]int{
		{X: 3, Z: 6}: 1,
		{X: 2, Z: 6}: 1,
		{X: 2, Z: 5}: 1,
		{X: 2, Z: 4}: 1,
	}
	obj := ai.Objective{
		Stairs: []world.StairStep{{Cell: frontier, Height: 1}},
		Goal:   world.Goal{Cell: grid.Cell{X: 0, Z: 0}, Height: 0},
	}
	domain := func(target string) *ai.Domain {
		return &ai.Domain{
			ID:        "approach",
			Tasks:     []*ai.Task{{ID: "root"}},
			Methods:   []*ai.Method{{TaskID: "root", ID: "m", Subtasks: []string{"walk"}}},
			Operators: []*ai.Operator{{ID: "walk", Action: ai.ActionNavigate, Target: target}},
		}
	}
	f := fixture{width: 8, depth: 8, heights: heights, start: grid.Cell{X: 3, Z: 6}, carrying: true, objective: obj}

	stanceFor := func(target string) grid.Cell {
		live := f.live()
		plan, err := ai.NewPlanner(domain(target), nil, "").Plan(f.snapshot(live))
		if err != nil || plan.Status != ai.StatusPlanned {
			t.Fatalf("Plan(%s): %v %v %q", target, err, plan.Status, plan.Reason)
		}
		dest, _ := plan.Actions[0].Destination()
		return live.Grid().CellAt(dest)
	}

	if got := stanceFor(ai.TargetFrontier); got != (grid.Cell{X: 3, Z: 5}) {
		t.Fatalf("frontier stance = %v, want nearest (3,5)", got)
	}
	if got := stanceFor(ai.TargetFrontierLevel); got != (grid.Cell{X: 2, Z: 4}) {
		t.Fatalf("level stance = %v, want same-height (2,4)", got)
	}
}

func TestPlanner_Plan_FailsWithoutSupply(t *testing.T) {
	f := fixture{
		width: 10, depth: 10,
		heights: map[grid.Cell]int{{X: 4, Z: 4}: 2},
		start:   grid.Cell{X: 1, Z: 4},
		objective: ai.Objective{
			Stairs: []world.StairStep{{Cell: grid.Cell{X: 3, Z: 4}, Height: 1}},
			Goal:   world.Goal{Cell: grid.Cell{X: 4, Z: 4}, Height: 2},
		},
	}
	plan, err := defaultPlanner().Plan(f.snapshot(f.live()))
	if err != nil {
		t.Fatalf("planning failure must not be an error: %v", err)
	}
	if plan.Status != ai.StatusFailed || !plan.Empty() {
		t.Fatalf("expected failed empty plan, got %v %v", plan.Status, kinds(plan.Actions))
	}
	if !strings.Contains(plan.Reason, "acquire_block") {
		t.Fatalf("reason = %q", plan.Reason)
	}
}

func TestPlanner_Plan_FailsWhenGoalUnreachable(t *testing.T) {
	goal := grid.Cell{X: 4, Z: 4}
	f := fixture{
		width: 10, depth: 10,
		heights:   map[grid.Cell]int{goal: 5},
		start:     grid.Cell{X: 1, Z: 1},
		objective: ai.Objective{Goal: world.Goal{Cell: goal, Height: 5}},
	}
	plan, err := defaultPlanner().Plan(f.snapshot(f.live()))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Status != ai.StatusFailed || !plan.Empty() {
		t.Fatalf("expected failure, got %v", plan.Status)
	}
	if !strings.Contains(plan.Reason, "climb_to_goal") {
		t.Fatalf("reason = %q", plan.Reason)
	}
	if len(plan.Methods) == 0 || plan.Methods[0] != "walk_to_goal" {
		t.Fatalf("methods = %v", plan.Methods)
	}
}

func TestPlanner_Plan_RejectsNilState(t *testing.T) {
	if _, err := defaultPlanner().Plan(nil); err == nil {
		t.Fatal("expected error for nil state")
	}
	if _, err := defaultPlanner().Plan(&ai.WorldState{}); err == nil {
		t.Fatal("expected error for nil world")
	}
}

func hookDomain(precondition string) *ai.Domain {
	return &ai.Domain{
		ID:    "hooked",
		Tasks: []*ai.Task{{ID: "root"}},
		Methods: []*ai.Method{
			{TaskID: "root", ID: "scripted", Precondition: precondition, Subtasks: []string{"walk"}},
		},
		Operators: []*ai.Operator{{ID: "walk", Action: ai.ActionNavigate, Target: ai.TargetGoal}},
	}
}

func hookFixture() fixture {
	return fixture{
		width: 6, depth: 6,
		heights:   map[grid.Cell]int{{X: 3, Z: 3}: 1},
		start:     grid.Cell{X: 0, Z: 0},
		objective: ai.Objective{Goal: world.Goal{Cell: grid.Cell{X: 3, Z: 3}, Height: 1}},
	}
}

func TestPlanner_Plan_DelegatesUnknownPreconditionsToLua(t *testing.T) {
	caller := &mockScriptCaller{returnVal: lua.LTrue}
	f := hookFixture()
	plan, err := ai.NewPlanner(hookDomain("custom_check"), caller, "hooked").Plan(f.snapshot(f.live()))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Status != ai.StatusPlanned {
		t.Fatalf("expected plan, got %v %q", plan.Status, plan.Reason)
	}
	if len(caller.hooks) != 1 || caller.hooks[0] != "custom_check" {
		t.Fatalf("hooks = %v", caller.hooks)
	}
	if len(caller.args[0]) != 7 {
		t.Fatalf("expected 7 hook args, got %d", len(caller.args[0]))
	}
	if caller.args[0][5] != lua.LNumber(1) {
		t.Fatalf("goal target arg = %v", caller.args[0][5])
	}
}

func TestPlanner_Plan_BuiltinsNeverReachLua(t *testing.T) {
	caller := &mockScriptCaller{returnVal: lua.LFalse}
	f := hookFixture()
	plan, err := ai.NewPlanner(hookDomain("frontier_complete"), caller, "hooked").Plan(f.snapshot(f.live()))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Status != ai.StatusPlanned {
		t.Fatalf("expected plan, got %v", plan.Status)
	}
	if len(caller.hooks) != 0 {
		t.Fatalf("built-in precondition reached Lua: %v", caller.hooks)
	}
}

func TestPlanner_Plan_LuaErrorsAreFalse(t *testing.T) {
	f := hookFixture()
	for name, caller := range map[string]ai.ScriptCaller{
		"error":   &mockScriptCaller{err: errors.New("boom")},
		"nil":     &mockScriptCaller{},
		"missing": nil,
	} {
		plan, err := ai.NewPlanner(hookDomain("custom_check"), caller, "hooked").Plan(f.snapshot(f.live()))
		if err != nil {
			t.Fatalf("%s: Plan: %v", name, err)
		}
		if plan.Status != ai.StatusFailed {
			t.Fatalf("%s: expected failure, got %v", name, plan.Status)
		}
	}
}

func TestProperty_Planner_NeverMutatesLiveState(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pile := grid.Cell{X: 5, Z: 5}
		stair := grid.Cell{X: rapid.IntRange(1, 4).Draw(rt, "sx"), Z: rapid.IntRange(0, 3).Draw(rt, "sz")}
		f := fixture{
			width: 6, depth: 6,
			heights:  map[grid.Cell]int{pile: rapid.IntRange(0, 2).Draw(rt, "pile")},
			start:    grid.Cell{X: 0, Z: rapid.IntRange(0, 5).Draw(rt, "start")},
			carrying: rapid.Bool().Draw(rt, "carrying"),
			objective: ai.Objective{
				Stairs:   []world.StairStep{{Cell: stair, Height: rapid.IntRange(1, 2).Draw(rt, "target")}},
				Goal:     world.Goal{Cell: grid.Cell{X: 0, Z: 0}, Height: 0},
				Supplies: []grid.Cell{pile},
			},
		}
		live := f.live()
		before := live.Grid().Clone()
		plan, err := defaultPlanner().Plan(f.snapshot(live))
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if !live.Grid().Equal(before) || live.Rebuilds() != 1 || live.Agent().Carrying != f.carrying {
			rt.Fatal("planner mutated the live state")
		}
		if plan.Status == ai.StatusFailed && !plan.Empty() {
			rt.Fatal("failed plan carries actions")
		}
		if plan.Count(ai.KindPick) > 1 || plan.Count(ai.KindPlace) > 1 {
			rt.Fatalf("more than one pick/place cycle: %v", kinds(plan.Actions))
		}
		for _, a := range plan.Actions {
			if a.Kind == ai.KindNavigate && len(a.Path) < 2 {
				rt.Fatalf("navigate with %d points", len(a.Path))
			}
		}
	})
}
