package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stacker/internal/scripting"
	"github.com/cory-johannsen/stacker/internal/testutil"
)

func loadStackerHooks(t testing.TB) *scripting.Manager {
	t.Helper()
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadDir(testutil.ContentPath(t, "scripts", "ai"), 0))
	return mgr
}

// hookArgs mirrors the planner's positional hook arguments.
func hookArgs(carrying bool, stance, fh, ft, gh, gt, supply int) []lua.LValue {
	return []lua.LValue{
		lua.LBool(carrying),
		lua.LNumber(stance),
		lua.LNumber(fh),
		lua.LNumber(ft),
		lua.LNumber(gh),
		lua.LNumber(gt),
		lua.LNumber(supply),
	}
}

func TestStackerHooks_FrontierComplete(t *testing.T) {
	mgr := loadStackerHooks(t)
	ret, err := mgr.CallHook("scripted_stacker", "stacker_frontier_complete", hookArgs(false, 0, -1, -1, 4, 4, 0)...)
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)

	ret, err = mgr.CallHook("scripted_stacker", "stacker_frontier_complete", hookArgs(false, 0, 0, 1, 4, 4, 3)...)
	require.NoError(t, err)
	assert.Equal(t, lua.LFalse, ret)
}

func TestStackerHooks_Carrying(t *testing.T) {
	mgr := loadStackerHooks(t)
	ret, err := mgr.CallHook("scripted_stacker", "stacker_carrying", hookArgs(true, 0, 0, 1, 0, 2, 0)...)
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)
}

func TestStackerHooks_CanFetch(t *testing.T) {
	mgr := loadStackerHooks(t)
	cases := []struct {
		name     string
		carrying bool
		supply   int
		want     lua.LValue
	}{
		{"empty hands with supply", false, 3, lua.LTrue},
		{"already carrying", true, 3, lua.LFalse},
		{"supply exhausted", false, 0, lua.LFalse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ret, err := mgr.CallHook("scripted_stacker", "stacker_can_fetch", hookArgs(tc.carrying, 0, 0, 2, 0, 3, tc.supply)...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ret)
		})
	}
}

func TestProperty_StackerHooks_NeedsBlocks(t *testing.T) {
	mgr := loadStackerHooks(t)
	rapid.Check(t, func(rt *rapid.T) {
		ft := rapid.IntRange(-1, 10).Draw(rt, "target")
		fh := -1
		if ft >= 0 {
			fh = rapid.IntRange(0, ft).Draw(rt, "height")
		}
		ret, err := mgr.CallHook("scripted_stacker", "stacker_needs_blocks", hookArgs(false, 0, fh, ft, 0, 0, 0)...)
		if err != nil {
			rt.Fatalf("CallHook: %v", err)
		}
		want := lua.LBool(ft >= 0 && fh < ft)
		if ret != want {
			rt.Fatalf("needs blocks = %v, want %v", ret, want)
		}
	})
}
