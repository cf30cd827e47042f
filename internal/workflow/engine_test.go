package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	require.NoError(t, err)
	return log
}

func cleanupStep(ran *bool) Step {
	return Step{Name: StepCleanup, Always: true, Run: func(ctx context.Context, st *State) error {
		*ran = true
		return nil
	}}
}

func TestEngineRunsStepsInOrder(t *testing.T) {
	var order []string
	var cleaned bool
	mk := func(name string) Step {
		return Step{Name: name, Run: func(ctx context.Context, st *State) error {
			order = append(order, name)
			return nil
		}}
	}
	eng := NewEngine(testLogger(t))
	out := eng.Run(context.Background(), []Step{mk("a"), mk("b"), mk("c"), cleanupStep(&cleaned)}, &State{})

	require.False(t, out.Failed)
	require.Equal(t, []string{"a", "b", "c"}, order)
	require.True(t, cleaned)
}

func TestEngineShortCircuitsAfterFailure(t *testing.T) {
	var ranLater, cleaned bool
	boom := errors.New("boom")
	steps := []Step{
		{Name: "a", Run: func(ctx context.Context, st *State) error { return nil }},
		{Name: "b", Run: func(ctx context.Context, st *State) error { return boom }},
		{Name: "c", Run: func(ctx context.Context, st *State) error {
			ranLater = true
			return nil
		}},
		cleanupStep(&cleaned),
	}
	eng := NewEngine(testLogger(t))
	out := eng.Run(context.Background(), steps, &State{})

	require.True(t, out.Failed)
	require.Equal(t, "b", out.Step)
	require.ErrorIs(t, out.Err, boom)
	require.False(t, ranLater, "step after failure must be skipped")
	require.True(t, cleaned, "cleanup must run after failure")
}

func TestEngineCleanupErrorDoesNotFailRun(t *testing.T) {
	steps := []Step{
		{Name: "a", Run: func(ctx context.Context, st *State) error { return nil }},
		{Name: StepCleanup, Always: true, Run: func(ctx context.Context, st *State) error {
			return errors.New("rm failed")
		}},
	}
	out := NewEngine(testLogger(t)).Run(context.Background(), steps, &State{})
	require.False(t, out.Failed)
	require.NoError(t, out.Err)
}

func TestEngineCapturesPanicAsStepFailure(t *testing.T) {
	var cleaned bool
	steps := []Step{
		{Name: "a", Run: func(ctx context.Context, st *State) error { panic("nil map write") }},
		cleanupStep(&cleaned),
	}
	out := NewEngine(testLogger(t)).Run(context.Background(), steps, &State{})

	require.True(t, out.Failed)
	require.Equal(t, "a", out.Step)
	require.Contains(t, out.Err.Error(), "panicked")
	require.True(t, cleaned)
}

func TestEngineFirstErrorWins(t *testing.T) {
	st := &State{}
	st.Fail("first", errors.New("root cause"))
	st.Fail("second", errors.New("noise"))

	require.Equal(t, "first", st.FailedStep())
	require.EqualError(t, st.Err(), "root cause")
}

func TestEngineReportsOnStep(t *testing.T) {
	var seen []string
	eng := NewEngine(testLogger(t))
	eng.OnStep = func(name string) { seen = append(seen, name) }

	var cleaned bool
	steps := []Step{
		{Name: "a", Run: func(ctx context.Context, st *State) error { return nil }},
		{Name: "b", Run: func(ctx context.Context, st *State) error { return errors.New("dead") }},
		{Name: "c", Run: func(ctx context.Context, st *State) error { return nil }},
		cleanupStep(&cleaned),
	}
	eng.Run(context.Background(), steps, &State{})

	// Skipped steps and the Always step never report progress.
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestEngineValidatesStepLists(t *testing.T) {
	run := func(ctx context.Context, st *State) error { return nil }

	cases := []struct {
		name  string
		steps []Step
	}{
		{"empty", nil},
		{"no always", []Step{{Name: "a", Run: run}}},
		{"always not last", []Step{
			{Name: StepCleanup, Always: true, Run: run},
			{Name: "a", Run: run},
		}},
		{"duplicate names", []Step{
			{Name: "a", Run: run},
			{Name: "a", Run: run},
			{Name: StepCleanup, Always: true, Run: run},
		}},
		{"two always", []Step{
			{Name: "a", Always: true, Run: run},
			{Name: StepCleanup, Always: true, Run: run},
		}},
	}
	eng := NewEngine(testLogger(t))
	for _, tc := range cases {
		out := eng.Run(context.Background(), tc.steps, &State{})
		require.True(t, out.Failed, "case %q should fail validation", tc.name)
		require.Equal(t, "validate", out.Step, "case %q", tc.name)
	}
}
