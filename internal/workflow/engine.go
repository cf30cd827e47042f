package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// Step is one unit of pipeline work. Always marks the cleanup step: it runs
// even after an earlier failure and its own errors are logged, not recorded.
type Step struct {
	Name   string
	Run    func(ctx context.Context, st *State) error
	Always bool
}

// Outcome summarizes a finished run for the caller that persists it.
type Outcome struct {
	Failed         bool
	Step           string
	Err            error
	OutputURL      string
	PullRequestURL string
}

// Engine executes step lists. OnStep, when set, is called with each step's
// name just before it runs so callers can persist progress.
type Engine struct {
	log    *logger.Logger
	OnStep func(name string)
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log.With("service", "WorkflowEngine")}
}

// Run executes steps in order against st. Once a step fails, later steps
// are skipped except the Always step, which runs last regardless.
func (e *Engine) Run(ctx context.Context, steps []Step, st *State) Outcome {
	if err := validateSteps(steps); err != nil {
		st.Fail("validate", err)
		return e.outcome(st)
	}
	for i := range steps {
		step := steps[i]
		if st.Err() != nil && !step.Always {
			continue
		}
		if e.OnStep != nil && !step.Always {
			e.OnStep(step.Name)
		}
		err := e.safeRun(ctx, step, st)
		if err == nil {
			continue
		}
		if step.Always {
			// Cleanup failures never override the run result.
			e.log.Warn("Cleanup step failed", "job_id", st.JobID, "step", step.Name, "error", err)
			continue
		}
		st.Fail(step.Name, err)
		e.log.Error("Step failed", "job_id", st.JobID, "step", step.Name, "error", err)
	}
	return e.outcome(st)
}

func (e *Engine) safeRun(ctx context.Context, step Step, st *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %q panicked: %v", step.Name, r)
		}
	}()
	if step.Run == nil {
		return fmt.Errorf("step %q: Run is nil", step.Name)
	}
	return step.Run(ctx, st)
}

func (e *Engine) outcome(st *State) Outcome {
	return Outcome{
		Failed:         st.Err() != nil,
		Step:           st.FailedStep(),
		Err:            st.Err(),
		OutputURL:      st.OutputURL,
		PullRequestURL: st.PullRequestURL,
	}
}

func validateSteps(steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("no steps defined")
	}
	seen := map[string]bool{}
	always := 0
	for i, s := range steps {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("step %d: missing name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate step name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Always {
			always++
			if i != len(steps)-1 {
				return fmt.Errorf("step %q: Always step must be last", s.Name)
			}
		}
	}
	if always != 1 {
		return fmt.Errorf("expected exactly one Always step, got %d", always)
	}
	return nil
}
