package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// StepExecutor is what the runner needs from an executor.
type StepExecutor interface {
	Ready(st State, id StepID) error
	Execute(ctx context.Context, st State, id StepID) StepResult
	ReuseCredentials(ctx context.Context, id StepID) (StepResult, bool)
}

type RunStatus string

const (
	RunArchived RunStatus = "archived"
	RunFailed   RunStatus = "failed"
	RunBlocked  RunStatus = "blocked"
	RunCanceled RunStatus = "canceled"
)

// Outcome describes how an automatic run ended. Step is the step that
// stopped it, if any.
type Outcome struct {
	RunID  string
	Status RunStatus
	Step   StepID
	Reason string
}

func (o Outcome) String() string {
	if o.Step == "" {
		return string(o.Status)
	}
	return fmt.Sprintf("%s at %s: %s", o.Status, o.Step, o.Reason)
}

type RunnerOption func(*Runner)

// WithObserver registers a callback that sees every step transition. It is
// called from the goroutine executing the run.
func WithObserver(fn func(StepResult)) RunnerOption {
	return func(r *Runner) { r.observe = fn }
}

func WithRunnerLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// Runner executes the steps of the active run one at a time and halts on the
// first failure.
type Runner struct {
	store   *Store
	exec    StepExecutor
	observe func(StepResult)
	log     *slog.Logger
	busy    atomic.Bool
}

func NewRunner(store *Store, exec StepExecutor, opts ...RunnerOption) *Runner {
	r := &Runner{store: store, exec: exec, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Busy reports whether a run or a single step is executing.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

func (r *Runner) notify(res StepResult) {
	if r.observe != nil {
		r.observe(res)
	}
}

// Run drives the whole active run. Steps already completed are not executed
// again. On success the run is archived and a new one started.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrRunInProgress
	}
	defer r.busy.Store(false)

	if err := r.store.EnsureSteps(); err != nil {
		return Outcome{}, err
	}
	st := r.store.State()
	out := Outcome{RunID: st.ID}
	r.log.Info("workflow run started", "run", st.ID, "steps", len(st.Steps))

	handled := map[StepID]bool{}
	for _, step := range st.Steps {
		def, ok := LookupDef(step.ID)
		if !ok || def.Kind != KindCredential {
			continue
		}
		handled[step.ID] = true
		if res, ok := r.exec.ReuseCredentials(ctx, step.ID); ok {
			if err := r.record(res); err != nil {
				return out, err
			}
			r.log.Info("reusing saved cookies", "platform", def.Platform)
			continue
		}
		res, err := r.attempt(ctx, step.ID)
		if err != nil {
			return out, err
		}
		if res.Status == StepError {
			return r.stop(out, RunFailed, step.ID, res.Error), nil
		}
	}

	for _, step := range st.Steps {
		if handled[step.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.stop(out, RunCanceled, step.ID, err.Error()), nil
		}
		cur, _ := r.store.State().Step(step.ID)
		if cur.Status == StepCompleted {
			continue
		}
		if err := r.exec.Ready(r.store.State(), step.ID); err != nil {
			return r.stop(out, RunBlocked, step.ID, err.Error()), nil
		}
		res, err := r.attempt(ctx, step.ID)
		if err != nil {
			return out, err
		}
		if res.Status == StepError {
			return r.stop(out, RunFailed, step.ID, res.Error), nil
		}
	}

	if err := r.store.Archive(ctx); err != nil {
		return out, err
	}
	out.Status = RunArchived
	r.log.Info("workflow run archived", "run", out.RunID)
	return out, nil
}

func (r *Runner) stop(out Outcome, status RunStatus, id StepID, reason string) Outcome {
	out.Status = status
	out.Step = id
	out.Reason = reason
	r.log.Warn("workflow run stopped", "run", out.RunID, "status", status, "step", id, "reason", reason)
	return out
}

// RunStep re-invokes a single step, as a manual retry does. Unmet
// preconditions are refused without issuing a call.
func (r *Runner) RunStep(ctx context.Context, id StepID) (StepResult, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return StepResult{}, ErrRunInProgress
	}
	defer r.busy.Store(false)

	if err := r.exec.Ready(r.store.State(), id); err != nil {
		return StepResult{}, err
	}
	return r.attempt(ctx, id)
}

// attempt performs one pending/error -> running -> completed/error cycle.
func (r *Runner) attempt(ctx context.Context, id StepID) (StepResult, error) {
	if err := r.store.Begin(id); err != nil {
		return StepResult{}, err
	}
	r.notify(StepResult{ID: id, Status: StepRunning})

	res := r.exec.Execute(ctx, r.store.State(), id)
	res.ID = id
	if err := r.store.Apply(res); err != nil {
		return res, err
	}
	r.notify(res)
	return res, nil
}

// record applies a result obtained outside Execute, such as reused cookies.
func (r *Runner) record(res StepResult) error {
	if err := r.store.Begin(res.ID); err != nil {
		return err
	}
	r.notify(StepResult{ID: res.ID, Status: StepRunning})
	if err := r.store.Apply(res); err != nil {
		return err
	}
	r.notify(res)
	return nil
}
