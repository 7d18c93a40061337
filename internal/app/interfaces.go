package app

import (
	"context"

	"autopub/internal/workflow"
)

// Services is everything the dashboard needs from the workflow runtime.
type Services interface {
	State() workflow.State
	Run(ctx context.Context) (workflow.Outcome, error)
	RunStep(ctx context.Context, id workflow.StepID) (workflow.StepResult, error)
	Reset()
	Archive(ctx context.Context) error
	Persist() error
	Restore(ctx context.Context) bool
	TogglePlatform(p workflow.Platform) error
	UpdateField(name, value string) error
	AssetURL(path string) string

	// Updates delivers every step transition made by a run, including the
	// running marker that precedes each attempt.
	Updates() <-chan workflow.StepResult
}
