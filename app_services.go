package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"autopub/internal/api"
	"autopub/internal/app"
	"autopub/internal/config"
	"autopub/internal/prompts"
	"autopub/internal/storage"
	"autopub/internal/workflow"
)

const updateBuffer = 64

// runtimeServices wires the API client, the run store and the runner
// together. It backs both the dashboard and the one-shot commands.
type runtimeServices struct {
	cfg    *config.Config
	log    *slog.Logger
	kv     storage.KV
	client *api.Client
	store  *workflow.Store
	runner *workflow.Runner

	updates chan workflow.StepResult
}

var _ app.Services = (*runtimeServices)(nil)

func openKV(cfg *config.Config, ephemeral bool) (storage.KV, error) {
	if ephemeral {
		return storage.NewMemory(), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return storage.OpenSQLite(cfg.Storage.Path)
}

func newAPIClient(cfg *config.Config) *api.Client {
	return api.New(api.Options{
		BaseURL:     cfg.API.BaseURL,
		APIKey:      cfg.API.APIKey,
		Timeout:     cfg.API.Timeout,
		LongTimeout: cfg.API.LongTimeout,
		Paths: api.Paths{
			Fetch:  cfg.API.Paths.Fetch,
			Polish: cfg.API.Paths.Polish,
			Render: cfg.API.Paths.Render,
			Upload: cfg.API.Paths.Upload,
		},
		UploadRoot: cfg.API.UploadRoot,
	})
}

// runDefaults seeds new runs from the config, falling back to the bundled
// prompt templates for every prompt left empty.
func runDefaults(cfg *config.Config) (workflow.Defaults, error) {
	d := cfg.Defaults
	generic := prompts.Defaults()
	douyin, err := prompts.Render(workflow.PlatformLabel(workflow.PlatformDouyin))
	if err != nil {
		return workflow.Defaults{}, err
	}

	data := workflow.WorkflowData{
		SourceURL:       d.SourceURL,
		BackgroundImage: d.BackgroundImage,
		FontColor:       d.FontColor,
		OutputDir:       d.OutputDir,
		PolishPrompt:    firstNonEmpty(d.PolishPrompt, generic.Polish),
		TitlePrompt:     firstNonEmpty(d.TitlePrompt, douyin.Title),
		TagsPrompt:      firstNonEmpty(d.TagsPrompt, douyin.Tags),
	}
	platforms := map[workflow.Platform]bool{}
	for _, p := range d.Platforms {
		platforms[workflow.Platform(p)] = true
	}
	return workflow.Defaults{Data: data, Config: workflow.WorkflowConfig{Platforms: platforms}}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func newRuntimeServices(cfg *config.Config, kv storage.KV, client *api.Client, log *slog.Logger) (*runtimeServices, error) {
	defaults, err := runDefaults(cfg)
	if err != nil {
		return nil, err
	}
	s := &runtimeServices{
		cfg:     cfg,
		log:     log,
		kv:      kv,
		client:  client,
		updates: make(chan workflow.StepResult, updateBuffer),
	}
	s.store = workflow.NewStore(kv, defaults, workflow.WithLogger(log))
	exec := workflow.NewExecutor(client, workflow.WithExecutorLogger(log))
	s.runner = workflow.NewRunner(s.store, exec,
		workflow.WithObserver(s.publish),
		workflow.WithRunnerLogger(log),
	)
	return s, nil
}

// publish forwards a transition to Updates without ever blocking the run.
func (s *runtimeServices) publish(res workflow.StepResult) {
	select {
	case s.updates <- res:
	default:
		s.log.Debug("dropped step update", "step", res.ID, "status", res.Status)
	}
}

func (s *runtimeServices) Close() error {
	if c, ok := s.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *runtimeServices) State() workflow.State { return s.store.State() }

func (s *runtimeServices) Run(ctx context.Context) (workflow.Outcome, error) {
	return s.runner.Run(ctx)
}

func (s *runtimeServices) RunStep(ctx context.Context, id workflow.StepID) (workflow.StepResult, error) {
	return s.runner.RunStep(ctx, id)
}

func (s *runtimeServices) Reset() {
	s.store.Reset()
	s.ensureSteps()
}

func (s *runtimeServices) Archive(ctx context.Context) error {
	if s.runner.Busy() {
		return workflow.ErrRunInProgress
	}
	if err := s.store.Archive(ctx); err != nil {
		return err
	}
	s.ensureSteps()
	return nil
}

func (s *runtimeServices) Persist() error { return s.store.Persist() }

// Restore resumes the latest unfinished run and resolves its steps so they
// can be listed before the first run.
func (s *runtimeServices) Restore(ctx context.Context) bool {
	resumed := s.store.Restore(ctx)
	s.ensureSteps()
	return resumed
}

func (s *runtimeServices) ensureSteps() {
	if err := s.store.EnsureSteps(); err != nil && !errors.Is(err, workflow.ErrNoPlatforms) {
		s.log.Warn("resolve steps", "err", err)
	}
}

func (s *runtimeServices) TogglePlatform(p workflow.Platform) error {
	return s.store.TogglePlatform(p)
}

func (s *runtimeServices) UpdateField(name, value string) error {
	return s.store.UpdateField(name, value)
}

func (s *runtimeServices) AssetURL(path string) string { return s.client.AssetURL(path) }

func (s *runtimeServices) Updates() <-chan workflow.StepResult { return s.updates }
