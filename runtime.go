package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"autopub/internal/app"
	"autopub/internal/config"
	"autopub/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// loadConfig reads the config file, then lets flags override it.
func loadConfig(gf *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return nil, err
	}
	if gf.baseURL != "" {
		cfg.API.BaseURL = gf.baseURL
	}
	if gf.apiKey != "" {
		cfg.API.APIKey = gf.apiKey
	}
	if gf.dbPath != "" {
		cfg.Storage.Path = gf.dbPath
	}
	if gf.debug {
		cfg.LogLevel = logging.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRuntime builds the services for one command and resumes the latest
// unfinished run. Logs go to w.
func openRuntime(ctx context.Context, cfg *config.Config, ephemeral bool, w io.Writer) (*runtimeServices, error) {
	log, err := logging.ConfigureWriter(w, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	kv, err := openKV(cfg, ephemeral)
	if err != nil {
		return nil, err
	}
	svc, err := newRuntimeServices(cfg, kv, newAPIClient(cfg), log)
	if err != nil {
		if c, ok := kv.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	if svc.Restore(ctx) {
		log.Debug("resumed run", "run", svc.store.ID())
	}
	return svc, nil
}

func dashboardLogPath(cfg *config.Config) string {
	if cfg.LogFile != "" {
		return cfg.LogFile
	}
	return filepath.Join(filepath.Dir(config.DataPath()), "autopub.log")
}

func runDashboard(ctx context.Context, gf *globalFlags) error {
	cfg, err := loadConfig(gf)
	if err != nil {
		return err
	}
	logPath := dashboardLogPath(cfg)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	svc, err := openRuntime(ctx, cfg, gf.ephemeral, logFile)
	if err != nil {
		return err
	}
	defer svc.Close()

	p := tea.NewProgram(app.NewModel(ctx, svc),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return svc.Persist()
}
