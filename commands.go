package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"autopub/internal/api"
	"autopub/internal/config"
	"autopub/internal/ui"
	"autopub/internal/workflow"

	"github.com/spf13/cobra"
)

// withRuntime opens the services for a one-shot command, logging to stderr.
func withRuntime(cmd *cobra.Command, gf *globalFlags, fn func(ctx context.Context, svc *runtimeServices) error) error {
	cfg, err := loadConfig(gf)
	if err != nil {
		return err
	}
	svc, err := openRuntime(cmd.Context(), cfg, gf.ephemeral, os.Stderr)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(cmd.Context(), svc)
}

func dashboardCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), gf)
		},
	}
}

func stepTitle(svc *runtimeServices, id workflow.StepID) string {
	if st, ok := svc.State().Step(id); ok {
		return st.Title
	}
	return string(id)
}

func printStepUpdate(svc *runtimeServices, res workflow.StepResult) {
	title := stepTitle(svc, res.ID)
	switch res.Status {
	case workflow.StepRunning:
		fmt.Println(ui.InfoMsg("%s", title))
	case workflow.StepCompleted:
		fmt.Println(ui.SuccessMsg("%s", title))
	case workflow.StepError:
		fmt.Println(ui.ErrorMsg("%s: %s", title, res.Error))
	}
}

// followUpdates prints step transitions until the returned stop is called.
// Stop drains what is still buffered before returning.
func followUpdates(svc *runtimeServices) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case res := <-svc.Updates():
				printStepUpdate(svc, res)
			case <-done:
				for {
					select {
					case res := <-svc.Updates():
						printStepUpdate(svc, res)
					default:
						return
					}
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func runCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the active pipeline until it finishes or stops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, gf, func(ctx context.Context, svc *runtimeServices) error {
				stop := followUpdates(svc)
				out, err := svc.Run(ctx)
				stop()
				if err != nil {
					return err
				}
				if out.Status != workflow.RunArchived {
					return fmt.Errorf("run %s %s", out.RunID, out)
				}
				fmt.Println(ui.SuccessMsg("run %s published and archived", out.RunID))
				return nil
			})
		},
	}
}

func stepCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "step <id>",
		Short: "Execute or retry a single step of the active run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, gf, func(ctx context.Context, svc *runtimeServices) error {
				id := workflow.StepID(args[0])
				if _, ok := svc.State().Step(id); !ok {
					return fmt.Errorf("%w: %q", workflow.ErrStepNotFound, id)
				}
				stop := followUpdates(svc)
				res, err := svc.RunStep(ctx, id)
				stop()
				if err != nil {
					return err
				}
				if res.Status == workflow.StepError {
					return fmt.Errorf("%s: %s", id, res.Error)
				}
				return nil
			})
		},
	}
}

func statusCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active run and its steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, gf, func(_ context.Context, svc *runtimeServices) error {
				st := svc.State()
				fmt.Print(ui.RunSummary(st))
				if len(st.Steps) > 0 {
					fmt.Println(ui.StepsTable(st))
				}
				return nil
			})
		},
	}
}

// readValue expands "-" to stdin and "@path" to the file contents.
func readValue(v string, stdin io.Reader) (string, error) {
	switch {
	case v == "-":
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	case strings.HasPrefix(v, "@"):
		raw, err := os.ReadFile(v[1:])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", v[1:], err)
		}
		return string(raw), nil
	}
	return v, nil
}

func setCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set a shared field of the active run",
		Long: "Set a shared field of the active run. A value of - reads stdin and\n" +
			"@path reads a file.\n\nFields: " + strings.Join(workflow.FieldNames(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := readValue(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withRuntime(cmd, gf, func(_ context.Context, svc *runtimeServices) error {
				if err := svc.UpdateField(args[0], value); err != nil {
					return err
				}
				fmt.Println(ui.SuccessMsg("%s updated", args[0]))
				return nil
			})
		},
	}
}

func platformsCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms [platform...]",
		Short: "Show or choose the target platforms",
		Long: "Without arguments, show which platforms are enabled. With arguments,\n" +
			"enable exactly those platforms and regenerate the pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, gf, func(_ context.Context, svc *runtimeServices) error {
				if len(args) > 0 {
					cfg := workflow.WorkflowConfig{Platforms: map[workflow.Platform]bool{}}
					for _, a := range args {
						p := workflow.Platform(strings.ToLower(a))
						if !p.Valid() {
							return fmt.Errorf("unknown platform %q", a)
						}
						cfg.Platforms[p] = true
					}
					if err := svc.store.SetConfig(cfg); err != nil {
						return err
					}
				}
				enabled := svc.State().Config.Platforms
				rows := make([][]string, 0, len(workflow.Platforms))
				for _, p := range workflow.Platforms {
					rows = append(rows, []string{string(p), workflow.PlatformLabel(p), ui.Bool(enabled[p])})
				}
				fmt.Println(ui.Table([]string{"PLATFORM", "NAME", "ENABLED"}, rows))
				return nil
			})
		},
	}
}

func runsCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "runs",
		Aliases: []string{"ls"},
		Short:   "List persisted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, gf, func(ctx context.Context, svc *runtimeServices) error {
				runs, err := svc.store.Runs(ctx)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Println(ui.Muted("no runs recorded"))
					return nil
				}
				fmt.Println(ui.RunsTable(runs, svc.store.ID()))
				return nil
			})
		},
	}
}

func resetCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abandon the active run and start a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, gf, func(_ context.Context, svc *runtimeServices) error {
				old := svc.store.ID()
				svc.Reset()
				fmt.Println(ui.WarnMsg("abandoned %s, started %s", old, svc.store.ID()))
				return nil
			})
		},
	}
}

func archiveCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Mark the active run completed and start a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, gf, func(ctx context.Context, svc *runtimeServices) error {
				old := svc.store.ID()
				if err := svc.Archive(ctx); err != nil {
					return err
				}
				fmt.Println(ui.SuccessMsg("archived %s, started %s", old, svc.store.ID()))
				return nil
			})
		},
	}
}

func cookiesCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect the backend's saved login cookies",
	}
	actions := []struct {
		use   string
		short string
		call  func(c *api.Client, ctx context.Context, platform string) (*api.CookieResult, error)
	}{
		{"validate", "Check whether saved cookies are still accepted", (*api.Client).ValidateCookies},
		{"load", "Load saved cookies without logging in", (*api.Client).LoadCookies},
		{"get", "Log in through the backend and save fresh cookies", (*api.Client).GetCookies},
	}
	for _, a := range actions {
		a := a
		cmd.AddCommand(&cobra.Command{
			Use:   a.use + " <platform>",
			Short: a.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p := workflow.Platform(strings.ToLower(args[0]))
				if !p.Valid() {
					return fmt.Errorf("unknown platform %q", args[0])
				}
				cfg, err := loadConfig(gf)
				if err != nil {
					return err
				}
				res, err := a.call(newAPIClient(cfg), cmd.Context(), string(p))
				if err != nil {
					return err
				}
				ok := res.Success
				if a.use == "validate" {
					ok = res.Valid
				}
				if !ok {
					return fmt.Errorf("%s cookies: %s", workflow.PlatformLabel(p), firstNonEmpty(res.Failure(), "rejected"))
				}
				fmt.Println(ui.SuccessMsg("%s cookies %s", workflow.PlatformLabel(p), map[string]string{
					"validate": "are valid",
					"load":     "loaded",
					"get":      "saved",
				}[a.use]))
				return nil
			},
		})
	}
	return cmd
}

func configCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(firstNonEmpty(gf.configPath, config.Path()))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			path := firstNonEmpty(gf.configPath, config.Path())
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("wrote %s", path))
			return nil
		},
	})
	return cmd
}
