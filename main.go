package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"autopub/internal/logging"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	debug      bool
	ephemeral  bool
	baseURL    string
	apiKey     string
	dbPath     string
}

func main() {
	var gf globalFlags
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "autopub",
		Short:         "Turn an article into image posts and publish them",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), &gf)
		},
	}
	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/autopub/config.yaml)")
	root.PersistentFlags().BoolVar(&gf.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&gf.ephemeral, "ephemeral", false, "Keep runs in memory only")
	root.PersistentFlags().StringVar(&gf.baseURL, "base-url", "", "Backend base URL")
	root.PersistentFlags().StringVar(&gf.apiKey, "api-key", "", "Backend API key")
	root.PersistentFlags().StringVar(&gf.dbPath, "db", "", "Run database path")

	root.AddCommand(dashboardCmd(&gf))
	root.AddCommand(runCmd(&gf))
	root.AddCommand(stepCmd(&gf))
	root.AddCommand(statusCmd(&gf))
	root.AddCommand(setCmd(&gf))
	root.AddCommand(platformsCmd(&gf))
	root.AddCommand(runsCmd(&gf))
	root.AddCommand(resetCmd(&gf))
	root.AddCommand(archiveCmd(&gf))
	root.AddCommand(cookiesCmd(&gf))
	root.AddCommand(configCmd(&gf))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
