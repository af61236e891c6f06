package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/config"
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv(config.EnvDevMode); ok {
		defaultDevMode = envDev
	}

	cmd := &cobra.Command{
		Use:           "trackit",
		Short:         "Track tasks and habits against a Trackit server",
		Long:          "trackit is a terminal client for the Trackit productivity API: tasks, habits, streaks, and analytics.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to the credential database")
	flags.StringVar(&opts.apiURL, "api-url", "", "Trackit API base URL")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (trackit-dev) and dev-file logging")

	cmd.AddCommand(
		newPathsCmd(opts),
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newProfileCmd(opts),
		newTasksCmd(opts),
		newHabitsCmd(opts),
		newDashboardCmd(opts),
		newAnalyticsCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
		newTUICmd(opts),
	)
	return cmd
}

func newPathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSettings(opts)
			if err != nil {
				return err
			}
			dbPath := s.paths.DBPath
			if opts.dbPath != "" {
				dbPath = opts.dbPath
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", s.configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", s.paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", dbPath)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", s.paths.LogDir)
			return nil
		},
	}
}
