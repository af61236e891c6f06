package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/adapters/server"
	"github.com/evanschultz/trackit/internal/adapters/server/common"
	"github.com/evanschultz/trackit/internal/events"
	"github.com/evanschultz/trackit/internal/refresh"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var cfg server.Config
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the signed-in session over a local HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := openRuntime(ctx, opts, modeServe, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			return rt.flow("serve", func() error {
				if _, err := rt.requireSession(ctx); err != nil {
					return err
				}
				return runServe(ctx, rt, cfg)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.HTTPBind, "http", "127.0.0.1:8090", "HTTP listen address")
	flags.StringVar(&cfg.APIEndpoint, "api-endpoint", "/api/v1", "REST API mount path")
	flags.StringVar(&cfg.MCPEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP mount path")
	return cmd
}

// runServe primes the stores, starts background refresh, and blocks in the
// HTTP server until ctx is done.
func runServe(ctx context.Context, rt *cliRuntime, cfg server.Config) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopWatch := rt.dashboard.Watch(rt.bus, func(e events.Event) {
		rt.logger.Debug("collection changed", "topic", e.Topic, "payload", e.Payload)
	})
	defer stopWatch()

	jobs := rt.refreshJobs()
	if rt.cfg.Refresh.Enabled {
		sched, err := refresh.New(refresh.Config{
			Schedule: rt.cfg.Refresh.Schedule,
			Jobs:     jobs,
			Logger:   rt.logger,
		})
		if err != nil {
			return err
		}
		if err := sched.RunNow(serveCtx); err != nil {
			rt.logger.Warn("initial refresh incomplete", "err", err)
		}
		sched.Start(serveCtx)
		defer sched.Stop()
	} else {
		for _, job := range jobs {
			if err := job.Run(serveCtx); err != nil {
				rt.logger.Warn("initial refresh incomplete", "job", job.Name, "err", err)
			}
		}
	}

	cfg.ServerName = "trackit"
	cfg.ServerVersion = version
	err := server.Run(serveCtx, cfg, server.Dependencies{
		Services: common.NewStoreAdapter(rt.tasks, rt.habits, rt.dashboard, rt.cfg.Tasks.UpcomingDays, rt.now),
		Logger:   rt.logger,
	})
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// refreshJobs re-fetches the held collections and the stored profile.
func (rt *cliRuntime) refreshJobs() []refresh.Job {
	return []refresh.Job{
		{Name: "tasks", Run: rt.tasks.FetchAll},
		{Name: "habits", Run: rt.habits.FetchAll},
		{Name: "profile", Run: func(ctx context.Context) error {
			_, err := rt.session.Refresh(ctx)
			return err
		}},
	}
}
