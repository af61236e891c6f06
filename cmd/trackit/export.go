package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evanschultz/trackit/internal/adapters/server/common"
)

// Export formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// exportSnapshot is the document written by `trackit export`.
type exportSnapshot struct {
	Version    string         `json:"version" yaml:"version"`
	ExportedAt string         `json:"exported_at" yaml:"exported_at"`
	User       string         `json:"user" yaml:"user"`
	Tasks      []common.Task  `json:"tasks" yaml:"tasks"`
	Habits     []common.Habit `json:"habits" yaml:"habits"`
	Categories []string       `json:"categories,omitempty" yaml:"categories,omitempty"`
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task and habit as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != formatJSON && format != formatYAML {
				return fmt.Errorf("unsupported export format %q: want json or yaml", format)
			}
			return runAuthed(cmd, opts, "export", func(ctx context.Context, rt *cliRuntime) error {
				snap, err := buildSnapshot(ctx, rt)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if out != "" && out != "-" {
					if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
						return fmt.Errorf("create export dir: %w", err)
					}
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("create export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				if err := writeSnapshot(w, snap, format); err != nil {
					return err
				}
				if out != "" && out != "-" {
					rt.logger.Info("export written", "path", out, "format", format, "tasks", len(snap.Tasks), "habits", len(snap.Habits))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json|yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty or -)")
	return cmd
}

func buildSnapshot(ctx context.Context, rt *cliRuntime) (exportSnapshot, error) {
	creds, err := rt.requireSession(ctx)
	if err != nil {
		return exportSnapshot{}, err
	}
	if err := rt.tasks.FetchAll(ctx); err != nil {
		return exportSnapshot{}, fmt.Errorf("export tasks: %w", err)
	}
	if err := rt.habits.FetchAll(ctx); err != nil {
		return exportSnapshot{}, fmt.Errorf("export habits: %w", err)
	}
	now := rt.now()
	snap := exportSnapshot{
		Version:    version,
		ExportedAt: now.UTC().Format(time.RFC3339),
		User:       creds.User.Username,
		Tasks:      common.TasksFrom(rt.tasks.Items(), now),
		Habits:     common.HabitsFrom(rt.habits.Items()),
	}
	if categories, err := rt.taskSvc.Categories(ctx); err != nil {
		rt.logger.Warn("export categories unavailable", "err", err)
	} else {
		snap.Categories = categories
	}
	return snap, nil
}

func writeSnapshot(w io.Writer, snap exportSnapshot, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
