package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/leapstack-labs/pysetup/internal/cli/output"
	"github.com/leapstack-labs/pysetup/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded setup runs",
		Long: `List earlier setup runs, or show the stages of one run.

Runs are only recorded when history is enabled, either with --history or
with "history: true" in pysetup.yaml. The database lives at state_path
(default .pysetup/state.db) inside the project.`,
		Example: `  # Record a run, then list runs
  pysetup setup --history
  pysetup history

  # Show one run by id or id prefix
  pysetup history 7f1c2a90`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryShow(cmd, args[0])
			}
			return runHistoryList(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

// recordRun stores report in the project's history database.
func recordRun(ctx context.Context, cmdCtx *CommandContext, report *bootstrap.Report) error {
	store, err := state.OpenAndMigrate(cmdCtx.Cfg.Resolve(cmdCtx.Cfg.StatePath), cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.RecordRun(ctx, cmdCtx.Cfg.ProjectDir, report)
}

// openHistory opens the history database read-only. It returns nil without
// error when nothing has been recorded yet, so reading history never creates
// or migrates the file.
func openHistory(cmdCtx *CommandContext) (*state.SQLiteStore, error) {
	path := cmdCtx.Cfg.Resolve(cmdCtx.Cfg.StatePath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.OpenReadOnly(path); err != nil {
		return nil, err
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openHistory(cmdCtx)
	if err != nil {
		return err
	}
	runs := []*state.Run{}
	if store != nil {
		defer func() { _ = store.Close() }()
		if runs, err = store.ListRuns(cmd.Context(), opts.Limit); err != nil {
			return err
		}
	}

	return renderHistory(r, runs)
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openHistory(cmdCtx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%w: %s", state.ErrRunNotFound, id)
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(run)
	}

	r.Header(1, "Run "+run.ID)
	r.Printf("Started:     %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	r.Printf("Status:      %s\n", run.Status)
	if run.Duration != "" {
		r.Printf("Duration:    %s\n", run.Duration)
	}
	if run.Interpreter != "" {
		r.Printf("Interpreter: %s\n", run.Interpreter)
	}
	if run.Error != "" {
		r.Printf("Error:       %s\n", run.Error)
	}
	r.Println("")
	r.Header(2, "Stages")
	for _, sr := range run.Stages {
		r.StatusLine(sr.Stage.String(), stageLineStatus(sr.Status), sr.Detail)
	}
	return nil
}

func stageLineStatus(s bootstrap.Status) string {
	switch s {
	case bootstrap.StatusSucceeded:
		return "success"
	case bootstrap.StatusPending:
		return "warning"
	default:
		return "error"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderHistory writes a run listing in the renderer's effective mode.
func renderHistory(r *output.Renderer, runs []*state.Run) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	case output.ModeMarkdown:
		renderHistoryMarkdown(r, runs)
	default:
		renderHistoryText(r, runs)
	}
	return nil
}

func renderHistoryText(r *output.Renderer, runs []*state.Run) {
	if len(runs) == 0 {
		r.Muted("No runs recorded. Enable history with --history or \"history: true\" in pysetup.yaml.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Interpreter", "Duration"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(run.Status),
			run.Interpreter,
			run.Duration,
		})
	}
	t.Render()
}

func renderHistoryMarkdown(r *output.Renderer, runs []*state.Run) {
	r.Println("# Setup History")
	r.Println("")
	if len(runs) == 0 {
		r.Println("No runs recorded.")
		return
	}

	r.Println("| Run | Started | Status | Interpreter | Duration |")
	r.Println("|-----|---------|--------|-------------|----------|")
	for _, run := range runs {
		r.Printf("| %s | %s | %s | %s | %s |\n",
			shortID(run.ID),
			run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			run.Status,
			strings.ReplaceAll(run.Interpreter, "|", "\\|"),
			run.Duration,
		)
	}
}
