package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/leapstack-labs/pysetup/internal/cli/config"
	"github.com/leapstack-labs/pysetup/internal/cli/output"
	"github.com/spf13/cobra"
)

// Health check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, markdown, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check whether the project is ready to set up",
		Long: `Inspect the host and the project checkout without changing anything.

The doctor command checks:
- Interpreter: which configured interpreter commands answer --version
- Project: requirements.txt is present and lists packages
- Environment: the virtual environment exists and its interpreter runs

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  pysetup doctor

  # Output as JSON
  pysetup doctor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	ProjectDir      string        `json:"project_dir"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Summary string   `json:"summary"`
	Details []string `json:"details,omitempty"`
}

// healthCheck is a named, read-only probe.
type healthCheck struct {
	id    string
	name  string
	group string
	run   func(ctx context.Context, env *doctorEnv) (status, summary string, details []string)
}

// doctorEnv is what the checks may inspect.
type doctorEnv struct {
	cfg    *config.Config
	runner bootstrap.Runner
	boot   *bootstrap.Bootstrapper
}

var healthChecks = []healthCheck{
	{id: "PY01", name: "Interpreter available", group: "interpreter", run: checkInterpreter},
	{id: "PY02", name: "Requirements manifest", group: "project", run: checkManifest},
	{id: "PY03", name: "Virtual environment", group: "environment", run: checkEnvironment},
	{id: "PY04", name: "Environment interpreter", group: "environment", run: checkEnvironmentPython},
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		mode := output.Mode(opts.Format)
		if !mode.Valid() {
			return fmt.Errorf("unknown format %q", opts.Format)
		}
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	}

	env := &doctorEnv{
		cfg:    cmdCtx.Cfg,
		runner: cmdCtx.Runner,
		boot:   cmdCtx.NewBootstrapper(r.Quiet()),
	}
	out, err := runHealthChecks(cmd.Context(), env)
	if err != nil {
		return err
	}

	if err := renderDoctor(r, out); err != nil {
		return err
	}

	if n := countStatus(out.HealthChecks, statusError); n > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", n)
	}
	return nil
}

// runHealthChecks runs every check concurrently. The checks only read the
// filesystem and query interpreters, so they do not interfere.
func runHealthChecks(ctx context.Context, env *doctorEnv) (*DoctorOutput, error) {
	results := make([]HealthCheck, len(healthChecks))

	g, gctx := errgroup.WithContext(ctx)
	for i, hc := range healthChecks {
		g.Go(func() error {
			status, summary, details := hc.run(gctx, env)
			results[i] = HealthCheck{
				ID:      hc.id,
				Name:    hc.name,
				Group:   hc.group,
				Status:  status,
				Summary: summary,
				Details: details,
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := countStatus(results, statusWarn) + countStatus(results, statusError)
	return &DoctorOutput{
		ProjectDir:      env.cfg.ProjectDir,
		HealthChecks:    results,
		Score:           calculateHealthScore(results),
		Recommendations: generateRecommendations(results),
		IssueCount:      issues,
	}, nil
}

func checkInterpreter(ctx context.Context, env *doctorEnv) (string, string, []string) {
	var found string
	details := make([]string, 0, len(env.cfg.Interpreters))
	for _, name := range env.cfg.Interpreters {
		res, err := env.runner.Run(ctx, bootstrap.Command{Name: name, Args: []string{"--version"}, Dir: env.cfg.ProjectDir})
		if err != nil {
			details = append(details, name+": not available")
			continue
		}
		details = append(details, name+": "+bootstrap.VersionString(res))
		if found == "" {
			found = name
		}
	}
	if found == "" {
		return statusError, "no interpreter found (tried " + strings.Join(env.cfg.Interpreters, ", ") + ")", details
	}
	return statusPass, "setup will use " + found, details
}

func checkManifest(_ context.Context, env *doctorEnv) (string, string, []string) {
	path := env.cfg.Resolve(env.cfg.Requirements)
	n, err := countRequirements(path)
	if os.IsNotExist(err) {
		return statusError, env.cfg.Requirements + " not found", nil
	}
	if err != nil {
		return statusError, "cannot read " + env.cfg.Requirements, []string{err.Error()}
	}
	if n == 0 {
		return statusWarn, env.cfg.Requirements + " lists no packages", nil
	}
	return statusPass, fmt.Sprintf("%d requirement(s) in %s", n, env.cfg.Requirements), nil
}

func checkEnvironment(_ context.Context, env *doctorEnv) (string, string, []string) {
	info, err := os.Stat(env.cfg.Resolve(env.cfg.VenvDir))
	switch {
	case err != nil:
		return statusWarn, env.cfg.VenvDir + " does not exist yet", nil
	case !info.IsDir():
		return statusError, env.cfg.VenvDir + " exists but is not a directory", nil
	default:
		return statusPass, env.cfg.VenvDir + " exists", []string{"activate with: " + bootstrap.ActivateHint(env.cfg.VenvDir, runtime.GOOS)}
	}
}

func checkEnvironmentPython(ctx context.Context, env *doctorEnv) (string, string, []string) {
	if _, err := os.Stat(env.cfg.Resolve(env.cfg.VenvDir)); err != nil {
		return statusWarn, "skipped until the environment is created", nil
	}
	python := env.boot.EnvironmentPython()
	res, err := env.runner.Run(ctx, bootstrap.Command{Name: python, Args: []string{"--version"}, Dir: env.cfg.ProjectDir})
	if err != nil {
		return statusError, python + " does not run", []string{err.Error()}
	}
	return statusPass, bootstrap.VersionString(res), []string{python}
}

// countRequirements counts non-blank, non-comment lines in a requirements file.
func countRequirements(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n++
	}
	return n, sc.Err()
}

func countStatus(checks []HealthCheck, status string) int {
	n := 0
	for _, c := range checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

// calculateHealthScore computes a score from 0-100.
// Errors cost 30 points, warnings 10.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100 - 30*countStatus(checks, statusError) - 10*countStatus(checks, statusWarn)
	if score < 0 {
		return 0
	}
	return score
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.Status == statusPass {
			continue
		}
		if rec := getRecommendation(check.ID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(id string) string {
	switch id {
	case "PY01":
		return bootstrap.InstallHint
	case "PY02":
		return "Add a requirements.txt listing the packages the analysis needs"
	case "PY03":
		return "Run 'pysetup setup' to create the virtual environment"
	case "PY04":
		return "Remove the broken environment directory and run 'pysetup setup' again"
	default:
		return ""
	}
}

func statusLabel(status string) string {
	switch status {
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "PASS"
	}
}

// renderDoctor writes the report in the renderer's effective mode.
func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Project Health Report"))
	r.Println(styles.Muted.Render(out.ProjectDir))
	r.Println("")

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Check", "Group", "Result"})

	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		icon := styles.StatusSuccess.String()
		switch check.Status {
		case statusWarn:
			icon = styles.StatusWarning.String()
		case statusError:
			icon = styles.StatusFailed.String()
		}
		t.AppendRow(table.Row{icon, check.ID + " " + check.Name, titleCaser.String(check.Group), check.Summary})
	}
	t.Render()
	r.Println("")

	for _, check := range out.HealthChecks {
		if len(check.Details) == 0 {
			continue
		}
		r.Println(styles.Bold.Render("   " + check.ID + " " + check.Name))
		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}

	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Println("")
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# Project Health Report")
	r.Println("")
	r.Printf("Project: `%s`\n", out.ProjectDir)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s (%s)\n", statusLabel(check.Status), check.ID, check.Name, check.Summary)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}
