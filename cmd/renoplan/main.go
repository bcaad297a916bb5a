package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Elemanor/renonext-sub004/internal/baseline"
	"github.com/Elemanor/renonext-sub004/internal/blueprint"
	"github.com/Elemanor/renonext-sub004/internal/config"
	"github.com/Elemanor/renonext-sub004/internal/cpm"
	"github.com/Elemanor/renonext-sub004/internal/delay"
	"github.com/Elemanor/renonext-sub004/internal/graph"
	"github.com/Elemanor/renonext-sub004/internal/milestone"
	"github.com/Elemanor/renonext-sub004/internal/reporter"
	"github.com/Elemanor/renonext-sub004/internal/rows"
	"github.com/Elemanor/renonext-sub004/internal/ui"
)

const defaultConfigFile = "renoplan.yaml"

var (
	flagConfig     string
	flagJSON       bool
	flagNow        string
	flagProject    string
	flagFilter     string
	flagFormat     string
	flagBlueprint  string
	flagTotalCost  float64
	flagAllowEmpty bool
	flagDir        string
	flagDB         string
	flagNoLogo     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "renoplan",
		Short: "Schedule renovation projects and score contractor proposals",
		Long: `Renoplan computes critical-path schedules from exported task and
dependency rows, flags late and at-risk tasks, scores how well a proposal's
blueprint pins down its scope, and derives payment milestones.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !flagJSON && !flagNoLogo {
				ui.PrintLogo()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./"+defaultConfigFile+" if present)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "Evaluate delays as of this date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().BoolVar(&flagNoLogo, "no-logo", false, "Do not print the banner")

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(delaysCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(scopeCmd())
	rootCmd.AddCommand(milestonesCmd())
	rootCmd.AddCommand(baselineCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config, falls back to ./renoplan.yaml, then defaults.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return config.Load(defaultConfigFile)
	}
	return config.FromEnv()
}

func clock() (delay.Clock, error) {
	if flagNow == "" {
		return delay.SystemClock, nil
	}
	t, err := time.ParseInLocation("2006-01-02", flagNow, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --now %q: %w", flagNow, err)
	}
	return delay.Fixed(t), nil
}

// buildSchedule is shared logic for the project commands. It returns the
// project name (from the export, else the file name) and a reporter over
// the analyzed schedule.
func buildSchedule() (string, *reporter.Reporter, error) {
	if flagProject == "" {
		return "", nil, fmt.Errorf("--project is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return "", nil, err
	}
	clk, err := clock()
	if err != nil {
		return "", nil, err
	}

	p, err := rows.LoadProject(flagProject)
	if err != nil {
		return "", nil, fmt.Errorf("load project: %w", err)
	}
	name := p.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(flagProject), filepath.Ext(flagProject))
	}

	g, err := graph.Build(p.Tasks, p.Links)
	if err != nil {
		return "", nil, fmt.Errorf("build task graph: %w", err)
	}

	if flagFilter != "" {
		g, err = applyFilter(g, flagFilter)
		if err != nil {
			return "", nil, fmt.Errorf("apply filter: %w", err)
		}
	}

	result, err := cpm.AnalyzeWith(g, cfg.CPMOptions())
	if err != nil {
		return "", nil, fmt.Errorf("CPM analysis: %w", err)
	}

	return name, reporter.New(g, result, cfg.Classifier(clk)), nil
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the critical-path schedule of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rpt, err := buildSchedule()
			if err != nil {
				return err
			}

			if flagJSON {
				data, err := rpt.JSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			rpt.PrintSchedule(os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagProject, "project", "", "Project export (JSON rows)")
	cmd.Flags().StringVar(&flagFilter, "filter", "", "Filter tasks (e.g., status=in_progress, company=Acme)")

	return cmd
}

func delaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delays",
		Short: "Classify tasks as on track, at risk or delayed",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rpt, err := buildSchedule()
			if err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(rpt.Delays())
			}

			rpt.PrintDelays(os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagProject, "project", "", "Project export (JSON rows)")
	cmd.Flags().StringVar(&flagFilter, "filter", "", "Filter tasks")

	return cmd
}

func vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Print the dependency graph as ASCII or Graphviz DOT",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rpt, err := buildSchedule()
			if err != nil {
				return err
			}

			switch flagFormat {
			case "dot":
				rpt.PrintDOT(os.Stdout)
			case "ascii", "":
				rpt.PrintASCII(os.Stdout)
			default:
				return fmt.Errorf("unsupported format: %s (use ascii or dot)", flagFormat)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagProject, "project", "", "Project export (JSON rows)")
	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot)")
	cmd.Flags().StringVar(&flagFilter, "filter", "", "Filter tasks")

	return cmd
}

func loadBlueprint() (*rows.Blueprint, error) {
	if flagBlueprint == "" {
		return nil, fmt.Errorf("--blueprint is required")
	}
	b, err := rows.LoadBlueprint(flagBlueprint)
	if err != nil {
		return nil, fmt.Errorf("load blueprint: %w", err)
	}
	if err := blueprint.Validate(b.Steps); err != nil {
		return nil, fmt.Errorf("validate blueprint: %w", err)
	}
	return b, nil
}

func scopeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Score a proposal's Scope Confidence Index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := loadBlueprint()
			if err != nil {
				return err
			}

			res := cfg.ScopeModel().Score(b.Steps, b.Flags)
			if flagJSON {
				return outputJSON(res)
			}

			reporter.PrintScope(os.Stdout, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagBlueprint, "blueprint", "", "Blueprint export (JSON rows)")

	return cmd
}

func milestonesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Derive payment milestones from a blueprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := loadBlueprint()
			if err != nil {
				return err
			}

			ms, err := milestoneDeriver(cfg).Derive(b.Steps, contractTotal(cmd, b))
			if err != nil {
				return fmt.Errorf("derive milestones: %w", err)
			}

			if flagJSON {
				return outputJSON(ms)
			}

			reporter.PrintMilestones(os.Stdout, ms, cfg.Milestones.Currency, cfg.Milestones.Locale)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagBlueprint, "blueprint", "", "Blueprint export (JSON rows)")
	cmd.Flags().Float64Var(&flagTotalCost, "total-cost", 0, "Contract total (overrides the blueprint's total_cost)")
	cmd.Flags().BoolVar(&flagAllowEmpty, "allow-empty", false, "Return an empty schedule when no step triggers payment")

	return cmd
}

// milestoneDeriver allows an empty schedule when either --allow-empty or
// milestones.allow_empty asks for it.
func milestoneDeriver(cfg *config.Config) milestone.Deriver {
	return milestone.Deriver{AllowEmpty: flagAllowEmpty || cfg.Milestones.AllowEmpty}
}

// contractTotal prefers an explicit --total-cost, even zero, over the
// blueprint's total_cost.
func contractTotal(cmd *cobra.Command, b *rows.Blueprint) float64 {
	if cmd.Flags().Changed("total-cost") {
		return flagTotalCost
	}
	return b.TotalCost
}

func baselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Save a schedule baseline or compare against it",
		Long: `Baselines are saved as JSON in --dir. With --db, every saved baseline is
also recorded in a SQLite history keyed by project name, and diff compares
against the latest recorded baseline.`,
	}

	save := &cobra.Command{
		Use:   "save",
		Short: "Save the current schedule as the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, rpt, err := buildSchedule()
			if err != nil {
				return err
			}
			clk, err := clock()
			if err != nil {
				return err
			}

			snap := baseline.Capture(rpt.Result, clk.Now())
			if err := snap.Save(flagDir); err != nil {
				return fmt.Errorf("save baseline: %w", err)
			}

			if flagDB != "" {
				store, err := baseline.OpenStore(flagDB)
				if err != nil {
					return err
				}
				defer store.Close()
				if _, err := store.Record(name, snap); err != nil {
					return err
				}
			}

			if flagJSON {
				return outputJSON(snap)
			}
			fmt.Printf("%s Baseline for %s saved to %s (%d tasks, %s days)\n",
				ui.Green("✓"), ui.Bold(name), baseline.Path(flagDir), len(snap.Tasks), ui.Bold(snap.ProjectDuration))
			return nil
		},
	}

	diff := &cobra.Command{
		Use:   "diff",
		Short: "Compare the current schedule against the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, rpt, err := buildSchedule()
			if err != nil {
				return err
			}

			base, err := loadBaseline(name)
			if err != nil {
				return err
			}

			v := baseline.Compare(base, rpt.Result)
			if flagJSON {
				return outputJSON(v)
			}
			reporter.PrintVariance(os.Stdout, v)
			return nil
		},
	}

	history := &cobra.Command{
		Use:   "history <project-name>",
		Short: "List recorded baselines of a project (requires --db)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagDB == "" {
				return fmt.Errorf("--db is required")
			}
			store, err := baseline.OpenStore(flagDB)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.History(args[0])
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(recs)
			}

			fmt.Printf("📚 %s %s\n", ui.BoldCyan("Baselines"), ui.Bold(args[0]))
			for _, r := range recs {
				fmt.Printf("  #%-4d %s  %s days  %d critical\n",
					r.ID, r.CapturedAt.Format("2006-01-02 15:04"), ui.Bold(r.ProjectDuration), r.CriticalTasks)
			}
			if len(recs) == 0 {
				fmt.Println(ui.Dim("  none recorded"))
			}
			return nil
		},
	}

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Remove the saved baseline file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := baseline.Clean(flagDir); err != nil {
				return fmt.Errorf("clean baseline: %w", err)
			}
			fmt.Printf("%s Baseline removed\n", ui.Green("✓"))
			return nil
		},
	}

	for _, c := range []*cobra.Command{save, diff} {
		c.Flags().StringVar(&flagProject, "project", "", "Project export (JSON rows)")
		c.Flags().StringVar(&flagFilter, "filter", "", "Filter tasks")
	}
	cmd.PersistentFlags().StringVar(&flagDir, "dir", baseline.DefaultDir, "Baseline directory")
	cmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite baseline history (optional)")

	cmd.AddCommand(save, diff, history, clean)
	return cmd
}

// loadBaseline reads the latest recorded baseline when --db is set, else
// the baseline file in --dir.
func loadBaseline(name string) (*baseline.Snapshot, error) {
	if flagDB != "" {
		store, err := baseline.OpenStore(flagDB)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Latest(name)
	}
	if !baseline.Exists(flagDir) {
		return nil, fmt.Errorf("no baseline in %s (run 'renoplan baseline save' first)", baseline.Path(flagDir))
	}
	return baseline.Load(flagDir)
}

// --- Output helpers ---

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// applyFilter parses simple filter expressions and returns a filtered graph.
func applyFilter(g *graph.TaskGraph, filter string) (*graph.TaskGraph, error) {
	// Supported formats: "status=X", "company=X"
	if strings.HasPrefix(filter, "status=") {
		status := graph.TaskStatus(strings.TrimPrefix(filter, "status="))
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q", status)
		}
		return g.Filter(func(t *graph.Task) bool {
			return t.Status == status
		})
	}
	if strings.HasPrefix(filter, "company=") {
		company := strings.TrimPrefix(filter, "company=")
		return g.Filter(func(t *graph.Task) bool {
			return strings.EqualFold(t.AssignedCompany, company)
		})
	}
	return nil, fmt.Errorf("unsupported filter: %s (use status=X or company=X)", filter)
}
