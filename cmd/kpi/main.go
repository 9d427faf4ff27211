// Command kpi parses sales exports and computes KPI reports offline.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/KPI_GO/internal/app"
	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/metrics"
	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/sheet"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	pretty     bool
	heuristics string
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "kpi",
		Short:        "Parse sales exports and compute KPI reports",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")
	root.PersistentFlags().StringVar(&opts.heuristics, "heuristics", "", "YAML heuristics file (default: $HEURISTICS_FILE or built-in)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log sheet decisions to stderr")

	root.AddCommand(newParseCmd(opts), newReportCmd(opts), newGoalsCmd(opts))
	return root
}

func build(cmd *cobra.Command, opts *options) (*app.App, error) {
	cfg := config.FromEnv()
	if opts.heuristics != "" {
		cfg.HeuristicsFile = opts.heuristics
	}
	lvl := slog.LevelWarn
	if opts.verbose {
		lvl = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
	return app.New(cfg, log)
}

func emit(cmd *cobra.Command, opts *options, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

type parseOutput struct {
	Summary       models.IngestSummary    `json:"summary"`
	Opportunities []models.OpportunityRow `json:"opportunities,omitempty"`
	Visits        []models.VisitRow       `json:"visits,omitempty"`
	Activities    []models.ActivityRow    `json:"activities,omitempty"`
	Pivot         *models.PivotModel      `json:"pivot,omitempty"`
}

func newParseCmd(opts *options) *cobra.Command {
	var summaryOnly bool
	cmd := &cobra.Command{
		Use:   "parse <detail|visits|activities|pivot> <file>",
		Short: "Parse one export and print its normalized rows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := sheet.ParseKind(args[0])
			if err != nil {
				return err
			}
			a, err := build(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			sum, err := a.Ingest.IngestFile(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			out := parseOutput{Summary: sum}
			if !summaryOnly {
				ds, _ := a.Store.Get(string(kind))
				out.Opportunities, out.Visits, out.Activities, out.Pivot = ds.Opportunities, ds.Visits, ds.Activities, ds.Pivot
			}
			return emit(cmd, opts, out)
		},
	}
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print only the ingestion summary")
	return cmd
}

func newReportCmd(opts *options) *cobra.Command {
	files := map[sheet.Kind]*string{}
	var salesperson, period, year, mode, winRate, source string
	cmd := &cobra.Command{
		Use:       "report <kpi>",
		Short:     "Compute a KPI report from one or more exports",
		Long:      "KPIs: winrate, pipeline, attainment, forecast, offers, visits, activities, cycle.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: metrics.KPIs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			loaded := 0
			for _, k := range sheet.Kinds {
				if p := *files[k]; p != "" {
					if _, err := a.Ingest.IngestFile(cmd.Context(), k, p); err != nil {
						return fmt.Errorf("%s: %w", k, err)
					}
					loaded++
				}
			}
			if loaded == 0 {
				return fmt.Errorf("no export given (use --detail, --pivot, --visits or --activities)")
			}
			v := url.Values{}
			for k, val := range map[string]string{
				"salesperson": salesperson,
				"period":      period,
				"year":        year,
				"mode":        mode,
				"win_rate":    winRate,
				"source":      source,
			} {
				if val != "" {
					v.Set(k, val)
				}
			}
			out, err := a.KPI.Query(cmd.Context(), args[0], v)
			if err != nil {
				return err
			}
			return emit(cmd, opts, out)
		},
	}
	for _, k := range sheet.Kinds {
		files[k] = new(string)
		cmd.Flags().StringVar(files[k], string(k), "", fmt.Sprintf("Path to the %s export", k))
	}
	cmd.Flags().StringVar(&salesperson, "salesperson", "ALL", "Salesperson name or ALL")
	cmd.Flags().StringVar(&period, "period", "", "YYYY-MM, all, undated, or empty for the latest")
	cmd.Flags().StringVar(&year, "year", "", "Goal year (default: current year)")
	cmd.Flags().StringVar(&mode, "mode", "", "Cycle mode: closed, won, all")
	cmd.Flags().StringVar(&winRate, "win-rate", "", "Assumed win rate for forecast (e.g. 0.2 or 20)")
	cmd.Flags().StringVar(&source, "source", "", "Prefer pivot or detail for winrate/pipeline")
	return cmd
}

func newGoalsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Read or write per-salesperson goals in the goal store",
	}
	get := &cobra.Command{
		Use:   "get <year>",
		Short: "Fetch the goals of a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad year %q", args[0])
			}
			a, err := build(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			s, err := a.Goals.Refresh(cmd.Context(), year)
			if err != nil {
				return err
			}
			return emit(cmd, opts, s)
		},
	}
	set := &cobra.Command{
		Use:   "set <year> <goals.json>",
		Short: "Replace the goals of a year from a JSON file ({\"metas\": [...]})",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad year %q", args[0])
			}
			recs, err := readGoals(args[1])
			if err != nil {
				return err
			}
			a, err := build(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Goals.Save(cmd.Context(), year, recs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d goals for %d\n", len(recs), year)
			return nil
		},
	}
	cmd.AddCommand(get, set)
	return cmd
}

func readGoals(path string) ([]models.GoalRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var body struct {
		Metas []models.GoalRecord `json:"metas"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return body.Metas, nil
}
