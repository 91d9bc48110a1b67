package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/duckdb"
	"github.com/inodb/varsim-tools/internal/output"
	"github.com/inodb/varsim-tools/internal/vcf"
)

type summaryOptions struct {
	db      string
	run     string
	list    bool
	asJSON  bool
	variant string
	delete  bool
}

func newSummaryCmd(a *app) *cobra.Command {
	var opts summaryOptions

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print accuracy statistics for a recorded run",
		Example: `  varsim-tools summary --db results.duckdb              # latest run
  varsim-tools summary --db results.duckdb --run 3f2a9c1e
  varsim-tools summary --db results.duckdb --list
  varsim-tools summary --db results.duckdb --variant chr1:12345:A:G
  varsim-tools summary --db results.duckdb --run 3f2a9c1e --delete`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSummary(opts)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "DuckDB file (default store.path)")
	cmd.Flags().StringVar(&opts.run, "run", "", "run ID or unique prefix (default latest)")
	cmd.Flags().BoolVar(&opts.list, "list", false, "list recorded runs")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the JSON report")
	cmd.Flags().StringVar(&opts.variant, "variant", "", "print the categories of one variant (chrom:pos:ref:alt)")
	cmd.Flags().BoolVar(&opts.delete, "delete", false, "delete the run given by --run")

	return cmd
}

func (a *app) runSummary(opts summaryOptions) error {
	if opts.delete && opts.run == "" {
		return usagef("--delete requires --run")
	}
	var key vcf.Key
	if opts.variant != "" {
		var err error
		if key, err = vcf.ParseKeyString(opts.variant); err != nil {
			return &usageError{err: err}
		}
	}

	dbPath := opts.db
	if dbPath == "" {
		dbPath = a.cfg.Store.Path
	}
	if dbPath == "" {
		return usagef("no database given: use --db or set store.path")
	}
	if !fileExists(dbPath) {
		return fmt.Errorf("database %s does not exist", dbPath)
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.list {
		runs, err := store.Runs()
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Label)
		}
		return nil
	}

	var run *duckdb.Run
	if opts.run != "" {
		run, err = store.FindRun(opts.run)
	} else {
		run, err = store.LatestRun()
	}
	if err != nil {
		return err
	}

	if opts.delete {
		if err := store.DeleteRun(run.ID); err != nil {
			return fmt.Errorf("delete run %s: %w", run.ID, err)
		}
		a.logger.Info("deleted run", zap.String("run_id", run.ID))
		fmt.Fprintf(a.stdout, "deleted %s\n", run.ID)
		return nil
	}

	if opts.variant != "" {
		cats, err := store.LookupCall(run.ID, key)
		if err != nil {
			return err
		}
		names := make([]string, len(cats))
		for i, c := range cats {
			names[i] = string(c)
		}
		if len(names) == 0 {
			names = []string{"absent"}
		}
		fmt.Fprintf(a.stdout, "%s\t%s\n", key, strings.Join(names, ","))
		return nil
	}

	inputs, err := store.Inputs(run.ID)
	if err != nil {
		return err
	}
	for role, fp := range inputs {
		if fp.Changed() {
			a.logger.Warn("input changed since the run was recorded",
				zap.String("role", role), zap.String("path", fp.Path))
		}
	}

	counts, err := store.Counts(run.ID)
	if err != nil {
		return err
	}

	if opts.asJSON {
		r := output.NewReport(run.ID, run.Label, output.ReportFiles{}, counts)
		r.CreatedAt = run.CreatedAt
		return output.WriteJSONReport(a.stdout, r)
	}
	return output.NewStatsWriter(a.stdout).WriteAll(counts)
}
