package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/duckdb"
	"github.com/inodb/varsim-tools/internal/logger"
	"github.com/inodb/varsim-tools/internal/output"
	"github.com/inodb/varsim-tools/internal/reconcile"
)

// ReportName is the JSON summary written next to the reconciled VCFs.
const ReportName = "augmented_report.json"

type reconcileOptions struct {
	outDir      string
	in          reconcile.Inputs
	db          string
	label       string
	subsetCheck string
	noCompress  bool
}

func newReconcileCmd(a *app) *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Build augmented TP/FN/FP sets from VarSim and vcfeval results",
		Long: `Reconcile the output of VarSim vcfcompare with RTG vcfeval run on VarSim's
false negatives (baseline) and false positives (calls):

  augmented_tp = VarSim TP + vcfeval TP (baseline)
  augmented_fn = (VarSim TP + VarSim FN) - augmented_tp
  augmented_fp = VarSim FP - vcfeval TP (calls)

The reconciled sets are recorded in DuckDB and summarized per variant type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.subsetCheck != "" {
				a.cfg.Reconcile.SubsetCheck = opts.subsetCheck
			}
			return a.reconcileAndReport(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.outDir, "out-dir", "", "output directory")
	f.StringVar(&opts.in.VarSimTP, "varsim-tp", "", "VarSim true positives")
	f.StringVar(&opts.in.VarSimFN, "varsim-fn", "", "VarSim false negatives")
	f.StringVar(&opts.in.VarSimFP, "varsim-fp", "", "VarSim false positives")
	f.StringVar(&opts.in.VCFEvalTP, "vcfeval-tp", "", "vcfeval true positives against the baseline (tp-baseline.vcf.gz)")
	f.StringVar(&opts.in.VCFEvalTPPredict, "vcfeval-tp-predict", "", "vcfeval true positives against the calls (tp.vcf.gz)")
	f.StringVar(&opts.db, "db", "", "DuckDB file to record the run in (default store.path, or in-memory)")
	f.StringVar(&opts.label, "label", "", "label stored with the run")
	f.StringVar(&opts.subsetCheck, "subset-check", "", "subset precondition handling: strict, warn, off")
	f.BoolVar(&opts.noCompress, "no-compress", false, "write plain VCFs")
	for _, name := range []string{"out-dir", "varsim-tp", "varsim-fn", "varsim-fp", "vcfeval-tp", "vcfeval-tp-predict"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// reconcileAndReport reconciles the inputs into opts.outDir, records the
// result, prints the stats table and writes the JSON report.
func (a *app) reconcileAndReport(ctx context.Context, opts reconcileOptions) error {
	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	m, err := a.newMerger()
	if err != nil {
		return err
	}
	r, err := a.newReconciler(m, a.cfg.Merge.Compress && !opts.noCompress)
	if err != nil {
		return &usageError{err: err}
	}

	res, err := r.Reconcile(ctx, opts.outDir, opts.in)
	if err != nil {
		return err
	}
	a.logger.Info("variant comparison done",
		zap.String("tp", res.TP), zap.String("fn", res.FN), zap.String("fp", res.FP))

	dbPath := opts.db
	if dbPath == "" {
		dbPath = a.cfg.Store.Path
	}
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.CreateRun(opts.label)
	if err != nil {
		return err
	}
	log := logger.WithRun(a.logger, run.ID)

	fps, err := duckdb.StatFiles(map[string]string{
		"varsim_tp":          opts.in.VarSimTP,
		"varsim_fn":          opts.in.VarSimFN,
		"varsim_fp":          opts.in.VarSimFP,
		"vcfeval_tp":         opts.in.VCFEvalTP,
		"vcfeval_tp_predict": opts.in.VCFEvalTPPredict,
	})
	if err != nil {
		return err
	}
	if err := store.RecordInputs(run.ID, fps); err != nil {
		return err
	}

	for _, set := range []struct {
		cat  duckdb.Category
		path string
	}{
		{duckdb.CategoryTP, res.TP},
		{duckdb.CategoryFN, res.FN},
		{duckdb.CategoryFP, res.FP},
	} {
		n, err := store.IngestVCF(run.ID, set.cat, set.path)
		if err != nil {
			return err
		}
		log.Debug("recorded call set", zap.String("category", string(set.cat)), zap.Int("calls", n))
	}

	counts, err := store.Counts(run.ID)
	if err != nil {
		return err
	}
	if err := output.NewStatsWriter(a.stdout).WriteAll(counts); err != nil {
		return err
	}

	report := output.NewReport(run.ID, opts.label, output.ReportFiles{TP: res.TP, FN: res.FN, FP: res.FP}, counts)
	reportPath := filepath.Join(opts.outDir, ReportName)
	if err := writeReport(reportPath, report); err != nil {
		return err
	}
	log.Info("wrote report", zap.String("path", reportPath))
	return nil
}

func writeReport(path string, r *output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := output.WriteJSONReport(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
