package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/compare"
	"github.com/inodb/varsim-tools/internal/merge"
	"github.com/inodb/varsim-tools/internal/reconcile"
)

type compareOptions struct {
	reference         string
	sdf               string
	trueVCF           string
	outDir            string
	regions           string
	sample            string
	excludeFiltered   bool
	matchGeno         bool
	vcfcompareOptions string
	vcfevalOptions    string
	db                string
	label             string
}

func newCompareCmd(a *app) *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare [flags] VCF...",
		Short: "Compare calls against a truth VCF with VarSim and vcfeval",
		Long: `Run the full validation pipeline: VarSim vcfcompare against the truth VCF,
RTG vcfeval of VarSim's false positives against its false negatives, and
reconciliation of both into augmented TP, FN and FP sets.

Several call VCFs are merged into one before comparison.`,
		Example: `  varsim-tools compare --reference hs37d5.fa --true-vcf truth.vcf --out-dir results calls.vcf`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompare(cmd.Context(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.reference, "reference", "", "reference FASTA")
	f.StringVar(&opts.sdf, "sdf", "", "SDF formatted reference (generated next to the FASTA if not given)")
	f.StringVar(&opts.trueVCF, "true-vcf", "", "truth VCF")
	f.StringVar(&opts.outDir, "out-dir", "", "output directory")
	f.StringVar(&opts.regions, "regions", "", "BED file to restrict the comparison to")
	f.StringVar(&opts.sample, "sample", "", "sample name")
	f.BoolVar(&opts.excludeFiltered, "exclude-filtered", false, "only consider records with PASS or . in FILTER")
	f.BoolVar(&opts.matchGeno, "match-geno", false, "compare genotypes in addition to alleles")
	f.StringVar(&opts.vcfcompareOptions, "vcfcompare-options", "", "additional options for VarSim vcfcompare")
	f.StringVar(&opts.vcfevalOptions, "vcfeval-options", "", "additional options for RTG vcfeval")
	f.StringVar(&opts.db, "db", "", "DuckDB file to record the run in")
	f.StringVar(&opts.label, "label", "", "label stored with the run")
	for _, name := range []string{"reference", "true-vcf", "out-dir"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func (a *app) runCompare(ctx context.Context, opts compareOptions, calls []string) error {
	outDir, err := filepath.Abs(opts.outDir)
	if err != nil {
		return err
	}
	reference, err := filepath.Abs(opts.reference)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tc := a.cfg.Tools
	m, err := a.newMerger()
	if err != nil {
		return err
	}

	if len(calls) > 1 {
		merged, err := m.Merge(ctx, filepath.Join(outDir, "merged_calls.vcf"), calls, merge.KeepAll, false)
		if err != nil {
			return fmt.Errorf("merge call vcfs: %w", err)
		}
		a.logger.Info("merged call vcfs", zap.Int("inputs", len(calls)), zap.String("output", merged))
		calls = []string{merged}
	}

	vs, err := compare.VarSimCompare{
		Java:            tc.Java,
		Jar:             tc.VarSimJar,
		Prefix:          filepath.Join(outDir, "varsim_compare_results"),
		TrueVCF:         opts.trueVCF,
		Reference:       reference,
		ExcludeFiltered: opts.excludeFiltered,
		MatchGeno:       opts.matchGeno,
		Sample:          opts.sample,
		Regions:         opts.regions,
		Options:         strings.Fields(opts.vcfcompareOptions),
		VCFs:            calls,
		Log:             a.toolLog(),
	}.Run(ctx, a.logger)
	if err != nil {
		return err
	}

	var in reconcile.Inputs
	for _, f := range []struct {
		src string
		dst *string
	}{
		{vs.TP, &in.VarSimTP},
		{vs.FN, &in.VarSimFN},
		{vs.FP, &in.VarSimFP},
	} {
		gz, err := m.Compress(ctx, f.src)
		if err != nil {
			return err
		}
		*f.dst = gz
	}

	sdf := opts.sdf
	if sdf == "" {
		a.logger.Info("no SDF reference supplied, generating one")
		sdf, err = compare.RTGFormat{
			Java:   tc.Java,
			Jar:    tc.RTGJar,
			Output: compare.SDFPath(reference),
			Input:  reference,
			Log:    a.toolLog(),
		}.Run(ctx, a.logger)
		if err != nil {
			return err
		}
	}

	ev, err := compare.VCFEval{
		Java:         tc.Java,
		Jar:          tc.RTGJar,
		Output:       filepath.Join(outDir, "vcfeval_compare_results"),
		Baseline:     in.VarSimFN,
		Template:     sdf,
		AllRecords:   !opts.excludeFiltered,
		SquashPloidy: !opts.matchGeno,
		Sample:       opts.sample,
		Regions:      opts.regions,
		Options:      strings.Fields(opts.vcfevalOptions),
		Calls:        []string{in.VarSimFP},
		Log:          a.toolLog(),
	}.Run(ctx, a.logger)
	if err != nil {
		return err
	}
	in.VCFEvalTP = ev.TPBaseline
	in.VCFEvalTPPredict = ev.TP

	return a.reconcileAndReport(ctx, reconcileOptions{
		outDir: outDir,
		in:     in,
		db:     opts.db,
		label:  opts.label,
	})
}
