package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/merge"
)

type combineOptions struct {
	outputPrefix string
	mode         string
	overwrite    bool
	noCompress   bool
}

func newCombineCmd(a *app) *cobra.Command {
	var opts combineOptions

	cmd := &cobra.Command{
		Use:   "combine [flags] VCF...",
		Short: "Merge VCFs, keeping all, the first, or none of each duplicate",
		Long: `Merge VCF files into one coordinate-sorted VCF. Records are duplicates when
they share chromosome, position, REF and ALT.

Modes:
  first_duplicate  keep the first record of each duplicate group
  all_duplicate    keep every record
  no_duplicate     drop every record whose key occurs more than once

A single input is copied to the output unchanged.`,
		Example: `  varsim-tools combine --output-prefix merged a.vcf b.vcf.gz
  varsim-tools combine --mode no_duplicate --no-compress --output-prefix diff t.vcf tp.vcf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCombine(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.outputPrefix, "output-prefix", "", "output prefix; writes PREFIX.vcf or PREFIX.vcf.gz")
	cmd.Flags().StringVar(&opts.mode, "mode", merge.KeepFirst.String(), "duplicate mode: first_duplicate, all_duplicate, no_duplicate")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "replace existing output")
	cmd.Flags().BoolVar(&opts.noCompress, "no-compress", false, "write plain VCF instead of BGZF with an index")
	_ = cmd.MarkFlagRequired("output-prefix")

	return cmd
}

func (a *app) runCombine(ctx context.Context, opts combineOptions, inputs []string) error {
	mode, err := merge.ParseDuplicateMode(opts.mode)
	if err != nil {
		return &usageError{err: err}
	}

	compress := a.cfg.Merge.Compress && !opts.noCompress
	out := opts.outputPrefix + ".vcf"
	target := out
	if compress || (len(inputs) == 1 && strings.HasSuffix(inputs[0], ".gz")) {
		target += ".gz"
	}
	if !opts.overwrite && (fileExists(target) || fileExists(target+".tbi")) {
		a.logger.Warn("output exists, use --overwrite to replace it", zap.String("path", target))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	m, err := a.newMerger()
	if err != nil {
		return err
	}

	var written string
	if len(inputs) == 1 {
		a.logger.Info("single input, copying", zap.String("input", inputs[0]))
		written, err = m.CopyVCF(ctx, out, inputs[0], compress)
	} else {
		written, err = m.Merge(ctx, out, inputs, mode, compress)
	}
	if err != nil {
		return err
	}

	a.logger.Info("combine done", zap.String("output", written))
	fmt.Fprintln(a.stdout, written)
	return nil
}
