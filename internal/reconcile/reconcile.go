// Package reconcile derives augmented TP, FN and FP call sets from two
// independent judgments of the same calls: a simulator-truth comparison
// (VarSim vcfcompare) and an allele-matching comparison (RTG vcfeval) of the
// simulator's false positives against its false negatives.
//
// Variants are identified by (chrom, pos, ref, alt):
//
//	augmented TP = VarSim TP + vcfeval TP (baseline)
//	T            = VarSim TP + VarSim FN
//	augmented FN = T - augmented TP
//	augmented FP = VarSim FP - vcfeval TP (calls)
//
// Both differences are computed by merging with no duplicates kept, which is
// only a set difference when the subtracted set is a subset of the other.
package reconcile

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/varsim-tools/internal/merge"
)

// Merger merges VCF files; *merge.Merger implements it.
type Merger interface {
	Merge(ctx context.Context, outputPath string, inputs []string, mode merge.DuplicateMode, compress bool) (string, error)
}

// Inputs names the comparator outputs being reconciled.
type Inputs struct {
	VarSimTP         string
	VarSimFN         string
	VarSimFP         string
	VCFEvalTP        string // vcfeval TP judged against the baseline
	VCFEvalTPPredict string // vcfeval TP judged against the calls
}

// Result holds the paths of the reconciled call sets.
type Result struct {
	TP string
	FN string
	FP string
	T  string // full truth set, an intermediate of FN
}

// Reconciler runs the four merges that produce the augmented call sets.
type Reconciler struct {
	merger   Merger
	compress bool
	check    SubsetCheck
	parallel bool
	logger   *zap.Logger
}

// NewReconciler creates a reconciler that compresses its outputs, checks
// subset preconditions strictly and runs independent merges in parallel.
func NewReconciler(m Merger) *Reconciler {
	return &Reconciler{
		merger:   m,
		compress: true,
		check:    CheckStrict,
		parallel: true,
		logger:   zap.NewNop(),
	}
}

// SetCompress configures whether outputs are block compressed and indexed.
func (r *Reconciler) SetCompress(compress bool) {
	r.compress = compress
}

// SetSubsetCheck configures how subset precondition violations are handled.
func (r *Reconciler) SetSubsetCheck(c SubsetCheck) {
	r.check = c
}

// SetParallel configures whether independent merges run concurrently.
func (r *Reconciler) SetParallel(parallel bool) {
	r.parallel = parallel
}

// SetLogger sets the logger.
func (r *Reconciler) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Reconcile writes augmented_tp, augmented_t, augmented_fn and augmented_fp
// VCFs to outDir.
func (r *Reconciler) Reconcile(ctx context.Context, outDir string, in Inputs) (*Result, error) {
	var res Result

	mergeTP := func(ctx context.Context) (err error) {
		res.TP, err = r.merge(ctx, outDir, "augmented_tp", merge.KeepFirst, in.VarSimTP, in.VCFEvalTP)
		return err
	}
	mergeT := func(ctx context.Context) (err error) {
		res.T, err = r.merge(ctx, outDir, "augmented_t", merge.KeepFirst, in.VarSimTP, in.VarSimFN)
		return err
	}
	mergeFN := func(ctx context.Context) (err error) {
		if err := r.verify(ctx, res.TP, res.T); err != nil {
			return err
		}
		res.FN, err = r.merge(ctx, outDir, "augmented_fn", merge.KeepNone, res.T, res.TP)
		return err
	}
	mergeFP := func(ctx context.Context) (err error) {
		if err := r.verify(ctx, in.VCFEvalTPPredict, in.VarSimFP); err != nil {
			return err
		}
		res.FP, err = r.merge(ctx, outDir, "augmented_fp", merge.KeepNone, in.VarSimFP, in.VCFEvalTPPredict)
		return err
	}

	if !r.parallel {
		for _, step := range []func(context.Context) error{mergeTP, mergeT, mergeFN, mergeFP} {
			if err := step(ctx); err != nil {
				return nil, err
			}
		}
		return &res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mergeFP(gctx) })
	g.Go(func() error {
		truth, tctx := errgroup.WithContext(gctx)
		truth.Go(func() error { return mergeTP(tctx) })
		truth.Go(func() error { return mergeT(tctx) })
		if err := truth.Wait(); err != nil {
			return err
		}
		return mergeFN(gctx)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *Reconciler) merge(ctx context.Context, outDir, name string, mode merge.DuplicateMode, inputs ...string) (string, error) {
	out, err := r.merger.Merge(ctx, filepath.Join(outDir, name+".vcf"), inputs, mode, r.compress)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	r.logger.Info("reconciled call set", zap.String("set", name), zap.String("path", out))
	return out, nil
}
