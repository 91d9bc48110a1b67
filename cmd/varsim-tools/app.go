package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/config"
	"github.com/inodb/varsim-tools/internal/logger"
	"github.com/inodb/varsim-tools/internal/merge"
	"github.com/inodb/varsim-tools/internal/reconcile"
	"github.com/inodb/varsim-tools/internal/tools"
)

// app carries the state shared by all subcommands.
type app struct {
	configFile string
	logLevel   string
	logFile    string

	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
	stdout io.Writer
}

func newApp(stdout io.Writer) *app {
	return &app{stdout: stdout, logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "varsim-tools",
		Short: "Merge and reconcile VCF call sets from simulation validation",
		Long: `varsim-tools merges VCF files with duplicate handling and reconciles
the results of VarSim vcfcompare and RTG vcfeval into augmented TP, FN and FP
call sets with per-variant-type accuracy statistics.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ~/"+config.FileName+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "also write logs to this file")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(newCombineCmd(a))
	root.AddCommand(newReconcileCmd(a))
	root.AddCommand(newCompareCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newConfigCmd(a))

	return root
}

// init loads the configuration and builds the logger.
func (a *app) init() error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFile != "" {
		cfg.Log.File = a.logFile
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return &usageError{err: err}
	}

	a.v, a.cfg, a.logger = v, cfg, l
	return nil
}

// newMerger builds a merge engine from the tools configuration. Empty sort
// and bgzip commands select the in-process implementations; an empty tabix
// command leaves compressed output unindexed.
func (a *app) newMerger() (*merge.Merger, error) {
	tc := a.cfg.Tools

	var sorter tools.Sorter
	if tc.Sort != "" {
		sorter = tools.ExternalSorter{Cmd: tc.Sort}
	} else {
		var order []string
		if ref := a.cfg.Merge.Reference; ref != "" {
			var err error
			order, err = tools.ReadContigOrder(ref)
			if err != nil {
				return nil, fmt.Errorf("contig order: %w", err)
			}
		}
		sorter = tools.InProcessSorter{ContigOrder: order}
	}

	var compressor tools.Compressor
	if tc.Bgzip != "" {
		compressor = tools.Bgzip{Cmd: tc.Bgzip, Threads: tc.Threads}
	} else {
		compressor = tools.BGZFCompressor{Workers: tc.Threads}
	}

	var indexer tools.Indexer
	if tc.Tabix != "" {
		indexer = tools.Tabix{Cmd: tc.Tabix, CSI: tc.CSI}
	}

	m := merge.NewMerger(sorter, compressor, indexer)
	m.SetStrict(a.cfg.Merge.Strict)
	m.SetLogger(a.logger)
	return m, nil
}

// newReconciler builds a reconciler over m from the reconcile configuration.
func (a *app) newReconciler(m *merge.Merger, compress bool) (*reconcile.Reconciler, error) {
	check, err := reconcile.ParseSubsetCheck(a.cfg.Reconcile.SubsetCheck)
	if err != nil {
		return nil, err
	}
	r := reconcile.NewReconciler(m)
	r.SetCompress(compress)
	r.SetSubsetCheck(check)
	r.SetParallel(a.cfg.Reconcile.Parallel)
	r.SetLogger(a.logger)
	return r, nil
}

// toolLog is where external comparators write their own output.
func (a *app) toolLog() io.Writer {
	return os.Stderr
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
