// Package compare drives the two comparators whose outputs are reconciled:
// VarSim vcfcompare, which judges calls against the simulator's truth, and
// RTG vcfeval, which re-judges VarSim's false positives against its false
// negatives by allele matching.
package compare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/tools"
)

// ErrMissingResult is wrapped by errors for result files a comparator did not produce.
var ErrMissingResult = errors.New("result file was not generated")

// VarSimCompare defines parameters for VarSim vcfcompare.
type VarSimCompare struct {
	// Usage: java -jar VarSim.jar vcfcompare [options] VCF...
	Java string `buildarg:"{{if .}}{{.}}{{else}}java{{end}}"` // java
	Jar  string `buildarg:"-jar{{split}}{{.}}{{split}}vcfcompare"`

	Prefix          string   `buildarg:"-prefix{{split}}{{.}}"`                                       // -prefix: output prefix
	TrueVCF         string   `buildarg:"-true_vcf{{split}}{{.}}"`                                     // -true_vcf: truth VCF
	Reference       string   `buildarg:"-reference{{split}}{{.}}"`                                    // -reference: reference FASTA
	ExcludeFiltered bool     `buildarg:"{{if .}}-exclude_filtered{{end}}"`                            // -exclude_filtered: only PASS or . records
	MatchGeno       bool     `buildarg:"{{if .}}-match_geno{{end}}"`                                  // -match_geno: compare genotypes too
	Sample          string   `buildarg:"{{if .}}-sample{{split}}{{.}}{{end}}"`                        // -sample: sample name
	Regions         string   `buildarg:"{{if .}}-bed{{split}}{{.}}{{end}}"`                           // -bed: restrict to regions
	Options         []string `buildarg:"{{range $i, $v := .}}{{if $i}}{{split}}{{end}}{{$v}}{{end}}"` // extra vcfcompare options
	VCFs            []string `buildarg:"{{range $i, $v := .}}{{if $i}}{{split}}{{end}}{{$v}}{{end}}"` // VCF...

	// Log receives the tool's stdout and stderr.
	Log io.Writer
}

// VarSimResult holds the paths written by vcfcompare.
type VarSimResult struct {
	TP string
	FN string
	FP string
}

// BuildCommand returns an exec.Cmd built from the parameters in c.
func (c VarSimCompare) BuildCommand() (*exec.Cmd, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return tools.Command(context.Background(), c)
}

func (c VarSimCompare) validate() error {
	if c.Jar == "" || c.Prefix == "" || c.TrueVCF == "" || c.Reference == "" || len(c.VCFs) == 0 {
		return tools.ErrMissingRequired
	}
	return nil
}

// Run runs vcfcompare and returns its TP, FN and FP VCFs.
func (c VarSimCompare) Run(ctx context.Context, logger *zap.Logger) (*VarSimResult, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	cmd, err := tools.Command(ctx, c)
	if err != nil {
		return nil, err
	}
	cmd.Stdout = c.Log
	cmd.Stderr = c.Log

	logger.Info("running VarSim vcfcompare", zap.Strings("args", cmd.Args))
	if err := tools.Run(cmd); err != nil {
		return nil, err
	}

	res := &VarSimResult{
		TP: c.Prefix + "_TP.vcf",
		FN: c.Prefix + "_FN.vcf",
		FP: c.Prefix + "_FP.vcf",
	}
	if err := requireFiles("VarSim vcfcompare", res.TP, res.FN, res.FP); err != nil {
		return nil, err
	}
	return res, nil
}

// VCFEval defines parameters for RTG vcfeval.
type VCFEval struct {
	// Usage: java -jar RTG.jar vcfeval [options] --calls VCF
	Java string `buildarg:"{{if .}}{{.}}{{else}}java{{end}}"` // java
	Jar  string `buildarg:"-jar{{split}}{{.}}{{split}}vcfeval"`

	Output       string   `buildarg:"-o{{split}}{{.}}"`                                                            // -o: output directory
	Baseline     string   `buildarg:"--baseline{{split}}{{.}}"`                                                    // --baseline: truth VCF
	Template     string   `buildarg:"-t{{split}}{{.}}"`                                                            // -t: SDF reference
	AllRecords   bool     `buildarg:"{{if .}}--all-records{{end}}"`                                                // --all-records: include filtered records
	SquashPloidy bool     `buildarg:"{{if .}}--squash-ploidy{{end}}"`                                              // --squash-ploidy: ignore zygosity
	Sample       string   `buildarg:"{{if .}}--sample{{split}}{{.}}{{end}}"`                                       // --sample: sample name
	Regions      string   `buildarg:"{{if .}}--bed-regions{{split}}{{.}}{{end}}"`                                  // --bed-regions: restrict to regions
	Options      []string `buildarg:"{{range $i, $v := .}}{{if $i}}{{split}}{{end}}{{$v}}{{end}}"`                 // extra vcfeval options
	Calls        []string `buildarg:"{{range $i, $v := .}}{{if $i}}{{split}}{{end}}--calls{{split}}{{$v}}{{end}}"` // --calls: exactly one VCF

	// Log receives the tool's stdout and stderr.
	Log io.Writer
}

// VCFEvalResult holds the paths written by vcfeval.
type VCFEvalResult struct {
	TPBaseline string // true positives as they appear in the baseline
	TP         string // true positives as they appear in the calls
	FN         string
	FP         string
}

// BuildCommand returns an exec.Cmd built from the parameters in e.
func (e VCFEval) BuildCommand() (*exec.Cmd, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	return tools.Command(context.Background(), e)
}

func (e VCFEval) validate() error {
	if e.Jar == "" || e.Output == "" || e.Baseline == "" || e.Template == "" {
		return tools.ErrMissingRequired
	}
	if len(e.Calls) != 1 {
		return fmt.Errorf("vcfeval takes exactly one calls VCF, got %d", len(e.Calls))
	}
	return nil
}

// Run runs vcfeval, replacing any previous output directory, and returns
// its result VCFs.
func (e VCFEval) Run(ctx context.Context, logger *zap.Logger) (*VCFEvalResult, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(e.Output); err == nil {
		logger.Warn("vcfeval output exists, removing", zap.String("path", e.Output))
		if err := os.RemoveAll(e.Output); err != nil {
			return nil, fmt.Errorf("remove %s: %w", e.Output, err)
		}
	}

	cmd, err := tools.Command(ctx, e)
	if err != nil {
		return nil, err
	}
	cmd.Stdout = e.Log
	cmd.Stderr = e.Log

	logger.Info("running RTG vcfeval", zap.Strings("args", cmd.Args))
	if err := tools.Run(cmd); err != nil {
		return nil, err
	}

	res := &VCFEvalResult{
		TPBaseline: filepath.Join(e.Output, "tp-baseline.vcf.gz"),
		TP:         filepath.Join(e.Output, "tp.vcf.gz"),
		FN:         filepath.Join(e.Output, "fn.vcf.gz"),
		FP:         filepath.Join(e.Output, "fp.vcf.gz"),
	}
	if err := requireFiles("vcfeval", res.TPBaseline, res.TP, res.FN, res.FP); err != nil {
		return nil, err
	}
	return res, nil
}

// RTGFormat defines parameters for RTG format, which builds the SDF
// reference vcfeval reads.
type RTGFormat struct {
	// Usage: java -jar RTG.jar format -o SDF FASTA
	Java string `buildarg:"{{if .}}{{.}}{{else}}java{{end}}"` // java
	Jar  string `buildarg:"-jar{{split}}{{.}}{{split}}format"`

	Output string `buildarg:"-o{{split}}{{.}}"` // -o: SDF directory
	Input  string `buildarg:"{{.}}"`            // FASTA

	// Log receives the tool's stdout and stderr.
	Log io.Writer
}

// SDFPath returns the SDF directory generated for a reference FASTA.
func SDFPath(reference string) string {
	return reference + ".sdf"
}

// BuildCommand returns an exec.Cmd built from the parameters in f.
func (f RTGFormat) BuildCommand() (*exec.Cmd, error) {
	if f.Jar == "" || f.Output == "" || f.Input == "" {
		return nil, tools.ErrMissingRequired
	}
	return tools.Command(context.Background(), f)
}

// Run builds the SDF unless it already exists and returns its path.
func (f RTGFormat) Run(ctx context.Context, logger *zap.Logger) (string, error) {
	if f.Jar == "" || f.Output == "" || f.Input == "" {
		return "", tools.ErrMissingRequired
	}
	if _, err := os.Stat(f.Output); err == nil {
		logger.Info("SDF exists, remove it to regenerate", zap.String("path", f.Output))
		return f.Output, nil
	}

	cmd, err := tools.Command(ctx, f)
	if err != nil {
		return "", err
	}
	cmd.Stdout = f.Log
	cmd.Stderr = f.Log

	logger.Info("generating SDF reference", zap.String("reference", f.Input), zap.String("sdf", f.Output))
	if err := tools.Run(cmd); err != nil {
		return "", err
	}
	if err := requireFiles("RTG format", f.Output); err != nil {
		return "", err
	}
	return f.Output, nil
}

func requireFiles(tool string, paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s by %s", ErrMissingResult, p, tool)
		}
	}
	return nil
}
