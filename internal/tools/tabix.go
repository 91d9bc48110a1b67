package tools

import (
	"context"
	"io"
	"os/exec"
)

// Indexer builds or refreshes the positional index of a block-compressed
// file, overwriting any existing index. IndexPath names the file Index writes.
type Indexer interface {
	Index(ctx context.Context, gzPath string) error
	IndexPath(gzPath string) string
}

// Tabix defines parameters for the htslib tabix indexer.
type Tabix struct {
	// Usage: tabix [OPTIONS] FILE
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}tabix{{end}}"` // tabix

	Force  bool   `buildarg:"{{if .}}-f{{end}}"`               // -f: overwrite existing index
	Preset string `buildarg:"{{if .}}-p{{split}}{{.}}{{end}}"` // -p: gff, bed, sam, vcf
	CSI    bool   `buildarg:"{{if .}}-C{{end}}"`               // -C: CSI instead of TBI index
	Input  string `buildarg:"{{.}}"`                           // FILE

	// Log receives the tool's stderr in addition to error reporting.
	Log io.Writer
}

// BuildCommand returns an exec.Cmd built from the parameters in t.
func (t Tabix) BuildCommand() (*exec.Cmd, error) {
	if t.Input == "" {
		return nil, ErrMissingRequired
	}
	return Command(context.Background(), t)
}

// Index runs tabix -f -p vcf on gzPath, writing gzPath.tbi or gzPath.csi.
func (t Tabix) Index(ctx context.Context, gzPath string) error {
	t.Input = gzPath
	t.Force = true
	if t.Preset == "" {
		t.Preset = "vcf"
	}
	cmd, err := Command(ctx, t)
	if err != nil {
		return err
	}
	cmd.Stderr = t.Log
	return Run(cmd)
}

// IndexPath returns the index file written for gzPath.
func (t Tabix) IndexPath(gzPath string) string {
	if t.CSI {
		return gzPath + ".csi"
	}
	return gzPath + ".tbi"
}
