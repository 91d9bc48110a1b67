package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/biogo/hts/bgzf"
)

// Compressor block-compresses src into dst. dst must be readable by a
// positional indexer once Compress returns.
type Compressor interface {
	Compress(ctx context.Context, src, dst string) error
}

// BGZFCompressor writes BGZF in process.
type BGZFCompressor struct {
	// Workers is the number of concurrent block compressors.
	// If zero, runtime.GOMAXPROCS(0) is used.
	Workers int
}

func (c BGZFCompressor) Compress(ctx context.Context, src, dst string) error {
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	bw := bgzf.NewWriter(out, workers)
	_, err = io.Copy(bw, &contextReader{ctx: ctx, r: in})
	if cerr := bw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("bgzf compress %s: %w", src, err)
	}
	return nil
}

// contextReader stops a copy once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Bgzip defines parameters for the htslib bgzip compressor.
type Bgzip struct {
	// Usage: bgzip [OPTIONS] [FILE]
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}bgzip{{end}}"` // bgzip

	Threads  int    `buildarg:"{{if .}}-@{{split}}{{.}}{{end}}"` // -@: number of compression threads
	ToStdout bool   `buildarg:"{{if .}}-c{{end}}"`               // -c: write to stdout, keep the input
	Input    string `buildarg:"{{.}}"`                           // FILE

	// Log receives the tool's stderr in addition to error reporting.
	Log io.Writer
}

// BuildCommand returns an exec.Cmd built from the parameters in b.
func (b Bgzip) BuildCommand() (*exec.Cmd, error) {
	if b.Input == "" {
		return nil, ErrMissingRequired
	}
	return Command(context.Background(), b)
}

// Compress runs bgzip -c on src with its output redirected to dst.
func (b Bgzip) Compress(ctx context.Context, src, dst string) error {
	b.Input = src
	b.ToStdout = true
	cmd, err := Command(ctx, b)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	cmd.Stdout = out
	cmd.Stderr = b.Log

	err = Run(cmd)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", dst, cerr)
	}
	return err
}
