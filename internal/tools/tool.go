// Package tools wraps the collaborators a VCF merge depends on: a coordinate
// sorter, a block compressor and a positional indexer. Each has an external
// implementation driven through a command line and, where practical, an
// in-process one.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/biogo/external"
)

// ErrMissingRequired is returned when a command is built without its
// required arguments.
var ErrMissingRequired = errors.New("tools: missing required argument")

// ExternalToolError reports a collaborator process that could not be started
// or exited non-zero.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int // -1 if the process did not run to completion
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	var msg string
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	} else {
		msg = fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// Command builds an exec.Cmd bound to ctx from the buildarg tags of cb.
func Command(ctx context.Context, cb external.CommandBuilder, fm ...template.FuncMap) (*exec.Cmd, error) {
	cl, err := external.Build(cb, fm...)
	if err != nil {
		return nil, fmt.Errorf("build command line: %w", err)
	}
	if len(cl) == 0 {
		return nil, ErrMissingRequired
	}
	return exec.CommandContext(ctx, cl[0], cl[1:]...), nil
}

// Run runs cmd to completion. Stderr is captured for the returned error and
// also copied to cmd.Stderr when one is set.
func Run(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	if cmd.Stderr != nil {
		cmd.Stderr = io.MultiWriter(cmd.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExternalToolError{
		Tool:     filepath.Base(cmd.Args[0]),
		Args:     cmd.Args[1:],
		ExitCode: code,
		Stderr:   stderr.String(),
		Err:      err,
	}
}
