package tools

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/inodb/varsim-tools/internal/vcf"
)

// Sorter merges VCF inputs into one stream. Header lines come first. Data
// lines for one contig are contiguous and in non-decreasing position order.
type Sorter interface {
	Sort(ctx context.Context, w io.Writer, inputs []string) error
}

// InProcessSorter merges and sorts inputs in memory.
//
// Header output is the union of the "##" meta lines in first-seen order
// followed by the first "#CHROM" line. Data lines are ordered by contig rank,
// numeric position, REF and ALT; the sort is stable so records with equal
// keys keep their input order and end up adjacent.
type InProcessSorter struct {
	// ContigOrder ranks contigs ahead of those first seen in the inputs.
	ContigOrder []string
}

type sortLine struct {
	rank     int
	pos      int64
	ref, alt string
	line     string
}

func (s InProcessSorter) Sort(ctx context.Context, w io.Writer, inputs []string) error {
	rank := make(map[string]int, len(s.ContigOrder))
	for _, c := range s.ContigOrder {
		if _, ok := rank[c]; !ok {
			rank[c] = len(rank)
		}
	}

	var (
		meta     []string
		seenMeta = make(map[string]bool)
		columns  string
		lines    []sortLine
	)

	for _, path := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, err := vcf.NewRecordReader(path)
		if err != nil {
			return err
		}

		for {
			rec, err := r.Next()
			if err != nil {
				r.Close()
				return fmt.Errorf("%s: %w", path, err)
			}
			if rec == nil {
				break
			}

			if rec.Header {
				if strings.HasPrefix(rec.Line, "##") {
					if !seenMeta[rec.Line] {
						seenMeta[rec.Line] = true
						meta = append(meta, rec.Line)
					}
				} else if columns == "" {
					columns = rec.Line
				}
				continue
			}

			pos, err := strconv.ParseInt(rec.Key.Pos, 10, 64)
			if err != nil {
				r.Close()
				return fmt.Errorf("%s: %w", path, &vcf.ParseError{
					Line:    rec.LineNumber,
					Message: fmt.Sprintf("invalid position: %s", rec.Key.Pos),
				})
			}
			cr, ok := rank[rec.Key.Chrom]
			if !ok {
				cr = len(rank)
				rank[rec.Key.Chrom] = cr
			}
			lines = append(lines, sortLine{
				rank: cr,
				pos:  pos,
				ref:  rec.Key.Ref,
				alt:  rec.Key.Alt,
				line: rec.Line,
			})
		}
		r.Close()
	}

	slices.SortStableFunc(lines, compareSortLines)

	bw := bufio.NewWriter(w)
	for _, line := range meta {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	if columns != "" {
		bw.WriteString(columns)
		bw.WriteByte('\n')
	}
	for _, l := range lines {
		bw.WriteString(l.line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func compareSortLines(a, b sortLine) int {
	switch {
	case a.rank != b.rank:
		return a.rank - b.rank
	case a.pos < b.pos:
		return -1
	case a.pos > b.pos:
		return 1
	case a.ref != b.ref:
		return strings.Compare(a.ref, b.ref)
	}
	return strings.Compare(a.alt, b.alt)
}

// ExternalSorter runs a sort/merge script that takes the input VCFs as
// arguments and writes the merged stream to stdout, e.g.
//
//	sort_vcf.sh a.vcf b.vcf > merged.vcf
type ExternalSorter struct {
	Cmd    string   `buildarg:"{{if .}}{{.}}{{else}}sort_vcf.sh{{end}}"`                     // sort_vcf.sh
	Inputs []string `buildarg:"{{range $i, $v := .}}{{if $i}}{{split}}{{end}}{{$v}}{{end}}"` // VCF...

	// Log receives the tool's stderr in addition to error reporting.
	Log io.Writer
}

// BuildCommand returns an exec.Cmd built from the parameters in s.
func (s ExternalSorter) BuildCommand() (*exec.Cmd, error) {
	if len(s.Inputs) == 0 {
		return nil, ErrMissingRequired
	}
	return Command(context.Background(), s)
}

func (s ExternalSorter) Sort(ctx context.Context, w io.Writer, inputs []string) error {
	s.Inputs = inputs
	if len(s.Inputs) == 0 {
		return ErrMissingRequired
	}
	cmd, err := Command(ctx, s)
	if err != nil {
		return err
	}
	cmd.Stdout = w
	cmd.Stderr = s.Log
	return Run(cmd)
}
