package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/biogo/biogo/io/seqio/fai"
	"golang.org/x/exp/slices"
)

// ReadContigOrder returns contig names in reference order from a FASTA index.
// path may name the .fai file or the FASTA it indexes.
func ReadContigOrder(path string) ([]string, error) {
	if !strings.HasSuffix(path, ".fai") {
		path += ".fai"
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta index: %w", err)
	}
	defer f.Close()

	idx, err := fai.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read fasta index %s: %w", path, err)
	}

	recs := make([]fai.Record, 0, len(idx))
	for _, r := range idx {
		recs = append(recs, r)
	}
	slices.SortFunc(recs, func(a, b fai.Record) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names, nil
}
