package output

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/slices"
)

// StatsWriter writes the per-variant-type accuracy table.
type StatsWriter struct {
	w *bufio.Writer
}

// NewStatsWriter creates a new stats table writer.
func NewStatsWriter(w io.Writer) *StatsWriter {
	return &StatsWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (sw *StatsWriter) WriteHeader() error {
	_, err := fmt.Fprintf(sw.w, "%-15s\t%-12s\t%-12s\t%-12s\t%-5s\t%-5s\t%-5s\n",
		"VariantType", "Recall", "Precision", "F1", "TP", "T", "FP")
	return err
}

// Write writes one row.
func (sw *StatsWriter) Write(c Counts) error {
	_, err := fmt.Fprintf(sw.w, "%-15s\t%-12s\t%-12s\t%-12s\t%-5d\t%-5d\t%-5d\n",
		c.VariantType, formatRate(c.Recall()), formatRate(c.Precision()), formatRate(c.F1()),
		c.TP, c.T(), c.FP)
	return err
}

// WriteAll writes the header, one row per variant type in display order, and
// a total row.
func (sw *StatsWriter) WriteAll(counts []Counts) error {
	if err := sw.WriteHeader(); err != nil {
		return err
	}
	for _, c := range Sorted(counts) {
		if err := sw.Write(c); err != nil {
			return err
		}
	}
	if err := sw.Write(Total(counts)); err != nil {
		return err
	}
	return sw.Flush()
}

// Flush flushes any buffered data.
func (sw *StatsWriter) Flush() error {
	return sw.w.Flush()
}

// Sorted returns a copy of counts in display order.
func Sorted(counts []Counts) []Counts {
	out := slices.Clone(counts)
	slices.SortStableFunc(out, func(a, b Counts) int {
		if ra, rb := rank(a.VariantType), rank(b.VariantType); ra != rb {
			return ra - rb
		}
		switch {
		case a.VariantType < b.VariantType:
			return -1
		case a.VariantType > b.VariantType:
			return 1
		}
		return 0
	})
	return out
}

func formatRate(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return fmt.Sprintf("%.10f", v)
}
