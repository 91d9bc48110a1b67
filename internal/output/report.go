package output

import (
	"fmt"
	"io"
	"math"
	"time"

	json "github.com/goccy/go-json"
)

// Report is the JSON summary of one reconciled comparison.
type Report struct {
	RunID     string        `json:"run_id,omitempty"`
	Label     string        `json:"label,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Files     ReportFiles   `json:"files"`
	Types     []ReportEntry `json:"types"`
	Total     ReportEntry   `json:"total"`
}

// ReportFiles lists the reconciled VCFs.
type ReportFiles struct {
	TP string `json:"tp"`
	FN string `json:"fn"`
	FP string `json:"fp"`
}

// ReportEntry is one variant type's counts and rates. Undefined rates are null.
type ReportEntry struct {
	Counts
	T         int      `json:"t"`
	Recall    *float64 `json:"recall"`
	Precision *float64 `json:"precision"`
	F1        *float64 `json:"f1"`
}

func newReportEntry(c Counts) ReportEntry {
	return ReportEntry{
		Counts:    c,
		T:         c.T(),
		Recall:    rate(c.Recall()),
		Precision: rate(c.Precision()),
		F1:        rate(c.F1()),
	}
}

func rate(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// NewReport builds a report from per-type counts.
func NewReport(runID, label string, files ReportFiles, counts []Counts) *Report {
	r := &Report{
		RunID:     runID,
		Label:     label,
		CreatedAt: time.Now().UTC(),
		Files:     files,
		Total:     newReportEntry(Total(counts)),
	}
	for _, c := range Sorted(counts) {
		r.Types = append(r.Types, newReportEntry(c))
	}
	return r
}

// WriteJSONReport writes r as indented JSON.
func WriteJSONReport(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
