package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/varsim-tools/internal/output"
	"github.com/inodb/varsim-tools/internal/vcf"
)

// Category is the reconciled class a call belongs to.
type Category string

const (
	CategoryTP Category = "tp"
	CategoryFN Category = "fn"
	CategoryFP Category = "fp"
)

// IngestVCF appends the records of a VCF to a run under category.
// It returns the number of calls stored.
func (s *Store) IngestVCF(runID string, category Category, path string) (int, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	n, err := s.Ingest(runID, category, p)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Ingest appends the variants read from p to a run under category using the
// Appender API. Multi-allelic records are split so each ALT is stored and
// typed on its own. Repeated (chrom, pos, ref, alt) keys are stored once.
func (s *Store) Ingest(runID string, category Category, p vcf.VariantParser) (int, error) {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "calls")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	seen := make(map[vcf.Key]bool)
	n := 0
	for {
		rec, err := p.Next()
		if err != nil {
			return n, err
		}
		if rec == nil {
			break
		}
		for _, v := range vcf.SplitMultiAllelic(rec) {
			k := v.Key()
			if seen[k] {
				continue
			}
			seen[k] = true

			if err := appender.AppendRow(runID, string(category), v.Chrom, v.Pos, v.Ref, v.Alt, string(v.Type())); err != nil {
				return n, fmt.Errorf("append call at line %d: %w", p.LineNumber(), err)
			}
			n++
		}
	}

	if err := appender.Flush(); err != nil {
		return n, fmt.Errorf("flush calls: %w", err)
	}
	return n, nil
}

// Counts returns the TP, FN and FP counts of a run per variant type.
func (s *Store) Counts(runID string) ([]output.Counts, error) {
	rows, err := s.db.Query(`SELECT variant_type,
		count(*) FILTER (WHERE category = 'tp'),
		count(*) FILTER (WHERE category = 'fn'),
		count(*) FILTER (WHERE category = 'fp')
		FROM calls
		WHERE run_id = ?
		GROUP BY variant_type
		ORDER BY variant_type`, runID)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var counts []output.Counts
	for rows.Next() {
		var (
			c          output.Counts
			tp, fn, fp int64
		)
		if err := rows.Scan(&c.VariantType, &tp, &fn, &fp); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		c.TP, c.FN, c.FP = int(tp), int(fn), int(fp)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// LookupCall returns the categories a variant was assigned in a run.
func (s *Store) LookupCall(runID string, key vcf.Key) ([]Category, error) {
	pos, err := strconv.ParseInt(key.Pos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid position %q: %w", key.Pos, err)
	}
	rows, err := s.db.Query(`SELECT category FROM calls
		WHERE run_id = ? AND chrom = ? AND pos = ? AND ref = ? AND alt = ?
		ORDER BY category`,
		runID, key.Chrom, pos, key.Ref, key.Alt)
	if err != nil {
		return nil, fmt.Errorf("query call: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		cats = append(cats, Category(c))
	}
	return cats, rows.Err()
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(runID string) error {
	for _, table := range []string{"calls", "run_inputs"} {
		if _, err := s.db.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	_, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	return err
}
