// Package merge combines VCF files into one position-sorted VCF, optionally
// removing records with duplicate variant keys, then block compressing and
// indexing the result.
package merge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/tools"
	"github.com/inodb/varsim-tools/internal/vcf"
)

// Merger merges VCF files through a sorter, a streaming duplicate filter
// and an optional compress/index step.
//
// Duplicate detection only compares adjacent records of the sorted stream,
// so it relies on the sorter making records with equal keys adjacent.
// Violations of the sorter's post-condition are logged; in strict mode they
// abort the merge with a SortOrderError.
type Merger struct {
	sorter     tools.Sorter
	compressor tools.Compressor
	indexer    tools.Indexer
	strict     bool
	logger     *zap.Logger
}

// NewMerger creates a merger. A nil sorter or compressor selects the
// in-process implementation. A nil indexer leaves compressed output
// unindexed.
func NewMerger(sorter tools.Sorter, compressor tools.Compressor, indexer tools.Indexer) *Merger {
	if sorter == nil {
		sorter = tools.InProcessSorter{}
	}
	if compressor == nil {
		compressor = tools.BGZFCompressor{}
	}
	return &Merger{
		sorter:     sorter,
		compressor: compressor,
		indexer:    indexer,
		logger:     zap.NewNop(),
	}
}

// SetStrict configures whether sort order violations are fatal.
func (m *Merger) SetStrict(strict bool) {
	m.strict = strict
}

// SetLogger sets the logger for merge progress and data-quality warnings.
func (m *Merger) SetLogger(l *zap.Logger) {
	m.logger = l
}

// MergeVCFs merges inputs into outputPrefix.vcf, or outputPrefix.vcf.gz when
// compress is set, and returns the path written.
func (m *Merger) MergeVCFs(ctx context.Context, outputPrefix string, inputs []string, mode DuplicateMode, compress bool) (string, error) {
	return m.Merge(ctx, outputPrefix+".vcf", inputs, mode, compress)
}

// Merge sorts and merges inputs into outputPath, applying mode to records
// with equal variant keys. With compress set, outputPath is replaced by a
// BGZF file at outputPath.gz with an index alongside, and that path is
// returned.
//
// Every stage writes to a temporary file next to outputPath that is renamed
// into place only once the stage succeeds.
func (m *Merger) Merge(ctx context.Context, outputPath string, inputs []string, mode DuplicateMode, compress bool) (string, error) {
	if len(inputs) < 2 {
		return "", &InsufficientInputError{Count: len(inputs)}
	}
	if !mode.valid() {
		return "", fmt.Errorf("unknown duplicate mode %v", mode)
	}

	log := m.logger.With(zap.String("output", outputPath), zap.Stringer("mode", mode))
	log.Debug("merging vcfs", zap.Strings("inputs", inputs))

	sorted, err := createTemp(outputPath, "sort")
	if err != nil {
		return "", err
	}
	defer os.Remove(sorted.Name())

	err = m.sorter.Sort(ctx, sorted, inputs)
	if cerr := sorted.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("sort %d inputs: %w", len(inputs), err)
	}

	final := sorted.Name()
	if mode != KeepAll {
		deduped, err := createTemp(outputPath, "dedup")
		if err != nil {
			return "", err
		}
		defer os.Remove(deduped.Name())

		stats, err := m.dedup(ctx, sorted.Name(), deduped, mode)
		if cerr := deduped.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			return "", fmt.Errorf("remove duplicates: %w", err)
		}

		log.Info("merged vcf",
			zap.Int("records", stats.Records),
			zap.Int("written", stats.Written),
			zap.Int("discarded", stats.Discarded),
			zap.Int("duplicate_keys", stats.DuplicateKeys))
		if stats.OrderViolations > 0 {
			log.Warn("sorted stream violated ordering, duplicates may have been missed",
				zap.Int("violations", stats.OrderViolations))
		}
		final = deduped.Name()
	}

	if err := promote(final, outputPath); err != nil {
		return "", err
	}

	if !compress {
		return outputPath, nil
	}
	return m.compress(ctx, outputPath, log)
}

// Compress replaces the VCF at path with a BGZF copy at path.gz, indexes it
// and returns the new path.
func (m *Merger) Compress(ctx context.Context, path string) (string, error) {
	return m.compress(ctx, path, m.logger.With(zap.String("output", path)))
}

func (m *Merger) compress(ctx context.Context, path string, log *zap.Logger) (string, error) {
	gzPath := path + ".gz"

	tmp, err := createTemp(gzPath, "bgzf")
	if err != nil {
		return "", err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := m.compressor.Compress(ctx, path, tmp.Name()); err != nil {
		return "", fmt.Errorf("compress %s: %w", path, err)
	}
	if err := m.indexAndPromote(ctx, tmp.Name(), gzPath, log); err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil {
		log.Warn("could not remove uncompressed output", zap.Error(err))
	}
	return gzPath, nil
}

// indexAndPromote indexes the BGZF temp file tmp, then moves it and its index
// to gzPath. Nothing is written at gzPath unless both steps succeed.
func (m *Merger) indexAndPromote(ctx context.Context, tmp, gzPath string, log *zap.Logger) error {
	if m.indexer == nil {
		log.Warn("no indexer configured, compressed output is not indexed")
		return promote(tmp, gzPath)
	}

	tmpIndex := m.indexer.IndexPath(tmp)
	defer os.Remove(tmpIndex)

	if err := m.indexer.Index(ctx, tmp); err != nil {
		return fmt.Errorf("index %s: %w", gzPath, err)
	}
	if err := promote(tmp, gzPath); err != nil {
		return err
	}
	if err := promote(tmpIndex, m.indexer.IndexPath(gzPath)); err != nil {
		os.Remove(gzPath)
		return err
	}
	return nil
}

// Stats summarizes a duplicate filtering pass.
type Stats struct {
	Records         int // data records read
	Written         int // data records written
	Discarded       int // data records dropped as duplicates
	DuplicateKeys   int // keys seen more than once in a row
	OrderViolations int // sort post-condition violations
}

const cancelCheckInterval = 4096

// dedup streams the sorted VCF at src to w, applying mode to runs of records
// with equal keys. Header lines are copied through unchanged.
func (m *Merger) dedup(ctx context.Context, src string, w io.Writer, mode DuplicateMode) (Stats, error) {
	r, err := vcf.NewRecordReader(src)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()

	bw := bufio.NewWriter(w)
	d := newDeduper(mode, bw, m.strict, m.logger)

	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return d.stats, err
			}
		}

		rec, err := r.Next()
		if err != nil {
			return d.stats, err
		}
		if rec == nil {
			break
		}

		if rec.Header {
			if err := writeLine(bw, rec.Line); err != nil {
				return d.stats, err
			}
			continue
		}
		if err := d.add(rec); err != nil {
			return d.stats, err
		}
	}

	if err := d.finish(); err != nil {
		return d.stats, err
	}
	return d.stats, bw.Flush()
}

// createTemp creates a uniquely named file in the directory of path.
func createTemp(path, stage string) (*os.File, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"."+stage+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return f, nil
}

// promote moves a finished temp file to its final path.
func promote(tmp, path string) error {
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
