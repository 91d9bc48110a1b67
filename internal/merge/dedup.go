package merge

import (
	"bufio"
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/vcf"
)

// maxOrderWarnings caps per-record warnings; later violations are only counted.
const maxOrderWarnings = 10

// deduper holds one pending record and the number of times its key has been
// seen in a row. A record is emitted or dropped once a different key arrives.
type deduper struct {
	mode   DuplicateMode
	w      *bufio.Writer
	strict bool
	logger *zap.Logger

	pending    *vcf.Record
	pendingPos int64
	posOK      bool
	count      int

	// keys already flushed at the pending record's position
	flushedAtPos map[vcf.Key]struct{}
	// contigs the stream has moved past
	doneContigs map[string]struct{}

	stats Stats
}

func newDeduper(mode DuplicateMode, w *bufio.Writer, strict bool, logger *zap.Logger) *deduper {
	return &deduper{
		mode:         mode,
		w:            w,
		strict:       strict,
		logger:       logger,
		flushedAtPos: make(map[vcf.Key]struct{}),
		doneContigs:  make(map[string]struct{}),
	}
}

func (d *deduper) add(rec *vcf.Record) error {
	d.stats.Records++

	if d.pending == nil {
		d.setPending(rec)
		return nil
	}

	if rec.Key == d.pending.Key {
		d.count++
		return nil
	}

	if err := d.checkOrder(rec); err != nil {
		return err
	}

	prev := d.pending
	if err := d.flush(); err != nil {
		return err
	}

	if rec.Key.SamePosition(prev.Key) {
		d.flushedAtPos[prev.Key] = struct{}{}
		if _, seen := d.flushedAtPos[rec.Key]; seen {
			if err := d.violation(rec, "duplicate key is not adjacent to its first occurrence"); err != nil {
				return err
			}
		}
	} else {
		clear(d.flushedAtPos)
	}

	d.setPending(rec)
	return nil
}

func (d *deduper) setPending(rec *vcf.Record) {
	d.pending = rec
	d.count = 1
	pos, err := strconv.ParseInt(rec.Key.Pos, 10, 64)
	d.pendingPos, d.posOK = pos, err == nil
}

// checkOrder verifies rec may follow the pending record: positions do not
// decrease within a contig and a contig is never revisited.
func (d *deduper) checkOrder(rec *vcf.Record) error {
	prev := d.pending
	if rec.Key.Chrom != prev.Key.Chrom {
		d.doneContigs[prev.Key.Chrom] = struct{}{}
		if _, done := d.doneContigs[rec.Key.Chrom]; done {
			return d.violation(rec, "contig "+rec.Key.Chrom+" is not contiguous")
		}
		return nil
	}

	pos, err := strconv.ParseInt(rec.Key.Pos, 10, 64)
	if err == nil && d.posOK && pos < d.pendingPos {
		return d.violation(rec, "position decreases from "+prev.Key.Pos)
	}
	return nil
}

func (d *deduper) violation(rec *vcf.Record, reason string) error {
	d.stats.OrderViolations++
	if d.strict {
		return &SortOrderError{Line: rec.LineNumber, Key: rec.Key, Reason: reason}
	}
	if d.stats.OrderViolations <= maxOrderWarnings {
		d.logger.Warn("sort order violation",
			zap.Int("line", rec.LineNumber),
			zap.Stringer("key", rec.Key),
			zap.String("reason", reason))
	}
	return nil
}

// flush emits or drops the pending record according to the mode.
func (d *deduper) flush() error {
	if d.pending == nil {
		return nil
	}

	keep := d.mode.keep(d.count)
	if d.count > 1 {
		d.stats.DuplicateKeys++
		discarded := d.count
		if keep {
			discarded--
		}
		d.stats.Discarded += discarded
		d.logger.Debug("discarding duplicate records",
			zap.Stringer("key", d.pending.Key),
			zap.Int("count", d.count),
			zap.Int("discarded", discarded))
	}

	if keep {
		d.stats.Written++
		if err := writeLine(d.w, d.pending.Line); err != nil {
			return err
		}
	}
	d.pending = nil
	return nil
}

func (d *deduper) finish() error {
	return d.flush()
}
