package vcf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Key is the identity of a variant: two records are the same variant iff
// their keys are equal. Fields are compared as raw text, with no allele
// normalization.
type Key struct {
	Chrom string
	Pos   string
	Ref   string
	Alt   string
}

func (k Key) String() string {
	return k.Chrom + ":" + k.Pos + ":" + k.Ref + ":" + k.Alt
}

// SamePosition reports whether k and o share chromosome and position.
func (k Key) SamePosition(o Key) bool {
	return k.Chrom == o.Chrom && k.Pos == o.Pos
}

// IsHeader reports whether line is a VCF header line.
func IsHeader(line string) bool {
	return strings.HasPrefix(line, "#")
}

// ParseKey extracts the CHROM, POS, REF and ALT columns of a data line.
// Columns are split on any whitespace.
func ParseKey(line string) (Key, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Key{}, &MalformedRecordError{Fields: len(fields), Text: line}
	}
	return Key{Chrom: fields[0], Pos: fields[1], Ref: fields[3], Alt: fields[4]}, nil
}

// ParseKeyString parses the chrom:pos:ref:alt form produced by Key.String.
// The chromosome may itself contain colons.
func ParseKeyString(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return Key{}, fmt.Errorf("invalid variant %q: want chrom:pos:ref:alt", s)
	}
	n := len(parts)
	k := Key{Chrom: strings.Join(parts[:n-3], ":"), Pos: parts[n-3], Ref: parts[n-2], Alt: parts[n-1]}
	if k.Chrom == "" || k.Ref == "" || k.Alt == "" {
		return Key{}, fmt.Errorf("invalid variant %q: want chrom:pos:ref:alt", s)
	}
	if _, err := strconv.ParseInt(k.Pos, 10, 64); err != nil {
		return Key{}, fmt.Errorf("invalid variant %q: position %q is not a number", s, k.Pos)
	}
	return k, nil
}

// Record is one line of a VCF file. Key is only set for data lines.
type Record struct {
	Line       string
	Key        Key
	LineNumber int
	Header     bool
}

// RecordReader reads VCF lines as opaque text, exposing only the variant key
// of data lines.
type RecordReader struct {
	src        *source
	lineNumber int
}

// NewRecordReader opens path for reading. Plain and gzip/BGZF compressed
// files are supported; "-" reads stdin.
func NewRecordReader(path string) (*RecordReader, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	return &RecordReader{src: src}, nil
}

// Next returns the next header or data line, skipping blank lines.
// Returns nil, nil when there are no more lines.
func (r *RecordReader) Next() (*Record, error) {
	for {
		line, err := r.src.readLine()
		if err != nil {
			if isEOF(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("read vcf line: %w", err)
		}
		r.lineNumber++

		if line == "" {
			continue
		}
		if IsHeader(line) {
			return &Record{Line: line, LineNumber: r.lineNumber, Header: true}, nil
		}

		key, err := ParseKey(line)
		if err != nil {
			if me, ok := err.(*MalformedRecordError); ok {
				me.Line = r.lineNumber
			}
			return nil, err
		}
		return &Record{Line: line, Key: key, LineNumber: r.lineNumber}, nil
	}
}

// LineNumber returns the current line number being processed.
func (r *RecordReader) LineNumber() int {
	return r.lineNumber
}

// Close closes the underlying file.
func (r *RecordReader) Close() error {
	return r.src.close()
}

// cancelCheckInterval is how many records are read between context checks.
const cancelCheckInterval = 4096

// ReadKeys returns the set of variant keys in the file at path.
func ReadKeys(ctx context.Context, path string) (map[Key]struct{}, error) {
	r, err := NewRecordReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	keys := make(map[Key]struct{})
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if rec == nil {
			return keys, nil
		}
		if !rec.Header {
			keys[rec.Key] = struct{}{}
		}
	}
}

// MalformedRecordError reports a data line with too few columns to carry a
// variant key.
type MalformedRecordError struct {
	Line   int
	Fields int
	Text   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed vcf record at line %d: expected at least 5 columns, found %d", e.Line, e.Fields)
}

func formatPos(pos int64) string {
	return strconv.FormatInt(pos, 10)
}
