package merge

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/varsim-tools/internal/tools"
	"github.com/inodb/varsim-tools/internal/vcf"
)

const header = "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

func writeVCF(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	content := header
	for _, l := range lines {
		content += l + "\n"
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func rec(chrom string, pos int, id, ref, alt string) string {
	return strings.Join([]string{chrom, strconv.Itoa(pos), id, ref, alt, ".", "PASS", "."}, "\t")
}

// readData returns the data lines of a plain or gzipped VCF.
func readData(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		require.NoError(t, err)
		r = zr
	}
	b, err := io.ReadAll(r)
	require.NoError(t, err)

	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func countAt(lines []string, chrom string, pos int) int {
	prefix := chrom + "\t" + strconv.Itoa(pos) + "\t"
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func assertOrdered(t *testing.T, lines []string) {
	t.Helper()
	last := map[string]int{}
	done := map[string]bool{}
	prevChrom := ""
	for _, l := range lines {
		key, err := vcf.ParseKey(l)
		require.NoError(t, err)
		pos, err := strconv.Atoi(key.Pos)
		require.NoError(t, err)
		if key.Chrom != prevChrom {
			require.False(t, done[key.Chrom], "contig %s revisited", key.Chrom)
			if prevChrom != "" {
				done[prevChrom] = true
			}
			prevChrom = key.Chrom
		} else {
			require.GreaterOrEqual(t, pos, last[key.Chrom], "position decreased at %s", l)
		}
		last[key.Chrom] = pos
	}
}

type fakeIndexer struct {
	indexed []string
	err     error
}

func (f *fakeIndexer) Index(ctx context.Context, gzPath string) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, gzPath)
	return os.WriteFile(f.IndexPath(gzPath), []byte("TBI\x01"), 0o644)
}

func (f *fakeIndexer) IndexPath(gzPath string) string {
	return gzPath + ".tbi"
}

// concatSorter breaks the sorter post-condition by copying inputs verbatim.
type concatSorter struct{}

func (concatSorter) Sort(ctx context.Context, w io.Writer, inputs []string) error {
	for _, in := range inputs {
		b, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func TestMerge_DuplicateModes(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, "fromA", "A", "T"), rec("chr1", 200, "a2", "G", "C"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 100, "fromB", "A", "T"), rec("chr1", 150, "b2", "C", "G"))

	tests := []struct {
		mode    DuplicateMode
		at100   int
		total   int
		firstID string
	}{
		{KeepAll, 2, 4, "fromA"},
		{KeepFirst, 1, 3, "fromA"},
		{KeepNone, 0, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			m := NewMerger(nil, nil, nil)
			out, err := m.Merge(context.Background(), filepath.Join(dir, tt.mode.String()+".vcf"), []string{a, b}, tt.mode, false)
			require.NoError(t, err)

			lines := readData(t, out)
			assert.Len(t, lines, tt.total)
			assert.Equal(t, tt.at100, countAt(lines, "chr1", 100))
			if tt.firstID != "" {
				assert.Equal(t, rec("chr1", 100, tt.firstID, "A", "T"), lines[0])
			}
			assertOrdered(t, lines)
		})
	}
}

func TestMerge_KeepFirstIsByteIdenticalToFirstInput(t *testing.T) {
	dir := t.TempDir()
	lineA := "chr1\t100\trsA\tA\tT\t60\tPASS\tDP=30;AF=0.5"
	a := writeVCF(t, dir, "a.vcf", lineA)
	b := writeVCF(t, dir, "b.vcf", "chr1\t100\trsB\tA\tT\t10\tLowQual\tDP=3")

	out, err := NewMerger(nil, nil, nil).Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepFirst, false)
	require.NoError(t, err)
	assert.Equal(t, []string{lineA}, readData(t, out))
}

func TestMerge_SamePositionDifferentAlleles(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 100, ".", "A", "G"), rec("chr1", 100, ".", "A", "T"))

	out, err := NewMerger(nil, nil, nil).Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepNone, false)
	require.NoError(t, err)
	assert.Equal(t, []string{rec("chr1", 100, ".", "A", "G")}, readData(t, out))
}

func TestMerge_InsufficientInput(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	m := NewMerger(nil, nil, nil)

	for _, inputs := range [][]string{nil, {a}} {
		_, err := m.Merge(context.Background(), filepath.Join(dir, "out.vcf"), inputs, KeepFirst, false)
		var ie *InsufficientInputError
		require.True(t, errors.As(err, &ie), "got %v", err)
		assert.Equal(t, len(inputs), ie.Count)
	}
	assert.NoFileExists(t, filepath.Join(dir, "out.vcf"))
}

func TestMerge_UnknownMode(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 100, ".", "A", "T"))

	_, err := NewMerger(nil, nil, nil).Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, DuplicateMode(7), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DuplicateMode(7)")
	assert.NoFileExists(t, filepath.Join(dir, "out.vcf"))

	assert.False(t, DuplicateMode(7).keep(1))
}

func TestMerge_UnionWithoutLoss(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"), rec("chr2", 5, ".", "C", "G"))
	c := writeVCF(t, dir, "c.vcf", rec("chr1", 50, ".", "G", "A"))
	d := writeVCF(t, dir, "d.vcf", rec("chr1", 75, ".", "T", "C"), rec("chr2", 1, ".", "A", "C"))

	m := NewMerger(nil, nil, nil)
	merged, err := m.MergeVCFs(context.Background(), filepath.Join(dir, "ac"), []string{a, c}, KeepAll, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ac.vcf"), merged)

	again, err := m.MergeVCFs(context.Background(), filepath.Join(dir, "acd"), []string{merged, d}, KeepAll, false)
	require.NoError(t, err)

	lines := readData(t, again)
	assert.ElementsMatch(t, []string{
		rec("chr1", 100, ".", "A", "T"),
		rec("chr2", 5, ".", "C", "G"),
		rec("chr1", 50, ".", "G", "A"),
		rec("chr1", 75, ".", "T", "C"),
		rec("chr2", 1, ".", "A", "C"),
	}, lines)
	assertOrdered(t, lines)
}

func TestMerge_HeadersPassThrough(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 100, ".", "A", "T"))

	out, err := NewMerger(nil, nil, nil).Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepNone, false)
	require.NoError(t, err)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, header, string(content))
}

func TestMerge_MalformedRecord(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", "chr1\t100\t.\tA")

	_, err := NewMerger(nil, nil, nil).Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepFirst, false)
	var me *vcf.MalformedRecordError
	require.True(t, errors.As(err, &me), "got %v", err)
	assert.NoFileExists(t, filepath.Join(dir, "out.vcf"))
}

func TestMerge_CompressAndIndex(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 90, ".", "C", "T"), rec("chr1", 100, ".", "A", "T"))

	idx := &fakeIndexer{}
	out, err := NewMerger(nil, tools.BGZFCompressor{}, idx).Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepFirst, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "out.vcf.gz"), out)
	assert.Len(t, idx.indexed, 1)
	assert.FileExists(t, out+".tbi")
	assert.NoFileExists(t, filepath.Join(dir, "out.vcf"))
	assert.Equal(t, []string{rec("chr1", 90, ".", "C", "T"), rec("chr1", 100, ".", "A", "T")}, readData(t, out))

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestMerge_IndexFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 200, ".", "A", "T"))

	idx := &fakeIndexer{err: &tools.ExternalToolError{Tool: "tabix", ExitCode: 1, Stderr: "not BGZF"}}
	_, err := NewMerger(nil, nil, idx).Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepAll, true)

	var te *tools.ExternalToolError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, "tabix", te.Tool)

	// No unindexed archive is left at the output path.
	assert.NoFileExists(t, filepath.Join(dir, "out.vcf.gz"))
	assert.NoFileExists(t, filepath.Join(dir, "out.vcf.gz.tbi"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestMerge_ExternalSorterFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 200, ".", "A", "T"))
	out := filepath.Join(dir, "out.vcf")
	require.NoError(t, os.WriteFile(out, []byte("previous\n"), 0o644))

	_, err := NewMerger(tools.ExternalSorter{Cmd: "false"}, nil, nil).Merge(context.Background(), out, []string{a, b}, KeepFirst, false)

	var te *tools.ExternalToolError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, 1, te.ExitCode)

	// The previous output is untouched.
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(content))
}

func TestMerge_SortViolationWarns(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"), rec("chr1", 200, ".", "G", "C"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 100, ".", "A", "T"))

	core, logs := observer.New(zapcore.WarnLevel)
	m := NewMerger(concatSorter{}, nil, nil)
	m.SetLogger(zap.New(core))

	_, err := m.Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepFirst, false)
	require.NoError(t, err)

	violations := logs.FilterMessage("sort order violation").All()
	require.NotEmpty(t, violations)
	assert.Equal(t, "chr1:100:A:T", violations[0].ContextMap()["key"])
	assert.Equal(t, 1, logs.FilterMessageSnippet("duplicates may have been missed").Len())
}

func TestMerge_SortViolationStrict(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"), rec("chr2", 5, ".", "G", "C"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 300, ".", "A", "T"))

	m := NewMerger(concatSorter{}, nil, nil)
	m.SetStrict(true)

	_, err := m.Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepNone, false)
	var se *SortOrderError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Contains(t, se.Reason, "chr1 is not contiguous")
	assert.NoFileExists(t, filepath.Join(dir, "out.vcf"))
}

func TestMerge_NonAdjacentDuplicateAtSamePosition(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 100, ".", "A", "G"), rec("chr1", 100, ".", "A", "T"))

	m := NewMerger(concatSorter{}, nil, nil)
	m.SetStrict(true)

	_, err := m.Merge(context.Background(), filepath.Join(dir, "out.vcf"), []string{a, b}, KeepFirst, false)
	var se *SortOrderError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, vcf.Key{Chrom: "chr1", Pos: "100", Ref: "A", Alt: "T"}, se.Key)
}

func TestMerge_Canceled(t *testing.T) {
	dir := t.TempDir()
	a := writeVCF(t, dir, "a.vcf", rec("chr1", 100, ".", "A", "T"))
	b := writeVCF(t, dir, "b.vcf", rec("chr1", 200, ".", "A", "T"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMerger(nil, nil, nil).Merge(ctx, filepath.Join(dir, "out.vcf"), []string{a, b}, KeepFirst, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseDuplicateMode(t *testing.T) {
	for _, m := range []DuplicateMode{KeepAll, KeepFirst, KeepNone} {
		got, err := ParseDuplicateMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseDuplicateMode("some_duplicate")
	assert.Error(t, err)
}
