package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/varsim-tools/internal/output"
	"github.com/inodb/varsim-tools/internal/vcf"
)

const header = "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeVCF(t *testing.T, name string, lines ...string) string {
	t.Helper()
	content := header
	for _, l := range lines {
		content += l + "\n"
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.CreateRun("first")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening keeps the schema and the data.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "first", runs[0].Label)
}

func TestRuns(t *testing.T) {
	s := openInMemory(t)

	_, err := s.LatestRun()
	assert.ErrorIs(t, err, ErrNoRuns)

	first, err := s.CreateRun("first")
	require.NoError(t, err)
	second, err := s.CreateRun("second")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.WithinDuration(t, time.Now(), runs[0].CreatedAt, time.Minute)

	latest, err := s.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	found, err := s.FindRun(first.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = s.FindRun("nope")
	assert.Error(t, err)
}

func TestIngestAndCounts(t *testing.T) {
	s := openInMemory(t)
	run, err := s.CreateRun("hg002")
	require.NoError(t, err)

	tp := writeVCF(t, "tp.vcf",
		"1\t100\t.\tA\tC\t.\tPASS\t.",
		"1\t200\t.\tA\tAT\t.\tPASS\t.",
		"1\t300\t.\tG\tT\t.\tPASS\t.",
		"1\t300\t.\tG\tT\t.\tPASS\t.", // stored once
	)
	fn := writeVCF(t, "fn.vcf",
		"2\t10\t.\tCA\tC\t.\tPASS\t.",
		"2\t20\t.\tT\tG\t.\tPASS\t.",
	)
	fp := writeVCF(t, "fp.vcf",
		"3\t5\t.\tAC\tGT\t.\tPASS\t.",
	)

	for cat, path := range map[Category]string{CategoryTP: tp, CategoryFN: fn, CategoryFP: fp} {
		_, err := s.IngestVCF(run.ID, cat, path)
		require.NoError(t, err)
	}

	counts, err := s.Counts(run.ID)
	require.NoError(t, err)

	byType := make(map[string]output.Counts)
	for _, c := range counts {
		byType[c.VariantType] = c
	}
	assert.Equal(t, output.Counts{VariantType: "SNP", TP: 2, FN: 1}, byType["SNP"])
	assert.Equal(t, output.Counts{VariantType: "Insertion", TP: 1}, byType["Insertion"])
	assert.Equal(t, output.Counts{VariantType: "Deletion", FN: 1}, byType["Deletion"])
	assert.Equal(t, output.Counts{VariantType: "MNP", FP: 1}, byType["MNP"])
	assert.Len(t, counts, 4)

	total := output.Total(counts)
	assert.Equal(t, 3, total.TP)
	assert.Equal(t, 2, total.FN)
	assert.Equal(t, 1, total.FP)

	cats, err := s.LookupCall(run.ID, vcf.Key{Chrom: "1", Pos: "300", Ref: "G", Alt: "T"})
	require.NoError(t, err)
	assert.Equal(t, []Category{CategoryTP}, cats)
}

func TestIngestReturnsCount(t *testing.T) {
	s := openInMemory(t)
	run, err := s.CreateRun("")
	require.NoError(t, err)

	n, err := s.IngestVCF(run.ID, CategoryTP, writeVCF(t, "tp.vcf",
		"1\t100\t.\tA\tC\t.\tPASS\t.",
		"1\t100\t.\tA\tC\t.\tPASS\t.",
		"1\t101\t.\tA\tC\t.\tPASS\t.",
	))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngestSplitsMultiAllelic(t *testing.T) {
	s := openInMemory(t)
	run, err := s.CreateRun("")
	require.NoError(t, err)

	n, err := s.IngestVCF(run.ID, CategoryTP, writeVCF(t, "tp.vcf",
		"1\t100\t.\tA\tC,AT\t.\tPASS\t.",
		"1\t100\t.\tA\tC\t.\tPASS\t.", // already stored from the split record
	))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := s.Counts(run.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []output.Counts{
		{VariantType: "Insertion", TP: 1},
		{VariantType: "SNP", TP: 1},
	}, counts)

	cats, err := s.LookupCall(run.ID, vcf.Key{Chrom: "1", Pos: "100", Ref: "A", Alt: "AT"})
	require.NoError(t, err)
	assert.Equal(t, []Category{CategoryTP}, cats)
}

func TestIngestMissingFile(t *testing.T) {
	s := openInMemory(t)
	_, err := s.IngestVCF("run", CategoryTP, filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)
}

func TestCountsSeparateRuns(t *testing.T) {
	s := openInMemory(t)
	a, err := s.CreateRun("a")
	require.NoError(t, err)
	b, err := s.CreateRun("b")
	require.NoError(t, err)

	path := writeVCF(t, "tp.vcf", "1\t100\t.\tA\tC\t.\tPASS\t.")
	_, err = s.IngestVCF(a.ID, CategoryTP, path)
	require.NoError(t, err)
	_, err = s.IngestVCF(b.ID, CategoryFP, path)
	require.NoError(t, err)

	counts, err := s.Counts(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []output.Counts{{VariantType: "SNP", TP: 1}}, counts)

	require.NoError(t, s.DeleteRun(a.ID))
	counts, err = s.Counts(a.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)

	counts, err = s.Counts(b.ID)
	require.NoError(t, err)
	assert.Equal(t, []output.Counts{{VariantType: "SNP", FP: 1}}, counts)
}

func TestRecordInputs(t *testing.T) {
	s := openInMemory(t)
	run, err := s.CreateRun("")
	require.NoError(t, err)

	path := writeVCF(t, "tp.vcf", "1\t100\t.\tA\tC\t.\tPASS\t.")
	fps, err := StatFiles(map[string]string{"varsim_tp": path, "unused": ""})
	require.NoError(t, err)
	require.Len(t, fps, 1)
	require.NoError(t, s.RecordInputs(run.ID, fps))

	got, err := s.Inputs(run.ID)
	require.NoError(t, err)
	require.Contains(t, got, "varsim_tp")
	assert.Equal(t, path, got["varsim_tp"].Path)
	assert.Equal(t, fps["varsim_tp"].Size, got["varsim_tp"].Size)
	assert.False(t, got["varsim_tp"].Changed())

	require.NoError(t, os.WriteFile(path, []byte(header), 0o644))
	assert.True(t, got["varsim_tp"].Changed())
}

func TestStatFileMissing(t *testing.T) {
	_, err := StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.True(t, FileFingerprint{Path: "/nonexistent/file"}.Changed())
}
