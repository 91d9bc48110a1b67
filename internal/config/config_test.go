package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Tools.Sort)
	assert.Empty(t, cfg.Tools.Bgzip)
	assert.Equal(t, "tabix", cfg.Tools.Tabix)
	assert.Equal(t, "java", cfg.Tools.Java)
	assert.Equal(t, 1, cfg.Tools.Threads)
	assert.True(t, cfg.Merge.Compress)
	assert.False(t, cfg.Merge.Strict)
	assert.Equal(t, "strict", cfg.Reconcile.SubsetCheck)
	assert.True(t, cfg.Reconcile.Parallel)
}

func TestLoad_HomeFile(t *testing.T) {
	dir := isolate(t)
	content := "merge:\n  compress: false\n  reference: /ref/hg38.fa\ntools:\n  threads: 8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.False(t, cfg.Merge.Compress)
	assert.Equal(t, "/ref/hg38.fa", cfg.Merge.Reference)
	assert.Equal(t, 8, cfg.Tools.Threads)
	assert.Equal(t, "strict", cfg.Reconcile.SubsetCheck)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reconcile:\n  subset_check: warn\n"), 0o644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Reconcile.SubsetCheck)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, err := New(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("VARSIM_MERGE_STRICT", "true")
	t.Setenv("VARSIM_TOOLS_SORT", "/usr/local/bin/sort_vcf.sh")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.True(t, cfg.Merge.Strict)
	assert.Equal(t, "/usr/local/bin/sort_vcf.sh", cfg.Tools.Sort)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VARSIM_LOG_LEVEL=debug\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("VARSIM_LOG_LEVEL") })

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Equal(t, reflect.Bool, keys["merge.compress"])
	assert.Equal(t, reflect.String, keys["reconcile.subset_check"])
	assert.Equal(t, reflect.Int, keys["tools.threads"])
	assert.Equal(t, reflect.String, keys["log.level"])
	assert.NotContains(t, keys, "merge")
}
