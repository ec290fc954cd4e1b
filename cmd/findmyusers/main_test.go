package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findmyusers/internal/build"
	domainerr "findmyusers/internal/domain/errors"
	"findmyusers/internal/ingest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ImportGenerateCheck(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FMU_ROOT", root)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "detail", "articles"), 0o755))

	csvPath := filepath.Join(root, "sites.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name_zh,name_en,url\n产品猎人,Product Hunt,https://producthunt.com\n"), 0o644))
	cfgFile := filepath.Join(root, "missing.yaml")

	out, err := run(t, "--config", cfgFile, "import-csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 written")

	_, err = run(t, "--config", cfgFile, "check", "--catalog", "sites")
	require.Error(t, err)

	out, err = run(t, "--config", cfgFile, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "sites: 1 processed, 1 added")
	assert.FileExists(t, filepath.Join(root, "list", "zh", "sites.json"))

	out, err = run(t, "--config", cfgFile, "check", "--catalog", "sites")
	require.NoError(t, err)
	assert.Contains(t, out, "sites: clean")
}

func TestCLI_StructuralFailureExitCode(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FMU_ROOT", root)

	_, err := run(t, "--config", filepath.Join(root, "missing.yaml"), "generate", "--catalog", "articles")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerr.ErrStructural)
	assert.Equal(t, 1, exitCode(err))
}

func TestCLI_InvalidConfigExitCode(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "findmyusers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locales: []\n"), 0o644))

	_, err := run(t, "--config", path, "check")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestPrintSummary_ReportsUnreadableFiles(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, &build.Summary{
		Catalog:   "sites",
		Processed: 1,
		Skipped:   1,
		Total:     1,
		Warnings:  []ingest.Warning{{Path: "detail/sites/zh/broken.json", Msg: "unexpected EOF"}},
	})
	assert.Contains(t, out.String(), "1 skipped")
	assert.Contains(t, out.String(), "unreadable detail/sites/zh/broken.json: unexpected EOF")
}
