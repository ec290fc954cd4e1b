package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findmyusers/internal/domain/config"
	"findmyusers/internal/domain/content"
	domainerr "findmyusers/internal/domain/errors"
	"findmyusers/internal/metrics"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Root = t.TempDir()
	return cfg
}

func writeDetail(t *testing.T, cfg config.Config, catalog string, l content.Locale, name, body string) string {
	t.Helper()
	cat, ok := cfg.Catalog(catalog)
	require.True(t, ok)
	path := filepath.Join(cfg.DetailRoot(cat), string(l), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	mtime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func newRegenerator(cfg config.Config) *Regenerator {
	return &Regenerator{
		Cfg:     cfg,
		Metrics: metrics.New(),
		Now:     func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestRunAll(t *testing.T) {
	cfg := testConfig(t)
	writeDetail(t, cfg, "articles", content.LocaleZH, "acme.md", "# Acme\n\nbody\n")
	writeDetail(t, cfg, "sites", content.LocaleEN, "product-hunt.json", `{"name": "Product Hunt", "url": "https://producthunt.com"}`)
	writeDetail(t, cfg, "sites", content.LocaleZH, "product-hunt.json", `{"name": "产品猎人"}`)

	r := newRegenerator(cfg)
	sums, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, sums, 2)

	art := sums[1]
	assert.Equal(t, "articles", art.Catalog)
	assert.NotEmpty(t, art.RunID)
	assert.Equal(t, 1, art.Total)
	assert.Equal(t, []string{"acme"}, art.AddedSlugs)
	assert.Equal(t, 1, art.PerLocaleOnly)
	assert.Empty(t, art.Backup)

	sites := sums[0]
	assert.Equal(t, 1, sites.Bilingual)
	assert.Equal(t, 1, sites.Processed)

	data, err := os.ReadFile(sites.ListPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name_zh": "产品猎人"`)
	assert.Contains(t, string(data), `"name_en": "Product Hunt"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.RegenerationsTotal.WithLabelValues("sites", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.CatalogEntries.WithLabelValues("articles", "zh")))

	// 第二次运行产生备份，内容不变
	again, err := r.Run(context.Background(), "sites")
	require.NoError(t, err)
	assert.NotEmpty(t, again.Backup)
	assert.Empty(t, again.AddedSlugs)
	second, err := os.ReadFile(sites.ListPath)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(second))
}

func TestRun_UnknownCatalog(t *testing.T) {
	_, err := newRegenerator(testConfig(t)).Run(context.Background(), "nope")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domainerr.ErrStructural))
}

func TestRun_MissingDetailRootIsStructural(t *testing.T) {
	r := newRegenerator(testConfig(t))
	_, err := r.Run(context.Background(), "articles")
	assert.ErrorIs(t, err, domainerr.ErrStructural)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.RegenerationsTotal.WithLabelValues("articles", "structural")))
}

func TestRun_MalformedListIsStructural(t *testing.T) {
	cfg := testConfig(t)
	writeDetail(t, cfg, "articles", content.LocaleZH, "acme.md", "# Acme\n")
	cat, _ := cfg.Catalog("articles")
	listPath := cfg.ListPath(cat, cfg.DefaultLocale)
	require.NoError(t, os.MkdirAll(filepath.Dir(listPath), 0o755))
	require.NoError(t, os.WriteFile(listPath, []byte(`{"not": "an array"}`), 0o644))

	_, err := newRegenerator(cfg).Run(context.Background(), "articles")
	assert.ErrorIs(t, err, domainerr.ErrStructural)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	assert.Equal(t, `{"not": "an array"}`, string(data))
}

func TestRun_Locked(t *testing.T) {
	cfg := testConfig(t)
	writeDetail(t, cfg, "articles", content.LocaleZH, "acme.md", "# Acme\n")
	cat, _ := cfg.Catalog("articles")
	listPath := cfg.ListPath(cat, cfg.DefaultLocale)
	require.NoError(t, os.MkdirAll(filepath.Dir(listPath), 0o755))

	release, err := acquireLock(listPath + ".lock")
	require.NoError(t, err)

	r := newRegenerator(cfg)
	_, err = r.Run(context.Background(), "articles")
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.RegenerationsTotal.WithLabelValues("articles", "locked")))

	require.NoError(t, release())
	_, err = r.Run(context.Background(), "articles")
	assert.NoError(t, err)
}

func TestRun_CanceledWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	writeDetail(t, cfg, "articles", content.LocaleZH, "acme.md", "# Acme\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := newRegenerator(cfg).Run(ctx, "articles")
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(sum.ListPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_UnreadableFilesCountAsSkipped(t *testing.T) {
	cfg := testConfig(t)
	writeDetail(t, cfg, "sites", content.LocaleZH, "good.json", `{"name": "好网站", "url": "https://good.example"}`)
	broken := writeDetail(t, cfg, "sites", content.LocaleZH, "broken.json", `{"name": `)

	r := newRegenerator(cfg)
	sum, err := r.Run(context.Background(), "sites")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 1, sum.Skipped)
	require.Len(t, sum.Warnings, 1)
	assert.Equal(t, broken, sum.Warnings[0].Path)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.EntriesSkippedTotal.WithLabelValues("sites")))
}

func TestCheck(t *testing.T) {
	cfg := testConfig(t)
	writeDetail(t, cfg, "articles", content.LocaleZH, "acme.md", "# Acme\n")
	r := newRegenerator(cfg)
	_, err := r.Run(context.Background(), "articles")
	require.NoError(t, err)

	rep, err := r.Check(context.Background(), "articles")
	require.NoError(t, err)
	assert.True(t, rep.Clean())
	assert.Equal(t, 1, rep.ListEntries)

	writeDetail(t, cfg, "articles", content.LocaleEN, "globex.md", "# Globex\n")
	rep, err = r.Check(context.Background(), "articles")
	require.NoError(t, err)
	assert.False(t, rep.Clean())
	assert.Equal(t, []string{"globex"}, rep.MissingFromList)
	assert.Equal(t, 1, rep.Coverage[content.LocaleEN])
}

func TestPrune(t *testing.T) {
	cfg := testConfig(t)
	good := writeDetail(t, cfg, "sites", content.LocaleZH, "product-hunt.json", `{"name": "Product Hunt"}`)
	bad := writeDetail(t, cfg, "sites", content.LocaleZH, "and-the-product-requirement.json", `{"name": "x"}`)
	r := newRegenerator(cfg)

	res, err := r.Prune(context.Background(), "sites", false)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, bad, res.Candidates[0].Path)
	assert.Empty(t, res.Deleted)
	assert.FileExists(t, bad)

	res, err = r.Prune(context.Background(), "sites", true)
	require.NoError(t, err)
	assert.Equal(t, []string{bad}, res.Deleted)
	assert.NoFileExists(t, bad)
	assert.FileExists(t, good)
}

func TestInputFingerprint(t *testing.T) {
	cfg := testConfig(t)
	path := writeDetail(t, cfg, "articles", content.LocaleZH, "acme.md", "# Acme\n")

	a, err := InputFingerprint(cfg)
	require.NoError(t, err)
	b, err := InputFingerprint(cfg)
	require.NoError(t, err)
	assert.Equal(t, a.InputHash, b.InputHash)

	later := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, later, later))
	c, err := InputFingerprint(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.DetailHash, c.DetailHash)
	assert.Equal(t, a.ListHash, c.ListHash)
	assert.NotEqual(t, a.InputHash, c.InputHash)

	cfg.Validation.MaxTextLen = 999
	d, err := InputFingerprint(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, c.ConfigHash, d.ConfigHash)
}
