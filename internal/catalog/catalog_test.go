package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findmyusers/internal/domain/config"
	"findmyusers/internal/domain/content"
	domainerr "findmyusers/internal/domain/errors"
	"findmyusers/internal/ingest"
	"findmyusers/internal/validate"
)

var locales = []content.Locale{content.LocaleZH, content.LocaleEN}

type fixture struct {
	root     string
	detail   string
	listPath func(content.Locale) string
	reader   *ingest.Reader
	merger   *Merger
	codec    ListCodec
	writer   *Writer
	valid    *validate.Validator
}

func newFixture(t *testing.T, format content.Format) *fixture {
	t.Helper()
	root := t.TempDir()
	detail := filepath.Join(root, "detail", "articles")
	nameField, summaryField := "name", ""
	if format == content.FormatMarkdown {
		nameField, summaryField = "title", "description"
	}
	v := validate.New(config.DefaultValidation(), 100)
	codec := ListCodec{
		NameField:     nameField,
		SummaryField:  summaryField,
		Locales:       locales,
		DefaultLocale: content.LocaleZH,
	}
	return &fixture{
		root:   root,
		detail: detail,
		listPath: func(l content.Locale) string {
			return filepath.Join(root, "list", string(l), "articles.json")
		},
		reader: ingest.NewReader(ingest.ReaderOptions{
			Dir:          detail,
			Format:       format,
			NameField:    nameField,
			SummaryField: summaryField,
			Locales:      locales,
		}),
		merger: &Merger{
			Locales:   locales,
			Validator: v,
			Resolver:  ingest.NewTimestampResolver(nil),
		},
		codec:  codec,
		writer: NewWriter(codec, nil),
		valid:  v,
	}
}

func (f *fixture) write(t *testing.T, l content.Locale, name, body string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(f.detail, string(l), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func (f *fixture) details(t *testing.T) map[content.Locale][]content.DetailRecord {
	t.Helper()
	out := make(map[content.Locale][]content.DetailRecord)
	for _, l := range locales {
		recs, _, err := f.reader.ReadLocale(l)
		require.NoError(t, err)
		out[l] = recs
	}
	return out
}

func (f *fixture) regenerate(t *testing.T) (MergeResult, []byte) {
	t.Helper()
	path := f.listPath(content.LocaleZH)
	existing, err := f.codec.ReadFile(path)
	require.NoError(t, err)
	res := f.merger.Merge(existing, f.details(t))
	_, err = f.writer.Write(path, res.Entries)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return res, data
}

func TestMerge_AcmeScenario(t *testing.T) {
	f := newFixture(t, content.FormatMarkdown)
	mtime := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	f.write(t, content.LocaleZH, "acme.md", "# Acme\n\nbody\n", mtime)

	res, first := f.regenerate(t)
	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, "acme", e.Slug)
	assert.Equal(t, "Acme", e.Name(content.LocaleZH))
	assert.Empty(t, e.Name(content.LocaleEN))
	assert.Equal(t, "2024-03-04T05:06:07.000Z", e.CreatedAt.String())
	assert.Equal(t, e.CreatedAt.String(), e.ModifiedAt.String())
	assert.Equal(t, []string{"acme"}, res.Added)
	assert.Equal(t, 1, res.PerLocaleOnly)

	want := `[
  {
    "slug": "acme",
    "title_zh": "Acme",
    "date": "2024-03-04T05:06:07.000Z",
    "lastModified": "2024-03-04T05:06:07.000Z"
  }
]
`
	assert.Equal(t, want, string(first))

	res2, second := f.regenerate(t)
	assert.Equal(t, first, second)
	assert.Empty(t, res2.Added)
}

func TestMerge_PreservesCreatedAcrossEdits(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	path := f.write(t, content.LocaleEN, "acme.json", `{"name":"Acme"}`, t0)
	f.regenerate(t)

	t1 := t0.Add(72 * time.Hour)
	require.NoError(t, os.Chtimes(path, t1, t1))
	res, _ := f.regenerate(t)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "2023-01-01T00:00:00.000Z", res.Entries[0].CreatedAt.String())
	assert.Equal(t, "2023-01-04T00:00:00.000Z", res.Entries[0].ModifiedAt.String())
}

func TestMerge_KeepsForeignCreatedText(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	f.write(t, content.LocaleZH, "acme.json", `{"name":"Acme"}`, time.Now())
	existing := []content.CatalogEntry{{
		Slug:      "acme",
		Names:     map[content.Locale]string{content.LocaleZH: "Acme"},
		CreatedAt: content.ParseTimestamp("2022-06-01"),
	}}

	res := f.merger.Merge(existing, f.details(t))
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "2022-06-01", res.Entries[0].CreatedAt.String())
}

func TestMerge_MultiLocaleTimes(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f.write(t, content.LocaleZH, "ph.json", `{"name":"产品猎人"}`, newer)
	f.write(t, content.LocaleEN, "ph.json", `{"name":"Product Hunt"}`, older)

	res := f.merger.Merge(nil, f.details(t))
	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, "2024-01-01T00:00:00.000Z", e.CreatedAt.String())
	assert.Equal(t, "2024-02-01T00:00:00.000Z", e.ModifiedAt.String())
	assert.Equal(t, "产品猎人", e.Name(content.LocaleZH))
	assert.Equal(t, "Product Hunt", e.Name(content.LocaleEN))
	assert.Equal(t, 1, res.Bilingual)
}

func TestMerge_CarriedNames(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	f.write(t, content.LocaleZH, "ph.json", `{"name_zh":"产品猎人","name_en":"Product Hunt"}`, time.Now())

	res := f.merger.Merge(nil, f.details(t))
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "Product Hunt", res.Entries[0].Name(content.LocaleEN))
}

func TestMerge_OrphansAndSkips(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	f.write(t, content.LocaleZH, "kept.json", `{"name":"Kept"}`, time.Now())
	f.write(t, content.LocaleZH, "noisy.json", `{"name":"`+strings.Repeat("x", 350)+`"}`, time.Now())

	existing := []content.CatalogEntry{
		{Slug: "gone", Names: map[content.Locale]string{content.LocaleZH: "Gone"}},
		{Slug: "kept", Names: map[content.Locale]string{content.LocaleZH: "Kept"}},
		{Slug: "kept", Names: map[content.Locale]string{content.LocaleZH: "Again"}},
	}
	res := f.merger.Merge(existing, f.details(t))

	assert.Equal(t, []string{"gone"}, res.Orphans)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "kept", res.Entries[0].Slug)

	var reasons []string
	for _, s := range res.Skipped {
		reasons = append(reasons, s.Slug)
	}
	assert.ElementsMatch(t, []string{"kept", "noisy"}, reasons)
}

func TestMerge_AscendingStable(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	same := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	f.write(t, content.LocaleZH, "b-late.json", `{"name":"Late"}`, same.Add(time.Hour))
	f.write(t, content.LocaleZH, "c-same.json", `{"name":"Same C"}`, same)
	f.write(t, content.LocaleZH, "a-same.json", `{"name":"Same A"}`, same)

	res := f.merger.Merge(nil, f.details(t))
	var got []string
	for _, e := range res.Entries {
		got = append(got, e.Slug)
	}
	assert.Equal(t, []string{"a-same", "c-same", "b-late"}, got)
}

func TestProjector_FallbackFlag(t *testing.T) {
	f := newFixture(t, content.FormatMarkdown)
	f.write(t, content.LocaleZH, "acme.md", "---\ndescription: 中文简介\n---\n# Acme\n", time.Now())
	f.regenerate(t)

	p := &Projector{
		Codec:         f.codec,
		ListPath:      f.listPath,
		Details:       f.reader,
		DefaultLocale: content.LocaleZH,
		Validator:     f.valid,
	}

	en, err := p.Get("acme", content.LocaleEN)
	require.NoError(t, err)
	assert.True(t, en.NeedsTranslation)
	assert.Equal(t, content.LocaleZH, en.ContentLocale)
	assert.Equal(t, "中文简介", en.Description)
	require.NotNil(t, en.Detail)
	assert.Equal(t, content.LocaleZH, en.Detail.Locale)

	zh, err := p.Get("acme", content.LocaleZH)
	require.NoError(t, err)
	assert.False(t, zh.NeedsTranslation)

	list, err := p.List(content.LocaleEN)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].NeedsTranslation)

	_, err = p.Get("missing", content.LocaleZH)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjector_ListFieldsOverride(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	f.write(t, content.LocaleZH, "ph.json", `{"name":"产品猎人"}`, time.Now())
	listPath := f.listPath(content.LocaleZH)
	require.NoError(t, os.MkdirAll(filepath.Dir(listPath), 0o755))
	require.NoError(t, os.WriteFile(listPath, []byte(`[
  {"slug":"ph","name_zh":"产品猎人","name_en":"Product Hunt","date":"2024-01-01T00:00:00.000Z","lastModified":"2024-02-01T00:00:00.000Z"}
]`), 0o644))

	p := &Projector{
		Codec:         f.codec,
		ListPath:      f.listPath,
		Details:       f.reader,
		DefaultLocale: content.LocaleZH,
		Validator:     f.valid,
	}
	got, err := p.Get("ph", content.LocaleEN)
	require.NoError(t, err)
	assert.Equal(t, "Product Hunt", got.Name)
	assert.True(t, got.NeedsTranslation)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", got.CreatedAt.String())
}

func TestProjector_ListDescending(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.write(t, content.LocaleZH, "old.json", `{"name":"Old"}`, base)
	f.write(t, content.LocaleZH, "new.json", `{"name":"New"}`, base.Add(time.Hour))
	_, data := f.regenerate(t)
	assert.Less(t, strings.Index(string(data), `"old"`), strings.Index(string(data), `"new"`))

	p := &Projector{
		Codec:         f.codec,
		ListPath:      f.listPath,
		Details:       f.reader,
		DefaultLocale: content.LocaleZH,
		Validator:     f.valid,
	}
	list, err := p.List(content.LocaleZH)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Slug)
	assert.Equal(t, "old", list[1].Slug)
}

func TestListCodec_Malformed(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	path := f.listPath(content.LocaleZH)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"slug":"x"}`), 0o644))

	_, err := f.codec.ReadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerr.ErrStructural))

	entries, err := f.codec.ReadFile(filepath.Join(f.root, "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListCodec_LegacyName(t *testing.T) {
	codec := ListCodec{NameField: "name", Locales: locales, DefaultLocale: content.LocaleZH}
	entries, err := codec.Decode([]byte(`[{"slug":"a-b","name":"A & B"}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A & B", entries[0].Name(content.LocaleZH))

	out := codec.Encode(entries)
	assert.Contains(t, string(out), `"name_zh": "A & B"`)
}

func TestWriter_BackupsNeverOverwrite(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	fixed := time.UnixMilli(1700000000000)
	f.writer.Now = func() time.Time { return fixed }
	path := f.listPath(content.LocaleZH)

	entries := []content.CatalogEntry{{
		Slug:  "acme",
		Names: map[content.Locale]string{content.LocaleZH: "Acme"},
	}}
	b0, err := f.writer.Write(path, entries)
	require.NoError(t, err)
	assert.Empty(t, b0)

	b1, err := f.writer.Write(path, entries)
	require.NoError(t, err)
	b2, err := f.writer.Write(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path+".backup.1700000000000", b1)
	assert.Equal(t, path+".backup.1700000000001", b2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	backup, err := os.ReadFile(b2)
	require.NoError(t, err)
	assert.Contains(t, string(backup), `"slug": "acme"`)
}

func TestCheck_Report(t *testing.T) {
	f := newFixture(t, content.FormatJSON)
	f.write(t, content.LocaleZH, "both.json", `{"name":"Both"}`, time.Now())
	f.write(t, content.LocaleEN, "both.json", `{"name":"Both"}`, time.Now())
	f.write(t, content.LocaleZH, "new.json", `{"name":"New"}`, time.Now())

	list := []content.CatalogEntry{
		{Slug: "both", Names: map[content.Locale]string{content.LocaleZH: "Both"}},
		{Slug: "gone", Names: map[content.Locale]string{content.LocaleZH: "Gone"}},
	}
	r := Check(list, f.details(t), locales, f.valid)

	assert.Equal(t, []string{"new"}, r.MissingFromList)
	assert.Equal(t, []string{"gone"}, r.Orphans)
	assert.Equal(t, 1, r.Bilingual)
	assert.Equal(t, 2, r.Coverage[content.LocaleZH])
	assert.Equal(t, 1, r.Coverage[content.LocaleEN])
	assert.False(t, r.Clean())
}
