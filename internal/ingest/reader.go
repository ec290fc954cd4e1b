package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"findmyusers/internal/domain/content"
	"findmyusers/internal/render"
	"findmyusers/internal/slug"
)

// ErrNotFound is returned for a (slug, locale) pair without a usable record,
// including records whose file failed to parse.
var ErrNotFound = errors.New("detail record not found")

type Warning struct {
	Path string
	Msg  string
}

type ReaderOptions struct {
	// Dir is <root>/<detail_dir>; locale sub-directories live below it.
	Dir          string
	Format       content.Format
	NameField    string
	SummaryField string
	Locales      []content.Locale
	Log          *zap.Logger
}

// Reader reports which detail records exist. It never substitutes another
// locale's record; that is the merger's decision.
type Reader struct {
	opt ReaderOptions
	md  *render.MarkdownRenderer
	log *zap.Logger
}

func NewReader(opt ReaderOptions) *Reader {
	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opt.NameField == "" {
		opt.NameField = "name"
	}
	return &Reader{
		opt: opt,
		md:  render.NewMarkdownRenderer(),
		log: log,
	}
}

func (r *Reader) LocaleDir(l content.Locale) string {
	return filepath.Join(r.opt.Dir, string(l))
}

// ReadDetail loads the record for slug in locale l.
func (r *Reader) ReadDetail(key string, l content.Locale) (content.DetailRecord, error) {
	path, ok := r.locate(key, l)
	if !ok {
		return content.DetailRecord{}, ErrNotFound
	}
	rec, err := r.parseFile(path, key, l)
	if err != nil {
		r.log.Error("failed to read detail record",
			zap.String("path", path), zap.String("locale", string(l)), zap.Error(err))
		return content.DetailRecord{}, ErrNotFound
	}
	return rec, nil
}

// ReadLocale loads every record of one locale in file-name order. Files that
// fail to parse, yield a sentinel slug or repeat an earlier slug are skipped
// with a warning.
func (r *Reader) ReadLocale(l content.Locale) ([]content.DetailRecord, []Warning, error) {
	files, err := DiscoverLocale(r.LocaleDir(l), l, r.opt.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("discover %s: %w", r.LocaleDir(l), err)
	}

	var (
		out   []content.DetailRecord
		warns []Warning
		seen  = make(map[string]string, len(files))
	)
	for _, sf := range files {
		key := slug.Generate(sf.Stem)
		if slug.IsSentinel(key) {
			warns = append(warns, Warning{Path: sf.Path, Msg: "file name yields no usable slug"})
			continue
		}
		if first, dup := seen[key]; dup {
			warns = append(warns, Warning{Path: sf.Path, Msg: "duplicate slug " + key + ", already provided by " + first})
			continue
		}
		rec, err := r.parseFile(sf.Path, key, l)
		if err != nil {
			warns = append(warns, Warning{Path: sf.Path, Msg: err.Error()})
			continue
		}
		seen[key] = sf.Path
		out = append(out, rec)
	}
	return out, warns, nil
}

// locate 先按 slug 直接拼路径，找不到再扫描目录（文件名可能不是规范 slug）
func (r *Reader) locate(key string, l content.Locale) (string, bool) {
	if key == "" || slug.IsSentinel(key) || strings.ContainsAny(key, `/\`) {
		return "", false
	}
	exts := []string{r.opt.Format.Ext()}
	if r.opt.Format == content.FormatMarkdown {
		exts = append(exts, ".markdown")
	}
	for _, ext := range exts {
		p := filepath.Join(r.LocaleDir(l), key+ext)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}

	files, err := DiscoverLocale(r.LocaleDir(l), l, r.opt.Format)
	if err != nil {
		return "", false
	}
	for _, sf := range files {
		if slug.Generate(sf.Stem) == key {
			return sf.Path, true
		}
	}
	return "", false
}

func (r *Reader) parseFile(path, key string, l content.Locale) (content.DetailRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return content.DetailRecord{}, err
	}
	var rec content.DetailRecord
	switch r.opt.Format {
	case content.FormatMarkdown:
		rec, err = r.parseMarkdown(raw, path, l)
	default:
		rec, err = r.parseJSON(raw, l)
	}
	if err != nil {
		return content.DetailRecord{}, err
	}
	rec.Slug = key
	rec.Locale = l
	rec.Format = r.opt.Format
	rec.Path = path
	rec.ContentHash = HashBytes(raw)
	if st, err := os.Stat(path); err == nil {
		rec.ModTime = st.ModTime()
	}
	return rec, nil
}

func (r *Reader) parseMarkdown(raw []byte, path string, l content.Locale) (content.DetailRecord, error) {
	fm, body, err := ParseFrontMatter(raw)
	if err != nil && !errors.Is(err, errNoFrontMatter) {
		return content.DetailRecord{}, fmt.Errorf("parse front matter: %w", err)
	}

	// 标题优先级：front matter > 第一个一级标题 > 文件名
	title := fm.Title
	if title == "" {
		title = r.md.Title(body)
	}
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	rec := content.DetailRecord{
		Names:       map[content.Locale]string{l: title},
		Description: fm.Description,
		Date:        fm.Date,
		Category:    fm.Category,
		Tags:        fm.Tags,
		Body:        body,
	}
	if len(fm.Extra) > 0 {
		rec.Extra = fm.Extra
	}
	return rec, nil
}

// detail JSON 的字段既可能是 "description" 也可能是 "description_zh"
var detailFields = []string{
	"description", "url", "status", "type", "region", "category",
	"submitMethod", "submitUrl", "submitRequirements",
	"review", "reviewTime", "expectedExposure", "rating", "date",
}

func (r *Reader) parseJSON(raw []byte, l content.Locale) (content.DetailRecord, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return content.DetailRecord{}, fmt.Errorf("parse json: %w", err)
	}
	if m == nil {
		return content.DetailRecord{}, fmt.Errorf("parse json: root is not an object")
	}

	used := make(map[string]struct{})
	get := func(key string) string {
		v, ok := m[key]
		if !ok {
			return ""
		}
		used[key] = struct{}{}
		return strings.TrimSpace(scalar(v))
	}
	localized := func(key string) string {
		if v := get(key); v != "" {
			return v
		}
		return get(key + "_" + string(l))
	}

	names := make(map[content.Locale]string)
	for _, loc := range r.opt.Locales {
		for _, field := range []string{r.opt.NameField, "name", "title"} {
			if v := get(field + "_" + string(loc)); v != "" {
				names[loc] = v
				break
			}
		}
	}
	for _, field := range []string{r.opt.NameField, "name", "title"} {
		if v := get(field); v != "" {
			names[l] = v
			break
		}
	}

	vals := make(map[string]string, len(detailFields))
	for _, f := range detailFields {
		vals[f] = localized(f)
	}
	if r.opt.SummaryField != "" && vals["description"] == "" {
		vals["description"] = localized(r.opt.SummaryField)
	}
	var tags []string
	if v, ok := m["tags"]; ok {
		used["tags"] = struct{}{}
		tags = stringList(v)
	}

	rec := content.DetailRecord{
		Names:              names,
		Description:        vals["description"],
		URL:                vals["url"],
		Status:             vals["status"],
		Type:               vals["type"],
		Region:             vals["region"],
		Category:           vals["category"],
		SubmitMethod:       vals["submitMethod"],
		SubmitURL:          vals["submitUrl"],
		SubmitRequirements: vals["submitRequirements"],
		Review:             vals["review"],
		ReviewTime:         vals["reviewTime"],
		ExpectedExposure:   vals["expectedExposure"],
		Rating:             vals["rating"],
		Date:               vals["date"],
		Tags:               tags,
	}

	for k, v := range m {
		if _, ok := used[k]; ok {
			continue
		}
		if isLocalizedKey(k, r.opt.Locales) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = v
	}
	return rec, nil
}

// other locales' variants (description_en in a zh record) are not extras
func isLocalizedKey(k string, locales []content.Locale) bool {
	for _, l := range locales {
		if strings.HasSuffix(k, "_"+string(l)) {
			return true
		}
	}
	return false
}
