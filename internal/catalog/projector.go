package catalog

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"findmyusers/internal/domain/content"
	"findmyusers/internal/ingest"
	"findmyusers/internal/validate"
)

var ErrNotFound = errors.New("catalog entry not found")

// DetailSource is the part of ingest.Reader the projector needs.
type DetailSource interface {
	ReadDetail(slug string, l content.Locale) (content.DetailRecord, error)
	ReadLocale(l content.Locale) ([]content.DetailRecord, []ingest.Warning, error)
}

// Projector builds what a reader of one locale sees at request time. The
// requested locale's record is used when present, otherwise the default
// locale's is substituted and the entry is flagged NeedsTranslation.
type Projector struct {
	Codec         ListCodec
	ListPath      func(content.Locale) string
	Details       DetailSource
	DefaultLocale content.Locale
	Validator     *validate.Validator
	Log           *zap.Logger
}

func (p *Projector) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// List returns every valid entry for l, newest first.
func (p *Projector) List(l content.Locale) ([]content.MergedEntry, error) {
	entries, err := p.loadList(l)
	if err != nil {
		return nil, err
	}

	own, err := p.recordsBySlug(l)
	if err != nil {
		return nil, err
	}
	fallback := own
	if l != p.DefaultLocale {
		if fallback, err = p.recordsBySlug(p.DefaultLocale); err != nil {
			return nil, err
		}
	}

	out := make([]content.MergedEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Slug]; dup {
			continue
		}
		seen[e.Slug] = struct{}{}

		var rec *content.DetailRecord
		if r, ok := own[e.Slug]; ok {
			rec = &r
		} else if r, ok := fallback[e.Slug]; ok {
			rec = &r
		}
		m := p.project(e, l, rec)
		if ok, reason := p.Validator.Check(m.Entry()); !ok {
			p.logger().Debug("entry hidden", zap.String("slug", e.Slug), zap.String("reason", reason))
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[j].CreatedAt.Before(out[i].CreatedAt)
	})
	return out, nil
}

// Get projects a single slug for l.
func (p *Projector) Get(slug string, l content.Locale) (content.MergedEntry, error) {
	entries, err := p.loadList(l)
	if err != nil {
		return content.MergedEntry{}, err
	}
	var entry *content.CatalogEntry
	for i := range entries {
		if entries[i].Slug == slug {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return content.MergedEntry{}, ErrNotFound
	}

	var rec *content.DetailRecord
	if r, err := p.Details.ReadDetail(slug, l); err == nil {
		rec = &r
	} else if l != p.DefaultLocale {
		if r, err := p.Details.ReadDetail(slug, p.DefaultLocale); err == nil {
			rec = &r
		}
	}

	m := p.project(*entry, l, rec)
	if ok, reason := p.Validator.Check(m.Entry()); !ok {
		return content.MergedEntry{}, fmt.Errorf("%w: %s", ErrNotFound, reason)
	}
	return m, nil
}

// project 把列表条目与详情合并；列表里请求语言的字段优先
func (p *Projector) project(e content.CatalogEntry, l content.Locale, rec *content.DetailRecord) content.MergedEntry {
	m := content.MergedEntry{
		Slug:          e.Slug,
		Locale:        l,
		ContentLocale: l,
		Names:         make(map[content.Locale]string),
		CreatedAt:     e.CreatedAt,
		ModifiedAt:    e.ModifiedAt,
	}

	if rec != nil {
		m.Detail = rec
		m.ContentLocale = rec.Locale
		m.NeedsTranslation = rec.Locale != l
		for k, v := range rec.Names {
			if v != "" {
				m.Names[k] = v
			}
		}
		m.Name = rec.Name()
		m.Description = rec.Description
		if m.CreatedAt.IsZero() && !rec.ModTime.IsZero() {
			m.CreatedAt = content.NewTimestamp(rec.ModTime)
		}
		if m.ModifiedAt.IsZero() && !rec.ModTime.IsZero() {
			m.ModifiedAt = content.NewTimestamp(rec.ModTime)
		}
	}

	for k, v := range e.Names {
		if v != "" {
			m.Names[k] = v
		}
	}
	if n := e.Name(l); n != "" {
		m.Name = n
	} else if m.Name == "" {
		m.Name = e.Name(p.DefaultLocale)
	}
	if s := e.Summary(l); s != "" {
		m.Description = s
	}
	return m
}

// loadList 读取请求语言的列表文件，不存在时退回默认语言的列表
func (p *Projector) loadList(l content.Locale) ([]content.CatalogEntry, error) {
	entries, err := p.Codec.ReadFile(p.ListPath(l))
	if err != nil {
		return nil, err
	}
	if entries == nil && l != p.DefaultLocale {
		return p.Codec.ReadFile(p.ListPath(p.DefaultLocale))
	}
	return entries, nil
}

func (p *Projector) recordsBySlug(l content.Locale) (map[string]content.DetailRecord, error) {
	recs, warns, err := p.Details.ReadLocale(l)
	if err != nil {
		return nil, err
	}
	for _, w := range warns {
		p.logger().Warn("detail file skipped", zap.String("path", w.Path), zap.String("reason", w.Msg))
	}
	out := make(map[string]content.DetailRecord, len(recs))
	for _, r := range recs {
		out[r.Slug] = r
	}
	return out, nil
}
