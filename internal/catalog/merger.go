package catalog

import (
	"sort"

	"go.uber.org/zap"

	"findmyusers/internal/domain/content"
	"findmyusers/internal/ingest"
	"findmyusers/internal/validate"
)

type Skip struct {
	Slug   string
	Reason string
}

type MergeResult struct {
	// Entries is the catalog to persist, ascending by created, stable.
	Entries []content.CatalogEntry

	Added   []string
	Orphans []string
	Skipped []Skip

	Processed     int
	Bilingual     int
	PerLocaleOnly int
}

// Merger combines an existing list with the detail records of every locale
// into the persisted catalog.
type Merger struct {
	Locales   []content.Locale
	Validator *validate.Validator
	Resolver  *ingest.TimestampResolver
	Log       *zap.Logger
}

func (m *Merger) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

func (m *Merger) Merge(existing []content.CatalogEntry, details map[content.Locale][]content.DetailRecord) MergeResult {
	log := m.logger()
	var res MergeResult

	// slug 顺序：先按原列表顺序，再按新出现的顺序（默认语言优先）
	var order []string
	prior := make(map[string]*content.CatalogEntry, len(existing))
	for i := range existing {
		e := &existing[i]
		if e.Slug == "" {
			res.Skipped = append(res.Skipped, Skip{Reason: "list entry without slug"})
			continue
		}
		if _, dup := prior[e.Slug]; dup {
			res.Skipped = append(res.Skipped, Skip{Slug: e.Slug, Reason: "duplicate list entry"})
			continue
		}
		prior[e.Slug] = e
		order = append(order, e.Slug)
	}

	bySlug := make(map[string]map[content.Locale]content.DetailRecord)
	for _, l := range m.Locales {
		for _, rec := range details[l] {
			recs, ok := bySlug[rec.Slug]
			if !ok {
				recs = make(map[content.Locale]content.DetailRecord, len(m.Locales))
				bySlug[rec.Slug] = recs
				if _, known := prior[rec.Slug]; !known {
					order = append(order, rec.Slug)
				}
			}
			if _, dup := recs[l]; !dup {
				recs[l] = rec
			}
		}
	}

	for _, key := range order {
		recs := bySlug[key]
		if len(recs) == 0 {
			res.Orphans = append(res.Orphans, key)
			log.Warn("list entry has no detail file in any locale",
				zap.String("slug", key))
			continue
		}
		res.Processed++

		p := prior[key]
		e := m.entry(key, p, recs)

		if ok, reason := m.Validator.Check(e); !ok {
			res.Skipped = append(res.Skipped, Skip{Slug: key, Reason: reason})
			log.Warn("entry skipped", zap.String("slug", key), zap.String("reason", reason))
			continue
		}
		if p == nil {
			res.Added = append(res.Added, key)
		}
		if len(recs) == len(m.Locales) {
			res.Bilingual++
		} else {
			res.PerLocaleOnly++
		}
		res.Entries = append(res.Entries, e)
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		return res.Entries[i].CreatedAt.Before(res.Entries[j].CreatedAt)
	})
	return res
}

func (m *Merger) entry(key string, prior *content.CatalogEntry, recs map[content.Locale]content.DetailRecord) content.CatalogEntry {
	e := content.CatalogEntry{
		Slug:      key,
		Names:     make(map[content.Locale]string, len(m.Locales)),
		Summaries: make(map[content.Locale]string, len(m.Locales)),
	}

	// 创建时间取已有值，否则取各语言文件中最早的；修改时间取最新的
	for _, l := range m.Locales {
		rec, ok := recs[l]
		if !ok {
			continue
		}
		t := m.Resolver.Resolve(rec.Path, prior)
		if e.CreatedAt.IsZero() || t.CreatedAt.Before(e.CreatedAt) {
			e.CreatedAt = t.CreatedAt
		}
		if e.ModifiedAt.IsZero() || e.ModifiedAt.Before(t.ModifiedAt) {
			e.ModifiedAt = t.ModifiedAt
		}
	}
	if prior != nil && !prior.CreatedAt.IsZero() {
		e.CreatedAt = prior.CreatedAt
	}

	for _, l := range m.Locales {
		if name := ownOrCarriedName(l, recs, m.Locales); name != "" {
			e.Names[l] = name
		} else if prior != nil && prior.Name(l) != "" {
			e.Names[l] = prior.Name(l)
		}

		if rec, ok := recs[l]; ok && rec.Description != "" {
			e.Summaries[l] = rec.Description
		} else if prior != nil && prior.Summary(l) != "" {
			e.Summaries[l] = prior.Summary(l)
		}
	}
	return e
}

// ownOrCarriedName prefers the locale's own record, then a name for l carried
// by another locale's record (name_en inside zh/x.json).
func ownOrCarriedName(l content.Locale, recs map[content.Locale]content.DetailRecord, locales []content.Locale) string {
	if rec, ok := recs[l]; ok {
		if n := rec.Name(); n != "" {
			return n
		}
	}
	for _, other := range locales {
		rec, ok := recs[other]
		if !ok {
			continue
		}
		if n := rec.Names[l]; n != "" {
			return n
		}
	}
	return ""
}
