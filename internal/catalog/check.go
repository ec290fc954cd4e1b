package catalog

import (
	"slices"

	"findmyusers/internal/domain/content"
	"findmyusers/internal/validate"
)

// Report is the consistency state between a list file and its detail
// directory, without writing anything.
type Report struct {
	ListEntries int
	// MissingFromList are detail slugs the next regeneration would add.
	MissingFromList []string
	// Orphans are list slugs without a detail file in any locale.
	Orphans    []string
	Duplicates []string
	Invalid    []Skip
	Coverage   map[content.Locale]int
	Bilingual  int
}

func (r Report) Clean() bool {
	return len(r.MissingFromList) == 0 && len(r.Orphans) == 0 &&
		len(r.Duplicates) == 0 && len(r.Invalid) == 0
}

func Check(list []content.CatalogEntry, details map[content.Locale][]content.DetailRecord, locales []content.Locale, v *validate.Validator) Report {
	r := Report{
		ListEntries: len(list),
		Coverage:    make(map[content.Locale]int, len(locales)),
	}

	inList := make(map[string]struct{}, len(list))
	for _, e := range list {
		if _, dup := inList[e.Slug]; dup {
			r.Duplicates = append(r.Duplicates, e.Slug)
			continue
		}
		inList[e.Slug] = struct{}{}
		if ok, reason := v.Check(e); !ok {
			r.Invalid = append(r.Invalid, Skip{Slug: e.Slug, Reason: reason})
		}
	}

	perSlug := make(map[string]int)
	for _, l := range locales {
		for _, rec := range details[l] {
			r.Coverage[l]++
			perSlug[rec.Slug]++
		}
	}
	for key, n := range perSlug {
		if n == len(locales) {
			r.Bilingual++
		}
		if _, ok := inList[key]; !ok {
			r.MissingFromList = append(r.MissingFromList, key)
		}
	}
	for key := range inList {
		if perSlug[key] == 0 {
			r.Orphans = append(r.Orphans, key)
		}
	}

	slices.Sort(r.MissingFromList)
	slices.Sort(r.Orphans)
	return r
}
