package validate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"findmyusers/internal/domain/config"
	"findmyusers/internal/domain/content"
	"findmyusers/internal/slug"
)

var canonicalSlug = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validator is the data-quality gate applied to merged entries before they
// are admitted to a catalog. Its rules are configuration data.
type Validator struct {
	reserved    map[string]struct{}
	fragments   []string
	markers     []string
	filePrefix  []string
	minName     int
	maxName     int
	maxText     int
	maxFilename int
	maxSlug     int
}

func New(cfg config.ValidationConfig, slugMaxLen int) *Validator {
	v := &Validator{
		reserved:    make(map[string]struct{}, len(cfg.ReservedSlugs)),
		fragments:   lowerAll(cfg.BadSlugFragments),
		markers:     lowerAll(cfg.LeakedNameMarkers),
		filePrefix:  lowerAll(cfg.BadFilenamePrefix),
		minName:     cfg.MinNameLen,
		maxName:     cfg.MaxNameLen,
		maxText:     cfg.MaxTextLen,
		maxFilename: cfg.MaxFilenameLen,
		maxSlug:     slugMaxLen,
	}
	for _, s := range cfg.ReservedSlugs {
		v.reserved[s] = struct{}{}
	}
	return v
}

func (v *Validator) IsValid(e content.CatalogEntry) bool {
	ok, _ := v.Check(e)
	return ok
}

// Check returns false with a short reason for the first rule the entry breaks.
func (v *Validator) Check(e content.CatalogEntry) (bool, string) {
	if reason := v.checkSlug(e.Slug); reason != "" {
		return false, reason
	}

	if !e.HasName() {
		return false, "no localized name"
	}
	names := collectNames(e)

	// 名称长度按字符（rune）计算，中文名不会被放大
	nameLen := 0
	for _, n := range names {
		nameLen += utf8.RuneCountInString(n)
	}
	if nameLen < v.minName {
		return false, fmt.Sprintf("combined name length %d below %d", nameLen, v.minName)
	}
	if nameLen > v.maxName {
		return false, fmt.Sprintf("combined name length %d above %d", nameLen, v.maxName)
	}

	text := strings.Join(names, " ")
	lower := strings.ToLower(text)
	for _, m := range v.markers {
		if m != "" && strings.Contains(lower, m) {
			return false, fmt.Sprintf("name contains leaked marker %q", m)
		}
	}
	if n := utf8.RuneCountInString(text); n > v.maxText {
		return false, fmt.Sprintf("combined text length %d above %d", n, v.maxText)
	}
	return true, ""
}

func (v *Validator) checkSlug(s string) string {
	if s == "" {
		return "empty slug"
	}
	if slug.IsSentinel(s) {
		return fmt.Sprintf("reserved slug %q", s)
	}
	if _, ok := v.reserved[s]; ok {
		return fmt.Sprintf("reserved slug %q", s)
	}
	for _, f := range v.fragments {
		if f != "" && strings.Contains(s, f) {
			return fmt.Sprintf("slug contains bad fragment %q", f)
		}
	}
	if !canonicalSlug.MatchString(s) {
		return "slug is not [a-z0-9-]"
	}
	if v.maxSlug > 0 && len(s) > v.maxSlug {
		return fmt.Sprintf("slug longer than %d", v.maxSlug)
	}
	return ""
}

// CheckFilename applies the blocklists to a detail file stem. Used by prune.
func (v *Validator) CheckFilename(stem string) (bool, string) {
	lower := strings.ToLower(stem)
	if v.maxFilename > 0 && utf8.RuneCountInString(stem) > v.maxFilename {
		return false, fmt.Sprintf("file name longer than %d", v.maxFilename)
	}
	for _, p := range v.filePrefix {
		if p != "" && strings.HasPrefix(lower, p) {
			return false, fmt.Sprintf("file name starts with %q", p)
		}
	}
	for _, f := range v.fragments {
		if f != "" && strings.Contains(lower, f) {
			return false, fmt.Sprintf("file name contains bad fragment %q", f)
		}
	}
	if strings.Contains(lower, "not_") {
		return false, `file name contains "not_"`
	}
	if _, ok := v.reserved[lower]; ok {
		return false, fmt.Sprintf("reserved name %q", lower)
	}
	return true, ""
}

// collectNames returns the non-empty names in a fixed order so the joined
// text does not depend on map iteration.
func collectNames(e content.CatalogEntry) []string {
	locales := make([]string, 0, len(e.Names))
	for l := range e.Names {
		locales = append(locales, string(l))
	}
	slices.Sort(locales)

	out := make([]string, 0, len(locales))
	for _, l := range locales {
		if n := e.Name(content.Locale(l)); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
