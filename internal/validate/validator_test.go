package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"findmyusers/internal/domain/config"
	"findmyusers/internal/domain/content"
)

func entry(slug string, names map[content.Locale]string) content.CatalogEntry {
	return content.CatalogEntry{Slug: slug, Names: names}
}

func TestCheck(t *testing.T) {
	v := New(config.DefaultValidation(), 100)

	cases := []struct {
		name  string
		entry content.CatalogEntry
		ok    bool
	}{
		{"plain", entry("acme", map[content.Locale]string{"zh": "Acme"}), true},
		{"two chars inclusive", entry("ab", map[content.Locale]string{"en": "AB"}), true},
		{"one char", entry("a", map[content.Locale]string{"en": "A"}), false},
		{"sentinel slug", entry("unknown-site", map[content.Locale]string{"en": "Unknown"}), false},
		{"dash slug", entry("-", map[content.Locale]string{"en": "Dash"}), false},
		{"empty slug", entry("", map[content.Locale]string{"en": "Acme"}), false},
		{"bad fragment", entry("foo-developer-tools-are-not-bar", map[content.Locale]string{"en": "Foo"}), false},
		{"non canonical slug", entry("Acme Tool", map[content.Locale]string{"en": "Acme"}), false},
		{"no names", entry("acme", nil), false},
		{"blank names", entry("acme", map[content.Locale]string{"zh": "  ", "en": ""}), false},
		{"350 chars", entry("long", map[content.Locale]string{"en": strings.Repeat("x", 350)}), false},
		{"200 chars", entry("long", map[content.Locale]string{"en": strings.Repeat("x", 200)}), true},
		{"leaked marker", entry("shot", map[content.Locale]string{"en": "Upload Screenshot here"}), false},
		{"leaked marker zh", entry("shot", map[content.Locale]string{"zh": "产品截图"}), false},
		{"bilingual", entry("ph", map[content.Locale]string{"zh": "产品猎人", "en": "Product Hunt"}), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := v.Check(tc.entry)
			assert.Equal(t, tc.ok, ok, reason)
			assert.Equal(t, tc.ok, v.IsValid(tc.entry))
			if !tc.ok {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestCheck_TextCeiling(t *testing.T) {
	cfg := config.DefaultValidation()
	cfg.MaxNameLen = 1000
	v := New(cfg, 100)

	// 150 + 1 + 150 = 301 runes once joined
	e := entry("ceiling", map[content.Locale]string{
		"zh": strings.Repeat("字", 150),
		"en": strings.Repeat("w", 150),
	})
	ok, reason := v.Check(e)
	assert.False(t, ok)
	assert.Contains(t, reason, "text length")
}

func TestCheck_ConfigurableBlocklist(t *testing.T) {
	cfg := config.DefaultValidation()
	cfg.ReservedSlugs = append(cfg.ReservedSlugs, "admin")
	v := New(cfg, 100)

	assert.False(t, v.IsValid(entry("admin", map[content.Locale]string{"en": "Admin"})))
}

func TestCheck_SentinelWithoutReservedList(t *testing.T) {
	cfg := config.DefaultValidation()
	cfg.ReservedSlugs = []string{"admin"}
	v := New(cfg, 100)

	ok, reason := v.Check(entry("unknown-site", map[content.Locale]string{"en": "Unknown"}))
	assert.False(t, ok)
	assert.Contains(t, reason, "reserved slug")
}

func TestCheckFilename(t *testing.T) {
	v := New(config.DefaultValidation(), 100)

	cases := []struct {
		stem string
		ok   bool
	}{
		{"producthunt", true},
		{"-leading-dash", false},
		{"and-the-product-requirement-x", false},
		{"introduce-your-product-as-briefly-as-possible", false},
		{"rating-not_evaluated", false},
		{strings.Repeat("a", 101), false},
		{"unknown-site", false},
	}
	for _, tc := range cases {
		t.Run(tc.stem, func(t *testing.T) {
			ok, _ := v.CheckFilename(tc.stem)
			assert.Equal(t, tc.ok, ok)
		})
	}
}
