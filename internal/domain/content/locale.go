package content

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale is the base language of a piece of content ("zh", "en").
type Locale string

const (
	LocaleZH Locale = "zh"
	LocaleEN Locale = "en"
)

func (l Locale) String() string { return string(l) }

// ParseLocale accepts any BCP 47 tag and reduces it to its base language,
// so "zh-CN" and "zh-Hans" both become "zh".
func ParseLocale(s string) (Locale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("locale: empty tag")
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("locale: %w", err)
	}
	base, _ := tag.Base()
	return Locale(base.String()), nil
}

// LocaleMatcher picks the best supported locale for an Accept-Language header.
type LocaleMatcher struct {
	supported []Locale
	matcher   language.Matcher
}

// NewLocaleMatcher expects the default locale first.
func NewLocaleMatcher(supported []Locale) *LocaleMatcher {
	tags := make([]language.Tag, 0, len(supported))
	for _, l := range supported {
		tags = append(tags, language.Make(string(l)))
	}
	return &LocaleMatcher{
		supported: supported,
		matcher:   language.NewMatcher(tags),
	}
}

func (m *LocaleMatcher) Match(acceptLanguage string) Locale {
	if len(m.supported) == 0 {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return m.supported[0]
	}
	_, idx, conf := m.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(m.supported) {
		return m.supported[0]
	}
	return m.supported[idx]
}

// Supports reports whether l is one of the configured locales.
func (m *LocaleMatcher) Supports(l Locale) bool {
	for _, s := range m.supported {
		if s == l {
			return true
		}
	}
	return false
}
