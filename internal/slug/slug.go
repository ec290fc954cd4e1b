// Package slug turns display names and file names into catalog keys.
//
// A canonical slug only contains ASCII lowercase letters, digits and single
// hyphens. Accented Latin letters are folded (é -> e) before anything else is
// dropped.
package slug

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unknown is returned when nothing usable is left. Callers must treat it as a
// rejection, never as a key.
const Unknown = "unknown-site"

const (
	// MinLen is the shortest primary result accepted before the fallback name is tried.
	MinLen = 3
	// MaxLen bounds generated slugs; longer results are cut at a hyphen.
	MaxLen = 50
)

var canonical = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Generate normalizes s into a canonical slug.
func Generate(s string) string {
	if out := build(s, isASCIIWord); out != "" {
		return out
	}
	return Unknown
}

// GenerateWithFallback uses primary unless it yields fewer than MinLen
// characters, in which case fallback is slugged with a broader alphabet that
// keeps non-Latin letters.
func GenerateWithFallback(primary, fallback string) string {
	out := build(primary, isASCIIWord)
	if utf8.RuneCountInString(out) < MinLen && strings.TrimSpace(fallback) != "" {
		if alt := build(fallback, isUnicodeWord); alt != "" {
			out = alt
		}
	}
	if out == "" {
		return Unknown
	}
	return out
}

// IsSentinel reports whether s is the rejection value.
func IsSentinel(s string) bool {
	return s == "" || s == Unknown
}

// Valid reports whether s is usable as a catalog key.
func Valid(s string, maxLen int) bool {
	if s == "" || IsSentinel(s) {
		return false
	}
	if maxLen > 0 && len(s) > maxLen {
		return false
	}
	return canonical.MatchString(s)
}

func build(s string, keep func(rune) bool) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		switch {
		case keep(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		default:
			// 其他字符直接丢弃，不产生分隔
		}
	}
	return truncate(b.String(), MaxLen)
}

// truncate cuts at the last hyphen inside the limit so words stay whole.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, '-'); i > 0 {
		cut = cut[:i]
	}
	return strings.Trim(cut, "-")
}

func isASCIIWord(r rune) bool {
	return ('a' <= r && r <= 'z') || ('0' <= r && r <= '9')
}

func isUnicodeWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
