package ingest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"findmyusers/internal/domain/content"
)

type SourceFile struct {
	Path   string
	Stem   string
	Locale content.Locale
}

// DiscoverLocale lists detail files of one locale directory in name order.
// A missing locale directory is not an error: that locale simply has no records.
func DiscoverLocale(dir string, locale content.Locale, format content.Format) ([]SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []SourceFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !matchesFormat(ext, format) {
			continue
		}
		out = append(out, SourceFile{
			Path:   filepath.Join(dir, name),
			Stem:   strings.TrimSuffix(name, filepath.Ext(name)),
			Locale: locale,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func matchesFormat(ext string, format content.Format) bool {
	switch format {
	case content.FormatMarkdown:
		return ext == ".md" || ext == ".markdown"
	default:
		return ext == ".json"
	}
}
