package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"findmyusers/internal/domain/content"
	domainerr "findmyusers/internal/domain/errors"
)

// ListCodec reads and writes the slim list file:
//
//	[{"slug": "...", "name_zh": "...", "name_en": "...", "date": "...", "lastModified": "..."}]
//
// NameField/SummaryField are the key prefixes ("name" for sites, "title" and
// "description" for articles).
type ListCodec struct {
	NameField     string
	SummaryField  string
	Locales       []content.Locale
	DefaultLocale content.Locale
}

// ReadFile loads a list file. A missing file is an empty list; a file whose
// JSON root is not an array of objects is a structural failure.
func (c ListCodec) ReadFile(path string) ([]content.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	entries, err := c.Decode(data)
	if err != nil {
		return nil, domainerr.Structural(path, err)
	}
	return entries, nil
}

func (c ListCodec) Decode(data []byte) ([]content.CatalogEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("list root must be an array of objects: %w", err)
	}

	out := make([]content.CatalogEntry, 0, len(rows))
	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("list item %d is not an object", i)
		}
		e := content.CatalogEntry{
			Slug:       strings.TrimSpace(str(row["slug"])),
			Names:      make(map[content.Locale]string),
			Summaries:  make(map[content.Locale]string),
			CreatedAt:  content.ParseTimestamp(str(row["date"])),
			ModifiedAt: content.ParseTimestamp(str(row["lastModified"])),
		}
		for _, l := range c.Locales {
			if v := str(row[c.nameField()+"_"+string(l)]); v != "" {
				e.Names[l] = v
			}
			if c.SummaryField != "" {
				if v := str(row[c.SummaryField+"_"+string(l)]); v != "" {
					e.Summaries[l] = v
				}
			}
		}
		// 旧格式只有一个不带语言后缀的 name，归到默认语言
		if _, ok := e.Names[c.DefaultLocale]; !ok {
			if v := str(row[c.nameField()]); v != "" {
				e.Names[c.DefaultLocale] = v
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// Encode writes entries with a fixed key order and two-space indentation,
// omitting empty values.
func (c ListCodec) Encode(entries []content.CatalogEntry) []byte {
	var b bytes.Buffer
	if len(entries) == 0 {
		b.WriteString("[]\n")
		return b.Bytes()
	}

	b.WriteString("[\n")
	for i, e := range entries {
		var fields [][2]string
		fields = append(fields, [2]string{"slug", e.Slug})
		for _, l := range c.Locales {
			if v := e.Name(l); v != "" {
				fields = append(fields, [2]string{c.nameField() + "_" + string(l), v})
			}
		}
		if c.SummaryField != "" {
			for _, l := range c.Locales {
				if v := e.Summary(l); v != "" {
					fields = append(fields, [2]string{c.SummaryField + "_" + string(l), v})
				}
			}
		}
		if !e.CreatedAt.IsZero() {
			fields = append(fields, [2]string{"date", e.CreatedAt.String()})
		}
		if !e.ModifiedAt.IsZero() {
			fields = append(fields, [2]string{"lastModified", e.ModifiedAt.String()})
		}

		b.WriteString("  {\n")
		for j, f := range fields {
			b.WriteString("    ")
			b.WriteString(quote(f[0]))
			b.WriteString(": ")
			b.WriteString(quote(f[1]))
			if j < len(fields)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString("  }")
		if i < len(entries)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("]\n")
	return b.Bytes()
}

func (c ListCodec) nameField() string {
	if c.NameField == "" {
		return "name"
	}
	return c.NameField
}

// quote matches JSON.stringify: no HTML escaping.
func quote(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
