package content

import (
	"strings"
	"time"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return ".json"
}

// CatalogEntry is one row of a list file.
type CatalogEntry struct {
	Slug       string
	Names      map[Locale]string
	Summaries  map[Locale]string
	CreatedAt  Timestamp
	ModifiedAt Timestamp
}

func (e CatalogEntry) Name(l Locale) string {
	return strings.TrimSpace(e.Names[l])
}

func (e CatalogEntry) Summary(l Locale) string {
	return strings.TrimSpace(e.Summaries[l])
}

// HasName reports whether at least one localized name is present.
func (e CatalogEntry) HasName() bool {
	for _, n := range e.Names {
		if strings.TrimSpace(n) != "" {
			return true
		}
	}
	return false
}

// DetailRecord is the full payload of one slug in one locale.
type DetailRecord struct {
	Slug   string `json:"slug"`
	Locale Locale `json:"locale"`

	// Names carried by the file; Names[Locale] is the record's own name.
	Names map[Locale]string `json:"names,omitempty"`

	Description        string   `json:"description,omitempty"`
	URL                string   `json:"url,omitempty"`
	Status             string   `json:"status,omitempty"`
	Type               string   `json:"type,omitempty"`
	Region             string   `json:"region,omitempty"`
	Category           string   `json:"category,omitempty"`
	SubmitMethod       string   `json:"submitMethod,omitempty"`
	SubmitURL          string   `json:"submitUrl,omitempty"`
	SubmitRequirements string   `json:"submitRequirements,omitempty"`
	Review             string   `json:"review,omitempty"`
	ReviewTime         string   `json:"reviewTime,omitempty"`
	ExpectedExposure   string   `json:"expectedExposure,omitempty"`
	Rating             string   `json:"rating,omitempty"`
	Date               string   `json:"date,omitempty"`
	Tags               []string `json:"tags,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`

	Format      Format    `json:"format"`
	Path        string    `json:"-"`
	Body        []byte    `json:"-"`
	ContentHash string    `json:"contentHash,omitempty"`
	ModTime     time.Time `json:"-"`
}

func (d DetailRecord) Name() string {
	return strings.TrimSpace(d.Names[d.Locale])
}

// MergedEntry is what a reader of one locale sees: the list row combined with
// the detail record of that locale, or of the default locale when missing.
type MergedEntry struct {
	Slug             string            `json:"slug"`
	Locale           Locale            `json:"locale"`
	ContentLocale    Locale            `json:"contentLocale"`
	NeedsTranslation bool              `json:"needsTranslation"`
	Name             string            `json:"name"`
	Names            map[Locale]string `json:"names,omitempty"`
	Description      string            `json:"description,omitempty"`
	CreatedAt        Timestamp         `json:"date"`
	ModifiedAt       Timestamp         `json:"lastModified"`
	Detail           *DetailRecord     `json:"detail,omitempty"`
}

// Entry returns the list-shaped view used by the validator.
func (m MergedEntry) Entry() CatalogEntry {
	names := make(map[Locale]string, len(m.Names)+1)
	for l, n := range m.Names {
		names[l] = n
	}
	// a substituted name is the default locale's, already present in Names
	if m.Name != "" && (!m.NeedsTranslation || len(names) == 0) {
		names[m.Locale] = m.Name
	}
	return CatalogEntry{
		Slug:       m.Slug,
		Names:      names,
		CreatedAt:  m.CreatedAt,
		ModifiedAt: m.ModifiedAt,
	}
}
