package fields

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"findmyusers/internal/cache"
	"findmyusers/internal/domain/content"
)

// Unified is the on-disk shape: field -> key -> locale -> label.
type Unified map[string]map[string]map[string]string

// Options is one locale's projection: field -> key -> label.
type Options map[string]map[string]string

type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Project picks the label of l for every key, falling back to the default
// locale's label.
func Project(u Unified, l, def content.Locale) Options {
	out := make(Options, len(u))
	for field, values := range u {
		m := make(map[string]string, len(values))
		for key, tr := range values {
			label := tr[string(l)]
			if label == "" {
				label = tr[string(def)]
			}
			m[key] = label
		}
		out[field] = m
	}
	return out
}

// Store serves the site-field labels (status, region, submitMethod, ...) per
// locale. Projections are cached; call Invalidate when the file changes.
type Store struct {
	path          string
	defaultLocale content.Locale
	cache         *cache.Cache[Options]
}

func NewStore(path string, def content.Locale, c *cache.Cache[Options]) *Store {
	if c == nil {
		c = cache.New[Options](0, nil)
	}
	return &Store{path: path, defaultLocale: def, cache: c}
}

func (s *Store) Invalidate() { s.cache.Invalidate() }

// Load returns the projection for l. A missing file yields empty options.
func (s *Store) Load(ctx context.Context, l content.Locale) (Options, error) {
	return s.cache.Get(ctx, string(l), func(context.Context) (Options, error) {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return Options{}, nil
			}
			return nil, fmt.Errorf("fields: read %s: %w", s.path, err)
		}
		var u Unified
		if err := json.Unmarshal(data, &u); err != nil {
			return nil, fmt.Errorf("fields: parse %s: %w", s.path, err)
		}
		return Project(u, l, s.defaultLocale), nil
	})
}

// DisplayText returns the label for value, or value itself when unknown.
func (s *Store) DisplayText(ctx context.Context, field, value string, l content.Locale) string {
	opts, err := s.Load(ctx, l)
	if err != nil {
		return value
	}
	if label := opts[field][value]; label != "" {
		return label
	}
	return value
}

// Options lists the keys of one field, sorted by key.
func (s *Store) Options(ctx context.Context, field string, l content.Locale) ([]Option, error) {
	opts, err := s.Load(ctx, l)
	if err != nil {
		return nil, err
	}
	values := opts[field]
	out := make([]Option, 0, len(values))
	for k, v := range values {
		out = append(out, Option{Key: k, Label: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
