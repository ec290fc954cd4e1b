package index

import (
	"encoding/json"
	"errors"
	"strings"

	bolt "go.etcd.io/bbolt"

	"findmyusers/internal/domain/content"
)

var ErrNotFound = errors.New("not found")

type SortMode string

const (
	SortCreated SortMode = "created"
	SortUpdated SortMode = "updated"
)

func ParseSortMode(s string) SortMode {
	if strings.EqualFold(strings.TrimSpace(s), string(SortUpdated)) {
		return SortUpdated
	}
	return SortCreated
}

type ListOptions struct {
	Sort     SortMode
	Page     int
	Size     int
	Category string
	Tag      string
}

type Page struct {
	Items []content.MergedEntry `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func (s *Store) Get(catalog string, l content.Locale, slug string) (content.MergedEntry, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return content.MergedEntry{}, ErrNotFound
	}
	var m content.MergedEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		root := nsBucket(tx, catalog, l)
		if root == nil {
			return ErrNotFound
		}
		b := root.Bucket(bEntries)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(slug))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &m)
	})
	return m, err
}

// List pages through one catalog newest first, by created or updated time.
// Category and Tag narrow the listing to the created-ordered sub-index.
func (s *Store) List(catalog string, l content.Locale, opt ListOptions) (Page, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)
	out := Page{Page: opt.Page, Size: opt.Size}

	err := s.db.View(func(tx *bolt.Tx) error {
		root := nsBucket(tx, catalog, l)
		if root == nil {
			return nil
		}
		entriesB := root.Bucket(bEntries)
		idx := pickIndex(root, opt)
		if idx == nil || entriesB == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := idx.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromTimeSeqSlugKey(k)
			if slug == "" {
				continue
			}
			v := entriesB.Get([]byte(slug))
			if v == nil {
				continue
			}
			out.Total++
			if skip > 0 {
				skip--
				continue
			}
			if len(out.Items) >= opt.Size {
				continue
			}
			var m content.MergedEntry
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			out.Items = append(out.Items, m)
		}
		return nil
	})
	return out, err
}

func pickIndex(root *bolt.Bucket, opt ListOptions) *bolt.Bucket {
	if cat := strings.TrimSpace(strings.ToLower(opt.Category)); cat != "" {
		parent := root.Bucket(bIdxCat)
		if parent == nil {
			return nil
		}
		return parent.Bucket([]byte(cat))
	}
	if tag := strings.TrimSpace(strings.ToLower(opt.Tag)); tag != "" {
		parent := root.Bucket(bIdxTag)
		if parent == nil {
			return nil
		}
		return parent.Bucket([]byte(tag))
	}
	if opt.Sort == SortUpdated {
		return root.Bucket(bIdxUpdated)
	}
	return root.Bucket(bIdxCreated)
}

func nsBucket(tx *bolt.Tx, catalog string, l content.Locale) *bolt.Bucket {
	parent := tx.Bucket(bCatalogs)
	if parent == nil {
		return nil
	}
	return parent.Bucket(namespace(catalog, string(l)))
}
