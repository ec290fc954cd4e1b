package index

import (
	"encoding/json"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"findmyusers/internal/domain/content"
)

// Rebuild replaces the snapshot of one catalog in one locale. entries are
// expected in display order; that order breaks ties between equal times.
func (s *Store) Rebuild(catalog string, l content.Locale, entries []content.MergedEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		parent, err := tx.CreateBucketIfNotExists(bCatalogs)
		if err != nil {
			return err
		}
		ns := namespace(catalog, string(l))
		if parent.Bucket(ns) != nil {
			if err := parent.DeleteBucket(ns); err != nil {
				return err
			}
		}
		root, err := parent.CreateBucket(ns)
		if err != nil {
			return err
		}

		entriesB, _ := root.CreateBucket(bEntries)
		idxCreatedB, _ := root.CreateBucket(bIdxCreated)
		idxUpdatedB, _ := root.CreateBucket(bIdxUpdated)
		idxCatB, _ := root.CreateBucket(bIdxCat)
		idxTagB, _ := root.CreateBucket(bIdxTag)

		for seq, e := range entries {
			if strings.TrimSpace(e.Slug) == "" {
				continue
			}
			if entriesB.Get([]byte(e.Slug)) != nil {
				continue
			}
			eb, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("index %s: %w", e.Slug, err)
			}
			if err := entriesB.Put([]byte(e.Slug), eb); err != nil {
				return err
			}

			cKey := makeTimeSeqSlugKey(e.CreatedAt.Time(), seq, e.Slug)
			if err := idxCreatedB.Put(cKey, []byte{1}); err != nil {
				return err
			}
			uKey := makeTimeSeqSlugKey(e.ModifiedAt.Time(), seq, e.Slug)
			if err := idxUpdatedB.Put(uKey, []byte{1}); err != nil {
				return err
			}

			if e.Detail == nil {
				continue
			}
			if cat := strings.TrimSpace(e.Detail.Category); cat != "" {
				sb, err := idxCatB.CreateBucketIfNotExists([]byte(strings.ToLower(cat)))
				if err != nil {
					return err
				}
				if err := sb.Put(cKey, []byte{1}); err != nil {
					return err
				}
			}
			for _, tag := range e.Detail.Tags {
				tag = strings.TrimSpace(strings.ToLower(tag))
				if tag == "" {
					continue
				}
				sb, err := idxTagB.CreateBucketIfNotExists([]byte(tag))
				if err != nil {
					return err
				}
				if err := sb.Put(cKey, []byte{1}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
