package index

import (
	"sort"

	bolt "go.etcd.io/bbolt"

	"findmyusers/internal/domain/content"
)

type FacetCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Facets struct {
	Categories []FacetCount `json:"categories"`
	Tags       []FacetCount `json:"tags"`
}

// Facets counts entries per category and per tag.
func (s *Store) Facets(catalog string, l content.Locale) (Facets, error) {
	var out Facets
	err := s.db.View(func(tx *bolt.Tx) error {
		root := nsBucket(tx, catalog, l)
		if root == nil {
			return nil
		}
		var err error
		if out.Categories, err = countSubBuckets(root.Bucket(bIdxCat)); err != nil {
			return err
		}
		out.Tags, err = countSubBuckets(root.Bucket(bIdxTag))
		return err
	})
	return out, err
}

func countSubBuckets(parent *bolt.Bucket) ([]FacetCount, error) {
	if parent == nil {
		return nil, nil
	}
	var stats []FacetCount
	err := parent.ForEachBucket(func(k []byte) error {
		n := 0
		c := parent.Bucket(k).Cursor()
		for key, _ := c.First(); key != nil; key, _ = c.Next() {
			n++
		}
		stats = append(stats, FacetCount{Name: string(k), Count: n})
		return nil
	})
	if err != nil {
		return nil, err
	}
	// 按数量降序，数量相同按名字排序
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].Count > stats[j].Count
	})
	return stats, nil
}
