package index

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is the read-side snapshot of projected catalogs. It is rebuilt from
// the files on disk and never written back to them.
type Store struct {
	db *bolt.DB
}

type OpenOptions struct {
	Path string // e.g. ".findmyusers/index.db"
}

func Open(opt OpenOptions) (*Store, error) {
	if opt.Path == "" {
		return nil, errors.New("index: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(opt.Path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Fingerprint returns the input hash recorded by the last SetFingerprint.
func (s *Store) Fingerprint() (string, time.Time, error) {
	var (
		fp      string
		builtAt time.Time
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bMeta)
		if b == nil {
			return nil
		}
		fp = string(b.Get(kFingerprint))
		if v := b.Get(kBuiltAt); v != nil {
			if t, err := time.Parse(time.RFC3339Nano, string(v)); err == nil {
				builtAt = t
			}
		}
		return nil
	})
	return fp, builtAt, err
}

func (s *Store) SetFingerprint(fp string, builtAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bMeta)
		if err != nil {
			return err
		}
		if err := b.Put(kFingerprint, []byte(fp)); err != nil {
			return err
		}
		return b.Put(kBuiltAt, []byte(builtAt.UTC().Format(time.RFC3339Nano)))
	})
}
