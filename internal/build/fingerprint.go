package build

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	domainbuild "findmyusers/internal/domain/build"
	"findmyusers/internal/domain/config"
)

// InputFingerprint hashes the stat data (path, size, mtime) of every list
// file, every detail file and the fields file, plus the configuration. File
// contents are not read, so a reload check stays cheap on large catalogs.
func InputFingerprint(cfg config.Config) (domainbuild.Fingerprint, error) {
	var fp domainbuild.Fingerprint

	lists := blake3.New()
	details := blake3.New()
	for _, cat := range cfg.Catalogs {
		for _, l := range cfg.Locales {
			if err := statInto(lists, cfg.ListPath(cat, l)); err != nil {
				return fp, err
			}
		}
		root := cfg.DetailRoot(cat)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == root {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			return statInto(details, path)
		})
		if err != nil {
			return fp, fmt.Errorf("fingerprint %s: %w", root, err)
		}
	}
	fp.ListHash = hex.EncodeToString(lists.Sum(nil))
	fp.DetailHash = hex.EncodeToString(details.Sum(nil))

	fields := blake3.New()
	if err := statInto(fields, cfg.FieldsPath()); err != nil {
		return fp, err
	}
	fp.FieldsHash = hex.EncodeToString(fields.Sum(nil))

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fp, fmt.Errorf("fingerprint config: %w", err)
	}
	sum := blake3.Sum256(raw)
	fp.ConfigHash = hex.EncodeToString(sum[:])

	fp.ComputeInputHash()
	return fp, nil
}

// statInto writes path/size/mtime into h. Missing files hash as the path
// alone so that creating one changes the result.
func statInto(h *blake3.Hasher, path string) error {
	h.Write([]byte(path))
	h.Write([]byte{0})
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(st.Size()))
	binary.BigEndian.PutUint64(buf[8:], uint64(st.ModTime().UnixNano()))
	h.Write(buf[:])
	return nil
}
