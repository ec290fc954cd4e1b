package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"findmyusers/internal/domain/content"
)

const maxBackupAttempts = 1000

// Writer persists a catalog: the current file is copied to
// <path>.backup.<epoch-millis> first, then the new content replaces it via a
// temp file and rename in the same directory.
type Writer struct {
	Codec ListCodec
	Now   func() time.Time
	Log   *zap.Logger
}

func NewWriter(codec ListCodec, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{Codec: codec, Now: time.Now, Log: log}
}

// Write returns the backup path, or "" when there was no file to back up.
func (w *Writer) Write(path string, entries []content.CatalogEntry) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	backup, err := w.backup(path)
	if err != nil {
		return "", err
	}

	data := w.Codec.Encode(entries)
	if err := writeAtomic(path, data); err != nil {
		return backup, err
	}
	w.Log.Info("catalog written",
		zap.String("path", path),
		zap.Int("entries", len(entries)),
		zap.String("backup", backup))
	return backup, nil
}

// backup 不覆盖已有备份：文件名冲突时毫秒数加一
func (w *Writer) backup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	ms := w.Now().UnixMilli()
	for range maxBackupAttempts {
		name := path + ".backup." + strconv.FormatInt(ms, 10)
		dst, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			ms++
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create backup %s: %w", name, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			os.Remove(name)
			return "", fmt.Errorf("copy backup %s: %w", name, err)
		}
		if err := dst.Close(); err != nil {
			os.Remove(name)
			return "", fmt.Errorf("close backup %s: %w", name, err)
		}
		return name, nil
	}
	return "", fmt.Errorf("backup %s: no free name after %d attempts", path, maxBackupAttempts)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
