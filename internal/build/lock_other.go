//go:build !unix

package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// 没有 flock 的平台用 O_EXCL 锁文件代替，进程崩溃后需要手动删除
func acquireLock(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("create lock %s: %w", path, err)
	}
	return func() error {
		cerr := f.Close()
		rerr := os.Remove(path)
		return errors.Join(cerr, rerr)
	}, nil
}
