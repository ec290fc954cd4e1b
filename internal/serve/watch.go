package serve

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDirs are the directories whose changes trigger a reload: each
// catalog's list directory and detail tree, plus the fields file's directory.
func (s *Server) watchDirs() []string {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(d string) {
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	for _, cat := range s.cfg.Catalogs {
		for _, l := range s.cfg.Locales {
			add(filepath.Dir(s.cfg.ListPath(cat, l)))
		}
		add(s.cfg.DetailRoot(cat))
	}
	add(filepath.Dir(s.cfg.FieldsPath()))
	return dirs
}

func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = e
			return
		}
		for _, dir := range s.watchDirs() {
			walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return w.Add(path)
				}
				return nil
			})
			// 目录还不存在时跳过，生成后需要重启 serve 才会被监控
			if walkErr != nil && !errors.Is(walkErr, fs.ErrNotExist) {
				// 循环没启动，Close 不能再等 watchDone
				err = errors.Join(walkErr, w.Close())
				return
			}
		}

		s.watcher = w
		s.watchDone = make(chan struct{})
		go s.watchLoop(ctx)
	})
	return err
}

func (s *Server) watchLoop(ctx context.Context) {
	defer close(s.watchDone)
	s.log.Info("watching for file changes", zap.Strings("dirs", s.watcher.WatchList()))

	delay := s.cfg.Serve.Debounce
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	trigger := func() {
		if !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(delay)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					_ = s.watcher.Add(ev.Name)
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				trigger()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", zap.Error(err))
		case <-debounce.C:
			ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
			if _, err := s.Reload(ctx2, false); err != nil {
				s.log.Error("reload failed", zap.Error(err))
			}
			cancel()
		}
	}
}
