package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"findmyusers/internal/build"
	"findmyusers/internal/cache"
	"findmyusers/internal/catalog"
	"findmyusers/internal/domain/config"
	"findmyusers/internal/domain/content"
	"findmyusers/internal/fields"
	"findmyusers/internal/index"
	"findmyusers/internal/ingest"
	"findmyusers/internal/metrics"
	"findmyusers/internal/render"
)

// Server is the read side: a bbolt snapshot of every catalog/locale pair,
// rebuilt from the list and detail files whenever their fingerprint changes.
type Server struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics

	idx        *index.Store
	md         *render.MarkdownRenderer
	matcher    *content.LocaleMatcher
	projectors map[string]*catalog.Projector
	readers    map[string]*ingest.Reader
	pages      *cache.Cache[index.Page]
	fields     *fields.Store

	reloadMu sync.Mutex

	sseMu    sync.Mutex
	sseConns map[chan string]struct{}

	watcher   *fsnotify.Watcher
	watchOnce sync.Once
	watchDone chan struct{}
}

type Options struct {
	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func New(opt Options) (*Server, error) {
	cfg := opt.Config
	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := opt.Metrics
	if m == nil {
		m = metrics.New()
	}

	st, err := index.Open(index.OpenOptions{Path: cfg.Serve.IndexPath})
	if err != nil {
		return nil, fmt.Errorf("serve: failed to open index: %w", err)
	}

	locales := make([]content.Locale, 0, len(cfg.Locales))
	locales = append(locales, cfg.DefaultLocale)
	for _, l := range cfg.Locales {
		if l != cfg.DefaultLocale {
			locales = append(locales, l)
		}
	}

	s := &Server{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		idx:        st,
		md:         render.NewMarkdownRenderer(),
		matcher:    content.NewLocaleMatcher(locales),
		projectors: make(map[string]*catalog.Projector, len(cfg.Catalogs)),
		readers:    make(map[string]*ingest.Reader, len(cfg.Catalogs)),
		sseConns:   make(map[chan string]struct{}),
	}
	s.pages = cache.New[index.Page](cfg.Serve.CacheTTL, s.observer("pages"))
	s.fields = fields.NewStore(cfg.FieldsPath(), cfg.DefaultLocale,
		cache.New[fields.Options](cfg.Serve.CacheTTL, s.observer("fields")))

	for _, cat := range cfg.Catalogs {
		clog := log.With(zap.String("catalog", cat.Name))
		s.projectors[cat.Name] = build.NewProjector(cfg, cat, clog)
		s.readers[cat.Name] = build.NewReader(cfg, cat, clog)
	}
	return s, nil
}

func (s *Server) observer(name string) cache.Observer {
	return func(hit bool) {
		result := "miss"
		if hit {
			result = "hit"
		}
		s.metrics.CacheRequestsTotal.WithLabelValues(name, result).Inc()
	}
}

func (s *Server) Close() error {
	var werr error
	if s.watcher != nil {
		werr = s.watcher.Close()
		if s.watchDone != nil {
			<-s.watchDone
		}
	}
	if s.idx != nil {
		return errors.Join(werr, s.idx.Close())
	}
	return werr
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if _, err := s.Reload(ctx, false); err != nil {
		return err
	}

	if s.cfg.Serve.Watch {
		if err := s.startWatch(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Serve.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 支持 ctx 取消
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.Serve.Addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Reload rebuilds the snapshot when the input fingerprint differs from the
// stored one, or unconditionally when force is set. It reports whether a
// rebuild happened.
func (s *Server) Reload(ctx context.Context, force bool) (bool, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	rebuilt, err := s.reload(ctx, force)
	result := "unchanged"
	switch {
	case err != nil:
		result = "error"
	case rebuilt:
		result = "rebuilt"
	}
	s.metrics.ReloadsTotal.WithLabelValues(result).Inc()
	return rebuilt, err
}

func (s *Server) reload(ctx context.Context, force bool) (bool, error) {
	fp, err := build.InputFingerprint(s.cfg)
	if err != nil {
		return false, err
	}
	prev, _, err := s.idx.Fingerprint()
	if err != nil {
		return false, fmt.Errorf("read fingerprint: %w", err)
	}
	if !force && prev == fp.InputHash {
		s.log.Debug("inputs unchanged, snapshot kept", zap.String("fingerprint", prev))
		return false, nil
	}

	start := time.Now()
	total := 0
	for _, cat := range s.cfg.Catalogs {
		proj := s.projectors[cat.Name]
		for _, l := range s.cfg.Locales {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			entries, err := proj.List(l)
			if err != nil {
				return false, fmt.Errorf("project %s/%s: %w", cat.Name, l, err)
			}
			if err := s.idx.Rebuild(cat.Name, l, entries); err != nil {
				return false, fmt.Errorf("index %s/%s: %w", cat.Name, l, err)
			}
			s.metrics.CatalogEntries.WithLabelValues(cat.Name, string(l)).Set(float64(len(entries)))
			total += len(entries)
		}
	}
	if err := s.idx.SetFingerprint(fp.InputHash, time.Now()); err != nil {
		return false, fmt.Errorf("store fingerprint: %w", err)
	}

	s.pages.Invalidate()
	s.fields.Invalidate()

	s.log.Info("snapshot rebuilt",
		zap.Int("entries", total),
		zap.String("fingerprint", fp.InputHash),
		zap.Duration("took", time.Since(start)))
	s.broadcastSSE("reload")
	return true, nil
}
