package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"findmyusers/internal/catalog"
	"findmyusers/internal/domain/config"
	"findmyusers/internal/domain/content"
	domainerr "findmyusers/internal/domain/errors"
	"findmyusers/internal/ingest"
	"findmyusers/internal/metrics"
)

// ErrLocked means another regeneration holds the catalog's lock.
var ErrLocked = errors.New("catalog is being regenerated by another process")

// Regenerator runs the build-time pipeline: read every locale's detail files,
// merge them with the existing list, back up and rewrite the list.
type Regenerator struct {
	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type Summary struct {
	RunID    string
	Catalog  string
	ListPath string

	Processed     int
	Skipped       int
	Added         int
	Orphans       int
	Total         int
	Bilingual     int
	PerLocaleOnly int
	Backup        string

	SkippedEntries []catalog.Skip
	OrphanSlugs    []string
	AddedSlugs     []string
	Warnings       []ingest.Warning
}

func (r *Regenerator) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Regenerator) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// RunAll regenerates every configured catalog in order and stops at the
// first failure.
func (r *Regenerator) RunAll(ctx context.Context) ([]*Summary, error) {
	var out []*Summary
	for _, cat := range r.Cfg.Catalogs {
		sum, err := r.Run(ctx, cat.Name)
		if err != nil {
			return out, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (r *Regenerator) Run(ctx context.Context, name string) (*Summary, error) {
	cat, ok := r.Cfg.Catalog(name)
	if !ok {
		return nil, fmt.Errorf("unknown catalog %q", name)
	}
	start := time.Now()
	sum, err := r.run(ctx, cat)
	r.observe(cat.Name, sum, err, time.Since(start))
	return sum, err
}

func (r *Regenerator) run(ctx context.Context, cat config.CatalogConfig) (*Summary, error) {
	runID := uuid.NewString()
	log := r.logger().With(zap.String("run_id", runID), zap.String("catalog", cat.Name))

	listPath := r.Cfg.ListPath(cat, r.Cfg.DefaultLocale)
	sum := &Summary{RunID: runID, Catalog: cat.Name, ListPath: listPath}

	detailRoot := r.Cfg.DetailRoot(cat)
	if st, err := os.Stat(detailRoot); err != nil || !st.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return sum, domainerr.Structural(detailRoot, err)
	}

	if err := os.MkdirAll(filepath.Dir(listPath), 0o755); err != nil {
		return sum, fmt.Errorf("create list dir: %w", err)
	}
	release, err := acquireLock(listPath + ".lock")
	if err != nil {
		return sum, err
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn("failed to release lock", zap.Error(err))
		}
	}()

	codec := NewCodec(r.Cfg, cat)
	existing, err := codec.ReadFile(listPath)
	if err != nil {
		return sum, err
	}

	reader := NewReader(r.Cfg, cat, log)
	details := make(map[content.Locale][]content.DetailRecord, len(r.Cfg.Locales))
	for _, l := range r.Cfg.Locales {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		recs, warns, err := reader.ReadLocale(l)
		if err != nil {
			return sum, domainerr.Structural(reader.LocaleDir(l), err)
		}
		for _, w := range warns {
			log.Warn("detail file skipped", zap.String("path", w.Path), zap.String("reason", w.Msg))
		}
		sum.Warnings = append(sum.Warnings, warns...)
		details[l] = recs
	}

	resolver := ingest.NewTimestampResolver(log)
	resolver.Now = r.now
	merger := &catalog.Merger{
		Locales:   r.Cfg.Locales,
		Validator: NewValidator(r.Cfg, cat),
		Resolver:  resolver,
		Log:       log,
	}
	res := merger.Merge(existing, details)

	// 写之前最后一次检查取消，写入开始后不再中断
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	writer := catalog.NewWriter(codec, log)
	writer.Now = r.now
	backup, err := writer.Write(listPath, res.Entries)
	if err != nil {
		return sum, fmt.Errorf("write catalog: %w", err)
	}

	sum.Processed = res.Processed
	// 读不出来的文件同样计入 skipped
	sum.Skipped = len(res.Skipped) + len(sum.Warnings)
	sum.Added = len(res.Added)
	sum.Orphans = len(res.Orphans)
	sum.Total = len(res.Entries)
	sum.Bilingual = res.Bilingual
	sum.PerLocaleOnly = res.PerLocaleOnly
	sum.Backup = backup
	sum.SkippedEntries = res.Skipped
	sum.OrphanSlugs = res.Orphans
	sum.AddedSlugs = res.Added

	log.Info("catalog regenerated",
		zap.Int("processed", sum.Processed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("added", sum.Added),
		zap.Int("orphans", sum.Orphans),
		zap.Int("total", sum.Total),
		zap.Int("bilingual", sum.Bilingual),
		zap.Int("per_locale_only", sum.PerLocaleOnly),
		zap.String("backup", sum.Backup))
	return sum, nil
}

func (r *Regenerator) observe(catalogName string, sum *Summary, err error, d time.Duration) {
	m := r.Metrics
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, ErrLocked):
		result = "locked"
	case errors.Is(err, domainerr.ErrStructural):
		result = "structural"
	case err != nil:
		result = "error"
	}
	m.RegenerationsTotal.WithLabelValues(catalogName, result).Inc()
	m.RegenerationSeconds.WithLabelValues(catalogName).Observe(d.Seconds())
	if err != nil || sum == nil {
		return
	}
	m.EntriesSkippedTotal.WithLabelValues(catalogName).Add(float64(sum.Skipped))
	m.EntriesAddedTotal.WithLabelValues(catalogName).Add(float64(sum.Added))
	m.OrphansTotal.WithLabelValues(catalogName).Add(float64(sum.Orphans))
	m.CatalogEntries.WithLabelValues(catalogName, string(r.Cfg.DefaultLocale)).Set(float64(sum.Total))
}
