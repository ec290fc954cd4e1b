package build

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"findmyusers/internal/ingest"
)

type PruneCandidate struct {
	Path   string
	Reason string
}

type PruneResult struct {
	Candidates []PruneCandidate
	Deleted    []string
}

// Prune finds detail files whose names look like leaked form text rather
// than a product name. Files are only removed when remove is true.
func (r *Regenerator) Prune(ctx context.Context, name string, remove bool) (*PruneResult, error) {
	cat, ok := r.Cfg.Catalog(name)
	if !ok {
		return nil, fmt.Errorf("unknown catalog %q", name)
	}
	log := r.logger().With(zap.String("catalog", cat.Name))
	v := NewValidator(r.Cfg, cat)
	reader := NewReader(r.Cfg, cat, log)

	res := &PruneResult{}
	for _, l := range r.Cfg.Locales {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		files, err := ingest.DiscoverLocale(reader.LocaleDir(l), l, cat.Format)
		if err != nil {
			return res, fmt.Errorf("discover %s: %w", reader.LocaleDir(l), err)
		}
		for _, sf := range files {
			ok, reason := v.CheckFilename(sf.Stem)
			if ok {
				continue
			}
			res.Candidates = append(res.Candidates, PruneCandidate{Path: sf.Path, Reason: reason})
			if !remove {
				log.Info("would delete", zap.String("path", sf.Path), zap.String("reason", reason))
				continue
			}
			if err := os.Remove(sf.Path); err != nil {
				return res, fmt.Errorf("delete %s: %w", sf.Path, err)
			}
			res.Deleted = append(res.Deleted, sf.Path)
			log.Info("deleted", zap.String("path", sf.Path), zap.String("reason", reason))
		}
	}
	return res, nil
}
