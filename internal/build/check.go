package build

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"findmyusers/internal/catalog"
	"findmyusers/internal/domain/content"
	domainerr "findmyusers/internal/domain/errors"
)

// Check reports how far the list of catalog name has drifted from its detail
// files. Nothing is written.
func (r *Regenerator) Check(ctx context.Context, name string) (catalog.Report, error) {
	cat, ok := r.Cfg.Catalog(name)
	if !ok {
		return catalog.Report{}, fmt.Errorf("unknown catalog %q", name)
	}
	log := r.logger().With(zap.String("catalog", cat.Name))

	codec := NewCodec(r.Cfg, cat)
	list, err := codec.ReadFile(r.Cfg.ListPath(cat, r.Cfg.DefaultLocale))
	if err != nil {
		return catalog.Report{}, err
	}

	reader := NewReader(r.Cfg, cat, log)
	details := make(map[content.Locale][]content.DetailRecord, len(r.Cfg.Locales))
	for _, l := range r.Cfg.Locales {
		if err := ctx.Err(); err != nil {
			return catalog.Report{}, err
		}
		recs, warns, err := reader.ReadLocale(l)
		if err != nil {
			return catalog.Report{}, domainerr.Structural(reader.LocaleDir(l), err)
		}
		for _, w := range warns {
			log.Debug("detail file ignored", zap.String("path", w.Path), zap.String("reason", w.Msg))
		}
		details[l] = recs
	}

	rep := catalog.Check(list, details, r.Cfg.Locales, NewValidator(r.Cfg, cat))
	log.Info("catalog checked",
		zap.Int("list_entries", rep.ListEntries),
		zap.Int("missing_from_list", len(rep.MissingFromList)),
		zap.Int("orphans", len(rep.Orphans)),
		zap.Int("duplicates", len(rep.Duplicates)),
		zap.Int("invalid", len(rep.Invalid)),
		zap.Bool("clean", rep.Clean()))
	return rep, nil
}
