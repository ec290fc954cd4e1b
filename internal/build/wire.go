package build

import (
	"go.uber.org/zap"

	"findmyusers/internal/catalog"
	"findmyusers/internal/domain/config"
	"findmyusers/internal/domain/content"
	"findmyusers/internal/ingest"
	"findmyusers/internal/validate"
)

// Components built from the configuration of one catalog.

func NewReader(cfg config.Config, cat config.CatalogConfig, log *zap.Logger) *ingest.Reader {
	return ingest.NewReader(ingest.ReaderOptions{
		Dir:          cfg.DetailRoot(cat),
		Format:       cat.Format,
		NameField:    cat.NameField,
		SummaryField: cat.SummaryField,
		Locales:      cfg.Locales,
		Log:          log,
	})
}

func NewCodec(cfg config.Config, cat config.CatalogConfig) catalog.ListCodec {
	return catalog.ListCodec{
		NameField:     cat.NameField,
		SummaryField:  cat.SummaryField,
		Locales:       cfg.Locales,
		DefaultLocale: cfg.DefaultLocale,
	}
}

func NewValidator(cfg config.Config, cat config.CatalogConfig) *validate.Validator {
	return validate.New(cfg.Validation, cat.SlugMaxLen)
}

func NewProjector(cfg config.Config, cat config.CatalogConfig, log *zap.Logger) *catalog.Projector {
	return &catalog.Projector{
		Codec: NewCodec(cfg, cat),
		ListPath: func(l content.Locale) string {
			return cfg.ListPath(cat, l)
		},
		Details:       NewReader(cfg, cat, log),
		DefaultLocale: cfg.DefaultLocale,
		Validator:     NewValidator(cfg, cat),
		Log:           log,
	}
}
