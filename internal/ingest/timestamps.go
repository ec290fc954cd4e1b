package ingest

import (
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"findmyusers/internal/domain/content"
)

// TimestampResolver decides created/modified values for a detail file.
//
// A created value that was already recorded is never changed. Modified is
// always the file's current mtime. A file that cannot be stat'ed degrades to
// "now" for both, with a warning.
type TimestampResolver struct {
	Log  *zap.Logger
	Now  func() time.Time
	Stat func(string) (fs.FileInfo, error)
}

func NewTimestampResolver(log *zap.Logger) *TimestampResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &TimestampResolver{
		Log:  log,
		Now:  time.Now,
		Stat: os.Stat,
	}
}

func (r *TimestampResolver) Resolve(path string, prior *content.CatalogEntry) content.Times {
	var out content.Times

	st, err := r.Stat(path)
	if err != nil {
		r.Log.Warn("could not stat detail file, using current time",
			zap.String("path", path), zap.Error(err))
		now := content.NewTimestamp(r.Now())
		out = content.Times{CreatedAt: now, ModifiedAt: now}
	} else {
		mt := content.NewTimestamp(st.ModTime())
		// 出生时间不可移植，新条目的创建时间取 mtime
		out = content.Times{CreatedAt: mt, ModifiedAt: mt}
	}

	if prior != nil && !prior.CreatedAt.IsZero() {
		out.CreatedAt = prior.CreatedAt
	}
	return out
}
