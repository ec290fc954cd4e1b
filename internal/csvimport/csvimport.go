package csvimport

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"findmyusers/internal/domain/content"
	"findmyusers/internal/slug"
)

// SiteRecord is the detail JSON written for one CSV row. Field order is the
// file's key order.
type SiteRecord struct {
	NameZH               string `json:"name_zh,omitempty"`
	NameEN               string `json:"name_en,omitempty"`
	DescriptionZH        string `json:"description_zh,omitempty"`
	DescriptionEN        string `json:"description_en,omitempty"`
	Status               string `json:"status"`
	Type                 string `json:"type"`
	Region               string `json:"region"`
	URL                  string `json:"url,omitempty"`
	SubmitMethod         string `json:"submitMethod"`
	SubmitURL            string `json:"submitUrl,omitempty"`
	SubmitRequirementsZH string `json:"submitRequirements_zh,omitempty"`
	SubmitRequirementsEN string `json:"submitRequirements_en,omitempty"`
	Review               string `json:"review"`
	ReviewTime           string `json:"reviewTime"`
	ExpectedExposure     string `json:"expectedExposure"`
	RatingZH             string `json:"rating_zh,omitempty"`
	RatingEN             string `json:"rating_en,omitempty"`
}

func (r SiteRecord) name(l content.Locale) string {
	switch l {
	case content.LocaleZH:
		return r.NameZH
	case content.LocaleEN:
		return r.NameEN
	}
	return ""
}

type Skip struct {
	Line   int
	Reason string
}

type Result struct {
	Written []string
	Exists  []string
	Skipped []Skip
}

// Importer turns rows of name_zh,name_en,description_zh,... into detail JSON
// files, one per locale that has a name.
type Importer struct {
	DetailDir string
	Locales   []content.Locale
	Overwrite bool
	Log       *zap.Logger
}

func (im *Importer) logger() *zap.Logger {
	if im.Log == nil {
		return zap.NewNop()
	}
	return im.Log
}

func (im *Importer) ImportFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(f)
}

func (im *Importer) Import(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[h] = i
	}

	var res Result
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			// 单元格里的换行统一成空格
			return strings.TrimSpace(strings.ReplaceAll(row[i], "\n", " "))
		}

		rec := convert(get)
		key := slug.GenerateWithFallback(rec.NameEN, rec.NameZH)
		var reason string
		switch {
		case rec.NameZH == "" && rec.NameEN == "":
			reason = "no name"
		case slug.IsSentinel(key):
			reason = "no usable slug"
		case !slug.Valid(key, slug.MaxLen):
			// 中文回退出来的 slug 不能作为目录键
			reason = "slug " + key + " is not canonical"
		}
		if reason != "" {
			res.Skipped = append(res.Skipped, Skip{Line: line, Reason: reason})
			im.logger().Warn("csv row skipped", zap.Int("line", line), zap.String("reason", reason))
			continue
		}

		if err := im.writeRecord(key, rec, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (im *Importer) writeRecord(key string, rec SiteRecord, res *Result) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	for _, l := range im.Locales {
		if rec.name(l) == "" {
			continue
		}
		path := filepath.Join(im.DetailDir, string(l), key+".json")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if !im.Overwrite {
			flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if errors.Is(err, fs.ErrExist) {
			res.Exists = append(res.Exists, path)
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		res.Written = append(res.Written, path)
		im.logger().Info("detail file written", zap.String("path", path), zap.String("slug", key))
	}
	return nil
}

func convert(get func(string) string) SiteRecord {
	return SiteRecord{
		NameZH:               get("name_zh"),
		NameEN:               get("name_en"),
		DescriptionZH:        get("description_zh"),
		DescriptionEN:        get("description_en"),
		Status:               or(get("running"), get("status"), "running"),
		Type:                 or(get("type"), "blog_newsletter"),
		Region:               or(get("region"), "domestic"),
		URL:                  get("url"),
		SubmitMethod:         or(get("submitMethod"), "email"),
		SubmitURL:            get("submitUrl"),
		SubmitRequirementsZH: get("submitRequirements_zh"),
		SubmitRequirementsEN: get("submitRequirements_en"),
		Review:               mapReview(get("review")),
		ReviewTime:           or(get("reviewTime"), "unknown"),
		ExpectedExposure:     or(get("expectedExposure"), "not_evaluated"),
		RatingZH:             get("rating_zh"),
		RatingEN:             get("rating_en"),
	}
}

func mapReview(v string) string {
	switch v {
	case "":
		return "N"
	case "1":
		return "Y"
	}
	return v
}

func or(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func encode(rec SiteRecord) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
