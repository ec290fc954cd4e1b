package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"findmyusers/internal/domain/content"
	domainerr "findmyusers/internal/domain/errors"
)

const EnvPrefix = "FMU_"

type Config struct {
	Root          string           `yaml:"root" env:"ROOT"`
	DefaultLocale content.Locale   `yaml:"default_locale" env:"DEFAULT_LOCALE"`
	Locales       []content.Locale `yaml:"locales" env:"LOCALES" envSeparator:","`

	Catalogs   []CatalogConfig  `yaml:"catalogs"`
	Validation ValidationConfig `yaml:"validation"`
	Fields     FieldsConfig     `yaml:"fields"`
	Serve      ServeConfig      `yaml:"serve" envPrefix:"SERVE_"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
}

// CatalogConfig describes one kind of catalog (sites, articles).
//
// list file:    <root>/<list_dir>/<locale>/<list_file>
// detail files: <root>/<detail_dir>/<locale>/<slug>.json|.md
type CatalogConfig struct {
	Name         string         `yaml:"name"`
	ListDir      string         `yaml:"list_dir"`
	ListFile     string         `yaml:"list_file"`
	DetailDir    string         `yaml:"detail_dir"`
	Format       content.Format `yaml:"format"`
	NameField    string         `yaml:"name_field"`
	SummaryField string         `yaml:"summary_field"`
	SlugMaxLen   int            `yaml:"slug_max_len"`
}

// ValidationConfig holds the heuristic blocklists. They are data so that new
// leaked fragments can be added without touching the merge code.
type ValidationConfig struct {
	ReservedSlugs     []string `yaml:"reserved_slugs"`
	BadSlugFragments  []string `yaml:"bad_slug_fragments"`
	LeakedNameMarkers []string `yaml:"leaked_name_markers"`
	BadFilenamePrefix []string `yaml:"bad_filename_prefixes"`
	MinNameLen        int      `yaml:"min_name_len"`
	MaxNameLen        int      `yaml:"max_name_len"`
	MaxTextLen        int      `yaml:"max_text_len"`
	MaxFilenameLen    int      `yaml:"max_filename_len"`
}

type FieldsConfig struct {
	File string `yaml:"file"`
}

type ServeConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	IndexPath string        `yaml:"index_path" env:"INDEX_PATH"`
	CacheTTL  time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	Debounce  time.Duration `yaml:"debounce" env:"DEBOUNCE"`
	Watch     bool          `yaml:"watch" env:"WATCH"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

func Default() Config {
	return Config{
		Root:          "data",
		DefaultLocale: content.LocaleZH,
		Locales:       []content.Locale{content.LocaleZH, content.LocaleEN},
		Catalogs: []CatalogConfig{
			{
				Name:       "sites",
				ListDir:    "list",
				ListFile:   "sites.json",
				DetailDir:  "detail/sites",
				Format:     content.FormatJSON,
				NameField:  "name",
				SlugMaxLen: 100,
			},
			{
				Name:         "articles",
				ListDir:      "list",
				ListFile:     "articles.json",
				DetailDir:    "detail/articles",
				Format:       content.FormatMarkdown,
				NameField:    "title",
				SummaryField: "description",
				SlugMaxLen:   100,
			},
		},
		Validation: DefaultValidation(),
		Fields: FieldsConfig{
			File: filepath.Join("json", "site-fields.json"),
		},
		Serve: ServeConfig{
			Addr:      ":8080",
			IndexPath: ".findmyusers/index.db",
			CacheTTL:  time.Hour,
			Debounce:  200 * time.Millisecond,
			Watch:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func DefaultValidation() ValidationConfig {
	return ValidationConfig{
		ReservedSlugs: []string{"-", "unknown-site"},
		BadSlugFragments: []string{
			"and-the-product-requirement",
			"introduce-your-product-as-briefly-as-possible",
			"developer-tools-are-not",
			"mainly-collect-free",
			"it-will-be-featured",
		},
		LeakedNameMarkers: []string{
			"截图",
			"screenshot",
			"link/qr code",
			"尽可能简短",
			"- name +",
			"- description",
			"within_1k",
			"not_disclosed",
			"not_evaluated",
		},
		BadFilenamePrefix: []string{"-", "and-the-", "introduce-"},
		MinNameLen:        2,
		MaxNameLen:        200,
		MaxTextLen:        300,
		MaxFilenameLen:    100,
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Root) == "" {
		ve.Add("root", "must not be empty")
	}
	if len(c.Locales) == 0 {
		ve.Add("locales", "must list at least one locale")
	}
	seenLocale := make(map[content.Locale]struct{}, len(c.Locales))
	for _, l := range c.Locales {
		if _, err := content.ParseLocale(string(l)); err != nil {
			ve.Add("locales", fmt.Sprintf("%q is not a language tag", l))
		}
		if _, ok := seenLocale[l]; ok {
			ve.Add("locales", fmt.Sprintf("duplicate locale %q", l))
		}
		seenLocale[l] = struct{}{}
	}
	if _, ok := seenLocale[c.DefaultLocale]; !ok {
		ve.Add("default_locale", "must be one of locales")
	}

	if len(c.Catalogs) == 0 {
		ve.Add("catalogs", "must define at least one catalog")
	}
	seenCatalog := make(map[string]struct{}, len(c.Catalogs))
	for i, cat := range c.Catalogs {
		prefix := fmt.Sprintf("catalogs[%d]", i)
		if strings.TrimSpace(cat.Name) == "" {
			ve.Add(prefix+".name", "must not be empty")
		}
		if _, ok := seenCatalog[cat.Name]; ok {
			ve.Add(prefix+".name", "duplicate catalog name")
		}
		seenCatalog[cat.Name] = struct{}{}
		if strings.TrimSpace(cat.ListFile) == "" {
			ve.Add(prefix+".list_file", "must not be empty")
		}
		if strings.TrimSpace(cat.DetailDir) == "" {
			ve.Add(prefix+".detail_dir", "must not be empty")
		}
		switch cat.Format {
		case content.FormatJSON, content.FormatMarkdown:
		default:
			ve.Add(prefix+".format", "must be 'json' or 'markdown'")
		}
		if strings.TrimSpace(cat.NameField) == "" {
			ve.Add(prefix+".name_field", "must not be empty")
		}
		if cat.SlugMaxLen <= 0 {
			ve.Add(prefix+".slug_max_len", "must be positive")
		}
	}

	v := c.Validation
	if v.MinNameLen < 0 || v.MaxNameLen < v.MinNameLen {
		ve.Add("validation.max_name_len", "must be >= min_name_len")
	}
	if v.MaxTextLen <= 0 {
		ve.Add("validation.max_text_len", "must be positive")
	}

	if c.Serve.CacheTTL < 0 {
		ve.Add("serve.cache_ttl", "must not be negative")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		ve.Add("log.format", "must be 'console' or 'json'")
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

// yaml 会整体替换 catalogs 切片，这里补齐未写的字段。
func (c *Config) fillCatalogDefaults() {
	for i := range c.Catalogs {
		cat := &c.Catalogs[i]
		if cat.ListDir == "" {
			cat.ListDir = "list"
		}
		if cat.ListFile == "" && cat.Name != "" {
			cat.ListFile = cat.Name + ".json"
		}
		if cat.DetailDir == "" && cat.Name != "" {
			cat.DetailDir = filepath.Join("detail", cat.Name)
		}
		if cat.Format == "" {
			cat.Format = content.FormatJSON
		}
		if cat.NameField == "" {
			cat.NameField = "name"
		}
		if cat.SlugMaxLen == 0 {
			cat.SlugMaxLen = 100
		}
	}
}

func (c Config) Catalog(name string) (CatalogConfig, bool) {
	for _, cat := range c.Catalogs {
		if cat.Name == name {
			return cat, true
		}
	}
	return CatalogConfig{}, false
}

func (c Config) ListPath(cat CatalogConfig, l content.Locale) string {
	return filepath.Join(c.Root, cat.ListDir, string(l), cat.ListFile)
}

func (c Config) DetailRoot(cat CatalogConfig) string {
	return filepath.Join(c.Root, cat.DetailDir)
}

func (c Config) FieldsPath() string {
	return filepath.Join(c.Root, c.Fields.File)
}

// Load 读取 YAML 配置，文件中未写的字段保留 Default，然后应用 FMU_* 环境变量。
// 文件不存在时使用默认配置。
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("config: env: %w", err)
	}
	cfg.fillCatalogDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
