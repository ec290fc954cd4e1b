package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	errNoFrontMatter      = errors.New("no front matter found")
	errInvalidFrontMatter = errors.New("invalid front matter")
)

// FrontMatter holds the article fields the catalog cares about; everything
// else in the YAML block is kept in Extra.
type FrontMatter struct {
	Title       string
	Description string
	Date        string
	Category    string
	Tags        []string
	Extra       map[string]any
}

// ParseFrontMatter splits a "---" delimited YAML header from the body.
// Without a header the whole input is the body and errNoFrontMatter is returned.
func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.TrimLeft(norm, "\ufeff \t\n")

	if !bytes.HasPrefix(norm, []byte("---\n")) {
		return FrontMatter{}, norm, errNoFrontMatter
	}

	lines := bytes.SplitAfter(norm[len("---\n"):], []byte("\n"))
	var head bytes.Buffer
	closed := false
	consumed := len("---\n")
	for _, line := range lines {
		consumed += len(line)
		if string(bytes.TrimRight(line, " \t\n")) == "---" {
			closed = true
			break
		}
		head.Write(line)
	}
	if !closed {
		return FrontMatter{}, norm, errInvalidFrontMatter
	}
	body := bytes.TrimLeft(norm[consumed:], "\n")

	raw2 := map[string]any{}
	if len(bytes.TrimSpace(head.Bytes())) > 0 {
		if err := yaml.Unmarshal(head.Bytes(), &raw2); err != nil {
			return FrontMatter{}, norm, fmt.Errorf("%w: %v", errInvalidFrontMatter, err)
		}
	}

	fm := FrontMatter{Extra: map[string]any{}}
	for k, v := range raw2 {
		switch strings.ToLower(k) {
		case "title":
			fm.Title = strings.TrimSpace(scalar(v))
		case "description":
			fm.Description = strings.TrimSpace(scalar(v))
		case "date":
			fm.Date = strings.TrimSpace(scalar(v))
		case "category":
			fm.Category = strings.TrimSpace(scalar(v))
		case "tags":
			fm.Tags = stringList(v)
		default:
			fm.Extra[k] = v
		}
	}
	return fm, body, nil
}

func scalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case interface{ Format(string) string }:
		// yaml.v3 会把 2024-01-02 解析成 time.Time
		return s.Format("2006-01-02T15:04:05Z07:00")
	default:
		return fmt.Sprint(s)
	}
}

func stringList(v any) []string {
	switch s := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if p := strings.TrimSpace(scalar(item)); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}
