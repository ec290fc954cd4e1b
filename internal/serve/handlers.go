package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"findmyusers/internal/domain/content"
	"findmyusers/internal/fields"
	"findmyusers/internal/index"
	"findmyusers/internal/render"
)

// Handler returns the HTTP API.
//
//	GET /api/fields                  site-field labels for the locale
//	GET /api/events                  server-sent reload notifications
//	GET /api/{catalog}               paged list (page, size, sort, category, tag)
//	GET /api/{catalog}/facets        category and tag counts
//	GET /api/{catalog}/{slug}        one entry with its rendered body
//	GET /healthz
//	GET /metrics
//
// The locale comes from ?locale= and falls back to Accept-Language.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/fields", s.handleFields)
		ar.Get("/events", s.handleSSE)
		ar.Get("/{catalog}", s.handleList)
		ar.Get("/{catalog}/facets", s.handleFacets)
		ar.Get("/{catalog}/{slug}", s.handleEntry)
	})
	return r
}

// instrument records request count and latency per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.HTTPRequestSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fp, builtAt, err := s.idx.Fingerprint()
	if err != nil {
		s.log.Error("read fingerprint", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "index unavailable")
		return
	}
	body := map[string]any{"status": "ok", "fingerprint": fp}
	if !builtAt.IsZero() {
		body["builtAt"] = content.NewTimestamp(builtAt)
	}
	writeJSON(w, http.StatusOK, body)
}

// locale resolves the request locale. An explicit but unsupported ?locale=
// is a client error rather than a silent fallback.
func (s *Server) locale(r *http.Request) (content.Locale, error) {
	if q := strings.TrimSpace(r.URL.Query().Get("locale")); q != "" {
		l, err := content.ParseLocale(q)
		if err != nil || !s.matcher.Supports(l) {
			return "", fmt.Errorf("unsupported locale %q", q)
		}
		return l, nil
	}
	return s.matcher.Match(r.Header.Get("Accept-Language")), nil
}

func (s *Server) catalogParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "catalog")
	if _, ok := s.projectors[name]; !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown catalog %q", name))
		return "", false
	}
	return name, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	name, ok := s.catalogParam(w, r)
	if !ok {
		return
	}
	l, err := s.locale(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	opt := index.ListOptions{
		Sort:     index.ParseSortMode(q.Get("sort")),
		Category: strings.TrimSpace(q.Get("category")),
		Tag:      strings.TrimSpace(q.Get("tag")),
	}
	if opt.Page, err = intParam(q.Get("page")); err != nil {
		writeError(w, http.StatusBadRequest, "page: "+err.Error())
		return
	}
	if opt.Size, err = intParam(q.Get("size")); err != nil {
		writeError(w, http.StatusBadRequest, "size: "+err.Error())
		return
	}

	key := strings.Join([]string{
		name, string(l), string(opt.Sort),
		strconv.Itoa(opt.Page), strconv.Itoa(opt.Size),
		strings.ToLower(opt.Category), strings.ToLower(opt.Tag),
	}, "\x00")
	page, err := s.pages.Get(r.Context(), key, func(context.Context) (index.Page, error) {
		return s.idx.List(name, l, opt)
	})
	if err != nil {
		s.log.Error("list query", zap.String("catalog", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list query error")
		return
	}
	if page.Items == nil {
		page.Items = []content.MergedEntry{}
	}
	w.Header().Set("Content-Language", string(l))
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	name, ok := s.catalogParam(w, r)
	if !ok {
		return
	}
	l, err := s.locale(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := s.idx.Facets(name, l)
	if err != nil {
		s.log.Error("facets query", zap.String("catalog", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "facets query error")
		return
	}
	if f.Categories == nil {
		f.Categories = []index.FacetCount{}
	}
	if f.Tags == nil {
		f.Tags = []index.FacetCount{}
	}
	w.Header().Set("Content-Language", string(l))
	writeJSON(w, http.StatusOK, f)
}

type entryResponse struct {
	content.MergedEntry
	Labels   map[string]string `json:"labels,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Headings []render.Heading  `json:"headings,omitempty"`
}

// labelled are the detail fields whose values are keys into the fields file.
var labelled = []string{"status", "type", "region", "category", "submitMethod", "review", "expectedExposure", "rating"}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	name, ok := s.catalogParam(w, r)
	if !ok {
		return
	}
	l, err := s.locale(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := chi.URLParam(r, "slug")

	e, err := s.idx.Get(name, l, key)
	if errors.Is(err, index.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s/%s not found", name, key))
		return
	}
	if err != nil {
		s.log.Error("entry query", zap.String("catalog", name), zap.String("slug", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "entry query error")
		return
	}

	resp := entryResponse{MergedEntry: e}
	if e.Detail != nil {
		resp.Labels = s.labels(r, e.Detail, l)
		if e.Detail.Format == content.FormatMarkdown {
			s.renderBody(&resp, name, key, e.ContentLocale)
		}
	}
	w.Header().Set("Content-Language", string(l))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) labels(r *http.Request, d *content.DetailRecord, l content.Locale) map[string]string {
	values := map[string]string{
		"status":           d.Status,
		"type":             d.Type,
		"region":           d.Region,
		"category":         d.Category,
		"submitMethod":     d.SubmitMethod,
		"review":           d.Review,
		"expectedExposure": d.ExpectedExposure,
		"rating":           d.Rating,
	}
	out := make(map[string]string)
	for _, field := range labelled {
		v := values[field]
		if v == "" {
			continue
		}
		out[field] = s.fields.DisplayText(r.Context(), field, v, l)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// renderBody 的正文不进索引，按需从文件读取
func (s *Server) renderBody(resp *entryResponse, name, key string, l content.Locale) {
	rec, err := s.readers[name].ReadDetail(key, l)
	if err != nil {
		s.log.Warn("detail body unavailable", zap.String("catalog", name), zap.String("slug", key), zap.Error(err))
		return
	}
	res, err := s.md.Render(rec.Body)
	if err != nil {
		s.log.Warn("markdown render error", zap.String("slug", key), zap.Error(err))
		return
	}
	resp.HTML = string(res.HTML)
	resp.Headings = res.Headings
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	l, err := s.locale(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if field := strings.TrimSpace(r.URL.Query().Get("field")); field != "" {
		opts, err := s.fields.Options(r.Context(), field, l)
		if err != nil {
			s.log.Error("fields", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "fields unavailable")
			return
		}
		writeJSON(w, http.StatusOK, opts)
		return
	}
	all, err := s.fields.Load(r.Context(), l)
	if err != nil {
		s.log.Error("fields", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fields unavailable")
		return
	}
	if all == nil {
		all = fields.Options{}
	}
	w.Header().Set("Content-Language", string(l))
	writeJSON(w, http.StatusOK, all)
}

func intParam(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
