// Package site renders the public marketing site from the content store.
package site

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/ratelimit"
)

// Options configures the public site
type Options struct {
	// BaseURL is the absolute site address used in the sitemap and
	// canonical links, without a trailing slash
	BaseURL string
	// TemplatesDir and StaticDir load files from disk instead of the
	// binary. Templates are reloaded on change when Dev is set.
	TemplatesDir string
	StaticDir    string
	Dev          bool
	// CacheSize is the number of rendered pages kept; 0 disables the cache
	CacheSize int
	// MediaDir holds uploaded media served under /media/
	MediaDir string
	// ContactPerMinute and ContactBurst limit contact form posts per IP
	ContactPerMinute float64
	ContactBurst     int
	TrustProxy       bool
}

// Site serves the public pages
type Site struct {
	store   *content.Store
	tmpl    *Templates
	cache   *PageCache
	contact *ratelimit.Limiter
	opts    Options
	logger  *zap.Logger
}

// New loads the templates and prepares the site
func New(store *content.Store, opts Options, logger *zap.Logger) (*Site, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("site")
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.ContactPerMinute <= 0 {
		opts.ContactPerMinute = 2
	}
	if opts.ContactBurst <= 0 {
		opts.ContactBurst = 3
	}

	tmpl, err := LoadTemplates(opts.TemplatesDir, logger)
	if err != nil {
		return nil, err
	}
	return &Site{
		store:   store,
		tmpl:    tmpl,
		cache:   NewPageCache(opts.CacheSize),
		contact: ratelimit.New(opts.ContactPerMinute, opts.ContactBurst),
		opts:    opts,
		logger:  logger,
	}, nil
}

// Cache exposes the page cache for metrics
func (s *Site) Cache() *PageCache {
	return s.cache
}

// RegisterRoutes registers the public pages on router
func (s *Site) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", s.cacheable(s.HandleHome)).Methods("GET")
	router.HandleFunc("/tours", s.cacheable(s.HandleTours)).Methods("GET")
	router.HandleFunc("/tours/{slug}", s.cacheable(s.HandleTour)).Methods("GET")
	router.HandleFunc("/destinations", s.cacheable(s.HandleDestinations)).Methods("GET")
	router.HandleFunc("/destinations/{slug}", s.cacheable(s.HandleDestination)).Methods("GET")
	router.HandleFunc("/blog", s.cacheable(s.HandleBlog)).Methods("GET")
	router.HandleFunc("/blog/{slug:[a-z0-9-]+}.md", s.cacheable(s.HandlePostMarkdown)).Methods("GET")
	router.HandleFunc("/blog/{slug}", s.cacheable(s.HandlePost)).Methods("GET")
	router.HandleFunc("/faq", s.cacheable(s.HandleFAQ)).Methods("GET")
	router.HandleFunc("/contact", s.cacheable(s.HandleContact)).Methods("GET")
	router.HandleFunc("/contact", s.HandleContactSubmit).Methods("POST")
	router.HandleFunc("/sitemap.xml", s.cacheable(s.HandleSitemap)).Methods("GET")
	router.HandleFunc("/robots.txt", s.HandleRobots).Methods("GET")

	if static, err := staticFS(s.opts.StaticDir); err == nil {
		router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", noListing(http.FileServer(http.FS(static)))))
	} else {
		s.logger.Error("Static assets unavailable", zap.Error(err))
	}
	if s.opts.MediaDir != "" {
		router.PathPrefix("/media/").Handler(http.StripPrefix("/media/", noListing(http.FileServer(http.Dir(s.opts.MediaDir)))))
	}

	router.NotFoundHandler = http.HandlerFunc(s.notFound)
}

// Run purges the page cache on every store change and, in dev mode,
// reloads templates as they are edited. It blocks until ctx is done.
func (s *Site) Run(ctx context.Context) error {
	events, unsubscribe := s.store.DB().Subscribe(64)
	defer unsubscribe()

	if s.opts.Dev {
		go func() {
			if err := s.tmpl.Watch(ctx, s.cache.Purge); err != nil {
				s.logger.Error("Template watcher stopped", zap.Error(err))
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.cache.Purge()
			s.logger.Debug("Page cache purged",
				zap.String("collection", event.Collection),
				zap.String("id", event.DocumentID))
		}
	}
}

// cacheable serves GET pages from the page cache and stores successful
// renders in it
func (s *Site) cacheable(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.RequestURI()
		if page, ok := s.cache.Get(key); ok {
			w.Header().Set("Content-Type", page.contentType)
			w.Header().Set("X-Cache", "HIT")
			w.Write(page.body)
			return
		}

		gen := s.cache.Generation()
		rec := &capture{header: http.Header{}, status: http.StatusOK}
		next(rec, r)

		for k, v := range rec.header {
			w.Header()[k] = v
		}
		if rec.status == http.StatusOK {
			s.cache.Put(key, &renderedPage{contentType: rec.header.Get("Content-Type"), body: rec.buf.Bytes()}, gen)
			w.Header().Set("X-Cache", "MISS")
		}
		w.WriteHeader(rec.status)
		w.Write(rec.buf.Bytes())
	}
}

// capture buffers a response so it can be cached before it is sent
type capture struct {
	header      http.Header
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (c *capture) Header() http.Header {
	return c.header
}

func (c *capture) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.status = status
}

func (c *capture) Write(p []byte) (int, error) {
	c.wroteHeader = true
	return c.buf.Write(p)
}

// noListing hides directory indexes
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// render writes page name with status
func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	page.Path = r.URL.Path
	page.Settings = s.store.Settings()
	page.Nav = navFor(r.URL.Path)
	if page.Canonical == "" {
		page.Canonical = s.opts.BaseURL + r.URL.Path
	}
	page.BaseURL = s.opts.BaseURL

	var buf bytes.Buffer
	if err := s.tmpl.Render(&buf, name, page); err != nil {
		s.logger.Error("Render failed", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "notfound", Page{Title: "Page not found"})
}

func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	s.render(w, r, http.StatusInternalServerError, "error", Page{Title: "Something went wrong"})
}

