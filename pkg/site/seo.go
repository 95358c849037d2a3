package site

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
)

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapPages are the fixed pages listed before any documents
var sitemapPages = []string{"/", "/tours", "/destinations", "/blog", "/faq", "/contact"}

// sitemapKinds maps the kinds with public pages to their URL prefix
var sitemapKinds = []struct {
	kind   string
	prefix string
}{
	{content.KindTour, "/tours/"},
	{content.KindDestination, "/destinations/"},
	{content.KindPost, "/blog/"},
}

// HandleSitemap lists the fixed pages and every published tour,
// destination and post
func (s *Site) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range sitemapPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: s.opts.BaseURL + p})
	}

	for _, entry := range sitemapKinds {
		kind, _ := content.Lookup(entry.kind)
		docs, err := s.store.Published(kind, nil)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		for _, doc := range docs {
			slug, _ := doc["slug"].(string)
			if slug == "" {
				continue
			}
			u := sitemapURL{Loc: s.opts.BaseURL + entry.prefix + slug}
			if updated := doc.UpdatedAt(); !updated.IsZero() {
				u.LastMod = updated.Format(content.DateLayout)
			}
			set.URLs = append(set.URLs, u)
		}
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		s.logger.Error("Failed to write sitemap", zap.Error(err))
	}
}

// HandleRobots keeps crawlers out of the admin panel and points them at
// the sitemap
func (s *Site) HandleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", s.opts.BaseURL)
}
