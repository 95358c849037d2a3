package site

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
	"github.com/adfharrison1/go-tours/pkg/storage"
)

type testSite struct {
	site   *Site
	store  *content.Store
	router *mux.Router
}

func newTestSite(t *testing.T, opts Options) *testSite {
	t.Helper()
	store := content.NewStore(storage.NewStorageEngine(), nil)
	require.NoError(t, store.Setup())

	if opts.BaseURL == "" {
		opts.BaseURL = "https://tours.example/"
	}
	s, err := New(store, opts, nil)
	require.NoError(t, err)

	router := mux.NewRouter()
	s.RegisterRoutes(router)
	return &testSite{site: s, store: store, router: router}
}

func (ts *testSite) create(t *testing.T, kindName string, doc domain.Document) domain.Document {
	t.Helper()
	kind, ok := content.Lookup(kindName)
	require.True(t, ok)
	stored, err := ts.store.Create(kind, doc)
	require.NoError(t, err)
	return stored
}

func (ts *testSite) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, httptest.NewRequest("GET", target, nil))
	return rr
}

func (ts *testSite) postForm(t *testing.T, target string, form url.Values, remote string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func tourDoc(title string, published bool) domain.Document {
	return domain.Document{"title": title, "summary": title + " summary", "duration_days": 3, "published": published}
}

func TestSite_Home(t *testing.T) {
	ts := newTestSite(t, Options{})
	ts.create(t, content.KindSlide, domain.Document{"title": "Gorillas", "media_url": "/media/a.jpg", "order": 1})
	ts.create(t, content.KindSlide, domain.Document{"title": "Hidden", "media_url": "/media/b.jpg", "active": false})
	featured := tourDoc("Gorilla Trek", true)
	featured["featured"] = true
	featured["price_from"] = 1250
	ts.create(t, content.KindTour, featured)
	draft := tourDoc("Secret Trek", false)
	draft["featured"] = true
	ts.create(t, content.KindTour, draft)
	ts.create(t, content.KindTestimonial, domain.Document{"author": "Ann", "quote": "Unforgettable", "published": true, "rating": 4})
	ts.create(t, content.KindPost, domain.Document{"title": "Packing List", "body": "<p>Bring boots</p>", "published": true})

	rr := ts.get(t, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Contains(t, body, "<title>Go Tours</title>")
	assert.Contains(t, body, "data-slider")
	assert.Contains(t, body, `data-autoplay="false"`, "a single slide does not autoplay")
	assert.Contains(t, body, "Gorillas")
	assert.NotContains(t, body, "Hidden")
	assert.Contains(t, body, "Gorilla Trek")
	assert.Contains(t, body, "USD 1,250")
	assert.NotContains(t, body, "Secret Trek")
	assert.Contains(t, body, "★★★★☆")
	assert.Contains(t, body, "Packing List")
}

func TestSite_TourPages(t *testing.T) {
	ts := newTestSite(t, Options{})
	dest := ts.create(t, content.KindDestination, domain.Document{"name": "Bwindi", "country": "Uganda", "published": true})
	other := ts.create(t, content.KindDestination, domain.Document{"name": "Serengeti", "country": "Tanzania", "published": true})

	trek := tourDoc("Gorilla Trek", true)
	trek["destination_id"] = dest.ID()
	trek["itinerary"] = "Arrive :: Transfer to the lodge\nTrek :: Meet the family"
	trek["description"] = `<p>Up close</p><script>alert(1)</script>`
	ts.create(t, content.KindTour, trek)
	safari := tourDoc("Big Five", true)
	safari["destination_id"] = other.ID()
	ts.create(t, content.KindTour, safari)
	ts.create(t, content.KindTour, tourDoc("Draft Trip", false))

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		contains       []string
		notContains    []string
	}{
		{"list", "/tours", http.StatusOK, []string{"Gorilla Trek", "Big Five"}, []string{"Draft Trip"}},
		{"filtered", "/tours?destination=bwindi", http.StatusOK, []string{"Tours in Bwindi", "Gorilla Trek"}, []string{"Big Five"}},
		{"unknown destination", "/tours?destination=atlantis", http.StatusNotFound, []string{"Page not found"}, nil},
		{"detail", "/tours/gorilla-trek", http.StatusOK,
			[]string{"Day 1: Arrive", "Day 2: Trek", "Up close", `href="/destinations/bwindi"`, `href="/contact?tour=gorilla-trek"`},
			[]string{"<script>"}},
		{"draft detail", "/tours/draft-trip", http.StatusNotFound, []string{"Page not found"}, nil},
		{"missing detail", "/tours/nope", http.StatusNotFound, nil, nil},
		{"destination", "/destinations/bwindi", http.StatusOK, []string{"Bwindi", "Uganda", "Gorilla Trek"}, []string{"Big Five"}},
		{"destinations", "/destinations", http.StatusOK, []string{"Bwindi", "Serengeti"}, nil},
		{"unknown route", "/nowhere", http.StatusNotFound, []string{"Page not found"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.get(t, tt.target)
			assert.Equal(t, tt.expectedStatus, rr.Code)
			for _, s := range tt.contains {
				assert.Contains(t, rr.Body.String(), s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, rr.Body.String(), s)
			}
		})
	}
}

func TestSite_SlugRedirectsToLowerCase(t *testing.T) {
	ts := newTestSite(t, Options{})
	ts.create(t, content.KindTour, tourDoc("Gorilla Trek", true))
	ts.create(t, content.KindDestination, domain.Document{"name": "Bwindi", "country": "Uganda", "published": true})
	ts.create(t, content.KindPost, domain.Document{"title": "Packing List", "body": "<p>Bring boots</p>", "published": true})

	tests := []struct {
		target   string
		location string
	}{
		{"/tours/GORILLA-TREK", "/tours/gorilla-trek"},
		{"/tours/Gorilla-Trek?ref=mail", "/tours/gorilla-trek?ref=mail"},
		{"/destinations/Bwindi", "/destinations/bwindi"},
		{"/blog/Packing-List", "/blog/packing-list"},
		{"/blog/Packing-List.md", "/blog/packing-list.md"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := ts.get(t, tt.target)
			assert.Equal(t, http.StatusMovedPermanently, rr.Code)
			assert.Equal(t, tt.location, rr.Header().Get("Location"))

			followed := ts.get(t, tt.location)
			assert.Equal(t, http.StatusOK, followed.Code)
		})
	}
}

func TestSite_BlogPagination(t *testing.T) {
	ts := newTestSite(t, Options{})
	for i := 1; i <= 11; i++ {
		ts.create(t, content.KindPost, domain.Document{
			"title":        fmt.Sprintf("Post %02d", i),
			"body":         "<p>Story</p>",
			"published":    true,
			"published_at": fmt.Sprintf("2024-01-%02d", i),
		})
	}
	ts.create(t, content.KindPost, domain.Document{"title": "Unpublished", "body": "<p>x</p>"})

	tests := []struct {
		target         string
		expectedStatus int
		cards          int
		first          string
	}{
		{"/blog", http.StatusOK, 9, "Post 11"},
		{"/blog?page=2", http.StatusOK, 2, "Post 02"},
		{"/blog?page=3", http.StatusNotFound, 0, ""},
		{"/blog?page=0", http.StatusNotFound, 0, ""},
		{"/blog?page=two", http.StatusNotFound, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := ts.get(t, tt.target)
			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.cards == 0 {
				return
			}
			body := rr.Body.String()
			assert.Equal(t, tt.cards, strings.Count(body, `<article class="card">`))
			assert.NotContains(t, body, "Unpublished")
			assert.Contains(t, body, tt.first)
		})
	}

	rr := ts.get(t, "/blog")
	body := rr.Body.String()
	assert.Less(t, strings.Index(body, "Post 11"), strings.Index(body, "Post 10"), "newest first")
	assert.Contains(t, body, `href="/blog?page=2"`)
}

func TestSite_Post(t *testing.T) {
	ts := newTestSite(t, Options{})
	ts.create(t, content.KindPost, domain.Document{
		"title":        "Gorilla Permits",
		"body":         "<h2>Prices</h2><p>Permits cost money.</p><h2>Booking</h2><p>Book <strong>early</strong>.</p>",
		"published":    true,
		"published_at": "2024-03-05",
		"author":       "Grace",
	})

	rr := ts.get(t, "/blog/gorilla-permits")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `<h2 id="prices">Prices</h2>`)
	assert.Contains(t, body, `href="#booking"`)
	assert.Contains(t, body, "5 Mar 2024")
	assert.Contains(t, body, "1 min read")

	rr = ts.get(t, "/blog/gorilla-permits.md")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rr.Header().Get("Content-Type"))
	md := rr.Body.String()
	assert.True(t, strings.HasPrefix(md, "# Gorilla Permits\n"))
	assert.Contains(t, md, "## Prices")
	assert.Contains(t, md, "**early**")

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/blog/missing.md").Code)
}

func TestSite_FAQ(t *testing.T) {
	ts := newTestSite(t, Options{})
	ts.create(t, content.KindFAQ, domain.Document{"question": "Do I need a visa?", "answer": "<p>Yes</p>", "category": "Travel", "order": 1, "published": true})
	ts.create(t, content.KindFAQ, domain.Document{"question": "Is it safe?", "answer": "<p>Very</p>", "order": 2, "published": true})
	ts.create(t, content.KindFAQ, domain.Document{"question": "Vaccines?", "answer": "<p>Yellow fever</p>", "category": "Travel", "order": 3, "published": true})
	ts.create(t, content.KindFAQ, domain.Document{"question": "Draft?", "answer": "<p>x</p>"})

	rr := ts.get(t, "/faq")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Equal(t, 1, strings.Count(body, "<h2>Travel</h2>"))
	assert.Contains(t, body, "<h2>General</h2>")
	assert.Less(t, strings.Index(body, "<h2>Travel</h2>"), strings.Index(body, "<h2>General</h2>"))
	assert.NotContains(t, body, "Draft?")
}

func TestGroupFAQs(t *testing.T) {
	groups := groupFAQs([]content.FAQ{
		{Question: "a", Category: "Money"},
		{Question: "b"},
		{Question: "c", Category: "Money"},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "Money", groups[0].Category)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, "General", groups[1].Category)
	assert.Empty(t, groupFAQs(nil))
}

func TestSite_Contact(t *testing.T) {
	ts := newTestSite(t, Options{ContactPerMinute: 1, ContactBurst: 2})
	tour := ts.create(t, content.KindTour, tourDoc("Gorilla Trek", true))
	inquiries, _ := content.Lookup(content.KindInquiry)

	rr := ts.get(t, "/contact?tour=gorilla-trek")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), fmt.Sprintf(`<option value="%s" selected>`, tour.ID()))

	valid := url.Values{
		"name": {"Ann"}, "email": {"ann@example.com"}, "message": {"Two of us in June"},
		"tour_id": {tour.ID()}, "travelers": {"2"}, "status": {content.StatusClosed},
	}
	rr = ts.postForm(t, "/contact", valid, "10.0.0.1:1000")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/contact?sent=1", rr.Header().Get("Location"))

	stored, err := ts.store.List(inquiries, nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, content.StatusNew, stored[0]["status"], "visitors can't set the status")
	assert.Equal(t, int64(2), stored[0]["travelers"])

	rr = ts.postForm(t, "/contact", url.Values{"name": {"Bob"}, "email": {"bob@"}}, "10.0.0.2:1000")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email must be a valid email address")
	assert.Contains(t, rr.Body.String(), "Message is required")
	assert.Contains(t, rr.Body.String(), `value="Bob"`, "the form keeps what was typed")

	bot := url.Values{"name": {"Bot"}, "email": {"bot@example.com"}, "message": {"spam"}, "website": {"http://spam"}}
	rr = ts.postForm(t, "/contact", bot, "10.0.0.3:1000")
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	count, err := ts.store.Count(inquiries, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "invalid and bot posts store nothing")

	ts.postForm(t, "/contact", valid, "10.0.0.4:1000")
	ts.postForm(t, "/contact", valid, "10.0.0.4:1000")
	rr = ts.postForm(t, "/contact", valid, "10.0.0.4:1000")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "Too many messages")

	rr = ts.get(t, "/contact?sent=1")
	assert.Contains(t, rr.Body.String(), "Thank you")
}

func TestSite_SitemapAndRobots(t *testing.T) {
	ts := newTestSite(t, Options{})
	ts.create(t, content.KindTour, tourDoc("Gorilla Trek", true))
	ts.create(t, content.KindTour, tourDoc("Draft Trip", false))
	ts.create(t, content.KindPost, domain.Document{"title": "Hello", "body": "<p>x</p>", "published": true})

	rr := ts.get(t, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, "<loc>https://tours.example/</loc>")
	assert.Contains(t, body, "<loc>https://tours.example/tours/gorilla-trek</loc>")
	assert.Contains(t, body, "<loc>https://tours.example/blog/hello</loc>")
	assert.Contains(t, body, "<lastmod>")
	assert.NotContains(t, body, "draft-trip")

	rr = ts.get(t, "/robots.txt")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Disallow: /admin/")
	assert.Contains(t, rr.Body.String(), "Sitemap: https://tours.example/sitemap.xml")
}

func TestSite_Static(t *testing.T) {
	ts := newTestSite(t, Options{MediaDir: t.TempDir()})

	rr := ts.get(t, "/static/site.css")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), ".hero")

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/static/").Code)
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/media/").Code)
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/media/missing.jpg").Code)
}

func TestSite_CachePurgedOnChange(t *testing.T) {
	ts := newTestSite(t, Options{CacheSize: 16})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.site.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ts.create(t, content.KindTour, tourDoc("First Trip", true))
	require.Eventually(t, func() bool {
		rr := ts.get(t, "/tours")
		return strings.Contains(rr.Body.String(), "First Trip") && rr.Header().Get("X-Cache") == "HIT"
	}, time.Second, 10*time.Millisecond)

	ts.create(t, content.KindTour, tourDoc("Second Trip", true))
	assert.Eventually(t, func() bool {
		return strings.Contains(ts.get(t, "/tours").Body.String(), "Second Trip")
	}, time.Second, 10*time.Millisecond)

	hits, misses := ts.site.Cache().Stats()
	assert.Positive(t, hits)
	assert.Positive(t, misses)
}

func TestSite_NotFoundIsNotCached(t *testing.T) {
	ts := newTestSite(t, Options{CacheSize: 16})
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/tours/later").Code)
	assert.Zero(t, ts.site.Cache().Len())

	ts.create(t, content.KindTour, tourDoc("Later", true))
	assert.Equal(t, http.StatusOK, ts.get(t, "/tours/later").Code)
}
