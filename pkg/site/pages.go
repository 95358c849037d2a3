package site

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
	"github.com/adfharrison1/go-tours/pkg/richtext"
	"github.com/adfharrison1/go-tours/pkg/slider"
)

const (
	// PostsPerPage is the blog index page size
	PostsPerPage = 9
	homeListSize = 6
	homePosts    = 3
)

// published lists the published documents of a kind in its default order,
// at most limit of them when limit is positive
func published[T any](store *content.Store, kindName string, filter map[string]interface{}, limit int) ([]T, error) {
	kind, ok := content.Lookup(kindName)
	if !ok {
		return nil, fmt.Errorf("unknown kind %s", kindName)
	}
	docs, err := store.Published(kind, filter)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return content.FromDocuments[T](docs)
}

// canonicalSlug redirects a detail URL whose slug has upper-case letters to
// the lower-case URL and reports whether it did
func canonicalSlug(w http.ResponseWriter, r *http.Request) bool {
	slug := mux.Vars(r)["slug"]
	lower := strings.ToLower(slug)
	if slug == lower {
		return false
	}
	target := strings.Replace(r.URL.Path, slug, lower, 1)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
	return true
}

// bySlug loads one published document of a kind
func bySlug[T any](store *content.Store, kindName, slug string) (T, error) {
	var out T
	kind, ok := content.Lookup(kindName)
	if !ok {
		return out, fmt.Errorf("unknown kind %s", kindName)
	}
	doc, err := store.BySlug(kind, slug, true)
	if err != nil {
		return out, err
	}
	err = content.FromDocument(doc, &out)
	return out, err
}

// HandleHome renders the landing page
func (s *Site) HandleHome(w http.ResponseWriter, r *http.Request) {
	slides, err := published[content.Slide](s.store, content.KindSlide, nil, 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view := HomeView{Hero: slider.Build(slides, s.store.Settings())}

	featured := map[string]interface{}{"featured": true}
	if view.Tours, err = published[content.Tour](s.store, content.KindTour, featured, homeListSize); err != nil {
		s.serverError(w, r, err)
		return
	}
	if view.Destinations, err = published[content.Destination](s.store, content.KindDestination, featured, homeListSize); err != nil {
		s.serverError(w, r, err)
		return
	}
	if view.Testimonials, err = published[content.Testimonial](s.store, content.KindTestimonial, nil, homeListSize); err != nil {
		s.serverError(w, r, err)
		return
	}
	if view.Posts, err = published[content.Post](s.store, content.KindPost, nil, homePosts); err != nil {
		s.serverError(w, r, err)
		return
	}

	settings := s.store.Settings()
	s.render(w, r, http.StatusOK, "home", Page{
		Title:       settings.SiteName,
		Description: settings.Tagline,
		Data:        view,
	})
}

// HandleTours lists published tours, optionally for one destination
func (s *Site) HandleTours(w http.ResponseWriter, r *http.Request) {
	var view ToursView
	var err error
	filter := map[string]interface{}{}

	if slug := r.URL.Query().Get("destination"); slug != "" {
		dest, err := bySlug[content.Destination](s.store, content.KindDestination, slug)
		if err != nil {
			s.notFoundOr(w, r, err)
			return
		}
		view.Destination = &dest
		filter["destination_id"] = dest.ID
	}

	if view.Tours, err = published[content.Tour](s.store, content.KindTour, filter, 0); err != nil {
		s.serverError(w, r, err)
		return
	}
	if view.Destinations, err = published[content.Destination](s.store, content.KindDestination, nil, 0); err != nil {
		s.serverError(w, r, err)
		return
	}

	title := "Tours"
	if view.Destination != nil {
		title = "Tours in " + view.Destination.Name
	}
	s.render(w, r, http.StatusOK, "tours", Page{Title: title, Data: view})
}

// HandleTour renders one tour
func (s *Site) HandleTour(w http.ResponseWriter, r *http.Request) {
	if canonicalSlug(w, r) {
		return
	}
	tour, err := bySlug[content.Tour](s.store, content.KindTour, mux.Vars(r)["slug"])
	if err != nil {
		s.notFoundOr(w, r, err)
		return
	}
	view := TourView{Tour: tour}

	if tour.DestinationID != "" {
		if dest, err := s.publishedByID(content.KindDestination, tour.DestinationID); err == nil {
			var d content.Destination
			if content.FromDocument(dest, &d) == nil {
				view.Destination = &d
			}
		}
	}
	view.Testimonials, err = published[content.Testimonial](s.store, content.KindTestimonial,
		map[string]interface{}{"tour_id": tour.ID}, 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "tour", Page{Title: tour.Title, Description: tour.Summary, Data: view})
}

// HandleDestinations lists published destinations
func (s *Site) HandleDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := published[content.Destination](s.store, content.KindDestination, nil, 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "destinations", Page{
		Title: "Destinations",
		Data:  DestinationsView{Destinations: destinations},
	})
}

// HandleDestination renders one destination with its tours
func (s *Site) HandleDestination(w http.ResponseWriter, r *http.Request) {
	if canonicalSlug(w, r) {
		return
	}
	dest, err := bySlug[content.Destination](s.store, content.KindDestination, mux.Vars(r)["slug"])
	if err != nil {
		s.notFoundOr(w, r, err)
		return
	}
	tours, err := published[content.Tour](s.store, content.KindTour, map[string]interface{}{"destination_id": dest.ID}, 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "destination", Page{
		Title:       dest.Name,
		Description: dest.Summary,
		Data:        DestinationView{Destination: dest, Tours: tours},
	})
}

// HandleBlog renders a page of the blog index, newest first
func (s *Site) HandleBlog(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.notFound(w, r)
			return
		}
		page = n
	}

	kind, _ := content.Lookup(content.KindPost)
	result, err := s.store.DB().FindAll(kind.Collection, map[string]interface{}{"published": true}, &domain.PaginationOptions{
		Limit:  PostsPerPage,
		Offset: (page - 1) * PostsPerPage,
		SortBy: kind.DefaultSort,
		Desc:   kind.DefaultDesc,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	total := int(result.Total)
	pages := (total + PostsPerPage - 1) / PostsPerPage
	if page > 1 && page > pages {
		s.notFound(w, r)
		return
	}

	posts, err := content.FromDocuments[content.Post](result.Documents)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view := BlogView{Posts: posts, Page: page, Pages: pages, TotalPosts: total}
	if page > 1 {
		view.PrevPage = page - 1
	}
	if page < pages {
		view.NextPage = page + 1
	}

	title := "Blog"
	if page > 1 {
		title = fmt.Sprintf("Blog, page %d", page)
	}
	s.render(w, r, http.StatusOK, "blog", Page{Title: title, Data: view})
}

// HandlePost renders one blog post with a table of contents
func (s *Site) HandlePost(w http.ResponseWriter, r *http.Request) {
	if canonicalSlug(w, r) {
		return
	}
	post, err := bySlug[content.Post](s.store, content.KindPost, mux.Vars(r)["slug"])
	if err != nil {
		s.notFoundOr(w, r, err)
		return
	}

	body, headings := richtext.AnchorHeadings(richtext.Sanitize(post.Body))
	view := PostView{
		Post:        post,
		Body:        template.HTML(body),
		Headings:    headings,
		ReadingTime: richtext.ReadingTime(post.Body),
	}

	recent, err := published[content.Post](s.store, content.KindPost, nil, homePosts+1)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	for _, p := range recent {
		if p.ID != post.ID && len(view.Recent) < homePosts {
			view.Recent = append(view.Recent, p)
		}
	}

	s.render(w, r, http.StatusOK, "post", Page{Title: post.Title, Description: post.Excerpt, Data: view})
}

// HandlePostMarkdown exports a blog post as Markdown
func (s *Site) HandlePostMarkdown(w http.ResponseWriter, r *http.Request) {
	if canonicalSlug(w, r) {
		return
	}
	post, err := bySlug[content.Post](s.store, content.KindPost, mux.Vars(r)["slug"])
	if err != nil {
		s.notFoundOr(w, r, err)
		return
	}
	body, err := richtext.Markdown(post.Body)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprintf(w, "# %s\n\n", post.Title)
	if post.PublishedAt != "" {
		fmt.Fprintf(w, "_%s_\n\n", formatDate(post.PublishedAt))
	}
	fmt.Fprintf(w, "%s\n", body)
}

// HandleFAQ renders the published questions grouped by category in the
// order their first question appears
func (s *Site) HandleFAQ(w http.ResponseWriter, r *http.Request) {
	faqs, err := published[content.FAQ](s.store, content.KindFAQ, nil, 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "faq", Page{Title: "Frequently asked questions", Data: FAQView{Groups: groupFAQs(faqs)}})
}

func groupFAQs(faqs []content.FAQ) []FAQGroup {
	var groups []FAQGroup
	index := map[string]int{}
	for _, faq := range faqs {
		category := faq.Category
		if category == "" {
			category = "General"
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, FAQGroup{Category: category})
		}
		groups[i].Items = append(groups[i].Items, faq)
	}
	return groups
}

// publishedByID loads a document by id, hiding drafts
func (s *Site) publishedByID(kindName, id string) (domain.Document, error) {
	kind, _ := content.Lookup(kindName)
	doc, err := s.store.Get(kind, id)
	if err != nil {
		return nil, err
	}
	if kind.Publishable() && doc["published"] != true {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// notFoundOr renders the 404 page for missing documents and the error
// page for anything else
func (s *Site) notFoundOr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("Not found", zap.String("path", r.URL.Path))
		s.notFound(w, r)
		return
	}
	s.serverError(w, r, err)
}
