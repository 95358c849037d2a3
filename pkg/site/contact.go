package site

import (
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/ratelimit"
)

// honeypotField is hidden from people; bots that fill it in are ignored
const honeypotField = "website"

// maxContactBytes caps the contact form body
const maxContactBytes = 64 << 10

// HandleContact renders the contact form. ?tour=<slug> preselects a tour
// and ?sent=1 shows the thank-you note.
func (s *Site) HandleContact(w http.ResponseWriter, r *http.Request) {
	form := url.Values{}
	if slug := r.URL.Query().Get("tour"); slug != "" {
		if tour, err := bySlug[content.Tour](s.store, content.KindTour, slug); err == nil {
			form.Set("tour_id", tour.ID)
		}
	}
	view := ContactView{Form: form, Sent: r.URL.Query().Get("sent") == "1"}
	s.renderContact(w, r, http.StatusOK, view)
}

// HandleContactSubmit stores an inquiry and redirects back to the form
func (s *Site) HandleContactSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBytes)
	if err := r.ParseForm(); err != nil {
		s.renderContact(w, r, http.StatusBadRequest, ContactView{
			Form:   url.Values{},
			Errors: content.ValidationErrors{"form": "could not be read"},
		})
		return
	}

	if r.PostForm.Get(honeypotField) != "" {
		s.logger.Info("Dropped contact form from a bot", zap.String("ip", ratelimit.ClientIP(r, s.opts.TrustProxy)))
		http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
		return
	}

	ip := ratelimit.ClientIP(r, s.opts.TrustProxy)
	if !s.contact.Allow(ip) {
		s.logger.Warn("Contact form rate limited", zap.String("ip", ip))
		s.renderContact(w, r, http.StatusTooManyRequests, ContactView{Form: r.PostForm, Limited: true})
		return
	}

	kind, _ := content.Lookup(content.KindInquiry)
	doc := content.Decode(kind, r.PostForm)
	doc["status"] = content.StatusNew

	if _, err := s.store.Create(kind, doc); err != nil {
		var verrs content.ValidationErrors
		if errors.As(err, &verrs) {
			s.renderContact(w, r, http.StatusUnprocessableEntity, ContactView{Form: r.PostForm, Errors: verrs})
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.logger.Info("Inquiry received", zap.String("ip", ip))
	http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
}

func (s *Site) renderContact(w http.ResponseWriter, r *http.Request, status int, view ContactView) {
	tours, err := published[content.Tour](s.store, content.KindTour, nil, 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view.Tours = tours
	s.render(w, r, status, "contact", Page{Title: "Contact us", Data: view})
}
