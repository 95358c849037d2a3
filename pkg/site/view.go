package site

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/richtext"
	"github.com/adfharrison1/go-tours/pkg/slider"
)

// Page is the data every template receives
type Page struct {
	Title       string
	Description string
	Path        string
	BaseURL     string
	Canonical   string
	Settings    content.Settings
	Nav         []NavItem
	Data        interface{}
}

type NavItem struct {
	Label  string
	URL    string
	Active bool
}

var navigation = []NavItem{
	{Label: "Home", URL: "/"},
	{Label: "Tours", URL: "/tours"},
	{Label: "Destinations", URL: "/destinations"},
	{Label: "Blog", URL: "/blog"},
	{Label: "FAQ", URL: "/faq"},
	{Label: "Contact", URL: "/contact"},
}

func navFor(path string) []NavItem {
	items := make([]NavItem, len(navigation))
	for i, item := range navigation {
		item.Active = path == item.URL || (item.URL != "/" && strings.HasPrefix(path, item.URL+"/"))
		items[i] = item
	}
	return items
}

type HomeView struct {
	Hero         slider.Hero
	Tours        []content.Tour
	Destinations []content.Destination
	Testimonials []content.Testimonial
	Posts        []content.Post
}

type ToursView struct {
	Tours        []content.Tour
	Destinations []content.Destination
	// Destination is set when the list is filtered
	Destination *content.Destination
}

type TourView struct {
	Tour         content.Tour
	Destination  *content.Destination
	Testimonials []content.Testimonial
}

type DestinationsView struct {
	Destinations []content.Destination
}

type DestinationView struct {
	Destination content.Destination
	Tours       []content.Tour
}

type BlogView struct {
	Posts      []content.Post
	Page       int
	Pages      int
	PrevPage   int
	NextPage   int
	TotalPosts int
}

type PostView struct {
	Post        content.Post
	Body        template.HTML
	Headings    []richtext.Heading
	ReadingTime int
	Recent      []content.Post
}

type FAQGroup struct {
	Category string
	Items    []content.FAQ
}

type FAQView struct {
	Groups []FAQGroup
}

type ContactView struct {
	Form    url.Values
	Errors  content.ValidationErrors
	Tours   []content.Tour
	Sent    bool
	Limited bool
}
