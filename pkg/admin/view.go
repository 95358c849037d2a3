package admin

import (
	"fmt"
	"net/url"
	"time"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
)

// Page is the data every admin template receives
type Page struct {
	Title   string
	Session *Session
	Kinds   []*content.Kind
	Active  string
	Toasts  []Toast
	Media   bool
	Data    interface{}
}

// CSRF returns the token forms must echo back
func (p Page) CSRF() string {
	if p.Session == nil {
		return ""
	}
	return p.Session.CSRF
}

type LoginView struct {
	Username string
	Next     string
	Error    string
}

type KindCount struct {
	Kind   *content.Kind
	Total  int
	Drafts int
}

// Activity is one row of the dashboard's recent changes
type Activity struct {
	Action string
	Kind   string
	Title  string
	URL    string
	At     time.Time
}

type DashboardView struct {
	Counts    []KindCount
	NewLeads  int
	Recent    []Activity
	Documents int
}

type Row struct {
	ID      string
	Title   string
	URL     string
	Status  string
	Draft   bool
	Updated time.Time
}

type ListView struct {
	Kind *content.Kind
	Rows []Row
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

// FormField is one control of an edit form
type FormField struct {
	content.Field
	Value   string
	Checked bool
	Error   string
	Choices []Option
}

type FormView struct {
	Kind   *content.Kind
	ID     string
	Action string
	Fields []FormField
	// Public links to the page showing the document, when there is one
	Public string
	Media  []MediaFile
}

type MediaView struct {
	Files    []MediaFile
	MaxBytes int64
	Accept   string
}

// titleOf returns the text admin lists show for doc
func titleOf(kind *content.Kind, doc domain.Document) string {
	if v, ok := doc[kind.TitleField]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return doc.ID()
}

func updatedAt(doc domain.Document) time.Time {
	s, _ := doc[domain.FieldUpdatedAt].(string)
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// publicURL is where a document shows up on the public site
func publicURL(kind *content.Kind, doc domain.Document) string {
	slug, _ := doc["slug"].(string)
	if slug == "" {
		return ""
	}
	switch kind.Name {
	case content.KindTour:
		return "/tours/" + slug
	case content.KindDestination:
		return "/destinations/" + slug
	case content.KindPost:
		return "/blog/" + slug
	}
	return ""
}

func editURL(kind *content.Kind, id string) string {
	if kind.Singleton() {
		return "/admin/settings"
	}
	return "/admin/" + kind.Name + "/" + url.PathEscape(id)
}
