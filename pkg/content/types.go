package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// Meta carries the reserved fields every stored document has
type Meta struct {
	ID        string `json:"_id"`
	CreatedAt string `json:"_created_at,omitempty"`
	UpdatedAt string `json:"_updated_at,omitempty"`
}

// Updated parses UpdatedAt; the zero time if unset
func (m Meta) Updated() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, m.UpdatedAt)
	return t
}

// Created parses CreatedAt; the zero time if unset
func (m Meta) Created() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, m.CreatedAt)
	return t
}

type Slide struct {
	Meta
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	MediaType  string `json:"media_type"`
	MediaURL   string `json:"media_url"`
	PosterURL  string `json:"poster_url,omitempty"`
	CTALabel   string `json:"cta_label,omitempty"`
	CTAURL     string `json:"cta_url,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	Order      int    `json:"order"`
	Active     bool   `json:"active"`
}

// IsVideo reports whether the slide plays a video
func (s Slide) IsVideo() bool {
	return s.MediaType == "video"
}

type ItineraryDay struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Tour struct {
	Meta
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Summary       string         `json:"summary"`
	Description   string         `json:"description,omitempty"`
	DestinationID string         `json:"destination_id,omitempty"`
	DurationDays  int            `json:"duration_days"`
	PriceFrom     float64        `json:"price_from,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Highlights    []string       `json:"highlights,omitempty"`
	Itinerary     []ItineraryDay `json:"itinerary,omitempty"`
	Included      []string       `json:"included,omitempty"`
	Excluded      []string       `json:"excluded,omitempty"`
	CoverImage    string         `json:"cover_image,omitempty"`
	Gallery       []string       `json:"gallery,omitempty"`
	Featured      bool           `json:"featured"`
	Published     bool           `json:"published"`
	Order         int            `json:"order"`
}

type Destination struct {
	Meta
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Country     string   `json:"country"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	CoverImage  string   `json:"cover_image,omitempty"`
	Gallery     []string `json:"gallery,omitempty"`
	Featured    bool     `json:"featured"`
	Published   bool     `json:"published"`
	Order       int      `json:"order"`
}

type FAQ struct {
	Meta
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category,omitempty"`
	Order     int    `json:"order"`
	Published bool   `json:"published"`
}

type Post struct {
	Meta
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Body        string   `json:"body"`
	CoverImage  string   `json:"cover_image,omitempty"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Published   bool     `json:"published"`
}

// PublishedOn parses PublishedAt; the zero time if unset
func (p Post) PublishedOn() time.Time {
	t, _ := time.Parse(DateLayout, p.PublishedAt)
	return t
}

type Testimonial struct {
	Meta
	Author    string `json:"author"`
	Location  string `json:"location,omitempty"`
	Quote     string `json:"quote"`
	Rating    int    `json:"rating"`
	TourID    string `json:"tour_id,omitempty"`
	Published bool   `json:"published"`
	Order     int    `json:"order"`
}

type Inquiry struct {
	Meta
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	TourID     string `json:"tour_id,omitempty"`
	TravelDate string `json:"travel_date,omitempty"`
	Travelers  int    `json:"travelers,omitempty"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

type Settings struct {
	Meta
	SiteName           string `json:"site_name"`
	Tagline            string `json:"tagline,omitempty"`
	ContactEmail       string `json:"contact_email,omitempty"`
	Phone              string `json:"phone,omitempty"`
	Address            string `json:"address,omitempty"`
	FacebookURL        string `json:"facebook_url,omitempty"`
	InstagramURL       string `json:"instagram_url,omitempty"`
	TwitterURL         string `json:"twitter_url,omitempty"`
	YouTubeURL         string `json:"youtube_url,omitempty"`
	TripadvisorURL     string `json:"tripadvisor_url,omitempty"`
	SliderAutoplayMs   int    `json:"slider_autoplay_ms"`
	SliderPauseOnHover bool   `json:"slider_pause_on_hover"`
}

// DefaultSettings is used until the settings singleton has been saved
func DefaultSettings() Settings {
	kind := registry[KindSettings]
	var s Settings
	doc := Normalize(kind, domain.Document{}, time.Time{})
	if err := FromDocument(doc, &s); err != nil {
		panic(fmt.Sprintf("default settings: %v", err))
	}
	return s
}

// FromDocument copies a stored document into one of the typed structs
func FromDocument(doc domain.Document, out interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", doc.ID(), err)
	}
	return nil
}

// FromDocuments decodes many documents into a slice of typed structs
func FromDocuments[T any](docs []domain.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := FromDocument(doc, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ToDocument is the inverse of FromDocument
func ToDocument(in interface{}) (domain.Document, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", in, err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", in, err)
	}
	return doc, nil
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(value)
}
