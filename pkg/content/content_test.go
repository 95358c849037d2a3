package content

import (
	"math"
	"net/url"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func mustKind(t *testing.T, name string) *Kind {
	t.Helper()
	kind, ok := Lookup(name)
	require.True(t, ok, "kind %s", name)
	return kind
}

func TestRegistry(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, 8)
	assert.Equal(t, KindSlide, kinds[0].Name)
	assert.Equal(t, KindSettings, kinds[len(kinds)-1].Name)
	assert.Len(t, Names(), 8)

	for _, kind := range kinds {
		assert.NotEmpty(t, kind.Collection)
		_, ok := kind.Field(kind.TitleField)
		assert.True(t, ok, "%s title field %s", kind.Name, kind.TitleField)
		if kind.HasSlug() {
			_, ok := kind.Field("slug")
			assert.True(t, ok, "%s has a slug source but no slug field", kind.Name)
		}
		byColl, ok := ByCollection(kind.Collection)
		require.True(t, ok)
		assert.Equal(t, kind, byColl)
	}

	_, ok := Lookup("widget")
	assert.False(t, ok)

	tour := mustKind(t, KindTour)
	assert.True(t, tour.Publishable())
	assert.Equal(t, map[string]bool{"slug": true, "destination_id": false, "featured": false, "published": false}, tour.Indexes())

	settings := mustKind(t, KindSettings)
	assert.True(t, settings.Singleton())
	assert.False(t, settings.Publishable())

	opts := mustKind(t, KindPost).ListOptions()
	assert.True(t, opts.IsUnpaged())
	assert.Equal(t, "published_at", opts.SortBy)
	assert.True(t, opts.Desc)
}

func TestDecode(t *testing.T) {
	form := url.Values{
		"title":         {"  Gorilla Trek "},
		"summary":       {"Meet the gorillas"},
		"duration_days": {"3"},
		"price_from":    {"1250.50"},
		"highlights":    {"Bwindi\nPermits\n\nbwindi\n"},
		"itinerary":     {"Arrive :: Transfer to lodge\nTrek day"},
		"featured":      {"false", "on"},
		"cover_image":   {""},
		"unknown":       {"dropped"},
	}

	doc := Decode(mustKind(t, KindTour), form)
	assert.Equal(t, "  Gorilla Trek ", doc["title"], "decode keeps raw text")
	assert.Equal(t, true, doc["featured"])
	assert.Equal(t, false, doc["published"], "absent checkbox is false")
	assert.NotContains(t, doc, "cover_image")
	assert.NotContains(t, doc, "unknown")
}

func TestNormalize_Tour(t *testing.T) {
	kind := mustKind(t, KindTour)
	form := url.Values{
		"title":         {"  Gorilla Trek in Bwindi "},
		"summary":       {"Meet the gorillas"},
		"description":   {`<p>Day <b>one</b></p><script>x()</script>`},
		"duration_days": {"3"},
		"price_from":    {"1250.50"},
		"highlights":    {"Bwindi\r\nPermits\n\nbwindi\n"},
		"itinerary":     {"Arrive :: Transfer to lodge\n\nTrek day"},
		"published":     {"on"},
	}

	doc := Normalize(kind, Decode(kind, form), testNow)

	assert.Equal(t, "Gorilla Trek in Bwindi", doc["title"])
	assert.Equal(t, "gorilla-trek-in-bwindi", doc["slug"])
	assert.Equal(t, "<p>Day <b>one</b></p>", doc["description"])
	assert.Equal(t, int64(3), doc["duration_days"])
	assert.Equal(t, 1250.5, doc["price_from"])
	assert.Equal(t, "USD", doc["currency"])
	assert.Equal(t, int64(0), doc["order"])
	assert.Equal(t, []interface{}{"Bwindi", "Permits"}, doc["highlights"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"day": int64(1), "title": "Arrive", "description": "Transfer to lodge"},
		map[string]interface{}{"day": int64(2), "title": "Trek day", "description": ""},
	}, doc["itinerary"])
	assert.Equal(t, true, doc["published"])
	assert.Equal(t, false, doc["featured"])

	assert.Nil(t, Validate(kind, doc))
}

func TestNormalize_JSONInput(t *testing.T) {
	kind := mustKind(t, KindTour)
	doc := Normalize(kind, domain.Document{
		domain.FieldID:  "t1",
		"title":         "Nile",
		"slug":          " Nile-Rafting ",
		"summary":       "Rapids",
		"duration_days": 1.0,
		"price_from":    int64(99),
		"highlights":    []interface{}{" Jinja ", "Jinja"},
		"itinerary":     []interface{}{map[string]interface{}{"day": 7.0, "title": "Raft"}},
		"extra":         "dropped",
	}, testNow)

	assert.Equal(t, "t1", doc.ID())
	assert.Equal(t, "nile-rafting", doc["slug"], "supplied slug kept, lower-cased")
	assert.Equal(t, int64(1), doc["duration_days"])
	assert.Equal(t, 99.0, doc["price_from"])
	assert.Equal(t, []interface{}{"Jinja"}, doc["highlights"])
	assert.Equal(t, int64(1), doc["itinerary"].([]interface{})[0].(map[string]interface{})["day"])
	assert.NotContains(t, doc, "extra")
}

func TestNormalize_PostDefaults(t *testing.T) {
	kind := mustKind(t, KindPost)
	doc := Normalize(kind, domain.Document{
		"title":     "Packing for the Rainforest",
		"body":      "<p>Bring boots.</p>",
		"published": true,
	}, testNow)

	assert.Equal(t, "packing-for-the-rainforest", doc["slug"])
	assert.Equal(t, "Bring boots.", doc["excerpt"])
	assert.Equal(t, "2024-06-01", doc["published_at"])

	draft := Normalize(kind, domain.Document{"title": "Draft", "body": "<p>x</p>"}, testNow)
	assert.NotContains(t, draft, "published_at")

	dated := Normalize(kind, domain.Document{"title": "x", "body": "y", "published_at": "2023-02-03T10:00:00Z"}, testNow)
	assert.Equal(t, "2023-02-03", dated["published_at"])
}

func TestNormalize_SingletonAndInquiry(t *testing.T) {
	settings := Normalize(mustKind(t, KindSettings), domain.Document{domain.FieldID: "other"}, testNow)
	assert.Equal(t, SettingsID, settings.ID())
	assert.Equal(t, "Go Tours", settings["site_name"])
	assert.Equal(t, int64(6000), settings["slider_autoplay_ms"])
	assert.Equal(t, true, settings["slider_pause_on_hover"])

	inquiry := Normalize(mustKind(t, KindInquiry), domain.Document{"name": "Ana"}, testNow)
	assert.Equal(t, StatusNew, inquiry["status"])
}

func TestNormalize_InvalidUTF8(t *testing.T) {
	kind := mustKind(t, KindTour)
	form := url.Values{
		"title":         {"Gorilla \xffTrek"},
		"summary":       {"Meet\xc3 them"},
		"duration_days": {"3"},
		"highlights":    {"Bwindi\xfe\nPermits"},
		"itinerary":     {"Arrive\xff :: Lodge"},
	}

	doc := Normalize(kind, Decode(kind, form), testNow)

	assert.Equal(t, "Gorilla \uFFFDTrek", doc["title"])
	assert.Equal(t, "Meet\uFFFD them", doc["summary"])
	assert.Equal(t, []interface{}{"Bwindi\uFFFD", "Permits"}, doc["highlights"])
	day := doc["itinerary"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Arrive\uFFFD", day["title"])
	for _, key := range []string{"title", "summary", "slug"} {
		assert.True(t, utf8.ValidString(doc[key].(string)), key)
	}
	assert.Nil(t, Validate(kind, doc))
}

func TestFilterValue(t *testing.T) {
	tour := mustKind(t, KindTour)
	field := func(name string) Field {
		f, ok := tour.Field(name)
		require.True(t, ok, name)
		return f
	}

	tests := []struct {
		name  string
		field string
		raw   string
		want  interface{}
	}{
		{"digits in a slug stay text", "slug", "2024", "2024"},
		{"slug lower-cased", "slug", "Gorilla-Trek", "gorilla-trek"},
		{"digits in a title stay text", "title", " 1984 ", "1984"},
		{"integer", "duration_days", "3", int64(3)},
		{"number", "price_from", "99.5", 99.5},
		{"NaN stays text", "price_from", "NaN", "NaN"},
		{"checkbox", "published", "true", true},
		{"list item", "highlights", "Bwindi", "Bwindi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterValue(field(tt.field), tt.raw))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		doc    domain.Document
		errors map[string]string
	}{
		{
			name: "missing required",
			kind: KindTour,
			doc:  domain.Document{"summary": "x"},
			errors: map[string]string{
				"title":         "is required",
				"duration_days": "is required",
			},
		},
		{
			name:   "bad slug",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": "3", "slug": "Bad Slug!"},
			errors: map[string]string{"slug": "may only contain lower-case letters, digits and single dashes"},
		},
		{
			name:   "duration below one",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": 0},
			errors: map[string]string{"duration_days": "must be between 1 and 365"},
		},
		{
			name:   "negative price",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": 2, "price_from": -1},
			errors: map[string]string{"price_from": "must be at least 0"},
		},
		{
			name:   "not a number",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": "two"},
			errors: map[string]string{"duration_days": "must be a whole number"},
		},
		{
			name:   "rating out of range",
			kind:   KindTestimonial,
			doc:    domain.Document{"author": "Ana", "quote": "Great", "rating": 6},
			errors: map[string]string{"rating": "must be between 1 and 5"},
		},
		{
			name: "inquiry formats",
			kind: KindInquiry,
			doc: domain.Document{
				"name": "Ana", "message": "Hi", "email": "ana@", "travelers": 51,
				"travel_date": "next week", "status": "archived",
			},
			errors: map[string]string{
				"email":       "must be a valid email address",
				"travelers":   "must be between 1 and 50",
				"travel_date": "must be a date (YYYY-MM-DD)",
				"status":      "must be one of new, contacted, closed",
			},
		},
		{
			name:   "video slide needs poster",
			kind:   KindSlide,
			doc:    domain.Document{"title": "x", "media_type": "video", "media_url": "/media/a.mp4"},
			errors: map[string]string{"poster_url": "is required for video slides"},
		},
		{
			name: "urls",
			kind: KindSlide,
			doc: domain.Document{
				"title": "x", "media_url": "javascript:alert(1)", "cta_label": "Go", "cta_url": "//evil.example",
			},
			errors: map[string]string{
				"media_url": "must be an http(s) URL or a path starting with /",
				"cta_url":   "must be an http(s) URL or a path starting with /",
			},
		},
		{
			name:   "NaN price",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": 2, "price_from": "NaN"},
			errors: map[string]string{"price_from": "must be a number"},
		},
		{
			name:   "infinite price",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": 2, "price_from": "+Infinity"},
			errors: map[string]string{"price_from": "must be a number"},
		},
		{
			name:   "infinite float price",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": 2, "price_from": math.Inf(1)},
			errors: map[string]string{"price_from": "must be a number"},
		},
		{
			name:   "NaN float price",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": 2, "price_from": math.NaN()},
			errors: map[string]string{"price_from": "must be a number"},
		},
		{
			name:   "infinite duration",
			kind:   KindTour,
			doc:    domain.Document{"title": "x", "summary": "x", "duration_days": math.Inf(1)},
			errors: map[string]string{"duration_days": "must be a whole number"},
		},
		{
			name: "valid inquiry",
			kind: KindInquiry,
			doc: domain.Document{
				"name": "Ana", "message": "Hi", "email": "ana@example.com", "travelers": 2,
				"travel_date": "2024-08-01",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := mustKind(t, tt.kind)
			errs := Validate(kind, Normalize(kind, tt.doc, testNow))
			if len(tt.errors) == 0 {
				assert.Nil(t, errs)
				assert.NoError(t, errs.Err())
				return
			}
			assert.Equal(t, ValidationErrors(tt.errors), errs)
			assert.Error(t, errs.Err())
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{"title": "is required", "email": "must be a valid email address"}
	assert.Equal(t, "validation failed: email: must be a valid email address; title: is required", errs.Error())

	errs.Add("title", "ignored")
	assert.Equal(t, "is required", errs["title"])

	errs.Merge(ValidationErrors{"slug": "taken"})
	assert.Len(t, errs, 3)
}

func TestCheckRefs(t *testing.T) {
	kind := mustKind(t, KindTour)
	lookup := func(target *Kind, id string) bool {
		return target.Name == KindDestination && id == "uganda"
	}

	assert.Nil(t, CheckRefs(kind, domain.Document{"destination_id": "uganda"}, lookup))
	assert.Nil(t, CheckRefs(kind, domain.Document{}, lookup))
	assert.Equal(t,
		ValidationErrors{"destination_id": "unknown destination"},
		CheckRefs(kind, domain.Document{"destination_id": "mars"}, lookup))
}

func TestEncodeRoundTrip(t *testing.T) {
	kind := mustKind(t, KindTour)
	original := Normalize(kind, domain.Document{
		"title":         "Gorilla Trek",
		"summary":       "Meet the gorillas",
		"duration_days": 3,
		"price_from":    1250.5,
		"highlights":    []interface{}{"Bwindi", "Permits"},
		"itinerary":     "Arrive :: Lodge\nTrek",
		"featured":      true,
	}, testNow)

	form := Encode(kind, original)
	assert.Equal(t, "3", form.Get("duration_days"))
	assert.Equal(t, "1250.5", form.Get("price_from"))
	assert.Equal(t, "Bwindi\nPermits", form.Get("highlights"))
	assert.Equal(t, "Arrive :: Lodge\nTrek", form.Get("itinerary"))
	assert.Equal(t, "on", form.Get("featured"))
	assert.False(t, form.Has("published"))

	assert.Equal(t, original, Normalize(kind, Decode(kind, form), testNow))
}

func TestFromDocument(t *testing.T) {
	doc := domain.Document{
		domain.FieldID:        "t1",
		domain.FieldUpdatedAt: "2024-06-01T09:30:00Z",
		"title":               "Gorilla Trek",
		"duration_days":       3.0, // as replayed from the journal
		"price_from":          int64(1250),
		"highlights":          []interface{}{"Bwindi"},
		"itinerary": []interface{}{
			map[string]interface{}{"day": int64(1), "title": "Arrive"},
		},
		"published": true,
	}

	var tour Tour
	require.NoError(t, FromDocument(doc, &tour))
	assert.Equal(t, "t1", tour.ID)
	assert.Equal(t, 3, tour.DurationDays)
	assert.Equal(t, 1250.0, tour.PriceFrom)
	assert.Equal(t, []string{"Bwindi"}, tour.Highlights)
	assert.Equal(t, []ItineraryDay{{Day: 1, Title: "Arrive"}}, tour.Itinerary)
	assert.True(t, tour.Published)
	assert.Equal(t, 2024, tour.Updated().Year())

	tours, err := FromDocuments[Tour]([]domain.Document{doc, doc})
	require.NoError(t, err)
	assert.Len(t, tours, 2)

	back, err := ToDocument(tour)
	require.NoError(t, err)
	assert.Equal(t, "Gorilla Trek", back["title"])

	var bad Tour
	assert.Error(t, FromDocument(domain.Document{"title": 42}, &bad))
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, SettingsID, s.ID)
	assert.Equal(t, "Go Tours", s.SiteName)
	assert.Equal(t, 6000, s.SliderAutoplayMs)
	assert.True(t, s.SliderPauseOnHover)
}
