package content

// Kind names
const (
	KindSlide       = "slide"
	KindTour        = "tour"
	KindDestination = "destination"
	KindFAQ         = "faq"
	KindPost        = "post"
	KindTestimonial = "testimonial"
	KindInquiry     = "inquiry"
	KindSettings    = "settings"
)

// SettingsID is the id of the site settings singleton
const SettingsID = "site"

// Inquiry statuses
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusClosed    = "closed"
)

var menuOrder = []string{
	KindSlide, KindTour, KindDestination, KindPost, KindFAQ, KindTestimonial, KindInquiry, KindSettings,
}

var orderField = Field{Name: "order", Label: "Order", Type: FieldInteger, Help: "Lower numbers come first", Default: int64(0)}
var publishedField = Field{Name: "published", Label: "Published", Type: FieldCheckbox}
var featuredField = Field{Name: "featured", Label: "Featured on the home page", Type: FieldCheckbox}
var slugField = Field{Name: "slug", Label: "Slug", Type: FieldSlug, Help: "Leave empty to generate it from the title"}

var registry = map[string]*Kind{
	KindSlide: {
		Name: KindSlide, Collection: "slides", Label: "Slide", Plural: "Slides",
		TitleField: "title", DefaultSort: "order",
		Fields: []Field{
			{Name: "title", Label: "Title", Type: FieldText, Required: true},
			{Name: "subtitle", Label: "Subtitle", Type: FieldText},
			{Name: "media_type", Label: "Media type", Type: FieldSelect, Required: true, Options: []string{"image", "video"}, Default: "image"},
			{Name: "media_url", Label: "Image or video", Type: FieldImage, Required: true},
			{Name: "poster_url", Label: "Video poster", Type: FieldImage, Help: "Required for video slides"},
			{Name: "cta_label", Label: "Button label", Type: FieldText},
			{Name: "cta_url", Label: "Button link", Type: FieldURL},
			{Name: "duration_ms", Label: "Duration (ms)", Type: FieldInteger, Min: bound(0), Max: bound(60000), Help: "Overrides the slider interval; 0 uses the default"},
			orderField,
			{Name: "active", Label: "Active", Type: FieldCheckbox, Default: true},
		},
	},
	KindTour: {
		Name: KindTour, Collection: "tours", Label: "Tour", Plural: "Tours",
		TitleField: "title", SlugSource: "title", DefaultSort: "order",
		Fields: []Field{
			{Name: "title", Label: "Title", Type: FieldText, Required: true},
			slugField,
			{Name: "summary", Label: "Summary", Type: FieldTextarea, Required: true},
			{Name: "description", Label: "Description", Type: FieldRichText},
			{Name: "destination_id", Label: "Destination", Type: FieldRef, RefKind: KindDestination},
			{Name: "duration_days", Label: "Duration (days)", Type: FieldInteger, Required: true, Min: bound(1), Max: bound(365)},
			{Name: "price_from", Label: "Price from", Type: FieldNumber, Min: bound(0)},
			{Name: "currency", Label: "Currency", Type: FieldSelect, Options: []string{"USD", "EUR", "GBP", "UGX", "KES", "TZS"}, Default: "USD"},
			{Name: "highlights", Label: "Highlights", Type: FieldList},
			{Name: "itinerary", Label: "Itinerary", Type: FieldItinerary, Help: "One day per line: title :: description"},
			{Name: "included", Label: "Included", Type: FieldList},
			{Name: "excluded", Label: "Not included", Type: FieldList},
			{Name: "cover_image", Label: "Cover image", Type: FieldImage},
			{Name: "gallery", Label: "Gallery", Type: FieldList, Help: "One image URL per line"},
			featuredField,
			publishedField,
			orderField,
		},
	},
	KindDestination: {
		Name: KindDestination, Collection: "destinations", Label: "Destination", Plural: "Destinations",
		TitleField: "name", SlugSource: "name", DefaultSort: "order",
		Fields: []Field{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			slugField,
			{Name: "country", Label: "Country", Type: FieldText, Required: true},
			{Name: "summary", Label: "Summary", Type: FieldTextarea},
			{Name: "description", Label: "Description", Type: FieldRichText},
			{Name: "cover_image", Label: "Cover image", Type: FieldImage},
			{Name: "gallery", Label: "Gallery", Type: FieldList, Help: "One image URL per line"},
			featuredField,
			publishedField,
			orderField,
		},
	},
	KindFAQ: {
		Name: KindFAQ, Collection: "faqs", Label: "FAQ", Plural: "FAQs",
		TitleField: "question", DefaultSort: "order",
		Fields: []Field{
			{Name: "question", Label: "Question", Type: FieldText, Required: true},
			{Name: "answer", Label: "Answer", Type: FieldRichText, Required: true},
			{Name: "category", Label: "Category", Type: FieldText, Default: "General"},
			orderField,
			publishedField,
		},
	},
	KindPost: {
		Name: KindPost, Collection: "posts", Label: "Blog post", Plural: "Blog posts",
		TitleField: "title", SlugSource: "title", DefaultSort: "published_at", DefaultDesc: true,
		Fields: []Field{
			{Name: "title", Label: "Title", Type: FieldText, Required: true},
			slugField,
			{Name: "excerpt", Label: "Excerpt", Type: FieldTextarea, Help: "Leave empty to use the start of the body"},
			{Name: "body", Label: "Body", Type: FieldRichText, Required: true},
			{Name: "cover_image", Label: "Cover image", Type: FieldImage},
			{Name: "author", Label: "Author", Type: FieldText},
			{Name: "tags", Label: "Tags", Type: FieldList},
			{Name: "published_at", Label: "Publish date", Type: FieldDate},
			publishedField,
		},
	},
	KindTestimonial: {
		Name: KindTestimonial, Collection: "testimonials", Label: "Testimonial", Plural: "Testimonials",
		TitleField: "author", DefaultSort: "order",
		Fields: []Field{
			{Name: "author", Label: "Author", Type: FieldText, Required: true},
			{Name: "location", Label: "Location", Type: FieldText},
			{Name: "quote", Label: "Quote", Type: FieldTextarea, Required: true},
			{Name: "rating", Label: "Rating", Type: FieldInteger, Required: true, Min: bound(1), Max: bound(5), Default: int64(5)},
			{Name: "tour_id", Label: "Tour", Type: FieldRef, RefKind: KindTour},
			publishedField,
			orderField,
		},
	},
	KindInquiry: {
		Name: KindInquiry, Collection: "inquiries", Label: "Inquiry", Plural: "Inquiries",
		TitleField: "name", DefaultSort: "_created_at", DefaultDesc: true,
		Fields: []Field{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
			{Name: "phone", Label: "Phone", Type: FieldText},
			{Name: "tour_id", Label: "Tour", Type: FieldRef, RefKind: KindTour},
			{Name: "travel_date", Label: "Travel date", Type: FieldDate},
			{Name: "travelers", Label: "Travellers", Type: FieldInteger, Min: bound(1), Max: bound(50)},
			{Name: "message", Label: "Message", Type: FieldTextarea, Required: true},
			{Name: "status", Label: "Status", Type: FieldSelect, Options: []string{StatusNew, StatusContacted, StatusClosed}, Default: StatusNew},
		},
	},
	KindSettings: {
		Name: KindSettings, Collection: "settings", Label: "Settings", Plural: "Settings",
		TitleField: "site_name", SingletonID: SettingsID,
		Fields: []Field{
			{Name: "site_name", Label: "Site name", Type: FieldText, Required: true, Default: "Go Tours"},
			{Name: "tagline", Label: "Tagline", Type: FieldText},
			{Name: "contact_email", Label: "Contact email", Type: FieldEmail},
			{Name: "phone", Label: "Phone", Type: FieldText},
			{Name: "address", Label: "Address", Type: FieldTextarea},
			{Name: "facebook_url", Label: "Facebook", Type: FieldURL},
			{Name: "instagram_url", Label: "Instagram", Type: FieldURL},
			{Name: "twitter_url", Label: "X / Twitter", Type: FieldURL},
			{Name: "youtube_url", Label: "YouTube", Type: FieldURL},
			{Name: "tripadvisor_url", Label: "Tripadvisor", Type: FieldURL},
			{Name: "slider_autoplay_ms", Label: "Slider interval (ms)", Type: FieldInteger, Min: bound(2000), Max: bound(60000), Default: int64(6000)},
			{Name: "slider_pause_on_hover", Label: "Pause slider on hover", Type: FieldCheckbox, Default: true},
		},
	},
}
