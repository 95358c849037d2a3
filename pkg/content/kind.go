// Package content defines the site's content kinds: which collection each
// one lives in, its fields, and how submitted forms and JSON bodies are
// decoded, normalised and validated before they reach the store.
package content

import (
	"sort"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// FieldType selects the form control and the decoding rules of a field
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldTextarea  FieldType = "textarea"
	FieldRichText  FieldType = "richtext"
	FieldNumber    FieldType = "number"
	FieldInteger   FieldType = "integer"
	FieldCheckbox  FieldType = "checkbox"
	FieldList      FieldType = "list"      // one item per line
	FieldItinerary FieldType = "itinerary" // "title :: description" per line
	FieldSelect    FieldType = "select"
	FieldDate      FieldType = "date"
	FieldURL       FieldType = "url"
	FieldEmail     FieldType = "email"
	FieldImage     FieldType = "image"
	FieldSlug      FieldType = "slug"
	FieldRef       FieldType = "ref" // _id of a document in RefKind
)

// DateLayout is the storage format of date fields
const DateLayout = "2006-01-02"

// Field describes one document field
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`
	Options  []string  `json:"options,omitempty"`
	Help     string    `json:"help,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	RefKind  string    `json:"ref_kind,omitempty"`
	Default  any       `json:"default,omitempty"`
}

// Kind is a content type bound to one collection
type Kind struct {
	Name       string  `json:"name"`
	Collection string  `json:"collection"`
	Label      string  `json:"label"`
	Plural     string  `json:"plural"`
	Fields     []Field `json:"fields"`

	// TitleField names the field shown in admin lists
	TitleField string `json:"title_field"`
	// SlugSource is the field an empty slug is derived from; "" means the
	// kind has no slug
	SlugSource string `json:"slug_source,omitempty"`
	// DefaultSort and DefaultDesc order admin lists and public listings
	DefaultSort string `json:"default_sort"`
	DefaultDesc bool   `json:"default_desc"`
	// Singleton kinds hold exactly one document with id SingletonID
	SingletonID string `json:"singleton_id,omitempty"`
}

// Field returns the named field
func (k *Kind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasSlug reports whether documents of this kind are addressed by slug
func (k *Kind) HasSlug() bool {
	return k.SlugSource != ""
}

// Publishable reports whether the kind has a published flag that hides
// drafts from the public site
func (k *Kind) Publishable() bool {
	_, ok := k.Field("published")
	return ok
}

// Singleton reports whether the kind holds a single document
func (k *Kind) Singleton() bool {
	return k.SingletonID != ""
}

// ListOptions returns the pagination options for an unpaged listing in the
// kind's default order
func (k *Kind) ListOptions() *domain.PaginationOptions {
	return domain.Unpaged(k.DefaultSort, k.DefaultDesc)
}

// Indexes returns the fields the store should index for this kind, and
// whether each index is unique
func (k *Kind) Indexes() map[string]bool {
	indexes := map[string]bool{}
	if k.HasSlug() {
		indexes["slug"] = true
	}
	for _, f := range k.Fields {
		switch {
		case f.Type == FieldRef:
			indexes[f.Name] = false
		case f.Name == "published" || f.Name == "featured" || f.Name == "active":
			indexes[f.Name] = false
		}
	}
	return indexes
}

// Lookup finds a kind by name
func Lookup(name string) (*Kind, bool) {
	kind, ok := registry[name]
	return kind, ok
}

// ByCollection finds the kind stored in a collection
func ByCollection(collection string) (*Kind, bool) {
	for _, kind := range registry {
		if kind.Collection == collection {
			return kind, true
		}
	}
	return nil, false
}

// Kinds returns every kind in menu order
func Kinds() []*Kind {
	kinds := make([]*Kind, 0, len(registry))
	for _, name := range menuOrder {
		kinds = append(kinds, registry[name])
	}
	return kinds
}

// Names returns every kind name, sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func bound(v float64) *float64 {
	return &v
}
