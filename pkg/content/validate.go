package content

import (
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/adfharrison1/go-tours/pkg/domain"
	"github.com/adfharrison1/go-tours/pkg/slug"
)

// ValidationErrors maps a field name to the problem with it
type ValidationErrors map[string]string

// Error lists the problems sorted by field
func (ve ValidationErrors) Error() string {
	fields := make([]string, 0, len(ve))
	for field := range ve {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + ve[field]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has a problem
func (ve ValidationErrors) Add(field, msg string) {
	if _, exists := ve[field]; !exists {
		ve[field] = msg
	}
}

// Merge copies other's problems into ve
func (ve ValidationErrors) Merge(other ValidationErrors) {
	for field, msg := range other {
		ve.Add(field, msg)
	}
}

// Err returns nil when there are no problems
func (ve ValidationErrors) Err() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// Validate checks a normalised document against the kind's fields
func Validate(kind *Kind, doc domain.Document) ValidationErrors {
	errs := ValidationErrors{}

	for _, field := range kind.Fields {
		value, present := doc[field.Name]
		if !present || isEmpty(value) {
			if field.Required {
				errs.Add(field.Name, "is required")
			}
			continue
		}
		if msg := checkField(field, value); msg != "" {
			errs.Add(field.Name, msg)
		}
	}

	switch kind.Name {
	case KindSlide:
		if doc["media_type"] == "video" && isEmpty(doc["poster_url"]) {
			errs.Add("poster_url", "is required for video slides")
		}
		if !isEmpty(doc["cta_label"]) && isEmpty(doc["cta_url"]) {
			errs.Add("cta_url", "is required when the button has a label")
		}
	case KindSettings:
		if id, ok := doc[domain.FieldID]; ok && id != SettingsID {
			errs.Add(domain.FieldID, fmt.Sprintf("must be %q", SettingsID))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// RefLookup reports whether a document of kind with id exists
type RefLookup func(kind *Kind, id string) bool

// CheckRefs verifies that every reference field points at a stored document
func CheckRefs(kind *Kind, doc domain.Document, exists RefLookup) ValidationErrors {
	errs := ValidationErrors{}
	for _, field := range kind.Fields {
		if field.Type != FieldRef {
			continue
		}
		id, ok := doc[field.Name].(string)
		if !ok || id == "" {
			continue
		}
		target, ok := Lookup(field.RefKind)
		if !ok {
			continue
		}
		if !exists(target, id) {
			errs.Add(field.Name, fmt.Sprintf("unknown %s", strings.ToLower(target.Label)))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkField(field Field, value interface{}) string {
	switch field.Type {
	case FieldText, FieldTextarea, FieldRichText, FieldRef:
		if _, ok := value.(string); !ok {
			return "must be text"
		}
	case FieldSlug:
		s, ok := value.(string)
		if !ok || !slug.Valid(s) {
			return "may only contain lower-case letters, digits and single dashes"
		}
	case FieldEmail:
		s, ok := value.(string)
		if !ok || !validEmail(s) {
			return "must be a valid email address"
		}
	case FieldURL, FieldImage:
		s, ok := value.(string)
		if !ok || !validURL(s) {
			return "must be an http(s) URL or a path starting with /"
		}
	case FieldSelect:
		s, ok := value.(string)
		if !ok || !contains(field.Options, s) {
			return "must be one of " + strings.Join(field.Options, ", ")
		}
	case FieldDate:
		s, ok := value.(string)
		if !ok {
			return "must be a date (YYYY-MM-DD)"
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return "must be a date (YYYY-MM-DD)"
		}
	case FieldCheckbox:
		if _, ok := value.(bool); !ok {
			return "must be true or false"
		}
	case FieldNumber:
		n, ok := value.(float64)
		if !ok || !finite(n) {
			return "must be a number"
		}
		return checkRange(field, n)
	case FieldInteger:
		n, ok := value.(int64)
		if !ok {
			return "must be a whole number"
		}
		return checkRange(field, float64(n))
	case FieldList:
		items, ok := value.([]interface{})
		if !ok {
			return "must be a list"
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return "must be a list of text"
			}
		}
	case FieldItinerary:
		days, ok := value.([]interface{})
		if !ok {
			return "must be a list of days"
		}
		for i, d := range days {
			day, ok := d.(map[string]interface{})
			if !ok || isEmpty(day["title"]) {
				return fmt.Sprintf("day %d needs a title", i+1)
			}
		}
	}
	return ""
}

func checkRange(field Field, n float64) string {
	switch {
	case field.Min != nil && field.Max != nil && (n < *field.Min || n > *field.Max):
		return fmt.Sprintf("must be between %g and %g", *field.Min, *field.Max)
	case field.Min != nil && n < *field.Min:
		return fmt.Sprintf("must be at least %g", *field.Min)
	case field.Max != nil && n > *field.Max:
		return fmt.Sprintf("must be at most %g", *field.Max)
	}
	return ""
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndexByte(s, '@')+1:], ".")
}

func validURL(s string) bool {
	if strings.HasPrefix(s, "/") {
		return !strings.HasPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
