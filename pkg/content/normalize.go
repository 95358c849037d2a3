package content

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adfharrison1/go-tours/pkg/domain"
	"github.com/adfharrison1/go-tours/pkg/richtext"
	"github.com/adfharrison1/go-tours/pkg/slug"
	"github.com/adfharrison1/go-tours/pkg/storage"
)

// ExcerptLength is the size of generated post excerpts, in runes
const ExcerptLength = 160

// ItinerarySeparator splits a day's title from its description
const ItinerarySeparator = "::"

// Normalize returns a copy of doc with the kind's fields coerced to their
// stored types: text trimmed, rich text sanitised, lists trimmed and
// de-duplicated, numbers as float64, integers as int64. Unknown fields are
// dropped; reserved fields are kept. Missing fields get their defaults, an
// empty slug is derived from the kind's slug source and posts get an excerpt.
// Invalid UTF-8 in text is replaced with U+FFFD. Values that can't be
// coerced are left as they are for Validate to report.
func Normalize(kind *Kind, doc domain.Document, now time.Time) domain.Document {
	out := domain.Document{}
	for _, key := range []string{domain.FieldID, domain.FieldCreatedAt, domain.FieldUpdatedAt} {
		if v, ok := doc[key]; ok {
			out[key] = v
		}
	}
	if kind.Singleton() {
		out[domain.FieldID] = kind.SingletonID
	}

	for _, field := range kind.Fields {
		value, present := doc[field.Name]
		if present && value != nil {
			value = coerce(field, validUTF8(value))
		}
		if !present || isEmpty(value) {
			if field.Default != nil {
				out[field.Name] = field.Default
			} else if field.Type == FieldCheckbox {
				out[field.Name] = false
			}
			continue
		}
		out[field.Name] = value
	}

	if kind.HasSlug() {
		if isEmpty(out["slug"]) {
			if source, ok := out[kind.SlugSource].(string); ok {
				if s := slug.Make(source); s != "" {
					out["slug"] = s
				}
			}
		}
	}

	switch kind.Name {
	case KindPost:
		if body, ok := out["body"].(string); ok && isEmpty(out["excerpt"]) {
			if excerpt := richtext.Excerpt(body, ExcerptLength); excerpt != "" {
				out["excerpt"] = excerpt
			}
		}
		if out["published"] == true && isEmpty(out["published_at"]) {
			out["published_at"] = now.UTC().Format(DateLayout)
		}
	case KindInquiry:
		if isEmpty(out["status"]) {
			out["status"] = StatusNew
		}
	}
	return out
}

func coerce(field Field, value interface{}) interface{} {
	switch field.Type {
	case FieldText, FieldTextarea, FieldURL, FieldImage, FieldSelect, FieldRef, FieldEmail:
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
	case FieldSlug:
		if s, ok := value.(string); ok {
			return strings.ToLower(strings.TrimSpace(s))
		}
	case FieldRichText:
		if s, ok := value.(string); ok {
			return strings.TrimSpace(richtext.Sanitize(s))
		}
	case FieldDate:
		if s, ok := value.(string); ok {
			s = strings.TrimSpace(s)
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t.UTC().Format(DateLayout)
			}
			return s
		}
	case FieldNumber:
		switch v := value.(type) {
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && finite(n) {
				return n
			}
		default:
			if n, ok := storage.ToFloat64(v); ok {
				return n
			}
		}
	case FieldInteger:
		switch v := value.(type) {
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		default:
			if n, ok := storage.ToFloat64(v); ok && finite(n) && n == math.Trunc(n) {
				return int64(n)
			}
		}
	case FieldCheckbox:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			return parseCheckbox(v)
		}
	case FieldList:
		return normalizeList(value)
	case FieldItinerary:
		return normalizeItinerary(value)
	}
	return value
}

// FilterValue converts a query string to field's stored type so equality
// filters compare like with like. List fields match a single item.
func FilterValue(field Field, raw string) interface{} {
	switch field.Type {
	case FieldNumber, FieldInteger, FieldCheckbox, FieldSlug, FieldDate:
		return coerce(field, raw)
	}
	return strings.TrimSpace(raw)
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// validUTF8 replaces invalid UTF-8 in strings, including inside lists and
// itinerary days
func validUTF8(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return strings.ToValidUTF8(v, "\uFFFD")
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = strings.ToValidUTF8(s, "\uFFFD")
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = validUTF8(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = validUTF8(item)
		}
		return out
	case domain.Document:
		return validUTF8(map[string]interface{}(v))
	}
	return value
}

func parseCheckbox(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// normalizeList accepts a list or newline separated text and returns
// trimmed, non-empty, de-duplicated items in their original order
func normalizeList(value interface{}) interface{} {
	var raw []string
	switch v := value.(type) {
	case string:
		raw = strings.Split(v, "\n")
	case []string:
		raw = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return value
			}
			raw = append(raw, s)
		}
	default:
		return value
	}

	items := []interface{}{}
	seen := map[string]bool{}
	for _, s := range raw {
		s = strings.TrimSpace(strings.TrimRight(s, "\r"))
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, s)
	}
	return items
}

// normalizeItinerary accepts "title :: description" lines or a list of day
// objects and returns days numbered from 1
func normalizeItinerary(value interface{}) interface{} {
	var days []map[string]interface{}
	switch v := value.(type) {
	case string:
		for _, line := range strings.Split(v, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			title, description, _ := strings.Cut(line, ItinerarySeparator)
			days = append(days, map[string]interface{}{
				"title":       strings.TrimSpace(title),
				"description": strings.TrimSpace(description),
			})
		}
	case []interface{}:
		for _, item := range v {
			day, ok := asMap(item)
			if !ok {
				return value
			}
			title, _ := day["title"].(string)
			description, _ := day["description"].(string)
			days = append(days, map[string]interface{}{
				"title":       strings.TrimSpace(title),
				"description": strings.TrimSpace(description),
			})
		}
	default:
		return value
	}

	out := make([]interface{}, len(days))
	for i, day := range days {
		day["day"] = int64(i + 1)
		out[i] = day
	}
	return out
}

// ItineraryText renders days back into the textarea format
func ItineraryText(value interface{}) string {
	days, ok := value.([]interface{})
	if !ok {
		return ""
	}
	lines := make([]string, 0, len(days))
	for _, d := range days {
		day, ok := asMap(d)
		if !ok {
			continue
		}
		title, _ := day["title"].(string)
		description, _ := day["description"].(string)
		if description == "" {
			lines = append(lines, title)
			continue
		}
		lines = append(lines, title+" "+ItinerarySeparator+" "+description)
	}
	return strings.Join(lines, "\n")
}

// ListText renders a list field back into the textarea format
func ListText(value interface{}) string {
	switch v := value.(type) {
	case []interface{}:
		lines := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	case []string:
		return strings.Join(v, "\n")
	case string:
		return v
	}
	return ""
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case domain.Document:
		return m, true
	}
	return nil, false
}
