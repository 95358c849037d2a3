package content

import (
	"net/url"
	"strings"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// Decode turns a submitted admin form into a document. Values stay as the
// submitted text (checkboxes become bools); Normalize coerces them to their
// field types and Validate reports what can't be coerced.
func Decode(kind *Kind, form url.Values) domain.Document {
	doc := domain.Document{}
	for _, field := range kind.Fields {
		values, present := form[field.Name]

		if field.Type == FieldCheckbox {
			doc[field.Name] = present && len(values) > 0 && parseCheckbox(values[len(values)-1])
			continue
		}
		if !present || len(values) == 0 {
			continue
		}

		if len(values) > 1 && (field.Type == FieldList || field.Type == FieldItinerary) {
			doc[field.Name] = strings.Join(values, "\n")
			continue
		}
		if strings.TrimSpace(values[0]) == "" {
			continue
		}
		doc[field.Name] = values[0]
	}
	return doc
}

// Encode renders a stored document as form values, the inverse of Decode
func Encode(kind *Kind, doc domain.Document) url.Values {
	form := url.Values{}
	for _, field := range kind.Fields {
		value, ok := doc[field.Name]
		if !ok || value == nil {
			continue
		}
		switch field.Type {
		case FieldCheckbox:
			if value == true {
				form.Set(field.Name, "on")
			}
		case FieldList:
			form.Set(field.Name, ListText(value))
		case FieldItinerary:
			form.Set(field.Name, ItineraryText(value))
		default:
			form.Set(field.Name, toString(value))
		}
	}
	return form
}
