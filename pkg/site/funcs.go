package site

import (
	"html/template"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/richtext"
)

var printer = message.NewPrinter(language.English)

var funcs = template.FuncMap{
	"richtext": renderRichText,
	"date":     formatDate,
	"price":    formatPrice,
	"plural":   plural,
	"stars":    stars,
	"lines":    lines,
	"add":      func(a, b int) int { return a + b },
	"year":     func() int { return time.Now().Year() },
}

// renderRichText marks stored rich text safe. It is sanitised again here so
// documents written before a policy change can't smuggle markup through.
func renderRichText(s string) template.HTML {
	return template.HTML(richtext.Sanitize(s))
}

// formatDate renders a stored date or RFC 3339 stamp as "2 Jan 2006"
func formatDate(s string) string {
	for _, layout := range []string{content.DateLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2 Jan 2006")
		}
	}
	return s
}

// formatPrice renders whole amounts with thousands separators
func formatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	if amount == math.Trunc(amount) {
		return printer.Sprintf("%s %d", currency, int64(amount))
	}
	return printer.Sprintf("%s %.2f", currency, amount)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// stars renders a 1 to 5 rating
func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// lines splits multi-line text such as an address
func lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
