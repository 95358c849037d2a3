package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		absent   []string
	}{
		{
			name:     "script removed",
			input:    `<p>Hello<script>alert(1)</script></p>`,
			contains: []string{"<p>Hello</p>"},
			absent:   []string{"script", "alert"},
		},
		{
			name:     "event handlers dropped",
			input:    `<p onclick="steal()">Hi</p><img src="/media/a.jpg" onerror="x()" alt="A">`,
			contains: []string{"<p>Hi</p>", `src="/media/a.jpg"`, `alt="A"`},
			absent:   []string{"onclick", "onerror"},
		},
		{
			name:     "custom marks kept",
			input:    `<p><mark>new</mark> <span class="hl-yellow">sun</span> <u>u</u> <s>old</s> H<sub>2</sub>O x<sup>2</sup></p>`,
			contains: []string{"<mark>new</mark>", `<span class="hl-yellow">sun</span>`, "<u>u</u>", "<s>old</s>", "<sub>2</sub>", "<sup>2</sup>"},
		},
		{
			name:     "unknown span class dropped",
			input:    `<p><span class="evil" style="color:red">text</span></p>`,
			contains: []string{"text"},
			absent:   []string{"evil", "style"},
		},
		{
			name:     "external links get rel and target",
			input:    `<a href="https://example.com/x">ext</a>`,
			contains: []string{"nofollow", "noopener", `target="_blank"`},
		},
		{
			name:     "relative links untouched",
			input:    `<a href="/tours/gorilla-trek">tour</a>`,
			contains: []string{`<a href="/tours/gorilla-trek">tour</a>`},
		},
		{
			name:   "javascript urls removed",
			input:  `<a href="javascript:alert(1)">x</a>`,
			absent: []string{"javascript"},
		},
		{
			name:     "headings and tables",
			input:    `<h1>Top</h1><h2 id="day-1">Day 1</h2><table><tr><td colspan="2">x</td></tr></table>`,
			contains: []string{`<h2 id="day-1">Day 1</h2>`, `colspan="2"`},
			absent:   []string{"<h1>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, bad := range tt.absent {
				assert.NotContains(t, got, bad)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Day one Arrive in Entebbe.", PlainText("<h2>Day one</h2><p>Arrive in <b>Entebbe</b>.</p>"))
	assert.Equal(t, "a b", PlainText("<p>a</p><style>p{}</style><script>var x</script><p>b</p>"))
	assert.Equal(t, "Fish & chips", PlainText("<p>Fish &amp; chips</p>"))
	assert.Equal(t, "", PlainText(""))
}

func TestExcerpt(t *testing.T) {
	body := "<p>Trek through the misty forests of Bwindi to meet a habituated gorilla family.</p>"

	tests := []struct {
		name string
		n    int
		want string
	}{
		{name: "fits", n: 500, want: "Trek through the misty forests of Bwindi to meet a habituated gorilla family."},
		{name: "cut mid-word", n: 20, want: "Trek through the…"},
		{name: "cut on space", n: 16, want: "Trek through the…"},
		{name: "cut after a space", n: 41, want: "Trek through the misty forests of Bwindi…"},
		{name: "no limit", n: 0, want: "Trek through the misty forests of Bwindi to meet a habituated gorilla family."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Excerpt(body, tt.n))
		})
	}
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, 1, ReadingTime(""))
	assert.Equal(t, 1, ReadingTime("<p>short</p>"))
	assert.Equal(t, 1, ReadingTime("<p>"+strings.Repeat("word ", 200)+"</p>"))
	assert.Equal(t, 2, ReadingTime("<p>"+strings.Repeat("word ", 201)+"</p>"))
	assert.Equal(t, 3, WordCount("<p>one <b>two</b> three</p>"))
}

func TestAnchorHeadings(t *testing.T) {
	input := `<h2>Before you go</h2><p>x</p><h3 id="visas">Visas</h3><h2>Before you go</h2><h4>Skipped</h4><h2> </h2>`

	out, headings := AnchorHeadings(input)
	require.Len(t, headings, 3)
	assert.Equal(t, Heading{Level: 2, Text: "Before you go", ID: "before-you-go"}, headings[0])
	assert.Equal(t, Heading{Level: 3, Text: "Visas", ID: "visas"}, headings[1])
	assert.Equal(t, "before-you-go-2", headings[2].ID)

	assert.Contains(t, out, `<h2 id="before-you-go">Before you go</h2>`)
	assert.Contains(t, out, `<h2 id="before-you-go-2">`)
	assert.Contains(t, out, "<h4>Skipped</h4>")

	assert.Equal(t, headings, Headings(input))
	assert.Empty(t, Headings("<p>no headings</p>"))
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(`<h2>Packing list</h2><ul><li>Boots</li><li>Rain jacket</li></ul><p>See <a href="/faq">the FAQ</a>.</p>`)
	require.NoError(t, err)

	assert.Contains(t, md, "## Packing list")
	assert.Contains(t, md, "Boots")
	assert.Contains(t, md, "Rain jacket")
	assert.Contains(t, md, "[the FAQ](/faq)")
	assert.NotContains(t, md, "<")
}
