package richtext

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/adfharrison1/go-tours/pkg/slug"
)

// WordsPerMinute is the reading speed used by ReadingTime
const WordsPerMinute = 200

// Heading is one entry of a table of contents
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// blockElements get a line break around their text in PlainText
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.Div: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Figcaption: true, atom.Hr: true,
}

// PlainText returns the text content of html with whitespace collapsed.
// Script and style content is dropped.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				skip++
			}
			if blockElements[a] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			if blockElements[a] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Excerpt returns at most n runes of the plain text, cut at a word boundary
// and followed by an ellipsis when anything was cut.
func Excerpt(fragment string, n int) string {
	text := PlainText(fragment)
	r := []rune(text)
	if n <= 0 || len(r) <= n {
		return text
	}

	cut := string(r[:n])
	if !unicode.IsSpace(r[n]) {
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
	}
	cut = strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return cut + "…"
}

// WordCount counts whitespace separated words of the plain text
func WordCount(fragment string) int {
	return len(strings.Fields(PlainText(fragment)))
}

// ReadingTime estimates reading minutes, never less than one
func ReadingTime(fragment string) int {
	minutes := int(math.Ceil(float64(WordCount(fragment)) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Headings lists the h2 and h3 elements of html in document order. IDs are
// the element's id attribute or a slug of its text, made unique.
func Headings(fragment string) []Heading {
	_, headings := AnchorHeadings(fragment)
	return headings
}

// AnchorHeadings gives every h2 and h3 an id so a table of contents can link
// to it, and returns the rewritten html together with the headings.
func AnchorHeadings(fragment string) (string, []Heading) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fragment, nil
	}

	var headings []Heading
	used := map[string]bool{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.H2 || n.DataAtom == atom.H3) {
			text := strings.Join(strings.Fields(nodeText(n)), " ")
			if text != "" {
				id := attr(n, "id")
				if id == "" {
					id = slug.Make(text)
					if id == "" {
						id = "section"
					}
				}
				base := id
				for i := 2; used[id]; i++ {
					id = fmt.Sprintf("%s-%d", base, i)
				}
				used[id] = true
				setAttr(n, "id", id)

				level := 2
				if n.DataAtom == atom.H3 {
					level = 3
				}
				headings = append(headings, Heading{Level: level, Text: text, ID: id})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	var b strings.Builder
	for _, n := range nodes {
		walk(n)
		if err := html.Render(&b, n); err != nil {
			return fragment, nil
		}
	}
	return b.String(), headings
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
