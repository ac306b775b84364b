package htmlutil

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var tracer = otel.Tracer("labextract.lib.htmlutil")

// GetText concatenates the text nodes under node, the contents of script,
// style and template elements are not text.
func GetText(node *html.Node) string {
	var out strings.Builder
	writeText(node, &out)
	return out.String()
}

func writeText(node *html.Node, out *strings.Builder) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		out.WriteString(node.Data)
		return
	case html.ElementNode:
		switch node.DataAtom {
		case atom.Script, atom.Style, atom.Template:
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(child, out)
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText drops non-printable characters, trims the text and collapses
// inner runs of whitespace into a single space.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return innerWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// SelectionText is the cleaned text of the first node in the selection.
func SelectionText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return CleanText(GetText(sel.Nodes[0]))
}

// SelectionValue is the trimmed attribute attr of the first node, or its
// cleaned text when attr is empty.
func SelectionValue(sel *goquery.Selection, attr string) string {
	if attr == "" {
		return SelectionText(sel)
	}
	value, _ := sel.Attr(attr)
	return strings.TrimSpace(value)
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors returns the anchors in sel that carry an href, resolved against
// base when it is not nil.
func GetAnchors(ctx context.Context, sel *goquery.Selection, base *url.URL) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid href")
			return
		}
		if base != nil {
			link = base.ResolveReference(link)
		}

		anchor := Anchor{Name: SelectionText(a), Href: link.String()}
		anchors = append(anchors, anchor)
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", anchor.Name),
			attribute.String("url", anchor.Href),
		))
	})
	return anchors
}
