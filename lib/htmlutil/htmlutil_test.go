package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<script>var hidden = "x";</script>
<div class="quote">
	<a class="tag" href=" /tag/world/ ">world</a>
	<span class="text">  “The world as we have   created it”  </span>
</div>
<ul class="pager">
	<li class="next"><a href="/page/2/">Next <span>→</span></a></li>
	<li><a>no href</a></li>
</ul>
</body></html>`

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	require.Equal(t, "“The world as we have created it”", SelectionText(doc.Find("span.text")))
	require.Equal(t, "", SelectionText(doc.Find("span.missing")))
}

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	base, err := url.Parse("http://quotes.toscrape.com/page/1/")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), doc.Find("ul.pager a"), base)
	require.Equal(t, []Anchor{
		{Name: "Next →", Href: "http://quotes.toscrape.com/page/2/"},
	}, anchors)
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b c", CleanText("\n\ta  b\n\n c \u0000"))
}

func TestSelectionValue(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	require.Equal(t, "/tag/world/", SelectionValue(doc.Find("a.tag"), "href"))
	require.Equal(t, "world", SelectionValue(doc.Find("a.tag"), ""))
	require.Equal(t, "", SelectionValue(doc.Find("a.tag"), "title"))
}

func TestGetTextSkipsScripts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	require.NotContains(t, SelectionText(doc.Find("body")), "hidden")
}
