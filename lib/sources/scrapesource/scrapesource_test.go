package scrapesource

import (
	"context"
	"fmt"
	"labextract/lib/configutil"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"labextract/lib/sources/webfetch"
	"labextract/lib/telemetry"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type quote struct {
	text   string
	author string
	tags   []string
}

var quotePages = [][]quote{
	{
		{text: "A day without sunshine is like, you know, night.", author: "Steve Martin", tags: []string{"humor", "obvious"}},
		{text: "Try not to become a man of success.", author: "Albert Einstein"},
	},
	{
		{text: "It is our choices, Harry.", author: "J.K. Rowling", tags: []string{"choices"}},
	},
}

func renderPage(page int) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"col-md-8\">")
	if page >= 1 && page <= len(quotePages) {
		for _, q := range quotePages[page-1] {
			fmt.Fprintf(&b, `<div class="quote">
	<span class="text">  %s  </span>
	<span>by <small class="author">%s</small> <a href="/author/%s">(about)</a></span>
	<div class="tags">`, q.text, q.author, strings.ReplaceAll(q.author, " ", "-"))
			for _, tag := range q.tags {
				fmt.Fprintf(&b, `<a class="tag" href="/tag/%s/">%s</a>`, tag, tag)
			}
			b.WriteString("</div></div>")
		}
		if page < len(quotePages) {
			fmt.Fprintf(&b, `<li class="next"><a href="/page/%d/">Next</a></li>`, page+1)
		}
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func quoteServer(t testing.TB, requests *atomic.Int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page := 1
		if r.URL.Path != "/" {
			_, err := fmt.Sscanf(r.URL.Path, "/page/%d/", &page)
			if err != nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(renderPage(page)))
	}))
	t.Cleanup(server.Close)
	return server
}

var quoteFields = []FieldSelector{
	{Name: "quote", Selector: "span.text"},
	{Name: "author", Selector: "small.author"},
	{Name: "tags", Selector: "a.tag", Multiple: true},
	{Name: "about", Selector: "a[href^='/author']", Attr: "href"},
	{Name: "born", Selector: "span.born"},
}

func TestScrapeTemplatePages(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapesource")
	defer cleanup()

	var requests atomic.Int32
	server := quoteServer(t, &requests)

	src := New(Config{
		Config: webfetch.Config{
			URL:      server.URL + "/page/{page}/",
			FirstURL: server.URL + "/",
			Delay:    configutil.Duration(time.Millisecond),
		},
		Item:   "div.quote",
		Fields: quoteFields,
	})
	res, err := normalizer.Run(context.Background(), src, normalizer.Options{})
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Equal(t, []string{"quote", "author", "tags", "about", "born"}, res.Records.Header())
	require.Equal(t, 3, res.Records.Len())
	// two pages with quotes and the empty third page
	require.Equal(t, int32(3), requests.Load())

	records := res.Records.Records()
	get := func(i int, field string) any {
		v, ok := records[i].Get(field)
		require.True(t, ok)
		return v
	}
	require.Equal(t, "A day without sunshine is like, you know, night.", get(0, "quote"))
	require.Equal(t, "Steve Martin", get(0, "author"))
	require.Equal(t, "humor, obvious", get(0, "tags"))
	require.Equal(t, "/author/Steve-Martin", get(0, "about"))
	require.Equal(t, record.NA, get(0, "born"))
	require.Equal(t, "", get(1, "tags"))
	require.Equal(t, "J.K. Rowling", get(2, "author"))
}

func TestScrapeFollowsNextLink(t *testing.T) {
	var requests atomic.Int32
	server := quoteServer(t, &requests)

	src := New(Config{
		Config: webfetch.Config{
			URL:   server.URL + "/",
			Delay: configutil.Duration(time.Millisecond),
		},
		Item:         "div.quote",
		Fields:       quoteFields[:2],
		NextSelector: "li.next a",
	})
	res, err := normalizer.Run(context.Background(), src, normalizer.Options{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Records.Len())
	// the last page has no next link
	require.Equal(t, int32(2), requests.Load())
}

func TestScrapeMaxPages(t *testing.T) {
	var requests atomic.Int32
	server := quoteServer(t, &requests)

	src := New(Config{
		Config: webfetch.Config{
			URL:      server.URL + "/page/{page}/",
			MaxPages: 1,
		},
		Item:   "div.quote",
		Fields: quoteFields[:1],
	})
	res, err := normalizer.Run(context.Background(), src, normalizer.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Records.Len())
	require.Equal(t, int32(1), requests.Load())
}

func TestMissingItemSelector(t *testing.T) {
	var requests atomic.Int32
	server := quoteServer(t, &requests)

	src := New(Config{
		Config: webfetch.Config{URL: server.URL + "/"},
		Fields: []FieldSelector{{Selector: "span.text"}},
	})
	_, err := normalizer.Run(context.Background(), src, normalizer.Options{})
	require.ErrorContains(t, err, "no item selector")
	require.ErrorContains(t, err, "field 0 has no name")
	require.NotErrorIs(t, err, normalizer.ErrSourceUnavailable)
	require.Equal(t, int32(0), requests.Load())
}

func TestScrapeUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	src := New(Config{
		Config: webfetch.Config{URL: url + "/"},
		Item:   "div.quote",
	})
	_, err := normalizer.Run(context.Background(), src, normalizer.Options{})
	require.ErrorIs(t, err, normalizer.ErrSourceUnavailable)
}
