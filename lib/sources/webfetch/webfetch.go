// Package webfetch holds what the network sources share: paging config and a
// GET that classifies failures.
package webfetch

import (
	"context"
	"labextract/lib/configutil"
	"labextract/lib/normalizer"
	"labextract/lib/restyutil"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

const (
	PagePlaceholder = "{page}"
	DefaultMaxPages = 5
	DefaultDelay    = time.Second
)

var tracer = otel.Tracer("labextract.lib.sources.webfetch")

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes every client created afterwards dump its
// requests to out.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	instrumentOutput = out
}

type Config struct {
	// may contain {page}, without it the source is a single page
	URL string `json:"url"`
	// used instead of URL for the first page
	FirstURL string            `json:"first_url"`
	Headers  map[string]string `json:"headers"`
	// defaults to 1
	StartPage int `json:"start_page"`
	// defaults to DefaultMaxPages
	MaxPages int `json:"max_pages"`
	// when set, a page with fewer items is the last one
	PageSize int `json:"page_size"`
	// defaults to DefaultDelay
	Delay            configutil.Duration `json:"delay"`
	Timeout          configutil.Duration `json:"timeout"`
	CloudflareBypass bool                `json:"cloudflare_bypass"`
}

func (c Config) Paginated() bool {
	return strings.Contains(c.URL, PagePlaceholder)
}

func (c Config) startPage() int {
	if c.StartPage == 0 {
		return 1
	}
	return c.StartPage
}

func (c Config) PageURL(page int) string {
	if page == c.startPage() && c.FirstURL != "" {
		return c.FirstURL
	}
	return strings.ReplaceAll(c.URL, PagePlaceholder, strconv.Itoa(page))
}

func (c Config) FirstPageURL() string {
	return c.PageURL(c.startPage())
}

func (c Config) Pagination() normalizer.Pagination {
	p := normalizer.Pagination{
		StartPage: c.startPage(),
		MaxPages:  c.MaxPages,
		PageSize:  c.PageSize,
		Delay:     c.Delay.Std(),
	}
	if !c.Paginated() {
		p.MaxPages = 1
	}
	if p.MaxPages == 0 {
		p.MaxPages = DefaultMaxPages
	}
	if p.Delay == 0 {
		p.Delay = DefaultDelay
	}
	return p
}

type Client struct {
	resty *resty.Client
}

func NewClient(cfg Config) Client {
	return Client{
		resty: restyutil.NewClient(restyutil.ClientOptions{
			Headers:          cfg.Headers,
			Timeout:          cfg.Timeout.Std(),
			CloudflareBypass: cfg.CloudflareBypass,
			Tracer:           tracer,
			Output:           instrumentOutput,
		}),
	}
}

// Get fails with ErrSourceUnavailable when the request could not be made and
// ErrSourceUnauthorized on a non-2xx status.
func (c Client) Get(ctx context.Context, url string) ([]byte, error) {
	res, err := c.resty.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, normalizer.Unavailable(url, err)
	}
	if !res.IsSuccess() {
		return nil, normalizer.Unauthorized(url, normalizer.StatusError{
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
		})
	}
	return res.Body(), nil
}

func (c Client) Close() error {
	restyutil.CloseIdle(c.resty)
	return nil
}
