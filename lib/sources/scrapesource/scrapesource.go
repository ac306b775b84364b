// Package scrapesource extracts records from server-rendered HTML pages
// with CSS selectors.
package scrapesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"labextract/lib/htmlutil"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"labextract/lib/sources/webfetch"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultSeparator = ", "

type FieldSelector struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	// read this attribute instead of the element's text
	Attr string `json:"attr"`
	// join every match instead of taking the first one
	Multiple  bool   `json:"multiple"`
	Separator string `json:"separator"`
	// used when nothing matches, defaults to record.NA
	Default any `json:"default"`
}

type Config struct {
	webfetch.Config
	Item   string          `json:"item"`
	Fields []FieldSelector `json:"fields"`
	// follow the link matched by this selector instead of the url template
	NextSelector string `json:"next_selector"`
}

// Validate reports selectors a scrape can not run without.
func (c Config) Validate() error {
	var errs []error
	if c.Item == "" {
		errs = append(errs, errors.New("no item selector"))
	}
	for i, f := range c.Fields {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("field %d has no name", i))
		}
	}
	return errors.Join(errs...)
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	cfg.Fields = slices.Clone(cfg.Fields)
	for i, f := range cfg.Fields {
		if f.Separator == "" {
			cfg.Fields[i].Separator = DefaultSeparator
		}
		if f.Default == nil {
			cfg.Fields[i].Default = record.NA
		}
	}
	return Source{cfg: cfg}
}

func (s Source) Kind() string     { return "scrape" }
func (s Source) Location() string { return s.cfg.FirstPageURL() }

func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	err := s.cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid scrape config: %w", err)
	}
	client := webfetch.NewClient(s.cfg.Config)
	first, err := client.Get(ctx, s.cfg.FirstPageURL())
	if err != nil {
		client.Close()
		return nil, err
	}
	return &handle{
		cfg:    s.cfg,
		client: client,
		first:  first,
		next:   s.cfg.FirstPageURL(),
	}, nil
}

type handle struct {
	cfg    Config
	client webfetch.Client
	first  []byte
	// url of the next page when following links
	next string
}

func (h *handle) Close() error {
	return h.client.Close()
}

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	pagination := h.cfg.Pagination()
	if h.cfg.NextSelector != "" {
		pagination.MaxPages = h.cfg.MaxPages
		if pagination.MaxPages == 0 {
			pagination.MaxPages = webfetch.DefaultMaxPages
		}
	}
	_, err := normalizer.Paginate(ctx, pagination, sink, h.fetch)
	return err
}

func (h *handle) pageURL(page int) string {
	if h.cfg.NextSelector != "" {
		return h.next
	}
	return h.cfg.PageURL(page)
}

func (h *handle) fetch(ctx context.Context, page int) ([]record.Record, error) {
	pageURL := h.pageURL(page)
	if pageURL == "" {
		return nil, normalizer.ErrExhausted
	}

	body := h.first
	h.first = nil
	if body == nil {
		var err error
		body, err = h.client.Get(ctx, pageURL)
		if errors.Is(err, normalizer.ErrSourceUnauthorized) {
			slog.WarnContext(ctx, "failed to retrieve page", "url", pageURL, "err", err)
			return nil, normalizer.ErrExhausted
		}
		if err != nil {
			return nil, err
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, normalizer.ParseFailure(pageURL, err)
	}

	if h.cfg.NextSelector != "" {
		h.next = ""
		base, _ := url.Parse(pageURL)
		anchors := htmlutil.GetAnchors(ctx, doc.Find(h.cfg.NextSelector), base)
		if len(anchors) > 0 {
			h.next = anchors[0].Href
		}
	}

	var records []record.Record
	doc.Find(h.cfg.Item).Each(func(_ int, item *goquery.Selection) {
		records = append(records, Scrape(item, h.cfg.Fields))
	})
	return records, nil
}

// Scrape builds one record out of an item element.
func Scrape(item *goquery.Selection, fields []FieldSelector) record.Record {
	r := record.New()
	for _, f := range fields {
		matches := item
		if f.Selector != "" {
			matches = item.Find(f.Selector)
		}
		if f.Multiple {
			values := matches.Map(func(_ int, sel *goquery.Selection) string {
				return htmlutil.SelectionValue(sel, f.Attr)
			})
			r.Set(f.Name, strings.Join(values, f.Separator))
			continue
		}
		if matches.Length() == 0 {
			r.Set(f.Name, f.Default)
			continue
		}
		r.Set(f.Name, htmlutil.SelectionValue(matches.First(), f.Attr))
	}
	return r
}
