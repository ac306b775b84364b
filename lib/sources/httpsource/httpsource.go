// Package httpsource reads JSON from a REST endpoint, optionally over several
// numbered pages.
package httpsource

import (
	"context"
	"errors"
	"labextract/lib/docpath"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"labextract/lib/sources/jsonsource"
	"labextract/lib/sources/webfetch"
	"log/slog"

	"github.com/titanous/json5"
)

type Config struct {
	webfetch.Config
	// dot separated path to the item array inside each response
	DataPath string          `json:"data_path"`
	Fields   []docpath.Field `json:"fields"`
	// maximum number of items over every page, 0 means all
	Limit int `json:"limit"`
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	return Source{cfg: cfg}
}

func (s Source) Kind() string     { return "api" }
func (s Source) Location() string { return s.cfg.FirstPageURL() }

// Open requests the first page so that an unreachable or refusing endpoint
// is reported before any extraction starts.
func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	client := webfetch.NewClient(s.cfg.Config)
	first, err := client.Get(ctx, s.cfg.FirstPageURL())
	if err != nil {
		client.Close()
		return nil, err
	}
	return &handle{cfg: s.cfg, client: client, first: first}, nil
}

type handle struct {
	cfg    Config
	client webfetch.Client
	first  []byte
	seen   int
	sink   normalizer.Sink
}

func (h *handle) Close() error {
	return h.client.Close()
}

type limitSink struct {
	normalizer.Sink
	h *handle
}

// Append stops the run with errLimitReached as soon as the last allowed item
// is stored, so no further page is waited for or requested.
func (s limitSink) Append(r record.Record) error {
	err := s.Sink.Append(r)
	if err != nil {
		return err
	}
	s.h.seen++
	if s.h.cfg.Limit > 0 && s.h.seen >= s.h.cfg.Limit {
		return errLimitReached
	}
	return nil
}

var errLimitReached = errors.New("item limit reached")

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	h.sink = sink
	_, err := normalizer.Paginate(ctx, h.cfg.Pagination(), limitSink{Sink: sink, h: h}, h.fetch)
	if errors.Is(err, errLimitReached) {
		return nil
	}
	return err
}

func (h *handle) fetch(ctx context.Context, page int) ([]record.Record, error) {
	url := h.cfg.PageURL(page)
	body := h.first
	h.first = nil
	if body == nil {
		var err error
		body, err = h.client.Get(ctx, url)
		if errors.Is(err, normalizer.ErrSourceUnauthorized) {
			slog.WarnContext(ctx, "failed to retrieve page", "url", url, "err", err)
			return nil, normalizer.ErrExhausted
		}
		if err != nil {
			return nil, err
		}
	}

	var doc any
	err := json5.Unmarshal(body, &doc)
	if err != nil {
		return nil, normalizer.ParseFailure(url, err)
	}
	items, err := docpath.Items(doc, h.cfg.DataPath)
	if err != nil {
		return nil, normalizer.ParseFailure(url, err)
	}

	buffer := &pageSink{Sink: h.sink}
	err = jsonsource.AppendItems(url, items, h.cfg.Fields, 0, buffer)
	if err != nil {
		return nil, err
	}
	return buffer.records, nil
}

// pageSink holds a page's records until Paginate decides whether the page
// counts, item failures go straight through.
type pageSink struct {
	normalizer.Sink
	records []record.Record
}

func (p *pageSink) Append(r record.Record) error {
	p.records = append(p.records, r)
	return nil
}
