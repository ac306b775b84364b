package pdfsource

import (
	"context"
	"fmt"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const DefaultMaxPages = 3

type Config struct {
	Path string `json:"path"`
	// number of leading pages to read, defaults to DefaultMaxPages,
	// a negative value reads every page
	MaxPages int `json:"max_pages"`
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return Source{cfg: cfg}
}

func (s Source) Kind() string     { return "pdf" }
func (s Source) Location() string { return s.cfg.Path }

func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, normalizer.OpenFileError(s.cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, normalizer.Unavailable(s.cfg.Path, err)
	}
	return &handle{cfg: s.cfg, file: f, size: info.Size()}, nil
}

type handle struct {
	cfg  Config
	file *os.File
	size int64
}

func (h *handle) Close() error {
	return h.file.Close()
}

func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()
	if p.V.IsNull() {
		return "", fmt.Errorf("page object is missing")
	}
	return p.GetPlainText(nil)
}

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	reader, err := pdf.NewReader(h.file, h.size)
	if err != nil {
		return normalizer.ParseFailure(h.cfg.Path, err)
	}

	pages := reader.NumPage()
	if h.cfg.MaxPages > 0 && pages > h.cfg.MaxPages {
		pages = h.cfg.MaxPages
	}

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, err := pageText(reader.Page(i))
		if err != nil {
			sink.Fail(normalizer.ParseFailure(h.cfg.Path, fmt.Errorf("page %d: %w", i, err)))
			continue
		}

		r := record.New()
		r.Set("page", i)
		r.Set("characters", utf8.RuneCountInString(text))
		r.Set("text", text)
		err = sink.Append(r)
		if err != nil {
			return err
		}
	}
	return nil
}

// Text concatenates the text of every extracted page in page order.
func Text(set *record.Set) string {
	var out strings.Builder
	for _, r := range set.Records() {
		text, ok := r.Get("text")
		if !ok {
			continue
		}
		if s, ok := text.(string); ok {
			out.WriteString(s)
		}
	}
	return out.String()
}
