// Package jsonsource reads structured documents (JSON, or the JSON5 superset)
// from a file.
package jsonsource

import (
	"context"
	"fmt"
	"io"
	"labextract/lib/docpath"
	"labextract/lib/normalizer"
	"os"

	"github.com/titanous/json5"
)

type Config struct {
	Path string `json:"path"`
	// dot separated path to the item array, empty when the root is the array
	DataPath string `json:"data_path"`
	// when empty, each item is flattened as is
	Fields []docpath.Field `json:"fields"`
	// maximum number of items, 0 means all
	Limit int `json:"limit"`
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	return Source{cfg: cfg}
}

func (s Source) Kind() string     { return "json" }
func (s Source) Location() string { return s.cfg.Path }

func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, normalizer.OpenFileError(s.cfg.Path, err)
	}
	return &handle{cfg: s.cfg, file: f}, nil
}

type handle struct {
	cfg  Config
	file *os.File
}

func (h *handle) Close() error {
	return h.file.Close()
}

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	contents, err := io.ReadAll(h.file)
	if err != nil {
		return normalizer.Unavailable(h.cfg.Path, err)
	}

	var doc any
	err = json5.Unmarshal(contents, &doc)
	if err != nil {
		return normalizer.ParseFailure(h.cfg.Path, err)
	}

	items, err := docpath.Items(doc, h.cfg.DataPath)
	if err != nil {
		return normalizer.ParseFailure(h.cfg.Path, err)
	}
	return AppendItems(h.cfg.Path, items, h.cfg.Fields, h.cfg.Limit, sink)
}

// AppendItems converts decoded items into records, an item that is not an
// object is reported and skipped.
func AppendItems(location string, items []any, fields []docpath.Field, limit int, sink normalizer.Sink) error {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i, item := range items {
		r, err := docpath.ToRecord(item, fields)
		if err != nil {
			sink.Fail(normalizer.ParseFailure(location, fmt.Errorf("item %d: %w", i, err)))
			continue
		}
		err = sink.Append(r)
		if err != nil {
			return err
		}
	}
	return nil
}
