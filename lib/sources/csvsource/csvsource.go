package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Config struct {
	Path string `json:"path"`
	// a single character, defaults to ","
	Delimiter string `json:"delimiter"`
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	return Source{cfg: cfg}
}

func (s Source) Kind() string     { return "csv" }
func (s Source) Location() string { return s.cfg.Path }

func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	comma := ','
	if s.cfg.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(s.cfg.Delimiter)
		if size != len(s.cfg.Delimiter) || r == utf8.RuneError {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", s.cfg.Delimiter)
		}
		comma = r
	}

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, normalizer.OpenFileError(s.cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, normalizer.Unavailable(s.cfg.Path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, normalizer.Unavailable(s.cfg.Path, fmt.Errorf("is a directory"))
	}

	return &handle{path: s.cfg.Path, file: f, comma: comma}, nil
}

type handle struct {
	path  string
	file  *os.File
	comma rune
}

func (h *handle) Close() error {
	return h.file.Close()
}

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	reader := csv.NewReader(h.file)
	reader.Comma = h.comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return normalizer.ParseFailure(h.path, fmt.Errorf("read header: %w", err))
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	header = UniqueHeader(header)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			sink.Fail(normalizer.ParseFailure(h.path, err))
			continue
		}
		if err != nil {
			return err
		}

		if len(row) != len(header) {
			line, _ := reader.FieldPos(0)
			sink.Fail(normalizer.ParseFailure(h.path, fmt.Errorf(
				"line %d: has %d fields, header has %d",
				line, len(row), len(header),
			)))
			continue
		}

		r := record.New()
		for i, field := range header {
			r.Set(field, Infer(row[i]))
		}
		err = sink.Append(r)
		if err != nil {
			return err
		}
	}
}

// UniqueHeader suffixes repeated column names with ".1", ".2", ... so no
// column overwrites another.
func UniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		name := h
		for {
			n, dup := seen[name]
			if !dup {
				break
			}
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", h, n+1)
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// Infer parses a cell: empty is null, then integer, then float, else text.
func Infer(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return cell
}
