package xmlsource

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"os"
	"strings"
)

type Config struct {
	Path string `json:"path"`
	// name of the elements under the root that become records, defaults to "item"
	Item string `json:"item"`
	// child elements to read, a missing child becomes "N/A". when empty, the
	// item's attributes and children are used in document order.
	Fields []string `json:"fields"`
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	if cfg.Item == "" {
		cfg.Item = "item"
	}
	return Source{cfg: cfg}
}

func (s Source) Kind() string     { return "xml" }
func (s Source) Location() string { return s.cfg.Path }

func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, normalizer.OpenFileError(s.cfg.Path, err)
	}
	return &handle{cfg: s.cfg, file: f}, nil
}

type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

func (n node) child(name string) (node, bool) {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return node{}, false
}

type handle struct {
	cfg  Config
	file *os.File
}

func (h *handle) Close() error {
	return h.file.Close()
}

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	dec := xml.NewDecoder(h.file)
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return normalizer.ParseFailure(h.cfg.Path, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth != 2 || t.Name.Local != h.cfg.Item {
				continue
			}
			var item node
			err := dec.DecodeElement(&item, &t)
			if err != nil {
				line, _ := dec.InputPos()
				return normalizer.ParseFailure(h.cfg.Path, fmt.Errorf("item ending near line %d: %w", line, err))
			}
			depth--

			err = sink.Append(h.toRecord(item))
			if err != nil {
				return err
			}
		case xml.EndElement:
			depth--
		}
	}
}

func text(n node) any {
	value := strings.TrimSpace(n.Text)
	if value == "" && len(n.Children) == 0 {
		return nil
	}
	return value
}

func (h *handle) toRecord(item node) record.Record {
	r := record.New()
	if len(h.cfg.Fields) > 0 {
		for _, field := range h.cfg.Fields {
			c, ok := item.child(field)
			if !ok {
				r.Set(field, record.NA)
				continue
			}
			r.Set(field, text(c))
		}
		return r
	}

	for _, attr := range item.Attrs {
		r.Set(attr.Name.Local, attr.Value)
	}
	for _, c := range item.Children {
		if _, exists := r.Get(c.XMLName.Local); exists {
			continue
		}
		r.Set(c.XMLName.Local, text(c))
	}
	return r
}
