// Package docpath walks decoded documents (the map[string]any / []any trees
// produced by JSON, JSON5 and BSON decoders) and projects them onto flat
// records.
package docpath

import (
	"fmt"
	"labextract/lib/record"
	"slices"
	"strconv"
	"strings"
)

// Field describes one projected column. Path is dot separated, a segment may
// carry an index suffix like "capital[0]".
type Field struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Default any    `json:"default"`
}

type segment struct {
	key     string
	indices []int
}

func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, nil
	}
	var out []segment
	for _, part := range strings.Split(path, ".") {
		seg := segment{}
		open := strings.IndexByte(part, '[')
		if open < 0 {
			seg.key = part
			out = append(out, seg)
			continue
		}
		seg.key = part[:open]
		rest := part[open:]
		for rest != "" {
			if rest[0] != '[' {
				return nil, fmt.Errorf("invalid path segment %q", part)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed index in %q", part)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil {
				return nil, fmt.Errorf("invalid index in %q: %w", part, err)
			}
			seg.indices = append(seg.indices, idx)
			rest = rest[end+1:]
		}
		out = append(out, seg)
	}
	return out, nil
}

// Lookup returns the value at path, ok is false when any step is missing.
func Lookup(doc any, path string) (any, bool) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, false
	}
	current := doc
	for _, seg := range segments {
		if seg.key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[seg.key]
			if !ok {
				return nil, false
			}
		}
		for _, idx := range seg.indices {
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// Project builds a record with one column per field, absent values (missing,
// null, or an empty array) become the field's default.
func Project(doc any, fields []Field) record.Record {
	out := record.New()
	for _, f := range fields {
		path := f.Path
		if path == "" {
			path = f.Name
		}
		value, ok := Lookup(doc, path)
		if !ok || isEmpty(value) {
			out.Set(f.Name, f.Default)
			continue
		}
		out.Set(f.Name, value)
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	}
	return false
}

// Flatten turns an object into a record with keys in sorted order, nested
// values are kept as compact JSON text.
func Flatten(obj map[string]any) record.Record {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := record.New()
	for _, k := range keys {
		out.Set(k, obj[k])
	}
	return out
}

// Items resolves dataPath (empty means the root) and returns the items it
// holds, an object counts as a single item.
func Items(doc any, dataPath string) ([]any, error) {
	target := doc
	if dataPath != "" {
		var ok bool
		target, ok = Lookup(doc, dataPath)
		if !ok {
			return nil, fmt.Errorf("data path %q not found", dataPath)
		}
	}
	switch t := target.(type) {
	case []any:
		return t, nil
	case map[string]any:
		return []any{t}, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("data path %q holds %T, not an array or object", dataPath, target)
}

// ToRecord projects a single item, or flattens it when fields is empty.
func ToRecord(item any, fields []Field) (record.Record, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return record.Record{}, fmt.Errorf("item is %T, not an object", item)
	}
	if len(fields) > 0 {
		return Project(obj, fields), nil
	}
	return Flatten(obj), nil
}
