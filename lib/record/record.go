package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// placeholders substituted for fields that a source item does not carry
const (
	NA         = "N/A"
	Zero int64 = 0
)

// Record is an ordered mapping of field name to scalar value.
//
// values are always one of: nil, string, int64, float64 or bool
type Record struct {
	fields []string
	values map[string]any
}

func New() Record {
	return Record{values: map[string]any{}}
}

// Set assigns a field, an existing field keeps its position.
func (r *Record) Set(field string, value any) {
	if r.values == nil {
		r.values = map[string]any{}
	}
	if _, ok := r.values[field]; !ok {
		r.fields = append(r.fields, field)
	}
	r.values[field] = Scalar(value)
}

func (r Record) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Fields returns the field names in insertion order.
func (r Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r Record) Len() int {
	return len(r.fields)
}

func (r Record) Clone() Record {
	out := Record{
		fields: make([]string, len(r.fields)),
		values: make(map[string]any, len(r.values)),
	}
	copy(out.fields, r.fields)
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Scalar converts an arbitrary decoded value into one of the value types a
// Record holds.
func Scalar(v any) any {
	switch t := v.(type) {
	case nil, string, int64, float64, bool:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return unsigned(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return unsigned(t)
	case float32:
		return float64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(encoded)
	}
	return fmt.Sprint(v)
}

// unsigned keeps values past the int64 range exact as decimal text.
func unsigned(v uint64) any {
	if v > math.MaxInt64 {
		return strconv.FormatUint(v, 10)
	}
	return int64(v)
}
