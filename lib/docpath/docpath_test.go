package docpath

import (
	"encoding/json"
	"labextract/lib/record"
	"testing"

	"github.com/stretchr/testify/require"
)

const countries = `[
	{"name": {"common": "Peru"}, "capital": ["Lima"], "population": 32971846, "region": "Americas"},
	{"name": {"common": "Antarctica"}, "population": 1000, "region": "Antarctic"},
	{"capital": [], "region": "Oceania"}
]`

var countryFields = []Field{
	{Name: "name", Path: "name.common", Default: record.NA},
	{Name: "capital", Path: "capital[0]", Default: record.NA},
	{Name: "population", Default: record.Zero},
	{Name: "region", Default: record.NA},
}

func decode(t testing.TB, text string) any {
	var out any
	err := json.Unmarshal([]byte(text), &out)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestLookup(t *testing.T) {
	doc := decode(t, `{"a": {"b": [1, {"c": "x"}]}}`)

	v, ok := Lookup(doc, "a.b[1].c")
	require.True(t, ok)
	require.Equal(t, "x", v)

	_, ok = Lookup(doc, "a.b[2]")
	require.False(t, ok)
	_, ok = Lookup(doc, "a.missing")
	require.False(t, ok)
	_, ok = Lookup(doc, "a.b[x]")
	require.False(t, ok)
}

func TestProjectSentinels(t *testing.T) {
	items, err := Items(decode(t, countries), "")
	require.NoError(t, err)
	require.Len(t, items, 3)

	var got [][]any
	for _, item := range items {
		r, err := ToRecord(item, countryFields)
		require.NoError(t, err)
		require.Equal(t, []string{"name", "capital", "population", "region"}, r.Fields())

		var row []any
		for _, f := range r.Fields() {
			v, _ := r.Get(f)
			row = append(row, v)
		}
		got = append(got, row)
	}

	require.Equal(t, [][]any{
		{"Peru", "Lima", 32971846.0, "Americas"},
		{"Antarctica", record.NA, 1000.0, "Antarctic"},
		{record.NA, record.NA, int64(0), "Oceania"},
	}, got)
}

func TestFlattenIsSorted(t *testing.T) {
	r, err := ToRecord(decode(t, `{"userId": 1, "id": 2, "title": "t", "meta": {"k": true}}`), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "meta", "title", "userId"}, r.Fields())
	v, _ := r.Get("meta")
	require.Equal(t, `{"k":true}`, v)
}

func TestItemsDataPath(t *testing.T) {
	doc := decode(t, `{"data": {"items": [{"a": 1}, {"a": 2}]}}`)
	items, err := Items(doc, "data.items")
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, err = Items(doc, "data.nope")
	require.Error(t, err)

	_, err = ToRecord("scalar", nil)
	require.Error(t, err)
}
