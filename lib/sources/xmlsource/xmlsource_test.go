package xmlsource

import (
	"context"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeFile(t testing.TB, contents string) string {
	path := filepath.Join(t.TempDir(), "data.xml")
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func rows(set *record.Set) [][]any {
	var out [][]any
	header := set.Header()
	for _, r := range set.Records() {
		var row []any
		for _, h := range header {
			v, ok := r.Get(h)
			if !ok {
				v = "<absent>"
			}
			row = append(row, v)
		}
		out = append(out, row)
	}
	return out
}

const sample = `<?xml version="1.0"?>
<root>
	<item><name>Widget</name><value>10</value></item>
	<item><name>Gadget</name></item>
	<other><item><name>nested, ignored</name></item></other>
	<item id="3"><value>  7 </value><name>Doohickey</name></item>
</root>`

func TestExplicitFields(t *testing.T) {
	path := writeFile(t, sample)
	res, err := normalizer.Run(context.Background(), New(Config{
		Path:   path,
		Fields: []string{"name", "value"},
	}), normalizer.Options{})
	require.NoError(t, err)

	expected := [][]any{
		{"Widget", "10"},
		{"Gadget", record.NA},
		{"Doohickey", "7"},
	}
	if diff := cmp.Diff(expected, rows(res.Records)); diff != "" {
		t.Fatal(diff)
	}
}

func TestDocumentOrderFields(t *testing.T) {
	path := writeFile(t, sample)
	res, err := normalizer.Run(context.Background(), New(Config{Path: path}), normalizer.Options{})
	require.NoError(t, err)

	require.Equal(t, []string{"name", "value", "id"}, res.Records.Header())
	expected := [][]any{
		{"Widget", "10", "<absent>"},
		{"Gadget", "<absent>", "<absent>"},
		{"Doohickey", "7", "3"},
	}
	if diff := cmp.Diff(expected, rows(res.Records)); diff != "" {
		t.Fatal(diff)
	}
}

func TestTruncatedDocumentKeepsItems(t *testing.T) {
	path := writeFile(t, `<root><item><name>a</name></item><item><name>b</name></item><item><name>c`)
	res, err := normalizer.Run(context.Background(), New(Config{Path: path, Fields: []string{"name"}}), normalizer.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Records.Len())
	require.Len(t, res.Failures, 1)
	require.ErrorIs(t, res.Failures[0], normalizer.ErrParseFailure)
}

func TestMissingFile(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "data.xml")}).Open(context.Background())
	require.ErrorIs(t, err, normalizer.ErrSourceUnavailable)
}
