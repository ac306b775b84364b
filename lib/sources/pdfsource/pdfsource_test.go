package pdfsource

import (
	"context"
	"fmt"
	"labextract/lib/normalizer"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
)

func writePDF(t testing.TB, pages int) string {
	path := filepath.Join(t.TempDir(), "sample.pdf")

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, fmt.Sprintf("Hello%d", i))
	}
	err := doc.OutputFileAndClose(path)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFirstPages(t *testing.T) {
	path := writePDF(t, 5)

	res, err := normalizer.Run(context.Background(), New(Config{Path: path}), normalizer.Options{})
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Equal(t, DefaultMaxPages, res.Records.Len())
	require.Equal(t, []string{"page", "characters", "text"}, res.Records.Header())

	for i, r := range res.Records.Records() {
		page, _ := r.Get("page")
		require.Equal(t, int64(i+1), page)
		chars, _ := r.Get("characters")
		require.Greater(t, chars.(int64), int64(0))
	}
	require.Contains(t, Text(res.Records), "Hello1")
}

func TestAllPages(t *testing.T) {
	path := writePDF(t, 4)
	res, err := normalizer.Run(context.Background(), New(Config{Path: path, MaxPages: -1}), normalizer.Options{})
	require.NoError(t, err)
	require.Equal(t, 4, res.Records.Len())
}

func TestNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0600))

	res, err := normalizer.Run(context.Background(), New(Config{Path: path}), normalizer.Options{})
	require.NoError(t, err)
	require.Equal(t, 0, res.Records.Len())
	require.Len(t, res.Failures, 1)
}

func TestMissingFile(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "sample.pdf")}).Open(context.Background())
	require.ErrorIs(t, err, normalizer.ErrSourceUnavailable)
}
