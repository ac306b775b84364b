package jobs

import (
	"context"
	"labextract/lib/normalizer"
	"labextract/lib/sources/csvsource"
	"labextract/lib/sources/httpsource"
	"labextract/lib/telemetry"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLoadWithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigName)
	writeFile(t, path, `{
	// comments are allowed
	output_dir: "out",
	jobs: [
		{name: "people", kind: "csv", location: "people.csv"}
	]
}`)
	writeFile(t, filepath.Join(dir, "labextract.local.json5"), `{output_dir: "elsewhere"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "elsewhere", cfg.OutputDir)
	require.Len(t, cfg.Jobs, 1)
	require.Equal(t, "people", cfg.Jobs[0].Name)
}

func TestNewSourceOptions(t *testing.T) {
	src, err := NewSource("api", "", map[string]any{
		"url":       "https://example.com/posts?page={page}",
		"max_pages": 2,
		"delay":     "250ms",
		"data_path": "data",
	})
	require.NoError(t, err)
	require.IsType(t, httpsource.Source{}, src)
	require.Equal(t, "https://example.com/posts?page=1", src.Location())

	src, err = NewSource("csv", "a.csv", map[string]any{"path": "b.csv", "delimiter": ";"})
	require.NoError(t, err)
	require.IsType(t, csvsource.Source{}, src)
	require.Equal(t, "a.csv", src.Location())

	_, err = NewSource("api", "", map[string]any{"delay": true})
	require.Error(t, err)
	_, err = NewSource("ftp", "", nil)
	require.Error(t, err)

	_, err = NewSource("scrape", "http://quotes.toscrape.com/", map[string]any{
		"fields": []any{map[string]any{"name": "text", "selector": "span.text"}},
	})
	require.ErrorContains(t, err, "no item selector")
	require.NotErrorIs(t, err, normalizer.ErrSourceUnavailable)
}

func TestValidate(t *testing.T) {
	cfg := Config{Jobs: []Job{
		{Name: "a", Kind: "csv"},
		{Name: "a", Kind: "csv"},
		{Kind: "json"},
		{Name: "b", Kind: "ftp"},
	}}
	err := cfg.Validate()
	require.ErrorContains(t, err, `job "a" is declared twice`)
	require.ErrorContains(t, err, "job 2 has no name")
	require.ErrorContains(t, err, `unknown kind "ftp"`)
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:jobs")
	defer cleanup()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "people.csv"), "name,age\nAlice,25\nBob,30\nCharlie,28\n")
	writeFile(t, filepath.Join(dir, "countries.json"), `[{"name": {"common": "Peru"}}, {"region": "Oceania"}]`)

	cfg := Config{
		OutputDir: filepath.Join(dir, "out"),
		Jobs: []Job{
			{Name: "missing", Kind: "csv", Location: filepath.Join(dir, "nope.csv")},
			{Name: "people", Kind: "csv", Location: filepath.Join(dir, "people.csv")},
			{
				Name:     "countries",
				Kind:     "json",
				Location: filepath.Join(dir, "countries.json"),
				Output:   "c.csv",
				Options: map[string]any{
					"fields": []any{
						map[string]any{"name": "name", "path": "name.common", "default": "N/A"},
					},
				},
			},
			{Name: "skipped", Kind: "csv", Location: "whatever.csv", Disabled: true},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := RunAll(ctx, cfg, RunOptions{})
	require.ErrorIs(t, err, normalizer.ErrSourceUnavailable)
	require.ErrorContains(t, err, "missing")
	require.Len(t, results, 3)

	require.Error(t, results[0].Err)
	require.NoFileExists(t, filepath.Join(dir, "out", "missing.csv"))

	require.NoError(t, results[1].Err)
	contents, err := os.ReadFile(filepath.Join(dir, "out", "people.csv"))
	require.NoError(t, err)
	require.Equal(t, "name,age\nAlice,25\nBob,30\nCharlie,28\n", string(contents))

	require.NoError(t, results[2].Err)
	contents, err = os.ReadFile(filepath.Join(dir, "out", "c.csv"))
	require.NoError(t, err)
	require.Equal(t, "name\nPeru\nN/A\n", string(contents))
}

func TestRunAllOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "people.csv"), "name\nAlice\n")
	cfg := Config{
		OutputDir: dir,
		Jobs: []Job{
			{Name: "people", Kind: "csv", Location: filepath.Join(dir, "people.csv"), Output: "out.csv"},
			{Name: "other", Kind: "csv", Location: filepath.Join(dir, "nope.csv")},
		},
	}

	results, err := RunAll(context.Background(), cfg, RunOptions{Only: []string{"people"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.FileExists(t, filepath.Join(dir, "out.csv"))

	_, err = RunAll(context.Background(), cfg, RunOptions{Only: []string{"ghost"}})
	require.ErrorContains(t, err, `no job named "ghost"`)
}
