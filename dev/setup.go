package main

import (
	"context"
	"errors"
	"fmt"
	devenv "labextract/dev/env"
	"labextract/lib/fixture"
	"log/slog"
	"os"
)

const sampleCountries = `[
	{"name": {"common": "Peru"}, "capital": ["Lima"], "population": 32971846, "region": "Americas"},
	{"name": {"common": "Japan"}, "capital": ["Tokyo"], "population": 125836021, "region": "Asia"},
	{"name": {"common": "Antarctica"}, "population": 1000, "region": "Antarctic"}
]
`

const sampleCatalog = `<?xml version="1.0"?>
<catalog>
	<item id="1"><name>Keyboard</name><price>49.99</price></item>
	<item id="2"><name>Mouse</name><price>19.5</price></item>
	<item id="3"><name>Monitor</name></item>
</catalog>
`

const sampleJobs = `{
	output_dir: "<dev_state>/out",
	jobs: [
		{name: "people", kind: "csv", location: "<dev_state>/data.csv"},
		{
			name: "countries",
			kind: "json",
			location: "<dev_state>/countries.json",
			options: {
				fields: [
					{name: "name", path: "name.common", default: "N/A"},
					{name: "capital", path: "capital[0]", default: "N/A"},
					{name: "population", default: 0},
					{name: "region", default: "N/A"}
				]
			}
		},
		{name: "catalog", kind: "xml", location: "<dev_state>/catalog.xml", options: {fields: ["name", "price"]}},
		{
			name: "high_earners",
			kind: "sql",
			location: "<dev_state>/sample.db",
			options: {query: "select * from employees where salary > ?", args: [65000]}
		},
		{
			name: "salary_by_department",
			kind: "sql",
			location: "<dev_state>/sample.db",
			options: {
				query: "select department, avg(salary) as avg_salary from employees group by department",
				aggregate: true
			}
		},
		{
			name: "posts",
			kind: "api",
			location: "https://jsonplaceholder.typicode.com/posts",
			disabled: true
		},
		{
			name: "quotes",
			kind: "scrape",
			location: "http://quotes.toscrape.com/page/{page}/",
			disabled: true,
			options: {
				first_url: "http://quotes.toscrape.com/",
				item: "div.quote",
				fields: [
					{name: "quote", selector: "span.text"},
					{name: "author", selector: "small.author"},
					{name: "tags", selector: "a.tag", multiple: true}
				]
			}
		}
	]
}
`

func writeIfMissing(path, contents string) error {
	resolved, err := devenv.ResolvePath(path)
	if err != nil {
		return err
	}
	_, err = os.Stat(resolved)
	if err == nil {
		fmt.Println("already created", resolved)
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Println("creating", resolved)
	return os.WriteFile(resolved, []byte(contents), 0644)
}

func CreateSampleInputs(ctx context.Context) error {
	_, err := fixture.EnsureCSV("<dev_state>/data.csv")
	if err != nil {
		return err
	}
	err = writeIfMissing("<dev_state>/countries.json", sampleCountries)
	if err != nil {
		return err
	}
	err = writeIfMissing("<dev_state>/catalog.xml", sampleCatalog)
	if err != nil {
		return err
	}

	db, err := fixture.OpenDB("<dev_state>/sample.db")
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = fixture.EnsureEmployees(ctx, db, nil)
	return err
}

func CreateJobsFile() error {
	return writeIfMissing("<dev_state>/labextract.json5", sampleJobs)
}

func PrintUsage() {
	slog.Info("sample inputs are in dev/.state, try `go run ./cmd/labextract run --config dev/.state/labextract.json5`. the network jobs are disabled by default, run them with --only posts,quotes.")
}
