package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"labextract/lib/record"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatValue renders a record value as a cell, null is an empty cell.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func row(r record.Record, header []string) []string {
	out := make([]string, len(header))
	for i, field := range header {
		v, _ := r.Get(field)
		out[i] = FormatValue(v)
	}
	return out
}

// WriteCSV writes the header followed by one row per record.
func WriteCSV(w io.Writer, set *record.Set) error {
	header := set.Header()
	writer := csv.NewWriter(w)
	if len(header) > 0 {
		err := writer.Write(header)
		if err != nil {
			return err
		}
	}
	for _, r := range set.Records() {
		err := writer.Write(row(r, header))
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// writeAtomic writes through a temporary file next to path, so path never
// holds a partial result.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = tmp.Chmod(0644)
	if err != nil {
		tmp.Close()
		return err
	}
	err = write(tmp)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteFile finalizes the set and exports it as a csv file at path.
func WriteFile(path string, set *record.Set) error {
	set.Finalize()
	return writeAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, set)
	})
}

func WriteText(path string, contents string) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, contents)
		return err
	})
}

// Preview renders the first n records as a table, n <= 0 renders all of them.
func Preview(w io.Writer, set *record.Set, n int) {
	header := set.Header()
	records := set.Records()
	if n > 0 && len(records) > n {
		records = records[:n]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	headerRow := table.Row{}
	for _, h := range header {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	configs := make([]table.ColumnConfig, len(header))
	for i, h := range header {
		configs[i] = table.ColumnConfig{Name: h, WidthMax: 48, WidthMaxEnforcer: text.Trim}
	}
	t.SetColumnConfigs(configs)

	for _, r := range records {
		tr := table.Row{}
		for _, cell := range row(r, header) {
			tr = append(tr, cell)
		}
		t.AppendRow(tr)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d of %d rows", len(records), set.Len())})
	t.Render()
}
