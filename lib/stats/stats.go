// Package stats computes summary statistics over one column of a record
// set.
package stats

import (
	"errors"
	"fmt"
	"io"
	"labextract/lib/record"
	"labextract/lib/textutil"
	"math"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var ErrNoValues = errors.New("column has no numeric values")

type UnknownColumnError struct {
	Column      string
	Suggestions []string
}

func (e UnknownColumnError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown column %q", e.Column)
	}
	return fmt.Sprintf("unknown column %q, did you mean %s?", e.Column, strings.Join(e.Suggestions, " or "))
}

type Summary struct {
	Column string
	// number of records in the set
	Rows int
	// number of numeric values
	Count int
	// null or non-numeric values that were left out
	Skipped int
	Mean    float64
	Max     float64
	Min     float64
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, !math.IsNaN(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Summarize finds column by its normalized name and summarizes its numeric
// values.
func Summarize(set *record.Set, column string) (Summary, error) {
	header := set.Header()
	name, ok := textutil.FindName(column, header)
	if !ok {
		return Summary{}, UnknownColumnError{
			Column:      column,
			Suggestions: textutil.Suggest(column, header, 3),
		}
	}

	s := Summary{
		Column: name,
		Rows:   set.Len(),
		Max:    math.Inf(-1),
		Min:    math.Inf(1),
	}
	var sum float64
	for _, r := range set.Records() {
		v, _ := r.Get(name)
		f, ok := numeric(v)
		if !ok {
			s.Skipped++
			continue
		}
		s.Count++
		sum += f
		s.Max = math.Max(s.Max, f)
		s.Min = math.Min(s.Min, f)
	}
	if s.Count == 0 {
		return Summary{Column: name, Rows: s.Rows, Skipped: s.Skipped}, fmt.Errorf("%s: %w", name, ErrNoValues)
	}
	s.Mean = sum / float64(s.Count)
	return s, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Render writes the summary as a two column table.
func Render(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Title.Format = text.FormatDefault
	t.SetTitle(fmt.Sprintf("%s statistics", s.Column))

	t.AppendHeader(table.Row{"statistic", "value"})
	t.AppendRows([]table.Row{
		{"mean", strconv.FormatFloat(s.Mean, 'f', 2, 64)},
		{"max", formatNumber(s.Max)},
		{"min", formatNumber(s.Min)},
		{"count", s.Rows},
	})
	if s.Skipped > 0 {
		t.AppendRow(table.Row{"skipped", s.Skipped})
	}
	t.Render()
}
