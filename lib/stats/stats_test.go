package stats

import (
	"bytes"
	"labextract/lib/record"
	"testing"

	"github.com/stretchr/testify/require"
)

func scores(values ...any) *record.Set {
	set := record.NewSet()
	for i, v := range values {
		r := record.New()
		r.Set("Name", string(rune('A'+i)))
		r.Set("Score", v)
		set.Append(r)
	}
	return set
}

func TestSummarize(t *testing.T) {
	set := scores(int64(80), 92.5, nil, "70", "absent")

	s, err := Summarize(set, " score")
	require.NoError(t, err)
	require.Equal(t, "Score", s.Column)
	require.Equal(t, 5, s.Rows)
	require.Equal(t, 3, s.Count)
	require.Equal(t, 2, s.Skipped)
	require.InDelta(t, 80.8333, s.Mean, 0.001)
	require.Equal(t, 92.5, s.Max)
	require.Equal(t, 70.0, s.Min)

	var out bytes.Buffer
	Render(&out, s)
	require.Contains(t, out.String(), "Score statistics")
	require.Contains(t, out.String(), "80.83")
	require.Contains(t, out.String(), "92.5")
	require.Contains(t, out.String(), "skipped")
}

func TestUnknownColumn(t *testing.T) {
	_, err := Summarize(scores(int64(1)), "Scor")
	var unknown UnknownColumnError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []string{"Score"}, unknown.Suggestions)
	require.Contains(t, err.Error(), `did you mean Score?`)
}

func TestNoNumericValues(t *testing.T) {
	_, err := Summarize(scores("x", nil), "Score")
	require.ErrorIs(t, err, ErrNoValues)
}
