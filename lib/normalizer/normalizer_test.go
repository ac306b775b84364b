package normalizer

import (
	"context"
	"errors"
	"fmt"
	"labextract/lib/record"
	"labextract/lib/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	rows    []string
	failAt  int
	abort   error
	closed  int
	extract int
}

func (h *fakeHandle) Extract(ctx context.Context, sink Sink) error {
	h.extract++
	for i, name := range h.rows {
		if i == h.failAt {
			sink.Fail(fmt.Errorf("row %d is malformed", i))
			continue
		}
		r := record.New()
		r.Set("name", name)
		err := sink.Append(r)
		if err != nil {
			return err
		}
	}
	return h.abort
}

func (h *fakeHandle) Close() error {
	h.closed++
	return nil
}

type fakeSource struct {
	handle  *fakeHandle
	openErr error
}

func (s fakeSource) Kind() string     { return "fake" }
func (s fakeSource) Location() string { return "fake://rows" }
func (s fakeSource) Open(ctx context.Context) (Handle, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.handle, nil
}

func names(t testing.TB, set *record.Set) []string {
	var out []string
	for _, r := range set.Records() {
		v, ok := r.Get("name")
		require.True(t, ok)
		out = append(out, v.(string))
	}
	return out
}

func TestRunClosesOnce(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:normalizer")
	defer cleanup()

	h := &fakeHandle{rows: []string{"Alice", "Bob", "Charlie"}, failAt: -1}
	res, err := Run(context.Background(), fakeSource{handle: h}, Options{RunID: "abc"})
	require.NoError(t, err)

	require.Equal(t, 1, h.extract)
	require.Equal(t, 1, h.closed)
	require.Equal(t, "abc", res.ID)
	require.Equal(t, "fake", res.Kind)
	require.True(t, res.Records.Finalized())
	require.Equal(t, []string{"Alice", "Bob", "Charlie"}, names(t, res.Records))
	require.Empty(t, res.Failures)
}

func TestRunParseFailureKeepsRecords(t *testing.T) {
	h := &fakeHandle{rows: []string{"Alice", "broken", "Charlie"}, failAt: 1}
	res, err := Run(context.Background(), fakeSource{handle: h}, Options{})
	require.NoError(t, err)

	require.Equal(t, []string{"Alice", "Charlie"}, names(t, res.Records))
	require.Len(t, res.Failures, 1)
	require.ErrorIs(t, res.Failures[0], ErrParseFailure)
	require.Equal(t, 1, h.closed)
}

func TestRunExtractAbortStillCloses(t *testing.T) {
	h := &fakeHandle{
		rows:   []string{"Alice"},
		failAt: -1,
		abort:  Unavailable("fake://rows", errors.New("connection reset")),
	}
	res, err := Run(context.Background(), fakeSource{handle: h}, Options{})
	require.ErrorIs(t, err, ErrSourceUnavailable)
	require.Equal(t, 1, h.closed)
	require.Equal(t, 1, res.Records.Len())
}

func TestRunParseFailureFromExtractIsNotFatal(t *testing.T) {
	h := &fakeHandle{
		rows:   []string{"Alice"},
		failAt: -1,
		abort:  ParseFailure("fake://rows", errors.New("trailing garbage")),
	}
	res, err := Run(context.Background(), fakeSource{handle: h}, Options{})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	require.Equal(t, 1, res.Records.Len())
}

func TestRunOpenFailure(t *testing.T) {
	h := &fakeHandle{}
	res, err := Run(context.Background(), fakeSource{
		handle:  h,
		openErr: Unauthorized("fake://rows", StatusError{StatusCode: 403}),
	}, Options{})
	require.ErrorIs(t, err, ErrSourceUnauthorized)
	require.Equal(t, 0, h.closed)
	require.Equal(t, 0, h.extract)
	require.Equal(t, 0, res.Records.Len())
}

func TestCloseOnceIsIdempotent(t *testing.T) {
	h := &fakeHandle{}
	c := &closeOnce{Handle: h}
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Equal(t, 1, h.closed)
}

func TestSourceErrorMessage(t *testing.T) {
	err := Unavailable("data.csv", errors.New("no such file"))
	require.Equal(t, "data.csv: source unavailable: no such file", err.Error())

	var sourceErr *SourceError
	require.ErrorAs(t, err, &sourceErr)
	require.Equal(t, "data.csv", sourceErr.Location)
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
