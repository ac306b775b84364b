package normalizer

import (
	"context"
	"errors"
	"labextract/lib/record"
	"time"
)

// ErrExhausted is returned by a FetchFunc to say there are no more pages,
// ex. when a page past the first one answers with a non-success status.
var ErrExhausted = errors.New("source exhausted")

type FetchFunc func(ctx context.Context, page int) ([]record.Record, error)

type Pagination struct {
	// number of the first page, defaults to 1
	StartPage int
	// page-count ceiling, 0 means no ceiling
	MaxPages int
	// when set, a page with fewer records is the last one
	PageSize int
	// delay between two consecutive requests
	Delay time.Duration
	// defaults to Sleep
	Wait func(ctx context.Context, d time.Duration) error
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paginate requests pages in order and appends their records to the sink,
// it stops at the first empty page, an ErrExhausted, a short page (when
// PageSize is set) or the page ceiling. A page that fails with
// ErrParseFailure is reported and skipped. It returns the number of requests
// made.
func Paginate(ctx context.Context, p Pagination, sink Sink, fetch FetchFunc) (int, error) {
	start := p.StartPage
	if start == 0 {
		start = 1
	}
	wait := p.Wait
	if wait == nil {
		wait = Sleep
	}

	requests := 0
	for i := 0; p.MaxPages <= 0 || i < p.MaxPages; i++ {
		if i > 0 {
			err := wait(ctx, p.Delay)
			if err != nil {
				return requests, err
			}
		}

		records, err := fetch(ctx, start+i)
		requests++
		if errors.Is(err, ErrExhausted) {
			return requests, nil
		}
		if errors.Is(err, ErrParseFailure) {
			sink.Fail(err)
			continue
		}
		if err != nil {
			return requests, err
		}
		if len(records) == 0 {
			return requests, nil
		}

		for _, r := range records {
			err := sink.Append(r)
			if err != nil {
				return requests, err
			}
		}
		if p.PageSize > 0 && len(records) < p.PageSize {
			return requests, nil
		}
	}
	return requests, nil
}
