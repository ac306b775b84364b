package normalizer

import (
	"context"
	"errors"
	"fmt"
	"labextract/lib/record"
	"labextract/lib/telemetry"
	"sync"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("labextract.lib.normalizer")
var meter = otel.Meter("labextract.lib.normalizer")
var recordCounter, _ = meter.Int64Counter("labextract.records")
var failureCounter, _ = meter.Int64Counter("labextract.parse_failures")

// Source resolves a descriptor into an open Handle.
type Source interface {
	// Kind is a short name for the type of source, ex. "csv".
	Kind() string
	// Location is the path, url or dsn the source reads from.
	Location() string
	// Open fails with ErrSourceUnavailable or ErrSourceUnauthorized.
	Open(ctx context.Context) (Handle, error)
}

// Handle is an open source, owned by whoever opened it.
type Handle interface {
	// Extract pushes every complete record into the sink. Malformed items are
	// reported with sink.Fail, a returned error aborts the extraction.
	Extract(ctx context.Context, sink Sink) error
	Close() error
}

type Sink interface {
	Append(r record.Record) error
	Fail(err error)
}

// Extraction is the result of one run against one source.
type Extraction struct {
	ID       string
	Kind     string
	Location string
	Records  *record.Set
	Failures []error
}

type Options struct {
	// defaults to telemetry.SlogAPI
	API telemetry.API
	// defaults to a random id
	RunID string
}

// NewRunID returns a short random id used to tell runs apart in logs and
// debug output.
func NewRunID() string {
	id, err := random.String(8)
	if err != nil {
		return "run"
	}
	return id
}

type collector struct {
	location string
	set      *record.Set
	failures []error
	api      telemetry.API
}

func (c *collector) Append(r record.Record) error {
	return c.set.Append(r)
}

func (c *collector) Fail(err error) {
	if !errors.Is(err, ErrParseFailure) {
		err = ParseFailure(c.location, err)
	}
	c.failures = append(c.failures, err)
	c.api.ReportWarning("extract", "err", err.Error())
}

type closeOnce struct {
	Handle
	once sync.Once
	err  error
}

func (c *closeOnce) Close() error {
	c.once.Do(func() {
		c.err = c.Handle.Close()
	})
	return c.err
}

// Run opens the source, extracts every record and closes the handle exactly
// once. Parse failures are collected in the result and never returned as the
// error, an error means the source could not be read at all.
func Run(ctx context.Context, src Source, opts Options) (Extraction, error) {
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	var api telemetry.API = telemetry.SlogAPI{}
	if opts.API != nil {
		api = opts.API
	}
	api = telemetry.NewScopedAPI(src.Kind(), api)

	ctx, span := tracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("run_id", opts.RunID),
		attribute.String("kind", src.Kind()),
		attribute.String("location", src.Location()),
	))
	defer span.End()

	col := &collector{
		location: src.Location(),
		set:      record.NewSet(),
		api:      api,
	}
	result := func() Extraction {
		col.set.Finalize()
		return Extraction{
			ID:       opts.RunID,
			Kind:     src.Kind(),
			Location: src.Location(),
			Records:  col.set,
			Failures: col.failures,
		}
	}

	handle, err := src.Open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open source")
		api.ReportBroken("open", "location", src.Location(), "err", err.Error())
		return result(), err
	}
	h := &closeOnce{Handle: handle}
	defer h.Close()

	extractErr := h.Extract(ctx, col)
	if extractErr != nil && errors.Is(extractErr, ErrParseFailure) {
		col.Fail(extractErr)
		extractErr = nil
	}

	closeErr := h.Close()
	if closeErr != nil {
		api.ReportWarning("close", "location", src.Location(), "err", closeErr.Error())
	}

	attrs := metric.WithAttributes(attribute.String("kind", src.Kind()))
	recordCounter.Add(ctx, int64(col.set.Len()), attrs)
	failureCounter.Add(ctx, int64(len(col.failures)), attrs)
	api.ReportCount("records", int64(col.set.Len()))
	span.SetAttributes(
		attribute.Int("records", col.set.Len()),
		attribute.Int("parse_failures", len(col.failures)),
	)

	if extractErr != nil {
		span.RecordError(extractErr)
		span.SetStatus(codes.Error, "extraction aborted")
		api.ReportBroken("extract", "location", src.Location(), "err", extractErr.Error())
		return result(), fmt.Errorf("extract %s: %w", src.Location(), extractErr)
	}
	return result(), nil
}
