package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOutput receives a rendered dump of every completed exchange.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type exchangeIDKey struct{}

type instrumenter struct {
	output InstrumentOutput
	tracer trace.Tracer
	next   *atomic.Uint64
}

// InstrumentClient traces every request of the client and, when output is
// not nil, dumps each exchange to it. A nil tracer uses the global
// provider's "resty" tracer.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}
	i := instrumenter{output: output, tracer: tracer, next: &atomic.Uint64{}}
	client.OnBeforeRequest(i.beforeRequest)
	client.OnAfterResponse(i.afterResponse)
	client.OnError(i.failed)
}

// exchangeID names a dump file, ex. "0003-GET-quotes.toscrape.com".
func exchangeID(n uint64, method, rawURL string) string {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("%04d-%s-%s", n, method, host)
}

func (i instrumenter) beforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
	id := exchangeID(i.next.Add(1), req.Method, req.URL)
	ctx = context.WithValue(ctx, exchangeIDKey{}, id)
	slog.DebugContext(ctx, "start request", "method", req.Method, "url", req.URL, "exchange", id)
	req.SetContext(ctx)
	return nil
}

func (i instrumenter) afterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// RawRequest is only populated once the request has been sent
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.Status())
	}

	id, _ := ctx.Value(exchangeIDKey{}).(string)
	if i.output != nil {
		i.output.Write(id, formatExchange(res))
	}
	slog.DebugContext(
		ctx, "request finished",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"exchange", id,
	)
	return nil
}

// failed handles transport errors, a response with an error status goes
// through afterResponse instead.
func (i instrumenter) failed(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}

	id, _ := ctx.Value(exchangeIDKey{}).(string)
	slog.WarnContext(
		ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"exchange", id,
		"err", err,
	)
}
