// Package sqlsource turns the rows of a query against a relational database
// into records.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("labextract.lib.sources.sqlsource")

type Config struct {
	// sqlite path, sqlite://, libsql://, postgres:// or mysql:// url
	DSN   string `json:"dsn"`
	Query string `json:"query"`
	Args  []any  `json:"args"`
	// marks the query as a summary (group by, count, ...), its results are
	// reported under a different kind so they never get mixed with raw rows
	Aggregate bool `json:"aggregate"`
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	return Source{cfg: cfg}
}

func (s Source) Kind() string {
	if s.cfg.Aggregate {
		return "sql_aggregate"
	}
	return "sql"
}

// Location is the dsn without its password.
func (s Source) Location() string {
	return redact(s.cfg.DSN)
}

func redact(dsn string) string {
	scheme, rest, found := strings.Cut(dsn, "://")
	if !found {
		return dsn
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return dsn
	}
	userinfo := rest[:at]
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":***" + rest[at:]
}

func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	ctx, span := tracer.Start(ctx, "Open")
	defer span.End()

	if strings.TrimSpace(s.cfg.Query) == "" {
		return nil, normalizer.Unavailable(s.Location(), fmt.Errorf("no query given"))
	}

	t, err := resolve(s.cfg.DSN)
	if err != nil {
		return nil, normalizer.Unavailable(s.Location(), err)
	}
	span.SetAttributes(attribute.String("driver", t.driver))

	db, err := t.open()
	if err != nil {
		if t.file != "" {
			return nil, normalizer.OpenFileError(s.Location(), err)
		}
		return nil, normalizer.Unavailable(s.Location(), err)
	}
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		if isAuthError(err) {
			return nil, normalizer.Unauthorized(s.Location(), err)
		}
		return nil, normalizer.Unavailable(s.Location(), err)
	}
	return &handle{location: s.Location(), cfg: s.cfg, db: db}, nil
}

type handle struct {
	location string
	cfg      Config
	db       *sql.DB
}

func (h *handle) Close() error {
	return h.db.Close()
}

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	ctx, span := tracer.Start(ctx, "Extract", trace.WithAttributes(
		attribute.String("query", h.cfg.Query),
	))
	defer span.End()

	rows, err := h.db.QueryContext(ctx, h.cfg.Query, h.cfg.Args...)
	if err != nil {
		if isAuthError(err) {
			return normalizer.Unauthorized(h.location, err)
		}
		return normalizer.Unavailable(h.location, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return normalizer.Unavailable(h.location, err)
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	line := 0
	for rows.Next() {
		line++
		err := rows.Scan(pointers...)
		if err != nil {
			sink.Fail(normalizer.ParseFailure(h.location, fmt.Errorf("row %d: %w", line, err)))
			continue
		}
		r := record.New()
		for i, column := range columns {
			r.Set(column, values[i])
		}
		err = sink.Append(r)
		if err != nil {
			return err
		}
	}
	err = rows.Err()
	if err != nil {
		return normalizer.Unavailable(h.location, err)
	}
	span.SetAttributes(attribute.Int("rows", line))
	return nil
}
