// Package mongosource reads the documents a MongoDB find returns.
package mongosource

import (
	"context"
	"errors"
	"fmt"
	"labextract/lib/docpath"
	"labextract/lib/normalizer"
	"labextract/lib/record"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const connectTimeout = 10 * time.Second

type Config struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
	// extended json, ex. {"salary": {"$gt": 65000}}
	Filter string `json:"filter"`
	// extended json, ex. {"salary": -1}
	Sort       string `json:"sort"`
	Projection string `json:"projection"`
	Limit      int64  `json:"limit"`
	// projected onto the converted document, when empty the document is
	// flattened in field order
	Fields []docpath.Field `json:"fields"`
}

type Source struct {
	cfg Config
}

func New(cfg Config) Source {
	return Source{cfg: cfg}
}

func (s Source) Kind() string { return "mongo" }

func (s Source) Location() string {
	uri := s.cfg.URI
	u, err := url.Parse(uri)
	if err == nil {
		uri = u.Redacted()
	}
	return fmt.Sprintf("%s#%s.%s", uri, s.cfg.Database, s.cfg.Collection)
}

func parseExtJSON(name, text string) (bson.D, error) {
	if text == "" {
		return nil, nil
	}
	var doc bson.D
	err := bson.UnmarshalExtJSON([]byte(text), false, &doc)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return doc, nil
}

func (s Source) findOptions() (*options.FindOptionsBuilder, bson.D, error) {
	filter, err := parseExtJSON("filter", s.cfg.Filter)
	if err != nil {
		return nil, nil, err
	}
	if filter == nil {
		filter = bson.D{}
	}
	sort, err := parseExtJSON("sort", s.cfg.Sort)
	if err != nil {
		return nil, nil, err
	}
	projection, err := parseExtJSON("projection", s.cfg.Projection)
	if err != nil {
		return nil, nil, err
	}

	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	if projection != nil {
		opts.SetProjection(projection)
	}
	if s.cfg.Limit > 0 {
		opts.SetLimit(s.cfg.Limit)
	}
	return opts, filter, nil
}

func (s Source) Open(ctx context.Context) (normalizer.Handle, error) {
	if s.cfg.Database == "" || s.cfg.Collection == "" {
		return nil, normalizer.Unavailable(s.Location(), errors.New("database and collection are required"))
	}
	opts, filter, err := s.findOptions()
	if err != nil {
		return nil, normalizer.Unavailable(s.Location(), err)
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(s.cfg.URI).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout))
	if err != nil {
		return nil, normalizer.Unavailable(s.Location(), err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(context.Background())
		if isAuthError(err) {
			return nil, normalizer.Unauthorized(s.Location(), err)
		}
		return nil, normalizer.Unavailable(s.Location(), err)
	}

	return &handle{
		location: s.Location(),
		cfg:      s.cfg,
		client:   client,
		filter:   filter,
		opts:     opts,
	}, nil
}

func isAuthError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// AuthenticationFailed, Unauthorized
		return cmdErr.Code == 18 || cmdErr.Code == 13
	}
	return false
}

type handle struct {
	location string
	cfg      Config
	client   *mongo.Client
	filter   bson.D
	opts     *options.FindOptionsBuilder
}

func (h *handle) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.client.Disconnect(ctx)
}

func (h *handle) Extract(ctx context.Context, sink normalizer.Sink) error {
	coll := h.client.Database(h.cfg.Database).Collection(h.cfg.Collection)
	cursor, err := coll.Find(ctx, h.filter, h.opts)
	if err != nil {
		if isAuthError(err) {
			return normalizer.Unauthorized(h.location, err)
		}
		return normalizer.Unavailable(h.location, err)
	}
	defer cursor.Close(context.Background())

	n := 0
	for cursor.Next(ctx) {
		n++
		var doc bson.D
		err := cursor.Decode(&doc)
		if err != nil {
			sink.Fail(normalizer.ParseFailure(h.location, fmt.Errorf("document %d: %w", n, err)))
			continue
		}
		err = sink.Append(ToRecord(doc, h.cfg.Fields))
		if err != nil {
			return err
		}
	}
	err = cursor.Err()
	if err != nil {
		return normalizer.Unavailable(h.location, err)
	}
	return nil
}

// ToRecord converts a document, keeping its field order unless fields are
// given.
func ToRecord(doc bson.D, fields []docpath.Field) record.Record {
	if len(fields) > 0 {
		return docpath.Project(Plain(doc), fields)
	}
	r := record.New()
	for _, elem := range doc {
		r.Set(elem.Key, Plain(elem.Value))
	}
	return r
}

// Plain converts bson values into the map[string]any / []any trees docpath
// and record understand.
func Plain(v any) any {
	switch t := v.(type) {
	case bson.D:
		out := make(map[string]any, len(t))
		for _, elem := range t {
			out[elem.Key] = Plain(elem.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = Plain(elem)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = Plain(elem)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = Plain(elem)
		}
		return out
	case bson.ObjectID:
		return t.Hex()
	case bson.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case bson.Timestamp:
		return time.Unix(int64(t.T), 0).UTC().Format(time.RFC3339)
	case bson.Decimal128:
		return t.String()
	case bson.Binary:
		return fmt.Sprintf("%x", t.Data)
	case bson.Null, bson.Undefined:
		return nil
	case int32:
		return int64(t)
	}
	return v
}
