package jobs

import (
	"encoding/json"
	"fmt"
	"labextract/lib/normalizer"
	"labextract/lib/sources/csvsource"
	"labextract/lib/sources/httpsource"
	"labextract/lib/sources/jsonsource"
	"labextract/lib/sources/mongosource"
	"labextract/lib/sources/pdfsource"
	"labextract/lib/sources/scrapesource"
	"labextract/lib/sources/sqlsource"
	"labextract/lib/sources/xmlsource"
	"slices"
)

var Kinds = []string{"csv", "json", "xml", "pdf", "api", "scrape", "sql", "mongo"}

// decodeOptions fills cfg from a kind specific option object.
func decodeOptions(options map[string]any, cfg any) error {
	if len(options) == 0 {
		return nil
	}
	encoded, err := json.Marshal(options)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, cfg)
}

// NewSource builds the source of the given kind, a non-empty location
// overrides whatever the options say.
func NewSource(kind, location string, options map[string]any) (normalizer.Source, error) {
	if !slices.Contains(Kinds, kind) {
		return nil, fmt.Errorf("unknown source kind %q, expected one of %v", kind, Kinds)
	}

	src, err := newSource(kind, location, options)
	if err != nil {
		return nil, fmt.Errorf("%s options: %w", kind, err)
	}
	return src, nil
}

func newSource(kind, location string, options map[string]any) (normalizer.Source, error) {
	var err error
	switch kind {
	case "csv":
		var cfg csvsource.Config
		err = decodeOptions(options, &cfg)
		cfg.Path = pick(location, cfg.Path)
		return csvsource.New(cfg), err
	case "json":
		var cfg jsonsource.Config
		err = decodeOptions(options, &cfg)
		cfg.Path = pick(location, cfg.Path)
		return jsonsource.New(cfg), err
	case "xml":
		var cfg xmlsource.Config
		err = decodeOptions(options, &cfg)
		cfg.Path = pick(location, cfg.Path)
		return xmlsource.New(cfg), err
	case "pdf":
		var cfg pdfsource.Config
		err = decodeOptions(options, &cfg)
		cfg.Path = pick(location, cfg.Path)
		return pdfsource.New(cfg), err
	case "api":
		var cfg httpsource.Config
		err = decodeOptions(options, &cfg)
		cfg.URL = pick(location, cfg.URL)
		return httpsource.New(cfg), err
	case "scrape":
		var cfg scrapesource.Config
		err = decodeOptions(options, &cfg)
		cfg.URL = pick(location, cfg.URL)
		if err == nil {
			err = cfg.Validate()
		}
		return scrapesource.New(cfg), err
	case "sql":
		var cfg sqlsource.Config
		err = decodeOptions(options, &cfg)
		cfg.DSN = pick(location, cfg.DSN)
		return sqlsource.New(cfg), err
	default:
		var cfg mongosource.Config
		err = decodeOptions(options, &cfg)
		cfg.URI = pick(location, cfg.URI)
		return mongosource.New(cfg), err
	}
}

func pick(location, configured string) string {
	if location != "" {
		return location
	}
	return configured
}
