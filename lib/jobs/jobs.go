// Package jobs runs the extractions declared in a labextract.json5 file.
package jobs

import (
	"context"
	"errors"
	"fmt"
	devenv "labextract/dev/env"
	"labextract/lib/configutil"
	"labextract/lib/export"
	"labextract/lib/normalizer"
	"labextract/lib/sources/pdfsource"
	"labextract/lib/telemetry"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
)

const DefaultConfigName = "labextract.json5"

type Job struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	// path, url or dsn, may start with <dev_state>
	Location string `json:"location"`
	// csv file the records are written to, defaults to <name>.csv
	Output string `json:"output"`
	// plain text dump of the extracted pages, only for pdf jobs
	TextOutput string `json:"text_output"`
	// settings of the kind's source, ex. "fields" or "max_pages"
	Options map[string]any `json:"options"`
	Disabled bool           `json:"disabled"`
}

type Config struct {
	// directory relative outputs are written to, may start with <dev_state>
	OutputDir string `json:"output_dir"`
	Jobs      []Job  `json:"jobs"`
}

// Load reads the config at path merged with its .local override, an empty
// path searches upwards from the working directory for DefaultConfigName.
func Load(path string) (Config, error) {
	if path == "" {
		return configutil.ReadRecursively[Config](DefaultConfigName)
	}
	return configutil.ReadConfig[Config](path)
}

func (c Config) Validate() error {
	seen := map[string]struct{}{}
	var errs []error
	for i, job := range c.Jobs {
		if job.Name == "" {
			errs = append(errs, fmt.Errorf("job %d has no name", i))
			continue
		}
		if _, ok := seen[job.Name]; ok {
			errs = append(errs, fmt.Errorf("job %q is declared twice", job.Name))
		}
		seen[job.Name] = struct{}{}
		if !slices.Contains(Kinds, job.Kind) {
			errs = append(errs, fmt.Errorf("job %q: unknown kind %q", job.Name, job.Kind))
		}
	}
	return errors.Join(errs...)
}

type RunOptions struct {
	// names of the jobs to run, empty means every enabled job
	Only []string
	API  telemetry.API
}

type Result struct {
	Job    string
	Output string
	// zero when the source could not be built
	Extraction normalizer.Extraction
	Err        error
}

func (c Config) selected(only []string) []Job {
	var out []Job
	for _, job := range c.Jobs {
		if len(only) > 0 {
			if slices.Contains(only, job.Name) {
				out = append(out, job)
			}
			continue
		}
		if !job.Disabled {
			out = append(out, job)
		}
	}
	return out
}

func (c Config) outputPath(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || c.OutputDir == "" {
		return devenv.ResolvePath(name)
	}
	dir, err := devenv.ResolvePath(c.OutputDir)
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// RunAll runs the selected jobs one after the other. A job that fails does
// not stop the ones after it, the returned error joins every job's error.
func RunAll(ctx context.Context, cfg Config, opts RunOptions) ([]Result, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	jobs := cfg.selected(opts.Only)
	for _, name := range opts.Only {
		if !slices.ContainsFunc(jobs, func(j Job) bool { return j.Name == name }) {
			return nil, fmt.Errorf("no job named %q", name)
		}
	}

	var results []Result
	var errs []error
	for _, job := range jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res := runJob(ctx, cfg, job, opts.API)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, res.Err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func runJob(ctx context.Context, cfg Config, job Job, api telemetry.API) Result {
	res := Result{Job: job.Name}

	location, err := devenv.ResolvePath(job.Location)
	if err != nil {
		res.Err = err
		return res
	}
	src, err := NewSource(job.Kind, location, job.Options)
	if err != nil {
		res.Err = err
		return res
	}

	slog.InfoContext(ctx, "running job", "job", job.Name, "kind", job.Kind, "location", src.Location())
	res.Extraction, err = normalizer.Run(ctx, src, normalizer.Options{API: api})
	if err != nil {
		res.Err = err
		return res
	}

	output := job.Output
	if output == "" {
		output = job.Name + ".csv"
	}
	res.Output, err = cfg.outputPath(output)
	if err != nil {
		res.Err = err
		return res
	}
	err = export.WriteFile(res.Output, res.Extraction.Records)
	if err != nil {
		res.Err = fmt.Errorf("export: %w", err)
		return res
	}

	if job.Kind == "pdf" && job.TextOutput != "" {
		textPath, err := cfg.outputPath(job.TextOutput)
		if err == nil {
			err = export.WriteText(textPath, pdfsource.Text(res.Extraction.Records))
		}
		if err != nil {
			res.Err = fmt.Errorf("text export: %w", err)
			return res
		}
	}

	slog.InfoContext(
		ctx, "job finished",
		"job", job.Name,
		"records", res.Extraction.Records.Len(),
		"parse_failures", len(res.Extraction.Failures),
		"output", res.Output,
	)
	return res
}
