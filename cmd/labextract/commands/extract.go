package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"labextract/lib/export"
	"labextract/lib/jobs"
	"labextract/lib/normalizer"
	"labextract/lib/serviceutil"
	"labextract/lib/sources/pdfsource"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/titanous/json5"
)

var extractCmd = &cobra.Command{
	Use:   "extract <kind> <location>",
	Short: "Extracts the records of a single source.",
}

type extractOptions struct {
	Out     string
	TextOut string
	Preview int
	// json5 object with the source's settings
	Options string
	// key=value pairs applied on top of Options
	Set []string
}

var kindDescriptions = map[string]string{
	"csv":    "a delimited text file",
	"json":   "a JSON or JSON5 document",
	"xml":    "an XML document",
	"pdf":    "the text of a PDF's pages",
	"api":    "a paginated JSON REST endpoint, the url may contain {page}",
	"scrape": "server rendered HTML pages, needs an item selector and fields",
	"sql":    "a SQL query against sqlite, libsql, postgres or mysql",
	"mongo":  "a MongoDB find",
}

func init() {
	for _, kind := range jobs.Kinds {
		extractCmd.AddCommand(newExtractKindCmd(kind))
	}
	rootCmd.AddCommand(extractCmd)
}

func newExtractKindCmd(kind string) *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <location> [--out <file.csv>] [--set key=value]...", kind),
		Short: fmt.Sprintf("Extracts %s.", kindDescriptions[kind]),
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			location := ""
			if len(args) > 0 {
				location = args[0]
			}
			err := runExtract(cmd.Context(), kind, location, *opts, cmd.OutOrStdout())
			if err != nil {
				serviceutil.Fatal(exitError(err), err)
			}
		},
	}
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "CSV file to write, nothing is written when empty.")
	cmd.Flags().IntVar(&opts.Preview, "preview", 5, "Number of rows to print, 0 disables the preview.")
	cmd.Flags().StringVar(&opts.Options, "options", "", "Source settings as a JSON5 object.")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "A single source setting, the value is parsed as JSON5 when possible.")
	if kind == "pdf" {
		cmd.Flags().StringVar(&opts.TextOut, "text-out", "", "Also write the extracted text to this file.")
	}
	return cmd
}

// parseOptions merges the --options object and the --set pairs.
func parseOptions(object string, pairs []string) (map[string]any, error) {
	options := map[string]any{}
	if strings.TrimSpace(object) != "" {
		err := json5.Unmarshal([]byte(object), &options)
		if err != nil {
			return nil, fmt.Errorf("invalid --options: %w", err)
		}
	}
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		var value any
		err := json5.Unmarshal([]byte(raw), &value)
		if err != nil {
			value = raw
		}
		options[key] = value
	}
	return options, nil
}

func runExtract(ctx context.Context, kind, location string, opts extractOptions, stdout io.Writer) error {
	options, err := parseOptions(opts.Options, opts.Set)
	if err != nil {
		return err
	}
	src, err := jobs.NewSource(kind, location, options)
	if err != nil {
		return err
	}

	res, err := normalizer.Run(ctx, src, normalizer.Options{})
	if err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		slog.WarnContext(ctx, "some items could not be parsed", "count", len(res.Failures), "first", res.Failures[0])
	}

	if opts.Preview > 0 {
		export.Preview(stdout, res.Records, opts.Preview)
	}
	if opts.Out != "" {
		err = export.WriteFile(opts.Out, res.Records)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		slog.InfoContext(ctx, "wrote records", "path", opts.Out, "records", res.Records.Len())
	}
	if opts.TextOut != "" {
		err = export.WriteText(opts.TextOut, pdfsource.Text(res.Records))
		if err != nil {
			return fmt.Errorf("text export: %w", err)
		}
	}
	return nil
}

// exitError picks the message shown for a failed command.
func exitError(err error) string {
	switch {
	case errors.Is(err, normalizer.ErrSourceUnavailable):
		return "source unavailable"
	case errors.Is(err, normalizer.ErrSourceUnauthorized):
		return "source refused access"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return "failed"
}
