package commands

import (
	"fmt"
	"labextract/lib/jobs"
	"labextract/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var runConfig *string
var runOnly *[]string

func init() {
	runConfig = runCmd.Flags().StringP("config", "c", "", "The jobs file, defaults to the nearest labextract.json5.")
	runOnly = runCmd.Flags().StringSlice("only", nil, "Run only the named jobs, even disabled ones.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--config <labextract.json5>] [--only <job>,...]",
	Short: "Runs every job of a jobs file.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := jobs.Load(*runConfig)
		if err != nil {
			serviceutil.Fatal("failed to read jobs file", err)
		}

		results, err := jobs.RunAll(cmd.Context(), cfg, jobs.RunOptions{Only: *runOnly})

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.Style().Format.Header = text.FormatDefault
		t.AppendHeader(table.Row{"job", "records", "parse failures", "result"})
		for _, res := range results {
			outcome := res.Output
			if res.Err != nil {
				outcome = res.Err.Error()
			}
			records := 0
			if res.Extraction.Records != nil {
				records = res.Extraction.Records.Len()
			}
			t.AppendRow(table.Row{res.Job, records, len(res.Extraction.Failures), outcome})
		}
		if len(results) > 0 {
			t.Render()
		}

		if err != nil {
			serviceutil.Fatal(fmt.Sprintf("%d of %d jobs failed", failed(results), len(results)), err)
		}
	},
}

func failed(results []jobs.Result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

