package commands

import (
	"labextract/lib/normalizer"
	"labextract/lib/serviceutil"
	"labextract/lib/sources/csvsource"
	"labextract/lib/stats"

	"github.com/spf13/cobra"
)

var summarizeColumn *string

func init() {
	summarizeColumn = summarizeCmd.Flags().String("column", "Score", "The numeric column to summarize.")
	rootCmd.AddCommand(summarizeCmd)
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file.csv> [--column <name>]",
	Short: "Prints the mean, max, min and count of a CSV column.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := normalizer.Run(cmd.Context(), csvsource.New(csvsource.Config{Path: args[0]}), normalizer.Options{})
		if err != nil {
			serviceutil.Fatal(exitError(err), err)
		}
		summary, err := stats.Summarize(res.Records, *summarizeColumn)
		if err != nil {
			serviceutil.Fatal("failed to summarize", err)
		}
		stats.Render(cmd.OutOrStdout(), summary)
	},
}
