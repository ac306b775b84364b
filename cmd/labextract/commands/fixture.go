package commands

import (
	"labextract/lib/fixture"
	"labextract/lib/serviceutil"
	"log/slog"

	"github.com/spf13/cobra"
)

var fixtureCsv *string
var fixtureDb *string

func init() {
	fixtureCsv = fixtureCmd.Flags().String("csv", "<dev_state>/data.csv", "The sample CSV file to create, empty to skip.")
	fixtureDb = fixtureCmd.Flags().String("db", "<dev_state>/sample.db", "The sample sqlite database to create, empty to skip.")
	rootCmd.AddCommand(fixtureCmd)
}

var fixtureCmd = &cobra.Command{
	Use:   "fixture [--csv <path>] [--db <path>]",
	Short: "Creates the sample inputs the extract commands can be tried on.",
	Run: func(cmd *cobra.Command, args []string) {
		if *fixtureCsv != "" {
			created, err := fixture.EnsureCSV(*fixtureCsv)
			if err != nil {
				serviceutil.Fatal("failed to create sample csv", err)
			}
			if !created {
				slog.Info("sample csv already exists", "path", *fixtureCsv)
			}
		}

		if *fixtureDb != "" {
			db, err := fixture.OpenDB(*fixtureDb)
			if err != nil {
				serviceutil.Fatal("failed to open sample database", err)
			}
			defer db.Close()
			_, err = fixture.EnsureEmployees(cmd.Context(), db, nil)
			if err != nil {
				serviceutil.Fatal("failed to seed sample database", err)
			}
		}
	},
}
