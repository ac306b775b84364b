package commands

import (
	"context"
	"fmt"
	"labextract/lib/restyutil"
	"labextract/lib/serviceutil"
	"labextract/lib/sources/webfetch"
	"labextract/lib/telemetry"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose *bool
var logFile *string
var dumpRequests *string

var tel telemetry.Telemetry
var closeLog func() error

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
	logFile = rootCmd.PersistentFlags().String("log-file", "", "Also write logs as JSON lines to this file.")
	dumpRequests = rootCmd.PersistentFlags().String(
		"dump-requests", "",
		"Write every HTTP request and response to this directory, ex. <dev_state>/resty.",
	)
}

var rootCmd = &cobra.Command{
	Use:   "labextract",
	Short: "labextract turns files, APIs, web pages and databases into CSV.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		closeLog = telemetry.InitSlog(telemetry.LogOptions{
			Verbose: *verbose,
			File:    *logFile,
		})

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "labextract")
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}

		if *dumpRequests != "" {
			output, err := restyutil.NewFilesystemOutput(*dumpRequests)
			if err != nil {
				serviceutil.Fatal("failed to create request dump directory", err)
			}
			slog.Debug("dumping requests", "dir", output.Directory())
			webfetch.SetRestyInstrumentOutput(output)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.RecordProcessStats(cmd.Context())
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
		if closeLog != nil {
			closeLog()
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
