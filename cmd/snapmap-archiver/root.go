package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
)

// rootCmd archives snaps when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "snapmap-archiver [flags] [snap IDs or URLs...]",
	Short: "Download public snaps from the Snap Map",
	Long: `snapmap-archiver downloads public snaps posted around one or more
locations, or snaps given directly by ID or share URL.

Location searches start at the requested radius and contract toward the
point, since a single query never returns everything in a large area.
Throttled queries are retried at the same radius after a backoff.

Features:
  - Expanding-radius location search with deduplication
  - Direct lookup of snap IDs and map share URLs
  - Age filter (--since-time) with relative or absolute cutoffs
  - Concurrent downloads that skip files already on disk
  - Optional manifest of every snap found (json, yaml or sqlite)`,
	Example: `  # Everything posted within 10km of a point
  snapmap-archiver -l 35.0,67.0 -r 10000 -o ./archive

  # Two locations, only the last 6 hours, with a manifest
  snapmap-archiver -l 35.0,67.0 -l 34.5,69.2 -t 6h --write-json

  # Snaps by ID or URL, some read from a file
  snapmap-archiver -f snaps.txt https://map.snapchat.com/ttp/snap/W7_.../@0,0,1z`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		if noColor {
			ui.SetColor(false)
		}
	},
	RunE: runArchive,
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError("Error", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.snapmap-archiver.yaml or ~/.config/snapmap-archiver/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`snapmap-archiver {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "snapmap-archiver %s (commit: %s, built: %s) %s %s/%s\n",
			version, gitCommit, buildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
