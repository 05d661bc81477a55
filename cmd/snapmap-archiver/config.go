package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"snapmap-archiver/pkg/config"
	"snapmap-archiver/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage snapmap-archiver configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (SNAPMAP_*)
  - .env files
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.snapmap-archiver.yaml'
unless a different path is given with --config.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration from every source and check it.

This command checks:
  - YAML syntax
  - Value types and ranges
  - That the output directory can be created`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# snapmap-archiver configuration
#
# Every option can also be set with an environment variable prefixed
# SNAPMAP_, for example SNAPMAP_RADIUS or SNAPMAP_OUTPUT_DIR.

api:
  # Vendor API host; point it at a mock server for testing
  host: "https://ms.sc-jpl.com"
  user_agent: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
  timeout: 30s

search:
  # Zoom depth sent with location queries
  zoom_depth: 5
  # Starting radius in meters, at most 85000
  radius: 30000
  # Wait before retrying a throttled query
  backoff: 60s
  # Queries per radius step before giving up; 0 retries forever
  max_attempts: 0
  # Only keep snaps newer than this: Unix timestamp or 30m, 6h, 2d
  since: ""

download:
  concurrent_downloads: 20
  download_timeout: 30s
  retry_attempts: 3
  # 0 leaves downloads unpaced
  requests_per_second: 0

output:
  base_directory: "./snapmap-archive"
  write_manifest: false
  # json, yaml or sqlite
  manifest_format: "json"
  overwrite_existing: false

logging:
  # debug, info, warn, error
  level: "info"
  # Also log to this file when set
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".snapmap-archiver.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Edit the configuration file")
	fmt.Fprintln(ui.Output, "2. Run 'snapmap-archiver config validate' to check it")
	fmt.Fprintln(ui.Output, "3. Start archiving with 'snapmap-archiver -l <lat,lon>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output, "1. Command line flags")
	fmt.Fprintln(ui.Output, "2. Environment variables (SNAPMAP_*)")
	fmt.Fprintln(ui.Output, "3. .env files")
	if configFile != "" {
		fmt.Fprintf(ui.Output, "4. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(ui.Output, "4. Configuration file: (searched in default locations)")
	}
	fmt.Fprintln(ui.Output, "5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	var warnings []string
	if cfg.Search.MaxAttempts == 0 {
		warnings = append(warnings, "max_attempts is 0: throttled searches retry until interrupted")
	}
	if cfg.Search.Radius > config.MaxRadius {
		warnings = append(warnings, fmt.Sprintf("radius %d is above the %d maximum and will be clamped", cfg.Search.Radius, config.MaxRadius))
	}
	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(ui.Output, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Output)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  API host: %s\n", cfg.API.Host)
	fmt.Fprintf(ui.Output, "  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(ui.Output, "  Radius: %dm, zoom %g\n", cfg.Search.Radius, cfg.Search.ZoomDepth)
	fmt.Fprintf(ui.Output, "  Backoff: %s\n", cfg.Search.Backoff)
	fmt.Fprintf(ui.Output, "  Concurrent downloads: %d\n", cfg.Download.ConcurrentDownloads)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
