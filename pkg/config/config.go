package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIHost is the vendor host serving the map endpoints
	DefaultAPIHost = "https://ms.sc-jpl.com"

	// MaxRadius is the largest search radius the vendor accepts, in meters
	MaxRadius = 85_000
)

// Config holds all configuration options for the archiver
type Config struct {
	API      APIConfig      `yaml:"api" json:"api"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Download DownloadConfig `yaml:"download" json:"download"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// APIConfig holds vendor API settings
type APIConfig struct {
	Host      string        `yaml:"host" json:"host"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// SearchConfig holds geo-search settings
type SearchConfig struct {
	ZoomDepth float64       `yaml:"zoom_depth" json:"zoom_depth"`
	Radius    int           `yaml:"radius" json:"radius"`
	Backoff   time.Duration `yaml:"backoff" json:"backoff"`
	// MaxAttempts caps attempts per radius step; 0 retries forever.
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"`
	Since       string `yaml:"since" json:"since"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	RequestsPerSecond   float64       `yaml:"requests_per_second" json:"requests_per_second"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	WriteManifest     bool   `yaml:"write_manifest" json:"write_manifest"`
	ManifestFormat    string `yaml:"manifest_format" json:"manifest_format"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host:      DefaultAPIHost,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			Timeout:   30 * time.Second,
		},
		Search: SearchConfig{
			ZoomDepth:   5,
			Radius:      30_000,
			Backoff:     60 * time.Second,
			MaxAttempts: 0,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 20,
			DownloadTimeout:     30 * time.Second,
			RetryAttempts:       3,
		},
		Output: OutputConfig{
			BaseDirectory:  "./snapmap-archive",
			ManifestFormat: "json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if host := os.Getenv("SNAPMAP_API_HOST"); host != "" {
		c.API.Host = host
	}
	if userAgent := os.Getenv("SNAPMAP_USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if outputDir := os.Getenv("SNAPMAP_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if zoom := os.Getenv("SNAPMAP_ZOOM_DEPTH"); zoom != "" {
		val, err := strconv.ParseFloat(zoom, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SNAPMAP_ZOOM_DEPTH: %w", err))
		} else {
			c.Search.ZoomDepth = val
		}
	}
	if radius := os.Getenv("SNAPMAP_RADIUS"); radius != "" {
		val, err := strconv.Atoi(radius)
		if err != nil {
			errs = append(errs, fmt.Errorf("SNAPMAP_RADIUS: %w", err))
		} else {
			c.Search.Radius = val
		}
	}
	if backoff := os.Getenv("SNAPMAP_BACKOFF"); backoff != "" {
		val, err := time.ParseDuration(backoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("SNAPMAP_BACKOFF: %w", err))
		} else {
			c.Search.Backoff = val
		}
	}
	if attempts := os.Getenv("SNAPMAP_MAX_ATTEMPTS"); attempts != "" {
		val, err := strconv.Atoi(attempts)
		if err != nil {
			errs = append(errs, fmt.Errorf("SNAPMAP_MAX_ATTEMPTS: %w", err))
		} else {
			c.Search.MaxAttempts = val
		}
	}
	if since := os.Getenv("SNAPMAP_SINCE"); since != "" {
		c.Search.Since = since
	}
	if concurrent := os.Getenv("SNAPMAP_CONCURRENT_DOWNLOADS"); concurrent != "" {
		val, err := strconv.Atoi(concurrent)
		if err != nil {
			errs = append(errs, fmt.Errorf("SNAPMAP_CONCURRENT_DOWNLOADS: %w", err))
		} else if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if write := os.Getenv("SNAPMAP_WRITE_MANIFEST"); write != "" {
		c.Output.WriteManifest = strings.ToLower(write) == "true"
	}
	if format := os.Getenv("SNAPMAP_MANIFEST_FORMAT"); format != "" {
		c.Output.ManifestFormat = format
	}
	if logLevel := os.Getenv("SNAPMAP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".snapmap-archiver.yaml",
		".snapmap-archiver.yml",
		filepath.Join(home, ".config", "snapmap-archiver", "config.yaml"),
		filepath.Join(home, ".config", "snapmap-archiver", "config.yml"),
		filepath.Join(home, ".snapmap-archiver.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.Host == "" {
		errs = append(errs, errors.New("API host is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.Search.ZoomDepth <= 0 {
		errs = append(errs, errors.New("zoom depth must be positive"))
	}
	if c.Search.Radius < 1 {
		errs = append(errs, errors.New("radius must be at least 1 meter"))
	}
	if c.Search.Backoff < 0 {
		errs = append(errs, errors.New("backoff cannot be negative"))
	}
	if c.Search.MaxAttempts < 0 {
		errs = append(errs, errors.New("max attempts cannot be negative"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 50 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 50"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("download retry attempts cannot be negative"))
	}
	if c.Download.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	validFormats := map[string]bool{"json": true, "yaml": true, "sqlite": true}
	if !validFormats[strings.ToLower(c.Output.ManifestFormat)] {
		errs = append(errs, fmt.Errorf("invalid manifest format %q", c.Output.ManifestFormat))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override; the CLI adds a key when the
// corresponding flag was explicitly set.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["zoom"].(float64); ok {
		c.Search.ZoomDepth = v
	}
	if v, ok := flags["radius"].(int); ok {
		c.Search.Radius = v
	}
	if v, ok := flags["backoff"].(time.Duration); ok {
		c.Search.Backoff = v
	}
	if v, ok := flags["max-attempts"].(int); ok {
		c.Search.MaxAttempts = v
	}
	if v, ok := flags["since-time"].(string); ok && v != "" {
		c.Search.Since = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["write-json"].(bool); ok {
		c.Output.WriteManifest = v
	}
	if v, ok := flags["manifest-format"].(string); ok && v != "" {
		c.Output.ManifestFormat = v
	}
	if v, ok := flags["api-host"].(string); ok && v != "" {
		c.API.Host = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".snapmap-archiver.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
