package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"snapmap-archiver/internal/downloader"
	"snapmap-archiver/pkg/archiver"
	"snapmap-archiver/pkg/config"
	"snapmap-archiver/pkg/errors"
	"snapmap-archiver/pkg/geo"
	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/manifest"
	"snapmap-archiver/pkg/ratelimit"
	"snapmap-archiver/pkg/snapmap"
	"snapmap-archiver/pkg/storage"
	"snapmap-archiver/pkg/ui"
)

var (
	outputDir      string
	zoomDepth      float64
	radius         int
	locations      []string
	inputFile      string
	sinceTime      string
	writeManifest  bool
	manifestFormat string
	backoff        time.Duration
	maxAttempts    int
	concurrent     int
	debug          bool
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&outputDir, "output", "o", "", "output directory for snaps (default ./snapmap-archive)")
	f.Float64VarP(&zoomDepth, "zoom", "z", 5, "map zoom depth sent with location queries")
	f.IntVarP(&radius, "radius", "r", 30000, fmt.Sprintf("search radius in meters (max %d)", config.MaxRadius))
	f.StringArrayVarP(&locations, "location", "l", nil, "location to search as lat,lon (repeatable)")
	f.StringVarP(&inputFile, "file", "f", "", "file with one snap ID or URL per line")
	f.StringVarP(&sinceTime, "since-time", "t", "", "only keep snaps newer than this: Unix timestamp or age like 30m, 6h, 2d")
	f.BoolVar(&writeManifest, "write-json", false, "write a manifest of every snap found")
	f.StringVar(&manifestFormat, "manifest-format", "", "manifest format: json, yaml or sqlite")
	f.DurationVar(&backoff, "backoff", time.Minute, "wait before retrying a throttled query")
	f.IntVar(&maxAttempts, "max-attempts", 0, "queries per radius step before giving up (0 retries forever)")
	f.IntVar(&concurrent, "concurrent", 20, "number of concurrent downloads")
	f.BoolVarP(&debug, "debug", "d", false, "debug logging, one line per download")
}

// collectFlags returns the flags set on the command line, keyed the way
// config.MergeCommandLineFlags expects
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("zoom") {
		flags["zoom"] = zoomDepth
	}
	if changed("radius") {
		flags["radius"] = radius
	}
	if changed("since-time") {
		flags["since-time"] = sinceTime
	}
	if changed("write-json") {
		flags["write-json"] = writeManifest
	}
	if changed("manifest-format") {
		flags["manifest-format"] = manifestFormat
	}
	if changed("backoff") {
		flags["backoff"] = backoff
	}
	if changed("max-attempts") {
		flags["max-attempts"] = maxAttempts
	}
	if changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if debug {
		flags["log-level"] = "debug"
	}
	return flags
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}

	raw := append([]string(nil), args...)
	if inputFile != "" {
		lines, err := readInputFile(inputFile)
		if err != nil {
			return err
		}
		raw = append(raw, lines...)
	}

	in, invalid, err := parseInput(locations, raw)
	for _, s := range invalid {
		ui.PrintWarning("Invalid snap ID or URL", s)
		logger.WithField("input", s).Warn("Ignoring invalid snap ID")
	}
	if err != nil {
		return err
	}
	opts, err := archiver.OptionsFromConfig(cfg.Search)
	if err != nil {
		return err
	}

	showProgress := !debug && ui.IsInteractive()
	if showProgress {
		ui.PrintLogo()
	}
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)

	return runSession(cmd.Context(), cfg, opts, in, showProgress)
}

// input is what the command line asked for after validation
type input struct {
	points  []geo.Point
	snapIDs []string
}

// parseInput dedups and validates locations and snap references. Entries
// that are not snap IDs are returned in invalid. Every malformed location
// is reported in the joined error, and ErrNoInput is returned when nothing
// usable remains.
func parseInput(locs, refs []string) (input, []string, error) {
	var in input
	var invalid []string
	var errs []error

	seenLoc := make(map[string]bool)
	for _, l := range locs {
		l = strings.TrimSpace(l)
		if seenLoc[l] {
			continue
		}
		seenLoc[l] = true

		p, err := geo.ParsePoint(l)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		in.points = append(in.points, p)
	}

	seenID := make(map[string]bool)
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		id, ok := snapmap.ExtractSnapID(ref)
		if !ok {
			invalid = append(invalid, ref)
			continue
		}
		if seenID[id] {
			continue
		}
		seenID[id] = true
		in.snapIDs = append(in.snapIDs, id)
	}

	if len(errs) > 0 {
		return input{}, invalid, stderrors.Join(errs...)
	}
	if len(in.points) == 0 && len(in.snapIDs) == 0 {
		return input{}, invalid, fmt.Errorf("%w: pass --location, --file or snap IDs", errors.ErrNoInput)
	}
	return in, invalid, nil
}

// readInputFile returns the non-empty lines of path
func readInputFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return lines, nil
}

// runSession queries every location and snap ID, then downloads what was
// found. A failed location does not stop the others; its error is part of
// the returned error once everything else has run.
func runSession(ctx context.Context, cfg *config.Config, opts archiver.Options, in input, showProgress bool) error {
	log := logger.GetLogger()

	client := snapmap.NewClient(cfg.API, log)
	a := archiver.New(client, opts, log)

	var failures []error
	for _, p := range in.points {
		progress := ui.NewSearchProgress(p.String(), archiver.ClampRadius(opts.Radius), showProgress)
		records, err := a.Search(ctx, p, &archiver.SearchHooks{
			OnStep: func(radius, next, found int) {
				progress.Step(next, found)
			},
			OnBackoff: func(radius int, wait time.Duration, err error) {
				progress.RateLimited(wait)
			},
		})
		progress.Done(err)

		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.WithError(err).WithField("location", p.String()).Error("Location search failed")
			failures = append(failures, err)
			continue
		}
		log.InfoWithFields("Location search completed", map[string]interface{}{
			"location": p.String(),
			"snaps":    len(records),
		})
	}

	if len(in.snapIDs) > 0 {
		records, err := a.QuerySnaps(ctx, in.snapIDs)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.WithError(err).Error("Snap lookup failed")
			failures = append(failures, err)
		} else {
			ui.PrintInfo("Snaps found by ID", fmt.Sprintf("%d of %d", len(records), len(in.snapIDs)))
		}
	}

	ui.PrintInfo("Snaps found", fmt.Sprintf("%d", a.Cache().Len()))

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.OverwriteExisting)
	if err != nil {
		return err
	}

	if a.Cache().Len() > 0 {
		summary := download(ctx, cfg, a, store, showProgress)
		if summary.Failed > 0 {
			log.WarnWithFields("Some downloads failed", map[string]interface{}{
				"failed": summary.Failed,
				"errors": stderrors.Join(summary.Errors...).Error(),
			})
		}
	}

	if cfg.Output.WriteManifest {
		format, err := manifest.ParseFormat(cfg.Output.ManifestFormat)
		if err != nil {
			return err
		}
		name, err := a.WriteManifest(store, format, time.Now())
		if err != nil {
			return err
		}
		ui.PrintInfo("Manifest", store.Path(name))
	}

	a.LogMetrics()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return stderrors.Join(failures...)
}

func download(ctx context.Context, cfg *config.Config, a *archiver.Archiver, store *storage.Manager, showProgress bool) downloader.Summary {
	mediaCfg := cfg.API
	mediaCfg.Timeout = cfg.Download.DownloadTimeout
	fetcher := snapmap.NewClient(mediaCfg, logger.GetLogger())

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.Download.RequestsPerSecond > 0 {
		limiter = ratelimit.NewPerSecond(cfg.Download.RequestsPerSecond, cfg.Download.ConcurrentDownloads)
	}

	var progress *ui.DownloadProgress
	if showProgress || debug {
		progress = ui.NewDownloadProgress(a.Cache().Len(), !showProgress)
	}

	summary := a.DownloadCached(ctx, fetcher, store, downloader.Options{
		Workers:       cfg.Download.ConcurrentDownloads,
		RetryAttempts: cfg.Download.RetryAttempts,
		Limiter:       limiter,
	}, func(r downloader.DownloadResult) {
		if progress == nil {
			return
		}
		name := r.Job.Record.FileName()
		switch {
		case r.Error != nil:
			progress.Fail(name, r.Error)
		case r.Skipped:
			progress.Skip(name)
		default:
			progress.Complete(name, int64(r.Size))
		}
	})

	if progress != nil {
		progress.Finish()
	} else {
		ui.PrintSuccess(fmt.Sprintf("Downloaded %d snaps (%d already on disk, %d failed)",
			summary.Downloaded, summary.Skipped, summary.Failed))
	}
	return summary
}
