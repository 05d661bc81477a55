package archiver

import (
	"context"
	"time"

	"snapmap-archiver/internal/downloader"
	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/manifest"
)

// DownloadCached fetches the media of every cached snap. It must only be
// called once querying has finished.
func (a *Archiver) DownloadCached(ctx context.Context, fetcher downloader.MediaFetcher, store downloader.MediaStorage, opts downloader.Options, onResult func(downloader.DownloadResult)) downloader.Summary {
	records := a.cache.All()
	logger.LogComponentStart("downloader", map[string]interface{}{
		"snaps":   len(records),
		"workers": opts.Workers,
	})

	summary := downloader.DownloadAll(ctx, records, opts, fetcher, store, a.logger, onResult)
	a.downloadCount.Add(int64(summary.Downloaded))

	logger.LogComponentStop("downloader", "completed")
	return summary
}

// WriteManifest writes all cached records in discovery order and returns
// the file name used
func (a *Archiver) WriteManifest(out manifest.FileWriter, format manifest.Format, at time.Time) (string, error) {
	name, err := manifest.Write(out, format, a.cache.All(), at)
	if err != nil {
		return "", err
	}
	a.logger.InfoWithFields("manifest written", map[string]interface{}{
		"path":    out.Path(name),
		"format":  string(format),
		"records": a.cache.Len(),
	})
	return name, nil
}
