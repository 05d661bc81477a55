package archiver

import (
	"context"
	"sync/atomic"
	"time"

	"snapmap-archiver/pkg/config"
	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/snap"
	"snapmap-archiver/pkg/snapmap"
	"snapmap-archiver/pkg/timefilter"
)

// API is the part of the vendor client the archiver queries
type API interface {
	GetEpoch(ctx context.Context) (snapmap.Epoch, error)
	GetPlaylist(ctx context.Context, req snapmap.PlaylistRequest) ([]snapmap.RawElement, error)
	GetStoryElements(ctx context.Context, ids []string) ([]snapmap.RawElement, error)
}

// Options are fixed for the lifetime of an Archiver
type Options struct {
	ZoomDepth float64
	Radius    int
	// Backoff is the wait before retrying a throttled or failed query
	Backoff time.Duration
	// MaxAttempts caps the queries per radius step; 0 retries forever
	MaxAttempts int
	// Cutoff is a Unix timestamp; snaps created before it are dropped.
	// It only applies when HasCutoff is set since 0 is a valid cutoff.
	Cutoff    int64
	HasCutoff bool
}

// OptionsFromConfig builds Options from the search settings. A malformed
// since value is returned as an *errors.ParseError.
func OptionsFromConfig(cfg config.SearchConfig) (Options, error) {
	opts := Options{
		ZoomDepth:   cfg.ZoomDepth,
		Radius:      cfg.Radius,
		Backoff:     cfg.Backoff,
		MaxAttempts: cfg.MaxAttempts,
	}
	if cfg.Since != "" {
		cutoff, err := timefilter.Parse(cfg.Since)
		if err != nil {
			return Options{}, err
		}
		opts.Cutoff = cutoff
		opts.HasCutoff = true
	}
	return opts, nil
}

// Archiver is one archiving session. Queries must not run concurrently
// with each other; the download phase may run once querying is done.
type Archiver struct {
	api    API
	cache  *snap.Cache
	opts   Options
	logger logger.Logger

	queryCount       atomic.Int64
	directQueryCount atomic.Int64
	retryCount       atomic.Int64
	downloadCount    atomic.Int64
}

// New creates a session with an empty cache
func New(api API, opts Options, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Archiver{
		api:    api,
		cache:  snap.NewCache(),
		opts:   opts,
		logger: log.WithField("component", "archiver"),
	}
}

// Cache returns the session cache
func (a *Archiver) Cache() *snap.Cache {
	return a.cache
}

// Records returns every snap found this session in discovery order
func (a *Archiver) Records() []snap.Record {
	return a.cache.All()
}

// Metrics returns the session counters
func (a *Archiver) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"query_count":        a.queryCount.Load(),
		"direct_query_count": a.directQueryCount.Load(),
		"retry_count":        a.retryCount.Load(),
		"download_count":     a.downloadCount.Load(),
		"snaps_cached":       a.cache.Len(),
	}
}

// LogMetrics writes the session counters to the log
func (a *Archiver) LogMetrics() {
	logger.LogMetrics("archive", a.Metrics())
}
