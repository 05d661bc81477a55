package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/ratelimit"
	"snapmap-archiver/pkg/retry"
	"snapmap-archiver/pkg/snap"
)

// DownloadJob is one snap to fetch
type DownloadJob struct {
	Record snap.Record
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Success  bool
	Skipped  bool
	Error    error
	Duration time.Duration
	Size     int
}

// MediaFetcher downloads media bytes
type MediaFetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// MediaStorage persists media files
type MediaStorage interface {
	IsDownloaded(name string) bool
	Save(r io.Reader, name string) error
}

// Options tune a WorkerPool
type Options struct {
	Workers int
	// RetryAttempts is how many extra tries a failed download gets
	RetryAttempts int
	Backoff       retry.BackoffStrategy
	Limiter       ratelimit.Limiter
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers    int
	retryAttempts int
	backoff       retry.BackoffStrategy
	jobQueue      chan DownloadJob
	resultQueue   chan DownloadResult
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	fetcher       MediaFetcher
	storage       MediaStorage
	rateLimiter   ratelimit.Limiter
	logger        logger.Logger
}

// NewWorkerPool creates a pool bound to ctx; cancelling ctx stops workers
// after their current job.
func NewWorkerPool(ctx context.Context, opts Options, fetcher MediaFetcher, storage MediaStorage, log logger.Logger) *WorkerPool {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}

	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		numWorkers:    opts.Workers,
		retryAttempts: opts.RetryAttempts,
		backoff:       opts.Backoff,
		jobQueue:      make(chan DownloadJob, opts.Workers*2),
		resultQueue:   make(chan DownloadResult, opts.Workers),
		ctx:           ctx,
		cancel:        cancel,
		fetcher:       fetcher,
		storage:       storage,
		rateLimiter:   opts.Limiter,
		logger:        log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart("downloader", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	logger.LogComponentStop("downloader", "queue drained")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel. It must be drained for workers to
// make progress.
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result DownloadResult
		if wp.ctx.Err() != nil {
			result = DownloadResult{Job: job, Error: wp.ctx.Err()}
		} else {
			result = wp.processJob(job, id)
		}
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	rec := job.Record
	name := rec.FileName()
	result := DownloadResult{Job: job}

	if wp.storage.IsDownloaded(name) {
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		logger.LogDownload(rec.ID, string(rec.Kind), false, nil)
		return result
	}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Error = fmt.Errorf("rate limiter: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	data, err := retry.DoWithResult(func() ([]byte, error) {
		return wp.fetcher.Download(wp.ctx, rec.URL)
	}, &retry.Config{
		MaxAttempts: wp.retryAttempts + 1,
		Backoff:     wp.backoff,
		Context:     wp.ctx,
		Logger:      wp.logger.WithField("snap_id", rec.ID),
	})
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		logger.LogDownload(rec.ID, string(rec.Kind), false, result.Error)
		return result
	}
	result.Size = len(data)

	if err := wp.storage.Save(bytes.NewReader(data), name); err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		logger.LogDownload(rec.ID, string(rec.Kind), false, result.Error)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	wp.logger.DebugWithFields("Worker completed job", map[string]interface{}{
		"worker_id": workerID,
		"snap_id":   rec.ID,
		"size":      result.Size,
		"duration":  result.Duration,
	})
	logger.LogDownload(rec.ID, string(rec.Kind), true, nil)
	return result
}

// Summary totals a batch of downloads
type Summary struct {
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
	Errors     []error
}

// DownloadAll runs records through a fresh pool and collects the outcome.
// onResult, when set, is called once per finished job from a single
// goroutine.
func DownloadAll(ctx context.Context, records []snap.Record, opts Options, fetcher MediaFetcher, storage MediaStorage, log logger.Logger, onResult func(DownloadResult)) Summary {
	pool := NewWorkerPool(ctx, opts, fetcher, storage, log)
	pool.Start()

	summary := Summary{Total: len(records)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			switch {
			case result.Error != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Errorf("%s: %w", result.Job.Record.ID, result.Error))
			case result.Skipped:
				summary.Skipped++
			default:
				summary.Downloaded++
				summary.Bytes += int64(result.Size)
			}
			if onResult != nil {
				onResult(result)
			}
		}
	}()

	for _, rec := range records {
		if err := pool.Submit(DownloadJob{Record: rec}); err != nil {
			break
		}
	}
	pool.Stop()
	<-done

	return summary
}
