// Package ratelimit paces media downloads so a large archive does not hammer
// the CDN.
//
// TokenBucket wraps golang.org/x/time/rate behind the small Limiter
// interface the downloader depends on:
//
//	limiter := ratelimit.NewPerSecond(cfg.Download.RequestsPerSecond, cfg.Download.ConcurrentDownloads)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
