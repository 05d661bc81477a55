package archiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snapmap-archiver/pkg/config"
	errs "snapmap-archiver/pkg/errors"
	"snapmap-archiver/pkg/geo"
	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/retry"
	"snapmap-archiver/pkg/snap"
	"snapmap-archiver/pkg/snapmap"
)

// SearchHooks report geo-search progress. Either field may be nil.
type SearchHooks struct {
	// OnStep is called after each successful radius step with the radius
	// just queried, the radius the search moves on to, and the number of
	// snaps found so far by this search.
	OnStep func(radius, next, found int)
	// OnBackoff is called before waiting out a failed query
	OnBackoff func(radius int, wait time.Duration, err error)
}

// NextRadius returns the radius following r. Steps shrink as the radius
// does and the search ends at 1.
func NextRadius(r int) int {
	switch {
	case r > 2000:
		return r - 2000
	case r > 1000:
		return r - 100
	default:
		return 1
	}
}

// ClampRadius caps r at config.MaxRadius and raises it to at least 1
func ClampRadius(r int) int {
	if r > config.MaxRadius {
		return config.MaxRadius
	}
	if r < 1 {
		return 1
	}
	return r
}

// Search runs QueryCoords with the session's zoom depth and radius
func (a *Archiver) Search(ctx context.Context, p geo.Point, hooks *SearchHooks) ([]snap.Record, error) {
	return a.QueryCoords(ctx, p, a.opts.ZoomDepth, a.opts.Radius, hooks)
}

// QueryCoords searches around p, starting at radius meters and contracting
// toward the point. Each step is retried at the same radius until it
// succeeds, so no radius band is skipped.
//
// It returns every snap seen during this search once, in the order first
// seen, including snaps already cached by earlier searches. A failure to
// resolve the epoch aborts before any query. When the attempt budget runs
// out or ctx is cancelled the snaps found so far are returned with the
// error.
func (a *Archiver) QueryCoords(ctx context.Context, p geo.Point, zoom float64, radius int, hooks *SearchHooks) ([]snap.Record, error) {
	if hooks == nil {
		hooks = &SearchHooks{}
	}
	location := p.String()
	log := a.logger.WithField("location", location)

	current := ClampRadius(radius)
	if current != radius {
		log.InfoWithFields("radius out of range, clamping", map[string]interface{}{
			"requested": radius,
			"radius":    current,
		})
	}

	epoch, err := a.api.GetEpoch(ctx)
	if err != nil {
		return nil, err
	}

	var found []snap.Record
	seen := make(map[string]struct{})

	for current != 1 {
		step := current
		req := snapmap.NewPlaylistRequest(p.Lat, p.Lon, zoom, epoch, step)

		elements, err := retry.DoWithResult(func() ([]snapmap.RawElement, error) {
			a.queryCount.Add(1)
			return a.api.GetPlaylist(ctx, req)
		}, &retry.Config{
			MaxAttempts: a.opts.MaxAttempts,
			Backoff:     &retry.ConstantBackoff{Delay: a.opts.Backoff},
			RetryIf:     isTransient,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				a.retryCount.Add(1)
				a.logBackoff(log, step, attempt, err, delay)
				if hooks.OnBackoff != nil {
					hooks.OnBackoff(step, delay, err)
				}
			},
			Context: ctx,
			Logger:  log,
		})
		if err != nil {
			return found, fmt.Errorf("search around %s stopped at radius %dm: %w", location, step, err)
		}

		added := 0
		for _, el := range elements {
			rec, ok := a.ParseSnap(el)
			if !ok {
				continue
			}
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			found = append(found, rec)
			added++
		}

		current = NextRadius(step)
		logger.LogSearchProgress(location, step, len(elements), added)
		if hooks.OnStep != nil {
			hooks.OnStep(step, current, len(found))
		}
	}

	return found, nil
}

// isTransient treats every playlist failure except cancellation as worth
// retrying. The vendor returns empty or malformed bodies under load as
// well as its plain-text throttling message.
func isTransient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (a *Archiver) logBackoff(log logger.Logger, radius, attempt int, err error, delay time.Duration) {
	var apiErr *errs.Error
	if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit {
		logger.LogRateLimit(snapmap.PlaylistEndpoint, radius, delay)
		return
	}
	log.WithError(err).WarnWithFields("query failed, retrying at same radius", map[string]interface{}{
		"radius":  radius,
		"attempt": attempt,
		"backoff": delay,
	})
}
