package archiver

import (
	"context"
	"errors"

	errs "snapmap-archiver/pkg/errors"
	"snapmap-archiver/pkg/snap"
)

// QuerySnaps looks up snaps by ID in one request. IDs already cached are
// not requested again, and when none remain no request is made. An
// undecodable response is logged and yields no records; transport errors
// are returned. Failed lookups are not retried.
func (a *Archiver) QuerySnaps(ctx context.Context, ids []string) ([]snap.Record, error) {
	var pending []string
	for _, id := range ids {
		if !a.cache.Contains(id) {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		a.logger.Debug("all requested snaps already cached")
		return nil, nil
	}

	a.directQueryCount.Add(1)
	elements, err := a.api.GetStoryElements(ctx, pending)
	if err != nil {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeParsing {
			a.logger.WithError(err).WarnWithFields("could not decode snap lookup response", map[string]interface{}{
				"requested": len(pending),
			})
			return nil, nil
		}
		return nil, err
	}

	var records []snap.Record
	for _, el := range elements {
		if rec, ok := a.ParseSnap(el); ok {
			records = append(records, rec)
		}
	}

	a.logger.InfoWithFields("snap lookup completed", map[string]interface{}{
		"requested": len(pending),
		"returned":  len(elements),
		"parsed":    len(records),
	})
	return records, nil
}
