package archiver

import (
	"snapmap-archiver/pkg/snap"
	"snapmap-archiver/pkg/snapmap"
)

// ParseSnap turns one vendor element into a cached record. Elements
// already in the cache come back unchanged without being parsed again.
// It reports false for elements that are skipped: those without an ID,
// media URL or readable timestamp, and those older than the cutoff.
func (a *Archiver) ParseSnap(el snapmap.RawElement) (snap.Record, bool) {
	if rec, ok := a.cache.Lookup(el.ID); ok {
		return rec, true
	}
	if el.ID == "" {
		a.logger.Warn("skipping element without an ID")
		return snap.Record{}, false
	}

	info := el.SnapInfo
	kind := classify(info)

	if info.StreamingMediaInfo == nil || info.StreamingMediaInfo.MediaURL == "" {
		a.logger.WarnWithFields("media URL for snap could not be found", map[string]interface{}{
			"snap_id":   el.ID,
			"file_type": string(kind),
		})
		return snap.Record{}, false
	}

	millis, err := el.TimestampMillis()
	if err != nil {
		a.logger.WithError(err).WarnWithFields("snap has no readable timestamp", map[string]interface{}{
			"snap_id":   el.ID,
			"timestamp": string(el.Timestamp),
		})
		return snap.Record{}, false
	}
	createTime := float64(millis) / 1000

	if a.opts.HasCutoff && createTime < float64(a.opts.Cutoff) {
		a.logger.DebugWithFields("snap older than cutoff", map[string]interface{}{
			"snap_id":     el.ID,
			"create_time": createTime,
			"cutoff":      a.opts.Cutoff,
		})
		return snap.Record{}, false
	}

	return a.cache.InsertIfAbsent(snap.Record{
		ID:         el.ID,
		URL:        info.StreamingMediaInfo.MediaURL,
		CreateTime: createTime,
		Kind:       kind,
		Location:   locationLabel(info),
	}), true
}

func classify(info snapmap.SnapInfo) snap.MediaKind {
	switch {
	case info.HasMediaType():
		return snap.Video
	case info.StreamingMediaInfo != nil:
		return snap.Image
	default:
		return snap.Unknown
	}
}

func locationLabel(info snapmap.SnapInfo) string {
	if info.Title != nil && info.Title.Fallback != "" {
		return info.Title.Fallback
	}
	if info.LocalitySubtitle != nil && info.LocalitySubtitle.Fallback != "" {
		return info.LocalitySubtitle.Fallback
	}
	return snap.UnknownLocation
}
