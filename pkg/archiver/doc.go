// Package archiver holds the archiving session: the expanding-radius
// geo-search, the direct snap ID lookup, the parser that turns vendor
// elements into snap records, and the hand-off of the collected records to
// the downloader and manifest writers.
//
// An Archiver owns one snap.Cache for its whole lifetime. Every query path
// feeds the same cache, so a snap found by a location search is not parsed
// again when its ID is also requested directly.
//
//	a := archiver.New(client, opts, log)
//	records, err := a.Search(ctx, point, nil)
//	extra, err := a.QuerySnaps(ctx, ids)
//	summary := a.DownloadCached(ctx, client, store, dlOpts, nil)
package archiver
