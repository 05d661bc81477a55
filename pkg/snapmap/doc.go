// Package snapmap is a client for the map web API the archiver queries.
//
// Three endpoints are used: getLatestTileSet for the HEAT epoch,
// getPlaylist for geo-searches, and getStoryElements for direct snap ID
// lookups. Responses are decoded into narrow wire types that model only the
// fields the archiver reads.
//
// The playlist endpoint does not signal throttling through status codes. It
// answers with a plain "Too many requests" body, an empty body, or a body
// without the manifest element list; DecodePlaylist turns each of these into
// a typed error so callers can back off and retry. Individual elements are
// decoded one at a time; an element that does not decode is logged and
// dropped without failing the page.
package snapmap
