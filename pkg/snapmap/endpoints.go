package snapmap

import (
	"regexp"
	"strings"
)

const (
	// LatestTileSetEndpoint returns the current tile sets and their epochs
	LatestTileSetEndpoint = "/web/getLatestTileSet"

	// PlaylistEndpoint is the geo-search
	PlaylistEndpoint = "/web/getPlaylist"

	// StoryElementsEndpoint resolves snap IDs directly
	StoryElementsEndpoint = "/web/getStoryElements"

	// MapOrigin is the web map the requests claim to come from
	MapOrigin = "https://map.snapchat.com"

	// RateLimitMessage is the plain-text body the playlist endpoint returns
	// when throttling
	RateLimitMessage = "Too many requests"

	// HeatTileSet is the tile set type whose epoch the playlist endpoint needs
	HeatTileSet = "HEAT"

	// SnapIDLength is the length of the token after the W7_ prefix
	SnapIDLength = 55
)

// snapIDPattern matches a bare ID or the ID inside a map share URL such as
// https://map.snapchat.com/ttp/snap/W7_.../@0,0,1z
var snapIDPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_+\-])(W7_[A-Za-z0-9_+\-]{55})(?:$|[^A-Za-z0-9_+\-])`)

// ExtractSnapID returns the snap ID contained in s, or false when s holds
// none. Leading and trailing whitespace is ignored.
func ExtractSnapID(s string) (string, bool) {
	m := snapIDPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// joinURL appends an endpoint path to host without doubling slashes
func joinURL(host, path string) string {
	return strings.TrimRight(host, "/") + path
}
