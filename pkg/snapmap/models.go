package snapmap

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Epoch is the opaque tile set version the playlist endpoint requires. The
// vendor sends either a string or a number; it is passed back verbatim.
type Epoch json.RawMessage

func (e Epoch) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return e, nil
}

func (e *Epoch) UnmarshalJSON(data []byte) error {
	*e = append((*e)[:0], data...)
	return nil
}

// IsZero reports whether the epoch is missing or null
func (e Epoch) IsZero() bool {
	trimmed := bytes.TrimSpace(e)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (e Epoch) String() string {
	if s, err := strconv.Unquote(string(e)); err == nil {
		return s
	}
	return string(e)
}

// TileSetResponse is the getLatestTileSet reply
type TileSetResponse struct {
	TileSetInfos []TileSetInfo `json:"tileSetInfos"`
}

// TileSetInfo describes one tile set
type TileSetInfo struct {
	ID struct {
		Type  string `json:"type"`
		Epoch Epoch  `json:"epoch"`
	} `json:"id"`
}

// GeoPoint is the request form of a coordinate
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TileSetID selects the tile set a playlist query runs against
type TileSetID struct {
	Flavor string `json:"flavor"`
	Epoch  Epoch  `json:"epoch"`
	Type   int    `json:"type"`
}

// PlaylistRequest is the getPlaylist body
type PlaylistRequest struct {
	RequestGeoPoint   GeoPoint  `json:"requestGeoPoint"`
	ZoomLevel         float64   `json:"zoomLevel"`
	TileSetID         TileSetID `json:"tileSetId"`
	RadiusMeters      int       `json:"radiusMeters"`
	MaximumFuzzRadius int       `json:"maximumFuzzRadius"`
}

// NewPlaylistRequest builds a query around (lat, lon) at the given radius
func NewPlaylistRequest(lat, lon, zoom float64, epoch Epoch, radius int) PlaylistRequest {
	return PlaylistRequest{
		RequestGeoPoint:   GeoPoint{Lat: lat, Lon: lon},
		ZoomLevel:         zoom,
		TileSetID:         TileSetID{Flavor: "default", Epoch: epoch, Type: 1},
		RadiusMeters:      radius,
		MaximumFuzzRadius: 0,
	}
}

// playlistResponse keeps manifest and elements as pointers so a missing
// list can be told apart from an empty one. Elements stay raw so each is
// decoded on its own.
type playlistResponse struct {
	Manifest *struct {
		Elements *[]json.RawMessage `json:"elements"`
	} `json:"manifest"`
}

// StoryElementsRequest is the getStoryElements body
type StoryElementsRequest struct {
	SnapIDs []string `json:"snapIds"`
}

type storyElementsResponse struct {
	Elements []json.RawMessage `json:"elements"`
}

// MalformedElement is a list entry that could not be decoded. ID is set
// when the entry carried a readable id.
type MalformedElement struct {
	ID  string
	Err error
}

// decodeElements decodes each entry separately so one mistyped element
// does not cost the rest of the page
func decodeElements(raws []json.RawMessage) ([]RawElement, []MalformedElement) {
	elements := make([]RawElement, 0, len(raws))
	var malformed []MalformedElement

	for _, raw := range raws {
		var el RawElement
		if err := json.Unmarshal(raw, &el); err != nil {
			malformed = append(malformed, MalformedElement{ID: rawID(raw), Err: err})
			continue
		}
		elements = append(elements, el)
	}
	return elements, malformed
}

// rawID reads the id of an entry that failed to decode, whatever its type
func rawID(raw json.RawMessage) string {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil || len(head.ID) == 0 {
		return ""
	}
	if id, err := strconv.Unquote(string(head.ID)); err == nil {
		return id
	}
	return string(head.ID)
}

// RawElement is one snap as the vendor returns it. Only the fields the
// archiver reads are modelled.
type RawElement struct {
	ID        string          `json:"id"`
	Timestamp json.RawMessage `json:"timestamp"`
	SnapInfo  SnapInfo        `json:"snapInfo"`
}

// SnapInfo holds the media and place details of a RawElement
type SnapInfo struct {
	SnapMediaType      json.RawMessage     `json:"snapMediaType"`
	StreamingMediaInfo *StreamingMediaInfo `json:"streamingMediaInfo"`
	Title              *Fallback           `json:"title"`
	LocalitySubtitle   *Fallback           `json:"localitySubtitle"`
}

// StreamingMediaInfo carries the download URL
type StreamingMediaInfo struct {
	MediaURL string `json:"mediaUrl"`
}

// Fallback is a localized string; only the untranslated value is used
type Fallback struct {
	Fallback string `json:"fallback"`
}

// HasMediaType reports whether snapMediaType is present with a non-empty
// value. Null, false, zero and empty values count as absent.
func (s SnapInfo) HasMediaType() bool {
	switch strings.TrimSpace(string(s.SnapMediaType)) {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return false
	}
	return true
}

// TimestampMillis decodes the creation time, which the vendor sends as a
// decimal string or a number of milliseconds
func (e RawElement) TimestampMillis() (int64, error) {
	raw := strings.TrimSpace(string(e.Timestamp))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	return strconv.ParseInt(raw, 10, 64)
}
