package archiver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/snap"
)

func TestParseSnapClassification(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantKind snap.MediaKind
	}{
		{
			name:     "video",
			body:     `{"id":"v","timestamp":"1000","snapInfo":{"snapMediaType":"SNAP_MEDIA_TYPE_VIDEO","streamingMediaInfo":{"mediaUrl":"https://cdn/v"}}}`,
			wantOK:   true,
			wantKind: snap.Video,
		},
		{
			name:     "numeric media type",
			body:     `{"id":"v2","timestamp":"1000","snapInfo":{"snapMediaType":1,"streamingMediaInfo":{"mediaUrl":"https://cdn/v2"}}}`,
			wantOK:   true,
			wantKind: snap.Video,
		},
		{
			name:     "image with url but no media type",
			body:     `{"id":"i","timestamp":"1000","snapInfo":{"streamingMediaInfo":{"mediaUrl":"https://cdn/i"}}}`,
			wantOK:   true,
			wantKind: snap.Image,
		},
		{
			name:   "neither field",
			body:   `{"id":"n","timestamp":"1000","snapInfo":{}}`,
			wantOK: false,
		},
		{
			name:   "streaming info without url",
			body:   `{"id":"s","timestamp":"1000","snapInfo":{"streamingMediaInfo":{}}}`,
			wantOK: false,
		},
		{
			name:   "media type without streaming info",
			body:   `{"id":"m","timestamp":"1000","snapInfo":{"snapMediaType":1}}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewTestLogger()
			a := New(newFakeAPI(), Options{}, log)

			rec, ok := a.ParseSnap(rawElement(t, tt.body))

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, rec.Kind)
				assert.NotEmpty(t, rec.URL)
				assert.Equal(t, 1, a.Cache().Len())
			} else {
				assert.Equal(t, 0, a.Cache().Len())
				assert.True(t, log.HasMessage("media URL for snap could not be found"))
			}
		})
	}
}

func TestParseSnapFields(t *testing.T) {
	a := New(newFakeAPI(), Options{}, logger.NewNopLogger())

	rec, ok := a.ParseSnap(rawElement(t, `{
		"id": "abc",
		"timestamp": "1609459200123",
		"snapInfo": {
			"streamingMediaInfo": {"mediaUrl": "https://cdn.example/abc"},
			"localitySubtitle": {"fallback": "Herat"}
		}
	}`))

	require.True(t, ok)
	assert.Equal(t, snap.Record{
		ID:         "abc",
		URL:        "https://cdn.example/abc",
		CreateTime: 1609459200.123,
		Kind:       snap.Image,
		Location:   "Herat",
	}, rec)
}

func TestParseSnapNumericTimestamp(t *testing.T) {
	a := New(newFakeAPI(), Options{}, logger.NewNopLogger())

	rec, ok := a.ParseSnap(rawElement(t, `{"id":"n","timestamp":1609459200500,"snapInfo":{"streamingMediaInfo":{"mediaUrl":"u"}}}`))

	require.True(t, ok)
	assert.Equal(t, 1609459200.5, rec.CreateTime)
}

func TestParseSnapLocationLabel(t *testing.T) {
	tests := []struct {
		name     string
		snapInfo string
		want     string
	}{
		{"title wins", `"title":{"fallback":"A"},"localitySubtitle":{"fallback":"B"}`, "A"},
		{"locality when no title", `"localitySubtitle":{"fallback":"B"}`, "B"},
		{"locality when title empty", `"title":{"fallback":""},"localitySubtitle":{"fallback":"B"}`, "B"},
		{"unknown", `"title":{}`, snap.UnknownLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(newFakeAPI(), Options{}, logger.NewNopLogger())
			body := `{"id":"x","timestamp":"1","snapInfo":{"streamingMediaInfo":{"mediaUrl":"u"},` + tt.snapInfo + `}}`

			rec, ok := a.ParseSnap(rawElement(t, body))

			require.True(t, ok)
			assert.Equal(t, tt.want, rec.Location)
		})
	}
}

func TestParseSnapAgeFilter(t *testing.T) {
	const cutoff = 1609459200

	a := New(newFakeAPI(), Options{Cutoff: cutoff, HasCutoff: true}, logger.NewNopLogger())

	_, ok := a.ParseSnap(imageElement(t, "old", cutoff*1000-1))
	assert.False(t, ok, "one millisecond before the cutoff is excluded")

	rec, ok := a.ParseSnap(imageElement(t, "boundary", cutoff*1000))
	assert.True(t, ok, "exactly at the cutoff is included")
	assert.Equal(t, float64(cutoff), rec.CreateTime)

	_, ok = a.ParseSnap(imageElement(t, "new", cutoff*1000+1))
	assert.True(t, ok)

	assert.Equal(t, 2, a.Cache().Len())
}

func TestParseSnapWithoutCutoff(t *testing.T) {
	a := New(newFakeAPI(), Options{}, logger.NewNopLogger())

	_, ok := a.ParseSnap(imageElement(t, "ancient", 1000))
	assert.True(t, ok)
}

func TestParseSnapZeroCutoffIsActive(t *testing.T) {
	a := New(newFakeAPI(), Options{Cutoff: 0, HasCutoff: true}, logger.NewNopLogger())

	_, ok := a.ParseSnap(imageElement(t, "before-epoch", -1000))
	assert.False(t, ok)

	_, ok = a.ParseSnap(imageElement(t, "epoch", 0))
	assert.True(t, ok)
}

func TestParseSnapIdempotent(t *testing.T) {
	a := New(newFakeAPI(), Options{}, logger.NewNopLogger())
	el := imageElement(t, "same", 1609459200000)

	first, ok := a.ParseSnap(el)
	require.True(t, ok)
	second, ok := a.ParseSnap(el)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, a.Cache().Len())
}

func TestParseSnapFirstSeenWins(t *testing.T) {
	a := New(newFakeAPI(), Options{}, logger.NewNopLogger())

	first, ok := a.ParseSnap(rawElement(t, `{"id":"dup","timestamp":"1","snapInfo":{"streamingMediaInfo":{"mediaUrl":"https://first"}}}`))
	require.True(t, ok)

	second, ok := a.ParseSnap(rawElement(t, `{"id":"dup","timestamp":"2","snapInfo":{"snapMediaType":1,"streamingMediaInfo":{"mediaUrl":"https://second"}}}`))
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, "https://first", second.URL)
	assert.Equal(t, snap.Image, second.Kind)
}

func TestParseSnapCachedIgnoresCutoff(t *testing.T) {
	a := New(newFakeAPI(), Options{Cutoff: 10, HasCutoff: true}, logger.NewNopLogger())
	a.Cache().InsertIfAbsent(snap.Record{ID: "kept", URL: "u", CreateTime: 1, Kind: snap.Image})

	rec, ok := a.ParseSnap(imageElement(t, "kept", 1000))

	assert.True(t, ok)
	assert.Equal(t, 1.0, rec.CreateTime)
}

func TestParseSnapRejectsBadInput(t *testing.T) {
	log := logger.NewTestLogger()
	a := New(newFakeAPI(), Options{}, log)

	_, ok := a.ParseSnap(rawElement(t, `{"id":"t","timestamp":"yesterday","snapInfo":{"streamingMediaInfo":{"mediaUrl":"u"}}}`))
	assert.False(t, ok)
	assert.True(t, log.HasMessage("snap has no readable timestamp"))

	_, ok = a.ParseSnap(rawElement(t, `{"timestamp":"1","snapInfo":{"streamingMediaInfo":{"mediaUrl":"u"}}}`))
	assert.False(t, ok)

	assert.Equal(t, 0, a.Cache().Len())
}
