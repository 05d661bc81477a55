package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"snapmap-archiver/pkg/archiver"
	"snapmap-archiver/pkg/config"
	"snapmap-archiver/pkg/errors"
	"snapmap-archiver/pkg/geo"
	"snapmap-archiver/pkg/logger"
	"snapmap-archiver/pkg/snapmap"
	"snapmap-archiver/pkg/ui"
)

func snapID(c string) string {
	return "W7_" + strings.Repeat(c, snapmap.SnapIDLength)
}

func TestParseInput(t *testing.T) {
	a, b := snapID("a"), snapID("b")

	in, invalid, err := parseInput(
		[]string{"35.0,67.0", " 35.0,67.0 ", "-1.5,2"},
		[]string{a, "https://map.snapchat.com/ttp/snap/" + a + "/@0,0,1z", b, "not-a-snap", ""},
	)

	require.NoError(t, err)
	assert.Equal(t, []geo.Point{{Lat: 35, Lon: 67}, {Lat: -1.5, Lon: 2}}, in.points)
	assert.Equal(t, []string{a, b}, in.snapIDs)
	assert.Equal(t, []string{"not-a-snap"}, invalid)
}

func TestParseInputReportsEveryBadLocation(t *testing.T) {
	_, _, err := parseInput([]string{"noseparator", "35.0,67.0", "not,valid,35"}, nil)

	require.Error(t, err)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "noseparator")
	assert.Contains(t, err.Error(), "not,valid,35")
}

func TestParseInputNothingUsable(t *testing.T) {
	_, invalid, err := parseInput(nil, []string{"garbage"})

	assert.ErrorIs(t, err, errors.ErrNoInput)
	assert.Equal(t, []string{"garbage"}, invalid)
}

func TestReadInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps.txt")
	require.NoError(t, os.WriteFile(path, []byte("  first \n\nsecond\n\n"), 0644))

	lines, err := readInputFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, lines)

	_, err = readInputFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCollectFlags(t *testing.T) {
	f := rootCmd.Flags()
	t.Cleanup(func() {
		for _, name := range []string{"radius", "backoff"} {
			fl := f.Lookup(name)
			require.NoError(t, fl.Value.Set(fl.DefValue))
			fl.Changed = false
		}
	})

	assert.NotContains(t, collectFlags(rootCmd), "radius", "defaults do not override the config file")

	require.NoError(t, f.Set("radius", "500"))
	require.NoError(t, f.Set("backoff", "5s"))

	flags := collectFlags(rootCmd)
	assert.Equal(t, 500, flags["radius"])
	assert.Equal(t, 5*time.Second, flags["backoff"])
	assert.NotContains(t, flags, "zoom")
}

// fakeVendor serves the map endpoints and the media CDN from one server
type fakeVendor struct {
	tileSets string
	playlist []string
	story    []string
}

func (v *fakeVendor) start(t *testing.T) *httptest.Server {
	var server *httptest.Server
	element := func(id string) string {
		return fmt.Sprintf(`{"id":%q,"timestamp":"1609459200000","snapInfo":{"streamingMediaInfo":{"mediaUrl":"%s/media/%s"},"title":{"fallback":"Kabul"}}}`,
			id, server.URL, id)
	}
	list := func(ids []string) string {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = element(id)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == snapmap.LatestTileSetEndpoint:
			io.WriteString(w, v.tileSets)
		case r.URL.Path == snapmap.PlaylistEndpoint:
			io.WriteString(w, `{"manifest":{"elements":`+list(v.playlist)+`}}`)
		case r.URL.Path == snapmap.StoryElementsEndpoint:
			io.WriteString(w, `{"elements":`+list(v.story)+`}`)
		case strings.HasPrefix(r.URL.Path, "/media/"):
			io.WriteString(w, "bytes of "+strings.TrimPrefix(r.URL.Path, "/media/"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, host string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.API.Host = host
	cfg.API.Timeout = 5 * time.Second
	cfg.Search.Radius = 1000
	cfg.Search.Backoff = time.Millisecond
	cfg.Download.ConcurrentDownloads = 4
	cfg.Output.BaseDirectory = t.TempDir()
	return cfg
}

func sessionOptions(t *testing.T, cfg *config.Config) archiver.Options {
	t.Helper()
	opts, err := archiver.OptionsFromConfig(cfg.Search)
	require.NoError(t, err)
	return opts
}

func quietUI(t *testing.T) {
	prevOut, prevLog := ui.Output, logger.GetLogger()
	ui.Output = io.Discard
	logger.SetLogger(logger.NewNopLogger())
	t.Cleanup(func() {
		ui.Output = prevOut
		logger.SetLogger(prevLog)
	})
}

const heatTileSets = `{"tileSetInfos":[{"id":{"type":"HEAT","epoch":"1700000000000"}}]}`

func TestRunSession(t *testing.T) {
	quietUI(t)
	v := &fakeVendor{
		tileSets: heatTileSets,
		playlist: []string{"geo-1", "geo-2"},
		story:    []string{snapID("a")},
	}
	server := v.start(t)

	cfg := testConfig(t, server.URL)
	cfg.Output.WriteManifest = true

	err := runSession(context.Background(), cfg, sessionOptions(t, cfg), input{
		points:  []geo.Point{{Lat: 35, Lon: 67}},
		snapIDs: []string{snapID("a"), "geo-1"},
	}, false)
	require.NoError(t, err)

	dir := cfg.Output.BaseDirectory
	for _, id := range []string{"geo-1", "geo-2", snapID("a")} {
		data, err := os.ReadFile(filepath.Join(dir, id+".jpg"))
		require.NoError(t, err, id)
		assert.Equal(t, "bytes of "+id, string(data))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "archive_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 3)
	assert.Equal(t, "geo-1", records[0]["id"])
	assert.Equal(t, "Kabul", records[0]["location"])
	assert.Equal(t, 1609459200.0, records[0]["create_time"])
}

func TestRunSessionMissingEpochContinues(t *testing.T) {
	quietUI(t)
	v := &fakeVendor{
		tileSets: `{"tileSetInfos":[]}`,
		story:    []string{snapID("b")},
	}
	server := v.start(t)
	cfg := testConfig(t, server.URL)

	err := runSession(context.Background(), cfg, sessionOptions(t, cfg), input{
		points:  []geo.Point{{Lat: 1, Lon: 2}},
		snapIDs: []string{snapID("b")},
	}, false)

	var epochErr *errors.MissingEpochError
	require.True(t, stderrors.As(err, &epochErr), "got %v", err)

	_, statErr := os.Stat(filepath.Join(cfg.Output.BaseDirectory, snapID("b")+".jpg"))
	assert.NoError(t, statErr, "direct lookups still download after a failed search")
}

func TestRunSessionSkipsExistingFiles(t *testing.T) {
	quietUI(t)
	v := &fakeVendor{tileSets: heatTileSets, playlist: []string{"kept"}}
	server := v.start(t)
	cfg := testConfig(t, server.URL)

	existing := filepath.Join(cfg.Output.BaseDirectory, "kept.jpg")
	require.NoError(t, os.WriteFile(existing, []byte("original"), 0644))

	err := runSession(context.Background(), cfg, sessionOptions(t, cfg), input{points: []geo.Point{{Lat: 0, Lon: 0}}}, false)
	require.NoError(t, err)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestRunSessionAppliesCutoff(t *testing.T) {
	quietUI(t)
	v := &fakeVendor{tileSets: heatTileSets, playlist: []string{"stale"}}
	server := v.start(t)
	cfg := testConfig(t, server.URL)

	opts := sessionOptions(t, cfg)
	opts.Cutoff = 1_700_000_000
	opts.HasCutoff = true

	err := runSession(context.Background(), cfg, opts, input{points: []geo.Point{{Lat: 0, Lon: 0}}}, false)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(cfg.Output.BaseDirectory, "stale.jpg"))
	assert.True(t, os.IsNotExist(statErr), "snaps older than the cutoff are not downloaded")
}
