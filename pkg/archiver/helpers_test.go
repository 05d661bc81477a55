package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"snapmap-archiver/pkg/snapmap"
)

// fakeAPI scripts vendor responses and records what was asked
type fakeAPI struct {
	mu         sync.Mutex
	epoch      snapmap.Epoch
	epochErr   error
	playlist   func(call int, req snapmap.PlaylistRequest) ([]snapmap.RawElement, error)
	story      func(ids []string) ([]snapmap.RawElement, error)
	radii      []int
	storyCalls [][]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{epoch: snapmap.Epoch(`"1700000000000"`)}
}

func (f *fakeAPI) GetEpoch(ctx context.Context) (snapmap.Epoch, error) {
	return f.epoch, f.epochErr
}

func (f *fakeAPI) GetPlaylist(ctx context.Context, req snapmap.PlaylistRequest) ([]snapmap.RawElement, error) {
	f.mu.Lock()
	f.radii = append(f.radii, req.RadiusMeters)
	call := len(f.radii)
	f.mu.Unlock()

	if f.playlist == nil {
		return []snapmap.RawElement{}, nil
	}
	return f.playlist(call, req)
}

func (f *fakeAPI) GetStoryElements(ctx context.Context, ids []string) ([]snapmap.RawElement, error) {
	f.mu.Lock()
	f.storyCalls = append(f.storyCalls, ids)
	f.mu.Unlock()

	if f.story == nil {
		return nil, nil
	}
	return f.story(ids)
}

func (f *fakeAPI) requestedRadii() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.radii...)
}

// rawElement decodes a vendor element the way the client would
func rawElement(t *testing.T, body string) snapmap.RawElement {
	t.Helper()
	var el snapmap.RawElement
	require.NoError(t, json.Unmarshal([]byte(body), &el))
	return el
}

// imageElement is a photo snap with a media URL and a title
func imageElement(t *testing.T, id string, millis int64) snapmap.RawElement {
	t.Helper()
	return rawElement(t, fmt.Sprintf(`{
		"id": %q,
		"timestamp": "%d",
		"snapInfo": {
			"streamingMediaInfo": {"mediaUrl": "https://cdn.example/%s"},
			"title": {"fallback": "Kabul"}
		}
	}`, id, millis, id))
}

func elementJSON(id string, millis int64) string {
	return fmt.Sprintf(`{"id":%q,"timestamp":"%d","snapInfo":{"streamingMediaInfo":{"mediaUrl":"https://cdn.example/%s"}}}`,
		id, millis, id)
}
