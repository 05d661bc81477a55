package snapmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"snapmap-archiver/pkg/config"
	"snapmap-archiver/pkg/errors"
	"snapmap-archiver/pkg/logger"
)

// Client talks to the map web API. It is safe for concurrent use; all
// request settings are fixed at construction.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	host       string
	logger     logger.Logger
}

// NewClient creates a client for cfg.Host
func NewClient(cfg config.APIConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "*/*",
			"Accept-Language": "en-US",
			"Content-Type":    "application/json",
			"Origin":          MapOrigin,
			"Referer":         MapOrigin + "/",
			"DNT":             "1",
		},
		host:   cfg.Host,
		logger: log,
	}
}

// post sends body as JSON to path and returns the raw response body. The
// status code is not interpreted; callers classify the body themselves
// since the vendor signals throttling in the body.
func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	url := joinURL(c.host, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    url,
		"body":   string(payload),
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	logger.LogRequest(req.Method, url, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, resp.StatusCode, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return data, resp.StatusCode, nil
}

// GetEpoch resolves the current HEAT tile set epoch. Every failure,
// including transport errors, is reported as a MissingEpochError.
func (c *Client) GetEpoch(ctx context.Context) (Epoch, error) {
	body, _, err := c.post(ctx, LatestTileSetEndpoint, struct{}{})
	if err != nil {
		return nil, &errors.MissingEpochError{Err: err}
	}

	var resp TileSetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &errors.MissingEpochError{Body: string(body), Err: err}
	}

	for _, info := range resp.TileSetInfos {
		if info.ID.Type == HeatTileSet && !info.ID.Epoch.IsZero() {
			c.logger.DebugWithFields("found epoch", map[string]interface{}{
				"epoch": info.ID.Epoch.String(),
			})
			return info.ID.Epoch, nil
		}
	}

	return nil, &errors.MissingEpochError{Body: string(body)}
}

// GetPlaylist runs one geo-search query. Throttling, empty bodies and
// bodies without a manifest element list come back as typed errors the
// caller may retry; a well-formed empty list is a success. Elements that
// fail to decode are logged and left out.
func (c *Client) GetPlaylist(ctx context.Context, req PlaylistRequest) ([]RawElement, error) {
	body, status, err := c.post(ctx, PlaylistEndpoint, req)
	if err != nil {
		return nil, err
	}
	elements, malformed, err := DecodePlaylist(body, status)
	c.logMalformed(PlaylistEndpoint, malformed)
	return elements, err
}

// DecodePlaylist classifies a getPlaylist response body. Only the page as
// a whole can fail; entries that do not decode are returned separately.
func DecodePlaylist(body []byte, status int) ([]RawElement, []MalformedElement, error) {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil, nil, &errors.Error{Type: errors.ErrorTypeServerError, Message: "no response received", Code: status}
	}
	if text == RateLimitMessage {
		return nil, nil, &errors.Error{Type: errors.ErrorTypeRateLimit, Message: fmt.Sprintf("received [%s] from API", text), Code: status}
	}

	var resp playlistResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("unable to decode API response (likely a rate limit): %s", preview(text)),
			Code:    status,
		}
	}
	if resp.Manifest == nil || resp.Manifest.Elements == nil {
		return nil, nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("response has no manifest elements: %s", preview(text)),
			Code:    status,
		}
	}

	elements, malformed := decodeElements(*resp.Manifest.Elements)
	return elements, malformed, nil
}

// GetStoryElements looks up snaps by ID in one batch. An undecodable body
// is returned as a parsing error; undecodable entries are logged and left
// out.
func (c *Client) GetStoryElements(ctx context.Context, ids []string) ([]RawElement, error) {
	body, status, err := c.post(ctx, StoryElementsEndpoint, StoryElementsRequest{SnapIDs: ids})
	if err != nil {
		return nil, err
	}

	var resp storyElementsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v (response: %s)", err, preview(string(body))),
			Code:    status,
		}
	}

	elements, malformed := decodeElements(resp.Elements)
	c.logMalformed(StoryElementsEndpoint, malformed)
	return elements, nil
}

func (c *Client) logMalformed(endpoint string, malformed []MalformedElement) {
	for _, m := range malformed {
		c.logger.WithError(m.Err).WarnWithFields("skipping malformed element", map[string]interface{}{
			"endpoint": endpoint,
			"snap_id":  m.ID,
		})
	}
}

// Download fetches media bytes from the CDN
func (c *Client) Download(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("User-Agent", c.headers["User-Agent"])

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read media: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return data, nil
}

// checkResponseStatus maps CDN status codes onto typed errors
func checkResponseStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusForbidden:
		return &errors.Error{Type: errors.ErrorTypeNotFound, Message: "media not available", Code: code}
	case code == http.StatusTooManyRequests:
		return &errors.Error{Type: errors.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: code}
	case code >= 500:
		return &errors.Error{Type: errors.ErrorTypeServerError, Message: "server error", Code: code}
	default:
		return &errors.Error{Type: errors.ErrorTypeUnknown, Message: fmt.Sprintf("unexpected status code: %d", code), Code: code}
	}
}

func preview(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
