// Package bridgeclient fetches logbook data from a running bridge server.
package bridgeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "http://localhost:3088"
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 32 << 20
)

// Client talks to the bridge endpoints. Concurrent callsign list fetches
// share one request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// New creates a Client for baseURL. A nil httpClient gets a client with a
// short timeout so a stuck bridge cannot hold a poll tick open.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Callsigns fetches the extracted callsign list from /file.
func (c *Client) Callsigns(ctx context.Context) ([]string, error) {
	v, err, shared := c.group.Do("/file", func() (any, error) {
		body, err := c.get(ctx, "/file")
		if err != nil {
			return nil, err
		}
		var calls []string
		if err := json.Unmarshal(body, &calls); err != nil {
			return nil, fmt.Errorf("failed to decode callsign list: %w", err)
		}
		return calls, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Println("INFO (BridgeClient): Callsign list fetch shared with a concurrent caller")
	}
	return v.([]string), nil
}

// CurrentCallsign fetches the callsign currently entered in the logging application.
func (c *Client) CurrentCallsign(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/dx_input")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// FullLogbook fetches the raw logbook text.
func (c *Client) FullLogbook(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/full_file")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s responded %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
