package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client calls a camera bridge service that exposes the host capture device.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with a short timeout; acquisition must fail fast so the
// scanner can fall back to the synthetic feed.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Health checks if the camera bridge is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("camera bridge unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("camera bridge unhealthy: %s", resp.Status)
	}
	return nil
}

// Acquire opens a capture session at the requested resolution.
func (c *Client) Acquire(ctx context.Context, res Resolution) (Stream, error) {
	body, _ := json.Marshal(res)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", ErrDeviceUnavailable, resp.Status, string(bodyBytes))
	}

	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrDeviceUnavailable)
	}
	return Once(&liveStream{client: c, id: out.SessionID}), nil
}

type liveStream struct {
	client *Client
	id     string
}

func (s *liveStream) Source() Source { return SourceLive }

func (s *liveStream) path(suffix string) string {
	return s.client.BaseURL + "/sessions/" + url.PathEscape(s.id) + suffix
}

// Frame fetches and decodes the latest JPEG frame.
func (s *liveStream) Frame(ctx context.Context, _ int) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.path("/frame"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("camera bridge error %s: %s", resp.Status, string(bodyBytes))
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// Close ends the capture session on the bridge.
func (s *liveStream) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.HTTP.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.path(""), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("release camera: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("release camera: %s", resp.Status)
	}
	return nil
}
