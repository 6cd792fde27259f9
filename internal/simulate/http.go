package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client wraps http.Client with the JSON plumbing the drivers need.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(resp.Body, out)
}

func (c *client) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(resp.Body, out)
}

func decodeBody(r io.Reader, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Wire shapes mirroring the API DTOs.

type playRequest struct {
	EventID    string `json:"event_id"`
	ListenerID string `json:"listener_id"`
	TrackID    string `json:"track_id"`
	PlayedAt   string `json:"played_at"`
}

type libraryRequest struct {
	ListenerID string `json:"listener_id"`
	ID         string `json:"id"`
}

type radioRequest struct {
	SeedType        string   `json:"seed_type"`
	SeedID          string   `json:"seed_id"`
	ExcludeTrackIDs []string `json:"exclude_track_ids"`
	Limit           int      `json:"limit"`
}

type trackDTO struct {
	ID       string `json:"id"`
	ArtistID string `json:"artist_id"`
	AlbumID  string `json:"album_id"`
	GenreKey string `json:"genre_key"`
}

type radioResponse struct {
	Tracks []trackDTO `json:"tracks"`
}

type idOnly struct {
	ID string `json:"id"`
}

type homeResponse struct {
	Tracks  []trackDTO `json:"tracks"`
	Albums  []idOnly   `json:"albums"`
	Artists []idOnly   `json:"artists"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}
