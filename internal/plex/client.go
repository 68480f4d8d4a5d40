package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
)

const (
	clientIdentifier = "pulsarr-delete-sync"
	product          = "Pulsarr"
)

// PlexClient implements a client for Plex Media Server API
type PlexClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     arr.Logger
}

// Metadata is one entry of a Plex MediaContainer
type Metadata struct {
	RatingKey            string    `json:"ratingKey"`
	Key                  string    `json:"key"`
	Title                string    `json:"title"`
	Type                 string    `json:"type"`
	GUID                 string    `json:"guid"`
	Guids                []GuidRef `json:"Guid"`
	ParentRatingKey      string    `json:"parentRatingKey"`
	GrandparentRatingKey string    `json:"grandparentRatingKey"`
	GrandparentGUID      string    `json:"grandparentGuid"`
	PlaylistType         string    `json:"playlistType"`
	Smart                bool      `json:"smart"`
	Year                 int       `json:"year"`
}

// GuidRef is one external identifier attached to Plex metadata
type GuidRef struct {
	ID string `json:"id"`
}

// AllGUIDs returns the canonical GUIDs carried by the metadata entry
func (m Metadata) AllGUIDs() []string {
	raw := make([]string, 0, len(m.Guids)+1)
	if m.GUID != "" {
		raw = append(raw, m.GUID)
	}
	for _, g := range m.Guids {
		raw = append(raw, g.ID)
	}
	return models.ParseGuids(raw)
}

// MediaContainer is the standard Plex API response envelope
type MediaContainer struct {
	MediaContainer struct {
		Size              int        `json:"size"`
		TotalSize         int        `json:"totalSize"`
		MachineIdentifier string     `json:"machineIdentifier"`
		Metadata          []Metadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

// NewPlexClient creates a new Plex client
func NewPlexClient(cfg *config.PlexConfig, timeout time.Duration, logger arr.Logger) *PlexClient {
	return &PlexClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// AdminToken returns the server owner token the client was configured with
func (c *PlexClient) AdminToken() string {
	return c.token
}

// TestConnection verifies the connection to Plex
func (c *PlexClient) TestConnection(ctx context.Context) error {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/", c.token, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Plex: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Plex returned status %d", resp.StatusCode)
	}

	c.logger.Info("✅ Successfully connected to Plex")
	return nil
}

// MachineIdentifier returns the server's unique identifier
func (c *PlexClient) MachineIdentifier(ctx context.Context) (string, error) {
	var container MediaContainer
	if err := c.getJSON(ctx, c.baseURL, "/identity", c.token, nil, &container); err != nil {
		return "", fmt.Errorf("failed to get server identity: %w", err)
	}
	if container.MediaContainer.MachineIdentifier == "" {
		return "", fmt.Errorf("server identity response has no machineIdentifier")
	}
	return container.MediaContainer.MachineIdentifier, nil
}

// GetPlaylists lists the video playlists visible to the token's user
func (c *PlexClient) GetPlaylists(ctx context.Context, token string) ([]Metadata, error) {
	query := url.Values{}
	query.Set("playlistType", "video")

	var container MediaContainer
	if err := c.getJSON(ctx, c.baseURL, "/playlists", token, query, &container); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return container.MediaContainer.Metadata, nil
}

// GetPlaylistItems returns the entries of a playlist with their GUIDs
func (c *PlexClient) GetPlaylistItems(ctx context.Context, playlistID, token string) ([]Metadata, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")

	var container MediaContainer
	path := fmt.Sprintf("/playlists/%s/items", url.PathEscape(playlistID))
	if err := c.getJSON(ctx, c.baseURL, path, token, query, &container); err != nil {
		return nil, fmt.Errorf("failed to get items of playlist %s: %w", playlistID, err)
	}
	return container.MediaContainer.Metadata, nil
}

// GetMetadata fetches a single library entry with its GUIDs
func (c *PlexClient) GetMetadata(ctx context.Context, ratingKey, token string) (*Metadata, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")

	var container MediaContainer
	path := fmt.Sprintf("/library/metadata/%s", url.PathEscape(ratingKey))
	if err := c.getJSON(ctx, c.baseURL, path, token, query, &container); err != nil {
		return nil, fmt.Errorf("failed to get metadata %s: %w", ratingKey, err)
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("metadata %s not found", ratingKey)
	}
	return &container.MediaContainer.Metadata[0], nil
}

// CreatePlaylist creates an empty video playlist owned by the token's user
func (c *PlexClient) CreatePlaylist(ctx context.Context, title, token string) (*Metadata, error) {
	machineID, err := c.MachineIdentifier(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("type", "video")
	query.Set("title", title)
	query.Set("smart", "0")
	query.Set("uri", fmt.Sprintf("server://%s/com.plexapp.plugins.library", machineID))

	resp, err := c.makeRequest(ctx, http.MethodPost, "/playlists", token, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed to create playlist, status: %d", resp.StatusCode)
	}

	var container MediaContainer
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("failed to decode create playlist response: %w", err)
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("no playlist returned from server")
	}

	c.logger.Info("Created Plex playlist \"%s\"", title)
	return &container.MediaContainer.Metadata[0], nil
}

// getJSON issues a GET against base+path and decodes the JSON body into out
func (c *PlexClient) getJSON(ctx context.Context, base, path, token string, query url.Values, out interface{}) error {
	resp, err := c.request(ctx, http.MethodGet, base+path, token, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// makeRequest makes an HTTP request to the Plex server API
func (c *PlexClient) makeRequest(ctx context.Context, method, path, token string, query url.Values) (*http.Response, error) {
	return c.request(ctx, method, c.baseURL+path, token, query)
}

func (c *PlexClient) request(ctx context.Context, method, fullURL, token string, query url.Values) (*http.Response, error) {
	u, err := url.Parse(fullURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", token)
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)
	req.Header.Set("X-Plex-Product", product)

	c.logger.Debug("Making %s request to %s", method, u.String())

	return c.httpClient.Do(req)
}
