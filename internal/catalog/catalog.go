// Package catalog fetches the remote movie list and poster images.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verte-zerg/moviequiz/internal/model"
)

const (
	defaultTimeout = 30 * time.Second
	maxImageBytes  = 8 << 20
)

// ErrLoad marks every catalog load failure: transport, status, decode or API error.
var ErrLoad = errors.New("catalog load failed")

type moviesResponse struct {
	ErrorMessage string      `json:"errorMessage"`
	Items        []movieItem `json:"items"`
}

type movieItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	FullTitle string `json:"fullTitle"`
	Rating    string `json:"imDbRating"`
	Image     string `json:"image"`
}

// Client loads movies from an IMDb-style list endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	imageWidth int
	http       *http.Client
}

// New returns a Client. A non-empty apiKey is appended to the endpoint as a path segment.
func New(endpoint, apiKey string, timeout time.Duration, imageWidth int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		imageWidth: imageWidth,
		http:       &http.Client{Timeout: timeout},
	}
}

// URL returns the list URL the client requests.
func (c *Client) URL() string {
	if c.apiKey == "" {
		return c.endpoint
	}
	return strings.TrimRight(c.endpoint, "/") + "/" + c.apiKey
}

// LoadMovies fetches the whole movie list.
func (c *Client) LoadMovies(ctx context.Context) ([]model.MovieRecord, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is not configured", ErrLoad)
	}
	resp, err := c.get(ctx, c.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status: %s", ErrLoad, resp.Status)
	}

	var payload moviesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode movies: %v", ErrLoad, err)
	}
	if msg := strings.TrimSpace(payload.ErrorMessage); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrLoad, msg)
	}

	movies := make([]model.MovieRecord, 0, len(payload.Items))
	for _, item := range payload.Items {
		title := item.FullTitle
		if title == "" {
			title = item.Title
		}
		movies = append(movies, model.MovieRecord{
			ID:         item.ID,
			Title:      title,
			RatingText: item.Rating,
			ImageRef:   item.Image,
		})
	}
	return movies, nil
}

// FetchImage downloads the poster for ref, resized when an image width is configured.
func (c *Client) FetchImage(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("image reference is empty")
	}
	url := ref
	if c.imageWidth > 0 {
		url = ResizedImageURL(ref, c.imageWidth)
	}
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected image status: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// ResizedImageURL rewrites an IMDb poster URL to a variant scaled to width pixels.
// Refs without the "._" size marker are returned unchanged.
func ResizedImageURL(ref string, width int) string {
	idx := strings.Index(ref, "._")
	if idx < 0 || width <= 0 {
		return ref
	}
	return fmt.Sprintf("%s._V0_UX%d_.jpg", ref[:idx], width)
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, image/*")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
