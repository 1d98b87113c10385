// Package swipeclient talks to the ArtSwipe API and keeps the per-session swipe queue.
package swipeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Image mirrors the API representation of a generated image
type Image struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	Liked     *bool     `json:"liked"`
	CreatedAt time.Time `json:"createdAt"`
}

type Stats struct {
	Liked    int64 `json:"liked"`
	Disliked int64 `json:"disliked"`
	Total    int64 `json:"total"`
}

type Count struct {
	Count       int64 `json:"count"`
	Limit       int64 `json:"limit"`
	CanGenerate bool  `json:"canGenerate"`
}

// APIError is a non-2xx API response
type APIError struct {
	Status  int
	Message string   `json:"error"`
	Details []string `json:"-"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client. A nil httpClient gets a default with a generous timeout
// since generation requests wait for the upstream model.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) PendingImages(ctx context.Context) ([]Image, error) {
	var images []Image
	err := c.do(ctx, http.MethodGet, "/api/images/pending", nil, &images)
	return images, err
}

func (c *Client) LikedImages(ctx context.Context) ([]Image, error) {
	var images []Image
	err := c.do(ctx, http.MethodGet, "/api/images/liked", nil, &images)
	return images, err
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Count(ctx context.Context) (*Count, error) {
	var count Count
	if err := c.do(ctx, http.MethodGet, "/api/images/count", nil, &count); err != nil {
		return nil, err
	}
	return &count, nil
}

// Generate triggers one generation batch and returns the created images
func (c *Client) Generate(ctx context.Context) ([]Image, error) {
	var images []Image
	err := c.do(ctx, http.MethodPost, "/api/images/generate", nil, &images)
	return images, err
}

func (c *Client) Swipe(ctx context.Context, id string, liked bool) (*Image, error) {
	var image Image
	path := "/api/images/" + url.PathEscape(id) + "/swipe"
	if err := c.do(ctx, http.MethodPost, path, map[string]bool{"liked": liked}, &image); err != nil {
		return nil, err
	}
	return &image, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		var details []string
		if json.Unmarshal(body.Details, &details) == nil {
			apiErr.Details = details
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
