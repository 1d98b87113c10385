package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNoImageInResponse = errors.New("no image URL in generation response")

// ImageGenerator turns a prompt into the URL of a generated image
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Model() string
}

// FalClient calls a fal.ai text-to-image model synchronously
type FalClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewFalClient creates a new fal.ai client
func NewFalClient(baseURL, model, apiKey string) *FalClient {
	return &FalClient{
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   strings.Trim(model, "/"),
		apiKey:  apiKey,
	}
}

func (c *FalClient) Model() string { return c.model }

type falRequest struct {
	Prompt            string `json:"prompt"`
	ImageSize         string `json:"image_size"`
	NumImages         int    `json:"num_images"`
	NumInferenceSteps int    `json:"num_inference_steps"`
}

type falResponse struct {
	Images []struct {
		URL         string `json:"url"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ContentType string `json:"content_type"`
	} `json:"images"`
	Prompt string `json:"prompt"`
}

// GenerateImage requests one square image and returns its URL
func (c *FalClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(falRequest{
		Prompt:            prompt,
		ImageSize:         "square",
		NumImages:         1,
		NumInferenceSteps: 4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.model, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result falResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Images) == 0 || result.Images[0].URL == "" {
		return "", ErrNoImageInResponse
	}

	return result.Images[0].URL, nil
}
