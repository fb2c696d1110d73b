// Package vision provides the client for the image-analysis collaborator.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/homequote/intake/internal/domain"
)

// Client posts image references to the vision service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a vision client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type analyzeRequest struct {
	ImageRef string `json:"image_ref"`
}

// Analyze submits an image reference and returns the labeled features.
func (c *Client) Analyze(ctx context.Context, imageRef string) (*domain.VisionAnalysis, error) {
	body, err := json.Marshal(analyzeRequest{ImageRef: imageRef})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var analysis domain.VisionAnalysis
	if err := json.Unmarshal(respBody, &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if analysis.SourceImageRef == "" {
		analysis.SourceImageRef = imageRef
	}
	return &analysis, nil
}
