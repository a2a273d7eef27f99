package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ServiceClient is the external RAW-to-JPEG converter. It receives a signed
// read URL for the source object and returns the storage path of the JPEG
// derivative it wrote.
type ServiceClient interface {
	Convert(ctx context.Context, sourceSignedURL string) (jpegPath string, err error)
}

type convertRequest struct {
	SourceURL string `json:"source_url"`
}

type convertResponse struct {
	JPEGPath string `json:"jpeg_path"`
	Error    string `json:"error,omitempty"`
}

type HTTPServiceClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPServiceClient builds a client with its own timeout; the conversion
// service gives no latency bound, so callers must not wait forever.
func NewHTTPServiceClient(endpoint string, timeout time.Duration) *HTTPServiceClient {
	return &HTTPServiceClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPServiceClient) Convert(ctx context.Context, sourceSignedURL string) (string, error) {
	body, err := json.Marshal(convertRequest{SourceURL: sourceSignedURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call conversion service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read conversion response: %w", err)
	}

	var parsed convertResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode conversion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != "" {
			return "", fmt.Errorf("conversion service: %s", parsed.Error)
		}
		return "", fmt.Errorf("conversion service returned status %d", resp.StatusCode)
	}
	if parsed.JPEGPath == "" {
		return "", fmt.Errorf("conversion service returned no output path")
	}

	return parsed.JPEGPath, nil
}
