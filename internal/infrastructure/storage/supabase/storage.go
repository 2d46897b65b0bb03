// Package supabase wraps the Supabase storage HTTP API: object upload,
// download and time-limited signed URLs. No retry lives here; retry policy,
// if any, belongs to the caller.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func New(baseURL, serviceKey, bucket string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, path string, data []byte, mimeType string) error {
	url := c.objectURL(path)
	req, err := c.newRequest(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrStorage, "upload", statusError(resp))
	}
	return nil
}

func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.objectURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrStorage, "download", statusError(resp))
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}
	return content, nil
}

func (c *Client) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("marshal sign request: %w", err)
	}

	url := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.baseURL, c.bucket, path)
	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage sign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", domain.WrapError(domain.ErrStorage, "sign", statusError(resp))
	}

	var response struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if response.SignedURL == "" {
		return "", domain.WrapError(domain.ErrStorage, "sign", fmt.Errorf("response missing signed url"))
	}
	return c.baseURL + response.SignedURL, nil
}

func (c *Client) objectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, path)
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	return req, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	message := strings.TrimSpace(string(body))
	if message == "" {
		return fmt.Errorf("status %s", resp.Status)
	}
	return fmt.Errorf("status %s: %s", resp.Status, message)
}
