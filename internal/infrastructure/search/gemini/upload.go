package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

const uploadURLHeader = "X-Goog-Upload-URL"

// UploadFile runs the two-phase resumable protocol: a start call declaring
// length and MIME type yields a single-use upload URL, then one
// upload+finalize call streams the bytes. Both phases must succeed.
func (c *Client) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, error) {
	uploadURL, err := c.startUpload(ctx, len(data), mimeType, displayName)
	if err != nil {
		return "", err
	}
	return c.finalizeUpload(ctx, uploadURL, data, mimeType)
}

func (c *Client) startUpload(ctx context.Context, size int, mimeType, displayName string) (string, error) {
	const operation = "upload start"

	payload := map[string]any{
		"file": map[string]string{"displayName": displayName},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.uploadBaseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(size))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", domain.WrapError(domain.ErrRemoteService, operation, statusError(operation, resp))
	}
	uploadURL := resp.Header.Get(uploadURLHeader)
	if uploadURL == "" {
		return "", domain.WrapError(domain.ErrRemoteService, operation, fmt.Errorf("missing %s header", uploadURLHeader))
	}
	return uploadURL, nil
}

func (c *Client) finalizeUpload(ctx context.Context, uploadURL string, data []byte, mimeType string) (string, error) {
	const operation = "upload finalize"

	req, err := c.newRequest(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	// The finalize body is either {"file": {...}} or the bare file resource.
	var response struct {
		Name string `json:"name"`
		File struct {
			Name string `json:"name"`
		} `json:"file"`
	}
	if err := c.doJSON(req, &response, operation); err != nil {
		return "", err
	}

	fileName := response.File.Name
	if fileName == "" {
		fileName = response.Name
	}
	if fileName == "" {
		return "", domain.WrapError(domain.ErrRemoteService, operation, fmt.Errorf("response missing file name"))
	}
	return fileName, nil
}
