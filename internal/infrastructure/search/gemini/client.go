// Package gemini talks to the Gemini File Search API: store management,
// resumable file upload, asynchronous import and grounded generation.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

const (
	defaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultUploadBaseURL = "https://generativelanguage.googleapis.com/upload/v1beta"
)

type Client struct {
	baseURL       string
	uploadBaseURL string
	apiKey        string
	model         string
	httpClient    *http.Client
}

// New builds a client for the given model. Base URLs are overridable for
// tests and proxies; empty values fall back to the public endpoints.
func New(apiKey, model, baseURL, uploadBaseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if uploadBaseURL == "" {
		uploadBaseURL = defaultUploadBaseURL
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		uploadBaseURL: strings.TrimRight(uploadBaseURL, "/"),
		apiKey:        apiKey,
		model:         model,
		httpClient:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) CreateStore(ctx context.Context, displayName string) (string, error) {
	var response struct {
		Name string `json:"name"`
	}
	payload := map[string]any{"displayName": displayName}
	if err := c.postJSON(ctx, c.baseURL+"/fileSearchStores", payload, &response, "create store"); err != nil {
		return "", err
	}
	if response.Name == "" {
		return "", domain.WrapError(domain.ErrRemoteService, "create store", fmt.Errorf("response missing store name"))
	}
	return response.Name, nil
}

func (c *Client) ImportFile(ctx context.Context, storeName, fileName string, chunkingConfig []byte) (string, error) {
	payload := map[string]any{"fileName": fileName}
	if len(chunkingConfig) > 0 {
		payload["chunkingConfig"] = json.RawMessage(chunkingConfig)
	}

	var response struct {
		Name string `json:"name"`
	}
	url := fmt.Sprintf("%s/%s:importFile", c.baseURL, storeName)
	if err := c.postJSON(ctx, url, payload, &response, "import file"); err != nil {
		return "", err
	}
	if response.Name == "" {
		return "", domain.WrapError(domain.ErrRemoteService, "import file", fmt.Errorf("response missing operation name"))
	}
	return response.Name, nil
}

// PollOperation blocks until the operation reports done or maxWait elapses.
// A done operation carrying a remote error is returned as-is; only transport
// faults and the timeout become Go errors.
func (c *Client) PollOperation(ctx context.Context, operationName string, maxWait, interval time.Duration) (*domain.Operation, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, operationName)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		var operation domain.Operation
		if err := c.getJSON(ctx, url, &operation, "poll operation"); err != nil {
			return nil, err
		}
		if operation.Done {
			return &operation, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, domain.WrapError(domain.ErrOperationTimeout, "poll operation",
		fmt.Errorf("%s did not complete within %s", operationName, maxWait))
}

func (c *Client) GenerateAnswer(ctx context.Context, systemPrompt, userMessage string, storeNames []string) (*domain.Answer, error) {
	payload := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []map[string]string{{"text": systemPrompt}},
		},
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": userMessage}},
			},
		},
	}
	// Without stores the call answers from the prompt alone.
	if len(storeNames) > 0 {
		payload["tools"] = []map[string]any{
			{
				"file_search": map[string]any{
					"file_search_store_names": storeNames,
				},
			},
		}
	}

	var response generateContentResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	if err := c.postJSON(ctx, url, payload, &response, "generate content"); err != nil {
		return nil, err
	}
	return response.answer(), nil
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		CitationMetadata struct {
			Citations json.RawMessage `json:"citations"`
		} `json:"citationMetadata"`
	} `json:"candidates"`
}

func (r *generateContentResponse) answer() *domain.Answer {
	if len(r.Candidates) == 0 {
		return &domain.Answer{}
	}
	candidate := r.Candidates[0]

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	return &domain.Answer{
		Text:      text.String(),
		Citations: candidate.CitationMetadata.Citations,
	}
}
