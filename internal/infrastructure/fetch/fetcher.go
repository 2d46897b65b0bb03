// Package fetch downloads documents referenced by external URL.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

const maxBodyBytes = 64 << 20

type HTTPFetcher struct {
	httpClient *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := strings.TrimSpace(string(body))
		if message == "" {
			return nil, domain.WrapError(domain.ErrRemoteService, "fetch", fmt.Errorf("%s status %s", url, resp.Status))
		}
		return nil, domain.WrapError(domain.ErrRemoteService, "fetch", fmt.Errorf("%s status %s: %s", url, resp.Status, message))
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read fetch body: %w", err)
	}
	return content, nil
}
