package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/infrastructure/resilience"
)

// ResilientGenerator guards the chat generation path with retry and a
// circuit breaker. Only generation is wrapped: the ingestion pipeline calls
// the client directly, because a failed document aborts its job rather than
// being retried.
type ResilientGenerator struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilientGenerator(client *Client, executor *resilience.Executor) *ResilientGenerator {
	return &ResilientGenerator{client: client, executor: executor}
}

func (g *ResilientGenerator) GenerateAnswer(ctx context.Context, systemPrompt, userMessage string, storeNames []string) (*domain.Answer, error) {
	var answer *domain.Answer
	err := g.executor.Execute(ctx, "gemini_generate", func(callCtx context.Context) error {
		result, callErr := g.client.GenerateAnswer(callCtx, systemPrompt, userMessage, storeNames)
		if callErr != nil {
			return callErr
		}
		answer = result
		return nil
	}, classifyGeminiError)
	if err != nil {
		return nil, err
	}
	return answer, nil
}

func classifyGeminiError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{
			Retryable:     isRetryableHTTPStatus(statusErr.StatusCode),
			RecordFailure: true,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
