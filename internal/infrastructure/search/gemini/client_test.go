package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

func TestCreateStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fileSearchStores" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Fatalf("expected api key header, got %q", r.Header.Get("x-goog-api-key"))
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["displayName"] != "deck-store" {
			t.Fatalf("unexpected display name %q", payload["displayName"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "fileSearchStores/abc"})
	}))
	defer server.Close()

	client := New("test-key", "gemini-2.5-flash", server.URL, server.URL)
	name, err := client.CreateStore(context.Background(), "deck-store")
	if err != nil {
		t.Fatalf("CreateStore() error = %v", err)
	}
	if name != "fileSearchStores/abc" {
		t.Fatalf("unexpected store name %q", name)
	}
}

func TestCreateStoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New("k", "m", server.URL, server.URL)
	_, err := client.CreateStore(context.Background(), "deck-store")
	if !domain.IsKind(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestUploadFileTwoPhases(t *testing.T) {
	var uploadURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files":
			if r.Header.Get("X-Goog-Upload-Protocol") != "resumable" {
				t.Fatalf("expected resumable protocol header")
			}
			if r.Header.Get("X-Goog-Upload-Command") != "start" {
				t.Fatalf("expected start command, got %q", r.Header.Get("X-Goog-Upload-Command"))
			}
			if r.Header.Get("X-Goog-Upload-Header-Content-Length") != "9" {
				t.Fatalf("unexpected declared length %q", r.Header.Get("X-Goog-Upload-Header-Content-Length"))
			}
			if r.Header.Get("X-Goog-Upload-Header-Content-Type") != "application/pdf" {
				t.Fatalf("unexpected declared mime %q", r.Header.Get("X-Goog-Upload-Header-Content-Type"))
			}
			w.Header().Set("X-Goog-Upload-URL", uploadURL)
			w.WriteHeader(http.StatusOK)
		case "/upload-session":
			if r.Header.Get("X-Goog-Upload-Command") != "upload, finalize" {
				t.Fatalf("expected upload+finalize command, got %q", r.Header.Get("X-Goog-Upload-Command"))
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != "pdf bytes" {
				t.Fatalf("unexpected upload body %q", body)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"file": map[string]string{"name": "files/xyz"},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()
	uploadURL = server.URL + "/upload-session"

	client := New("k", "m", server.URL, server.URL)
	name, err := client.UploadFile(context.Background(), []byte("pdf bytes"), "application/pdf", "Deck")
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if name != "files/xyz" {
		t.Fatalf("unexpected file name %q", name)
	}
}

func TestUploadFileMissingUploadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New("k", "m", server.URL, server.URL)
	_, err := client.UploadFile(context.Background(), []byte("x"), "text/plain", "doc")
	if !domain.IsKind(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
}

func TestImportFileSendsChunkingConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fileSearchStores/abc:importFile" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if string(payload["fileName"]) != `"files/xyz"` {
			t.Fatalf("unexpected fileName %s", payload["fileName"])
		}
		if string(payload["chunkingConfig"]) != `{"maxTokens":512}` {
			t.Fatalf("unexpected chunkingConfig %s", payload["chunkingConfig"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "operations/op-1"})
	}))
	defer server.Close()

	client := New("k", "m", server.URL, server.URL)
	op, err := client.ImportFile(context.Background(), "fileSearchStores/abc", "files/xyz", []byte(`{"maxTokens":512}`))
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if op != "operations/op-1" {
		t.Fatalf("unexpected operation %q", op)
	}
}

func TestPollOperationWaitsForDone(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/operations/op-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		done := calls.Add(1) >= 3
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "operations/op-1", "done": done})
	}))
	defer server.Close()

	client := New("k", "m", server.URL, server.URL)
	op, err := client.PollOperation(context.Background(), "operations/op-1", time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("PollOperation() error = %v", err)
	}
	if !op.Done {
		t.Fatalf("expected done operation")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 polls, got %d", calls.Load())
	}
}

func TestPollOperationTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "operations/op-1", "done": false})
	}))
	defer server.Close()

	client := New("k", "m", server.URL, server.URL)
	_, err := client.PollOperation(context.Background(), "operations/op-1", 20*time.Millisecond, 5*time.Millisecond)
	if !domain.IsKind(err, domain.ErrOperationTimeout) {
		t.Fatalf("expected ErrOperationTimeout, got %v", err)
	}
}

func TestGenerateAnswerWithStores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		tools, ok := payload["tools"].([]any)
		if !ok || len(tools) != 1 {
			t.Fatalf("expected one file_search tool, got %v", payload["tools"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"parts": []map[string]string{{"text": "The ask "}, {"text": "is 2M."}},
					},
					"citationMetadata": map[string]any{
						"citations": []map[string]any{{"uri": "files/xyz"}},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := New("k", "gemini-2.5-flash", server.URL, server.URL)
	answer, err := client.GenerateAnswer(context.Background(), "system", "what is the ask", []string{"fileSearchStores/abc"})
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer.Text != "The ask is 2M." {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if len(answer.Citations) == 0 {
		t.Fatalf("expected citations passthrough")
	}
}

func TestGenerateAnswerOmitsToolWithoutStores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if _, ok := payload["tools"]; ok {
			t.Fatalf("expected no tools without stores")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []map[string]any{}})
	}))
	defer server.Close()

	client := New("k", "m", server.URL, server.URL)
	answer, err := client.GenerateAnswer(context.Background(), "system", "hi", nil)
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer.Text != "" {
		t.Fatalf("expected empty answer for no candidates, got %q", answer.Text)
	}
}
