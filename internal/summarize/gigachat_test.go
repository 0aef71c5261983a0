package summarize_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teledigest/teledigest/internal/config"
	"github.com/teledigest/teledigest/internal/summarize"
)

// newGigaChatServer fakes the OAuth and completion endpoints. tokenStatus
// and apiStatus override the happy-path responses when non-zero.
func newGigaChatServer(t *testing.T, tokenStatus, apiStatus int, completionBody string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %s, want POST", r.Method)
		}
		if r.Header.Get("RqUID") == "" {
			t.Error("token request missing RqUID header")
		}
		if r.Header.Get("Authorization") != "Basic c2VjcmV0" {
			t.Errorf("token request Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token form: %v", err)
		}
		if r.PostForm.Get("scope") != "GIGACHAT_API_PERS" {
			t.Errorf("token request scope = %q", r.PostForm.Get("scope"))
		}

		if tokenStatus != 0 {
			w.WriteHeader(tokenStatus)
			return
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123"}); err != nil {
			t.Errorf("failed to encode token response: %v", err)
		}
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("completion Authorization = %q", r.Header.Get("Authorization"))
		}

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode completion request: %v", err)
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" || payload.Messages[1].Role != "user" {
			t.Errorf("unexpected message layout: %+v", payload.Messages)
		}

		if apiStatus != 0 {
			w.WriteHeader(apiStatus)
			return
		}
		if _, err := w.Write([]byte(completionBody)); err != nil {
			t.Errorf("failed to write completion response: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func gigaChatConfig(serverURL string) config.GigaChatConfig {
	return config.GigaChatConfig{
		ClientID:     "rq-uid-1",
		ClientSecret: "c2VjcmV0",
		OAuthURL:     serverURL + "/oauth",
		APIURL:       serverURL + "/chat",
		Scope:        "GIGACHAT_API_PERS",
		Model:        "GigaChat",
		Timeout:      5 * time.Second,
	}
}

func TestGigaChatSummarize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		body := `{"choices":[{"message":{"content":"a concise digest"}}]}`
		server := newGigaChatServer(t, 0, 0, body)
		g := summarize.NewGigaChat(gigaChatConfig(server.URL), testLogger())

		summary, err := g.Summarize(ctx, "chat transcript")
		if err != nil {
			t.Fatalf("Summarize returned error: %v", err)
		}
		if summary != "a concise digest" {
			t.Errorf("summary = %q, want %q", summary, "a concise digest")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		server := newGigaChatServer(t, 0, 0, "{}")
		g := summarize.NewGigaChat(gigaChatConfig(server.URL), testLogger())

		if _, err := g.Summarize(ctx, "   "); !errors.Is(err, summarize.ErrEmptyInput) {
			t.Errorf("Summarize returned %v, want ErrEmptyInput", err)
		}
	})

	t.Run("token failure is an auth error", func(t *testing.T) {
		t.Parallel()

		server := newGigaChatServer(t, http.StatusUnauthorized, 0, "")
		g := summarize.NewGigaChat(gigaChatConfig(server.URL), testLogger())

		_, err := g.Summarize(ctx, "text")
		var authErr *summarize.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Summarize returned %v, want *AuthError", err)
		}
	})

	t.Run("missing credentials is an auth error", func(t *testing.T) {
		t.Parallel()

		server := newGigaChatServer(t, 0, 0, "{}")
		cfg := gigaChatConfig(server.URL)
		cfg.ClientSecret = ""
		g := summarize.NewGigaChat(cfg, testLogger())

		_, err := g.Summarize(ctx, "text")
		var authErr *summarize.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Summarize returned %v, want *AuthError", err)
		}
	})

	t.Run("completion failure is an api error with status", func(t *testing.T) {
		t.Parallel()

		server := newGigaChatServer(t, 0, http.StatusServiceUnavailable, "")
		g := summarize.NewGigaChat(gigaChatConfig(server.URL), testLogger())

		_, err := g.Summarize(ctx, "text")
		var apiErr *summarize.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Summarize returned %v, want *APIError", err)
		}
		if apiErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", apiErr.StatusCode, http.StatusServiceUnavailable)
		}
	})

	t.Run("malformed completion body is an api error", func(t *testing.T) {
		t.Parallel()

		server := newGigaChatServer(t, 0, 0, "not json")
		g := summarize.NewGigaChat(gigaChatConfig(server.URL), testLogger())

		_, err := g.Summarize(ctx, "text")
		var apiErr *summarize.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Summarize returned %v, want *APIError", err)
		}
	})

	t.Run("empty choices is an api error", func(t *testing.T) {
		t.Parallel()

		server := newGigaChatServer(t, 0, 0, `{"choices":[]}`)
		g := summarize.NewGigaChat(gigaChatConfig(server.URL), testLogger())

		_, err := g.Summarize(ctx, "text")
		var apiErr *summarize.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Summarize returned %v, want *APIError", err)
		}
	})
}
