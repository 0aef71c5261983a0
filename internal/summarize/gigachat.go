package summarize

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/teledigest/teledigest/internal/config"
)

const gigaChatInstruction = "You are an assistant that produces concise summaries of text."

// GigaChat is a Summarizer over the GigaChat REST API: a client-credentials
// OAuth token fetch followed by a chat completions call. Tokens are short
// lived, so one is requested per summarization.
type GigaChat struct {
	cfg        config.GigaChatConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewGigaChat builds the REST backend from configuration.
func NewGigaChat(cfg config.GigaChatConfig, log *slog.Logger) *GigaChat {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // endpoint uses a non-public CA
		}
	}
	return &GigaChat{
		cfg:        cfg,
		httpClient: client,
		log:        log.With("component", "gigachat"),
	}
}

// Summarize sends the text with a fixed summarization instruction and
// returns the model's reply.
func (g *GigaChat) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return "", err
	}

	return g.chatCompletion(ctx, token, text)
}

func (g *GigaChat) accessToken(ctx context.Context) (string, error) {
	if g.cfg.ClientID == "" || g.cfg.ClientSecret == "" {
		return "", &AuthError{Reason: "client_id and client_secret must be configured"}
	}

	form := url.Values{"scope": {g.cfg.Scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Reason: "failed to build token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", g.cfg.ClientID)
	req.Header.Set("Authorization", "Basic "+g.cfg.ClientSecret)

	g.log.DebugContext(ctx, "Requesting access token", "url", g.cfg.OAuthURL)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &AuthError{Reason: "failed to read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Reason: fmt.Sprintf("token endpoint returned status %d: %s", resp.StatusCode, snippet(body))}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &AuthError{Reason: "malformed token response", Err: err}
	}
	if tokenResp.AccessToken == "" {
		return "", &AuthError{Reason: "token response is missing access_token"}
	}

	return tokenResp.AccessToken, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (g *GigaChat) chatCompletion(ctx context.Context, token, text string) (string, error) {
	payload := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: gigaChatInstruction},
			{Role: "user", Content: text},
		},
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", &APIError{Reason: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, bytes.NewReader(buf))
	if err != nil {
		return "", &APIError{Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	g.log.DebugContext(ctx, "Requesting completion", "url", g.cfg.APIURL, "model", g.cfg.Model, "input_len", len(text))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &APIError{Reason: "completion request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &APIError{Reason: "failed to read completion response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Reason: snippet(body)}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", &APIError{Reason: "malformed completion response", Err: err}
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", &APIError{Reason: "completion response has no choices"}
	}

	return completion.Choices[0].Message.Content, nil
}

func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen]) + "..."
	}
	return s
}
