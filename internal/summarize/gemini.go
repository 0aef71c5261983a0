package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/teledigest/teledigest/internal/config"
)

const geminiInstruction = "You are an assistant that produces concise summaries of text."

// Gemini is a Summarizer over the Gemini API. Server errors are retried a
// configured number of times inside the backend; a final failure is still
// non-retriable for the running cycle.
type Gemini struct {
	client     *genai.Client
	log        *slog.Logger
	model      string
	cfg        *genai.GenerateContentConfig
	maxRetries int
	retryDelay time.Duration
}

// NewGemini builds the Gemini backend.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, &AuthError{Reason: "gemini api key is required"}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	contentCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: geminiInstruction}},
		},
	}

	return &Gemini{
		client:     client,
		log:        log.With("component", "gemini"),
		model:      cfg.Model,
		cfg:        contentCfg,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Summarize sends the text to the model and returns the reply text.
func (g *Gemini) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := g.generateWithRetries(ctx, contents)
	if err != nil {
		return "", err
	}

	out := resp.Text()
	if out == "" {
		return "", &APIError{Reason: "gemini returned empty content"}
	}
	return out, nil
}

func (g *Gemini) generateWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for i := 0; i <= g.maxRetries; i++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, &AuthError{Reason: "gemini rejected credentials", Err: err}
			case http.StatusInternalServerError, http.StatusServiceUnavailable:
				if i < g.maxRetries {
					g.log.WarnContext(ctx, "Gemini server error, retrying",
						"attempt", i+1, "code", apiErr.Code, "delay", g.retryDelay)
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(g.retryDelay):
					}
					continue
				}
			}
			return nil, &APIError{StatusCode: apiErr.Code, Reason: "gemini call failed", Err: err}
		}

		return nil, &APIError{Reason: "gemini call failed", Err: err}
	}

	return nil, &APIError{Reason: "gemini call failed after retries", Err: lastErr}
}
