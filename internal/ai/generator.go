// Package ai turns receipts, voice notes and free text into expense line
// items, and answers questions about transactions, using a generative model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var (
	ErrEmptyResponse = errors.New("ai: empty response from model")
	ErrRateLimited   = errors.New("ai: rate limit exceeded")
	ErrUnauthorized  = errors.New("ai: api key rejected")
	ErrUnsupported   = errors.New("ai: input format not supported")
)

// Media is inline binary input such as a receipt photo or an audio clip.
type Media struct {
	MIMEType string
	Data     []byte
}

// Generator sends one prompt, optionally with media, to a named model and
// returns the raw text reply.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, media *Media) (string, error)
}

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a Gemini API client. An empty apiKey lets the
// SDK read GOOGLE_API_KEY / GEMINI_API_KEY or Vertex settings from the
// environment.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, model, prompt string, media *Media) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	if media != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: media.MIMEType, Data: media.Data},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", classifyError(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// classifyError attaches a sentinel to well-known API failures so callers can
// tell quota and credential problems apart from bad input.
func classifyError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "PERMISSION_DENIED"):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case strings.Contains(msg, "400") || strings.Contains(msg, "INVALID_ARGUMENT"):
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return fmt.Errorf("generate content: %w", err)
}
