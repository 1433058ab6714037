// Package openrouter is a minimal client for the OpenRouter chat-completions
// API. One Client is created at process start, shared by every caller, and
// holds no per-request state.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrMalformedResponse reports a 2xx response whose body did not carry the
// expected choices shape.
var ErrMalformedResponse = errors.New("openrouter: malformed response")

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openrouter: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	apiKey  string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	APIKey  string
	APIBase string
	Client  *http.Client // shared pooled client; required
	Logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://openrouter.ai/api/v1"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

// Message is one chat turn. Content is either a plain string or a
// []ContentPart for multi-part (text + image) turns.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multi-part user turn.
type ContentPart struct {
	Type     string    `json:"type"` // "text" | "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`
}

type ImageRef struct {
	URL string `json:"url"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image-reference content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageRef{URL: url}}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletion posts one completion request and returns the first choice's
// message content. Cancellation and deadlines come from ctx; the client
// itself imposes no timeout.
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	return parsed.Choices[0].Message.Content, nil
}

// Healthy checks that the API is reachable and the key is accepted.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("openrouter: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openrouter returned %d", resp.StatusCode)
	}
	return nil
}
