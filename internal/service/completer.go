package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"storyteller-admin/internal/upstream"
)

type Completion struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completer turns a system + user prompt pair into text.
type Completer interface {
	Complete(ctx context.Context, token string, completion Completion) (string, error)
}

var errEmptyCompletion = errors.New("completion was empty")

// BackendCompleter uses the backend's /chat/completions endpoint with the
// caller's token.
type BackendCompleter struct {
	client *upstream.Client
}

func NewBackendCompleter(client *upstream.Client) *BackendCompleter {
	return &BackendCompleter{client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

func (c *BackendCompleter) Complete(ctx context.Context, token string, completion Completion) (string, error) {
	req := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: completion.System},
			{Role: "user", Content: completion.User},
		},
		MaxTokens:   completion.MaxTokens,
		Temperature: completion.Temperature,
	}

	resp, err := c.client.DoJSON(ctx, http.MethodPost, "/chat/completions", token, req)
	if err != nil {
		return "", err
	}

	var payload map[string]any
	if err := resp.JSON(&payload); err != nil {
		return "", err
	}

	text := strings.TrimSpace(completionText(payload))
	if text == "" {
		return "", errEmptyCompletion
	}

	return text, nil
}

// completionText reads content, data.content or the OpenAI-style
// choices[0].message.content.
func completionText(payload map[string]any) string {
	if s, ok := payload["content"].(string); ok {
		return s
	}

	switch data := payload["data"].(type) {
	case string:
		return data
	case map[string]any:
		if s := completionText(data); s != "" {
			return s
		}
	}

	choices, _ := payload["choices"].([]any)
	if len(choices) == 0 {
		return ""
	}
	choice, _ := choices[0].(map[string]any)
	message, _ := choice["message"].(map[string]any)
	s, _ := message["content"].(string)
	return s
}

// contentGenerator is satisfied by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCompleter calls the Gemini API directly. The caller's token is not
// used.
type GeminiCompleter struct {
	models contentGenerator
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey string, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiCompleter{models: client.Models, model: model}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, _ string, completion Completion) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(completion.System, genai.RoleUser),
	}
	if completion.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(completion.MaxTokens)
	}
	if completion.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(completion.Temperature))
	}

	resp, err := c.models.GenerateContent(ctx, c.model, []*genai.Content{
		genai.NewContentFromText(completion.User, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyCompletion
	}

	return text, nil
}
