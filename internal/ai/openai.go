package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Chinu7077/Talk-to-Chinu/internal/config"
	"github.com/Chinu7077/Talk-to-Chinu/internal/utils"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient is the alternative provider for OpenAI-compatible endpoints,
// mapped onto the same error taxonomy as the Gemini client.
type OpenAIClient struct {
	cfg          config.OpenAIConfig
	systemPrompt string
	httpClient   *http.Client
}

func NewOpenAIClient(cfg *config.AIConfig) *OpenAIClient {
	return &OpenAIClient{
		cfg:          cfg.OpenAI,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   utils.NewHTTPClient(cfg.OpenAI.Timeout),
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, apiKey, userText string) (string, error) {
	key := apiKey
	if key == "" {
		key = c.cfg.APIKey
	}
	if key == "" {
		return "", ErrInvalidAPIKey
	}

	clientConfig := openai.DefaultConfig(key)
	if c.cfg.BaseURL != "" {
		clientConfig.BaseURL = c.cfg.BaseURL
	}
	clientConfig.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return "", mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return FallbackText, nil
	}

	return resp.Choices[0].Message.Content, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("request failed: %w", err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusTooManyRequests:
		return ErrQuotaExceeded
	case http.StatusUnauthorized, http.StatusBadRequest:
		return ErrInvalidAPIKey
	case http.StatusForbidden:
		return ErrAccessDenied
	}
	return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
}
