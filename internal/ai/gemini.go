package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Chinu7077/Talk-to-Chinu/internal/config"
	"github.com/Chinu7077/Talk-to-Chinu/internal/utils"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"
)

// GeminiClient speaks the generateContent wire format directly: the API key
// travels as a query parameter and the prompt as a single content part.
type GeminiClient struct {
	baseURL      string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

func NewGeminiClient(cfg *config.AIConfig) *GeminiClient {
	return &GeminiClient{
		baseURL:      cfg.Gemini.BaseURL,
		model:        cfg.Gemini.Model,
		apiKey:       cfg.Gemini.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   utils.NewHTTPClient(cfg.Gemini.Timeout),
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) Generate(ctx context.Context, apiKey, userText string) (string, error) {
	key := apiKey
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return "", ErrInvalidAPIKey
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(key))

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{
				{Text: c.systemPrompt + "\n\nUser: " + userText},
			}},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.mapError(resp.StatusCode, data)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 ||
		parsed.Candidates[0].Content.Parts[0].Text == "" {
		logger.Warnf("Gemini returned no candidate text, using fallback")
		return FallbackText, nil
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (c *GeminiClient) mapError(status int, data []byte) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrQuotaExceeded
	case http.StatusBadRequest:
		return ErrInvalidAPIKey
	case http.StatusForbidden:
		return ErrAccessDenied
	}

	var parsed geminiResponse
	message := ""
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error != nil {
		message = parsed.Error.Message
	}
	return &APIError{StatusCode: status, Message: message}
}
