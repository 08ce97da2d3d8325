// Package ai holds the outbound generative-language clients. Providers are
// interchangeable behind a single Generate call; the active one is selected
// by configuration.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chinu7077/Talk-to-Chinu/internal/config"
)

// FallbackText is appended verbatim when a response carries no usable
// candidate text.
const FallbackText = "Sorry, I couldn't process your message."

var (
	// ErrQuotaExceeded maps provider 429 responses. The caller zeroes the
	// local credit counter when it observes this.
	ErrQuotaExceeded = errors.New("api quota exceeded")
	ErrInvalidAPIKey = errors.New("invalid api key")
	ErrAccessDenied  = errors.New("api access denied")
)

// APIError carries the provider's own message for anything outside the
// mapped taxonomy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Provider executes a single generation request. apiKey overrides the
// configured key when non-empty.
type Provider interface {
	Generate(ctx context.Context, apiKey, userText string) (string, error)
}

// NewProvider builds the provider named by cfg.Provider. An empty name
// selects Gemini.
func NewProvider(cfg *config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
